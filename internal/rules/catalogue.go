// Package rules holds the exclusion pattern catalogue used by the pattern
// filter stage.
//
// The catalogue is an ordered list of groups, each an ordered list of regular
// expressions written against lowercase, whitespace-free addresses. Order
// does not change which addresses are excluded (the patterns are combined
// into one alternation) but it is kept stable so the catalogue reads the
// same way in code, in exported YAML and in reports.
//
// Word classes are spelled out with Unicode properties: a word character is
// [\p{L}\p{N}_] and a word boundary is a non-word character or either end
// of the address. The RE2 shorthands \w, \W and \b are ASCII-only and would
// treat accented letters as separators.
package rules

// Group is a named, ordered set of exclusion patterns.
type Group struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Patterns    []string `yaml:"patterns"`
}

// Catalogue is the full ordered rule set.
type Catalogue struct {
	Groups []Group `yaml:"groups"`
}

// Patterns flattens the catalogue into its documented order.
func (c Catalogue) Patterns() []string {
	var out []string
	for _, g := range c.Groups {
		out = append(out, g.Patterns...)
	}
	return out
}

// Len returns the total number of patterns.
func (c Catalogue) Len() int {
	n := 0
	for _, g := range c.Groups {
		n += len(g.Patterns)
	}
	return n
}

// Default returns the built-in catalogue. Each call returns a fresh copy.
func Default() Catalogue {
	groups := make([]Group, len(defaultGroups))
	for i, g := range defaultGroups {
		groups[i] = Group{
			Name:        g.Name,
			Description: g.Description,
			Patterns:    append([]string(nil), g.Patterns...),
		}
	}
	return Catalogue{Groups: groups}
}

var defaultGroups = []Group{
	{
		Name:        "structural",
		Description: "double separators, missing or extra @, leading punctuation, trailing dot, disallowed characters",
		Patterns: []string{
			`@@`,
			`\.\.`,
			`\.com@`,
			`[\+\&:,"' ]`,
			`ñ`,
			`^(?:[._]|[^\p{L}\p{N}_])`,
			`\.$`,
			`@.*@`,
			`^[^@]*$`,
		},
	},
	{
		Name:        "providers",
		Description: "misspelled providers and disposable domains",
		Patterns: []string{
			`gm?ial|gnial|dumy|notene`,
			`@(yopmail)`,
		},
	},
	{
		Name:        "placeholders",
		Description: "placeholder and refusal keywords",
		Patterns: []string{
			`(dummy|prueba|ejemplo|example|temporal)`,
			`(?:^|[^\p{L}\p{N}_])correoprueba(?:[^\p{L}\p{N}_]|$)`,
			`(?:^|[^\p{L}\p{N}_])(?:no[_.-]?tiene|sin[_.-]?correo|no[_.-]?tengo|no[_.-]?existe|no[_.-]?cuenta(?:con)?correo)(?:[^\p{L}\p{N}_]|$)`,
			`(?:^|[^\p{L}\p{N}_])(?:no[_.-]?aplica|no[_.-]?maneja[_.-]?correo|no[_.-]?brinda|no[_.-]?asigna[_.-]?correo)(?:[^\p{L}\p{N}_]|$)`,
			`(?:^|[^\p{L}\p{N}_])(?:no[_.-]?se[_.-]?lo[_.-]?sabe|no[_.-]?da|no[_.-]?desea|no[_.-]?dejo)(?:[^\p{L}\p{N}_]|$)`,
		},
	},
	{
		Name:        "numeric",
		Description: "numeric and filler local-parts",
		Patterns: []string{
			`^(1\.21|1212|1122|121|12.1|1\.2)`,
			`^(618)`,
			`^(123|1234|12345)@`,
			`^[zZ]+@`,
		},
	},
	{
		Name:        "junk",
		Description: "known junk local-parts and domains",
		Patterns: []string{
			`^(sinusuario|demientras|notengo|virtual|facturas[-_]?izzi|cliente(?:nuevo|izzi)|izzi|aaa|om|lacasadelbrujo|nohaycorreo|ninguno|001)@.*$`,
			`^(manololo|sinmail|n|ngonzalez|generico|atencionalcliente|izzigenerico|p-ngonzalezg|a.empresarial)@.*$`,
			`^(ventas\p{Nd}+clientes|xxx|generico\p{Nd}+)@.*$`,
			`^(jesus|jose)@.*$|^sincorreo\p{Nd}+@.*$`,
			`^(correo|123456|sin.correo|no.se.lo.sabe|wizzgenerico)@.*$`,
			`^(abc|abc123|atc|sincontacto|iz.z.ot.el.e)@.*$`,
			`[\p{L}\p{N}_.-]*no[_.-]?tiene[\p{L}\p{N}_.-]*@[\p{L}\p{N}_.-]*`,
			`@no[_.-]?tiene[\p{L}\p{N}_.-]*`,
			`^(nocuenta[\p{L}\p{N}_-]+|nodejo[\p{L}\p{N}_-]+|noda[\p{L}\p{N}_-]+|nodesea[\p{L}\p{N}_-]+)@`,
		},
	},
	{
		Name:        "short",
		Description: "single and two character local-parts",
		Patterns: []string{
			`^(0+|1)@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`,
			`^[a-zA-Z0-9]{1,2}@[\p{L}\p{N}_.-]+\.[a-zA-Z]{2,}$`,
		},
	},
}
