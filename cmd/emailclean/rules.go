package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/rules"
)

func newRulesCmd(a *app) *cobra.Command {
	var (
		rulesFile string
		export    string
	)

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the exclusion pattern catalogue",
		Long: `Print the exclusion pattern catalogue as YAML.

The printed catalogue can be edited and passed back with --rules or
RULES_FILE. Patterns are matched against lowercase addresses with all
whitespace removed.

Examples:
  emailclean rules
  emailclean rules --export reglas.yaml
  emailclean rules explain "Info@Empresa.com"`,
		Args: args(cobra.NoArgs),
		RunE: func(*cobra.Command, []string) error {
			cat, err := a.catalogue(rulesFile)
			if err != nil {
				return err
			}
			if export == "" {
				return rules.Write(a.stdout, cat)
			}
			return exportCatalogue(export, cat)
		},
	}

	cmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "YAML rule catalogue to read instead of the built-in one (default RULES_FILE)")
	cmd.Flags().StringVar(&export, "export", "", "Write the catalogue to this file instead of stdout")

	cmd.AddCommand(newExplainCmd(a, &rulesFile))
	return cmd
}

func newExplainCmd(a *app, rulesFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <address>...",
		Short: "Show which patterns exclude an address",
		Long: `Normalize each address the way a run does and list the catalogue
patterns it matches. Addresses matching nothing are kept by the pattern
filter.`,
		Args: args(cobra.MinimumNArgs(1)),
		RunE: func(_ *cobra.Command, addrs []string) error {
			cat, err := a.catalogue(*rulesFile)
			if err != nil {
				return err
			}
			m, err := pipeline.CompilePatterns(cat.Patterns(), pipeline.CompileOptions{})
			if err != nil {
				return err
			}
			explain(a.stdout, a.noColor, cat, m, addrs)
			return nil
		},
	}
}

// catalogue returns the catalogue named by path, the configured RULES_FILE
// or the built-in one, in that order.
func (a *app) catalogue(path string) (rules.Catalogue, error) {
	if path == "" {
		path = a.cfg.Rules.File
	}
	if path == "" {
		return rules.Default(), nil
	}
	return rules.LoadFile(path)
}

func exportCatalogue(path string, cat rules.Catalogue) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := rules.Write(f, cat); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// explain prints, for every address, its normalized form and the matching
// patterns with the group they belong to.
func explain(w io.Writer, noColor bool, cat rules.Catalogue, m *pipeline.Matcher, addrs []string) {
	excluded := color.New(color.FgRed)
	kept := color.New(color.FgGreen)
	if noColor {
		excluded.DisableColor()
		kept.DisableColor()
	}

	groups := groupOf(cat)
	patterns := m.Patterns()

	for _, raw := range addrs {
		addr := pipeline.NormalizeAddress(raw)
		hits := m.Explain(addr)
		if len(hits) == 0 {
			kept.Fprintf(w, "%s: kept\n", addr)
			continue
		}
		excluded.Fprintf(w, "%s: excluded by %d pattern(s)\n", addr, len(hits))
		for _, i := range hits {
			fmt.Fprintf(w, "  [%s] %s\n", groups[i], patterns[i])
		}
	}
}

// groupOf maps each flattened pattern index to its group name.
func groupOf(cat rules.Catalogue) []string {
	names := make([]string, 0, cat.Len())
	for _, g := range cat.Groups {
		for range g.Patterns {
			names = append(names, g.Name)
		}
	}
	return names
}
