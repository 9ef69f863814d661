package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrEmptyCatalogue is returned when a catalogue file defines no patterns.
var ErrEmptyCatalogue = errors.New("rule catalogue has no patterns")

// LoadFile reads a YAML catalogue from disk.
func LoadFile(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalogue{}, fmt.Errorf("reading rule catalogue %s: %w", path, err)
	}

	cat, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Catalogue{}, fmt.Errorf("rule catalogue %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes a YAML catalogue.
//
// Two shapes are accepted: the grouped form written by Write,
//
//	groups:
//	  - name: structural
//	    patterns: ['@@', '\.\.']
//
// and a flat list under "patterns", which becomes a single group named
// "custom".
func Parse(r io.Reader) (Catalogue, error) {
	var raw struct {
		Groups   []Group  `yaml:"groups"`
		Patterns []string `yaml:"patterns"`
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Catalogue{}, ErrEmptyCatalogue
		}
		return Catalogue{}, fmt.Errorf("decode yaml: %w", err)
	}

	cat := Catalogue{Groups: raw.Groups}
	if len(raw.Patterns) > 0 {
		cat.Groups = append(cat.Groups, Group{Name: "custom", Patterns: raw.Patterns})
	}

	for i, g := range cat.Groups {
		if g.Name == "" {
			return Catalogue{}, fmt.Errorf("group %d has no name", i)
		}
	}

	if cat.Len() == 0 {
		return Catalogue{}, ErrEmptyCatalogue
	}
	return cat, nil
}

// Write encodes the catalogue as YAML in the grouped form.
func Write(w io.Writer, cat Catalogue) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cat); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
