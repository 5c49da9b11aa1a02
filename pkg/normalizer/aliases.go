package normalizer

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// AliasFile extends the built-in alias lists, e.g.
//
//	fields:
//	  vital:
//	    heart_rate: [pulse, bpm]
type AliasFile struct {
	Fields map[Kind]map[string][]string `yaml:"fields"`
}

// LoadTables returns the default tables with the aliases from path appended.
// An empty path yields the defaults.
func LoadTables(path string) ([]Table, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	var file AliasFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("parsing alias file: %w", err)
	}
	if err := file.apply(tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (a AliasFile) apply(tables []Table) error {
	for kind, fields := range a.Fields {
		idx := -1
		for i := range tables {
			if tables[i].Kind == kind {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("alias file: unknown observation kind %q", kind)
		}
		for name, extra := range fields {
			if err := tables[idx].appendAliases(name, extra); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *Table) appendAliases(name string, extra []string) error {
	for i := range t.Fields {
		if t.Fields[i].Name != name {
			continue
		}
		seen := make(map[string]struct{}, len(t.Fields[i].Aliases))
		for _, a := range t.Fields[i].Aliases {
			seen[a] = struct{}{}
		}
		for _, a := range extra {
			if _, dup := seen[a]; dup || a == "" {
				continue
			}
			t.Fields[i].Aliases = append(t.Fields[i].Aliases, a)
			seen[a] = struct{}{}
		}
		return nil
	}
	return fmt.Errorf("alias file: unknown %s field %q", t.Kind, name)
}
