// Package extract turns simulation output into structured values following a
// per-collection extraction schema.
package extract

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type VarType string

const (
	TypeInt        VarType = "int"
	TypeFloat      VarType = "float"
	TypeString     VarType = "string"
	TypeLongString VarType = "long_string"
	TypeKeywords   VarType = "keywords"
	TypeThermoLog  VarType = "thermo_log"
)

// DumpKey is the schema entry holding the trajectory directive.
const DumpKey = "dump"

func (t VarType) valid() bool {
	switch t {
	case TypeInt, TypeFloat, TypeString, TypeLongString, TypeKeywords, TypeThermoLog:
		return true
	}
	return false
}

// Flag is a boolean that also accepts 0/1, as older schemas write it.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(data)), `"`) {
	case "1", "true":
		*f = true
	case "0", "false", "null", "":
		*f = false
	default:
		return fmt.Errorf("invalid flag %s", data)
	}
	return nil
}

type Variable struct {
	Type VarType `json:"type"`
}

// FileSchema describes what to pull out of one tracked file.
type FileSchema struct {
	Variables map[string]Variable `json:"variables"`
	// Upload keeps the raw file in the stored record; defaults to true.
	Upload *Flag `json:"upload,omitempty"`
}

func (fs FileSchema) Uploaded() bool {
	return fs.Upload == nil || bool(*fs.Upload)
}

func (fs FileSchema) hasThermo() bool {
	for _, v := range fs.Variables {
		if v.Type == TypeThermoLog {
			return true
		}
	}
	return false
}

// DumpDirective controls trajectory handling.
type DumpDirective struct {
	Parse Flag `json:"parse"`
}

// Schema is the parsed schema file of an upload.
type Schema struct {
	Files map[string]FileSchema
	Dump  *DumpDirective
}

// IsSchemaFile reports whether an archive member is the schema file.
func IsSchemaFile(name string) bool {
	return !strings.Contains(name, "/") && strings.HasPrefix(name, "watch")
}

// FileNames returns the schema's file names, sorted.
func (s *Schema) FileNames() []string {
	names := make([]string, 0, len(s.Files))
	for name := range s.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WantsTrajectories reports whether trajectory files are kept at all.
func (s *Schema) WantsTrajectories() bool {
	return s.Dump != nil
}

// ParseTrajectories reports whether kept trajectory files are parsed.
func (s *Schema) ParseTrajectories() bool {
	return s.Dump != nil && bool(s.Dump.Parse)
}

// IsTrajectory reports whether a member is a trajectory (dump) file.
func IsTrajectory(name string) bool {
	return strings.Contains(path.Base(name), DumpKey)
}

// ParseSchema decodes a JSON schema, or YAML when name ends in .yaml/.yml.
func ParseSchema(name string, data []byte) (*Schema, error) {
	if ext := path.Ext(name); ext == ".yaml" || ext == ".yml" {
		var raw map[string]any
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, newError(name, 0, "invalid yaml schema: %v", err)
		}
		converted, err := json.Marshal(raw)
		if err != nil {
			return nil, newError(name, 0, "convert yaml schema: %v", err)
		}
		data = converted
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, newError(name, 0, "invalid schema: %v", err)
	}

	s := &Schema{Files: make(map[string]FileSchema, len(entries))}
	for key, raw := range entries {
		if key == DumpKey {
			var d DumpDirective
			if err := json.Unmarshal(raw, &d); err != nil {
				return nil, newError(name, 0, "invalid %s directive: %v", DumpKey, err)
			}
			s.Dump = &d
			continue
		}

		var fs FileSchema
		if err := json.Unmarshal(raw, &fs); err != nil {
			return nil, newError(name, 0, "invalid entry %q: %v", key, err)
		}
		for varName, v := range fs.Variables {
			if !v.Type.valid() {
				return nil, newError(name, 0, "variable %q of %q has unknown type %q", varName, key, v.Type)
			}
		}
		s.Files[key] = fs
	}
	return s, nil
}
