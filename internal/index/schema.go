package index

import (
	"fmt"
	"sort"
	"strings"
)

// Column maps a display field to a column of the record file.
type Column struct {
	Name   string
	Column int
}

// Schema describes the layout of a record file.
type Schema struct {
	Name      string
	KeyColumn int // Column that is indexed and searched
	IDColumn  int // Column with a stable identifier, -1 to number records
	Fields    []Column

	// FreebaseIDs serves ids like "m.0bth54" in path form, "m/0bth54".
	FreebaseIDs bool
}

// Movies is the layout of the movie file: freebase id, title, year.
var Movies = Schema{
	Name:      "movies",
	KeyColumn: 1,
	IDColumn:  0,
	Fields: []Column{
		{Name: "title", Column: 1},
		{Name: "year", Column: 2},
	},
	FreebaseIDs: true,
}

// Cities is the layout of the city file: name, country code, region,
// population.
var Cities = Schema{
	Name:      "cities",
	KeyColumn: 0,
	IDColumn:  -1,
	Fields: []Column{
		{Name: "city", Column: 0},
		{Name: "country_code", Column: 1},
		{Name: "population", Column: 3},
	},
}

var schemas = map[string]Schema{
	Movies.Name: Movies,
	Cities.Name: Cities,
}

// SchemaByName returns a built-in schema.
func SchemaByName(name string) (Schema, error) {
	s, ok := schemas[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Schema{}, fmt.Errorf("unknown schema %q (available: %s)", name, strings.Join(SchemaNames(), ", "))
	}
	return s, nil
}

// SchemaNames lists the built-in schema names.
func SchemaNames() []string {
	names := make([]string, 0, len(schemas))
	for name := range schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldNames returns the display field names in order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks that the schema can index records.
func (s Schema) Validate() error {
	if s.KeyColumn < 0 {
		return fmt.Errorf("schema %q: key column must be >= 0", s.Name)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %q: at least one field is required", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" || f.Column < 0 {
			return fmt.Errorf("schema %q: invalid field %+v", s.Name, f)
		}
		if f.Name == "id" {
			return fmt.Errorf("schema %q: field name %q is reserved", s.Name, f.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("schema %q: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}
