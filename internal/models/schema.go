package models

import (
	"fmt"
	"sort"
	"strings"
)

type FieldType string

const (
	FieldInteger   FieldType = "INTEGER"
	FieldText      FieldType = "TEXT"
	FieldReal      FieldType = "REAL"
	FieldTimestamp FieldType = "TIMESTAMP"
)

type Field struct {
	Name       string
	Type       FieldType
	PrimaryKey bool
}

// SchemaDescriptor describes the one queryable table. It is immutable once
// built; Fields hands out a copy.
type SchemaDescriptor struct {
	table  string
	fields []Field
}

func NewSchemaDescriptor(table string, fields ...Field) SchemaDescriptor {
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return SchemaDescriptor{table: table, fields: cp}
}

func (s SchemaDescriptor) Table() string {
	return s.table
}

func (s SchemaDescriptor) Fields() []Field {
	cp := make([]Field, len(s.fields))
	copy(cp, s.fields)
	return cp
}

func (s SchemaDescriptor) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// HasField matches case-insensitively, like unquoted SQL identifiers.
func (s SchemaDescriptor) HasField(name string) bool {
	for _, f := range s.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Render produces the DDL text embedded verbatim in synthesis prompts.
func (s SchemaDescriptor) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", s.table)
	for i, f := range s.fields {
		b.WriteString("    ")
		b.WriteString(f.Name)
		b.WriteString(" ")
		b.WriteString(string(f.Type))
		if f.PrimaryKey {
			b.WriteString(" PRIMARY KEY")
		}
		if i < len(s.fields)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(");")
	return b.String()
}

var (
	InventorySchema = NewSchemaDescriptor("inventory",
		Field{Name: "id", Type: FieldInteger, PrimaryKey: true},
		Field{Name: "sku", Type: FieldText},
		Field{Name: "product_name", Type: FieldText},
		Field{Name: "quantity", Type: FieldInteger},
		Field{Name: "price", Type: FieldReal},
		Field{Name: "size", Type: FieldText},
		Field{Name: "color", Type: FieldText},
		Field{Name: "brand", Type: FieldText},
		Field{Name: "image", Type: FieldText},
		Field{Name: "description", Type: FieldText},
	)

	StockInventorySchema = NewSchemaDescriptor("stock_inventory",
		Field{Name: "id", Type: FieldInteger, PrimaryKey: true},
		Field{Name: "product_name", Type: FieldText},
		Field{Name: "quantity", Type: FieldInteger},
		Field{Name: "price", Type: FieldReal},
		Field{Name: "last_updated", Type: FieldTimestamp},
		Field{Name: "size", Type: FieldText},
		Field{Name: "color", Type: FieldText},
		Field{Name: "brand", Type: FieldText},
		Field{Name: "image", Type: FieldText},
	)
)

// SchemaRegistry maps a configured name to its descriptor.
type SchemaRegistry struct {
	schemas map[string]SchemaDescriptor
}

func NewSchemaRegistry(schemas ...SchemaDescriptor) *SchemaRegistry {
	r := &SchemaRegistry{schemas: make(map[string]SchemaDescriptor, len(schemas))}
	for _, s := range schemas {
		r.schemas[s.Table()] = s
	}
	return r
}

// DefaultSchemaRegistry knows both inventory table shapes.
func DefaultSchemaRegistry() *SchemaRegistry {
	return NewSchemaRegistry(InventorySchema, StockInventorySchema)
}

func (r *SchemaRegistry) Lookup(name string) (SchemaDescriptor, error) {
	s, ok := r.schemas[name]
	if !ok {
		return SchemaDescriptor{}, fmt.Errorf("unknown schema %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return s, nil
}

func (r *SchemaRegistry) Names() []string {
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
