package mappify

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-openapi/inflect"

	"github.com/syssam/mappify/dialect/sql"
)

// Schema is the declared persistence layout of an entity type: its table,
// its primary key and its columns in declaration order.
type Schema struct {
	// Name is the Go type name, used in errors and logs.
	Name string
	// Table is the table rows are read from and written to.
	Table string
	// PrimaryKey is the primary key column.
	PrimaryKey string

	typ       reflect.Type
	fields    []*column
	byColumn  map[string]*column
	relations map[string]*relation
}

// column maps one struct field to a table column.
type column struct {
	name  string
	field string
	index []int
	typ   reflect.Type
}

// relation is a struct field filled by Populate.
type relation struct {
	alias string
	index []int
	// many is set for slice fields.
	many bool
	// ptr is set when the field (or its elements) are pointers.
	ptr  bool
	elem reflect.Type
}

// Columns returns the column names in declaration order.
func (s *Schema) Columns() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// HasColumn reports whether the schema declares the column.
func (s *Schema) HasColumn(name string) bool {
	_, ok := s.byColumn[name]
	return ok
}

// Relations returns the relation field aliases, sorted by declaration.
func (s *Schema) Relations() []string {
	names := make([]string, 0, len(s.relations))
	for _, f := range s.orderedRelations() {
		names = append(names, f.alias)
	}
	return names
}

func (s *Schema) orderedRelations() []*relation {
	rels := make([]*relation, 0, len(s.relations))
	for _, r := range s.relations {
		rels = append(rels, r)
	}
	for i := 1; i < len(rels); i++ {
		for j := i; j > 0 && lessIndex(rels[j].index, rels[j-1].index); j-- {
			rels[j], rels[j-1] = rels[j-1], rels[j]
		}
	}
	return rels
}

func lessIndex(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// typeInfo is the table-independent part of a schema, parsed once per type.
type typeInfo struct {
	fields    []*column
	byColumn  map[string]*column
	relations map[string]*relation
	pk        string
}

var typeInfos sync.Map // reflect.Type => *typeInfo

// TableNamer is implemented by entities that pick their own table name.
type TableNamer interface {
	TableName() string
}

// schemaOf builds the schema of struct type t.
func schemaOf(t reflect.Type, table string) (*Schema, error) {
	if t.Kind() != reflect.Struct {
		return nil, NewValidationError("entity", fmt.Errorf("%s is not a struct", t))
	}
	info, err := typeInfoOf(t)
	if err != nil {
		return nil, NewValidationError(t.Name(), err)
	}
	if table == "" {
		if n, ok := reflect.New(t).Interface().(TableNamer); ok {
			table = n.TableName()
		} else {
			table = DefaultTableName(t.Name())
		}
	}
	if !sql.IsValidIdentifier(table) {
		return nil, NewValidationError("table", fmt.Errorf("invalid table name %q", table))
	}
	return &Schema{
		Name:       t.Name(),
		Table:      table,
		PrimaryKey: info.pk,
		typ:        t,
		fields:     info.fields,
		byColumn:   info.byColumn,
		relations:  info.relations,
	}, nil
}

// DefaultTableName derives a table name from a type name:
// "Product" becomes "products" and "OrderItem" becomes "order_items".
func DefaultTableName(typeName string) string {
	return inflect.Pluralize(inflect.Underscore(typeName))
}

func typeInfoOf(t reflect.Type) (*typeInfo, error) {
	if v, ok := typeInfos.Load(t); ok {
		return v.(*typeInfo), nil
	}
	info := &typeInfo{
		byColumn:  make(map[string]*column),
		relations: make(map[string]*relation),
	}
	if err := info.walk(t, nil); err != nil {
		return nil, err
	}
	if info.pk == "" {
		if _, ok := info.byColumn["id"]; !ok {
			return nil, errors.New("no primary key: declare an id column or tag one with `db:\",pk\"`")
		}
		info.pk = "id"
	}
	switch info.byColumn[info.pk].typ.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
	default:
		return nil, fmt.Errorf("primary key %q must be an integer", info.pk)
	}
	v, _ := typeInfos.LoadOrStore(t, info)
	return v.(*typeInfo), nil
}

func (info *typeInfo) walk(t reflect.Type, parent []int) error {
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		index := append(append([]int(nil), parent...), i)
		if alias, ok := sf.Tag.Lookup("rel"); ok {
			if err := info.addRelation(sf, alias, index); err != nil {
				return err
			}
			continue
		}
		tag, tagged := sf.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		if sf.Anonymous && !tagged {
			if sf.Type.Kind() == reflect.Struct {
				if err := info.walk(sf.Type, index); err != nil {
					return err
				}
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = inflect.Underscore(sf.Name)
		}
		if !sql.IsValidIdentifier(name) {
			return fmt.Errorf("field %s: invalid column name %q", sf.Name, name)
		}
		if _, dup := info.byColumn[name]; dup {
			return fmt.Errorf("field %s: duplicate column %q", sf.Name, name)
		}
		c := &column{name: name, field: sf.Name, index: index, typ: sf.Type}
		info.fields = append(info.fields, c)
		info.byColumn[name] = c
		if opts == "pk" {
			if info.pk != "" {
				return fmt.Errorf("field %s: second primary key", sf.Name)
			}
			info.pk = name
		}
	}
	return nil
}

func (info *typeInfo) addRelation(sf reflect.StructField, alias string, index []int) error {
	if alias == "" {
		alias = inflect.Underscore(sf.Name)
	}
	if !sf.IsExported() {
		return fmt.Errorf("relation %q: field %s is not exported", alias, sf.Name)
	}
	if _, dup := info.relations[alias]; dup {
		return fmt.Errorf("relation %q declared twice", alias)
	}
	r := &relation{alias: alias, index: index}
	t := sf.Type
	if t.Kind() == reflect.Slice {
		r.many = true
		t = t.Elem()
	}
	if t.Kind() == reflect.Pointer {
		r.ptr = true
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fmt.Errorf("relation %q: field %s must hold a struct, got %s", alias, sf.Name, sf.Type)
	}
	r.elem = t
	info.relations[alias] = r
	return nil
}

// pk returns the primary key field of v.
func (s *Schema) pk(v reflect.Value) reflect.Value {
	return v.FieldByIndex(s.byColumn[s.PrimaryKey].index)
}

// pkInt64 returns the primary key of v as an int64.
func (s *Schema) pkInt64(v reflect.Value) int64 {
	f := s.pk(v)
	if f.CanInt() {
		return f.Int()
	}
	return int64(f.Uint())
}

// value returns the value of column c in v.
func (s *Schema) value(v reflect.Value, c string) (any, bool) {
	f, ok := s.byColumn[c]
	if !ok {
		return nil, false
	}
	return v.FieldByIndex(f.index).Interface(), true
}
