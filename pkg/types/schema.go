package types

// KeyKind is how a table's primary key is generated and stored.
type KeyKind int

const (
	// KeyInteger is an auto-incrementing integer surrogate key.
	KeyInteger KeyKind = iota
	// KeyText is a caller-supplied string key.
	KeyText
)

// ColumnKind is the value type of a column.
type ColumnKind int

const (
	ColumnText ColumnKind = iota
	ColumnInteger
	ColumnReal
	ColumnBool
	ColumnTimestamp
	ColumnJSON
	// ColumnRef holds the primary key of a record of Column.Ref type.
	ColumnRef
)

// Column describes one non-key column of a table.
type Column struct {
	Name     string
	Kind     ColumnKind
	Nullable bool
	Ref      EntityType // target type when Kind is ColumnRef
}

// TableSchema describes how one entity type is laid out in the store.
type TableSchema struct {
	Type    EntityType
	Table   string
	Key     string
	KeyKind KeyKind
	// KeyRef is set when the primary key is itself a reference to a record
	// of another type (one-to-one extension tables).
	KeyRef  EntityType
	Columns []Column
}

// Column returns the column with the given name.
func (s TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames lists the non-key columns in declaration order.
func (s TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}
