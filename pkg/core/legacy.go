package core

// LegacyTable is the table reference shape used by older task definitions,
// with addressing fields flattened onto the struct.
type LegacyTable struct {
	TableName string
	ConnID    string
	Schema    string
	Database  string
	Warehouse string
}

// TempTable is a legacy temporary table; its name is always generated.
type TempTable struct {
	ConnID   string
	Schema   string
	Database string
}

// ConvertTable normalizes any supported table representation into a Table.
// The second result is false when v is not a table. Conversion is pure and
// idempotent: converting a Table returns an equal Table.
func ConvertTable(v any) (Table, bool) {
	switch t := v.(type) {
	case Table:
		return t, true
	case *Table:
		if t == nil {
			return Table{}, false
		}
		return *t, true
	case LegacyTable:
		return convertLegacy(t), true
	case *LegacyTable:
		if t == nil {
			return Table{}, false
		}
		return convertLegacy(*t), true
	case TempTable:
		return convertTemp(t), true
	case *TempTable:
		if t == nil {
			return Table{}, false
		}
		return convertTemp(*t), true
	}
	return Table{}, false
}

// IsTable reports whether v is any supported table representation.
func IsTable(v any) bool {
	_, ok := ConvertTable(v)
	return ok
}

func convertLegacy(t LegacyTable) Table {
	return NewTable(t.ConnID, t.TableName, Metadata{
		Schema:    t.Schema,
		Database:  t.Database,
		Warehouse: t.Warehouse,
	})
}

func convertTemp(t TempTable) Table {
	return NewTable(t.ConnID, "", Metadata{Schema: t.Schema, Database: t.Database})
}
