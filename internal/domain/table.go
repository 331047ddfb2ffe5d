package domain

// Table is the output of the RDB importer: ordered column names, ordered
// rows keyed by column name, and the comment block preserved verbatim.
// Every row carries exactly the header's column set.
type Table struct {
	Columns  []string
	Rows     []map[string]Value
	Comments []string
}

// Column returns the cells of the named column in row order.
// ok is false if the column is not part of the header.
func (t *Table) Column(name string) ([]Value, bool) {
	var found bool
	for _, c := range t.Columns {
		if c == name {
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}
	cells := make([]Value, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[name]
	}
	return cells, true
}

// Validity classifies a parse result for the caller.
type Validity int

const (
	Valid Validity = iota
	Empty
	Malformed
)

func (v Validity) String() string {
	switch v {
	case Empty:
		return "empty"
	case Malformed:
		return "malformed"
	default:
		return "valid"
	}
}

// Classify flags a table as Empty (no rows), Malformed (exactly one column,
// the symptom of an HTML error page delivered as data), or Valid. The row
// check runs first: a zero-row table is Empty regardless of column count.
func Classify(t *Table) Validity {
	if len(t.Rows) == 0 {
		return Empty
	}
	if len(t.Columns) == 1 {
		return Malformed
	}
	return Valid
}

// ReplaceIfMalformed classifies t and, when it is Malformed, substitutes an
// explicitly empty table so downstream column access cannot silently operate
// on the bogus single column. Empty and Valid tables pass through unchanged.
func ReplaceIfMalformed(t *Table) (*Table, Validity) {
	v := Classify(t)
	if v == Malformed {
		return &Table{}, v
	}
	return t, v
}
