package rdb

import (
	"math"
	"strconv"
	"strings"

	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
)

// NWIS column-name suffixes that override the embedded type hints: the
// naming convention is a stronger signal than the type-declaration line.
const (
	valueSuffix      = "_va" // measured value, forced to float
	identifierSuffix = "_nu" // numeric identifier, forced to integer
)

// Coerce forces every cell of a *_va column to a number and every cell of a
// *_nu column to an integer, leaving other columns untouched. A cell that
// does not parse becomes null, never an error. Coerce is idempotent and a
// no-op when enabled is false. Rows are rewritten in place and the same
// table is returned for chaining.
func Coerce(t *domain.Table, enabled bool) *domain.Table {
	if !enabled || t == nil {
		return t
	}
	for _, name := range t.Columns {
		switch {
		case strings.HasSuffix(name, valueSuffix):
			for _, row := range t.Rows {
				row[name] = coerceNumber(row[name])
			}
		case strings.HasSuffix(name, identifierSuffix):
			for _, row := range t.Rows {
				row[name] = coerceInteger(row[name])
			}
		}
	}
	return t
}

// CoercionGaps counts null cells in forced-numeric and forced-integer
// columns. Gaps are summarized for metrics, never itemized per cell.
func CoercionGaps(t *domain.Table) int {
	if t == nil {
		return 0
	}
	gaps := 0
	for _, name := range t.Columns {
		if !strings.HasSuffix(name, valueSuffix) && !strings.HasSuffix(name, identifierSuffix) {
			continue
		}
		for _, row := range t.Rows {
			if row[name].IsNull() {
				gaps++
			}
		}
	}
	return gaps
}

func coerceNumber(v domain.Value) domain.Value {
	switch v.Kind() {
	case domain.KindNumber:
		return v
	case domain.KindInteger:
		i, _ := v.AsInteger()
		return domain.Number(float64(i))
	case domain.KindText:
		s, _ := v.AsText()
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return domain.Null()
		}
		return domain.Number(f)
	default:
		return domain.Null()
	}
}

func coerceInteger(v domain.Value) domain.Value {
	switch v.Kind() {
	case domain.KindInteger:
		return v
	case domain.KindNumber:
		f, _ := v.AsNumber()
		if f != math.Trunc(f) {
			return domain.Null()
		}
		return domain.Integer(int64(f))
	case domain.KindText:
		s, _ := v.AsText()
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return domain.Null()
		}
		return domain.Integer(i)
	default:
		return domain.Null()
	}
}
