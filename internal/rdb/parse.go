// Package rdb parses the USGS RDB tab-delimited format into typed tables.
//
// Structural failures (no header line, undecodable input) return a
// *domain.FormatError. Everything else degrades: a cell that does not parse
// as its hinted type becomes null, short rows pad with nulls, long rows
// truncate. The caller inspects domain.Classify afterward instead of the
// parse aborting mid-batch.
package rdb

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
)

const commentMarker = "#"

// typeCodeRe matches one RDB type-code token: an optional display width
// followed by s (string), d (date), or n (numeric), e.g. "5s", "20d", "14n".
var typeCodeRe = regexp.MustCompile(`^\d*[sdn]$`)

// Parse reads an RDB document into a table. Comment lines are preserved
// verbatim in the table's comment block, except the final comment line when
// it carries the per-column type codes. The first non-comment line is the
// header; every later line is one row.
func Parse(raw []byte) (*domain.Table, error) {
	if !utf8.Valid(raw) {
		return nil, &domain.FormatError{Doc: "rdb", Stage: "document is not valid text"}
	}

	lines := splitLines(string(raw))

	var comments []string
	idx := 0
	for idx < len(lines) && strings.HasPrefix(lines[idx], commentMarker) {
		comments = append(comments, lines[idx])
		idx++
	}
	if idx >= len(lines) {
		return nil, &domain.FormatError{Doc: "rdb", Stage: "no header line"}
	}

	// The last comment line is the type-declaration line when every token
	// looks like a type code. It binds hints by position to the header that
	// follows and is excluded from the comment block.
	var codes []string
	if n := len(comments); n > 0 {
		if tokens, ok := typeCodes(comments[n-1]); ok {
			codes = tokens
			comments = comments[:n-1]
		}
	}

	header := strings.Split(lines[idx], "\t")

	// Column names are taken verbatim and deduplicated: a repeated name is a
	// defect in the source feed, and the first occurrence wins its position
	// and type binding.
	columns := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	hints := make(map[string]byte, len(header))
	for i, name := range header {
		if seen[name] {
			continue
		}
		seen[name] = true
		columns = append(columns, name)
		if i < len(codes) {
			hints[name] = codes[i][len(codes[i])-1]
		}
	}

	var rows []map[string]domain.Value
	for _, line := range lines[idx+1:] {
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		row := make(map[string]domain.Value, len(columns))
		taken := make(map[string]bool, len(columns))
		for i, name := range header {
			if taken[name] {
				continue
			}
			taken[name] = true
			if i >= len(fields) {
				// Short row: missing trailing columns fill with null.
				row[name] = domain.Null()
				continue
			}
			row[name] = typeCell(fields[i], hints[name])
		}
		rows = append(rows, row)
	}

	return &domain.Table{Columns: columns, Rows: rows, Comments: comments}, nil
}

// typeCell applies the initial per-cell typing from the type hint. The
// numeric hint attempts a float parse and falls back to null; everything
// else stays text. Empty fields are null regardless of hint.
func typeCell(field string, hint byte) domain.Value {
	if field == "" {
		return domain.Null()
	}
	if hint == 'n' {
		f, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return domain.Null()
		}
		return domain.Number(f)
	}
	return domain.Text(field)
}

// typeCodes strips the comment marker from a candidate type-declaration
// line and reports whether every tab-separated token is a type code.
func typeCodes(line string) ([]string, bool) {
	line = strings.TrimPrefix(line, commentMarker)
	tokens := strings.Split(line, "\t")
	for i, tok := range tokens {
		tokens[i] = strings.TrimSpace(tok)
		if !typeCodeRe.MatchString(tokens[i]) {
			return nil, false
		}
	}
	return tokens, true
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	// Trailing newline leaves one empty trailing element; drop it.
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
