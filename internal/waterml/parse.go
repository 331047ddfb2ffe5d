// Package waterml parses WaterML 2.0 time-series XML into point observations.
//
// Points carry heterogeneous attribute sets: some have a qualifier, some do
// not, and the qualifier is expressed as a link to a controlled-vocabulary
// term rather than inline text. Each point is collected as a flat attribute
// map first and projected to a fixed domain.Point only after the whole
// point list is known, which avoids one-off shapes per attribute
// combination.
package waterml

import (
	"encoding/xml"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
)

// qualifierCodes maps the spelled-out NWIS qualifier phrases back to their
// short codes. Any other qualifier literal passes through verbatim.
var qualifierCodes = map[string]string{
	"Provisional data subject to revision.":                      "P",
	"Approved for publication. Processing and review completed.": "A",
}

// Timestamp layouts applied after colon separators are stripped. The
// upstream service formats timestamps three ways: explicit numeric UTC
// offset, trailing Z, or no zone marker at all (process-local time).
const (
	layoutOffset = "2006-01-02T150405-0700"
	layoutUTC    = "2006-01-02T150405Z"
	layoutLocal  = "2006-01-02T150405"
)

// Importer parses WaterML 2.0 documents.
type Importer struct {
	logger *slog.Logger
}

// NewImporter creates an Importer. Pass nil to log through slog.Default.
func NewImporter(logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{logger: logger}
}

// Parse is shorthand for NewImporter(nil).Parse.
func Parse(raw []byte) ([]domain.Point, error) {
	return NewImporter(nil).Parse(raw)
}

// Parse extracts the point observations from a WaterML 2.0 document.
// It fails only when the input is not well-formed XML; a document with no
// usable points yields an empty slice.
func (im *Importer) Parse(raw []byte) ([]domain.Point, error) {
	var root node
	if err := xml.Unmarshal(raw, &root); err != nil {
		return nil, &domain.FormatError{Doc: "waterml", Stage: "parse xml", Err: err}
	}

	// The document-level default qualifier is read once and threaded into
	// every point that lacks its own.
	defaultQualifier := defaultQualifier(&root)

	var attrSets []map[string]string
	for _, series := range findAll(&root, "MeasurementTimeseries") {
		for _, point := range findAll(series, "point") {
			attrs := collectLeaves(point)
			// A point with at most one field (time only, or nothing) is a
			// placeholder with no usable observation.
			if len(attrs) <= 1 {
				continue
			}
			attrSets = append(attrSets, attrs)
		}
	}

	points := make([]domain.Point, 0, len(attrSets))
	for _, attrs := range attrSets {
		points = append(points, im.project(attrs, defaultQualifier))
	}
	return points, nil
}

// project turns one flat attribute set into a fixed Point, filling an
// absent qualifier from the document default.
func (im *Importer) project(attrs map[string]string, defaultQualifier string) domain.Point {
	p := domain.Point{Value: parseValue(attrs["value"])}

	if ts, ok := im.parseTime(attrs["time"]); ok {
		p.Time = ts
	}

	qualifier := attrs["qualifier"]
	if qualifier == "" {
		qualifier = defaultQualifier
	}
	if code, ok := qualifierCodes[qualifier]; ok {
		qualifier = code
	}
	p.Qualifier = qualifier

	return p
}

// parseTime normalizes a raw timestamp: colons are stripped, then the
// branch is chosen by literal length and trailing character. A literal that
// misses its branch (the length heuristic is an upstream formatting
// assumption, not a contract) is logged and retried against every layout
// before giving up.
func (im *Importer) parseTime(raw string) (time.Time, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ":", "")
	if s == "" {
		return time.Time{}, false
	}

	switch {
	case len(s) > 18:
		// Explicit numeric UTC-offset suffix.
		if t, err := time.Parse(layoutOffset, s); err == nil {
			return t.UTC(), true
		}
	case strings.HasSuffix(s, "Z"):
		if t, err := time.Parse(layoutUTC, s); err == nil {
			return t.UTC(), true
		}
	default:
		// No zone marker: the service means the process-local zone.
		if t, err := time.ParseInLocation(layoutLocal, s, time.Local); err == nil {
			return t.UTC(), true
		}
	}

	im.logger.Warn("timestamp matched no expected branch", "timestamp", raw)
	if t, err := time.Parse(layoutOffset, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(layoutUTC, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.ParseInLocation(layoutLocal, s, time.Local); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// parseValue strips the estimated-flag token that the service sometimes
// merges into the value text and parses the remainder. nil marks a value
// that does not parse (below-detection markers and the like).
func parseValue(raw string) *float64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "true", ""))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// node is a generic navigable XML tree. Namespace bindings are resolved by
// the decoder; matching is by local name only.
type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Text     string     `xml:",chardata"`
	Children []node     `xml:",any"`
}

func (n *node) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// findAll returns every descendant element (including n itself) with the
// given local name.
func findAll(n *node, local string) []*node {
	var out []*node
	if n.XMLName.Local == local {
		out = append(out, n)
	}
	for i := range n.Children {
		out = append(out, findAll(&n.Children[i], local)...)
	}
	return out
}

func findFirst(n *node, local string) *node {
	matches := findAll(n, local)
	if len(matches) == 0 {
		return nil
	}
	return matches[0]
}

// collectLeaves flattens a point's leaf-valued descendants into one
// attribute set keyed by element local name. A qualifier element with empty
// text is represented by its linked vocabulary term's display title. First
// occurrence wins.
func collectLeaves(n *node) map[string]string {
	attrs := make(map[string]string)
	var walk func(*node)
	walk = func(cur *node) {
		if len(cur.Children) == 0 {
			text := strings.TrimSpace(cur.Text)
			if text == "" && cur.XMLName.Local == "qualifier" {
				text = cur.attr("title")
			}
			if text != "" {
				if _, ok := attrs[cur.XMLName.Local]; !ok {
					attrs[cur.XMLName.Local] = text
				}
			}
			return
		}
		for i := range cur.Children {
			walk(&cur.Children[i])
		}
	}
	for i := range n.Children {
		walk(&n.Children[i])
	}
	return attrs
}

// defaultQualifier reads the document-level default point metadata
// qualifier, preferring the vocabulary link title over element text.
func defaultQualifier(root *node) string {
	meta := findFirst(root, "defaultPointMetadata")
	if meta == nil {
		return ""
	}
	q := findFirst(meta, "qualifier")
	if q == nil {
		return ""
	}
	if title := q.attr("title"); title != "" {
		return title
	}
	return strings.TrimSpace(q.Text)
}
