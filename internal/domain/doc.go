// Package domain models USGS National Water Information System (NWIS) data.
//
// # Data Sources
//
// Documents come from the NWIS web services (https://waterservices.usgs.gov
// and https://nwis.waterdata.usgs.gov). Two formats matter here:
//
// RDB (tab-delimited):
//
//	Header lines are prefixed with "#". The last comment line declares
//	per-column type codes ("5s  15s  20d  14n") aligned with the column
//	header line that follows; the trailing letter is the code: s = string,
//	d = date, n = numeric. The digits are display widths and carry no
//	meaning for parsing.
//
// WaterML 2.0 (XML):
//
//	Time series arrive as MeasurementTVP point elements. The qualifier is a
//	link to a controlled-vocabulary term, so it lives in the xlink:title
//	attribute rather than element text. A document-level default point
//	metadata element supplies the qualifier for points that omit their own.
//
// # Column naming conventions
//
// NWIS column names encode type in their suffix, and the suffix is more
// reliable than the embedded type-code line:
//
//	*_va  measured value, decimal        (e.g. gage_height_va)
//	*_nu  numeric identifier, integer    (e.g. measurement_nu)
//
// Suffix coercion is applied after parsing; cells that do not parse become
// null rather than failing the document. See the rdb package.
//
// # Qualifier codes
//
//	"P"  Provisional data subject to revision.
//	"A"  Approved for publication. Processing and review completed.
//
// The web service sometimes spells these out in full; the waterml package
// maps the long phrases back to the short codes.
//
// # Error-page detection
//
// When a request is wrong (bad site number, unavailable service) NWIS
// returns an HTML page with a 200 status. Parsed as RDB, such a page
// collapses into a single column, which is the defining symptom Classify
// reports as Malformed.
package domain
