package domain

import "time"

// Point is one time-series observation. Value is nil when the raw text
// could not be parsed as a number (the null sentinel for below-detection
// and other special markers). Points keep document order; the importer
// does not sort, and callers must not assume a global sort.
type Point struct {
	Time      time.Time `json:"time"`
	Value     *float64  `json:"value,omitempty"`
	Qualifier string    `json:"qualifier,omitempty"`
}
