package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Observation is one normalized time-series point bound to the site and
// parameter it was retrieved for. This is the record the ingest pipeline
// publishes downstream.
type Observation struct {
	ID            string    `json:"id"`
	SiteID        string    `json:"site_id"`
	ParameterCode string    `json:"parameter_code"`
	Time          time.Time `json:"time"`
	Value         *float64  `json:"value,omitempty"`
	Qualifier     string    `json:"qualifier,omitempty"`
	ProcessedAt   time.Time `json:"processed_at"`
}

// OutputMessage is the serialized form destined for the sink topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// NewObservation binds a parsed point to its site and parameter and stamps
// the processing time from the package clock.
func NewObservation(siteID, parameterCode string, p Point) Observation {
	return Observation{
		ID:            observationID(siteID, parameterCode, p.Time),
		SiteID:        siteID,
		ParameterCode: parameterCode,
		Time:          p.Time,
		Value:         p.Value,
		Qualifier:     p.Qualifier,
		ProcessedAt:   clock.Now(),
	}
}

// SerializeObservation marshals an observation for the sink topic. The key
// is the deterministic ID so replays land on the same partition and
// downstream upserts stay idempotent.
func SerializeObservation(obs Observation) (OutputMessage, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return OutputMessage{}, fmt.Errorf("serialize observation: %w", err)
	}
	return OutputMessage{
		Key:   []byte(obs.ID),
		Value: data,
		Headers: map[string]string{
			"site_id":        obs.SiteID,
			"parameter_code": obs.ParameterCode,
			"processed_at":   obs.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// observationID produces a deterministic ID from the observation's key
// fields so reprocessing the same document yields the same ID.
func observationID(siteID, parameterCode string, t time.Time) string {
	input := fmt.Sprintf("%s|%s|%d", siteID, parameterCode, t.UnixNano())
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if siteID == "" {
		return short
	}
	return siteID + "-" + short
}
