package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/observability"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/pipeline"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/retrieval"
)

// --- mocks ---

type mockReader struct {
	mu     sync.Mutex
	points map[string][]domain.Point // keyed by site
	errs   map[string]error
	calls  []string
}

func (m *mockReader) ReadTimeSeries(_ context.Context, site, _ string, _ retrieval.Period) ([]domain.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, site)
	if err := m.errs[site]; err != nil {
		return nil, err
	}
	return m.points[site], nil
}

type mockLoader struct {
	mu        sync.Mutex
	published []domain.OutputMessage
	err       error
}

func (m *mockLoader) Publish(_ context.Context, msgs []domain.OutputMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, msgs...)
	return nil
}

func (m *mockLoader) all() []domain.OutputMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutputMessage(nil), m.published...)
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makePoint(t *testing.T, hour int, value float64, qualifier string) domain.Point {
	t.Helper()
	return domain.Point{
		Time:      time.Date(2024, time.April, 26, hour, 0, 0, 0, time.UTC),
		Value:     &value,
		Qualifier: qualifier,
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC))
	domain.SetClock(fakeClock)
	t.Cleanup(func() {
		domain.SetClock(nil)
	})

	rdr := &mockReader{points: map[string][]domain.Point{
		"01491000": {makePoint(t, 8, 128.4, "P")},
	}}
	ldr := &mockLoader{}

	p := pipeline.New(rdr, ldr, discardLogger(), newTestMetrics(),
		[]string{"01491000"}, []string{"00060"}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	published := ldr.all()
	require.Len(t, published, 1)

	var obs domain.Observation
	require.NoError(t, json.Unmarshal(published[0].Value, &obs))

	expected := domain.Observation{
		ID:            obs.ID, // derived, checked non-empty below
		SiteID:        "01491000",
		ParameterCode: "00060",
		Time:          time.Date(2024, time.April, 26, 8, 0, 0, 0, time.UTC),
		Value:         obs.Value,
		Qualifier:     "P",
		ProcessedAt:   fakeClock.Now(),
	}
	if diff := cmp.Diff(expected, obs); diff != "" {
		t.Fatalf("observation mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, obs.ID)
	require.NotNil(t, obs.Value)
	assert.Equal(t, 128.4, *obs.Value)

	assert.NoError(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	rdr := &mockReader{}
	ldr := &mockLoader{}

	p := pipeline.New(rdr, ldr, discardLogger(), newTestMetrics(),
		[]string{"01491000"}, []string{"00060"}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancel immediately

	err := p.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, ldr.all())
}

func TestPipeline_Run_SiteErrorSkipsSite(t *testing.T) {
	rdr := &mockReader{
		points: map[string][]domain.Point{
			"01645000": {makePoint(t, 9, 40.2, "A")},
		},
		errs: map[string]error{"01491000": errors.New("service unavailable")},
	}
	ldr := &mockLoader{}

	p := pipeline.New(rdr, ldr, discardLogger(), newTestMetrics(),
		[]string{"01491000", "01645000"}, []string{"00060"}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	// The failing site is skipped, the healthy one still publishes.
	published := ldr.all()
	require.Len(t, published, 1)
	assert.Equal(t, "01645000", published[0].Headers["site_id"])
}

func TestPipeline_Run_PublishFailureKeepsRunning(t *testing.T) {
	rdr := &mockReader{points: map[string][]domain.Point{
		"01491000": {makePoint(t, 8, 128.4, "P")},
	}}
	ldr := &mockLoader{err: errors.New("broker down")}

	p := pipeline.New(rdr, ldr, discardLogger(), newTestMetrics(),
		[]string{"01491000"}, []string{"00060"}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 700*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	// Publish never succeeded, so readiness never flips.
	assert.Error(t, p.CheckReadiness(context.Background()))

	// The loop retried after backoff rather than giving up on first failure.
	rdr.mu.Lock()
	calls := len(rdr.calls)
	rdr.mu.Unlock()
	assert.Greater(t, calls, 1)
}

func TestPipeline_Run_NoPointsStillReady(t *testing.T) {
	rdr := &mockReader{} // every read returns zero points
	ldr := &mockLoader{}

	p := pipeline.New(rdr, ldr, discardLogger(), newTestMetrics(),
		[]string{"01491000"}, []string{"00060"}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	err := p.Run(ctx)
	require.NoError(t, err)

	assert.Empty(t, ldr.all())
	assert.NoError(t, p.CheckReadiness(context.Background()),
		"an empty cycle is still a completed cycle")
}

func TestPipeline_CheckReadiness_BeforeFirstCycle(t *testing.T) {
	p := pipeline.New(&mockReader{}, &mockLoader{}, discardLogger(), newTestMetrics(),
		nil, nil, time.Hour)
	assert.Error(t, p.CheckReadiness(context.Background()))
}
