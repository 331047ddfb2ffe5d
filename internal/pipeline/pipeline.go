// Package pipeline drives the ingest loop: on every tick it reads the
// instantaneous time series for each configured site and parameter,
// converts the points to observations, and publishes them to the sink.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/domain"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/observability"
	"github.com/ldecicco-USGS/USGSwsDataRetrieval/internal/retrieval"
)

// TimeSeriesReader reads the instantaneous points for one site and parameter.
type TimeSeriesReader interface {
	ReadTimeSeries(ctx context.Context, site, parameterCode string, p retrieval.Period) ([]domain.Point, error)
}

// Loader publishes serialized observations to the destination.
type Loader interface {
	Publish(ctx context.Context, msgs []domain.OutputMessage) error
}

// Pipeline orchestrates the poll-read-publish loop.
type Pipeline struct {
	reader         TimeSeriesReader
	loader         Loader
	logger         *slog.Logger
	metrics        *observability.Metrics
	sites          []string
	parameterCodes []string
	interval       time.Duration
	ready          atomic.Bool
}

// New creates a Pipeline over the given reader and loader.
func New(r TimeSeriesReader, l Loader, logger *slog.Logger, metrics *observability.Metrics,
	sites, parameterCodes []string, interval time.Duration) *Pipeline {
	return &Pipeline{
		reader:         r,
		loader:         l,
		logger:         logger,
		metrics:        metrics,
		sites:          sites,
		parameterCodes: parameterCodes,
		interval:       interval,
	}
}

// CheckReadiness returns nil once the pipeline has completed a cycle,
// or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed an ingest cycle yet")
	}
	return nil
}

// Run executes the ingest loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("ingest loop started",
		"sites", len(p.sites),
		"parameter_codes", len(p.parameterCodes),
		"interval", p.interval)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("ingest loop stopping", "reason", ctx.Err())
			return nil
		default:
		}

		retry, stop := p.runCycle(ctx, &backoff, maxBackoff)
		if stop {
			p.logger.Info("ingest loop stopping", "reason", ctx.Err())
			return nil
		}
		if retry {
			// The backoff sleep already happened; rerun the cycle without
			// waiting out the full poll interval.
			continue
		}

		if !sleepWithContext(ctx, p.interval) {
			p.logger.Info("ingest loop stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// runCycle reads every configured site and parameter once and publishes the
// resulting observations. retry asks for an immediate rerun after a failed
// publish; stop ends the loop.
func (p *Pipeline) runCycle(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) (retry, stop bool) {
	start := time.Now()

	msgs := make([]domain.OutputMessage, 0, len(p.sites)*len(p.parameterCodes))
	for _, site := range p.sites {
		for _, code := range p.parameterCodes {
			points, err := p.reader.ReadTimeSeries(ctx, site, code, retrieval.Period{})
			if err != nil {
				if ctx.Err() != nil {
					return false, true
				}
				p.logger.Error("read time series failed, skipping site",
					"error", err, "site", site, "parameter_code", code)
				continue
			}
			for _, pt := range points {
				obs := domain.NewObservation(site, code, pt)
				msg, err := domain.SerializeObservation(obs)
				if err != nil {
					p.logger.Warn("serialize observation failed, skipping point",
						"error", err, "site", site, "parameter_code", code)
					continue
				}
				msgs = append(msgs, msg)
			}
		}
	}

	if len(msgs) > 0 {
		if err := p.loader.Publish(ctx, msgs); err != nil {
			p.logger.Error("publish failed", "error", err, "messages", len(msgs))
			if !p.backoffOrStop(ctx, backoff, maxBackoff) {
				return false, true
			}
			return true, false
		}
		p.metrics.MessagesPublished.Add(float64(len(msgs)))
	}

	*backoff = 200 * time.Millisecond
	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return false, false
}

// backoffOrStop checks for context cancellation, sleeps with the current
// backoff, and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
