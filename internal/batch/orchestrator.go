// SPDX-License-Identifier: MIT

package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
	"github.com/1001011000101101/lers-plugins-sub000/internal/proxyclient"
)

// Orchestrator runs batches. One instance may run many batches; it holds no
// per-batch state.
type Orchestrator struct {
	// GenerateTimeout is the hard per-report ceiling, matching the gateway's.
	GenerateTimeout time.Duration
	// PerServerRate throttles generation calls toward one server so a bulk
	// run does not starve interactive users of the vendor report engine.
	PerServerRate rate.Limit
}

// New builds an orchestrator with the given per-report ceiling.
func New(generateTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		GenerateTimeout: generateTimeout,
		PerServerRate:   2, // generation calls per second per server
	}
}

// Run executes one batch across the given sources. Each source runs in its
// own worker; a failing server never aborts its siblings. The returned
// summary is always non-nil; the error is non-nil only when the batch could
// not start at all.
func (o *Orchestrator) Run(ctx context.Context, req Request, sources []Source) (*Summary, error) {
	summary := &Summary{
		BatchID:   uuid.NewString(),
		State:     StateResolving,
		StartedAt: time.Now(),
	}
	logger := log.WithComponentFromContext(ctx, "batch").With().
		Str("batch_id", summary.BatchID).Logger()

	if err := o.validate(req, sources); err != nil {
		summary.State = StateFailedToStart
		summary.FinishedAt = time.Now()
		return summary, err
	}

	staging, err := os.MkdirTemp("", "lersgen-*")
	if err != nil {
		summary.State = StateFailedToStart
		summary.FinishedAt = time.Now()
		return summary, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	logger.Info().
		Str("event", "batch.start").
		Str("template", req.TemplateTitle).
		Int("servers", len(sources)).
		Msg("starting batch")

	summary.State = StateFanningOut
	results := make(chan []Result, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		serverDir := filepath.Join(staging, fmt.Sprintf("s%d", i))
		g.Go(func() error {
			// Workers never return errors: every failure becomes a Result so
			// one server cannot cancel the others' in-flight work.
			results <- o.runServer(ctx, logger, src, req, serverDir)
			return nil
		})
	}
	_ = g.Wait()
	close(results)

	summary.State = StateAggregating
	for rs := range results {
		summary.Results = append(summary.Results, rs...)
	}
	summary.tally()

	if ctx.Err() != nil {
		summary.State = StateCancelled
		summary.FinishedAt = time.Now()
		logger.Warn().
			Str("event", "batch.cancelled").
			Int("completed", summary.Succeeded+summary.Failed).
			Msg("batch cancelled")
		return summary, nil
	}

	summary.State = StatePackaging
	if err := o.deliver(req, summary); err != nil {
		logger.Error().Err(err).Str("event", "batch.delivery_failed").Msg("delivery failed")
		summary.Results = append(summary.Results, Result{
			Server: "delivery",
			Error:  err.Error(),
		})
		summary.tally()
	}

	summary.State = StateDone
	summary.FinishedAt = time.Now()
	logger.Info().
		Str("event", "batch.done").
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("skipped", summary.Skipped).
		Msg("batch completed")
	return summary, nil
}

func (o *Orchestrator) validate(req Request, sources []Source) error {
	if len(sources) == 0 {
		return fmt.Errorf("no sources configured")
	}
	if req.TemplateTitle == "" && req.ReportID <= 0 {
		return fmt.Errorf("a template title or report id is required")
	}
	if req.StartDate.After(req.EndDate) {
		return fmt.Errorf("start date must not be after end date")
	}
	if req.EndDate.Sub(req.StartDate) > 366*24*time.Hour {
		return fmt.Errorf("date range exceeds 366 days")
	}
	if req.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	switch req.Delivery {
	case DeliverySeparate, DeliveryArchive:
	default:
		return fmt.Errorf("unknown delivery mode %q", req.Delivery)
	}
	return nil
}

// runServer handles one source end to end: open, resolve the template,
// resolve the units, generate. All failures are folded into results so the
// orchestrator can merge them without special cases.
func (o *Orchestrator) runServer(ctx context.Context, logger zerolog.Logger, src Source, req Request, serverDir string) []Result {
	server := src.Name()
	slog := logger.With().Str("server", server).Logger()

	if err := src.Open(ctx); err != nil {
		slog.Error().Err(err).Str("event", "batch.server_unavailable").Msg("server unavailable")
		return []Result{{Server: server, Error: fmt.Sprintf("server unavailable: %v", err)}}
	}
	defer src.Close(context.WithoutCancel(ctx))

	reportID, found, err := src.ResolveReport(ctx, req)
	if err != nil {
		return []Result{{Server: server, Error: fmt.Sprintf("template lookup failed: %v", err)}}
	}
	if !found {
		// A missing title is an explicit failure, never a silent drop.
		slog.Warn().Str("event", "batch.report_not_found").Str("template", req.TemplateTitle).Msg("no matching template title")
		return []Result{{Server: server, Error: errReportNotFound(server)}}
	}

	units, err := src.Units(ctx, req)
	if err != nil {
		return []Result{{Server: server, Error: fmt.Sprintf("target resolution failed: %v", err)}}
	}
	if len(units) == 0 {
		// Zero units is a skip, not a failure: the batch continues with the
		// remaining sources and the operator still sees this server.
		slog.Info().Str("event", "batch.server_skipped").Msg("no targets in scope")
		return []Result{{Server: server, Skipped: true, Error: "no targets in scope"}}
	}

	if err := os.MkdirAll(serverDir, 0o750); err != nil {
		return []Result{{Server: server, Error: fmt.Sprintf("staging dir: %v", err)}}
	}

	limiter := rate.NewLimiter(o.PerServerRate, 1)
	results := make([]Result, 0, len(units))
	for _, unit := range units {
		// Cooperative cancellation: stop scheduling new units, let started
		// ones finish on their own.
		if ctx.Err() != nil {
			break
		}
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		results = append(results, o.generateUnit(ctx, slog, src, reportID, unit, req, serverDir))
	}
	return results
}

func (o *Orchestrator) generateUnit(ctx context.Context, logger zerolog.Logger, src Source, reportID int64, unit Unit, req Request, serverDir string) Result {
	result := Result{Server: src.Name(), Unit: unit}

	genCtx, cancel := context.WithTimeout(ctx, o.GenerateTimeout)
	defer cancel()

	report, err := src.Generate(genCtx, reportID, unit, req)
	if err != nil {
		if isTimeout(err) {
			result.TimedOut = true
		}
		result.Error = err.Error()
		logger.Warn().
			Err(err).
			Str("event", "batch.unit_failed").
			Int64("unit_id", unit.ID).
			Bool("timeout", result.TimedOut).
			Msg("report generation failed")
		return result
	}

	path := filepath.Join(serverDir, fmt.Sprintf("%s_%d_%s", src.Name(), unit.ID, report.FileName))
	if err := os.WriteFile(path, report.Data, 0o640); err != nil {
		result.Error = fmt.Sprintf("write report: %v", err)
		return result
	}
	result.Success = true
	result.OutputPath = path
	result.Bytes = int64(len(report.Data))
	return result
}

func isTimeout(err error) bool {
	return errors.Is(err, lers.ErrTimeout) ||
		errors.Is(err, proxyclient.ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}
