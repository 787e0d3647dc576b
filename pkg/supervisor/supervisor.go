// Package supervisor owns startup/shutdown ordering for the indexer's
// long-running components and aggregates their health into one report.
package supervisor

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// Component is one long-running piece of the indexer: metrics, the
// checkpoint store, the dedup cache, the batch writer, the event parsers,
// the subscription manager. Start order is the order components are
// registered in; Stop runs in reverse.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Healthy reports a non-nil error describing why the component is
	// currently unhealthy, or nil.
	Healthy() error
}

// Supervisor starts metrics, checkpoint-store, dedup-cache, batch-writer,
// parsers, and the subscription manager in that order, stops them in
// reverse, and aggregates health-check failures with multierr so a
// single unhealthy component surfaces its specific reason rather than a
// generic failure.
type Supervisor struct {
	log        *zap.Logger
	components []Component
	started    []Component
}

// New builds a Supervisor over the given components, in start order.
func New(log *zap.Logger, components ...Component) *Supervisor {
	return &Supervisor{log: log, components: components}
}

// Start brings up every component in registration order. If one fails,
// every component already started is stopped (reverse order) before the
// error is returned, so a failed Start never leaves a partial set of
// components running.
func (s *Supervisor) Start(ctx context.Context) error {
	for _, c := range s.components {
		s.log.Info("starting component", zap.String("component", c.Name()))
		if err := c.Start(ctx); err != nil {
			s.log.Error("component failed to start", zap.String("component", c.Name()), zap.Error(err))
			s.stopStarted(ctx)
			return apperr.Wrap(apperr.CodeConfig, "start "+c.Name(), err)
		}
		s.started = append(s.started, c)
	}
	return nil
}

// Stop shuts down every started component in reverse start order,
// aggregating every component's stop error rather than stopping at the
// first failure, so one stuck component doesn't prevent the rest from
// shutting down.
func (s *Supervisor) Stop(ctx context.Context) error {
	err := s.stopStarted(ctx)
	s.started = nil
	return err
}

func (s *Supervisor) stopStarted(ctx context.Context) error {
	var combined error
	for i := len(s.started) - 1; i >= 0; i-- {
		c := s.started[i]
		s.log.Info("stopping component", zap.String("component", c.Name()))
		if err := c.Stop(ctx); err != nil {
			s.log.Error("component failed to stop", zap.String("component", c.Name()), zap.Error(err))
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	return combined
}

// HealthReport is the aggregated liveness snapshot: healthy overall only
// when every component reports healthy.
type HealthReport struct {
	Healthy  bool
	Failures map[string]error
}

// HealthCheck polls every registered component's Healthy() and surfaces
// the reason for each unhealthy one by name.
func (s *Supervisor) HealthCheck() HealthReport {
	report := HealthReport{Healthy: true, Failures: map[string]error{}}
	var combined error
	for _, c := range s.components {
		if err := c.Healthy(); err != nil {
			report.Healthy = false
			report.Failures[c.Name()] = err
			combined = multierr.Append(combined, fmt.Errorf("%s: %w", c.Name(), err))
		}
	}
	if combined != nil {
		s.log.Warn("health check found unhealthy components", zap.Error(combined))
	}
	return report
}
