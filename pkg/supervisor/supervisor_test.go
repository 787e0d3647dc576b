package supervisor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeComponent struct {
	name        string
	startErr    error
	stopErr     error
	healthErr   error
	started     bool
	stopped     bool
	stopOrder   *[]string
}

func (f *fakeComponent) Name() string { return f.name }
func (f *fakeComponent) Start(ctx context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}
func (f *fakeComponent) Stop(ctx context.Context) error {
	f.stopped = true
	if f.stopOrder != nil {
		*f.stopOrder = append(*f.stopOrder, f.name)
	}
	return f.stopErr
}
func (f *fakeComponent) Healthy() error { return f.healthErr }

func TestStartStopsAlreadyStartedOnFailure(t *testing.T) {
	a := &fakeComponent{name: "a"}
	b := &fakeComponent{name: "b", startErr: errors.New("boom")}
	c := &fakeComponent{name: "c"}

	s := New(zap.NewNop(), a, b, c)
	err := s.Start(context.Background())

	require.Error(t, err)
	assert.True(t, a.started)
	assert.True(t, a.stopped, "already-started component must be stopped on later failure")
	assert.False(t, c.started, "component after the failing one must never start")
}

func TestStopRunsInReverseOrderAndAggregatesErrors(t *testing.T) {
	var order []string
	a := &fakeComponent{name: "a", stopOrder: &order}
	b := &fakeComponent{name: "b", stopErr: errors.New("b failed"), stopOrder: &order}

	s := New(zap.NewNop(), a, b)
	require.NoError(t, s.Start(context.Background()))

	err := s.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "b failed")
	assert.Equal(t, []string{"b", "a"}, order, "components must stop in reverse start order")
}

func TestHealthCheckAggregatesFailures(t *testing.T) {
	a := &fakeComponent{name: "a"}
	b := &fakeComponent{name: "b", healthErr: errors.New("disconnected")}

	s := New(zap.NewNop(), a, b)
	report := s.HealthCheck()

	assert.False(t, report.Healthy)
	assert.Len(t, report.Failures, 1)
	assert.EqualError(t, report.Failures["b"], "disconnected")
}
