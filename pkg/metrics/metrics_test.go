package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReportComputesRates(t *testing.T) {
	c := New()
	c.RecordEventProcessed("CLMM111111111111111111111111111111111111")
	c.RecordEventProcessed("CLMM111111111111111111111111111111111111")
	c.RecordEventFailed()
	c.RecordBatchWrite(50 * time.Millisecond)
	c.RecordProcessingDuration(10 * time.Millisecond)
	c.RecordWebSocketConnection()

	report := c.Report()
	assert.Equal(t, uint64(1), report.Database.BatchWritesCount)
	assert.InDelta(t, 1.0/3.0, report.ErrorRate, 1e-9)
	assert.Equal(t, uint64(1), report.WebSocket.ConnectionsCount)
	assert.Greater(t, report.Database.AvgWriteDurationMs, 0.0)
}

func TestSampleWindowCapsAtMax(t *testing.T) {
	w := newSampleWindow()
	for i := 0; i < maxSamples+10; i++ {
		w.record(time.Duration(i) * time.Millisecond)
	}
	assert.Len(t, w.samples, maxSamples)
	// oldest samples (0..9 ms) should have been evicted
	assert.Equal(t, 10*time.Millisecond, w.samples[0])
}
