package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffWaitCapsAtConfiguredCeiling(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Cap: 10 * time.Second, Multiplier: 2, FullJitter: false}
	assert.Equal(t, time.Second, b.wait(0))
	assert.Equal(t, 2*time.Second, b.wait(1))
	assert.Equal(t, 4*time.Second, b.wait(2))
	assert.Equal(t, 10*time.Second, b.wait(10), "must not exceed the configured cap")
}

func TestBackoffWaitWithJitterStaysWithinBounds(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Cap: 10 * time.Second, Multiplier: 2, FullJitter: true}
	for i := 0; i < 50; i++ {
		w := b.wait(3)
		assert.GreaterOrEqual(t, w, time.Duration(0))
		assert.LessOrEqual(t, w, 8*time.Second)
	}
}

func TestHealthyReportsNilWithNoSubscriptions(t *testing.T) {
	m := NewManager(Config{RPCURL: "http://localhost:8899", WSURL: "ws://localhost:8900"}, nil)
	assert.NoError(t, m.Healthy())
}
