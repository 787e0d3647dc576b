// Package ws is the WebSocket subscription manager: one logical
// logsSubscribe per watched program id, each running its own
// single-threaded reconnect loop so event order is preserved within a
// subscription even though order across subscriptions is not defined.
package ws

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/metrics"
)

// BackoffConfig is an exponential backoff with an optional full-jitter
// randomization, reset after any successful message batch.
type BackoffConfig struct {
	Initial    time.Duration
	Cap        time.Duration
	Multiplier float64
	FullJitter bool
}

// DefaultBackoffConfig matches the reconnect policy described for the
// subscription manager: start small, cap at 30s, double each attempt,
// jitter to avoid a reconnect thundering herd across subscriptions.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{Initial: 500 * time.Millisecond, Cap: 30 * time.Second, Multiplier: 2, FullJitter: true}
}

func (b BackoffConfig) wait(attempt int) time.Duration {
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt))
	if d > float64(b.Cap) {
		d = float64(b.Cap)
	}
	w := time.Duration(d)
	if b.FullJitter && w > 0 {
		w = time.Duration(rand.Int63n(int64(w) + 1))
	}
	return w
}

// LogEvent is one logsSubscribe notification, tagged with the program id
// that produced it so a downstream parser can look up the right decoder.
type LogEvent struct {
	ProgramID solana.PublicKey
	Signature solana.Signature
	Slot      uint64
	Logs      []string
	Err       error
}

// Config parameterizes one Manager.
type Config struct {
	WSURL       string
	RPCURL      string
	ProgramIDs  []solana.PublicKey
	Backoff     BackoffConfig
	IdleTimeout time.Duration // ping the RPC endpoint after this much WS silence
	PongTimeout time.Duration // disconnect if the ping doesn't answer within this
	Commitment  rpc.CommitmentType
}

func (c *Config) applyDefaults() {
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = DefaultBackoffConfig()
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 30 * time.Second
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = 10 * time.Second
	}
	if c.Commitment == "" {
		c.Commitment = rpc.CommitmentConfirmed
	}
}

// Manager runs one reconnecting logsSubscribe loop per configured program
// id and fans every decoded notification into a single shared channel.
// Satisfies supervisor.Component.
type Manager struct {
	cfg       Config
	metrics   *metrics.Collector
	rpcClient *rpc.Client

	out    chan LogEvent
	cancel context.CancelFunc
	wg     sync.WaitGroup

	lastMessageAt sync.Map // programID string -> time.Time
	attempts      sync.Map // programID string -> *atomic.Int64
}

// NewManager builds a Manager. metrics may be nil in tests.
func NewManager(cfg Config, m *metrics.Collector) *Manager {
	cfg.applyDefaults()
	return &Manager{
		cfg:       cfg,
		metrics:   m,
		rpcClient: rpc.New(cfg.RPCURL),
		out:       make(chan LogEvent, 1024),
	}
}

// Events is the channel every subscription's notifications are fanned
// into; a consumer reads this regardless of how many program ids are
// being watched.
func (m *Manager) Events() <-chan LogEvent { return m.out }

func (m *Manager) Name() string { return "ws-subscription-manager" }

// Start launches one goroutine per watched program id; each owns its own
// reconnect loop and never touches another subscription's state.
func (m *Manager) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	for _, programID := range m.cfg.ProgramIDs {
		m.wg.Add(1)
		go m.runSubscription(runCtx, programID)
	}
	return nil
}

// Stop cancels every subscription loop and waits for in-flight reads to
// unwind before returning, so a graceful shutdown never drops a message
// mid-flush.
func (m *Manager) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperr.New(apperr.CodeShutdown, "timed out waiting for ws subscriptions to close")
	}
}

// Healthy reports an error naming the first program id whose subscription
// has gone quiet for longer than three idle-timeout windows — long
// enough that the ping/reconnect machinery should already have recovered
// it if the connection were merely idle rather than actually stuck.
func (m *Manager) Healthy() error {
	stale := 3 * m.cfg.IdleTimeout
	var err error
	m.lastMessageAt.Range(func(key, value any) bool {
		last := value.(time.Time)
		if time.Since(last) > stale {
			err = apperr.New(apperr.CodeRPC, fmt.Sprintf("subscription %s silent for %s", key, time.Since(last)))
			return false
		}
		return true
	})
	return err
}

func (m *Manager) touch(programID solana.PublicKey) {
	m.lastMessageAt.Store(programID.String(), time.Now())
}

func (m *Manager) attemptCounter(programID solana.PublicKey) *atomic.Int64 {
	v, _ := m.attempts.LoadOrStore(programID.String(), new(atomic.Int64))
	return v.(*atomic.Int64)
}

// runSubscription is the per-program-id cooperative loop: connect, stream
// until an error or shutdown, sleep with backoff, reconnect. Every
// suspension point here — the WS read, the backoff sleep — is one this
// program can be cancelled at cleanly via ctx.
func (m *Manager) runSubscription(ctx context.Context, programID solana.PublicKey) {
	defer m.wg.Done()
	counter := m.attemptCounter(programID)

	for ctx.Err() == nil {
		err := m.connectAndStream(ctx, programID, counter)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			continue
		}

		attempt := counter.Add(1) - 1
		if m.metrics != nil {
			m.metrics.RecordWebSocketReconnection()
		}
		wait := m.cfg.Backoff.wait(int(attempt))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// connectAndStream opens one WebSocket connection, subscribes to a
// program id's mentioned-account logs, and reads notifications until the
// connection errors, a heartbeat ping fails, or ctx is cancelled.
func (m *Manager) connectAndStream(ctx context.Context, programID solana.PublicKey, counter *atomic.Int64) error {
	client, err := ws.Connect(ctx, m.cfg.WSURL)
	if err != nil {
		return apperr.Wrap(apperr.CodeRPC, "ws connect", err)
	}
	defer client.Close()

	sub, err := client.LogsSubscribeMentions(programID, m.cfg.Commitment)
	if err != nil {
		return apperr.Wrap(apperr.CodeRPC, "logs subscribe", err)
	}
	defer sub.Unsubscribe()

	if m.metrics != nil {
		m.metrics.RecordWebSocketConnection()
	}
	m.touch(programID)

	for {
		got, err := m.recvWithHeartbeat(ctx, sub)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		m.touch(programID)
		counter.Store(0) // reset backoff after any successful message

		ev := LogEvent{
			ProgramID: programID,
			Signature: got.Value.Signature,
			Slot:      got.Context.Slot,
			Logs:      got.Value.Logs,
		}
		if got.Value.Err != nil {
			ev.Err = fmt.Errorf("%v", got.Value.Err)
		}

		select {
		case m.out <- ev:
		case <-ctx.Done():
			return nil
		}
	}
}

// recvWithHeartbeat waits for the next log notification. If the socket
// stays silent for IdleTimeout, it pings liveness via a plain RPC call
// (this client library doesn't expose the underlying WS ping frame) and,
// if that doesn't answer within PongTimeout, treats the connection as
// dead so the caller reconnects.
func (m *Manager) recvWithHeartbeat(ctx context.Context, sub *ws.LogSubscription) (*ws.LogResult, error) {
	for {
		recvCtx, cancel := context.WithTimeout(ctx, m.cfg.IdleTimeout)
		got, err := sub.Recv(recvCtx)
		cancel()
		if err == nil {
			return got, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		pingCtx, pingCancel := context.WithTimeout(ctx, m.cfg.PongTimeout)
		_, pingErr := m.rpcClient.GetSlot(pingCtx, m.cfg.Commitment)
		pingCancel()
		if pingErr != nil {
			return nil, apperr.Wrap(apperr.CodeRPC, "heartbeat ping timed out, reconnecting", pingErr)
		}
		// connection is alive, just quiet; keep waiting for a log.
	}
}
