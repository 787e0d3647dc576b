package main

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/dedup"
	"github.com/raydium-indexer/clmm-indexer/pkg/event"
	"github.com/raydium-indexer/clmm-indexer/pkg/metrics"
	"github.com/raydium-indexer/clmm-indexer/pkg/points"
	"github.com/raydium-indexer/clmm-indexer/pkg/sol"
	"github.com/raydium-indexer/clmm-indexer/pkg/store"
	"github.com/raydium-indexer/clmm-indexer/pkg/ws"
)

// recentSigCapacity bounds how many signatures are carried in a
// checkpoint's dedup snapshot; a restart only needs enough history to
// seed the cache against in-flight duplicates from the last save window,
// not the cache's full cardinality.
const recentSigCapacity = 5000

const checkpointInterval = 10 * time.Second

// parserPipeline consumes raw log notifications off the subscription
// manager, parses them into typed events, drops anything the dedup cache
// has already seen, and forwards the rest to the batch writer. It also
// periodically checkpoints the furthest slot/signature processed.
// Satisfies supervisor.Component.
type parserPipeline struct {
	log         *zap.Logger
	metrics     *metrics.Collector
	cache       *dedup.Cache
	writer      *store.BatchWriter
	checkpoints *store.CheckpointStore
	wsManager   *ws.Manager
	solClient   *sol.Client
	points      *points.Repository

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	lastSlot      map[string]uint64
	lastSignature map[string]string
	recentSigs    map[string][]string
}

func newParserPipeline(log *zap.Logger, m *metrics.Collector, cache *dedup.Cache, writer *store.BatchWriter, checkpoints *store.CheckpointStore, wsManager *ws.Manager, solClient *sol.Client, pointsRepo *points.Repository) *parserPipeline {
	return &parserPipeline{
		log:           log,
		metrics:       m,
		cache:         cache,
		writer:        writer,
		checkpoints:   checkpoints,
		wsManager:     wsManager,
		solClient:     solClient,
		points:        pointsRepo,
		lastSlot:      make(map[string]uint64),
		lastSignature: make(map[string]string),
		recentSigs:    make(map[string][]string),
	}
}

func (p *parserPipeline) Name() string { return "event-parser" }

func (p *parserPipeline) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(2)
	go p.consume(runCtx)
	go p.checkpointLoop(runCtx)
	return nil
}

func (p *parserPipeline) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return apperr.New(apperr.CodeShutdown, "timed out waiting for parser pipeline to drain")
	}
}

func (p *parserPipeline) Healthy() error { return nil }

func (p *parserPipeline) consume(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case ev, ok := <-p.wsManager.Events():
			if !ok {
				return
			}
			p.handle(ctx, ev)
		case <-ctx.Done():
			return
		}
	}
}

func (p *parserPipeline) handle(ctx context.Context, ev ws.LogEvent) {
	if ev.Err != nil {
		return // the transaction itself failed on-chain; nothing to index
	}

	logs := ev.Logs
	slot := ev.Slot
	var (
		events []event.Event
		stats  event.Stats
		err    error
	)
	if event.LooksTruncated(logs) {
		logs, slot, err = event.FetchFullLogs(ctx, p.solClient, ev.Signature)
		if err != nil {
			p.log.Warn("refetch truncated logs failed", zap.String("sig", ev.Signature.String()), zap.Error(err))
			if p.metrics != nil {
				p.metrics.RecordEventFailed()
			}
			return
		}
		events, stats, err = event.ParseSignature(ctx, p.solClient, ev.Signature, logs, slot)
	} else {
		events, stats, err = event.ParseLogs(logs, ev.Signature, slot)
	}
	if err != nil {
		p.log.Warn("parse logs failed", zap.String("sig", ev.Signature.String()), zap.Error(err))
		if p.metrics != nil {
			p.metrics.RecordEventFailed()
		}
		return
	}
	if stats.DecodeErrors > 0 && p.metrics != nil {
		p.metrics.RecordEventFailed()
	}

	programID := ev.ProgramID.String()
	for i, e := range events {
		key := dedup.Key{ProgramID: programID, Signature: ev.Signature.String(), EventIndex: i}
		if p.cache.SeenAndInsert(key) {
			continue
		}
		if err := p.writer.Submit(ctx, e); err != nil {
			p.log.Warn("submit event failed", zap.String("sig", ev.Signature.String()), zap.Error(err))
			continue
		}
		if p.metrics != nil {
			p.metrics.RecordEventProcessed(programID)
		}
		p.accruePoints(ctx, e)
	}
	p.recordProgress(programID, slot, ev.Signature.String())
}

// accruePoints updates the points repository for the event kinds that
// feed it: swaps credit the trader, NFT claims credit both the claimer
// and their referrer (a claim without a referrer accrues nothing).
// Failures are logged, not fatal — the event has
// already landed in the batch writer and points accrual is best-effort.
func (p *parserPipeline) accruePoints(ctx context.Context, e event.Event) {
	if p.points == nil {
		return
	}
	switch ev := e.(type) {
	case event.Swap:
		if err := p.points.UpsertFromSwapEvent(ctx, ev.Trader.String()); err != nil {
			p.log.Warn("points accrual failed", zap.String("trader", ev.Trader.String()), zap.Error(err))
		}
	case event.NftClaim:
		if ev.Referrer == nil {
			return
		}
		if err := p.points.UpsertFromClaimNftEvent(ctx, ev.Claimer.String(), ev.Referrer.String()); err != nil {
			p.log.Warn("points accrual failed", zap.String("claimer", ev.Claimer.String()), zap.Error(err))
		}
	}
}

func (p *parserPipeline) recordProgress(programID string, slot uint64, signature string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slot >= p.lastSlot[programID] {
		p.lastSlot[programID] = slot
		p.lastSignature[programID] = signature
	}
	sigs := append(p.recentSigs[programID], signature)
	if len(sigs) > recentSigCapacity {
		sigs = sigs[len(sigs)-recentSigCapacity:]
	}
	p.recentSigs[programID] = sigs
}

func (p *parserPipeline) checkpointLoop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(checkpointInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.saveCheckpoints(ctx)
		case <-ctx.Done():
			p.saveCheckpoints(context.Background())
			return
		}
	}
}

func (p *parserPipeline) saveCheckpoints(ctx context.Context) {
	p.mu.Lock()
	snapshot := make(map[string]struct {
		slot uint64
		sig  string
		sigs []string
	}, len(p.lastSlot))
	for programID, slot := range p.lastSlot {
		snapshot[programID] = struct {
			slot uint64
			sig  string
			sigs []string
		}{slot: slot, sig: p.lastSignature[programID], sigs: append([]string{}, p.recentSigs[programID]...)}
	}
	p.mu.Unlock()

	for programID, s := range snapshot {
		if err := p.checkpoints.Save(ctx, programID, s.slot, s.sig, s.sigs); err != nil {
			p.log.Warn("checkpoint save failed", zap.String("program", programID), zap.Error(err))
		}
	}
}
