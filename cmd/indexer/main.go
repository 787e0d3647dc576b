// Command indexer runs the event ingestion daemon: it subscribes to
// program logs over WebSocket, parses and deduplicates events, batches
// them into Mongo, and checkpoints progress — all under one supervisor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/internal/config"
	"github.com/raydium-indexer/clmm-indexer/internal/obs"
	"github.com/raydium-indexer/clmm-indexer/pkg/dedup"
	"github.com/raydium-indexer/clmm-indexer/pkg/metrics"
	"github.com/raydium-indexer/clmm-indexer/pkg/points"
	"github.com/raydium-indexer/clmm-indexer/pkg/poolsync"
	"github.com/raydium-indexer/clmm-indexer/pkg/sol"
	"github.com/raydium-indexer/clmm-indexer/pkg/store"
	"github.com/raydium-indexer/clmm-indexer/pkg/supervisor"
	"github.com/raydium-indexer/clmm-indexer/pkg/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	log, err := obs.NewLogger(cfg.LogLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("indexer exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	programID, err := solana.PublicKeyFromBase58(cfg.RaydiumProgram)
	if err != nil {
		return apperr.Wrap(apperr.CodeConfig, "parse RAYDIUM_PROGRAM_ID", err)
	}

	mc := metrics.New()
	go func() {
		if err := startMetricsServer(ctx, cfg.AppHost, cfg.AppPort, mc); err != nil {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	db, err := store.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "connect to mongo", err)
	}
	defer db.Disconnect(context.Background())

	if err := db.EnsureIndexes(ctx); err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "ensure indexes", err)
	}

	checkpoints := store.NewCheckpointStore(db)
	cache := dedup.New(100_000)
	if err := hydrateDedup(ctx, checkpoints, cache, programID.String()); err != nil {
		log.Warn("dedup hydration skipped", zap.Error(err))
	}

	writer := store.NewBatchWriter(db, mc, store.DefaultWriterConfig())

	pointsRepo := points.NewRepository(db.Database())
	if err := pointsRepo.EnsureIndexes(ctx); err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "ensure points indexes", err)
	}

	solClient, err := sol.NewClient(ctx, cfg.RPCURL, cfg.JitoEndpoint, cfg.RPCRequestsPerSecond)
	if err != nil {
		return apperr.Wrap(apperr.CodeRPC, "build solana client", err)
	}

	wsManager := ws.NewManager(ws.Config{
		WSURL:      cfg.WSURL,
		RPCURL:     cfg.RPCURL,
		ProgramIDs: []solana.PublicKey{programID},
	}, mc)

	poolSync := poolsync.NewService(log, solClient, db.Database(), poolsync.Config{
		ProgramID:         programID,
		RequestsPerSecond: cfg.RPCRequestsPerSecond,
	})

	pipeline := newParserPipeline(log, mc, cache, writer, checkpoints, wsManager, solClient, pointsRepo)

	sup := supervisor.New(log,
		metricsComponent{},
		checkpointComponent{},
		dedupComponent{cache: cache},
		writer,
		pipeline,
		poolSync,
		wsManager,
	)

	if err := sup.Start(ctx); err != nil {
		return apperr.Wrap(apperr.CodeConfig, "start supervisor", err)
	}

	<-ctx.Done()
	log.Info("shutdown signal received, stopping components")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return sup.Stop(stopCtx)
}

// hydrateDedup seeds the dedup cache from the last saved checkpoint so a
// restart doesn't reprocess events the previous run already wrote.
func hydrateDedup(ctx context.Context, checkpoints *store.CheckpointStore, cache *dedup.Cache, programID string) error {
	doc, err := checkpoints.Load(ctx, programID)
	if err != nil {
		if appErr, ok := apperr.As(err); ok && appErr.Code == apperr.CodeNotFound {
			return nil
		}
		return err
	}
	keys := make([]dedup.Key, 0, len(doc.DedupSnapshot))
	for _, raw := range doc.DedupSnapshot {
		keys = append(keys, dedup.Key{ProgramID: programID, Signature: raw})
	}
	cache.Hydrate(keys)
	return nil
}

// metricsComponent and checkpointComponent and dedupComponent wrap
// already-constructed values into the supervisor.Component shape; they
// have nothing to start or stop but participate in ordered startup and
// health reporting.
type metricsComponent struct{}

func (metricsComponent) Name() string                   { return "metrics" }
func (metricsComponent) Start(ctx context.Context) error { return nil }
func (metricsComponent) Stop(ctx context.Context) error  { return nil }
func (metricsComponent) Healthy() error                 { return nil }

type checkpointComponent struct{}

func (checkpointComponent) Name() string                   { return "checkpoint-store" }
func (checkpointComponent) Start(ctx context.Context) error { return nil }
func (checkpointComponent) Stop(ctx context.Context) error  { return nil }
func (checkpointComponent) Healthy() error                 { return nil }

type dedupComponent struct{ cache *dedup.Cache }

func (dedupComponent) Name() string                   { return "dedup-cache" }
func (dedupComponent) Start(ctx context.Context) error { return nil }
func (dedupComponent) Stop(ctx context.Context) error  { return nil }
func (dedupComponent) Healthy() error                 { return nil }
