// Package poolsync runs two scheduled, idempotent, rate-limited tasks:
// reconciling CLMM config accounts into a normalised registry, and
// refreshing stored pool documents with current on-chain state. CPMM
// config accounts are not synced.
package poolsync

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/raydium/clmm"
	"github.com/raydium-indexer/clmm-indexer/pkg/sol"
)

// configCollection is the normalised config registry this package
// maintains. Pool state itself (sqrt-price, tick, liquidity,
// open state) is written back onto the store package's pools collection.
const configCollection = "amm_configs"

// Service owns the two scheduled reconciliation tasks. Satisfies
// supervisor.Component.
type Service struct {
	log    *zap.Logger
	client *sol.Client
	db     *mongo.Database
	limiter *rate.Limiter

	configInterval time.Duration
	poolInterval   time.Duration

	cancel context.CancelFunc
	done   chan struct{}

	watchedPools []solana.PublicKey
	programID    solana.PublicKey
}

// Config parameterizes a Service.
type Config struct {
	ConfigSyncInterval time.Duration
	PoolSyncInterval   time.Duration
	RequestsPerSecond  int
	ProgramID          solana.PublicKey
	WatchedPools       []solana.PublicKey
}

func (c *Config) applyDefaults() {
	if c.ConfigSyncInterval == 0 {
		c.ConfigSyncInterval = 10 * time.Minute
	}
	if c.PoolSyncInterval == 0 {
		c.PoolSyncInterval = 30 * time.Second
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 5
	}
}

// NewService wires a Service against a Solana RPC client and the shared
// Mongo database.
func NewService(log *zap.Logger, client *sol.Client, db *mongo.Database, cfg Config) *Service {
	cfg.applyDefaults()
	return &Service{
		log:            log,
		client:         client,
		db:             db,
		limiter:        rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond),
		configInterval: cfg.ConfigSyncInterval,
		poolInterval:   cfg.PoolSyncInterval,
		programID:      cfg.ProgramID,
		watchedPools:   cfg.WatchedPools,
		done:           make(chan struct{}),
	}
}

func (s *Service) Name() string { return "pool-sync" }

// Start launches the two scheduled tasks as independent goroutines, each
// on its own ticker.
func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.runConfigSync(runCtx)
	go s.runPoolSync(runCtx)
	return nil
}

func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Service) Healthy() error { return nil }

func (s *Service) runConfigSync(ctx context.Context) {
	ticker := time.NewTicker(s.configInterval)
	defer ticker.Stop()
	for {
		if err := s.syncConfigs(ctx); err != nil {
			s.log.Warn("config sync failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) runPoolSync(ctx context.Context) {
	ticker := time.NewTicker(s.poolInterval)
	defer ticker.Stop()
	for {
		if err := s.syncPools(ctx); err != nil {
			s.log.Warn("pool sync failed", zap.Error(err))
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// ConfigDocument is the normalised CLMM config-account registry entry.
type ConfigDocument struct {
	ConfigAddress string    `bson:"config_address"`
	Index         uint16    `bson:"index"`
	TradeFeeRate  uint32    `bson:"trade_fee_rate"`
	ProtocolFeeRate uint32  `bson:"protocol_fee_rate"`
	FundFeeRate   uint32    `bson:"fund_fee_rate"`
	TickSpacing   uint16    `bson:"tick_spacing"`
	SyncedAt      time.Time `bson:"synced_at"`
}

// syncConfigs enumerates every AmmConfig account owned by the CLMM
// program and upserts a normalised record per config, rate-limited at
// one getProgramAccounts round-trip per call.
func (s *Service) syncConfigs(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return apperr.Wrap(apperr.CodeRPC, "rate limit wait", err)
	}

	accounts, err := s.client.GetProgramAccountsWithOpts(ctx, s.programID, nil)
	if err != nil {
		return apperr.Wrap(apperr.CodeRPC, "get program accounts for config sync", err)
	}

	coll := s.db.Collection(configCollection)
	for _, acc := range accounts {
		cfg := &clmm.AmmConfig{}
		if err := cfg.Decode(acc.Account.Data.GetBinary()); err != nil {
			continue // not an AmmConfig account (discriminator mismatch); skip
		}
		doc := ConfigDocument{
			ConfigAddress:   acc.Pubkey.String(),
			TradeFeeRate:    cfg.TradeFeeRate,
			ProtocolFeeRate: cfg.ProtocolFeeRate,
			FundFeeRate:     cfg.FundFeeRate,
			TickSpacing:     cfg.TickSpacing,
			SyncedAt:        time.Now(),
		}
		_, err := coll.UpdateOne(ctx,
			bson.M{"config_address": doc.ConfigAddress},
			bson.M{"$set": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return apperr.Wrap(apperr.CodeDatabase, "upsert amm config", err)
		}
	}
	return nil
}

// PoolStateDocument is the subset of pool fields that drift after pool
// creation and need periodic reconciliation against on-chain pool_state.
type PoolStateDocument struct {
	PoolAddress  string `bson:"pool_address"`
	SqrtPriceX64 string `bson:"sqrt_price_x64"`
	Tick         int32  `bson:"tick"`
	Liquidity    string `bson:"liquidity"`
	Open         bool   `bson:"open"`
}

// syncPools reconciles every watched pool's current sqrt-price, tick,
// liquidity, and open state against the stored pool document.
func (s *Service) syncPools(ctx context.Context) error {
	coll := s.db.Collection("pools")
	for _, poolID := range s.watchedPools {
		if err := s.limiter.Wait(ctx); err != nil {
			return apperr.Wrap(apperr.CodeRPC, "rate limit wait", err)
		}

		bundle, err := s.client.LoadCLMMPool(ctx, poolID, nil)
		if err != nil {
			s.log.Warn("pool sync: load pool failed", zap.String("pool", poolID.String()), zap.Error(err))
			continue
		}

		doc := PoolStateDocument{
			PoolAddress:  poolID.String(),
			SqrtPriceX64: bundle.Pool.SqrtPriceX64.String(),
			Tick:         bundle.Pool.TickCurrent,
			Liquidity:    bundle.Pool.Liquidity.String(),
			Open:         !bundle.Pool.Liquidity.IsZero(),
		}
		_, err = coll.UpdateOne(ctx,
			bson.M{"pool_address": doc.PoolAddress},
			bson.M{"$set": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return apperr.Wrap(apperr.CodeDatabase, "upsert pool state", err)
		}
	}
	return nil
}
