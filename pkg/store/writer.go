package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/multierr"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/event"
	"github.com/raydium-indexer/clmm-indexer/pkg/metrics"
)

// WriterConfig bounds the batch writer's buffering: it flushes whichever
// comes first, a full batch or the latency deadline.
type WriterConfig struct {
	MaxBatchSize int
	MaxLatency   time.Duration
	ChannelDepth int
}

// DefaultWriterConfig matches the defaults implied by spec.md's bounded
// MPSC channel and batch-write flush policy.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		MaxBatchSize: 200,
		MaxLatency:   2 * time.Second,
		ChannelDepth: 1024,
	}
}

// BatchWriter groups parsed events by target collection and upserts each
// group keyed by its natural unique key, grounded on the original event
// storage's write_batch/is_fatal_error split: a database/config error
// aborts the whole batch (surfaced to the supervisor), anything else is
// skipped so the batch keeps going, and the skipped writes' errors are
// returned together (multierr) once the batch is done.
type BatchWriter struct {
	store   *Store
	metrics *metrics.Collector
	cfg     WriterConfig

	incoming chan event.Event
	done     chan struct{}
	runErr   chan error
}

// NewBatchWriter wires a BatchWriter against the given store. metrics may
// be nil in tests.
func NewBatchWriter(s *Store, m *metrics.Collector, cfg WriterConfig) *BatchWriter {
	if cfg.ChannelDepth <= 0 {
		cfg.ChannelDepth = 1024
	}
	return &BatchWriter{
		store:    s,
		metrics:  m,
		cfg:      cfg,
		incoming: make(chan event.Event, cfg.ChannelDepth),
		done:     make(chan struct{}),
	}
}

func (w *BatchWriter) Name() string { return "batch-writer" }

// Start launches Run in the background, satisfying supervisor.Component.
func (w *BatchWriter) Start(ctx context.Context) error {
	w.runErr = make(chan error, 1)
	go func() { w.runErr <- w.Run(ctx) }()
	return nil
}

// Stop closes the writer and waits for the final flush, satisfying
// supervisor.Component.
func (w *BatchWriter) Stop(ctx context.Context) error {
	w.Close()
	select {
	case err := <-w.runErr:
		return err
	case <-ctx.Done():
		return apperr.Wrap(apperr.CodeShutdown, "timed out waiting for batch writer to stop", ctx.Err())
	}
}

// Healthy always reports healthy; a stuck writer shows up as growing
// channel backpressure on Submit rather than as a health-check failure.
func (w *BatchWriter) Healthy() error { return nil }

// Submit enqueues one parsed event for the next flush. It blocks (subject
// to ctx) when the bounded channel is full, providing backpressure back
// to the parser/subscription stage.
func (w *BatchWriter) Submit(ctx context.Context, e event.Event) error {
	select {
	case w.incoming <- e:
		return nil
	case <-ctx.Done():
		return apperr.Wrap(apperr.CodeShutdown, "submit cancelled", ctx.Err())
	}
}

// Run drains the incoming channel into batches, flushing on whichever
// comes first: max batch size, max latency, or shutdown (ctx cancelled),
// in which case the in-flight batch is flushed before returning.
func (w *BatchWriter) Run(ctx context.Context) error {
	defer close(w.done)

	ticker := time.NewTicker(w.cfg.MaxLatency)
	defer ticker.Stop()

	batch := make([]event.Event, 0, w.cfg.MaxBatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		err := w.writeBatch(ctx, batch)
		if w.metrics != nil {
			w.metrics.RecordBatchWrite(time.Since(start))
		}
		batch = batch[:0]
		return err
	}

	for {
		select {
		case e, ok := <-w.incoming:
			if !ok {
				return flush()
			}
			batch = append(batch, e)
			if len(batch) >= w.cfg.MaxBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case <-ticker.C:
			if err := flush(); err != nil {
				return err
			}
		case <-ctx.Done():
			// The final flush must not inherit the cancellation.
			ctx = context.WithoutCancel(ctx)
			_ = flush()
			return nil
		}
	}
}

// Close stops accepting new events and waits for Run to drain and flush.
func (w *BatchWriter) Close() {
	close(w.incoming)
	<-w.done
}

// writeBatch groups events by target collection, writes each group, and
// aggregates non-fatal errors with multierr so a caller can inspect every
// skipped write at once; a fatal error aborts immediately.
func (w *BatchWriter) writeBatch(ctx context.Context, batch []event.Event) error {
	var nonFatal error

	for _, e := range batch {
		err := w.writeOne(ctx, e)
		if err == nil {
			continue
		}
		if isFatal(err) {
			return apperr.Wrap(apperr.CodeDatabase, "fatal error aborts batch", err)
		}
		nonFatal = multierr.Append(nonFatal, err)
	}

	return nonFatal
}

func (w *BatchWriter) writeOne(ctx context.Context, e event.Event) error {
	switch ev := e.(type) {
	case event.PoolCreation:
		return w.upsertPool(ctx, ev)
	case event.TokenCreation:
		return w.upsertToken(ctx, ev)
	case event.Deposit:
		return w.upsertDeposit(ctx, ev)
	case event.NftClaim:
		return w.upsertNftClaim(ctx, ev)
	case event.RewardDistribution:
		return w.upsertRewardDistribution(ctx, ev)
	case event.LPChange:
		return w.upsertLPChange(ctx, ev)
	case event.Swap:
		return w.upsertSwap(ctx, ev)
	default:
		return apperr.New(apperr.CodeParse, "unknown event type for batch write")
	}
}

func upsertOne(ctx context.Context, coll *mongo.Collection, filter bson.M, doc any) error {
	_, err := coll.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "upsert document", err)
	}
	return nil
}

func (w *BatchWriter) upsertPool(ctx context.Context, ev event.PoolCreation) error {
	doc := PoolDocument{
		PoolAddress:    ev.PoolAddress.String(),
		TokenAMint:     ev.TokenAMint.String(),
		TokenBMint:     ev.TokenBMint.String(),
		TokenADecimals: ev.TokenADecimals,
		TokenBDecimals: ev.TokenBDecimals,
		FeeRate:        ev.FeeRate,
		InitialTick:    ev.InitialTick,
		Creator:        ev.Creator.String(),
		ClmmConfig:     ev.ClmmConfig.String(),
		OpenTime:       ev.OpenTime,
		UpdatedAt:      time.Now(),
	}
	return upsertOne(ctx, w.store.collection(CollPools), bson.M{"pool_address": doc.PoolAddress}, doc)
}

func (w *BatchWriter) upsertToken(ctx context.Context, ev event.TokenCreation) error {
	doc := TokenDocument{
		MintAddress:       ev.MintAddress.String(),
		Name:              ev.Name,
		Symbol:            ev.Symbol,
		URI:               ev.URI,
		Decimals:          ev.Decimals,
		Supply:            ev.Supply,
		Creator:           ev.Creator.String(),
		HasWhitelist:      ev.HasWhitelist,
		WhitelistDeadline: ev.WhitelistDeadline,
		CreatedAt:         time.Unix(ev.CreatedAt, 0).UTC(),
	}
	return upsertOne(ctx, w.store.collection(CollTokens), bson.M{"mint_address": doc.MintAddress}, doc)
}

func (w *BatchWriter) upsertDeposit(ctx context.Context, ev event.Deposit) error {
	doc := DepositDocument{
		Signature:     ev.Signature.String(),
		EventIndex:    ev.EventIndex,
		Slot:          ev.Slot,
		User:          ev.User.String(),
		TokenMint:     ev.TokenMint.String(),
		ProjectConfig: ev.ProjectConfig.String(),
		Amount:        ev.Amount,
		TotalRaised:   ev.TotalRaised,
		DepositType:   ev.DepositType,
		DepositedAt:   time.Unix(ev.DepositedAt, 0).UTC(),
	}
	if ev.RelatedPool != nil {
		doc.RelatedPool = ev.RelatedPool.String()
	}
	return upsertOne(ctx, w.store.collection(CollDeposits), bson.M{
		"signature": doc.Signature, "event_index": doc.EventIndex,
	}, doc)
}

func (w *BatchWriter) upsertNftClaim(ctx context.Context, ev event.NftClaim) error {
	doc := NftClaimDocument{
		NftMint:          ev.NftMint.String(),
		Claimer:          ev.Claimer.String(),
		Signature:        ev.Signature.String(),
		EventIndex:       ev.EventIndex,
		Slot:             ev.Slot,
		Tier:             ev.Tier,
		TierBonusRateBps: ev.TierBonusRateBps,
		ClaimAmount:      ev.ClaimAmount,
		TokenMint:        ev.TokenMint.String(),
		ClaimType:        ev.ClaimType,
		TotalClaimed:     ev.TotalClaimed,
		IsEmergencyClaim: ev.IsEmergencyClaim,
		ClaimedAt:        time.Unix(ev.ClaimedAt, 0).UTC(),
	}
	if ev.Referrer != nil {
		doc.Referrer = ev.Referrer.String()
	}
	if ev.PoolAddress != nil {
		doc.PoolAddress = ev.PoolAddress.String()
	}
	return upsertOne(ctx, w.store.collection(CollNftClaims), bson.M{
		"nft_mint": doc.NftMint, "claimer": doc.Claimer, "signature": doc.Signature,
	}, doc)
}

func (w *BatchWriter) upsertRewardDistribution(ctx context.Context, ev event.RewardDistribution) error {
	doc := RewardDistributionDocument{
		DistributionID:  ev.DistributionID,
		RewardPool:      ev.RewardPool.String(),
		Recipient:       ev.Recipient.String(),
		RewardTokenMint: ev.RewardTokenMint.String(),
		RewardAmount:    ev.RewardAmount,
		BaseAmount:      ev.BaseAmount,
		BonusAmount:     ev.BonusAmount,
		RewardType:      ev.RewardType,
		RewardSource:    ev.RewardSource,
		IsLocked:        ev.IsLocked,
		UnlockTimestamp: ev.UnlockTimestamp,
		DistributedAt:   time.Unix(ev.DistributedAt, 0).UTC(),
	}
	if ev.Referrer != nil {
		doc.Referrer = ev.Referrer.String()
	}
	return upsertOne(ctx, w.store.collection(CollRewardDistributions), bson.M{
		"distribution_id": doc.DistributionID,
	}, doc)
}

func (w *BatchWriter) upsertLPChange(ctx context.Context, ev event.LPChange) error {
	doc := LPChangeDocument{
		Signature:     ev.Signature.String(),
		EventIndex:    ev.EventIndex,
		Slot:          ev.Slot,
		Pool:          ev.Pool.String(),
		Owner:         ev.Owner.String(),
		IsDeposit:     ev.IsDeposit,
		LpDelta:       ev.LpDelta,
		Vault0Balance: ev.Vault0Balance,
		Vault1Balance: ev.Vault1Balance,
		Token0Amount:  ev.Token0Amount,
		Token1Amount:  ev.Token1Amount,
	}
	return upsertOne(ctx, w.store.collection(CollLPChanges), bson.M{
		"signature": doc.Signature, "event_index": doc.EventIndex,
	}, doc)
}

func (w *BatchWriter) upsertSwap(ctx context.Context, ev event.Swap) error {
	doc := SwapDocument{
		Signature:   ev.Signature.String(),
		EventIndex:  ev.EventIndex,
		Slot:        ev.Slot,
		Pool:        ev.Pool.String(),
		Trader:      ev.Trader.String(),
		ZeroForOne:  ev.ZeroForOne,
		AmountIn:    ev.AmountIn,
		AmountOut:   ev.AmountOut,
		ProtocolFee: ev.ProtocolFee,
	}
	return upsertOne(ctx, w.store.collection(CollSwaps), bson.M{
		"signature": doc.Signature, "event_index": doc.EventIndex,
	}, doc)
}

// isFatal reports whether err should abort the current batch rather than
// be skipped. Database and config errors are fatal; parse/validation
// errors on one event are not.
func isFatal(err error) bool {
	appErr, ok := apperr.As(err)
	if !ok {
		return false
	}
	switch appErr.Code {
	case apperr.CodeDatabase, apperr.CodeConfig:
		return true
	default:
		return false
	}
}
