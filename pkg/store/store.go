// Package store is the document-database layer: a Mongo-backed connection,
// one collection per entity with a unique index on its natural key, a
// batch writer that groups parsed events by target collection, and a
// checkpoint store for crash-safe resume.
package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// Collection names, one per entity. Each gets a unique index on its
// natural key at startup.
const (
	CollPools              = "pools"
	CollTokens             = "tokens"
	CollDeposits           = "deposits"
	CollNftClaims          = "nft_claims"
	CollRewardDistributions = "reward_distributions"
	CollLPChanges          = "lp_changes"
	CollSwaps              = "swaps"
	CollUserPoints         = "user_points"
	CollCheckpoints        = "checkpoints"
)

// Store wraps a Mongo client/database pair. The repositories in this
// package (writer, checkpoint) take a *Store rather than holding their
// own connection; the points repository takes Database().
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials Mongo and verifies the connection with a ping, following
// the standard mongo-driver connect-then-ping idiom.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDatabase, "connect to mongo", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, apperr.Wrap(apperr.CodeDatabase, "ping mongo", err)
	}

	return &Store{client: client, db: client.Database(dbName)}, nil
}

// Disconnect closes the underlying Mongo client.
func (s *Store) Disconnect(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "disconnect mongo", err)
	}
	return nil
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.db.Collection(name)
}

// Database exposes the underlying *mongo.Database for packages (points,
// poolsync) that maintain their own collections outside this package's
// fixed entity set.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// indexSpec pairs a collection with the unique-key fields its natural key
// is built from, per §6: "Each entity has one collection and a unique
// index per the natural key in §3."
type indexSpec struct {
	collection string
	keys       bson.D
	name       string
}

// EnsureIndexes creates every collection's unique index, idempotently —
// Mongo's createIndexes is a no-op when an identical index already exists.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := []indexSpec{
		{CollPools, bson.D{{Key: "pool_address", Value: 1}}, "uniq_pool_address"},
		{CollTokens, bson.D{{Key: "mint_address", Value: 1}}, "uniq_mint_address"},
		{CollDeposits, bson.D{{Key: "signature", Value: 1}, {Key: "event_index", Value: 1}}, "uniq_deposit_sig_idx"},
		{CollNftClaims, bson.D{{Key: "nft_mint", Value: 1}, {Key: "claimer", Value: 1}, {Key: "signature", Value: 1}}, "uniq_nft_claim"},
		{CollRewardDistributions, bson.D{{Key: "distribution_id", Value: 1}}, "uniq_distribution_id"},
		{CollLPChanges, bson.D{{Key: "signature", Value: 1}, {Key: "event_index", Value: 1}}, "uniq_lpchange_sig_idx"},
		{CollSwaps, bson.D{{Key: "signature", Value: 1}, {Key: "event_index", Value: 1}}, "uniq_swap_sig_idx"},
		{CollUserPoints, bson.D{{Key: "user_wallet", Value: 1}}, "uniq_user_wallet"},
		{CollCheckpoints, bson.D{{Key: "program_id", Value: 1}}, "uniq_program_id"},
	}

	for _, spec := range specs {
		model := mongo.IndexModel{
			Keys:    spec.keys,
			Options: options.Index().SetUnique(true).SetName(spec.name),
		}
		if _, err := s.collection(spec.collection).Indexes().CreateOne(ctx, model); err != nil {
			return apperr.Wrap(apperr.CodeDatabase, "create index "+spec.name, err)
		}
	}
	return nil
}
