package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// CheckpointStore persists per-program resume state: the last processed
// slot/signature and a dedup-cache snapshot, so a restarted subscription
// can resume from last_slot and re-filter replayed events through the
// rehydrated cache rather than trust resume position alone.
type CheckpointStore struct {
	store *Store
}

// NewCheckpointStore wires a CheckpointStore against the given store.
func NewCheckpointStore(s *Store) *CheckpointStore {
	return &CheckpointStore{store: s}
}

// Save atomically upserts one program's checkpoint. Mongo's single-document
// write is itself atomic, standing in for the append-then-rename durability
// the on-disk snapshot format would otherwise need. last_slot must be
// non-decreasing between successive saves for a program; a save with an
// older slot than the stored one is silently dropped rather than
// regressing the resume point (the checkpoint is written by a single
// task, so this is a defensive floor, not a concurrency control).
func (c *CheckpointStore) Save(ctx context.Context, programID string, lastSlot uint64, lastSignature string, dedupSnapshot []string) error {
	doc := CheckpointDocument{
		ProgramID:     programID,
		LastSlot:      lastSlot,
		LastSignature: lastSignature,
		DedupSnapshot: dedupSnapshot,
		SavedAt:       time.Now(),
	}

	_, err := c.store.collection(CollCheckpoints).UpdateOne(
		ctx,
		bson.M{"program_id": programID, "last_slot": bson.M{"$lte": lastSlot}},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// an existing checkpoint has a newer last_slot than this save;
		// the filter excluded it so the upsert tried (and correctly
		// failed) to insert a second document for this program id.
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "save checkpoint for "+programID, err)
	}
	return nil
}

// Load reads the most recent checkpoint for a program id. A missing
// checkpoint (fresh program, first run) is reported via apperr.CodeNotFound
// rather than an error the caller must special-case with a typed "is it
// mongo.ErrNoDocuments" check at every call site.
func (c *CheckpointStore) Load(ctx context.Context, programID string) (CheckpointDocument, error) {
	var doc CheckpointDocument
	err := c.store.collection(CollCheckpoints).FindOne(ctx, bson.M{"program_id": programID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return CheckpointDocument{}, apperr.New(apperr.CodeNotFound, "no checkpoint for "+programID)
	}
	if err != nil {
		return CheckpointDocument{}, apperr.Wrap(apperr.CodeDatabase, "load checkpoint for "+programID, err)
	}
	return doc, nil
}
