// Package points is the UserPoints repository: per-wallet point buckets
// accrued from swap activity and referral-NFT claims, plus a dense-rank
// leaderboard query.
package points

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

const collectionName = "user_points"

// Point amounts, grounded on the original points repository: a wallet's
// first swap is worth more than each subsequent one, NFT-claimed accrues
// per claim on the referrer side, and the claimer side is a one-shot award.
const (
	firstTransactionPoints      = 200
	repeatTransactionPoints     = 10
	nftClaimedPointsPerClaim    = 300
	claimNftPointsOneShot       = 200
)

// UserPoints is one wallet's point record. Field names follow the
// original repository's camelCase bson keys so a future migration from
// the Rust service's collection can reuse the same documents unchanged.
type UserPoints struct {
	UserWallet             string    `bson:"userWallet"`
	PointsFromTransaction  int64     `bson:"pointsFromTransaction"`
	PointsFromNftClaimed   int64     `bson:"pointsFromNftClaimed"`
	PointFromClaimNft      int64     `bson:"pointFromClaimNft"`
	PointFromFollowXAccount int64    `bson:"pointFromFollowXAccount"`
	PointFromJoinTelegram  int64     `bson:"pointFromJoinTelegram"`
	RecordUpdateFrom       string    `bson:"recordUpdateFrom"`
	RecordUpdateTime       time.Time `bson:"recordUpdateTime"`
}

// TotalPoints sums every bucket; the leaderboard ranks on this value.
func (u UserPoints) TotalPoints() int64 {
	return u.PointsFromTransaction + u.PointsFromNftClaimed + u.PointFromClaimNft +
		u.PointFromFollowXAccount + u.PointFromJoinTelegram
}

// LeaderboardEntry pairs a UserPoints record with its computed rank.
type LeaderboardEntry struct {
	User        UserPoints
	Rank        int64
	TotalPoints int64
}

// Repository is the Mongo-backed UserPoints store.
type Repository struct {
	coll *mongo.Collection
}

// NewRepository wires a Repository against a *mongo.Database's
// user_points collection.
func NewRepository(db *mongo.Database) *Repository {
	return &Repository{coll: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique wallet index and the descending
// transaction-points index the leaderboard query benefits from.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userWallet", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("userWallet_unique"),
		},
		{
			Keys:    bson.D{{Key: "pointsFromTransaction", Value: -1}},
			Options: options.Index().SetName("pointsFromTransaction_desc"),
		},
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "create user_points indexes", err)
	}
	return nil
}

// UpsertFromSwapEvent records one swap for a wallet: a brand-new wallet's
// first swap is worth firstTransactionPoints; every subsequent swap adds
// repeatTransactionPoints. Two calls for the same never-before-seen wallet
// therefore total firstTransactionPoints + repeatTransactionPoints.
func (r *Repository) UpsertFromSwapEvent(ctx context.Context, userWallet string) error {
	filter := bson.M{"userWallet": userWallet}

	var existing UserPoints
	err := r.coll.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == mongo.ErrNoDocuments:
		doc := UserPoints{
			UserWallet:            userWallet,
			PointsFromTransaction: firstTransactionPoints,
			RecordUpdateFrom:      "swap_event",
			RecordUpdateTime:      time.Now(),
		}
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return apperr.Wrap(apperr.CodeDatabase, "insert first-swap points for "+userWallet, err)
		}
		return nil
	case err != nil:
		return apperr.Wrap(apperr.CodeDatabase, "find user points for "+userWallet, err)
	}

	_, err = r.coll.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"pointsFromTransaction": repeatTransactionPoints},
		"$set": bson.M{"recordUpdateFrom": "swap_event", "recordUpdateTime": time.Now()},
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "increment transaction points for "+userWallet, err)
	}
	return nil
}

// UpsertFromClaimNftEvent records a referral-NFT claim: the upper (the
// wallet whose NFT was claimed) accrues nftClaimedPointsPerClaim every
// time, cumulatively; the claimer receives claimNftPointsOneShot exactly
// once — any later claim by the same wallet is a no-op for that bucket.
func (r *Repository) UpsertFromClaimNftEvent(ctx context.Context, claimer, upper string) error {
	if err := r.updateUpperPoints(ctx, upper); err != nil {
		return err
	}
	return r.updateClaimerPoints(ctx, claimer)
}

func (r *Repository) updateUpperPoints(ctx context.Context, upper string) error {
	filter := bson.M{"userWallet": upper}

	var existing UserPoints
	err := r.coll.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == mongo.ErrNoDocuments:
		doc := UserPoints{
			UserWallet:           upper,
			PointsFromNftClaimed: nftClaimedPointsPerClaim,
			RecordUpdateFrom:     "claim_nft_event",
			RecordUpdateTime:     time.Now(),
		}
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return apperr.Wrap(apperr.CodeDatabase, "insert nft-claimed points for "+upper, err)
		}
		return nil
	case err != nil:
		return apperr.Wrap(apperr.CodeDatabase, "find user points for "+upper, err)
	}

	_, err = r.coll.UpdateOne(ctx, filter, bson.M{
		"$inc": bson.M{"pointsFromNftClaimed": nftClaimedPointsPerClaim},
		"$set": bson.M{"recordUpdateFrom": "claim_nft_event", "recordUpdateTime": time.Now()},
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "increment nft-claimed points for "+upper, err)
	}
	return nil
}

func (r *Repository) updateClaimerPoints(ctx context.Context, claimer string) error {
	filter := bson.M{"userWallet": claimer}

	var existing UserPoints
	err := r.coll.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == mongo.ErrNoDocuments:
		doc := UserPoints{
			UserWallet:        claimer,
			PointFromClaimNft: claimNftPointsOneShot,
			RecordUpdateFrom:  "claim_nft_event",
			RecordUpdateTime:  time.Now(),
		}
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return apperr.Wrap(apperr.CodeDatabase, "insert claim-nft points for "+claimer, err)
		}
		return nil
	case err != nil:
		return apperr.Wrap(apperr.CodeDatabase, "find user points for "+claimer, err)
	}

	if existing.PointFromClaimNft > 0 {
		// already claimed once; the claimer bucket is a one-shot award.
		return nil
	}

	_, err = r.coll.UpdateOne(ctx, filter, bson.M{
		"$set": bson.M{
			"pointFromClaimNft": claimNftPointsOneShot,
			"recordUpdateFrom":  "claim_nft_event",
			"recordUpdateTime":  time.Now(),
		},
	})
	if err != nil {
		return apperr.Wrap(apperr.CodeDatabase, "set claim-nft points for "+claimer, err)
	}
	return nil
}

// GetByWallet returns one wallet's points record.
func (r *Repository) GetByWallet(ctx context.Context, userWallet string) (UserPoints, error) {
	var doc UserPoints
	err := r.coll.FindOne(ctx, bson.M{"userWallet": userWallet}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return UserPoints{}, apperr.New(apperr.CodeNotFound, "no points record for "+userWallet)
	}
	if err != nil {
		return UserPoints{}, apperr.Wrap(apperr.CodeDatabase, "get points for "+userWallet, err)
	}
	return doc, nil
}

// Leaderboard returns one page of the ranking: total points descending,
// ties broken by wallet ascending, rank computed as dense rank (ties
// share a rank, the next distinct total takes the immediately-following
// integer) — the source mixed dense and simple rank across call sites;
// this repository always computes dense rank via $denseRank.
func (r *Repository) Leaderboard(ctx context.Context, page, limit int64) ([]LeaderboardEntry, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	skip := (page - 1) * limit

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$addFields", Value: bson.M{
			"totalPoints": bson.M{"$add": []string{
				"$pointsFromTransaction", "$pointsFromNftClaimed", "$pointFromClaimNft",
				"$pointFromFollowXAccount", "$pointFromJoinTelegram",
			}},
		}}},
		bson.D{{Key: "$setWindowFields", Value: bson.M{
			"sortBy": bson.D{{Key: "totalPoints", Value: -1}},
			"output": bson.M{"rank": bson.M{"$denseRank": bson.M{}}},
		}}},
		bson.D{{Key: "$sort", Value: bson.D{{Key: "totalPoints", Value: -1}, {Key: "userWallet", Value: 1}}}},
		bson.D{{Key: "$skip", Value: skip}},
		bson.D{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeDatabase, "query leaderboard", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		UserPoints  `bson:",inline"`
		Rank        int64 `bson:"rank"`
		TotalPoints int64 `bson:"totalPoints"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, apperr.Wrap(apperr.CodeDatabase, "decode leaderboard", err)
	}

	entries := make([]LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = LeaderboardEntry{User: row.UserPoints, Rank: row.Rank, TotalPoints: row.TotalPoints}
	}
	return entries, nil
}
