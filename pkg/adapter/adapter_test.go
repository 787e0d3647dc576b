package adapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInferChainIDFromURL(t *testing.T) {
	assert.Equal(t, ChainIDMainnet, InferChainID("https://api.mainnet-beta.solana.com"))
	assert.Equal(t, ChainIDDevnet, InferChainID("https://api.devnet.solana.com"))
	assert.Equal(t, ChainIDTestnet, InferChainID("https://api.testnet.solana.com"))
}

func TestResolvePrefersAllowlistOverLookup(t *testing.T) {
	allow := map[string]TokenMeta{
		"MintA": {Symbol: "AAA", Name: "Token A"},
	}
	lookup := &fakeLookup{meta: TokenMeta{Symbol: "WRONG"}}
	a := New(ChainIDMainnet, allow, lookup, time.Minute)

	meta := a.resolve(context.Background(), "MintA")
	assert.Equal(t, "AAA", meta.Symbol)
	assert.Equal(t, 0, lookup.calls, "allowlist hit must not touch the external lookup")
}

func TestResolveFallsBackToLookupAndCaches(t *testing.T) {
	lookup := &fakeLookup{meta: TokenMeta{Symbol: "BBB"}}
	a := New(ChainIDMainnet, nil, lookup, time.Minute)

	meta := a.resolve(context.Background(), "MintB")
	assert.Equal(t, "BBB", meta.Symbol)
	assert.Equal(t, 1, lookup.calls)

	meta2 := a.resolve(context.Background(), "MintB")
	assert.Equal(t, "BBB", meta2.Symbol)
	assert.Equal(t, 1, lookup.calls, "second resolve should hit the cache, not the lookup again")
}

func TestResolveReturnsEmptyOnLookupError(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("boom")}
	a := New(ChainIDMainnet, nil, lookup, time.Minute)

	meta := a.resolve(context.Background(), "MintC")
	assert.Equal(t, TokenMeta{}, meta)
}

func TestWithHeuristicTagsTagsKnownStablecoin(t *testing.T) {
	meta := withHeuristicTags("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", TokenMeta{Symbol: "USDC"})
	assert.Contains(t, meta.Tags, "stablecoin")
	assert.Contains(t, meta.Tags, "verified")
}

func TestWithHeuristicTagsTagsWrappedSol(t *testing.T) {
	meta := withHeuristicTags(wrappedSolMint, TokenMeta{Symbol: "SOL"})
	assert.Contains(t, meta.Tags, "wrapped")
}

func TestWithHeuristicTagsLeavesUnknownMintUntagged(t *testing.T) {
	meta := withHeuristicTags("SomeUnknownMint", TokenMeta{Symbol: "XYZ"})
	assert.Empty(t, meta.Tags)
}

func TestAdaptBuildsPoolListEntry(t *testing.T) {
	allow := map[string]TokenMeta{
		"MintA": {Symbol: "AAA", Name: "Token A"},
		"MintB": {Symbol: "BBB", Name: "Token B"},
	}
	a := New(ChainIDMainnet, allow, nil, time.Minute)

	rec := PoolRecord{
		PoolAddress: "Pool1", Mint0: "MintA", Mint1: "MintB",
		Decimals0: 9, Decimals1: 6, FeeRate: 2500, TickSpacing: 60,
	}
	entry := a.Adapt(context.Background(), rec)

	assert.Equal(t, "Pool1", entry.PoolAddress)
	assert.Equal(t, "AAA", entry.Token0.Symbol)
	assert.Equal(t, ChainIDMainnet, entry.Token0.ChainID)
	assert.Equal(t, uint32(2500), entry.Metrics.FeeRate)
	assert.Equal(t, 0.10, entry.Metrics.DefaultRange)
	assert.Len(t, entry.Metrics.RangePoints, 4)
}

func TestDefaultRangeWidensWithTickSpacing(t *testing.T) {
	assert.Less(t, defaultRangeForTickSpacing(1), defaultRangeForTickSpacing(10))
	assert.Less(t, defaultRangeForTickSpacing(10), defaultRangeForTickSpacing(60))
	assert.Less(t, defaultRangeForTickSpacing(60), defaultRangeForTickSpacing(200))
}

type fakeLookup struct {
	meta  TokenMeta
	err   error
	calls int
}

func (f *fakeLookup) Lookup(ctx context.Context, mint string) (TokenMeta, error) {
	f.calls++
	return f.meta, f.err
}
