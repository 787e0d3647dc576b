// Package adapter translates stored pool documents into the external
// list shape a collaborating HTTP layer serves: split token info and
// pool metrics, with chain id inferred from the RPC environment and
// token tags enriched from a local allowlist, falling back to external
// metadata lookups.
package adapter

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Chain ids follow the convention Solana wallet adapters use for cluster
// identification.
const (
	ChainIDMainnet = 101
	ChainIDTestnet = 102
	ChainIDDevnet  = 103
)

// InferChainID reads the cluster out of an RPC endpoint URL. Anything not
// recognisably testnet/devnet is treated as mainnet, matching how most
// self-hosted RPC proxies are named only for non-mainnet clusters.
func InferChainID(rpcURL string) int {
	lower := strings.ToLower(rpcURL)
	switch {
	case strings.Contains(lower, "devnet"):
		return ChainIDDevnet
	case strings.Contains(lower, "testnet"):
		return ChainIDTestnet
	default:
		return ChainIDMainnet
	}
}

// TokenInfo is the external list shape's per-token half.
type TokenInfo struct {
	ChainID    int
	MintAddress string
	Decimals   uint8
	ProgramID  string
	Logo       string
	Symbol     string
	Name       string
	Tags       []string
	Extensions map[string]string
}

// PoolMetrics is the external list shape's per-pool half.
type PoolMetrics struct {
	Price           float64
	FeeRate         uint32
	TickSpacing     uint16
	ProtocolFeeRate uint32
	FundFeeRate     uint32
	DefaultRange    float64
	RangePoints     []float64
}

// PoolListEntry is one row of the adapted external pool list.
type PoolListEntry struct {
	PoolAddress string
	Token0      TokenInfo
	Token1      TokenInfo
	Metrics     PoolMetrics
}

// PoolRecord is the adapter's input shape: whatever fields the stored
// pool document and the pool-sync state carry, named independently of
// either package's own types so this package has no import-time
// dependency on store/poolsync.
type PoolRecord struct {
	PoolAddress     string
	Mint0           string
	Mint1           string
	Decimals0       uint8
	Decimals1       uint8
	Program0        string
	Program1        string
	FeeRate         uint32
	ProtocolFeeRate uint32
	FundFeeRate     uint32
	TickSpacing     uint16
	Price           float64
}

// TokenMeta is what an allowlist entry or an external metadata lookup
// supplies for one mint.
type TokenMeta struct {
	Symbol string
	Name   string
	Logo   string
	Tags   []string
}

// MetadataLookup is the external fallback consulted when a mint isn't in
// the local allowlist.
type MetadataLookup interface {
	Lookup(ctx context.Context, mint string) (TokenMeta, error)
}

// cacheEntry pairs a cached TokenMeta with when it was fetched, so the
// cache can expire stale external lookups. Allowlist hits are never put
// in the cache; an entry with a zero ttl would never expire.
type cacheEntry struct {
	meta   TokenMeta
	cachedAt time.Time
	ttl    time.Duration
}

func (e cacheEntry) expired() bool {
	return e.ttl > 0 && time.Since(e.cachedAt) > e.ttl
}

// Adapter builds PoolListEntry values from PoolRecords, resolving each
// mint's metadata from a local allowlist first and an external lookup
// second, caching successful external lookups.
type Adapter struct {
	chainID  int
	allow    map[string]TokenMeta
	lookup   MetadataLookup
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// New builds an Adapter. allowlist is checked before lookup is ever
// consulted; lookup may be nil if no external fallback is configured.
func New(chainID int, allowlist map[string]TokenMeta, lookup MetadataLookup, cacheTTL time.Duration) *Adapter {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Adapter{
		chainID:  chainID,
		allow:    allowlist,
		lookup:   lookup,
		cacheTTL: cacheTTL,
		cache:    make(map[string]cacheEntry),
	}
}

// resolve returns a mint's TokenMeta, preferring the allowlist, then the
// cache, then the external lookup (whose result is cached for cacheTTL).
func (a *Adapter) resolve(ctx context.Context, mint string) TokenMeta {
	if meta, ok := a.allow[mint]; ok {
		return withHeuristicTags(mint, meta)
	}

	a.mu.Lock()
	if entry, ok := a.cache[mint]; ok && !entry.expired() {
		a.mu.Unlock()
		return entry.meta
	}
	a.mu.Unlock()

	if a.lookup == nil {
		return TokenMeta{}
	}
	meta, err := a.lookup.Lookup(ctx, mint)
	if err != nil {
		return TokenMeta{}
	}
	meta = withHeuristicTags(mint, meta)

	a.mu.Lock()
	a.cache[mint] = cacheEntry{meta: meta, cachedAt: time.Now(), ttl: a.cacheTTL}
	a.mu.Unlock()
	return meta
}

// knownStablecoinMints and wrappedSolMint ground the "stablecoin" and
// "wrapped" tag heuristics of the data-shape adapter: these are the
// handful of addresses worth hardcoding rather than inferring.
var knownStablecoinMints = map[string]bool{
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": true, // USDC
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": true, // USDT
}

const wrappedSolMint = "So11111111111111111111111111111111111111112"

// withHeuristicTags appends stablecoin/wrapped tags computed from the mint
// address itself, on top of whatever tags the allowlist or external lookup
// already supplied, then appends "verified" whenever the result holds any
// tag. No precision-bucket tag is computed.
func withHeuristicTags(mint string, meta TokenMeta) TokenMeta {
	tags := append([]string{}, meta.Tags...)
	if knownStablecoinMints[mint] {
		tags = append(tags, "stablecoin")
	}
	if mint == wrappedSolMint {
		tags = append(tags, "wrapped")
	}
	if len(tags) > 0 {
		tags = append(tags, "verified")
	}
	meta.Tags = tags
	return meta
}

// Adapt converts one PoolRecord into a PoolListEntry.
func (a *Adapter) Adapt(ctx context.Context, rec PoolRecord) PoolListEntry {
	meta0 := a.resolve(ctx, rec.Mint0)
	meta1 := a.resolve(ctx, rec.Mint1)

	return PoolListEntry{
		PoolAddress: rec.PoolAddress,
		Token0: TokenInfo{
			ChainID: a.chainID, MintAddress: rec.Mint0, Decimals: rec.Decimals0,
			ProgramID: rec.Program0, Logo: meta0.Logo, Symbol: meta0.Symbol, Name: meta0.Name,
			Tags: meta0.Tags, Extensions: map[string]string{},
		},
		Token1: TokenInfo{
			ChainID: a.chainID, MintAddress: rec.Mint1, Decimals: rec.Decimals1,
			ProgramID: rec.Program1, Logo: meta1.Logo, Symbol: meta1.Symbol, Name: meta1.Name,
			Tags: meta1.Tags, Extensions: map[string]string{},
		},
		Metrics: PoolMetrics{
			Price:           rec.Price,
			FeeRate:         rec.FeeRate,
			TickSpacing:     rec.TickSpacing,
			ProtocolFeeRate: rec.ProtocolFeeRate,
			FundFeeRate:     rec.FundFeeRate,
			DefaultRange:    defaultRangeForTickSpacing(rec.TickSpacing),
			RangePoints:     rangePointsForTickSpacing(rec.TickSpacing),
		},
	}
}

// AdaptList converts every record, in order.
func (a *Adapter) AdaptList(ctx context.Context, recs []PoolRecord) []PoolListEntry {
	out := make([]PoolListEntry, len(recs))
	for i, rec := range recs {
		out[i] = a.Adapt(ctx, rec)
	}
	return out
}

// defaultRangeForTickSpacing suggests a symmetric percentage range around
// the current price, widening for coarser tick spacings the same way a
// coarser spacing widens each tick array's reachable range.
func defaultRangeForTickSpacing(tickSpacing uint16) float64 {
	switch {
	case tickSpacing <= 1:
		return 0.01
	case tickSpacing <= 10:
		return 0.05
	case tickSpacing <= 60:
		return 0.10
	default:
		return 0.20
	}
}

// rangePointsForTickSpacing returns a handful of preset range percentages
// a UI can offer, anchored by the default.
func rangePointsForTickSpacing(tickSpacing uint16) []float64 {
	d := defaultRangeForTickSpacing(tickSpacing)
	return []float64{d / 2, d, d * 2, d * 4}
}
