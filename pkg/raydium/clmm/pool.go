package clmm

import (
	"encoding/binary"
	"strconv"

	bin "github.com/gagliardetto/binary"
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// RewardInfo is one of a pool's three farming-reward slots.
type RewardInfo struct {
	RewardState           uint8
	OpenTime              uint64
	EndTime               uint64
	LastUpdateTime        uint64
	EmissionsPerSecondX64 uint128.Uint128
	RewardTotalEmissioned uint64
	RewardClaimed         uint64
	TokenMint             solana.PublicKey
	TokenVault            solana.PublicKey
	Authority             solana.PublicKey
	RewardGrowthGlobalX64 uint128.Uint128
}

// Pool is the decoded on-chain state of a CLMM pool account, plus the
// off-chain bookkeeping (fee rate, tick-array cache) a quote needs.
type Pool struct {
	Bump                      uint8
	AmmConfig                 solana.PublicKey
	Owner                     solana.PublicKey
	TokenMint0                solana.PublicKey
	TokenMint1                solana.PublicKey
	TokenVault0               solana.PublicKey
	TokenVault1               solana.PublicKey
	ObservationKey            solana.PublicKey
	MintDecimals0             uint8
	MintDecimals1             uint8
	TickSpacing               uint16
	Liquidity                 uint128.Uint128
	SqrtPriceX64              uint128.Uint128
	TickCurrent               int32
	ObservationIndex          uint16
	ObservationUpdateDuration uint16
	FeeGrowthGlobal0X64       uint128.Uint128
	FeeGrowthGlobal1X64       uint128.Uint128
	ProtocolFeesToken0        uint64
	ProtocolFeesToken1        uint64
	Status                    uint8
	RewardInfos               [3]RewardInfo
	TickArrayBitmap           [16]uint64
	TotalFeesToken0           uint64
	TotalFeesClaimedToken0    uint64
	TotalFeesToken1           uint64
	TotalFeesClaimedToken1    uint64
	FundFeesToken0            uint64
	FundFeesToken1            uint64
	OpenTime                  uint64
	RecentEpoch               uint64

	PoolId          solana.PublicKey
	FeeRate         uint32
	ExBitmapAddress solana.PublicKey
	BitmapExtension *BitmapExtension
	TickArrayCache  map[int64]*TickArray
}

// Span is the on-chain account size (with discriminator), used for
// getProgramAccounts DataSize filters.
func (p *Pool) Span() int { return 1544 }

// Decode parses the raw account bytes (including the 8-byte Anchor
// discriminator) into p.
func (p *Pool) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	off := 0
	u8 := func() uint8 { v := data[off]; off++; return v }
	u16 := func() uint16 { v := binary.LittleEndian.Uint16(data[off : off+2]); off += 2; return v }
	u32 := func() uint32 { v := binary.LittleEndian.Uint32(data[off : off+4]); off += 4; return v }
	u64 := func() uint64 { v := binary.LittleEndian.Uint64(data[off : off+8]); off += 8; return v }
	u128 := func() uint128.Uint128 { v := uint128.FromBytes(data[off : off+16]); off += 16; return v }
	pubkey := func() solana.PublicKey { v := solana.PublicKeyFromBytes(data[off : off+32]); off += 32; return v }

	p.Bump = u8()
	p.AmmConfig = pubkey()
	p.Owner = pubkey()
	p.TokenMint0 = pubkey()
	p.TokenMint1 = pubkey()
	p.TokenVault0 = pubkey()
	p.TokenVault1 = pubkey()
	p.ObservationKey = pubkey()
	p.MintDecimals0 = u8()
	p.MintDecimals1 = u8()
	p.TickSpacing = u16()
	p.Liquidity = u128()
	p.SqrtPriceX64 = u128()
	p.TickCurrent = int32(u32())
	p.ObservationIndex = u16()
	p.ObservationUpdateDuration = u16()
	p.FeeGrowthGlobal0X64 = u128()
	p.FeeGrowthGlobal1X64 = u128()
	p.ProtocolFeesToken0 = u64()
	p.ProtocolFeesToken1 = u64()
	_ = u128() // SwapInAmountToken0
	_ = u128() // SwapOutAmountToken1
	_ = u128() // SwapInAmountToken1
	_ = u128() // SwapOutAmountToken0
	p.Status = u8()
	off += 7 // padding

	for i := 0; i < 3; i++ {
		p.RewardInfos[i] = RewardInfo{
			RewardState:           u8(),
			OpenTime:              u64(),
			EndTime:               u64(),
			LastUpdateTime:        u64(),
			EmissionsPerSecondX64: u128(),
			RewardTotalEmissioned: u64(),
			RewardClaimed:         u64(),
			TokenMint:             pubkey(),
			TokenVault:            pubkey(),
			Authority:             pubkey(),
			RewardGrowthGlobalX64: u128(),
		}
	}

	for i := 0; i < 16; i++ {
		p.TickArrayBitmap[i] = u64()
	}

	p.TotalFeesToken0 = u64()
	p.TotalFeesClaimedToken0 = u64()
	p.TotalFeesToken1 = u64()
	p.TotalFeesClaimedToken1 = u64()
	p.FundFeesToken0 = u64()
	p.FundFeesToken1 = u64()
	p.OpenTime = u64()
	p.RecentEpoch = u64()
	return nil
}

// AmmConfig is the decoded fee-tier configuration account a pool points
// to via AmmConfig.
type AmmConfig struct {
	Bump            uint8
	Index           uint16
	Owner           solana.PublicKey
	ProtocolFeeRate uint32
	TradeFeeRate    uint32
	TickSpacing     uint16
	FundFeeRate     uint32
	FundOwner       solana.PublicKey
}

// Decode parses the raw account bytes (including discriminator).
func (c *AmmConfig) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	return bin.NewBinDecoder(data).Decode(c)
}

// CurrentSqrtPrice returns the pool's current Q64.64 sqrt-price as a
// cosmossdk.io/math.Int.
func (p *Pool) CurrentSqrtPrice() cosmath.Int {
	return cosmath.NewIntFromBigInt(p.SqrtPriceX64.Big())
}

// CurrentLiquidity returns the pool's current liquidity as a
// cosmossdk.io/math.Int.
func (p *Pool) CurrentLiquidity() cosmath.Int {
	return cosmath.NewIntFromBigInt(p.Liquidity.Big())
}

// BuildSwapInput assembles a SwapInput for ComputeSwap from the pool's
// cached state. tickArrays must already contain every array the walk is
// expected to need (the caller decides how many to prefetch).
func (p *Pool) BuildSwapInput(inputMint solana.PublicKey, amountSpecified cosmath.Int) (SwapInput, error) {
	if p.TickArrayCache == nil || len(p.TickArrayCache) == 0 {
		return SwapInput{}, apperr.New(apperr.CodeInsufficientLiquidity, "no tick arrays cached for pool").
			WithField("pool", p.PoolId.String())
	}
	zeroForOne := inputMint.Equals(p.TokenMint0)
	return SwapInput{
		AmountSpecified: amountSpecified,
		ZeroForOne:      zeroForOne,
		FeeRate:         int64(p.FeeRate),
		TickCurrent:     int64(p.TickCurrent),
		TickSpacing:     int64(p.TickSpacing),
		SqrtPriceX64:    p.CurrentSqrtPrice(),
		Liquidity:       p.CurrentLiquidity(),
		TickArrayBitmap: p.TickArrayBitmap,
		BitmapExtension: p.BitmapExtension,
		TickArrays:      p.TickArrayCache,
	}, nil
}

// TickArrayStartIndices returns the start indices of 2*span+1
// consecutive tick arrays centred on the array holding the pool's current
// tick (span arrays on each side), for use as an RPC getMultipleAccounts
// prefetch set.
func (p *Pool) TickArrayStartIndices(span int) []int64 {
	start := getArrayStartIndex(int64(p.TickCurrent), int64(p.TickSpacing))
	count := getTickCount(int64(p.TickSpacing))
	indices := make([]int64, 0, 2*span+1)
	for i := -span; i <= span; i++ {
		indices = append(indices, start+int64(i)*count)
	}
	return indices
}

// CacheKey is a stable map key for TickArrayCache, exported for callers
// that still want a string form for logging.
func CacheKey(startIndex int64) string { return strconv.FormatInt(startIndex, 10) }
