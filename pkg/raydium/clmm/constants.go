package clmm

import (
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// Program and companion program ids. RaydiumProgramID is the well-known
// mainnet CLMM program. SetProgramID can replace it, but nothing in this
// module calls SetProgramID, so the literal below is the id every builder,
// PDA helper and loader uses.
var (
	RaydiumProgramID  = solana.MustPublicKeyFromBase58("CAMMCzo5SL2iLMyM7cDCV5KSZJq7Jk6D3TVQhLsZxD2v")
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")
	MemoProgramID      = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	MetadataProgramID  = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// SetProgramID overrides the default CLMM program id.
func SetProgramID(id solana.PublicKey) { RaydiumProgramID = id }

const (
	// TickArraySize is the number of ticks stored per tick-array account.
	TickArraySize = 60
	// TickArrayBitmapSize is the number of tick-array slots tracked by the
	// pool's inline bitmap (before the bitmap extension account).
	TickArrayBitmapSize = 512
	// ExtensionTickArrayBitmapSize is the number of bitmaps per side
	// (positive/negative) in the bitmap extension account; each bitmap is
	// 8 uint64 words (512 bits).
	ExtensionTickArrayBitmapSize = 14

	// MinTick and MaxTick bound every valid tick index.
	MinTick = -443636
	MaxTick = 443636

	// FeeRateDenominator is the divisor for on-chain fee-rate basis points
	// (trade_fee_rate, protocol_fee_rate, fund_fee_rate are all numerator
	// over this denominator).
	FeeRateDenominator = 1_000_000

	// U64Resolution is the fixed-point shift width used throughout the
	// Q64.64 sqrt-price representation.
	U64Resolution = 64

	// AuthSeed is the CPMM vault authority PDA seed.
	AuthSeed = "vault_and_lp_mint_auth_seed"

	// LoopBoundIterations caps the swap-step loop: the on-chain program
	// rarely traverses more than a handful of tick arrays per call.
	LoopBoundIterations = 11
)

var (
	FeeRateDenominatorInt = cosmath.NewInt(FeeRateDenominator)

	// MaxSqrtPriceX64 / MinSqrtPriceX64 bound the Q64.64 sqrt-price domain.
	MaxSqrtPriceX64, _ = cosmath.NewIntFromString("79226673515401279992447579055")
	MinSqrtPriceX64, _ = cosmath.NewIntFromString("4295048016")
)

// SwapDiscriminator is the Anchor instruction discriminator for the CLMM
// swap-v2 instruction ("global:swap_v2").
var SwapDiscriminator = []byte{43, 4, 237, 11, 26, 201, 30, 98}
