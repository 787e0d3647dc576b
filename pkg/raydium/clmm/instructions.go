package clmm

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/anchor"
)

// SwapV2Instruction builds a swap_v2 instruction. BuildSwapV2 appends the
// bitmap extension account itself, followed by the crossed tick-array
// accounts passed in RemainingArrays, in traversal order (the PDAs of
// ComputeSwap's TraversedArrays).
type SwapV2Instruction struct {
	bin.BaseVariant
	Amount               uint64
	OtherAmountThreshold uint64
	SqrtPriceLimitX64    uint128.Uint128
	IsBaseInput          bool
	solana.AccountMetaSlice
}

func (i *SwapV2Instruction) ProgramID() solana.PublicKey { return RaydiumProgramID }
func (i *SwapV2Instruction) Accounts() []*solana.AccountMeta { return i.AccountMetaSlice }

func (i *SwapV2Instruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(SwapDiscriminator)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint64(i.Amount, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.OtherAmountThreshold, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.SqrtPriceLimitX64.Lo, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteUint64(i.SqrtPriceLimitX64.Hi, binary.LittleEndian); err != nil {
		return nil, err
	}
	if err := enc.WriteBool(i.IsBaseInput); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SwapV2Params carries every account and scalar a swap-v2 instruction
// needs, already resolved by the caller (account loader + ComputeSwap).
type SwapV2Params struct {
	Payer               solana.PublicKey
	Pool                *Pool
	InputMint           solana.PublicKey
	InputTokenAccount   solana.PublicKey
	OutputTokenAccount  solana.PublicKey
	AmountIn            cosmath.Int
	MinimumAmountOut    cosmath.Int
	SqrtPriceLimitX64   cosmath.Int // zero means no limit override
	RemainingArrays     []solana.PublicKey
}

// BuildSwapV2 constructs the full swap_v2 instruction for p.
func BuildSwapV2(params SwapV2Params) (solana.Instruction, error) {
	p := params.Pool
	zeroForOne := params.InputMint.Equals(p.TokenMint0)

	var inputVault, outputVault solana.PublicKey
	if zeroForOne {
		inputVault, outputVault = p.TokenVault0, p.TokenVault1
	} else {
		inputVault, outputVault = p.TokenVault1, p.TokenVault0
	}
	inputMint, outputMint := p.TokenMint1, p.TokenMint0
	if zeroForOne {
		inputMint, outputMint = p.TokenMint0, p.TokenMint1
	}

	if len(params.RemainingArrays) == 0 {
		return nil, apperr.New(apperr.CodeInvalidRequest, "at least one remaining tick array account is required")
	}

	accounts := make(solana.AccountMetaSlice, 0, 14+len(params.RemainingArrays))
	accounts = append(accounts,
		solana.NewAccountMeta(params.Payer, false, true),
		solana.NewAccountMeta(p.AmmConfig, false, false),
		solana.NewAccountMeta(p.PoolId, true, false),
		solana.NewAccountMeta(params.InputTokenAccount, true, false),
		solana.NewAccountMeta(params.OutputTokenAccount, true, false),
		solana.NewAccountMeta(inputVault, true, false),
		solana.NewAccountMeta(outputVault, true, false),
		solana.NewAccountMeta(p.ObservationKey, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(Token2022ProgramID, false, false),
		solana.NewAccountMeta(MemoProgramID, false, false),
		solana.NewAccountMeta(inputMint, false, false),
		solana.NewAccountMeta(outputMint, false, false),
		solana.NewAccountMeta(p.ExBitmapAddress, true, false),
	)
	for _, acc := range params.RemainingArrays {
		accounts = append(accounts, solana.NewAccountMeta(acc, true, false))
	}

	sqrtLimit := uint128.Zero
	if !params.SqrtPriceLimitX64.IsZero() {
		sqrtLimit = uint128.FromBig(params.SqrtPriceLimitX64.BigInt())
	}

	inst := &SwapV2Instruction{
		Amount:               params.AmountIn.Uint64(),
		OtherAmountThreshold: params.MinimumAmountOut.Uint64(),
		SqrtPriceLimitX64:    sqrtLimit,
		IsBaseInput:          true,
		AccountMetaSlice:     accounts,
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst, nil
}

// genericAnchorInstruction is a thin Borsh-encoded instruction shared by
// the lifecycle instructions below, all of which differ only in their
// discriminator, account list, and argument layout.
type genericAnchorInstruction struct {
	discriminator []byte
	args          [][]byte
	programID     solana.PublicKey
	accounts      solana.AccountMetaSlice
}

func (g *genericAnchorInstruction) ProgramID() solana.PublicKey     { return g.programID }
func (g *genericAnchorInstruction) Accounts() []*solana.AccountMeta { return g.accounts }
func (g *genericAnchorInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(g.discriminator)
	for _, a := range g.args {
		buf.Write(a)
	}
	return buf.Bytes(), nil
}

func leU16(v uint16) []byte { b := make([]byte, 2); binary.LittleEndian.PutUint16(b, v); return b }
func leU32(v int32) []byte  { b := make([]byte, 4); binary.LittleEndian.PutUint32(b, uint32(v)); return b }
func leU64(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b }
func leU128(v uint128.Uint128) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[:8], v.Lo)
	binary.LittleEndian.PutUint64(b[8:], v.Hi)
	return b
}

// CreatePoolParams constructs the create_pool instruction (pool, vaults,
// observation state all derived by the caller via pda.go).
type CreatePoolParams struct {
	Payer         solana.PublicKey
	AmmConfig     solana.PublicKey
	Pool          solana.PublicKey
	TokenMint0    solana.PublicKey
	TokenMint1    solana.PublicKey
	TokenVault0   solana.PublicKey
	TokenVault1   solana.PublicKey
	Observation   solana.PublicKey
	BitmapExt     solana.PublicKey
	SqrtPriceX64  uint128.Uint128
	OpenTime      uint64
}

// BuildCreatePool constructs the create_pool instruction.
func BuildCreatePool(p CreatePoolParams) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(p.AmmConfig, false, false),
		solana.NewAccountMeta(p.Pool, true, false),
		solana.NewAccountMeta(p.TokenMint0, false, false),
		solana.NewAccountMeta(p.TokenMint1, false, false),
		solana.NewAccountMeta(p.TokenVault0, true, false),
		solana.NewAccountMeta(p.TokenVault1, true, false),
		solana.NewAccountMeta(p.Observation, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(p.BitmapExt, true, false),
	}
	return &genericAnchorInstruction{
		discriminator: anchor.GetDiscriminator("global", "create_pool"),
		args:          [][]byte{leU128(p.SqrtPriceX64), leU64(p.OpenTime)},
		programID:     RaydiumProgramID,
		accounts:      accounts,
	}
}

// OpenPositionParams constructs the open_position_with_token22_nft
// instruction: a new mint (ephemeral keypair, signer) represents the
// position NFT.
type OpenPositionParams struct {
	Payer              solana.PublicKey
	PositionNftMint    solana.PublicKey
	PositionNftAccount solana.PublicKey
	Metadata           solana.PublicKey
	Pool               solana.PublicKey
	ProtocolPosition   solana.PublicKey
	TickArrayLower     solana.PublicKey
	TickArrayUpper     solana.PublicKey
	Position           solana.PublicKey
	TokenAccount0      solana.PublicKey
	TokenAccount1      solana.PublicKey
	TokenVault0        solana.PublicKey
	TokenVault1        solana.PublicKey
	TickLowerIndex     int32
	TickUpperIndex     int32
	TickArrayLowerIdx  int32
	TickArrayUpperIdx  int32
	LiquidityAmount    uint128.Uint128
	Amount0Max         uint64
	Amount1Max         uint64
	WithMetadata       bool
}

// BuildOpenPosition constructs the open_position_with_token22_nft
// instruction.
func BuildOpenPosition(p OpenPositionParams) solana.Instruction {
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(p.Payer, false, false), // position owner
		solana.NewAccountMeta(p.PositionNftMint, true, true),
		solana.NewAccountMeta(p.PositionNftAccount, true, false),
		solana.NewAccountMeta(p.Metadata, true, false),
		solana.NewAccountMeta(p.Pool, true, false),
		solana.NewAccountMeta(p.ProtocolPosition, true, false),
		solana.NewAccountMeta(p.TickArrayLower, true, false),
		solana.NewAccountMeta(p.TickArrayUpper, true, false),
		solana.NewAccountMeta(p.Position, true, false),
		solana.NewAccountMeta(p.TokenAccount0, true, false),
		solana.NewAccountMeta(p.TokenAccount1, true, false),
		solana.NewAccountMeta(p.TokenVault0, true, false),
		solana.NewAccountMeta(p.TokenVault1, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(Token2022ProgramID, false, false),
		solana.NewAccountMeta(solana.SysVarRentPubkey, false, false),
		solana.NewAccountMeta(MetadataProgramID, false, false),
	}
	args := [][]byte{
		leU32(p.TickLowerIndex), leU32(p.TickUpperIndex),
		leU32(p.TickArrayLowerIdx), leU32(p.TickArrayUpperIdx),
		leU128(p.LiquidityAmount), leU64(p.Amount0Max), leU64(p.Amount1Max),
		{boolByte(p.WithMetadata)},
	}
	return &genericAnchorInstruction{
		discriminator: anchor.GetDiscriminator("global", "open_position_with_token22_nft"),
		args:          args,
		programID:     RaydiumProgramID,
		accounts:      accounts,
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// LiquidityChangeParams is shared by increase_liquidity_v2 and
// decrease_liquidity_v2.
type LiquidityChangeParams struct {
	Payer            solana.PublicKey
	Position         solana.PublicKey
	Pool             solana.PublicKey
	ProtocolPosition solana.PublicKey
	TickArrayLower   solana.PublicKey
	TickArrayUpper   solana.PublicKey
	TokenAccount0    solana.PublicKey
	TokenAccount1    solana.PublicKey
	TokenVault0      solana.PublicKey
	TokenVault1      solana.PublicKey
	PositionNftAcct  solana.PublicKey
	LiquidityDelta   uint128.Uint128
	Amount0Max       uint64
	Amount1Max       uint64
}

func liquidityChangeAccounts(p LiquidityChangeParams) solana.AccountMetaSlice {
	return solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(p.PositionNftAcct, false, false),
		solana.NewAccountMeta(p.Position, true, false),
		solana.NewAccountMeta(p.Pool, true, false),
		solana.NewAccountMeta(p.ProtocolPosition, true, false),
		solana.NewAccountMeta(p.TickArrayLower, true, false),
		solana.NewAccountMeta(p.TickArrayUpper, true, false),
		solana.NewAccountMeta(p.TokenAccount0, true, false),
		solana.NewAccountMeta(p.TokenAccount1, true, false),
		solana.NewAccountMeta(p.TokenVault0, true, false),
		solana.NewAccountMeta(p.TokenVault1, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
	}
}

// BuildIncreaseLiquidity constructs the increase_liquidity_v2 instruction.
func BuildIncreaseLiquidity(p LiquidityChangeParams) solana.Instruction {
	return &genericAnchorInstruction{
		discriminator: anchor.GetDiscriminator("global", "increase_liquidity_v2"),
		args:          [][]byte{leU128(p.LiquidityDelta), leU64(p.Amount0Max), leU64(p.Amount1Max)},
		programID:     RaydiumProgramID,
		accounts:      liquidityChangeAccounts(p),
	}
}

// BuildDecreaseLiquidity constructs the decrease_liquidity_v2 instruction.
func BuildDecreaseLiquidity(p LiquidityChangeParams) solana.Instruction {
	return &genericAnchorInstruction{
		discriminator: anchor.GetDiscriminator("global", "decrease_liquidity_v2"),
		args:          [][]byte{leU128(p.LiquidityDelta), leU64(p.Amount0Max), leU64(p.Amount1Max)},
		programID:     RaydiumProgramID,
		accounts:      liquidityChangeAccounts(p),
	}
}
