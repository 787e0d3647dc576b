package amm

import (
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// SwapInstruction encodes the classic AMM's pre-Anchor "swap base in"
// instruction (tag byte 9), with the 18-account layout the on-chain
// program expects.
type SwapInstruction struct {
	bin.BaseVariant
	InAmount         uint64
	MinimumOutAmount uint64
	solana.AccountMetaSlice
}

func (inst *SwapInstruction) ProgramID() solana.PublicKey     { return RaydiumAMMProgramID }
func (inst *SwapInstruction) Accounts() []*solana.AccountMeta { return inst.AccountMetaSlice }

func (inst *SwapInstruction) Data() ([]byte, error) {
	buf := make([]byte, 17)
	buf[0] = 9 // swap_base_in instruction tag
	binary.LittleEndian.PutUint64(buf[1:9], inst.InAmount)
	binary.LittleEndian.PutUint64(buf[9:17], inst.MinimumOutAmount)
	return buf, nil
}

// SwapParams carries every account a classic-AMM swap needs.
type SwapParams struct {
	User               solana.PublicKey
	Pool               *Pool
	InputMint          solana.PublicKey
	UserBaseAccount    solana.PublicKey
	UserQuoteAccount   solana.PublicKey
	AmountIn           uint64
	MinimumAmountOut   uint64
}

// BuildSwap constructs the swap_base_in instruction.
func BuildSwap(p SwapParams) solana.Instruction {
	fromAccount, toAccount := p.UserBaseAccount, p.UserQuoteAccount
	if !p.InputMint.Equals(p.Pool.BaseMint) {
		fromAccount, toAccount = p.UserQuoteAccount, p.UserBaseAccount
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(p.Pool.PoolId, true, false),
		solana.NewAccountMeta(p.Pool.Authority, false, false),
		solana.NewAccountMeta(p.Pool.OpenOrders, true, false),
		solana.NewAccountMeta(p.Pool.TargetOrders, true, false),
		solana.NewAccountMeta(p.Pool.BaseVault, true, false),
		solana.NewAccountMeta(p.Pool.QuoteVault, true, false),
		solana.NewAccountMeta(p.Pool.MarketProgramId, false, false),
		solana.NewAccountMeta(p.Pool.MarketId, true, false),
		solana.NewAccountMeta(p.Pool.MarketBids, true, false),
		solana.NewAccountMeta(p.Pool.MarketAsks, true, false),
		solana.NewAccountMeta(p.Pool.MarketEventQueue, true, false),
		solana.NewAccountMeta(p.Pool.MarketBaseVault, true, false),
		solana.NewAccountMeta(p.Pool.MarketQuoteVault, true, false),
		solana.NewAccountMeta(p.Pool.MarketAuthority, false, false),
		solana.NewAccountMeta(fromAccount, true, false),
		solana.NewAccountMeta(toAccount, true, false),
		solana.NewAccountMeta(p.User, true, true),
	}

	inst := &SwapInstruction{
		InAmount:         p.AmountIn,
		MinimumOutAmount: p.MinimumAmountOut,
		AccountMetaSlice: accounts,
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst
}
