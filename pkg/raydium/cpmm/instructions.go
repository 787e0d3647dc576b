package cpmm

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/raydium-indexer/clmm-indexer/pkg/anchor"
)

// SwapInstruction is the shared shape of swap_base_input and
// swap_base_output: they differ only in discriminator and whether the
// second u64 is a minimum-out or a maximum-in bound.
type SwapInstruction struct {
	bin.BaseVariant
	discriminator []byte
	Amount        uint64
	BoundAmount   uint64
	solana.AccountMetaSlice
}

func (i *SwapInstruction) ProgramID() solana.PublicKey     { return RaydiumCPProgramID }
func (i *SwapInstruction) Accounts() []*solana.AccountMeta { return i.AccountMetaSlice }
func (i *SwapInstruction) Data() ([]byte, error) {
	buf := make([]byte, 24)
	copy(buf[:8], i.discriminator)
	binary.LittleEndian.PutUint64(buf[8:16], i.Amount)
	binary.LittleEndian.PutUint64(buf[16:24], i.BoundAmount)
	return buf, nil
}

// SwapParams carries every account a CPMM swap instruction needs.
type SwapParams struct {
	Payer              solana.PublicKey
	Pool               *Pool
	InputMint          solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	Amount             uint64
	BoundAmount        uint64
	BaseInput          bool // true: Amount is exact-in, BoundAmount is min-out; false: reversed
}

// BuildSwap constructs a swap_base_input or swap_base_output instruction.
func BuildSwap(p SwapParams) (solana.Instruction, error) {
	authority, _, err := AuthorityPDA()
	if err != nil {
		return nil, err
	}
	zeroForOne := p.InputMint.Equals(p.Pool.Token0Mint)

	var inputVault, outputVault, inputMint, outputMint solana.PublicKey
	if zeroForOne {
		inputVault, outputVault = p.Pool.Token0Vault, p.Pool.Token1Vault
		inputMint, outputMint = p.Pool.Token0Mint, p.Pool.Token1Mint
	} else {
		inputVault, outputVault = p.Pool.Token1Vault, p.Pool.Token0Vault
		inputMint, outputMint = p.Pool.Token1Mint, p.Pool.Token0Mint
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(p.Pool.AmmConfig, false, false),
		solana.NewAccountMeta(p.Pool.PoolId, true, false),
		solana.NewAccountMeta(p.InputTokenAccount, true, false),
		solana.NewAccountMeta(p.OutputTokenAccount, true, false),
		solana.NewAccountMeta(inputVault, true, false),
		solana.NewAccountMeta(outputVault, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(inputMint, false, false),
		solana.NewAccountMeta(outputMint, false, false),
		solana.NewAccountMeta(p.Pool.ObservationKey, true, false),
	}

	discriminator := SwapBaseInputDiscriminator
	if !p.BaseInput {
		discriminator = SwapBaseOutputDiscriminator
	}
	inst := &SwapInstruction{
		discriminator:    discriminator,
		Amount:           p.Amount,
		BoundAmount:      p.BoundAmount,
		AccountMetaSlice: accounts,
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}
	return inst, nil
}

// genericInstruction is a thin Borsh-encoded instruction for the
// deposit/withdraw lifecycle entries, which differ only in
// discriminator, accounts, and argument layout.
type genericInstruction struct {
	discriminator []byte
	args          [][]byte
	accounts      solana.AccountMetaSlice
}

func (g *genericInstruction) ProgramID() solana.PublicKey     { return RaydiumCPProgramID }
func (g *genericInstruction) Accounts() []*solana.AccountMeta { return g.accounts }
func (g *genericInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(g.discriminator)
	for _, a := range g.args {
		buf.Write(a)
	}
	return buf.Bytes(), nil
}

func leU64(v uint64) []byte { b := make([]byte, 8); binary.LittleEndian.PutUint64(b, v); return b }

// DepositParams builds the deposit instruction: lpTokenAmount LP tokens
// minted against at most maximumAmount0/1 of each side.
type DepositParams struct {
	Payer           solana.PublicKey
	Pool            *Pool
	OwnerLpToken    solana.PublicKey
	Token0Account   solana.PublicKey
	Token1Account   solana.PublicKey
	LpTokenAmount   uint64
	MaximumAmount0  uint64
	MaximumAmount1  uint64
}

// BuildDeposit constructs the deposit instruction.
func BuildDeposit(p DepositParams) (solana.Instruction, error) {
	authority, _, err := AuthorityPDA()
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(p.Pool.PoolId, true, false),
		solana.NewAccountMeta(p.OwnerLpToken, true, false),
		solana.NewAccountMeta(p.Token0Account, true, false),
		solana.NewAccountMeta(p.Token1Account, true, false),
		solana.NewAccountMeta(p.Pool.Token0Vault, true, false),
		solana.NewAccountMeta(p.Pool.Token1Vault, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(p.Pool.Token0Mint, false, false),
		solana.NewAccountMeta(p.Pool.Token1Mint, false, false),
		solana.NewAccountMeta(p.Pool.LpMint, true, false),
	}
	return &genericInstruction{
		discriminator: anchor.GetDiscriminator("global", "deposit"),
		args:          [][]byte{leU64(p.LpTokenAmount), leU64(p.MaximumAmount0), leU64(p.MaximumAmount1)},
		accounts:      accounts,
	}, nil
}

// WithdrawParams builds the withdraw instruction: lpTokenAmount LP
// tokens burned for at least minimumAmount0/1 of each side.
type WithdrawParams struct {
	Payer          solana.PublicKey
	Pool           *Pool
	OwnerLpToken   solana.PublicKey
	Token0Account  solana.PublicKey
	Token1Account  solana.PublicKey
	LpTokenAmount  uint64
	MinimumAmount0 uint64
	MinimumAmount1 uint64
}

// BuildWithdraw constructs the withdraw instruction.
func BuildWithdraw(p WithdrawParams) (solana.Instruction, error) {
	authority, _, err := AuthorityPDA()
	if err != nil {
		return nil, err
	}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(p.Payer, false, true),
		solana.NewAccountMeta(authority, false, false),
		solana.NewAccountMeta(p.Pool.PoolId, true, false),
		solana.NewAccountMeta(p.OwnerLpToken, true, false),
		solana.NewAccountMeta(p.Token0Account, true, false),
		solana.NewAccountMeta(p.Token1Account, true, false),
		solana.NewAccountMeta(p.Pool.Token0Vault, true, false),
		solana.NewAccountMeta(p.Pool.Token1Vault, true, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(solana.TokenProgramID, false, false),
		solana.NewAccountMeta(p.Pool.Token0Mint, false, false),
		solana.NewAccountMeta(p.Pool.Token1Mint, false, false),
		solana.NewAccountMeta(p.Pool.LpMint, true, false),
	}
	return &genericInstruction{
		discriminator: anchor.GetDiscriminator("global", "withdraw"),
		args:          [][]byte{leU64(p.LpTokenAmount), leU64(p.MinimumAmount0), leU64(p.MinimumAmount1)},
		accounts:      accounts,
	}, nil
}
