// Package cpmm implements Raydium's constant-product (CPMM) pool
// decoding, quoting, and instruction construction.
package cpmm

import (
	"encoding/binary"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// RaydiumCPProgramID is the well-known mainnet CPMM program. Nothing in
// this module calls SetProgramID, so this literal is the id in use.
var RaydiumCPProgramID = solana.MustPublicKeyFromBase58("CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C")

// SetProgramID overrides the default CPMM program id.
func SetProgramID(id solana.PublicKey) { RaydiumCPProgramID = id }

// AuthSeed is the CPMM vault/LP-mint authority PDA seed.
const AuthSeed = "vault_and_lp_mint_auth_seed"

// LiquidityFeeNumerator/Denominator give the constant-product trading
// fee as numerator/denominator, matching the teacher's baked-in rate.
const (
	LiquidityFeeNumerator   = 25
	LiquidityFeeDenominator = 10000
)

// SwapBaseInputDiscriminator is the Anchor discriminator for
// "global:swap_base_input".
var SwapBaseInputDiscriminator = []byte{143, 190, 90, 218, 196, 30, 51, 222}

// SwapBaseOutputDiscriminator is the Anchor discriminator for
// "global:swap_base_output".
var SwapBaseOutputDiscriminator = []byte{55, 217, 98, 86, 163, 74, 180, 173}

// Pool is the decoded on-chain CPMM pool account, plus off-chain
// bookkeeping (reserves) a quote needs.
type Pool struct {
	AmmConfig      solana.PublicKey
	PoolCreator    solana.PublicKey
	Token0Vault    solana.PublicKey
	Token1Vault    solana.PublicKey
	LpMint         solana.PublicKey
	Token0Mint     solana.PublicKey
	Token1Mint     solana.PublicKey
	Token0Program  solana.PublicKey
	Token1Program  solana.PublicKey
	ObservationKey solana.PublicKey
	AuthBump       uint8
	Status         uint8
	LpMintDecimals uint8
	Mint0Decimals  uint8
	Mint1Decimals  uint8
	LpSupply       uint64
	ProtocolFees0  uint64
	ProtocolFees1  uint64
	FundFees0      uint64
	FundFees1      uint64
	OpenTime       uint64

	PoolId         solana.PublicKey
	Reserve0       cosmath.Int
	Reserve1       cosmath.Int
	NeedTakePnl0   uint64
	NeedTakePnl1   uint64
}

// Span is the account size (with discriminator).
func (p *Pool) Span() int { return 584 }

// Decode parses the raw account bytes (including discriminator).
func (p *Pool) Decode(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	off := 0
	pubkey := func() solana.PublicKey { v := solana.PublicKeyFromBytes(data[off : off+32]); off += 32; return v }
	u8 := func() uint8 { v := data[off]; off++; return v }
	u64 := func() uint64 { v := binary.LittleEndian.Uint64(data[off : off+8]); off += 8; return v }

	p.AmmConfig = pubkey()
	p.PoolCreator = pubkey()
	p.Token0Vault = pubkey()
	p.Token1Vault = pubkey()
	p.LpMint = pubkey()
	p.Token0Mint = pubkey()
	p.Token1Mint = pubkey()
	p.Token0Program = pubkey()
	p.Token1Program = pubkey()
	p.ObservationKey = pubkey()
	p.AuthBump = u8()
	p.Status = u8()
	p.LpMintDecimals = u8()
	p.Mint0Decimals = u8()
	p.Mint1Decimals = u8()
	off += 3 // padding
	p.LpSupply = u64()
	p.ProtocolFees0 = u64()
	p.ProtocolFees1 = u64()
	p.FundFees0 = u64()
	p.FundFees1 = u64()
	p.OpenTime = u64()
	return nil
}

// AuthorityPDA derives the pool's fixed vault/LP-mint authority.
func AuthorityPDA() (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{[]byte(AuthSeed)}, RaydiumCPProgramID)
	if err != nil {
		return solana.PublicKey{}, 0, apperr.Wrap(apperr.CodeRPC, "derive cpmm authority pda", err)
	}
	return addr, bump, nil
}

// VaultAmount reads the u64 token-account amount field (byte offset 64
// in a standard SPL token account layout) out of a fetched vault
// account's raw data.
func VaultAmount(accountData []byte) (uint64, error) {
	if len(accountData) < 72 {
		return 0, apperr.New(apperr.CodeParse, "token account data too short for amount field")
	}
	return binary.LittleEndian.Uint64(accountData[64:72]), nil
}

// ApplyReserves sets the pool's trading reserves (vault balance minus
// pnl the protocol has not yet taken) from the two fetched vault
// balances.
func (p *Pool) ApplyReserves(vault0Amount, vault1Amount uint64) {
	p.Reserve0 = cosmath.NewIntFromUint64(vault0Amount).Sub(cosmath.NewIntFromUint64(p.NeedTakePnl0))
	p.Reserve1 = cosmath.NewIntFromUint64(vault1Amount).Sub(cosmath.NewIntFromUint64(p.NeedTakePnl1))
}

// Quote computes the constant-product output amount for a swap of
// amountIn of inputMint, applying the protocol's flat trading fee.
func (p *Pool) Quote(inputMint solana.PublicKey, amountIn cosmath.Int) (amountOut cosmath.Int, err error) {
	if amountIn.IsZero() {
		return cosmath.ZeroInt(), nil
	}
	reserveIn, reserveOut := p.Reserve0, p.Reserve1
	if !inputMint.Equals(p.Token0Mint) {
		reserveIn, reserveOut = p.Reserve1, p.Reserve0
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return cosmath.Int{}, apperr.New(apperr.CodeInsufficientLiquidity, "pool reserves are empty")
	}

	fee := amountIn.MulRaw(LiquidityFeeNumerator).QuoRaw(LiquidityFeeDenominator)
	amountInLessFee := amountIn.Sub(fee)
	denominator := reserveIn.Add(amountInLessFee)
	amountOut = reserveOut.Mul(amountInLessFee).Quo(denominator)
	return amountOut, nil
}

// RoundDirection selects rounding behaviour for LPTokensToTradingTokens.
type RoundDirection int

const (
	RoundFloor RoundDirection = iota
	RoundCeiling
)

// LPTokensToTradingTokens mirrors CurveCalculator::lp_tokens_to_trading_tokens:
// given an LP-token amount to redeem (or deposit against), it returns the
// corresponding amounts of token0/token1 proportional to pool reserves.
func LPTokensToTradingTokens(lpAmount, lpSupply, total0, total1 cosmath.Int, dir RoundDirection) (amount0, amount1 cosmath.Int, err error) {
	if lpSupply.IsZero() {
		return cosmath.Int{}, cosmath.Int{}, apperr.New(apperr.CodeMathOverflow, "lp supply is zero")
	}
	switch dir {
	case RoundCeiling:
		amount0 = ceilDiv(lpAmount.Mul(total0), lpSupply)
		amount1 = ceilDiv(lpAmount.Mul(total1), lpSupply)
	default:
		amount0 = lpAmount.Mul(total0).Quo(lpSupply)
		amount1 = lpAmount.Mul(total1).Quo(lpSupply)
	}
	if amount0.IsZero() && amount1.IsZero() {
		return cosmath.Int{}, cosmath.Int{}, apperr.New(apperr.CodeMathOverflow, "lp conversion yields zero trading tokens")
	}
	return amount0, amount1, nil
}

func ceilDiv(numerator, denominator cosmath.Int) cosmath.Int {
	if denominator.IsZero() {
		return cosmath.ZeroInt()
	}
	return numerator.Add(denominator.SubRaw(1)).Quo(denominator)
}

// AmountWithSlippage applies a basis-point slippage bound, rounding in
// the direction that favours the protocol (ceil for max-input, floor
// for min-output).
func AmountWithSlippage(amount uint64, slippageBps int64, roundUp bool) uint64 {
	a := cosmath.NewIntFromUint64(amount)
	denom := cosmath.NewInt(10_000)
	if roundUp {
		num := a.MulRaw(10_000 + slippageBps)
		return ceilDiv(num, denom).Uint64()
	}
	return a.MulRaw(10_000 - slippageBps).Quo(denom).Uint64()
}
