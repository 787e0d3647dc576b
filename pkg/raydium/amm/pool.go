// Package amm implements Raydium's classic (OpenBook-integrated) AMM
// pool decoding, quoting, and swap-instruction construction.
package amm

import (
	"encoding/binary"

	cosmath "cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// RaydiumAMMProgramID is the well-known mainnet classic AMM (v4) program.
var RaydiumAMMProgramID = solana.MustPublicKeyFromBase58("675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8")

// SetProgramID overrides the default classic AMM program id.
func SetProgramID(id solana.PublicKey) { RaydiumAMMProgramID = id }

// TradeFeeNumerator/Denominator give the default classic-AMM swap fee;
// authoritative values live in the decoded Pool itself.
const (
	DefaultTradeFeeNumerator   = 25
	DefaultTradeFeeDenominator = 10000
)

// AuthoritySeed is the seed the classic AMM's PDA authority is derived
// from via FindProgramAddress; the nonce stored in the pool account is not
// consulted.
var AuthoritySeed = []byte("amm authority")

// Pool is the decoded classic-AMM (v4) market-state layout, plus the
// off-chain reserve bookkeeping a quote needs.
type Pool struct {
	Status              uint64
	Nonce               uint64
	BaseDecimal         uint64
	QuoteDecimal        uint64
	TradeFeeNumerator   uint64
	TradeFeeDenominator uint64
	SwapFeeNumerator    uint64
	SwapFeeDenominator  uint64
	BaseNeedTakePnl     uint64
	QuoteNeedTakePnl    uint64

	BaseVault       solana.PublicKey
	QuoteVault      solana.PublicKey
	BaseMint        solana.PublicKey
	QuoteMint       solana.PublicKey
	LpMint          solana.PublicKey
	OpenOrders      solana.PublicKey
	MarketId        solana.PublicKey
	MarketProgramId solana.PublicKey
	TargetOrders    solana.PublicKey
	WithdrawQueue   solana.PublicKey

	PoolId           solana.PublicKey
	Authority        solana.PublicKey
	MarketAuthority  solana.PublicKey
	MarketBaseVault  solana.PublicKey
	MarketQuoteVault solana.PublicKey
	MarketBids       solana.PublicKey
	MarketAsks       solana.PublicKey
	MarketEventQueue solana.PublicKey

	BaseReserve  cosmath.Int
	QuoteReserve cosmath.Int
}

// Span is the classic-AMM account size.
func (p *Pool) Span() int { return 752 }

// Decode parses the raw account bytes of a classic AMM v4 pool account
// (no Anchor discriminator — this predates Anchor).
func (p *Pool) Decode(data []byte) error {
	if len(data) < 752 {
		return apperr.New(apperr.CodeParse, "classic amm account too short").WithField("len", len(data))
	}
	off := 0
	u64 := func() uint64 { v := binary.LittleEndian.Uint64(data[off : off+8]); off += 8; return v }
	skip := func(n int) { off += n }
	pubkey := func() solana.PublicKey { v := solana.PublicKeyFromBytes(data[off : off+32]); off += 32; return v }

	p.Status = u64()
	p.Nonce = u64()
	skip(8) // max_order
	skip(8) // depth
	p.BaseDecimal = u64()
	p.QuoteDecimal = u64()
	skip(8 * 12) // state..min_separate_denominator
	p.TradeFeeNumerator = u64()
	p.TradeFeeDenominator = u64()
	skip(16) // pnl numerator/denominator
	p.SwapFeeNumerator = u64()
	p.SwapFeeDenominator = u64()
	p.BaseNeedTakePnl = u64()
	p.QuoteNeedTakePnl = u64()
	skip(8 * 4) // quote_total_pnl, base_total_pnl, pool_open_time, punish_pc_amount
	skip(8 * 2) // punish_coin_amount, orderbook_to_init_time
	skip(16 * 2 + 8 + 16 + 16 + 8) // swap amounts (base_in/quote_out/fee, quote_in/base_out/fee) as u128/u64 mix

	p.BaseVault = pubkey()
	p.QuoteVault = pubkey()
	p.BaseMint = pubkey()
	p.QuoteMint = pubkey()
	p.LpMint = pubkey()
	p.OpenOrders = pubkey()
	p.MarketId = pubkey()
	p.MarketProgramId = pubkey()
	p.TargetOrders = pubkey()
	p.WithdrawQueue = pubkey()
	return nil
}

// DeriveAuthority derives the classic AMM authority PDA with
// FindProgramAddress over AuthoritySeed, which tries bump seeds from 255
// downward and returns the first off-curve address with its bump. The
// nonce stored in the pool account is not used.
func DeriveAuthority(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, nonce, err := solana.FindProgramAddress([][]byte{AuthoritySeed}, programID)
	if err != nil {
		return solana.PublicKey{}, 0, apperr.Wrap(apperr.CodeRPC, "derive classic amm authority", err)
	}
	return addr, nonce, nil
}

// VaultAmount reads the u64 token-account amount field out of a fetched
// vault account's raw data.
func VaultAmount(accountData []byte) (uint64, error) {
	if len(accountData) < 72 {
		return 0, apperr.New(apperr.CodeParse, "token account data too short for amount field")
	}
	return binary.LittleEndian.Uint64(accountData[64:72]), nil
}

// ApplyReserves sets the pool's trading reserves from fetched vault
// balances minus pending protocol PnL.
func (p *Pool) ApplyReserves(baseVaultAmount, quoteVaultAmount uint64) {
	p.BaseReserve = cosmath.NewIntFromUint64(baseVaultAmount).Sub(cosmath.NewIntFromUint64(p.BaseNeedTakePnl))
	p.QuoteReserve = cosmath.NewIntFromUint64(quoteVaultAmount).Sub(cosmath.NewIntFromUint64(p.QuoteNeedTakePnl))
}

// Quote computes the constant-product output for a swap of amountIn of
// inputMint using the pool's own swap-fee numerator/denominator.
func (p *Pool) Quote(inputMint solana.PublicKey, amountIn cosmath.Int) (cosmath.Int, error) {
	if amountIn.IsZero() {
		return cosmath.ZeroInt(), nil
	}
	reserveIn, reserveOut := p.BaseReserve, p.QuoteReserve
	if !inputMint.Equals(p.BaseMint) {
		reserveIn, reserveOut = p.QuoteReserve, p.BaseReserve
	}
	if !reserveIn.IsPositive() || !reserveOut.IsPositive() {
		return cosmath.Int{}, apperr.New(apperr.CodeInsufficientLiquidity, "pool reserves are empty")
	}
	feeNum := p.SwapFeeNumerator
	feeDenom := p.SwapFeeDenominator
	if feeDenom == 0 {
		feeNum, feeDenom = DefaultTradeFeeNumerator, DefaultTradeFeeDenominator
	}
	fee := amountIn.MulRaw(int64(feeNum)).QuoRaw(int64(feeDenom))
	amountInLessFee := amountIn.Sub(fee)
	denominator := reserveIn.Add(amountInLessFee)
	return reserveOut.Mul(amountInLessFee).Quo(denominator), nil
}
