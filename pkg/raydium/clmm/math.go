package clmm

import (
	"math/big"

	cosmath "cosmossdk.io/math"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// GetSqrtPriceX64FromTick computes the Q64.64 sqrt-price for a tick using
// the same bit-by-bit geometric series the on-chain program uses.
func GetSqrtPriceX64FromTick(tick int64) (cosmath.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return cosmath.Int{}, apperr.New(apperr.CodeMathRange, "tick out of [MIN_TICK, MAX_TICK]")
	}

	tickAbs := tick
	if tick < 0 {
		tickAbs = -tick
	}

	ratio := cosmath.Int{}
	if (tickAbs & 0x1) != 0 {
		ratio, _ = cosmath.NewIntFromString("18445821805675395072")
	} else {
		ratio, _ = cosmath.NewIntFromString("18446744073709551616")
	}

	bitFactors := []struct {
		mask  int64
		value string
	}{
		{0x2, "18444899583751176192"},
		{0x4, "18443055278223355904"},
		{0x8, "18439367220385607680"},
		{0x10, "18431993317065453568"},
		{0x20, "18417254355718170624"},
		{0x40, "18387811781193609216"},
		{0x80, "18329067761203558400"},
		{0x100, "18212142134806163456"},
		{0x200, "17980523815641700352"},
		{0x400, "17526086738831433728"},
		{0x800, "16651378430235570176"},
		{0x1000, "15030750278694412288"},
		{0x2000, "12247334978884435968"},
		{0x4000, "8131365268886854656"},
		{0x8000, "3584323654725218816"},
		{0x10000, "696457651848324352"},
		{0x20000, "26294789957507116"},
		{0x40000, "37481735321082"},
	}
	for _, f := range bitFactors {
		if (tickAbs & f.mask) != 0 {
			mulBy, _ := cosmath.NewIntFromString(f.value)
			ratio = mulRightShift(ratio, mulBy)
		}
	}

	if tick > 0 {
		ratio = maxUint128Int.Quo(ratio)
	}
	return ratio, nil
}

var maxUint128Int = cosmath.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)))

func mulRightShift(val, mulBy cosmath.Int) cosmath.Int {
	result := val.Mul(mulBy)
	pow64, _ := cosmath.NewIntFromString("18446744073709551616") // 2^64
	return result.Quo(pow64)
}

const bitPrecision = 14

var (
	log2B2X32              = mustInt("59543866431248")
	logBPErrMarginLowerX64  = mustInt("184467440737095516")
	logBPErrMarginUpperX64  = mustInt("15793534762490258745")
)

func mustInt(s string) cosmath.Int {
	v, _ := cosmath.NewIntFromString(s)
	return v
}

// GetTickAtSqrtPrice inverts GetSqrtPriceX64FromTick: the largest tick whose
// sqrt-price is <= the given sqrt-price.
func GetTickAtSqrtPrice(sqrtPriceX64 cosmath.Int) (int64, error) {
	if sqrtPriceX64.GT(MaxSqrtPriceX64) || sqrtPriceX64.LT(MinSqrtPriceX64) {
		return 0, apperr.New(apperr.CodeMathRange, "sqrt price outside supported range")
	}

	msb := sqrtPriceX64.BigInt().BitLen() - 1
	adjustedMsb := big.NewInt(int64(msb - 64))
	log2pIntegerX32 := signedLeftShift(adjustedMsb, 32, 128)

	bit, _ := new(big.Int).SetString("8000000000000000", 16)
	precision := 0
	log2pFractionX64 := big.NewInt(0)

	var r *big.Int
	if msb >= 64 {
		r = new(big.Int).Rsh(sqrtPriceX64.BigInt(), uint(msb-63))
	} else {
		r = new(big.Int).Lsh(sqrtPriceX64.BigInt(), uint(63-msb))
	}

	zero := big.NewInt(0)
	for bit.Cmp(zero) > 0 && precision < bitPrecision {
		r = new(big.Int).Mul(r, r)
		rMoreThanTwo := new(big.Int).Rsh(r, 127)
		r = new(big.Int).Rsh(r, uint(63+rMoreThanTwo.Int64()))
		log2pFractionX64 = new(big.Int).Add(log2pFractionX64, new(big.Int).Mul(bit, rMoreThanTwo))
		bit = new(big.Int).Rsh(bit, 1)
		precision++
	}

	log2pFractionX32 := new(big.Int).Rsh(log2pFractionX64, 32)
	log2pX32 := new(big.Int).Add(log2pIntegerX32, log2pFractionX32)
	logbpX64 := new(big.Int).Mul(log2pX32, log2B2X32.BigInt())

	tickLow := signedRightShift(new(big.Int).Sub(logbpX64, logBPErrMarginLowerX64.BigInt()), 64, 128)
	tickHigh := signedRightShift(new(big.Int).Add(logbpX64, logBPErrMarginUpperX64.BigInt()), 64, 128)

	if tickLow.Cmp(tickHigh) == 0 {
		return tickLow.Int64(), nil
	}

	derivedHigh, err := GetSqrtPriceX64FromTick(tickHigh.Int64())
	if err != nil {
		return 0, err
	}
	if derivedHigh.LTE(sqrtPriceX64) {
		return tickHigh.Int64(), nil
	}
	return tickLow.Int64(), nil
}

func signedLeftShift(n *big.Int, shiftBy, bitWidth int) *big.Int {
	result := new(big.Int).Lsh(n, uint(shiftBy))
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bitWidth)), big.NewInt(1))
	return new(big.Int).And(result, mask)
}

func signedRightShift(n *big.Int, shiftBy, _ int) *big.Int {
	return new(big.Int).Rsh(n, uint(shiftBy))
}

// TickWithSpacing aligns an arbitrary tick to the nearest multiple of
// spacing not greater than t, rounding toward -infinity for negative
// non-multiples (floor division, not truncation).
func TickWithSpacing(t, spacing int64) int64 {
	if spacing <= 0 {
		return t
	}
	q := t / spacing
	if t%spacing != 0 && t < 0 {
		q--
	}
	return q * spacing
}

// ApplySlippage applies a basis-point slippage adjustment to amount.
// isMin requests a minimum-acceptable-output threshold (floor); otherwise
// it requests a maximum-acceptable-input threshold (ceil).
func ApplySlippage(amount cosmath.Int, bps int64, isMin bool) cosmath.Int {
	bpsInt := cosmath.NewInt(bps)
	denom := cosmath.NewInt(10_000)
	if isMin {
		return amount.Mul(denom.Sub(bpsInt)).Quo(denom)
	}
	num := amount.Mul(denom.Add(bpsInt))
	// ceiling division
	return num.Add(denom.Sub(cosmath.OneInt())).Quo(denom)
}

// MulDivFloor computes floor(a*b/denominator).
func MulDivFloor(a, b, denominator cosmath.Int) cosmath.Int {
	return a.Mul(b).Quo(denominator)
}

// MulDivCeil computes ceil(a*b/denominator).
func MulDivCeil(a, b, denominator cosmath.Int) cosmath.Int {
	if denominator.IsZero() {
		return cosmath.Int{}
	}
	numerator := a.Mul(b).Add(denominator.Sub(cosmath.OneInt()))
	return numerator.Quo(denominator)
}

// GetLiquidityFromSingleAmount0 derives liquidity supplied entirely as
// amount of token0, for a range [sqrtPriceA, sqrtPriceB].
func GetLiquidityFromSingleAmount0(sqrtPriceA, sqrtPriceB, amount0 cosmath.Int) cosmath.Int {
	if sqrtPriceA.GT(sqrtPriceB) {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	// L = amount0 * sqrtPriceA * sqrtPriceB / (sqrtPriceB - sqrtPriceA) / 2^64
	numerator := amount0.Mul(sqrtPriceA).Mul(sqrtPriceB)
	denom := sqrtPriceB.Sub(sqrtPriceA)
	if denom.IsZero() {
		return cosmath.ZeroInt()
	}
	shift, _ := cosmath.NewIntFromString("18446744073709551616")
	return numerator.Quo(denom).Quo(shift)
}

// GetLiquidityFromSingleAmount1 derives liquidity supplied entirely as
// amount of token1, for a range [sqrtPriceA, sqrtPriceB].
func GetLiquidityFromSingleAmount1(sqrtPriceA, sqrtPriceB, amount1 cosmath.Int) cosmath.Int {
	if sqrtPriceA.GT(sqrtPriceB) {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	diff := sqrtPriceB.Sub(sqrtPriceA)
	if diff.IsZero() {
		return cosmath.ZeroInt()
	}
	shift, _ := cosmath.NewIntFromString("18446744073709551616")
	// L = amount1 * 2^64 / (sqrtPriceB - sqrtPriceA)
	return amount1.Mul(shift).Quo(diff)
}

// GetDeltaAmountsSigned returns (amount0, amount1) a position with the
// given signed liquidity delta contributes/requires across the three
// possible regions relative to the pool's current tick.
func GetDeltaAmountsSigned(currentTick int64, currentSqrtPriceX64 cosmath.Int, tickLower, tickUpper int64, liquidity cosmath.Int) (cosmath.Int, cosmath.Int, error) {
	sqrtLower, err := GetSqrtPriceX64FromTick(tickLower)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}
	sqrtUpper, err := GetSqrtPriceX64FromTick(tickUpper)
	if err != nil {
		return cosmath.Int{}, cosmath.Int{}, err
	}

	roundUp := liquidity.IsPositive()
	absLiquidity := liquidity.Abs()

	var amount0, amount1 cosmath.Int
	switch {
	case currentTick < tickLower:
		// entirely below range: all token0
		amount0 = getTokenAmount0(sqrtLower, sqrtUpper, absLiquidity, roundUp)
		amount1 = cosmath.ZeroInt()
	case currentTick >= tickUpper:
		// entirely above range: all token1
		amount0 = cosmath.ZeroInt()
		amount1 = getTokenAmount1(sqrtLower, sqrtUpper, absLiquidity, roundUp)
	default:
		amount0 = getTokenAmount0(currentSqrtPriceX64, sqrtUpper, absLiquidity, roundUp)
		amount1 = getTokenAmount1(sqrtLower, currentSqrtPriceX64, absLiquidity, roundUp)
	}
	if !liquidity.IsPositive() {
		amount0 = amount0.Neg()
		amount1 = amount1.Neg()
	}
	return amount0, amount1, nil
}

func getTokenAmount0(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := liquidity.Mul(shift64())
	numerator2 := sqrtB.Sub(sqrtA)
	if roundUp {
		return MulDivCeil(MulDivCeil(numerator1, numerator2, sqrtB), cosmath.OneInt(), sqrtA)
	}
	return MulDivFloor(numerator1, numerator2, sqrtB).Quo(sqrtA)
}

func getTokenAmount1(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := sqrtB.Sub(sqrtA)
	if roundUp {
		return MulDivCeil(liquidity, diff, shift64())
	}
	return MulDivFloor(liquidity, diff, shift64())
}

func shift64() cosmath.Int {
	v, _ := cosmath.NewIntFromString("18446744073709551616")
	return v
}
