package clmm

import cosmath "cosmossdk.io/math"

// getTokenAmountAFromLiquidity computes the amount of token A (token0)
// locked between two sqrt-prices for a given liquidity.
func getTokenAmountAFromLiquidity(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	if !sqrtA.IsPositive() {
		return cosmath.ZeroInt()
	}
	numerator1 := liquidity.Mul(shift64())
	numerator2 := sqrtB.Sub(sqrtA)
	if roundUp {
		tmp := MulDivCeil(numerator1, numerator2, sqrtB)
		return MulDivCeil(tmp, cosmath.OneInt(), sqrtA)
	}
	tmp := MulDivFloor(numerator1, numerator2, sqrtB)
	return tmp.Quo(sqrtA)
}

// getTokenAmountBFromLiquidity computes the amount of token B (token1)
// locked between two sqrt-prices for a given liquidity.
func getTokenAmountBFromLiquidity(sqrtA, sqrtB, liquidity cosmath.Int, roundUp bool) cosmath.Int {
	if sqrtA.GT(sqrtB) {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := sqrtB.Sub(sqrtA)
	if roundUp {
		return MulDivCeil(liquidity, diff, shift64())
	}
	return MulDivFloor(liquidity, diff, shift64())
}

func mulDivRoundingUp(a, b, denominator cosmath.Int) cosmath.Int {
	numerator := a.Mul(b)
	result := numerator.Quo(denominator)
	if !numerator.Mod(denominator).IsZero() {
		result = result.Add(cosmath.OneInt())
	}
	return result
}

func getNextSqrtPriceFromTokenAmountARoundingUp(sqrtPriceX64, liquidity, amount cosmath.Int, add bool) cosmath.Int {
	if amount.IsZero() {
		return sqrtPriceX64
	}
	liquidityShifted := liquidity.Mul(shift64())
	if add {
		numerator1 := liquidityShifted
		denominator := liquidityShifted.Add(amount.Mul(sqrtPriceX64))
		if denominator.GTE(numerator1) {
			return MulDivCeil(numerator1, sqrtPriceX64, denominator)
		}
		tmp := numerator1.Quo(sqrtPriceX64).Add(amount)
		return mulDivRoundingUp(numerator1, cosmath.OneInt(), tmp)
	}
	amountMulSqrtPrice := amount.Mul(sqrtPriceX64)
	denominator := liquidityShifted.Sub(amountMulSqrtPrice)
	return MulDivCeil(liquidityShifted, sqrtPriceX64, denominator)
}

func getNextSqrtPriceFromTokenAmountBRoundingDown(sqrtPriceX64, liquidity, amount cosmath.Int, add bool) cosmath.Int {
	deltaY := amount.Mul(shift64())
	if add {
		return sqrtPriceX64.Add(deltaY.Quo(liquidity))
	}
	amountDivLiquidity := mulDivRoundingUp(deltaY, cosmath.OneInt(), liquidity)
	return sqrtPriceX64.Sub(amountDivLiquidity)
}

func getNextSqrtPriceX64FromInput(sqrtPriceX64Current, liquidity, amount cosmath.Int, zeroForOne bool) cosmath.Int {
	if amount.IsZero() {
		return sqrtPriceX64Current
	}
	if zeroForOne {
		return getNextSqrtPriceFromTokenAmountARoundingUp(sqrtPriceX64Current, liquidity, amount, true)
	}
	return getNextSqrtPriceFromTokenAmountBRoundingDown(sqrtPriceX64Current, liquidity, amount, true)
}

func getNextSqrtPriceX64FromOutput(sqrtPriceX64Current, liquidity, amount cosmath.Int, zeroForOne bool) cosmath.Int {
	if zeroForOne {
		return getNextSqrtPriceFromTokenAmountBRoundingDown(sqrtPriceX64Current, liquidity, amount, false)
	}
	return getNextSqrtPriceFromTokenAmountARoundingUp(sqrtPriceX64Current, liquidity, amount, false)
}

// StepResult is the outcome of advancing the swap state machine across one
// initialized-tick boundary (or to the price limit, whichever is nearer).
type StepResult struct {
	SqrtPriceNextX64 cosmath.Int
	AmountIn         cosmath.Int
	AmountOut        cosmath.Int
	FeeAmount        cosmath.Int
}

// swapStepCompute advances the swap state machine by one step between
// sqrtPriceCurrent and sqrtPriceTarget (a tick boundary or the caller's
// price limit). feeRate is basis points over FeeRateDenominator.
func swapStepCompute(sqrtPriceCurrent, sqrtPriceTarget, liquidity, amountRemaining cosmath.Int, feeRate int64, zeroForOne bool) StepResult {
	var step StepResult
	baseInput := !amountRemaining.IsNegative()
	feeRateInt := cosmath.NewInt(feeRate)

	if baseInput {
		amountRemainingLessFee := MulDivFloor(amountRemaining, FeeRateDenominatorInt.Sub(feeRateInt), FeeRateDenominatorInt)
		if zeroForOne {
			step.AmountIn = getTokenAmountAFromLiquidity(sqrtPriceTarget, sqrtPriceCurrent, liquidity, true)
		} else {
			step.AmountIn = getTokenAmountBFromLiquidity(sqrtPriceCurrent, sqrtPriceTarget, liquidity, true)
		}
		if amountRemainingLessFee.GTE(step.AmountIn) {
			step.SqrtPriceNextX64 = sqrtPriceTarget
		} else {
			step.SqrtPriceNextX64 = getNextSqrtPriceX64FromInput(sqrtPriceCurrent, liquidity, amountRemainingLessFee, zeroForOne)
		}
	} else {
		if zeroForOne {
			step.AmountOut = getTokenAmountBFromLiquidity(sqrtPriceTarget, sqrtPriceCurrent, liquidity, false)
		} else {
			step.AmountOut = getTokenAmountAFromLiquidity(sqrtPriceCurrent, sqrtPriceTarget, liquidity, false)
		}
		amountRemainingAbs := amountRemaining.Neg()
		if amountRemainingAbs.GTE(step.AmountOut) {
			step.SqrtPriceNextX64 = sqrtPriceTarget
		} else {
			step.SqrtPriceNextX64 = getNextSqrtPriceX64FromOutput(sqrtPriceCurrent, liquidity, amountRemainingAbs, zeroForOne)
		}
	}

	reachedTarget := step.SqrtPriceNextX64.Equal(sqrtPriceTarget)

	if zeroForOne {
		if !(reachedTarget && baseInput) {
			step.AmountIn = getTokenAmountAFromLiquidity(step.SqrtPriceNextX64, sqrtPriceCurrent, liquidity, true)
		}
		if !(reachedTarget && !baseInput) {
			step.AmountOut = getTokenAmountBFromLiquidity(step.SqrtPriceNextX64, sqrtPriceCurrent, liquidity, false)
		}
	} else {
		if !(reachedTarget && baseInput) {
			step.AmountIn = getTokenAmountBFromLiquidity(sqrtPriceCurrent, step.SqrtPriceNextX64, liquidity, true)
		}
		if !(reachedTarget && !baseInput) {
			step.AmountOut = getTokenAmountAFromLiquidity(sqrtPriceCurrent, step.SqrtPriceNextX64, liquidity, false)
		}
	}

	if !baseInput {
		amountRemainingAbs := amountRemaining.Neg()
		if step.AmountOut.GT(amountRemainingAbs) {
			step.AmountOut = amountRemainingAbs
		}
	}

	if baseInput && !step.SqrtPriceNextX64.Equal(sqrtPriceTarget) {
		step.FeeAmount = amountRemaining.Sub(step.AmountIn)
	} else {
		step.FeeAmount = MulDivCeil(step.AmountIn, feeRateInt, FeeRateDenominatorInt.Sub(feeRateInt))
	}
	return step
}
