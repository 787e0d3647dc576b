package clmm

import (
	cosmath "cosmossdk.io/math"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// SwapInput bundles everything the swap calculator needs: the pool's
// current state plus however many tick arrays the caller has already
// fetched, keyed by start index.
type SwapInput struct {
	AmountSpecified    cosmath.Int // positive: exact-in: negative: exact-out
	ZeroForOne         bool
	FeeRate            int64
	TickCurrent        int64
	TickSpacing        int64
	SqrtPriceX64       cosmath.Int
	Liquidity          cosmath.Int
	TickArrayBitmap    [16]uint64
	BitmapExtension    *BitmapExtension
	TickArrays         map[int64]*TickArray // keyed by StartTickIndex
	SqrtPriceLimitX64  cosmath.Int          // zero value means "use protocol default"
}

// SwapResult is the outcome of a full swap computation: the amount of
// the other token produced/required, plus every tick-array start index
// the walk crossed (the caller needs these as remaining_accounts).
type SwapResult struct {
	AmountCalculated   cosmath.Int
	TraversedArrays    []int64
	FinalSqrtPriceX64  cosmath.Int
	FinalTick          int64
}

// ComputeSwap replays the on-chain swap_v2 state machine off-chain: it
// walks tick arrays crossing initialised ticks until the requested amount
// is filled, the price limit is reached, or LoopBoundIterations is hit.
func ComputeSwap(in SwapInput) (SwapResult, error) {
	if in.AmountSpecified.IsZero() {
		return SwapResult{}, apperr.New(apperr.CodeInvalidRequest, "amount specified cannot be zero")
	}
	baseInput := in.AmountSpecified.IsPositive()

	sqrtPriceLimit := in.SqrtPriceLimitX64
	if sqrtPriceLimit.IsNil() || sqrtPriceLimit.IsZero() {
		if in.ZeroForOne {
			sqrtPriceLimit = MinSqrtPriceX64.Add(cosmath.OneInt())
		} else {
			sqrtPriceLimit = MaxSqrtPriceX64.Sub(cosmath.OneInt())
		}
	}

	remaining := in.AmountSpecified
	calculated := cosmath.ZeroInt()
	sqrtPrice := in.SqrtPriceX64
	liquidity := in.Liquidity
	tick := in.TickCurrent

	startIndex := getArrayStartIndex(tick, in.TickSpacing)
	tickArray := in.TickArrays[startIndex]
	if tickArray == nil {
		return SwapResult{}, apperr.New(apperr.CodeInsufficientLiquidity, "initial tick array not supplied")
	}

	traversed := []int64{startIndex}

	for loop := 0; ; loop++ {
		if remaining.IsZero() || sqrtPrice.Equal(sqrtPriceLimit) {
			break
		}
		if loop >= LoopBoundIterations {
			return SwapResult{}, apperr.New(apperr.CodeInternal, "swap computation exceeded loop bound").
				WithField("loop_bound", LoopBoundIterations)
		}

		next := nextInitializedTickInArray(tickArray, tick, in.TickSpacing, in.ZeroForOne, loop == 0)
		if next == nil {
			ok, nextStart, err := nextInitializedTickArrayStart(in.BitmapExtension, tick, in.TickSpacing, in.TickArrayBitmap, in.ZeroForOne)
			if err != nil {
				return SwapResult{}, err
			}
			if !ok {
				return SwapResult{}, apperr.New(apperr.CodeInsufficientLiquidity, "no further initialized tick array in direction")
			}
			startIndex = nextStart
			tickArray = in.TickArrays[startIndex]
			if tickArray == nil {
				return SwapResult{}, apperr.New(apperr.CodeInsufficientLiquidity, "tick array not supplied for crossed start index").
					WithField("start_index", startIndex)
			}
			traversed = append(traversed, startIndex)
			next, err = firstInitializedTick(tickArray, in.ZeroForOne)
			if err != nil {
				return SwapResult{}, err
			}
		}

		tickNext := int64(next.Tick)
		initialized := next.initialized()
		if tickNext < MinTick {
			tickNext = MinTick
		} else if tickNext > MaxTick {
			tickNext = MaxTick
		}

		sqrtPriceNext, err := GetSqrtPriceX64FromTick(tickNext)
		if err != nil {
			return SwapResult{}, err
		}

		target := sqrtPriceNext
		if (in.ZeroForOne && sqrtPriceNext.LT(sqrtPriceLimit)) || (!in.ZeroForOne && sqrtPriceNext.GT(sqrtPriceLimit)) {
			target = sqrtPriceLimit
		}

		step := swapStepCompute(sqrtPrice, target, liquidity, remaining, in.FeeRate, in.ZeroForOne)
		sqrtPrice = step.SqrtPriceNextX64

		if baseInput {
			remaining = remaining.Sub(step.AmountIn.Add(step.FeeAmount))
			calculated = calculated.Sub(step.AmountOut)
		} else {
			remaining = remaining.Add(step.AmountOut)
			calculated = calculated.Add(step.AmountIn.Add(step.FeeAmount))
		}

		if sqrtPrice.Equal(sqrtPriceNext) {
			if initialized {
				liquidityNet := next.LiquidityNet
				if in.ZeroForOne {
					liquidityNet = -liquidityNet
				}
				liquidity = liquidity.Add(cosmath.NewInt(liquidityNet))
			}
			if in.ZeroForOne {
				tick = tickNext - 1
			} else {
				tick = tickNext
			}
		} else {
			t, err := GetTickAtSqrtPrice(sqrtPrice)
			if err != nil {
				return SwapResult{}, err
			}
			tick = t
		}
	}

	return SwapResult{
		AmountCalculated:  calculated,
		TraversedArrays:   traversed,
		FinalSqrtPriceX64: sqrtPrice,
		FinalTick:         tick,
	}, nil
}
