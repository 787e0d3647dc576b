package clmm

import (
	"encoding/binary"
	"math"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// TickState is one initialised (or empty) slot of a TickArray.
type TickState struct {
	Tick                    int32
	LiquidityNet            int64
	LiquidityGross          uint128.Uint128
	FeeGrowthOutsideX64A    uint128.Uint128
	FeeGrowthOutsideX64B    uint128.Uint128
	RewardGrowthsOutsideX64 [3]uint128.Uint128
}

func (t *TickState) initialized() bool {
	return t.LiquidityGross.Big().Sign() > 0
}

// TickArray is the decoded account layout of one on-chain tick-array.
type TickArray struct {
	PoolId               solana.PublicKey
	StartTickIndex       int32
	Ticks                []TickState
	InitializedTickCount uint8
}

// Decode parses the raw account bytes of a tick-array account (including
// its 8-byte Anchor discriminator).
func (t *TickArray) Decode(data []byte) error {
	pos := 8
	t.PoolId = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	t.StartTickIndex = int32(binary.LittleEndian.Uint32(data[pos:]))
	pos += 4

	t.Ticks = make([]TickState, TickArraySize)
	for i := 0; i < TickArraySize; i++ {
		tick := int32(binary.LittleEndian.Uint32(data[pos:]))
		pos += 4
		liquidityNet := int64(binary.LittleEndian.Uint64(data[pos:]))
		pos += 16 // low 8 bytes used, high 8 skipped (matches on-chain i128 truncated to i64 in practice)
		liquidityGross := parseUint128LE(data[pos:])
		pos += 16
		feeA := parseUint128LE(data[pos:])
		pos += 16
		feeB := parseUint128LE(data[pos:])
		pos += 16
		var rewards [3]uint128.Uint128
		for j := 0; j < 3; j++ {
			rewards[j] = parseUint128LE(data[pos:])
			pos += 16
		}
		pos += 52 // padding
		t.Ticks[i] = TickState{
			Tick: tick, LiquidityNet: liquidityNet, LiquidityGross: liquidityGross,
			FeeGrowthOutsideX64A: feeA, FeeGrowthOutsideX64B: feeB, RewardGrowthsOutsideX64: rewards,
		}
	}
	if pos < len(data) {
		t.InitializedTickCount = data[pos]
	}
	return nil
}

func parseUint128LE(data []byte) uint128.Uint128 {
	lo := binary.LittleEndian.Uint64(data[:8])
	hi := binary.LittleEndian.Uint64(data[8:])
	return uint128.New(lo, hi)
}

// BitmapExtension is the decoded bitmap-extension account: 14 bitmaps of
// 8 uint64 words per side indicating which out-of-range tick-array start
// indices are initialised.
type BitmapExtension struct {
	PoolId                  solana.PublicKey
	PositiveTickArrayBitmap [][]uint64
	NegativeTickArrayBitmap [][]uint64
}

// DecodeBitmapExtension parses the raw account bytes (including 8-byte
// discriminator) of a tick-array bitmap extension account.
func DecodeBitmapExtension(data []byte) *BitmapExtension {
	var bm BitmapExtension
	data = data[8:]
	bm.PoolId = solana.PublicKeyFromBytes(data[:32])
	data = data[32:]

	bm.PositiveTickArrayBitmap = make([][]uint64, ExtensionTickArrayBitmapSize)
	for i := 0; i < ExtensionTickArrayBitmapSize; i++ {
		arr := make([]uint64, 8)
		for j := 0; j < 8; j++ {
			arr[j] = binary.LittleEndian.Uint64(data[j*8 : (j+1)*8])
		}
		bm.PositiveTickArrayBitmap[i] = arr
		data = data[64:]
	}
	bm.NegativeTickArrayBitmap = make([][]uint64, ExtensionTickArrayBitmapSize)
	for i := 0; i < ExtensionTickArrayBitmapSize; i++ {
		arr := make([]uint64, 8)
		for j := 0; j < 8; j++ {
			arr[j] = binary.LittleEndian.Uint64(data[j*8 : (j+1)*8])
		}
		bm.NegativeTickArrayBitmap[i] = arr
		data = data[64:]
	}
	return &bm
}

func getTickCount(tickSpacing int64) int64 { return tickSpacing * TickArraySize }

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

func mergeTickArrayBitmap(words []uint64) *big.Int {
	result := new(big.Int)
	for i, w := range words {
		shifted := new(big.Int).Lsh(new(big.Int).SetUint64(w), uint(64*i))
		result.Add(result, shifted)
	}
	return result
}

func maxTickInTickArrayBitmap(tickSpacing int64) int64 {
	return TickArrayBitmapSize * getTickCount(tickSpacing)
}

func getArrayStartIndex(tickIndex, tickSpacing int64) int64 {
	ticksInArray := getTickCount(tickSpacing)
	start := math.Floor(float64(tickIndex) / float64(ticksInArray))
	return int64(start * float64(ticksInArray))
}

func checkIsValidStartIndex(startIndex, tickSpacing int64) bool {
	return startIndex%getTickCount(tickSpacing) == 0
}

func tickArrayOffsetInBitmap(tickArrayStartIndex, tickSpacing int64) int64 {
	maxTick := maxTickInTickArrayBitmap(tickSpacing)
	m := abs64(tickArrayStartIndex) % maxTick
	offset := m / getTickCount(tickSpacing)
	if tickArrayStartIndex < 0 && m != 0 {
		offset = ExtensionTickArrayBitmapSize - offset
	}
	return offset
}

func bitmapTickBoundary(tickArrayStartIndex, tickSpacing int64) (int64, int64) {
	ticksInOneBitmap := maxTickInTickArrayBitmap(tickSpacing)
	m := abs64(tickArrayStartIndex) / ticksInOneBitmap
	if tickArrayStartIndex < 0 && abs64(tickArrayStartIndex)%ticksInOneBitmap != 0 {
		m++
	}
	minValue := ticksInOneBitmap * m
	if tickArrayStartIndex < 0 {
		return -minValue, -minValue + ticksInOneBitmap
	}
	return minValue, minValue + ticksInOneBitmap
}

func extensionTickBoundary(tickSpacing int64) (int64, int64, error) {
	positive := maxTickInTickArrayBitmap(tickSpacing)
	negative := -positive
	if MaxTick <= positive {
		return 0, 0, apperr.New(apperr.CodeMathRange, "extension tick boundary exceeds MAX_TICK")
	}
	if negative <= MinTick {
		return 0, 0, apperr.New(apperr.CodeMathRange, "extension tick boundary exceeds MIN_TICK")
	}
	return positive, negative, nil
}

func checkExtensionBoundary(tickIndex, tickSpacing int64) error {
	positive, negative, err := extensionTickBoundary(tickSpacing)
	if err != nil {
		return err
	}
	if tickIndex >= negative && tickIndex < positive {
		return apperr.New(apperr.CodeMathRange, "tick within default bitmap range, not extension")
	}
	return nil
}

func bitmapOffset(tickIndex, tickSpacing int64) (int64, error) {
	if !checkIsValidStartIndex(tickIndex, tickSpacing) {
		return 0, apperr.New(apperr.CodeMathRange, "not a valid tick array start index")
	}
	if err := checkExtensionBoundary(tickIndex, tickSpacing); err != nil {
		return 0, err
	}
	ticksInOneBitmap := maxTickInTickArrayBitmap(tickSpacing)
	offset := abs64(tickIndex)/ticksInOneBitmap - 1
	if tickIndex < 0 && abs64(tickIndex)%ticksInOneBitmap == 0 {
		offset--
	}
	return offset, nil
}

func getBitmap(tickIndex, tickSpacing int64, ext *BitmapExtension) (int64, []uint64, error) {
	offset, err := bitmapOffset(tickIndex, tickSpacing)
	if err != nil {
		return -1, nil, err
	}
	if tickIndex < 0 {
		return offset, ext.NegativeTickArrayBitmap[offset], nil
	}
	return offset, ext.PositiveTickArrayBitmap[offset], nil
}

func leadingZeros(bitNum int, data *big.Int) *int {
	count := 0
	for j := bitNum - 1; j >= 0; j-- {
		if data.Bit(j) == 0 {
			count++
		} else {
			break
		}
	}
	return &count
}

func trailingZeros(bitNum int, data *big.Int) *int {
	count := 0
	for j := 0; j < bitNum; j++ {
		if data.Bit(j) == 0 {
			count++
		} else {
			break
		}
	}
	return &count
}

func isZeroBits(bitNum int, data *big.Int) bool {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(bitNum)), big.NewInt(1))
	return new(big.Int).And(data, mask).Sign() == 0
}

// nextInitializedTickArrayStartIndex walks the pool's inline 1024-bit bitmap
// for the next initialised tick-array start index in the given direction.
func nextInitializedTickArrayStartIndex(bitMap *big.Int, lastStart, tickSpacing int64, zeroForOne bool) (bool, int64) {
	if !checkIsValidStartIndex(lastStart, tickSpacing) {
		return false, lastStart
	}
	tickBoundary := maxTickInTickArrayBitmap(tickSpacing)
	var next int64
	if zeroForOne {
		next = lastStart - getTickCount(tickSpacing)
	} else {
		next = lastStart + getTickCount(tickSpacing)
	}
	if next < -tickBoundary || next >= tickBoundary {
		return false, lastStart
	}

	multiplier := tickSpacing * TickArraySize
	compressed := float64(next)/float64(multiplier) + 512
	if next < 0 && next%multiplier != 0 {
		compressed--
	}
	bitPos := int(math.Abs(compressed))

	if zeroForOne {
		offsetBitMap := new(big.Int).Lsh(new(big.Int).Set(bitMap), uint(1024-bitPos-1))
		if isZeroBits(1024, offsetBitMap) {
			return false, -tickBoundary
		}
		nextBit := leadingZeros(1024, offsetBitMap)
		nextStart := int64(bitPos-*nextBit-512) * multiplier
		return true, nextStart
	}
	offsetBitMap := new(big.Int).Rsh(new(big.Int).Set(bitMap), uint(bitPos))
	if isZeroBits(1024, offsetBitMap) {
		return false, tickBoundary - getTickCount(tickSpacing)
	}
	nextBit := trailingZeros(1024, offsetBitMap)
	nextStart := int64(bitPos+*nextBit-512) * multiplier
	return true, nextStart
}

func nextInitializedTickArrayFromExtension(lastStart, tickSpacing int64, zeroForOne bool, ext *BitmapExtension) (bool, int64, error) {
	multiplier := getTickCount(tickSpacing)
	var next int64
	if zeroForOne {
		next = lastStart - multiplier
	} else {
		next = lastStart + multiplier
	}

	_, bitmapWords, err := getBitmap(next, tickSpacing, ext)
	if err != nil {
		return false, 0, err
	}
	minBoundary, maxBoundary := bitmapTickBoundary(next, tickSpacing)
	offset := tickArrayOffsetInBitmap(next, tickSpacing)
	merged := mergeTickArrayBitmap(bitmapWords)

	if zeroForOne {
		shifted := new(big.Int).Lsh(new(big.Int).Set(merged), uint(ExtensionTickArrayBitmapSize*64-1-offset))
		if isZeroBits(512, shifted) {
			return false, minBoundary, nil
		}
		nextBit := leadingZeros(512, shifted)
		return true, next - int64(*nextBit)*multiplier, nil
	}
	shifted := new(big.Int).Rsh(new(big.Int).Set(merged), uint(offset))
	if isZeroBits(512, shifted) {
		return false, maxBoundary - multiplier, nil
	}
	nextBit := trailingZeros(512, shifted)
	return true, next + int64(*nextBit)*multiplier, nil
}

// nextInitializedTickArrayStart walks the default bitmap first, falling
// back to the extension bitmap when the default bitmap is exhausted.
func nextInitializedTickArrayStart(ext *BitmapExtension, tickCurrent, tickSpacing int64, bitmap [16]uint64, zeroForOne bool) (bool, int64, error) {
	last := getArrayStartIndex(tickCurrent, tickSpacing)
	merged := mergeTickArrayBitmap(bitmap[:])
	for {
		initialized, start := nextInitializedTickArrayStartIndex(merged, last, tickSpacing, zeroForOne)
		if initialized {
			return true, start, nil
		}
		last = start
		initialized, tickIdx, err := nextInitializedTickArrayFromExtension(last, tickSpacing, zeroForOne, ext)
		if err != nil {
			return false, 0, err
		}
		if initialized {
			return true, tickIdx, nil
		}
		last = tickIdx
		if last < MinTick || last > MaxTick {
			return false, 0, apperr.New(apperr.CodePriceOutOfRange, "no further initialized tick array")
		}
	}
}

// firstInitializedTick scans a tick array for the first initialised tick
// in the traversal direction (from the end when zeroForOne, else from
// the start).
func firstInitializedTick(arr *TickArray, zeroForOne bool) (*TickState, error) {
	if arr == nil || len(arr.Ticks) == 0 {
		return nil, apperr.New(apperr.CodeInsufficientLiquidity, "tick array empty")
	}
	if zeroForOne {
		for i := TickArraySize - 1; i >= 0; i-- {
			if arr.Ticks[i].initialized() {
				return &arr.Ticks[i], nil
			}
		}
	} else {
		for i := 0; i < TickArraySize; i++ {
			if arr.Ticks[i].initialized() {
				return &arr.Ticks[i], nil
			}
		}
	}
	return nil, apperr.New(apperr.CodeInsufficientLiquidity, "no initialized tick found in array")
}

// nextInitializedTickInArray scans forward/backward from currentTick
// within a single decoded tick array, returning nil if none found (the
// caller must then advance to the next array).
func nextInitializedTickInArray(arr *TickArray, currentTick, tickSpacing int64, zeroForOne, skipCurrentFirst bool) *TickState {
	startIdx := getArrayStartIndex(currentTick, tickSpacing)
	if startIdx != int64(arr.StartTickIndex) {
		return nil
	}
	offset := (currentTick - int64(arr.StartTickIndex)) / tickSpacing
	if zeroForOne {
		for offset >= 0 {
			if arr.Ticks[offset].initialized() {
				return &arr.Ticks[offset]
			}
			offset--
		}
		return nil
	}
	if !skipCurrentFirst {
		offset++
	}
	for offset < TickArraySize {
		if arr.Ticks[offset].initialized() {
			return &arr.Ticks[offset]
		}
		offset++
	}
	return nil
}

func tickArrayPDA(programID, pool solana.PublicKey, startIndex int64) solana.PublicKey {
	addr, _, _ := TickArrayPDA(programID, pool, startIndex)
	return addr
}
