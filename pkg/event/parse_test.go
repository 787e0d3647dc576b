package event

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raydium-indexer/clmm-indexer/pkg/anchor"
)

func encodeSwapLog(pool, trader solana.PublicKey, zeroForOne bool, amountIn, amountOut, fee uint64) string {
	body := make([]byte, 32+32+1+8+8+8)
	off := 0
	copy(body[off:], pool[:])
	off += 32
	copy(body[off:], trader[:])
	off += 32
	if zeroForOne {
		body[off] = 1
	}
	off++
	binary.LittleEndian.PutUint64(body[off:], amountIn)
	off += 8
	binary.LittleEndian.PutUint64(body[off:], amountOut)
	off += 8
	binary.LittleEndian.PutUint64(body[off:], fee)

	disc := anchor.GetDiscriminator("event", "SwapEvent")
	raw := append(append([]byte{}, disc...), body...)
	return logDataPrefix + base64.StdEncoding.EncodeToString(raw)
}

func TestParseLogsDecodesSwap(t *testing.T) {
	pool := solana.NewWallet().PublicKey()
	trader := solana.NewWallet().PublicKey()
	sig := solana.Signature{}

	logs := []string{
		"Program 11111111111111111111111111111111 invoke [1]",
		encodeSwapLog(pool, trader, true, 1000, 990, 3),
		"Program 11111111111111111111111111111111 success",
	}

	events, stats, err := ParseLogs(logs, sig, 42)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, stats.Parsed)
	assert.Equal(t, 0, stats.Unknown)

	swap, ok := events[0].(Swap)
	require.True(t, ok)
	assert.True(t, swap.Pool.Equals(pool))
	assert.True(t, swap.Trader.Equals(trader))
	assert.True(t, swap.ZeroForOne)
	assert.Equal(t, uint64(1000), swap.AmountIn)
	assert.Equal(t, uint64(990), swap.AmountOut)
	assert.Equal(t, uint64(3), swap.ProtocolFee)
	assert.Equal(t, uint64(42), swap.Slot)
}

func TestParseLogsCountsUnknown(t *testing.T) {
	logs := []string{
		logDataPrefix + base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}),
	}
	events, stats, err := ParseLogs(logs, solana.Signature{}, 1)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 1, stats.Unknown)
}

func TestLooksTruncated(t *testing.T) {
	assert.True(t, LooksTruncated([]string{"Log truncated, showing first 10000 of 20000 bytes"}))
	assert.False(t, LooksTruncated([]string{"Program log: ok"}))
}
