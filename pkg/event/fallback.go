package event

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/sol"
)

// maxSupportedTxVersion allows both legacy and v0 transactions; Raydium
// instructions only ever appear in one or the other depending on the
// wallet that built them.
var maxSupportedTxVersion uint64 = 0

// FetchFullLogs re-fetches a transaction by signature via getTransaction
// and returns its complete log lines, for use when the live WebSocket
// log stream truncated them (see LooksTruncated).
func FetchFullLogs(ctx context.Context, client *sol.Client, sig solana.Signature) ([]string, uint64, error) {
	res, err := client.GetTransactionWithOpts(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxSupportedTxVersion,
	})
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeRPC, "get transaction", err).WithField("signature", sig.String())
	}
	if res == nil || res.Meta == nil {
		return nil, 0, apperr.New(apperr.CodeNotFound, "transaction not found").WithField("signature", sig.String())
	}
	return res.Meta.LogMessages, uint64(res.Slot), nil
}

// ParseSignature parses logs for sig, falling back to a full
// getTransaction fetch first when the live log lines look truncated.
func ParseSignature(ctx context.Context, client *sol.Client, sig solana.Signature, logs []string, slot uint64) ([]Event, Stats, error) {
	if LooksTruncated(logs) {
		fullLogs, fullSlot, err := FetchFullLogs(ctx, client, sig)
		if err == nil {
			logs, slot = fullLogs, fullSlot
		}
	}
	return ParseLogs(logs, sig, slot)
}
