// Package position discovers a wallet's CLMM position NFTs across both
// the classic SPL Token program and Token-2022, and matches them against
// a target pool/tick-range.
package position

import (
	"context"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"lukechampine.com/uint128"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/raydium/clmm"
	"github.com/raydium-indexer/clmm-indexer/pkg/sol"
)

const (
	tokenAccountSize      = 165
	mintDecimalsOffset    = 44
	maxAccountsPerBatch   = 100
	maxDiscoveryRetries   = 3
	discoveryBackoffBase  = 100 * time.Millisecond
)

// NftInfo is one position NFT held by a wallet: its token account holds
// amount == 1 of a decimals == 0 mint, and the position account at its
// derived PDA exists. The position state itself is not decoded.
type NftInfo struct {
	NftMint      solana.PublicKey
	NftAccount   solana.PublicKey
	PositionPDA  solana.PublicKey
	TokenProgram solana.PublicKey
}

// Position is a verified, Anchor-deserialised personal position state
// joined back to the NFT that owns it.
type Position struct {
	NftMint      solana.PublicKey
	NftAccount   solana.PublicKey
	PositionKey  solana.PublicKey
	TokenProgram solana.PublicKey
	PoolId       solana.PublicKey
	TickLower    int32
	TickUpper    int32
	Liquidity    uint128.Uint128
}

// decodeState parses a PersonalPositionState account (including its 8-byte
// Anchor discriminator).
func (p *Position) decodeState(data []byte) error {
	if len(data) > 8 {
		data = data[8:]
	}
	if len(data) < 273 {
		return apperr.New(apperr.CodeParse, "personal position state too short").WithField("len", len(data))
	}
	off := 1 // bump
	pubkey := func() solana.PublicKey { v := solana.PublicKeyFromBytes(data[off : off+32]); off += 32; return v }
	i32 := func() int32 { v := int32(binary.LittleEndian.Uint32(data[off : off+4])); off += 4; return v }
	u128 := func() uint128.Uint128 { v := uint128.FromBytes(data[off : off+16]); off += 16; return v }

	_ = pubkey() // nft_mint (already known from the NFT account that led us here)
	p.PoolId = pubkey()
	p.TickLower = i32()
	p.TickUpper = i32()
	p.Liquidity = u128()
	return nil
}

// GetUserPositionNfts enumerates every candidate position NFT a wallet
// holds, under both the classic Token program and Token-2022,
// concurrently, and returns them sorted by NFT mint for deterministic
// ordering.
func GetUserPositionNfts(ctx context.Context, client *sol.Client, wallet solana.PublicKey) ([]NftInfo, error) {
	var wg sync.WaitGroup
	type partial struct {
		nfts []NftInfo
		err  error
	}
	results := make(chan partial, 2)

	for _, program := range []solana.PublicKey{solana.TokenProgramID, clmm.Token2022ProgramID} {
		wg.Add(1)
		go func(programID solana.PublicKey) {
			defer wg.Done()
			nfts, err := getPositionNftsByProgram(ctx, client, wallet, programID)
			results <- partial{nfts: nfts, err: err}
		}(program)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var all []NftInfo
	for r := range results {
		if r.err != nil {
			return nil, r.err
		}
		all = append(all, r.nfts...)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].NftMint.String() < all[j].NftMint.String() })
	return all, nil
}

// getPositionNftsByProgram fetches every token account the wallet owns
// under programID, pre-filters to decimals == 0 && amount == 1, derives
// each candidate's position PDA, and batch-verifies existence via
// getMultipleAccounts.
func getPositionNftsByProgram(ctx context.Context, client *sol.Client, wallet, programID solana.PublicKey) ([]NftInfo, error) {
	accounts, err := client.GetTokenAccountsByOwner(ctx, wallet,
		&rpc.GetTokenAccountsConfig{ProgramId: &programID},
		&rpc.GetTokenAccountsOpts{Encoding: "base64"},
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "get token accounts by owner", err)
	}

	type candidate struct {
		mint    solana.PublicKey
		account solana.PublicKey
		pda     solana.PublicKey
	}
	var candidates []candidate
	for _, acc := range accounts.Value {
		data := acc.Account.Data.GetBinary()
		if len(data) < tokenAccountSize {
			continue
		}
		mint := solana.PublicKeyFromBytes(data[0:32])
		amount := binary.LittleEndian.Uint64(data[64:72])
		if amount != 1 {
			continue
		}
		pda, _, err := clmm.PositionPDA(clmm.RaydiumProgramID, mint)
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{mint: mint, account: acc.Pubkey, pda: pda})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	mintKeys := make([]solana.PublicKey, len(candidates))
	for i, c := range candidates {
		mintKeys[i] = c.mint
	}
	mintData, err := batchFetchWithRetry(ctx, client, mintKeys)
	if err != nil {
		return nil, err
	}

	filtered := candidates[:0]
	for i, c := range candidates {
		if mintData[i] == nil || len(mintData[i]) <= mintDecimalsOffset {
			continue
		}
		if mintData[i][mintDecimalsOffset] != 0 {
			continue
		}
		filtered = append(filtered, c)
	}
	if len(filtered) == 0 {
		return nil, nil
	}

	pdaKeys := make([]solana.PublicKey, len(filtered))
	for i, c := range filtered {
		pdaKeys[i] = c.pda
	}
	positionData, err := batchFetchWithRetry(ctx, client, pdaKeys)
	if err != nil {
		return nil, err
	}

	var out []NftInfo
	for i, c := range filtered {
		if positionData[i] == nil {
			continue
		}
		out = append(out, NftInfo{
			NftMint:      c.mint,
			NftAccount:   c.account,
			PositionPDA:  c.pda,
			TokenProgram: programID,
		})
	}
	return out, nil
}

// batchFetchWithRetry chunks keys into getMultipleAccounts-sized batches
// and retries each batch up to maxDiscoveryRetries times with exponential
// backoff on transient RPC errors.
func batchFetchWithRetry(ctx context.Context, client *sol.Client, keys []solana.PublicKey) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for start := 0; start < len(keys); start += maxAccountsPerBatch {
		end := start + maxAccountsPerBatch
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]

		var res *rpc.GetMultipleAccountsResult
		var err error
		for attempt := 0; attempt <= maxDiscoveryRetries; attempt++ {
			res, err = client.GetMultipleAccountsWithOpts(ctx, chunk)
			if err == nil {
				break
			}
			if attempt == maxDiscoveryRetries {
				return nil, apperr.Wrap(apperr.CodeRPC, "batch verify position accounts", err)
			}
			delay := discoveryBackoffBase * time.Duration(1<<uint(attempt))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		for i, acc := range res.Value {
			if acc == nil {
				continue
			}
			out[start+i] = acc.Data.GetBinary()
		}
	}
	return out, nil
}

// FindExistingPosition returns the first NFT (by deterministic mint
// order) whose verified position account matches the target pool and
// tick range, or nil if the wallet holds no such position.
func FindExistingPosition(ctx context.Context, client *sol.Client, wallet, poolID solana.PublicKey, tickLower, tickUpper int32) (*Position, error) {
	nfts, err := GetUserPositionNfts(ctx, client, wallet)
	if err != nil {
		return nil, err
	}
	if len(nfts) == 0 {
		return nil, nil
	}

	pdaKeys := make([]solana.PublicKey, len(nfts))
	for i, n := range nfts {
		pdaKeys[i] = n.PositionPDA
	}
	positionData, err := batchFetchWithRetry(ctx, client, pdaKeys)
	if err != nil {
		return nil, err
	}

	for i, n := range nfts {
		if positionData[i] == nil {
			continue
		}
		pos := &Position{
			NftMint:      n.NftMint,
			NftAccount:   n.NftAccount,
			PositionKey:  n.PositionPDA,
			TokenProgram: n.TokenProgram,
		}
		if err := pos.decodeState(positionData[i]); err != nil {
			continue
		}
		if pos.PoolId.Equals(poolID) && pos.TickLower == tickLower && pos.TickUpper == tickUpper {
			return pos, nil
		}
	}
	return nil, nil
}
