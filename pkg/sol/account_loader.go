package sol

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/raydium/clmm"
	"github.com/raydium-indexer/clmm-indexer/pkg/raydium/cpmm"
)

// maxAccountsPerRequest is the RPC-enforced ceiling on getMultipleAccounts.
const maxAccountsPerRequest = 100

// fetchMultiple loads every account in keys, batching into chunks of
// maxAccountsPerRequest, and returns the raw bytes in the same order as
// keys (nil at an index means the account does not exist).
func (c *Client) fetchMultiple(ctx context.Context, keys []solana.PublicKey) ([][]byte, error) {
	out := make([][]byte, len(keys))
	for start := 0; start < len(keys); start += maxAccountsPerRequest {
		end := start + maxAccountsPerRequest
		if end > len(keys) {
			end = len(keys)
		}
		res, err := c.GetMultipleAccountsWithOpts(ctx, keys[start:end])
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeRPC, "get multiple accounts", err)
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

// missing builds the AccountMissing error the spec names for a nil slot.
func missing(pubkey solana.PublicKey) error {
	return apperr.New(apperr.CodeNotFound, "account missing").WithField("pubkey", pubkey.String())
}

// deserializationError builds the DeserializationError the spec names.
func deserializationError(pubkey solana.PublicKey, kind string, cause error) error {
	return apperr.Wrap(apperr.CodeParse, "deserialize account", cause).
		WithField("pubkey", pubkey.String()).
		WithField("kind", kind)
}

// CLMMBundle is every account a CLMM swap quote needs, loaded by
// LoadCLMMPool and deserialised into the program's Anchor layouts.
type CLMMBundle struct {
	Pool            *clmm.Pool
	AmmConfig       *clmm.AmmConfig
	Mint0Data       []byte
	Mint1Data       []byte
	Vault0Amount    uint64
	Vault1Amount    uint64
	BitmapExtension *clmm.BitmapExtension
	TickArrays      map[int64]*clmm.TickArray
}

// LoadCLMMPool fetches the pool account, its amm config, both mints, both
// vaults, the bitmap extension, and the requested tick-array start
// indices, and deserialises every one of them. It takes two
// getMultipleAccounts fetches, not one: the pool account first, then the
// accounts its decoded fields reference, in a second batch.
// Fails with AccountMissing or DeserializationError per §4.3, and with
// InsufficientLiquidity when the decoded pool carries zero liquidity.
func (c *Client) LoadCLMMPool(ctx context.Context, poolID solana.PublicKey, tickArrayStarts []int64) (*CLMMBundle, error) {
	poolRaw, err := c.fetchMultiple(ctx, []solana.PublicKey{poolID})
	if err != nil {
		return nil, err
	}
	if poolRaw[0] == nil {
		return nil, missing(poolID)
	}
	pool := &clmm.Pool{}
	if err := pool.Decode(poolRaw[0]); err != nil {
		return nil, deserializationError(poolID, "clmm.Pool", err)
	}
	pool.PoolId = poolID

	bitmapExtPDA, _, err := clmm.BitmapExtensionPDA(clmm.RaydiumProgramID, poolID)
	if err != nil {
		return nil, err
	}

	tickArrayPDAs := make([]solana.PublicKey, len(tickArrayStarts))
	for i, start := range tickArrayStarts {
		pda, _, err := clmm.TickArrayPDA(clmm.RaydiumProgramID, poolID, start)
		if err != nil {
			return nil, err
		}
		tickArrayPDAs[i] = pda
	}

	keys := append([]solana.PublicKey{
		pool.AmmConfig, pool.TokenMint0, pool.TokenMint1,
		pool.TokenVault0, pool.TokenVault1, bitmapExtPDA,
	}, tickArrayPDAs...)

	data, err := c.fetchMultiple(ctx, keys)
	if err != nil {
		return nil, err
	}
	ammConfigRaw, mint0Raw, mint1Raw, vault0Raw, vault1Raw, bitmapExtRaw := data[0], data[1], data[2], data[3], data[4], data[5]
	tickArrayRaw := data[6:]

	if ammConfigRaw == nil {
		return nil, missing(pool.AmmConfig)
	}
	ammConfig := &clmm.AmmConfig{}
	if err := ammConfig.Decode(ammConfigRaw); err != nil {
		return nil, deserializationError(pool.AmmConfig, "clmm.AmmConfig", err)
	}
	pool.FeeRate = ammConfig.TradeFeeRate

	if mint0Raw == nil {
		return nil, missing(pool.TokenMint0)
	}
	if mint1Raw == nil {
		return nil, missing(pool.TokenMint1)
	}
	if vault0Raw == nil {
		return nil, missing(pool.TokenVault0)
	}
	if vault1Raw == nil {
		return nil, missing(pool.TokenVault1)
	}
	vault0Amount, err := clmmVaultAmount(vault0Raw)
	if err != nil {
		return nil, deserializationError(pool.TokenVault0, "token_account", err)
	}
	vault1Amount, err := clmmVaultAmount(vault1Raw)
	if err != nil {
		return nil, deserializationError(pool.TokenVault1, "token_account", err)
	}

	var bitmapExt *clmm.BitmapExtension
	if bitmapExtRaw != nil {
		bitmapExt = clmm.DecodeBitmapExtension(bitmapExtRaw)
		pool.ExBitmapAddress = bitmapExtPDA
	}
	pool.BitmapExtension = bitmapExt

	tickArrays := make(map[int64]*clmm.TickArray, len(tickArrayStarts))
	for i, start := range tickArrayStarts {
		raw := tickArrayRaw[i]
		if raw == nil {
			continue // caller asked speculatively; absence is not fatal here
		}
		arr := &clmm.TickArray{}
		if err := arr.Decode(raw); err != nil {
			return nil, deserializationError(tickArrayPDAs[i], "clmm.TickArray", err)
		}
		tickArrays[start] = arr
	}
	pool.TickArrayCache = tickArrays

	if pool.Liquidity.IsZero() {
		return nil, apperr.New(apperr.CodeInsufficientLiquidity, "pool has zero liquidity").
			WithField("pool", poolID.String())
	}

	return &CLMMBundle{
		Pool:            pool,
		AmmConfig:       ammConfig,
		Mint0Data:       mint0Raw,
		Mint1Data:       mint1Raw,
		Vault0Amount:    vault0Amount,
		Vault1Amount:    vault1Amount,
		BitmapExtension: bitmapExt,
		TickArrays:      tickArrays,
	}, nil
}

func clmmVaultAmount(accountData []byte) (uint64, error) {
	return clmm.VaultAmount(accountData)
}

// CPMMBundle is every account a CPMM swap quote needs.
type CPMMBundle struct {
	Pool         *cpmm.Pool
	Vault0Amount uint64
	Vault1Amount uint64
}

// LoadCPMMPool fetches a CPMM pool account, then its two vaults in a
// second fetch, and applies the fetched reserves onto the decoded pool.
func (c *Client) LoadCPMMPool(ctx context.Context, poolID solana.PublicKey) (*CPMMBundle, error) {
	poolRaw, err := c.fetchMultiple(ctx, []solana.PublicKey{poolID})
	if err != nil {
		return nil, err
	}
	if poolRaw[0] == nil {
		return nil, missing(poolID)
	}
	pool := &cpmm.Pool{}
	if err := pool.Decode(poolRaw[0]); err != nil {
		return nil, deserializationError(poolID, "cpmm.Pool", err)
	}
	pool.PoolId = poolID

	data, err := c.fetchMultiple(ctx, []solana.PublicKey{pool.Token0Vault, pool.Token1Vault})
	if err != nil {
		return nil, err
	}
	if data[0] == nil {
		return nil, missing(pool.Token0Vault)
	}
	if data[1] == nil {
		return nil, missing(pool.Token1Vault)
	}
	vault0, err := cpmm.VaultAmount(data[0])
	if err != nil {
		return nil, deserializationError(pool.Token0Vault, "token_account", err)
	}
	vault1, err := cpmm.VaultAmount(data[1])
	if err != nil {
		return nil, deserializationError(pool.Token1Vault, "token_account", err)
	}
	pool.ApplyReserves(vault0, vault1)

	if !pool.Reserve0.IsPositive() || !pool.Reserve1.IsPositive() {
		return nil, apperr.New(apperr.CodeInsufficientLiquidity, "pool has zero reserves").
			WithField("pool", poolID.String())
	}

	return &CPMMBundle{Pool: pool, Vault0Amount: vault0, Vault1Amount: vault1}, nil
}
