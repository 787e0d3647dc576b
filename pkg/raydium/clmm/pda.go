package clmm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// CanonicalMintOrder returns (mintA, mintB, swapped) where mintA < mintB in
// byte order. swapped is true when the caller's (mint0, mint1) had to be
// flipped to reach canonical order; callers must invert initial_price in
// that case (testable property 1: mint-order canonicalisation).
func CanonicalMintOrder(mint0, mint1 solana.PublicKey) (solana.PublicKey, solana.PublicKey, bool) {
	if bytesLess(mint0, mint1) {
		return mint0, mint1, false
	}
	return mint1, mint0, true
}

func bytesLess(a, b solana.PublicKey) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func be16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func be32(v int64) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

// AmmConfigPDA derives ["amm_config", index_be].
func AmmConfigPDA(programID solana.PublicKey, index uint16) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("amm_config"), be16(index)}, programID)
}

// PoolPDA derives ["pool", amm_config, mint_a, mint_b] with mint_a < mint_b.
func PoolPDA(programID, ammConfig, mintA, mintB solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("pool"), ammConfig.Bytes(), mintA.Bytes(), mintB.Bytes()}, programID)
}

// VaultPDA derives ["pool_vault", pool, mint].
func VaultPDA(programID, pool, mint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("pool_vault"), pool.Bytes(), mint.Bytes()}, programID)
}

// ObservationPDA derives ["observation", pool].
func ObservationPDA(programID, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("observation"), pool.Bytes()}, programID)
}

// TickArrayPDA derives ["tick_array", pool, start_index_be].
func TickArrayPDA(programID, pool solana.PublicKey, startIndex int64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("tick_array"), pool.Bytes(), be32(startIndex)}, programID)
}

// BitmapExtensionPDA derives ["pool_tick_array_bitmap_extension", pool].
func BitmapExtensionPDA(programID, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("pool_tick_array_bitmap_extension"), pool.Bytes()}, programID)
}

// PositionPDA derives ["position", nft_mint].
func PositionPDA(programID, nftMint solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte("position"), nftMint.Bytes()}, programID)
}

// ProtocolPositionPDA derives ["position", pool, tick_lower_be, tick_upper_be]
// — the account shared by every NFT holder of the same range.
func ProtocolPositionPDA(programID, pool solana.PublicKey, tickLower, tickUpper int64) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{
		[]byte("position"), pool.Bytes(), be32(tickLower), be32(tickUpper),
	}, programID)
}

// CPMMAuthorityPDA derives the fixed CPMM vault/LP-mint authority.
func CPMMAuthorityPDA(cpmmProgramID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(AuthSeed)}, cpmmProgramID)
}

// ClassicAMMSeeds derives the classic (V2) AMM's PDA family: pool,
// coin/pc vaults, LP mint, open-orders, target-orders, withdraw-queue.
// Grounded on original_source/crates/utils/src/solana/calculators.rs.
type ClassicAMMAddresses struct {
	Pool           solana.PublicKey
	CoinVault      solana.PublicKey
	PCVault        solana.PublicKey
	LPMint         solana.PublicKey
	OpenOrders     solana.PublicKey
	TargetOrders   solana.PublicKey
	WithdrawQueue  solana.PublicKey
}

func ClassicAMMSeeds(programID, mint0, mint1 solana.PublicKey) (*ClassicAMMAddresses, error) {
	mintA, mintB := mint0, mint1
	if !bytesLess(mintA, mintB) {
		mintA, mintB = mintB, mintA
	}
	pool, _, err := solana.FindProgramAddress([][]byte{[]byte("amm_associated_seed"), mintA.Bytes(), mintB.Bytes()}, programID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "derive classic amm pool pda", err)
	}
	coinVault, _, err := solana.FindProgramAddress([][]byte{[]byte("coin_vault_associated_seed"), pool.Bytes()}, programID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "derive coin vault pda", err)
	}
	pcVault, _, err := solana.FindProgramAddress([][]byte{[]byte("pc_vault_associated_seed"), pool.Bytes()}, programID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "derive pc vault pda", err)
	}
	lpMint, _, err := solana.FindProgramAddress([][]byte{[]byte("lp_mint_associated_seed"), pool.Bytes()}, programID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "derive lp mint pda", err)
	}
	openOrders, _, err := solana.FindProgramAddress([][]byte{[]byte("open_order_associated_seed"), pool.Bytes()}, programID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "derive open orders pda", err)
	}
	targetOrders, _, err := solana.FindProgramAddress([][]byte{[]byte("target_associated_seed"), pool.Bytes()}, programID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "derive target orders pda", err)
	}
	withdrawQueue, _, err := solana.FindProgramAddress([][]byte{[]byte("withdraw_associated_seed"), pool.Bytes()}, programID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeRPC, "derive withdraw queue pda", err)
	}
	return &ClassicAMMAddresses{
		Pool: pool, CoinVault: coinVault, PCVault: pcVault, LPMint: lpMint,
		OpenOrders: openOrders, TargetOrders: targetOrders, WithdrawQueue: withdrawQueue,
	}, nil
}
