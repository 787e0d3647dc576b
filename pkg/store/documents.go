package store

import "time"

// PoolDocument is the CLMM/CPMM pool record. Concurrent upserts for the
// same pool converge because the API-created record and the
// event-confirmed record set disjoint fields, merged on write via
// per-field $set rather than whole-document replace.
type PoolDocument struct {
	PoolAddress    string    `bson:"pool_address"`
	TokenAMint     string    `bson:"token_a_mint"`
	TokenBMint     string    `bson:"token_b_mint"`
	TokenADecimals uint8     `bson:"token_a_decimals"`
	TokenBDecimals uint8     `bson:"token_b_decimals"`
	FeeRate        uint32    `bson:"fee_rate"`
	SqrtPriceX64   string    `bson:"sqrt_price_x64,omitempty"`
	InitialTick    int32     `bson:"initial_tick"`
	Creator        string    `bson:"creator"`
	ClmmConfig     string    `bson:"clmm_config"`
	OpenTime       uint64    `bson:"open_time"`
	CreatedAt      time.Time `bson:"created_at,omitempty"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

// TokenDocument is the mint metadata record.
type TokenDocument struct {
	MintAddress       string    `bson:"mint_address"`
	Name              string    `bson:"name"`
	Symbol            string    `bson:"symbol"`
	URI               string    `bson:"uri"`
	Decimals          uint8     `bson:"decimals"`
	Supply            uint64    `bson:"supply"`
	Creator           string    `bson:"creator"`
	HasWhitelist      bool      `bson:"has_whitelist"`
	WhitelistDeadline int64     `bson:"whitelist_deadline"`
	CreatedAt         time.Time `bson:"created_at"`
}

// DepositDocument is keyed by (signature, event_index), its natural key.
type DepositDocument struct {
	Signature     string    `bson:"signature"`
	EventIndex    int       `bson:"event_index"`
	Slot          uint64    `bson:"slot"`
	User          string    `bson:"user"`
	TokenMint     string    `bson:"token_mint"`
	ProjectConfig string    `bson:"project_config"`
	Amount        uint64    `bson:"amount"`
	TotalRaised   uint64    `bson:"total_raised"`
	RelatedPool   string    `bson:"related_pool,omitempty"`
	DepositType   uint8     `bson:"deposit_type"`
	DepositedAt   time.Time `bson:"deposited_at"`
}

// NftClaimDocument is keyed by (nft_mint, claimer, signature).
type NftClaimDocument struct {
	NftMint          string    `bson:"nft_mint"`
	Claimer          string    `bson:"claimer"`
	Signature        string    `bson:"signature"`
	EventIndex       int       `bson:"event_index"`
	Slot             uint64    `bson:"slot"`
	Referrer         string    `bson:"referrer,omitempty"`
	Tier             uint8     `bson:"tier"`
	TierBonusRateBps uint16    `bson:"tier_bonus_rate_bps"`
	ClaimAmount      uint64    `bson:"claim_amount"`
	TokenMint        string    `bson:"token_mint"`
	ClaimType        uint8     `bson:"claim_type"`
	TotalClaimed     uint64    `bson:"total_claimed"`
	PoolAddress      string    `bson:"pool_address,omitempty"`
	IsEmergencyClaim bool      `bson:"is_emergency_claim"`
	ClaimedAt        time.Time `bson:"claimed_at"`
}

// RewardDistributionDocument is keyed by distribution_id.
type RewardDistributionDocument struct {
	DistributionID  uint64    `bson:"distribution_id"`
	RewardPool      string    `bson:"reward_pool"`
	Recipient       string    `bson:"recipient"`
	Referrer        string    `bson:"referrer,omitempty"`
	RewardTokenMint string    `bson:"reward_token_mint"`
	RewardAmount    uint64    `bson:"reward_amount"`
	BaseAmount      uint64    `bson:"base_amount"`
	BonusAmount     uint64    `bson:"bonus_amount"`
	RewardType      uint8     `bson:"reward_type"`
	RewardSource    uint8     `bson:"reward_source"`
	IsLocked        bool      `bson:"is_locked"`
	UnlockTimestamp *int64    `bson:"unlock_timestamp,omitempty"`
	DistributedAt   time.Time `bson:"distributed_at"`
}

// LPChangeDocument is keyed by (signature, event_index).
type LPChangeDocument struct {
	Signature     string `bson:"signature"`
	EventIndex    int    `bson:"event_index"`
	Slot          uint64 `bson:"slot"`
	Pool          string `bson:"pool"`
	Owner         string `bson:"owner"`
	IsDeposit     bool   `bson:"is_deposit"`
	LpDelta       uint64 `bson:"lp_delta"`
	Vault0Balance uint64 `bson:"vault0_balance"`
	Vault1Balance uint64 `bson:"vault1_balance"`
	Token0Amount  uint64 `bson:"token0_amount"`
	Token1Amount  uint64 `bson:"token1_amount"`
}

// SwapDocument is keyed by (signature, event_index).
type SwapDocument struct {
	Signature   string `bson:"signature"`
	EventIndex  int    `bson:"event_index"`
	Slot        uint64 `bson:"slot"`
	Pool        string `bson:"pool"`
	Trader      string `bson:"trader"`
	ZeroForOne  bool   `bson:"zero_for_one"`
	AmountIn    uint64 `bson:"amount_in"`
	AmountOut   uint64 `bson:"amount_out"`
	ProtocolFee uint64 `bson:"protocol_fee"`
}

// CheckpointDocument is the per-program resume state, appended-then-
// renamed for atomicity at the filesystem layer the original snapshot
// mechanism used; here it's a single upserted document per program id,
// which Mongo already writes atomically.
type CheckpointDocument struct {
	ProgramID      string    `bson:"program_id"`
	LastSlot       uint64    `bson:"last_slot"`
	LastSignature  string    `bson:"last_signature"`
	DedupSnapshot  []string  `bson:"dedup_snapshot"`
	SavedAt        time.Time `bson:"saved_at"`
}
