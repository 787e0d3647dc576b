// Package event decodes per-event Anchor discriminators out of program
// log lines into typed ParsedEvent values.
package event

import (
	"github.com/gagliardetto/solana-go"
)

// Kind identifies one of the seven event shapes this indexer understands.
type Kind string

const (
	KindTokenCreation      Kind = "token_creation"
	KindPoolCreation       Kind = "pool_creation"
	KindNftClaim           Kind = "nft_claim"
	KindRewardDistribution Kind = "reward_distribution"
	KindDeposit            Kind = "deposit"
	KindLPChange           Kind = "lp_change"
	KindSwap               Kind = "swap"
)

// Meta carries provenance every parsed event shares: the transaction that
// emitted it, the slot it landed in, and its position among the events
// parsed from that one transaction (used as part of the dedup key).
type Meta struct {
	Signature  solana.Signature
	Slot       uint64
	EventIndex int
}

// Event is the common interface every parsed event shape satisfies.
type Event interface {
	Kind() Kind
}

// TokenCreation records a new SPL/Token-2022 mint with off-chain metadata.
type TokenCreation struct {
	Meta
	MintAddress       solana.PublicKey
	Name              string
	Symbol            string
	URI               string
	Decimals          uint8
	Supply            uint64
	Creator           solana.PublicKey
	HasWhitelist      bool
	WhitelistDeadline int64
	CreatedAt         int64
}

func (TokenCreation) Kind() Kind { return KindTokenCreation }

// PoolCreation records a new CLMM pool coming into existence.
type PoolCreation struct {
	Meta
	PoolAddress    solana.PublicKey
	TokenAMint     solana.PublicKey
	TokenBMint     solana.PublicKey
	TokenADecimals uint8
	TokenBDecimals uint8
	FeeRate        uint32
	SqrtPriceX64   [16]byte // raw u128, left for the caller to widen
	InitialTick    int32
	Creator        solana.PublicKey
	ClmmConfig     solana.PublicKey
	OpenTime       uint64
}

func (PoolCreation) Kind() Kind { return KindPoolCreation }

// NftClaim records a tiered reward-NFT claim, with an optional referrer.
type NftClaim struct {
	Meta
	NftMint             solana.PublicKey
	Claimer             solana.PublicKey
	Referrer            *solana.PublicKey
	Tier                uint8
	TierBonusRateBps    uint16
	ClaimAmount         uint64
	TokenMint           solana.PublicKey
	RewardMultiplierBps uint16
	BonusAmount         uint64
	ClaimType           uint8
	TotalClaimed        uint64
	PoolAddress         *solana.PublicKey
	IsEmergencyClaim    bool
	ClaimedAt           int64
}

func (NftClaim) Kind() Kind { return KindNftClaim }

// RewardDistribution records one reward payout, optionally locked with a
// vesting unlock time.
type RewardDistribution struct {
	Meta
	DistributionID  uint64
	RewardPool      solana.PublicKey
	Recipient       solana.PublicKey
	Referrer        *solana.PublicKey
	RewardTokenMint solana.PublicKey
	RewardAmount    uint64
	BaseAmount      uint64
	BonusAmount     uint64
	RewardType      uint8
	RewardSource    uint8
	RelatedAddress  *solana.PublicKey
	MultiplierBps   uint16
	IsLocked        bool
	UnlockTimestamp *int64
	LockDays        uint16
	DistributedAt   int64
}

func (RewardDistribution) Kind() Kind { return KindRewardDistribution }

// Deposit records a user contribution into a launch/fundraise project,
// optionally tied to the pool it later seeds.
type Deposit struct {
	Meta
	User          solana.PublicKey
	TokenMint     solana.PublicKey
	ProjectConfig solana.PublicKey
	Amount        uint64
	TotalRaised   uint64
	RelatedPool   *solana.PublicKey
	DepositType   uint8
	DepositedAt   int64
}

func (Deposit) Kind() Kind { return KindDeposit }

// LPChange records a deposit or withdrawal against a pool's LP supply,
// alongside the vault balances immediately after the change.
type LPChange struct {
	Meta
	Pool          solana.PublicKey
	Owner         solana.PublicKey
	IsDeposit     bool
	LpDelta       uint64
	Vault0Balance uint64
	Vault1Balance uint64
	Token0Amount  uint64
	Token1Amount  uint64
}

func (LPChange) Kind() Kind { return KindLPChange }

// Swap records one swap's direction, amounts, and protocol fee taken.
type Swap struct {
	Meta
	Pool        solana.PublicKey
	Trader      solana.PublicKey
	ZeroForOne  bool
	AmountIn    uint64
	AmountOut   uint64
	ProtocolFee uint64
}

func (Swap) Kind() Kind { return KindSwap }
