package event

import (
	"encoding/base64"
	"encoding/binary"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
	"github.com/raydium-indexer/clmm-indexer/pkg/anchor"
)

// logDataPrefix is how the validator tags a base64 `emit!`-ed event
// inside a transaction's log lines.
const logDataPrefix = "Program data: "

// truncationMarker is the text Solana RPC inserts in place of dropped
// log lines when a transaction's log output exceeded its size budget.
const truncationMarker = "Log truncated"

var discriminatorKind = map[[8]byte]Kind{}

func register(name string, kind Kind) {
	var d [8]byte
	copy(d[:], anchor.GetDiscriminator("event", name))
	discriminatorKind[d] = kind
}

func init() {
	register("TokenCreationEvent", KindTokenCreation)
	register("PoolCreationEvent", KindPoolCreation)
	register("NftClaimEvent", KindNftClaim)
	register("RewardDistributionEvent", KindRewardDistribution)
	register("DepositEvent", KindDeposit)
	register("LpChangeEvent", KindLPChange)
	register("SwapEvent", KindSwap)
}

// Stats tallies what ParseLogs saw, beyond the events it returns:
// unknown entries are either foreign-program noise or a discriminator
// this build doesn't know about yet, and decodeErrors are malformed
// bodies behind a recognised discriminator.
type Stats struct {
	Parsed        int
	Unknown       int
	DecodeErrors  int
}

// LooksTruncated reports whether a transaction's log lines show the
// truncation marker, meaning at least one `emit!`-ed event may be
// missing and the caller should fall back to getTransaction to recover
// the full, untruncated log set.
func LooksTruncated(logs []string) bool {
	for _, line := range logs {
		if strings.Contains(line, truncationMarker) {
			return true
		}
	}
	return false
}

// ParseLogs scans a transaction's log lines for `Program data:` entries,
// decodes the recognised ones into typed events, and reports how many
// entries it could not place.
func ParseLogs(logs []string, sig solana.Signature, slot uint64) ([]Event, Stats, error) {
	var events []Event
	var stats Stats
	idx := 0

	for _, line := range logs {
		if !strings.HasPrefix(line, logDataPrefix) {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, logDataPrefix))
		if err != nil || len(raw) < 8 {
			stats.Unknown++
			continue
		}
		var disc [8]byte
		copy(disc[:], raw[:8])
		kind, ok := discriminatorKind[disc]
		if !ok {
			stats.Unknown++
			continue
		}

		meta := Meta{Signature: sig, Slot: slot, EventIndex: idx}
		ev, err := decodeEvent(kind, raw[8:], meta)
		if err != nil {
			stats.DecodeErrors++
			continue
		}
		idx++
		stats.Parsed++
		events = append(events, ev)
	}
	return events, stats, nil
}

func decodeEvent(kind Kind, body []byte, meta Meta) (Event, error) {
	d := newDecoder(body)
	var ev Event
	switch kind {
	case KindTokenCreation:
		ev = decodeTokenCreation(d, meta)
	case KindPoolCreation:
		ev = decodePoolCreation(d, meta)
	case KindNftClaim:
		ev = decodeNftClaim(d, meta)
	case KindRewardDistribution:
		ev = decodeRewardDistribution(d, meta)
	case KindDeposit:
		ev = decodeDeposit(d, meta)
	case KindLPChange:
		ev = decodeLPChange(d, meta)
	case KindSwap:
		ev = decodeSwap(d, meta)
	default:
		return nil, apperr.New(apperr.CodeParse, "unhandled event kind").WithField("kind", string(kind))
	}
	if d.err != nil {
		return nil, d.err
	}
	return ev, nil
}

// decoder is a small cursor over a Borsh-encoded event body, in the
// same field-by-field closure style the account decoders use. Unlike
// the account decoders it also needs variable-length strings and
// Option<T> values, since Anchor events carry both.
type decoder struct {
	data []byte
	off  int
	err  error
}

func newDecoder(data []byte) *decoder { return &decoder{data: data} }

func (d *decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.off+n > len(d.data) {
		d.err = apperr.New(apperr.CodeParse, "event body truncated").WithField("need", n)
		return false
	}
	return true
}

func (d *decoder) u8() uint8 {
	if !d.need(1) {
		return 0
	}
	v := d.data[d.off]
	d.off++
	return v
}

func (d *decoder) boolean() bool { return d.u8() != 0 }

func (d *decoder) u16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.data[d.off : d.off+2])
	d.off += 2
	return v
}

func (d *decoder) u32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.data[d.off : d.off+4])
	d.off += 4
	return v
}

func (d *decoder) u64() uint64 {
	if !d.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(d.data[d.off : d.off+8])
	d.off += 8
	return v
}

func (d *decoder) i32() int32 { return int32(d.u32()) }
func (d *decoder) i64() int64 { return int64(d.u64()) }

func (d *decoder) u128() [16]byte {
	var out [16]byte
	if !d.need(16) {
		return out
	}
	copy(out[:], d.data[d.off:d.off+16])
	d.off += 16
	return out
}

func (d *decoder) pubkey() solana.PublicKey {
	if !d.need(32) {
		return solana.PublicKey{}
	}
	v := solana.PublicKeyFromBytes(d.data[d.off : d.off+32])
	d.off += 32
	return v
}

// str decodes a Borsh string: a little-endian u32 byte length followed
// by the UTF-8 bytes.
func (d *decoder) str() string {
	n := d.u32()
	if !d.need(int(n)) {
		return ""
	}
	v := string(d.data[d.off : d.off+int(n)])
	d.off += int(n)
	return v
}

// optPubkey decodes an Option<Pubkey>: a one-byte presence flag
// followed by the key when present.
func (d *decoder) optPubkey() *solana.PublicKey {
	if d.boolean() {
		v := d.pubkey()
		return &v
	}
	return nil
}

// optI64 decodes an Option<i64>.
func (d *decoder) optI64() *int64 {
	if d.boolean() {
		v := d.i64()
		return &v
	}
	return nil
}

func decodeTokenCreation(d *decoder, meta Meta) TokenCreation {
	return TokenCreation{
		Meta:              meta,
		MintAddress:       d.pubkey(),
		Name:              d.str(),
		Symbol:            d.str(),
		URI:               d.str(),
		Decimals:          d.u8(),
		Supply:            d.u64(),
		Creator:           d.pubkey(),
		HasWhitelist:      d.boolean(),
		WhitelistDeadline: d.i64(),
		CreatedAt:         d.i64(),
	}
}

func decodePoolCreation(d *decoder, meta Meta) PoolCreation {
	return PoolCreation{
		Meta:           meta,
		PoolAddress:    d.pubkey(),
		TokenAMint:     d.pubkey(),
		TokenBMint:     d.pubkey(),
		TokenADecimals: d.u8(),
		TokenBDecimals: d.u8(),
		FeeRate:        d.u32(),
		SqrtPriceX64:   d.u128(),
		InitialTick:    d.i32(),
		Creator:        d.pubkey(),
		ClmmConfig:     d.pubkey(),
		OpenTime:       d.u64(),
	}
}

func decodeNftClaim(d *decoder, meta Meta) NftClaim {
	return NftClaim{
		Meta:                meta,
		NftMint:             d.pubkey(),
		Claimer:             d.pubkey(),
		Referrer:            d.optPubkey(),
		Tier:                d.u8(),
		TierBonusRateBps:    d.u16(),
		ClaimAmount:         d.u64(),
		TokenMint:           d.pubkey(),
		RewardMultiplierBps: d.u16(),
		BonusAmount:         d.u64(),
		ClaimType:           d.u8(),
		TotalClaimed:        d.u64(),
		PoolAddress:         d.optPubkey(),
		IsEmergencyClaim:    d.boolean(),
		ClaimedAt:           d.i64(),
	}
}

func decodeRewardDistribution(d *decoder, meta Meta) RewardDistribution {
	return RewardDistribution{
		Meta:            meta,
		DistributionID:  d.u64(),
		RewardPool:      d.pubkey(),
		Recipient:       d.pubkey(),
		Referrer:        d.optPubkey(),
		RewardTokenMint: d.pubkey(),
		RewardAmount:    d.u64(),
		BaseAmount:      d.u64(),
		BonusAmount:     d.u64(),
		RewardType:      d.u8(),
		RewardSource:    d.u8(),
		RelatedAddress:  d.optPubkey(),
		MultiplierBps:   d.u16(),
		IsLocked:        d.boolean(),
		UnlockTimestamp: d.optI64(),
		LockDays:        d.u16(),
		DistributedAt:   d.i64(),
	}
}

func decodeDeposit(d *decoder, meta Meta) Deposit {
	return Deposit{
		Meta:          meta,
		User:          d.pubkey(),
		TokenMint:     d.pubkey(),
		ProjectConfig: d.pubkey(),
		Amount:        d.u64(),
		TotalRaised:   d.u64(),
		RelatedPool:   d.optPubkey(),
		DepositType:   d.u8(),
		DepositedAt:   d.i64(),
	}
}

func decodeLPChange(d *decoder, meta Meta) LPChange {
	return LPChange{
		Meta:          meta,
		Pool:          d.pubkey(),
		Owner:         d.pubkey(),
		IsDeposit:     d.boolean(),
		LpDelta:       d.u64(),
		Vault0Balance: d.u64(),
		Vault1Balance: d.u64(),
		Token0Amount:  d.u64(),
		Token1Amount:  d.u64(),
	}
}

func decodeSwap(d *decoder, meta Meta) Swap {
	return Swap{
		Meta:        meta,
		Pool:        d.pubkey(),
		Trader:      d.pubkey(),
		ZeroForOne:  d.boolean(),
		AmountIn:    d.u64(),
		AmountOut:   d.u64(),
		ProtocolFee: d.u64(),
	}
}
