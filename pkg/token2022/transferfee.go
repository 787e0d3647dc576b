// Package token2022 computes SPL Token-2022 transfer-fee extension
// amounts, forward and inverse, matching the on-chain program's rules.
package token2022

import (
	"encoding/binary"

	cosmath "cosmossdk.io/math"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

// MaxFeeBasisPoints is the sentinel basis-points value meaning "always
// charge maximum_fee", per the Token-2022 transfer-fee extension.
const MaxFeeBasisPoints = 10_000

const transferFeeConfigExtensionType = 1
const mintBaseSize = 82

// TransferFeeTier is one of a TransferFeeConfig's two fee schedules
// (older/newer), selected by epoch.
type TransferFeeTier struct {
	Epoch               uint64
	MaximumFee          uint64
	TransferFeeBasisPts uint16
}

// TransferFeeConfig is the decoded Token-2022 TransferFeeConfig
// extension of a mint account.
type TransferFeeConfig struct {
	WithheldAmount uint64
	Older          TransferFeeTier
	Newer          TransferFeeTier
}

// ParseTransferFeeConfig scans a Token-2022 mint account's extension
// TLV region for the TransferFeeConfig extension. Returns (nil, nil)
// when the mint carries no such extension (a plain SPL Token mint, or a
// Token-2022 mint without transfer fees).
func ParseTransferFeeConfig(mintAccountData []byte) (*TransferFeeConfig, error) {
	if len(mintAccountData) <= mintBaseSize {
		return nil, nil
	}
	// byte at mintBaseSize is the AccountType discriminator (1 = Mint);
	// extension TLV entries follow immediately after it.
	pos := mintBaseSize + 1
	data := mintAccountData
	for pos+4 <= len(data) {
		extType := binary.LittleEndian.Uint16(data[pos : pos+2])
		extLen := binary.LittleEndian.Uint16(data[pos+2 : pos+4])
		pos += 4
		if pos+int(extLen) > len(data) {
			return nil, apperr.New(apperr.CodeParse, "token-2022 extension TLV truncated")
		}
		body := data[pos : pos+int(extLen)]
		if extType == transferFeeConfigExtensionType {
			return decodeTransferFeeConfig(body)
		}
		pos += int(extLen)
	}
	return nil, nil
}

func decodeTransferFeeConfig(body []byte) (*TransferFeeConfig, error) {
	// layout: authority(36) + withdraw_authority(36) + withheld_amount(8)
	// + older(8+8+2) + newer(8+8+2); Optional<Pubkey> is a 4-byte
	// discriminant followed by 32 bytes when present.
	const optPubkeySize = 36
	need := optPubkeySize*2 + 8 + 18*2
	if len(body) < need {
		return nil, apperr.New(apperr.CodeParse, "transfer fee config extension too short")
	}
	off := optPubkeySize * 2
	withheld := binary.LittleEndian.Uint64(body[off : off+8])
	off += 8

	readTier := func() TransferFeeTier {
		epoch := binary.LittleEndian.Uint64(body[off : off+8])
		off += 8
		maxFee := binary.LittleEndian.Uint64(body[off : off+8])
		off += 8
		bps := binary.LittleEndian.Uint16(body[off : off+2])
		off += 2
		return TransferFeeTier{Epoch: epoch, MaximumFee: maxFee, TransferFeeBasisPts: bps}
	}
	older := readTier()
	newer := readTier()
	return &TransferFeeConfig{WithheldAmount: withheld, Older: older, Newer: newer}, nil
}

// tierForEpoch selects the newer schedule once its effective epoch has
// arrived, the older schedule otherwise.
func (c *TransferFeeConfig) tierForEpoch(epoch uint64) TransferFeeTier {
	if epoch >= c.Newer.Epoch {
		return c.Newer
	}
	return c.Older
}

// CalculateFee returns the transfer fee charged when amount is sent at
// the given epoch: ceil(amount * bps / 10000), capped at maximum_fee.
func CalculateFee(config *TransferFeeConfig, epoch uint64, amount uint64) uint64 {
	if config == nil || amount == 0 {
		return 0
	}
	tier := config.tierForEpoch(epoch)
	if tier.TransferFeeBasisPts == 0 {
		return 0
	}
	raw := cosmath.NewIntFromUint64(amount).MulRaw(int64(tier.TransferFeeBasisPts))
	fee := ceilDivRaw(raw, MaxFeeBasisPoints)
	if fee > tier.MaximumFee {
		return tier.MaximumFee
	}
	return fee
}

// CalculateInverseFee returns the fee to levy so that amount arrives
// net of fees — i.e. the extra the sender must send on top of amount.
// When the tier's basis points equal MaxFeeBasisPoints (a "fixed fee"
// mint), the fee is always maximum_fee regardless of amount.
func CalculateInverseFee(config *TransferFeeConfig, epoch uint64, amount uint64) uint64 {
	if config == nil {
		return 2 * MaxFeeBasisPoints // mirrors the original's defensive sentinel for an unreadable mint
	}
	tier := config.tierForEpoch(epoch)
	if tier.TransferFeeBasisPts == MaxFeeBasisPoints {
		return tier.MaximumFee
	}
	if tier.TransferFeeBasisPts == 0 || amount == 0 {
		return 0
	}
	numerator := cosmath.NewIntFromUint64(amount).MulRaw(MaxFeeBasisPoints)
	denominator := int64(MaxFeeBasisPoints - tier.TransferFeeBasisPts)
	preFeeAmount := ceilDivRaw(numerator, denominator)
	fee := preFeeAmount - amount
	if fee > tier.MaximumFee {
		return tier.MaximumFee
	}
	return fee
}

func ceilDivRaw(numerator cosmath.Int, denominator int64) uint64 {
	denom := cosmath.NewInt(denominator)
	result := numerator.Add(denom.SubRaw(1)).Quo(denom)
	return result.Uint64()
}
