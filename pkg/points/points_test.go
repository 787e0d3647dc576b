package points

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalPointsSumsAllBuckets(t *testing.T) {
	u := UserPoints{
		PointsFromTransaction:   210,
		PointsFromNftClaimed:    300,
		PointFromClaimNft:       200,
		PointFromFollowXAccount: 200,
		PointFromJoinTelegram:   200,
	}
	assert.Equal(t, int64(1110), u.TotalPoints())
}

func TestFirstSwapThenRepeatPointValues(t *testing.T) {
	// S4: two upserts of the same never-before-seen wallet total
	// firstTransactionPoints + repeatTransactionPoints == 210.
	assert.Equal(t, int64(210), int64(firstTransactionPoints+repeatTransactionPoints))
}

func TestClaimNftPointValues(t *testing.T) {
	// S5: the upper/claimer split is 300/200 respectively.
	assert.Equal(t, int64(300), int64(nftClaimedPointsPerClaim))
	assert.Equal(t, int64(200), int64(claimNftPointsOneShot))
}
