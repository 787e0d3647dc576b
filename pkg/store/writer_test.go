package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raydium-indexer/clmm-indexer/internal/apperr"
)

func TestIsFatalClassifiesDatabaseAndConfigAsFatal(t *testing.T) {
	assert.True(t, isFatal(apperr.New(apperr.CodeDatabase, "conn lost")))
	assert.True(t, isFatal(apperr.New(apperr.CodeConfig, "bad uri")))
}

func TestIsFatalClassifiesParseAndValidationAsNonFatal(t *testing.T) {
	assert.False(t, isFatal(apperr.New(apperr.CodeParse, "bad field")))
	assert.False(t, isFatal(apperr.New(apperr.CodeInvalidRequest, "bad request")))
}

func TestIsFatalTreatsUnwrappedErrorAsNonFatal(t *testing.T) {
	assert.False(t, isFatal(assert.AnError))
}
