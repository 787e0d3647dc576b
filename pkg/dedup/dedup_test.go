package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeenAndInsertIdempotent(t *testing.T) {
	c := New(10)
	k := Key{ProgramID: "P1", Signature: "sig1", EventIndex: 0}

	assert.False(t, c.SeenAndInsert(k), "first insert must report unseen")
	assert.True(t, c.SeenAndInsert(k), "second insert of the same key must report seen")
	assert.Equal(t, 1, c.Size("P1"))
}

func TestEvictsOldestOnCapacity(t *testing.T) {
	c := New(2)
	k1 := Key{ProgramID: "P1", Signature: "sig1", EventIndex: 0}
	k2 := Key{ProgramID: "P1", Signature: "sig2", EventIndex: 0}
	k3 := Key{ProgramID: "P1", Signature: "sig3", EventIndex: 0}

	c.SeenAndInsert(k1)
	c.SeenAndInsert(k2)
	c.SeenAndInsert(k3)

	assert.Equal(t, 2, c.Size("P1"))
	// k1 was the oldest insertion and should have been evicted, so
	// re-inserting it is treated as new again.
	assert.False(t, c.SeenAndInsert(k1))
}

func TestPartitionsAreIndependentPerProgram(t *testing.T) {
	c := New(10)
	k := Key{Signature: "sig1", EventIndex: 0}
	k.ProgramID = "PROGRAM_A"
	a := k
	k.ProgramID = "PROGRAM_B"
	b := k

	assert.False(t, c.SeenAndInsert(a))
	assert.False(t, c.SeenAndInsert(b))
	assert.Equal(t, 1, c.Size("PROGRAM_A"))
	assert.Equal(t, 1, c.Size("PROGRAM_B"))
}

func TestHydrateSeedsExistingKeys(t *testing.T) {
	c := New(10)
	k := Key{ProgramID: "P1", Signature: "sig1", EventIndex: 0}
	c.Hydrate([]Key{k})

	assert.True(t, c.SeenAndInsert(k), "hydrated key must report already seen")
}
