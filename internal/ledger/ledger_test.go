package ledger_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyXFuture/bilix-meta/internal/ledger"
)

func openLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestUpsertCollection_Idempotent(t *testing.T) {
	l := openLedger(t)

	id1, err := l.UpsertCollection("【收藏夹】owner-favs")
	require.NoError(t, err)
	id2, err := l.UpsertCollection("【收藏夹】owner-favs")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other, err := l.UpsertCollection("【up】someone")
	require.NoError(t, err)
	assert.NotEqual(t, id1, other)
}

func TestLookup_NotFound(t *testing.T) {
	l := openLedger(t)
	_, err := l.Lookup(ledger.Key{ItemID: "BV1xx411c7mD", Name: "title"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestRecord_RoundTrip(t *testing.T) {
	l := openLedger(t)
	key := ledger.Key{ItemID: "BV1xx411c7mD", Name: "title", CollectionID: 0}

	require.NoError(t, l.Record(key, ledger.Flags{Video: true, Cover: true}))

	flags, err := l.Lookup(key)
	require.NoError(t, err)
	assert.True(t, flags.Video)
	assert.True(t, flags.Cover)
	assert.False(t, flags.Subtitle)
}

func TestRecord_FlagsAccumulate(t *testing.T) {
	l := openLedger(t)
	key := ledger.Key{ItemID: "BV1xx411c7mD", Name: "title"}

	require.NoError(t, l.Record(key, ledger.Flags{Video: true}))
	// a later run adding metadata must not clear the video flag
	require.NoError(t, l.Record(key, ledger.Flags{Metadata: true}))

	flags, err := l.Lookup(key)
	require.NoError(t, err)
	assert.True(t, flags.Video)
	assert.True(t, flags.Metadata)
}

func TestKey_ScopedByCollection(t *testing.T) {
	l := openLedger(t)
	colA, _ := l.UpsertCollection("a")
	colB, _ := l.UpsertCollection("b")

	keyA := ledger.Key{ItemID: "BV1xx411c7mD", Name: "title", CollectionID: colA}
	require.NoError(t, l.Record(keyA, ledger.Flags{Video: true}))

	// same item under another collection is a distinct record
	_, err := l.Lookup(ledger.Key{ItemID: "BV1xx411c7mD", Name: "title", CollectionID: colB})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestKey_ScopedByName(t *testing.T) {
	l := openLedger(t)

	require.NoError(t, l.Record(ledger.Key{ItemID: "BV1xx411c7mD", Name: "P1"}, ledger.Flags{Video: true}))

	// another part of the same item is a distinct record
	_, err := l.Lookup(ledger.Key{ItemID: "BV1xx411c7mD", Name: "P2"})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}
