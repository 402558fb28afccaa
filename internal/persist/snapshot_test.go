package persist_test

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/dcnet/internal/coordinator"
	"github.com/luxfi/dcnet/internal/persist"
	"github.com/luxfi/dcnet/pkg/party"
)

func TestWriteReadSnapshotRoundTrip(t *testing.T) {
	huge, ok := new(big.Int).SetString("123456789012345678901234567890123456789012345678901234567890", 10)
	require.True(t, ok)

	want := []coordinator.GroupSnapshot{
		{
			Name:   "test",
			Active: party.IDSlice{"Alice", "Bob"},
			Slots: []map[party.ID]*big.Int{
				{"Alice": big.NewInt(0), "Bob": huge},
				{},
			},
		},
		{
			Name:   "empty",
			Active: nil,
			Slots:  nil,
		},
	}

	path := filepath.Join(t.TempDir(), "snapshot.cbor")
	require.NoError(t, persist.WriteSnapshot(path, want))

	got, err := persist.ReadSnapshot(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "test", got[0].Name)
	require.ElementsMatch(t, []party.ID{"Alice", "Bob"}, got[0].Active)
	require.Len(t, got[0].Slots, 2)
	require.Equal(t, 0, huge.Cmp(got[0].Slots[0]["Bob"]))
	require.Equal(t, 0, big.NewInt(0).Cmp(got[0].Slots[0]["Alice"]))
	require.Empty(t, got[0].Slots[1])

	require.Equal(t, "empty", got[1].Name)
}

func TestReadSnapshotMissingFile(t *testing.T) {
	_, err := persist.ReadSnapshot(filepath.Join(t.TempDir(), "does-not-exist.cbor"))
	require.Error(t, err)
}
