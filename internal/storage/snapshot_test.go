package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"cpamm/internal/model"
)

func TestSnapshotStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "pool.json")
	store := NewSnapshotStore(path)

	_, ok, err := store.Load()
	require.NoError(t, err)
	require.False(t, ok)

	state := model.PoolState{
		InstanceID:    42,
		Address:       model.PoolAddress(42),
		Administrator: common.HexToAddress("0x10"),
		AssetA:        1,
		AssetB:        2,
		PoolShare:     3,
		Ratio:         3333,
		Bootstrapped:  true,
	}
	require.NoError(t, store.Save(state, 7))

	snap, ok, err := store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, state, snap.State)
	require.Equal(t, uint64(7), snap.Sequence)
	require.NotEmpty(t, snap.UpdatedAt)

	_, err = os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestSnapshotStoreRejectsDirectory(t *testing.T) {
	_, _, err := NewSnapshotStore(t.TempDir()).Load()
	require.Error(t, err)
}
