package allocator

import (
	"testing"

	"github.com/iamNilotpal/dtnstore/pkg/errors"
	"github.com/iamNilotpal/dtnstore/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestAllocator(t *testing.T, maxSegments uint64) *Allocator {
	t.Helper()
	a, err := New(&Config{MaxSegments: maxSegments, Logger: logger.Nop()})
	require.NoError(t, err)
	return a
}

func TestAllocate_AscendingOrder(t *testing.T) {
	a := newTestAllocator(t, 200)

	ids, err := a.Allocate(5)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2, 3, 4}, ids)
	require.Equal(t, uint64(5), a.UsedCount())
}

func TestAllocateFree_RoundTrip(t *testing.T) {
	a := newTestAllocator(t, 128)

	ids, err := a.Allocate(10)
	require.NoError(t, err)

	a.Free(ids)
	require.Equal(t, uint64(0), a.UsedCount())
	require.Equal(t, uint64(128), a.FreeCount())

	for _, id := range ids {
		require.True(t, a.IsFree(id))
	}
}

// TestAllocate_RollbackOnExhaustion is scenario S4 from spec.md §8: given
// an allocator with exactly 3 free IDs, requesting 4 must fail and leave
// all 3 free.
func TestAllocate_RollbackOnExhaustion(t *testing.T) {
	a := newTestAllocator(t, 3)

	ids, err := a.Allocate(4)
	require.Error(t, err)
	require.Nil(t, ids)
	require.True(t, errors.IsEngineError(err))

	for id := uint64(0); id < 3; id++ {
		require.True(t, a.IsFree(id), "segment %d should remain free after rollback", id)
	}
	require.Equal(t, uint64(0), a.UsedCount())
}

func TestAllocate_ExhaustsExactCapacity(t *testing.T) {
	a := newTestAllocator(t, 65)

	ids, err := a.Allocate(65)
	require.NoError(t, err)
	require.Len(t, ids, 65)

	_, err = a.Allocate(1)
	require.Error(t, err)
}

func TestAllocateID_RejectsAlreadyUsed(t *testing.T) {
	a := newTestAllocator(t, 10)

	require.NoError(t, a.AllocateID(3))
	require.False(t, a.IsFree(3))

	err := a.AllocateID(3)
	require.Error(t, err)
}

func TestAllocateID_RejectsOutOfRange(t *testing.T) {
	a := newTestAllocator(t, 10)
	err := a.AllocateID(10)
	require.Error(t, err)
}

// TestAllocate_CrossesWordAndLevelBoundaries exercises allocation and
// free across level-0 word boundaries (64, 4096) to make sure fullness
// propagation climbs the tree correctly.
func TestAllocate_CrossesWordAndLevelBoundaries(t *testing.T) {
	a := newTestAllocator(t, 5000)

	ids, err := a.Allocate(4100)
	require.NoError(t, err)
	require.Len(t, ids, 4100)
	for i, id := range ids {
		require.Equal(t, uint64(i), id)
	}

	a.Free(ids[:4096])
	require.Equal(t, uint64(4), a.UsedCount())

	more, err := a.Allocate(4096)
	require.NoError(t, err)
	require.Len(t, more, 4096)
}
