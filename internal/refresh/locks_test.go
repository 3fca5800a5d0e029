package refresh

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverLocksSerializePerDriver(t *testing.T) {
	locks := newDriverLocks()
	driver := uuid.New()

	require.True(t, locks.tryAcquire(driver))
	assert.False(t, locks.tryAcquire(driver), "held lock must reject a second acquire")
	assert.True(t, locks.tryAcquire(uuid.New()), "other drivers never contend")
}

func TestDriverLocksReleaseFreesEntry(t *testing.T) {
	locks := newDriverLocks()
	driver := uuid.New()

	require.True(t, locks.tryAcquire(driver))
	locks.release(driver)

	assert.Zero(t, locks.size(), "released entries must not linger")
	require.True(t, locks.tryAcquire(driver), "lock is reusable after release")
	locks.release(driver)
}

func TestDriverLocksDoNotAccumulate(t *testing.T) {
	locks := newDriverLocks()

	for i := 0; i < 100; i++ {
		driver := uuid.New()
		require.True(t, locks.tryAcquire(driver))
		locks.release(driver)
	}

	assert.Zero(t, locks.size())
}

func TestDriverLocksFailedAcquireLeavesHolderIntact(t *testing.T) {
	locks := newDriverLocks()
	driver := uuid.New()

	require.True(t, locks.tryAcquire(driver))
	assert.False(t, locks.tryAcquire(driver))
	assert.Equal(t, 1, locks.size(), "the holder's entry stays while held")

	locks.release(driver)
	assert.Zero(t, locks.size())
}
