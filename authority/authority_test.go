package authority

import (
	"testing"

	"github.com/naia-go/naia/entity"
	"github.com/stretchr/testify/require"
)

func TestRequestGrantsWhenAvailable(t *testing.T) {
	m := NewManager(nil)
	e := entity.GlobalEntity(1)

	require.True(t, m.Request(e, HolderKey(1)))
	status, holder, ok := m.Status(e)
	require.Equal(t, Granted, status)
	require.True(t, ok)
	require.Equal(t, HolderKey(1), holder)
}

func TestSecondRequestDeniedWhileHeld(t *testing.T) {
	m := NewManager(nil)
	e := entity.GlobalEntity(1)
	require.True(t, m.Request(e, HolderKey(1)))
	require.False(t, m.Request(e, HolderKey(2)))
}

func TestReleaseThenGrantToNewRequester(t *testing.T) {
	m := NewManager(nil)
	e := entity.GlobalEntity(1)
	require.True(t, m.Request(e, HolderKey(1)))
	require.NoError(t, m.Release(e, HolderKey(1)))
	require.True(t, m.Request(e, HolderKey(2)))

	status, holder, _ := m.Status(e)
	require.Equal(t, Granted, status)
	require.Equal(t, HolderKey(2), holder)
}

func TestReleaseFromNonHolderIsRejected(t *testing.T) {
	m := NewManager(nil)
	e := entity.GlobalEntity(1)
	m.Request(e, HolderKey(1))
	err := m.Release(e, HolderKey(2))
	require.Error(t, err)
}

func TestDisconnectReclaimsAuthority(t *testing.T) {
	m := NewManager(nil)
	e := entity.GlobalEntity(1)
	m.Request(e, HolderKey(1))

	m.ReclaimOnDisconnect(HolderKey(1))
	status, _, _ := m.Status(e)
	require.Equal(t, Available, status)
}

func TestCanMutateOnlyForHolder(t *testing.T) {
	m := NewManager(nil)
	e := entity.GlobalEntity(1)
	m.Request(e, HolderKey(1))

	require.True(t, m.CanMutate(e, HolderKey(1)))
	require.False(t, m.CanMutate(e, HolderKey(2)))
}

// TestAuthorityTransferScenario mirrors spec.md's S4 scenario: client A
// holds, B's request is denied, A releases, B's next request succeeds,
// and at no point do both hold Granted simultaneously.
func TestAuthorityTransferScenario(t *testing.T) {
	m := NewManager(nil)
	e := entity.GlobalEntity(1)
	a, b := HolderKey(1), HolderKey(2)

	require.True(t, m.Request(e, a))
	require.True(t, m.Exclusive())

	require.False(t, m.Request(e, b)) // AuthDeny while A holds
	require.True(t, m.Exclusive())

	require.NoError(t, m.Release(e, a))
	require.True(t, m.Request(e, b))
	require.True(t, m.Exclusive())

	status, holder, _ := m.Status(e)
	require.Equal(t, Granted, status)
	require.Equal(t, b, holder)
}
