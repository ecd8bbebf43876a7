package replication

import (
	"testing"

	"github.com/naia-go/naia/entity"
	"github.com/stretchr/testify/require"
)

func TestScopeMapIncludeExclude(t *testing.T) {
	s := NewScopeMap()
	user := UserKey(1)
	e := entity.GlobalEntity(10)

	_, recorded := s.Get(user, e)
	require.False(t, recorded)

	s.Include(user, e)
	inScope, recorded := s.Get(user, e)
	require.True(t, recorded)
	require.True(t, inScope)

	s.Exclude(user, e)
	inScope, _ = s.Get(user, e)
	require.False(t, inScope)
}

func TestScopeMapRemoveUserCleansUpBothDirections(t *testing.T) {
	s := NewScopeMap()
	user := UserKey(1)
	e := entity.GlobalEntity(10)
	s.Include(user, e)

	s.RemoveUser(user)
	_, recorded := s.Get(user, e)
	require.False(t, recorded)
	require.Empty(t, s.UsersWatching(e))
}

func TestScopeMapRemoveEntityCleansUpBothDirections(t *testing.T) {
	s := NewScopeMap()
	user := UserKey(1)
	e := entity.GlobalEntity(10)
	s.Include(user, e)

	s.RemoveEntity(e)
	_, recorded := s.Get(user, e)
	require.False(t, recorded)
}

func TestCacheMapEvictsOldestOnCapacity(t *testing.T) {
	c := NewCacheMap[int, string](2)
	c.Insert(1, "a")
	c.Insert(2, "b")
	c.Insert(3, "c") // evicts key 1

	_, ok := c.Get(1)
	require.False(t, ok)
	v, ok := c.Get(2)
	require.True(t, ok)
	require.Equal(t, "b", v)
	v, ok = c.Get(3)
	require.True(t, ok)
	require.Equal(t, "c", v)
}
