package pending

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shop-insights/internal/auth"
)

func TestQueue_AddTakeList(t *testing.T) {
	q, err := NewQueue(nil)
	require.NoError(t, err)

	first, err := q.Add(auth.User{ID: 2, Username: "bob"})
	require.NoError(t, err)
	assert.True(t, first)

	again, err := q.Add(auth.User{ID: 2, Username: "bobby"})
	require.NoError(t, err)
	assert.False(t, again, "repeat request must not count as new")

	_, err = q.Add(auth.User{ID: 1, Username: "alice"})
	require.NoError(t, err)

	lst := q.List()
	require.Len(t, lst, 2)
	assert.Equal(t, "bobby", lst[0].Username)
	assert.Equal(t, int64(1), lst[1].ID)

	u, ok, err := q.Take(2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bobby", u.Username)

	_, ok, err = q.Take(2)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, q.List(), 1)
}

func TestQueue_PersistsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pending.json")
	repo, err := auth.NewFileRepository(path)
	require.NoError(t, err)

	q, err := NewQueue(repo)
	require.NoError(t, err)
	_, err = q.Add(auth.User{ID: 1, FirstName: "A"})
	require.NoError(t, err)
	_, err = q.Add(auth.User{ID: 2, FirstName: "B"})
	require.NoError(t, err)
	_, _, err = q.Take(1)
	require.NoError(t, err)

	reloaded, err := NewQueue(repo)
	require.NoError(t, err)
	assert.Equal(t, []auth.User{{ID: 2, FirstName: "B"}}, reloaded.List())
}
