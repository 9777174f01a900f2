package bbsuser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMem()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetUserRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := Record{
		Alias:   "Sysop",
		Name:    "Jane Operator",
		City:    "Springfield",
		Sec:     110,
		PageLen: 23,
		ExpDate: time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.PutUser(rec))

	got, err := s.GetUser("sysop") // alias lookup is case-insensitive
	require.NoError(t, err)
	assert.Equal(t, rec.Name, got.Name)
	assert.Equal(t, rec.City, got.City)
	assert.Equal(t, rec.Sec, got.Sec)
	assert.True(t, rec.ExpDate.Equal(got.ExpDate))
}

func TestGetUserMissingReturnsErrNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetUser("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAltUserWrapsAliasOnMiss(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetAltUser("ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "ghost")
}

func TestPutUserRejectsEmptyAlias(t *testing.T) {
	s := openTestStore(t)
	err := s.PutUser(Record{Name: "No Alias"})
	assert.Error(t, err)
}

func TestHasUserAndDeleteUser(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutUser(Record{Alias: "Bob"}))

	has, err := s.HasUser("BOB")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, s.DeleteUser("bob"))
	has, err = s.HasUser("bob")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestEachVisitsEveryRecord(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.PutUser(Record{Alias: "Alice"}))
	require.NoError(t, s.PutUser(Record{Alias: "Bob"}))

	var seen []string
	err := s.Each(func(r Record) error {
		seen = append(seen, r.Alias)
		return nil
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Alice", "Bob"}, seen)
}
