package boltdb

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/alphabill-org/chainauthority/keyvaluedb"
	"github.com/alphabill-org/chainauthority/types"
	"github.com/stretchr/testify/require"
)

func initBoltDB(t *testing.T) *BoltDB {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "bolt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	return db
}

func write(t *testing.T, db *BoltDB, key string, value any) {
	t.Helper()
	require.NoError(t, db.Update(func(rw keyvaluedb.ReadWriter) error {
		return rw.Write([]byte(key), value)
	}))
}

func TestBoltDB_ReadWriteDelete(t *testing.T) {
	db := initBoltDB(t)
	require.NotEmpty(t, db.Path())

	var round types.Round
	found, err := db.Read([]byte("round"), &round)
	require.NoError(t, err)
	require.False(t, found)

	write(t, db, "round", types.SingleLeaderRound(4))
	found, err = db.Read([]byte("round"), &round)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, types.SingleLeaderRound(4), round)

	require.NoError(t, db.Update(func(rw keyvaluedb.ReadWriter) error {
		return rw.Delete([]byte("round"))
	}))
	found, err = db.Read([]byte("round"), &round)
	require.NoError(t, err)
	require.False(t, found)
}

func TestBoltDB_InvalidInput(t *testing.T) {
	db := initBoltDB(t)
	var r *types.Round
	err := db.Update(func(rw keyvaluedb.ReadWriter) error { return rw.Write([]byte("round"), r) })
	require.ErrorIs(t, err, keyvaluedb.ErrValueIsNil)
	err = db.Update(func(rw keyvaluedb.ReadWriter) error { return rw.Write(nil, types.FastRound()) })
	require.ErrorIs(t, err, keyvaluedb.ErrInvalidKey)
	err = db.Update(func(rw keyvaluedb.ReadWriter) error { return rw.Delete([]byte{}) })
	require.ErrorIs(t, err, keyvaluedb.ErrInvalidKey)
	found, err := db.Read([]byte("round"), nil)
	require.ErrorIs(t, err, keyvaluedb.ErrValueIsNil)
	require.False(t, found)

	// value of wrong type
	write(t, db, "str", "not a round")
	var round types.Round
	found, err = db.Read([]byte("str"), &round)
	require.ErrorContains(t, err, "decoding record")
	require.True(t, found)
}

func TestBoltDB_UpdateIsAtomic(t *testing.T) {
	db := initBoltDB(t)
	write(t, db, "a", "1")

	errStop := errors.New("stop")
	err := db.Update(func(rw keyvaluedb.ReadWriter) error {
		require.NoError(t, rw.Write([]byte("b"), "2"))
		require.NoError(t, rw.Delete([]byte("a")))
		var v string
		found, err := rw.Read([]byte("b"), &v)
		require.NoError(t, err)
		require.True(t, found)
		return errStop
	})
	require.ErrorIs(t, err, errStop)

	keys, err := db.Keys(nil)
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("a")}, keys)
}

func TestBoltDB_Keys(t *testing.T) {
	db := initBoltDB(t)
	for _, k := range []string{"p_3", "q_1", "p_1", "p_2", "o_9"} {
		write(t, db, k, uint64(1))
	}
	keys, err := db.Keys([]byte("p_"))
	require.NoError(t, err)
	require.Equal(t, [][]byte{[]byte("p_1"), []byte("p_2"), []byte("p_3")}, keys)

	keys, err = db.Keys([]byte("x"))
	require.NoError(t, err)
	require.Empty(t, keys)

	keys, err = db.Keys(nil)
	require.NoError(t, err)
	require.Len(t, keys, 5)
}

func TestBoltDB_Reopen(t *testing.T) {
	dbFile := filepath.Join(t.TempDir(), "bolt.db")
	db, err := New(dbFile)
	require.NoError(t, err)
	write(t, db, "key", "value")
	require.NoError(t, db.Close())

	db, err = New(dbFile)
	require.NoError(t, err)
	defer db.Close()
	var v string
	found, err := db.Read([]byte("key"), &v)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "value", v)
}
