package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

type fakeResult struct {
	n   int64
	err error
}

func (r fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r fakeResult) RowsAffected() (int64, error) { return r.n, r.err }

func TestTranslate(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '0900' for key 'phone'"}

	require.True(t, IsDuplicate(dup))
	require.True(t, IsDuplicate(fmt.Errorf("insert: %w", dup)))
	require.False(t, IsDuplicate(&mysql.MySQLError{Number: 1452}))
	require.False(t, IsDuplicate(errors.New("1062")))

	require.NoError(t, translate(nil))
	require.ErrorIs(t, translate(sql.ErrNoRows), ErrNotFound)
	require.ErrorIs(t, translate(dup), ErrDuplicate)
	other := errors.New("bad connection")
	require.Equal(t, other, translate(other))
}

func TestExpectOne(t *testing.T) {
	require.NoError(t, expectOne(fakeResult{n: 1}, nil))
	require.ErrorIs(t, expectOne(fakeResult{n: 0}, nil), ErrNotFound)
	require.ErrorIs(t, expectOne(nil, sql.ErrNoRows), ErrNotFound)
	require.Error(t, expectOne(fakeResult{err: errors.New("unsupported")}, nil))
}
