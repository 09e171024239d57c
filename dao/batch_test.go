package dao_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/daox"
	"github.com/syssam/daox/dao"
	"github.com/syssam/daox/dialect"
)

func TestBatchGet(t *testing.T) {
	t.Run("request_order_with_missing", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite)
		mock.ExpectQuery("SELECT id, name, email FROM users WHERE id IN (?, ?, ?)").
			WithArgs(int64(3), int64(1), int64(9)).
			WillReturnRows(userRows(
				user{ID: 1, Name: "Alice"},
				user{ID: 3, Name: "Carol"},
			))

		users, err := d.BatchGet(context.Background(), []int64{3, 1, 9})
		require.NoError(t, err)
		require.Len(t, users, 3)
		assert.Equal(t, "Carol", users[0].Name)
		assert.Equal(t, "Alice", users[1].Name)
		assert.Nil(t, users[2])
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("chunked", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite, dao.WithChunkSize(2), dao.WithBatchConcurrency(1))
		mock.MatchExpectationsInOrder(false)
		mock.ExpectQuery("SELECT id, name, email FROM users WHERE id IN (?, ?)").
			WithArgs(int64(1), int64(2)).
			WillReturnRows(userRows(user{ID: 1}, user{ID: 2}))
		mock.ExpectQuery("SELECT id, name, email FROM users WHERE id IN (?)").
			WithArgs(int64(3)).
			WillReturnRows(userRows(user{ID: 3}))

		users, err := d.BatchGet(context.Background(), []int64{1, 2, 3})
		require.NoError(t, err)
		require.Len(t, users, 3)
		for i, u := range users {
			require.NotNil(t, u)
			assert.Equal(t, int64(i+1), u.ID)
		}
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite)
		users, err := d.BatchGet(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, users)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("chunk_failure", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite)
		mock.ExpectQuery("SELECT id, name, email FROM users WHERE id IN (?)").
			WithArgs(int64(1)).
			WillReturnError(errors.New("disk I/O error"))

		_, err := d.BatchGet(context.Background(), []int64{1})
		require.Error(t, err)
		assert.True(t, daox.IsQueryError(err))
	})
}

func TestBatchCreate(t *testing.T) {
	t.Run("chunked_multi_row", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite, dao.WithChunkSize(2), dao.WithBatchConcurrency(1))
		mock.MatchExpectationsInOrder(false)
		mock.ExpectExec("INSERT INTO users (id, name, email) VALUES (?, ?, ?), (?, ?, ?)").
			WithArgs(int64(1), "Alice", "", int64(2), "Bob", "").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("INSERT INTO users (id, name, email) VALUES (?, ?, ?)").
			WithArgs(int64(3), "Carol", "").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := d.BatchCreate(context.Background(), []*user{
			{ID: 1, Name: "Alice"},
			{ID: 2, Name: "Bob"},
			{ID: 3, Name: "Carol"},
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite)
		require.NoError(t, d.BatchCreate(context.Background(), nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBatchCreatePostgresPlaceholders(t *testing.T) {
	d, mock := newUserDao(t, dialect.Postgres)
	mock.ExpectExec("INSERT INTO users (id, name, email) VALUES ($1, $2, $3), ($4, $5, $6)").
		WithArgs(int64(1), "Alice", "", int64(2), "Bob", "").
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := d.BatchCreate(context.Background(), []*user{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchUpdate(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite, dao.WithBatchConcurrency(1))
		mock.MatchExpectationsInOrder(false)
		mock.ExpectExec("UPDATE users SET name = ?, email = ? WHERE id = ?").
			WithArgs("Alice", "", int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("UPDATE users SET name = ?, email = ? WHERE id = ?").
			WithArgs("Bob", "", int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := d.BatchUpdate(context.Background(), []*user{
			{ID: 1, Name: "Alice"},
			{ID: 2, Name: "Bob"},
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_row", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite, dao.WithBatchConcurrency(1))
		mock.ExpectExec("UPDATE users SET name = ?, email = ? WHERE id = ?").
			WithArgs("Ghost", "", int64(99)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := d.BatchUpdate(context.Background(), []*user{{ID: 99, Name: "Ghost"}})
		require.Error(t, err)
		assert.True(t, daox.IsNotFound(err))
	})
}

func TestBatchDelete(t *testing.T) {
	t.Run("chunked", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite, dao.WithChunkSize(2), dao.WithBatchConcurrency(1))
		mock.MatchExpectationsInOrder(false)
		mock.ExpectExec("DELETE FROM users WHERE id IN (?, ?)").
			WithArgs(int64(1), int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec("DELETE FROM users WHERE id IN (?)").
			WithArgs(int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := d.BatchDelete(context.Background(), []int64{1, 2, 3})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing_ids_tolerated", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite)
		mock.ExpectExec("DELETE FROM users WHERE id IN (?, ?)").
			WithArgs(int64(8), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, d.BatchDelete(context.Background(), []int64{8, 9}))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty", func(t *testing.T) {
		d, mock := newUserDao(t, dialect.SQLite)
		require.NoError(t, d.BatchDelete(context.Background(), nil))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestOrderByKeys(t *testing.T) {
	t.Parallel()
	values := []*user{
		{ID: 2, Name: "Bob"},
		{ID: 1, Name: "Alice"},
	}
	out := dao.OrderByKeys([]int64{1, 2, 3, 1}, values, func(u *user) int64 { return u.ID })
	require.Len(t, out, 4)
	assert.Equal(t, "Alice", out[0].Name)
	assert.Equal(t, "Bob", out[1].Name)
	assert.Nil(t, out[2])
	assert.Same(t, out[0], out[3])
}
