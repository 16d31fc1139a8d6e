package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshub/server/internal/repository"
)

// Вспомогательная функция для создания мока БД и репозитория подписок.
func setupSubscriptionRepoMock(t *testing.T) (repository.SubscriptionRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := repository.NewPostgresSubscriptionRepository(sqlxDB)
	return repo, mock
}

func TestSubscriptionExists(t *testing.T) {
	query := regexp.QuoteMeta(
		`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = $1 AND node_id = $2)`)

	t.Run("Подписка есть", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		mock.ExpectQuery(query).WithArgs(int64(101), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.Exists(context.Background(), 101, 7)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Подписки нет", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		mock.ExpectQuery(query).WithArgs(int64(101), int64(8)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		exists, err := repo.Exists(context.Background(), 101, 8)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionExistsOnAny(t *testing.T) {
	query := regexp.QuoteMeta(
		`SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = $1 AND node_id = ANY($2))`)

	t.Run("Подписка на одного из предков", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		nodeIDs := []int64{1, 2}
		mock.ExpectQuery(query).WithArgs(int64(101), pq.Array(nodeIDs)).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.ExistsOnAny(context.Background(), 101, nodeIDs)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пустой список узлов не ходит в БД", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)

		exists, err := repo.ExistsOnAny(context.Background(), 101, nil)
		require.NoError(t, err)
		assert.False(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionCreate(t *testing.T) {
	query := regexp.QuoteMeta(`INSERT INTO subscriptions (user_id, node_id) VALUES ($1, $2)
		          ON CONFLICT (user_id, node_id) DO NOTHING`)

	t.Run("Успешное создание", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		mock.ExpectExec(query).WithArgs(int64(101), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(context.Background(), 101, 7)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Повторное создание не ошибка", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		mock.ExpectExec(query).WithArgs(int64(101), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Create(context.Background(), 101, 7)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Ошибка базы данных", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		mock.ExpectExec(query).WithArgs(int64(101), int64(7)).
			WillReturnError(errors.New("db connection error"))

		err := repo.Create(context.Background(), 101, 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ошибка выполнения запроса на создание подписки")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSubscriptionDelete(t *testing.T) {
	query := regexp.QuoteMeta(`DELETE FROM subscriptions WHERE user_id = $1 AND node_id = $2`)

	t.Run("Успешное удаление", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		mock.ExpectExec(query).WithArgs(int64(101), int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), 101, 7)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Удаление несуществующей подписки не ошибка", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		mock.ExpectExec(query).WithArgs(int64(101), int64(8)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), 101, 8)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUsersForNodes(t *testing.T) {
	query := regexp.QuoteMeta(
		`SELECT DISTINCT user_id FROM subscriptions WHERE node_id = ANY($1) ORDER BY user_id`)

	t.Run("Подписчики без дубликатов", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)
		nodeIDs := []int64{1, 2, 7}
		rows := sqlmock.NewRows([]string{"user_id"}).
			AddRow(int64(101)).AddRow(int64(102))
		mock.ExpectQuery(query).WithArgs(pq.Array(nodeIDs)).WillReturnRows(rows)

		userIDs, err := repo.UsersForNodes(context.Background(), nodeIDs)
		require.NoError(t, err)
		assert.Equal(t, []int64{101, 102}, userIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Пустой список узлов не ходит в БД", func(t *testing.T) {
		repo, mock := setupSubscriptionRepoMock(t)

		userIDs, err := repo.UsersForNodes(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, userIDs)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
