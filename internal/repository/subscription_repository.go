package repository

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SubscriptionRepository определяет методы для работы с прямыми подписками.
// Таблица хранит только явные ребра пользователь→узел; унаследованное
// покрытие вычисляет сервисный слой по цепочке предков.
type SubscriptionRepository interface {
	Exists(ctx context.Context, userID, nodeID int64) (bool, error)
	ExistsOnAny(ctx context.Context, userID int64, nodeIDs []int64) (bool, error)
	Create(ctx context.Context, userID, nodeID int64) error
	Delete(ctx context.Context, userID, nodeID int64) error
	// UsersForNodes возвращает пользователей, имеющих прямую подписку хотя бы
	// на один из узлов. Дедупликация на стороне БД (DISTINCT).
	UsersForNodes(ctx context.Context, nodeIDs []int64) ([]int64, error)
}

// postgresSubscriptionRepository реализует SubscriptionRepository для PostgreSQL.
type postgresSubscriptionRepository struct {
	db *sqlx.DB
}

// NewPostgresSubscriptionRepository создает новый экземпляр репозитория подписок.
func NewPostgresSubscriptionRepository(db *sqlx.DB) SubscriptionRepository {
	return &postgresSubscriptionRepository{db: db}
}

// Exists проверяет наличие прямой подписки на узел.
func (r *postgresSubscriptionRepository) Exists(ctx context.Context, userID, nodeID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = $1 AND node_id = $2)`
	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, userID, nodeID); err != nil {
		log.Printf("[SubRepo] Ошибка проверки подписки пользователя %d на узел %d: %v", userID, nodeID, err)
		return false, fmt.Errorf("ошибка выполнения запроса на проверку подписки: %w", err)
	}
	return exists, nil
}

// ExistsOnAny проверяет наличие прямой подписки хотя бы на один из узлов.
func (r *postgresSubscriptionRepository) ExistsOnAny(
	ctx context.Context,
	userID int64,
	nodeIDs []int64,
) (bool, error) {
	if len(nodeIDs) == 0 {
		return false, nil
	}

	query := `SELECT EXISTS(SELECT 1 FROM subscriptions WHERE user_id = $1 AND node_id = ANY($2))`
	var exists bool

	if err := r.db.GetContext(ctx, &exists, query, userID, pq.Array(nodeIDs)); err != nil {
		log.Printf("[SubRepo] Ошибка проверки подписок пользователя %d: %v", userID, err)
		return false, fmt.Errorf("ошибка выполнения запроса на проверку подписок: %w", err)
	}
	return exists, nil
}

// Create добавляет прямую подписку. Повторная вставка того же ребра
// гасится через ON CONFLICT.
func (r *postgresSubscriptionRepository) Create(ctx context.Context, userID, nodeID int64) error {
	query := `INSERT INTO subscriptions (user_id, node_id) VALUES ($1, $2)
	          ON CONFLICT (user_id, node_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, userID, nodeID); err != nil {
		log.Printf("[SubRepo] Ошибка создания подписки пользователя %d на узел %d: %v", userID, nodeID, err)
		return fmt.Errorf("ошибка выполнения запроса на создание подписки: %w", err)
	}

	log.Printf("[SubRepo] Пользователь %d подписан на узел %d", userID, nodeID)
	return nil
}

// Delete удаляет прямую подписку, если она была.
func (r *postgresSubscriptionRepository) Delete(ctx context.Context, userID, nodeID int64) error {
	query := `DELETE FROM subscriptions WHERE user_id = $1 AND node_id = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, nodeID); err != nil {
		log.Printf("[SubRepo] Ошибка удаления подписки пользователя %d на узел %d: %v", userID, nodeID, err)
		return fmt.Errorf("ошибка выполнения запроса на удаление подписки: %w", err)
	}

	log.Printf("[SubRepo] Пользователь %d отписан от узла %d", userID, nodeID)
	return nil
}

// UsersForNodes возвращает подписчиков узлов без дубликатов.
func (r *postgresSubscriptionRepository) UsersForNodes(
	ctx context.Context,
	nodeIDs []int64,
) ([]int64, error) {
	if len(nodeIDs) == 0 {
		return []int64{}, nil
	}

	query := `SELECT DISTINCT user_id FROM subscriptions WHERE node_id = ANY($1) ORDER BY user_id`

	userIDs := []int64{}
	if err := r.db.SelectContext(ctx, &userIDs, query, pq.Array(nodeIDs)); err != nil {
		log.Printf("[SubRepo] Ошибка выборки подписчиков узлов %v: %v", nodeIDs, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на выборку подписчиков: %w", err)
	}
	return userIDs, nil
}
