package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/docshub/server/internal/models"
)

// VersionRepository определяет методы для работы с версиями документов.
// Таблица versions append-only; единственное разрешенное обновление -
// однократная установка delivery_handle.
type VersionRepository interface {
	// CreateVersion добавляет запись о версии. Метка версии - произвольная
	// строка, уникальность не требуется; уникален только ключ объекта.
	CreateVersion(ctx context.Context, version *models.Version) (int64, error)
	// LatestVersion возвращает текущую (последнюю по created_at) версию
	// документа или ErrVersionNotFound, если публикаций еще не было.
	LatestVersion(ctx context.Context, nodeID int64) (*models.Version, error)
	ListVersionsByNodeID(ctx context.Context, nodeID int64, limit, offset int) ([]models.Version, error)
	// SetDeliveryHandle сохраняет идентификатор доставки, только если он
	// еще не установлен. Повторный вызов - no-op.
	SetDeliveryHandle(ctx context.Context, versionID int64, handle string) error
}

// postgresVersionRepository реализует VersionRepository для PostgreSQL.
type postgresVersionRepository struct {
	db *sqlx.DB
}

// NewPostgresVersionRepository создает новый экземпляр репозитория версий.
func NewPostgresVersionRepository(db *sqlx.DB) VersionRepository {
	return &postgresVersionRepository{db: db}
}

// CreateVersion создает новую запись о версии документа.
func (r *postgresVersionRepository) CreateVersion(
	ctx context.Context,
	version *models.Version,
) (int64, error) {
	query := `INSERT INTO versions (node_id, version, object_key, author)
	          VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	var versionID int64

	err := r.db.QueryRowxContext(ctx, query,
		version.NodeID, version.Label, version.ObjectKey, version.Author,
	).Scan(&versionID, &version.CreatedAt)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			log.Printf("[VersionRepo] Ошибка создания версии: ключ объекта '%s' уже существует", version.ObjectKey)
			return 0, fmt.Errorf("версия с ключом объекта '%s' уже существует: %w", version.ObjectKey, err)
		}
		log.Printf("[VersionRepo] Непредвиденная ошибка при создании версии для узла %d: %v", version.NodeID, err)
		return 0, fmt.Errorf("ошибка выполнения запроса на создание версии: %w", err)
	}

	version.ID = versionID
	log.Printf("[VersionRepo] Версия (ID: %d, метка: %s) успешно создана для узла %d",
		versionID, version.Label, version.NodeID)
	return versionID, nil
}

// LatestVersion находит текущую версию документа.
// Индекс по (node_id, created_at DESC) делает запрос амортизированно O(1).
func (r *postgresVersionRepository) LatestVersion(
	ctx context.Context,
	nodeID int64,
) (*models.Version, error) {
	// id DESC разрывает ничью при одинаковом created_at в пользу
	// позже вставленной записи
	query := `SELECT id, node_id, version, object_key, author, delivery_handle, created_at
	          FROM versions
	          WHERE node_id = $1
	          ORDER BY created_at DESC, id DESC
	          LIMIT 1`
	var version models.Version

	err := r.db.GetContext(ctx, &version, query, nodeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		log.Printf("[VersionRepo] Ошибка при поиске текущей версии узла %d: %v", nodeID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение текущей версии: %w", err)
	}
	return &version, nil
}

// ListVersionsByNodeID возвращает версии документа с пагинацией, сначала новые.
func (r *postgresVersionRepository) ListVersionsByNodeID(
	ctx context.Context,
	nodeID int64,
	limit,
	offset int,
) ([]models.Version, error) {
	query := `SELECT id, node_id, version, object_key, author, delivery_handle, created_at
	          FROM versions
	          WHERE node_id = $1
	          ORDER BY created_at DESC, id DESC
	          LIMIT $2 OFFSET $3`

	versions := make([]models.Version, 0, limit)
	err := r.db.SelectContext(ctx, &versions, query, nodeID, limit, offset)
	if err != nil {
		log.Printf("[VersionRepo] Ошибка при получении списка версий узла %d: %v", nodeID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение списка версий: %w", err)
	}

	log.Printf("[VersionRepo] Получено %d версий для узла %d (limit=%d, offset=%d)",
		len(versions), nodeID, limit, offset)
	return versions, nil
}

// SetDeliveryHandle однократно сохраняет идентификатор доставки версии.
func (r *postgresVersionRepository) SetDeliveryHandle(
	ctx context.Context,
	versionID int64,
	handle string,
) error {
	query := `UPDATE versions SET delivery_handle = $2 WHERE id = $1 AND delivery_handle IS NULL`

	res, err := r.db.ExecContext(ctx, query, versionID, handle)
	if err != nil {
		log.Printf("[VersionRepo] Ошибка сохранения идентификатора доставки версии %d: %v", versionID, err)
		return fmt.Errorf("ошибка выполнения запроса на сохранение идентификатора доставки: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения числа обновленных строк: %w", err)
	}
	if affected == 0 {
		// Либо версии нет, либо идентификатор уже установлен - различаем
		var exists bool
		if err = r.db.GetContext(ctx, &exists,
			`SELECT EXISTS(SELECT 1 FROM versions WHERE id = $1)`, versionID); err != nil {
			return fmt.Errorf("ошибка проверки существования версии: %w", err)
		}
		if !exists {
			return ErrVersionNotFound
		}
		log.Printf("[VersionRepo] Идентификатор доставки версии %d уже установлен, пропускаем", versionID)
	}
	return nil
}

// Кастомные ошибки репозитория версий.
var (
	ErrVersionNotFound = errors.New("версия документа не найдена")
)
