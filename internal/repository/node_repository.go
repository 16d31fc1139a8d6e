package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/docshub/server/internal/models"
)

// ChildKind задает фильтр по типу узлов при выборке детей.
type ChildKind int

const (
	ChildrenAll ChildKind = iota
	FoldersOnly
	DocumentsOnly
)

// CreateNodeParams - параметры создания узла дерева.
type CreateNodeParams struct {
	ParentID    *int64
	Title       string
	Order       int
	IsFolder    bool
	Visible     bool
	Description *string
	Equipment   *string
}

// NodeRepository определяет методы для работы с деревом контента.
// Дерево хранится как adjacency (nodes.parent_id) плюс таблица замыкания
// node_paths(ancestor_id, descendant_id, depth) с рефлексивными строками
// (depth = 0), что дает запросы предков/потомков без рекурсии на чтении.
type NodeRepository interface {
	CreateNode(ctx context.Context, params CreateNodeParams) (*models.Node, error)
	GetNodeByID(ctx context.Context, id int64) (*models.Node, error)
	GetRoots(ctx context.Context, visibleOnly bool) ([]models.Node, error)
	GetChildren(ctx context.Context, parentID int64, kind ChildKind, visibleOnly bool) ([]models.Node, error)
	// GetAncestors возвращает цепочку предков в порядке от корня к узлу
	// (порядок хлебных крошек).
	GetAncestors(ctx context.Context, id int64, includeSelf bool) ([]models.Node, error)
	// GetDescendantIDs возвращает идентификаторы всего поддерева, включая сам узел.
	GetDescendantIDs(ctx context.Context, id int64) ([]int64, error)
	MoveNode(ctx context.Context, id int64, newParentID *int64) error
	// DeleteNode каскадно удаляет поддерево и его версии; возвращает ключи
	// объектов удаленных версий, чтобы вызывающий мог почистить блобы.
	DeleteNode(ctx context.Context, id int64) ([]string, error)
	// Rebuild полностью пересчитывает таблицу замыкания по adjacency-данным.
	// Путь восстановления после массового импорта или дрейфа производных строк.
	Rebuild(ctx context.Context) error
	SearchDocuments(ctx context.Context, query string, limit int) ([]models.Node, error)
}

// postgresNodeRepository реализует NodeRepository для PostgreSQL.
type postgresNodeRepository struct {
	db *sqlx.DB
}

// NewPostgresNodeRepository создает новый экземпляр репозитория дерева.
func NewPostgresNodeRepository(db *sqlx.DB) NodeRepository {
	return &postgresNodeRepository{db: db}
}

// nodeColumns - полный набор колонок узла; "order" всюду в кавычках,
// это зарезервированное слово.
var nodeColumns = []string{
	"id", "title", "parent_id", `"order"`, "is_folder", "visible",
	"description", "equipment", "created_at", "updated_at",
}

// psql - билдер запросов с нумерованными плейсхолдерами PostgreSQL.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// CreateNode создает узел и строки замыкания для него.
// Возвращает ErrInvalidParent, если родитель не существует или не папка.
func (r *postgresNodeRepository) CreateNode(
	ctx context.Context,
	params CreateNodeParams,
) (*models.Node, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer rollback(tx, "CreateNode")

	if params.ParentID != nil {
		if err = checkParent(ctx, tx, *params.ParentID); err != nil {
			return nil, err
		}
	}

	node := &models.Node{
		Title:       params.Title,
		ParentID:    params.ParentID,
		Order:       params.Order,
		IsFolder:    params.IsFolder,
		Visible:     params.Visible,
		Description: params.Description,
		Equipment:   params.Equipment,
	}

	insertQuery := `INSERT INTO nodes (title, parent_id, "order", is_folder, visible, description, equipment)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	err = tx.QueryRowxContext(ctx, insertQuery,
		params.Title, params.ParentID, params.Order, params.IsFolder,
		params.Visible, params.Description, params.Equipment,
	).Scan(&node.ID, &node.CreatedAt, &node.UpdatedAt)
	if err != nil {
		log.Printf("[NodeRepo] Ошибка создания узла '%s': %v", params.Title, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на создание узла: %w", err)
	}

	// Рефлексивная строка замыкания
	_, err = tx.ExecContext(ctx,
		`INSERT INTO node_paths (ancestor_id, descendant_id, depth) VALUES ($1, $1, 0)`, node.ID)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания рефлексивной строки замыкания: %w", err)
	}

	// Наследуем все пути родителя, удлиняя их на один уровень
	if params.ParentID != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO node_paths (ancestor_id, descendant_id, depth)
			 SELECT ancestor_id, $1, depth + 1 FROM node_paths WHERE descendant_id = $2`,
			node.ID, *params.ParentID)
		if err != nil {
			return nil, fmt.Errorf("ошибка наследования путей родителя: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции создания узла: %w", err)
	}

	log.Printf("[NodeRepo] Узел '%s' (ID: %d) успешно создан", node.Title, node.ID)
	return node, nil
}

// GetNodeByID находит узел по идентификатору.
func (r *postgresNodeRepository) GetNodeByID(ctx context.Context, id int64) (*models.Node, error) {
	query := `SELECT id, title, parent_id, "order", is_folder, visible, description, equipment, created_at, updated_at
	          FROM nodes WHERE id = $1`
	var node models.Node

	err := r.db.GetContext(ctx, &node, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNodeNotFound
		}
		log.Printf("[NodeRepo] Ошибка при поиске узла ID %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение узла: %w", err)
	}
	return &node, nil
}

// GetRoots возвращает корневые папки, отсортированные по "order", затем по id.
func (r *postgresNodeRepository) GetRoots(ctx context.Context, visibleOnly bool) ([]models.Node, error) {
	qb := psql.Select(nodeColumns...).
		From("nodes").
		Where("parent_id IS NULL").
		Where(sq.Eq{"is_folder": true}).
		OrderBy(`"order" ASC`, "id ASC")
	if visibleOnly {
		qb = qb.Where(sq.Eq{"visible": true})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса корневых узлов: %w", err)
	}

	nodes := []models.Node{}
	if err = r.db.SelectContext(ctx, &nodes, query, args...); err != nil {
		log.Printf("[NodeRepo] Ошибка при получении корневых узлов: %v", err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение корневых узлов: %w", err)
	}
	return nodes, nil
}

// GetChildren возвращает детей узла с фильтром по типу и видимости.
// Сортировка стабильная: "order" по возрастанию, при равенстве - id.
func (r *postgresNodeRepository) GetChildren(
	ctx context.Context,
	parentID int64,
	kind ChildKind,
	visibleOnly bool,
) ([]models.Node, error) {
	qb := psql.Select(nodeColumns...).
		From("nodes").
		Where(sq.Eq{"parent_id": parentID}).
		OrderBy(`"order" ASC`, "id ASC")

	switch kind {
	case FoldersOnly:
		qb = qb.Where(sq.Eq{"is_folder": true})
	case DocumentsOnly:
		qb = qb.Where(sq.Eq{"is_folder": false})
	case ChildrenAll:
		// без фильтра по типу
	}
	if visibleOnly {
		qb = qb.Where(sq.Eq{"visible": true})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки запроса детей узла: %w", err)
	}

	nodes := []models.Node{}
	if err = r.db.SelectContext(ctx, &nodes, query, args...); err != nil {
		log.Printf("[NodeRepo] Ошибка при получении детей узла ID %d: %v", parentID, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение детей узла: %w", err)
	}
	return nodes, nil
}

// GetAncestors возвращает цепочку предков от корня к узлу.
// При includeSelf = true последним элементом будет сам узел.
func (r *postgresNodeRepository) GetAncestors(
	ctx context.Context,
	id int64,
	includeSelf bool,
) ([]models.Node, error) {
	minDepth := 1
	if includeSelf {
		minDepth = 0
	}

	// depth растет от узла к корню, поэтому DESC дает порядок "от корня".
	query := `SELECT n.id, n.title, n.parent_id, n."order", n.is_folder, n.visible,
	                 n.description, n.equipment, n.created_at, n.updated_at
	          FROM nodes n
	          JOIN node_paths p ON p.ancestor_id = n.id
	          WHERE p.descendant_id = $1 AND p.depth >= $2
	          ORDER BY p.depth DESC`

	nodes := []models.Node{}
	if err := r.db.SelectContext(ctx, &nodes, query, id, minDepth); err != nil {
		log.Printf("[NodeRepo] Ошибка при получении предков узла ID %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение предков: %w", err)
	}
	return nodes, nil
}

// GetDescendantIDs возвращает идентификаторы поддерева, включая сам узел.
// Возвращает ErrNodeNotFound, если узла нет (замыкание не содержит даже
// рефлексивной строки).
func (r *postgresNodeRepository) GetDescendantIDs(ctx context.Context, id int64) ([]int64, error) {
	query := `SELECT descendant_id FROM node_paths WHERE ancestor_id = $1 ORDER BY descendant_id`

	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, query, id); err != nil {
		log.Printf("[NodeRepo] Ошибка при получении потомков узла ID %d: %v", id, err)
		return nil, fmt.Errorf("ошибка выполнения запроса на получение потомков: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNodeNotFound
	}
	return ids, nil
}

// MoveNode переносит поддерево под нового родителя (nil - в корень).
// Возвращает ErrCycleDetected, если новый родитель находится в поддереве
// перемещаемого узла (включая сам узел), и ErrInvalidParent, если новый
// родитель не существует или не папка.
func (r *postgresNodeRepository) MoveNode(ctx context.Context, id int64, newParentID *int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer rollback(tx, "MoveNode")

	var exists bool
	err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM nodes WHERE id = $1)`, id)
	if err != nil {
		return fmt.Errorf("ошибка проверки существования узла: %w", err)
	}
	if !exists {
		return ErrNodeNotFound
	}

	if newParentID != nil {
		if err = checkParent(ctx, tx, *newParentID); err != nil {
			return err
		}

		// Цикл: новый родитель - потомок перемещаемого узла (или он сам).
		// Рефлексивные строки замыкания покрывают случай id == newParentID.
		var cycle bool
		err = tx.GetContext(ctx, &cycle,
			`SELECT EXISTS(SELECT 1 FROM node_paths WHERE ancestor_id = $1 AND descendant_id = $2)`,
			id, *newParentID)
		if err != nil {
			return fmt.Errorf("ошибка проверки цикла: %w", err)
		}
		if cycle {
			log.Printf("[NodeRepo] Отклонено перемещение узла %d под %d: цикл", id, *newParentID)
			return ErrCycleDetected
		}
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE nodes SET parent_id = $2, updated_at = NOW() WHERE id = $1`, id, newParentID)
	if err != nil {
		return fmt.Errorf("ошибка обновления родителя узла: %w", err)
	}

	// Отрезаем пути из старых предков поддерева ко всем узлам поддерева
	_, err = tx.ExecContext(ctx,
		`DELETE FROM node_paths
		 WHERE descendant_id IN (SELECT descendant_id FROM node_paths WHERE ancestor_id = $1)
		   AND ancestor_id NOT IN (SELECT descendant_id FROM node_paths WHERE ancestor_id = $1)`,
		id)
	if err != nil {
		return fmt.Errorf("ошибка отрезания старых путей поддерева: %w", err)
	}

	// Пришиваем поддерево к путям нового родителя
	if newParentID != nil {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO node_paths (ancestor_id, descendant_id, depth)
			 SELECT sup.ancestor_id, sub.descendant_id, sup.depth + sub.depth + 1
			 FROM node_paths sup
			 JOIN node_paths sub ON sub.ancestor_id = $1
			 WHERE sup.descendant_id = $2`,
			id, *newParentID)
		if err != nil {
			return fmt.Errorf("ошибка пришивания поддерева к новому родителю: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции перемещения: %w", err)
	}

	log.Printf("[NodeRepo] Узел %d успешно перемещен", id)
	return nil
}

// DeleteNode каскадно удаляет узел, его поддерево и все их версии.
// Возвращает ключи объектов удаленных версий.
func (r *postgresNodeRepository) DeleteNode(ctx context.Context, id int64) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer rollback(tx, "DeleteNode")

	ids := []int64{}
	err = tx.SelectContext(ctx, &ids,
		`SELECT descendant_id FROM node_paths WHERE ancestor_id = $1 ORDER BY descendant_id`, id)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки поддерева для удаления: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNodeNotFound
	}

	objectKeys := []string{}
	err = tx.SelectContext(ctx, &objectKeys,
		`SELECT object_key FROM versions WHERE node_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки ключей версий поддерева: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM versions WHERE node_id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("ошибка удаления версий поддерева: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM subscriptions WHERE node_id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("ошибка удаления подписок поддерева: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM node_paths WHERE ancestor_id = ANY($1) OR descendant_id = ANY($1)`,
		pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("ошибка удаления строк замыкания поддерева: %w", err)
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM nodes WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("ошибка удаления узлов поддерева: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции удаления: %w", err)
	}

	log.Printf("[NodeRepo] Узел %d удален вместе с поддеревом (%d узлов, %d версий)",
		id, len(ids), len(objectKeys))
	return objectKeys, nil
}

// Rebuild пересчитывает таблицу замыкания по полю parent_id.
func (r *postgresNodeRepository) Rebuild(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ошибка открытия транзакции: %w", err)
	}
	defer rollback(tx, "Rebuild")

	if _, err = tx.ExecContext(ctx, `TRUNCATE node_paths`); err != nil {
		return fmt.Errorf("ошибка очистки таблицы замыкания: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`WITH RECURSIVE tree AS (
		    SELECT id AS ancestor_id, id AS descendant_id, 0 AS depth FROM nodes
		    UNION ALL
		    SELECT t.ancestor_id, n.id, t.depth + 1
		    FROM tree t
		    JOIN nodes n ON n.parent_id = t.descendant_id
		 )
		 INSERT INTO node_paths (ancestor_id, descendant_id, depth)
		 SELECT ancestor_id, descendant_id, depth FROM tree`)
	if err != nil {
		return fmt.Errorf("ошибка пересчета таблицы замыкания: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции пересчета: %w", err)
	}

	log.Println("[NodeRepo] Таблица замыкания успешно пересчитана")
	return nil
}

// likeEscaper экранирует спецсимволы шаблона LIKE, чтобы символы запроса
// пользователя сопоставлялись буквально, а не как маски.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchDocuments ищет видимые документы по подстроке в заголовке или
// описании, без учета регистра. Результат ограничен limit записями в
// естественном порядке хранения.
func (r *postgresNodeRepository) SearchDocuments(
	ctx context.Context,
	query string,
	limit int,
) ([]models.Node, error) {
	pattern := "%" + likeEscaper.Replace(query) + "%"

	qb := psql.Select(nodeColumns...).
		From("nodes").
		Where(sq.Eq{"is_folder": false}).
		Where(sq.Eq{"visible": true}).
		Where(sq.Or{
			sq.ILike{"title": pattern},
			sq.ILike{"description": pattern},
		}).
		OrderBy("id ASC").
		Limit(uint64(limit)) //nolint:gosec // limit всегда небольшой положительный

	sqlQuery, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("ошибка сборки поискового запроса: %w", err)
	}

	nodes := []models.Node{}
	if err = r.db.SelectContext(ctx, &nodes, sqlQuery, args...); err != nil {
		log.Printf("[NodeRepo] Ошибка поиска по запросу '%s': %v", query, err)
		return nil, fmt.Errorf("ошибка выполнения поискового запроса: %w", err)
	}
	return nodes, nil
}

// checkParent проверяет, что родитель существует и является папкой.
func checkParent(ctx context.Context, tx *sqlx.Tx, parentID int64) error {
	var isFolder bool
	err := tx.GetContext(ctx, &isFolder, `SELECT is_folder FROM nodes WHERE id = $1`, parentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Printf("[NodeRepo] Родительский узел %d не найден", parentID)
			return ErrInvalidParent
		}
		return fmt.Errorf("ошибка проверки родительского узла: %w", err)
	}
	if !isFolder {
		log.Printf("[NodeRepo] Узел %d не является папкой и не может быть родителем", parentID)
		return ErrInvalidParent
	}
	return nil
}

// rollback откатывает транзакцию, логируя ошибку отката (после успешного
// Commit откат вернет sql.ErrTxDone - это не ошибка).
func rollback(tx *sqlx.Tx, op string) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		log.Printf("[NodeRepo] Ошибка отката транзакции %s: %v", op, err)
	}
}

// Кастомные ошибки репозитория дерева.
var (
	ErrNodeNotFound  = errors.New("узел не найден")
	ErrInvalidParent = errors.New("родительский узел не найден или не является папкой")
	ErrCycleDetected = errors.New("перемещение создает цикл в дереве")
)
