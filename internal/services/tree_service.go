package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/docshub/server/internal/models"
	"github.com/docshub/server/internal/repository"
	"github.com/docshub/server/internal/storage"
)

// CacheInvalidator - часть ContentService, нужная мутациям дерева.
type CacheInvalidator interface {
	InvalidateNode(id int64)
	InvalidateChildren(parentID *int64)
	InvalidateAll()
}

// VersionPublishedNotifier запускает рассылку по факту публикации.
// Реализуется пулом воркеров notify.Fanout.
type VersionPublishedNotifier interface {
	OnVersionPublished(ctx context.Context, node *models.Node, version *models.Version)
}

// TreeService - административные мутации дерева контента.
// Каждая мутация собирает список отложенных эффектов (сброс кэша, запуск
// рассылки, чистка блобов) и выполняет их после того, как репозиторий
// зафиксировал транзакцию: порядок и обработка отказов видны явно,
// а не спрятаны в хуках сохранения.
type TreeService interface {
	CreateNode(ctx context.Context, params repository.CreateNodeParams) (*models.Node, error)
	MoveNode(ctx context.Context, id int64, newParentID *int64) error
	DeleteNode(ctx context.Context, id int64) error
	PublishVersion(ctx context.Context, nodeID int64, label, author string,
		content io.Reader, size int64, contentType string) (*models.Version, error)
	ListVersions(ctx context.Context, nodeID int64, limit, offset int) ([]models.Version, error)
	SetDeliveryHandle(ctx context.Context, documentID int64, handle string) error
	Rebuild(ctx context.Context) error
}

var _ TreeService = (*treeService)(nil)

type treeService struct {
	nodeRepo    repository.NodeRepository
	versionRepo repository.VersionRepository
	fileStorage storage.FileStorage
	invalidator CacheInvalidator
	notifier    VersionPublishedNotifier
}

// NewTreeService создает новый экземпляр сервиса мутаций дерева.
func NewTreeService(
	nodeRepo repository.NodeRepository,
	versionRepo repository.VersionRepository,
	fileStorage storage.FileStorage,
	invalidator CacheInvalidator,
	notifier VersionPublishedNotifier,
) TreeService {
	return &treeService{
		nodeRepo:    nodeRepo,
		versionRepo: versionRepo,
		fileStorage: fileStorage,
		invalidator: invalidator,
		notifier:    notifier,
	}
}

// effect - отложенный побочный эффект мутации.
type effect func()

func runEffects(effects []effect) {
	for _, e := range effects {
		e()
	}
}

// CreateNode создает узел и сбрасывает листинг нового родителя.
func (s *treeService) CreateNode(
	ctx context.Context,
	params repository.CreateNodeParams,
) (*models.Node, error) {
	node, err := s.nodeRepo.CreateNode(ctx, params)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidParent) {
			return nil, ErrInvalidParent
		}
		return nil, fmt.Errorf("ошибка создания узла: %w", err)
	}

	runEffects([]effect{
		func() { s.invalidator.InvalidateChildren(params.ParentID) },
	})

	log.Printf("[TreeService] Создан узел '%s' (ID: %d)", node.Title, node.ID)
	return node, nil
}

// MoveNode переносит поддерево; сбрасывает представления узла и листинги
// старого и нового родителей.
func (s *treeService) MoveNode(ctx context.Context, id int64, newParentID *int64) error {
	node, err := s.nodeRepo.GetNodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return ErrNodeNotFound
		}
		return fmt.Errorf("ошибка получения узла: %w", err)
	}
	oldParentID := node.ParentID

	if err = s.nodeRepo.MoveNode(ctx, id, newParentID); err != nil {
		switch {
		case errors.Is(err, repository.ErrCycleDetected):
			return ErrCycleDetected
		case errors.Is(err, repository.ErrInvalidParent):
			return ErrInvalidParent
		case errors.Is(err, repository.ErrNodeNotFound):
			return ErrNodeNotFound
		}
		return fmt.Errorf("ошибка перемещения узла: %w", err)
	}

	runEffects([]effect{
		func() { s.invalidator.InvalidateNode(id) },
		func() { s.invalidator.InvalidateChildren(oldParentID) },
		func() { s.invalidator.InvalidateChildren(newParentID) },
	})

	log.Printf("[TreeService] Узел %d перемещен", id)
	return nil
}

// DeleteNode каскадно удаляет поддерево, сбрасывает кэш по каждому
// удаленному узлу и без гарантий чистит осиротевшие блобы.
func (s *treeService) DeleteNode(ctx context.Context, id int64) error {
	node, err := s.nodeRepo.GetNodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return ErrNodeNotFound
		}
		return fmt.Errorf("ошибка получения узла: %w", err)
	}

	subtreeIDs, err := s.nodeRepo.GetDescendantIDs(ctx, id)
	if err != nil {
		return fmt.Errorf("ошибка получения поддерева: %w", err)
	}

	objectKeys, err := s.nodeRepo.DeleteNode(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return ErrNodeNotFound
		}
		return fmt.Errorf("ошибка удаления узла: %w", err)
	}

	effects := make([]effect, 0, len(subtreeIDs)+2)
	for _, subtreeID := range subtreeIDs {
		deletedID := subtreeID
		effects = append(effects, func() { s.invalidator.InvalidateNode(deletedID) })
	}
	effects = append(effects, func() { s.invalidator.InvalidateChildren(node.ParentID) })
	effects = append(effects, func() { s.cleanupBlobs(objectKeys) })
	runEffects(effects)

	log.Printf("[TreeService] Узел %d удален (%d узлов поддерева)", id, len(subtreeIDs))
	return nil
}

// PublishVersion загружает блоб, создает запись версии, сбрасывает кэш
// документа и запускает рассылку. Публикация в папку запрещена.
func (s *treeService) PublishVersion(
	ctx context.Context,
	nodeID int64,
	label, author string,
	content io.Reader,
	size int64,
	contentType string,
) (*models.Version, error) {
	node, err := s.nodeRepo.GetNodeByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("ошибка получения узла: %w", err)
	}
	if node.IsFolder {
		log.Printf("[TreeService] Отклонена публикация версии в папку %d", nodeID)
		return nil, ErrInvalidNode
	}

	objectKey := fmt.Sprintf("documents/%d/%s", nodeID, uuid.NewString())
	if err = s.fileStorage.UploadFile(ctx, objectKey, content, size, contentType); err != nil {
		return nil, fmt.Errorf("ошибка загрузки файла версии: %w", err)
	}

	version := &models.Version{
		NodeID:    nodeID,
		Label:     label,
		ObjectKey: objectKey,
		Author:    author,
	}
	if _, err = s.versionRepo.CreateVersion(ctx, version); err != nil {
		// Запись не создана, загруженный блоб никому не принадлежит
		s.cleanupBlobs([]string{objectKey})
		return nil, fmt.Errorf("ошибка создания записи версии: %w", err)
	}

	runEffects([]effect{
		func() { s.invalidator.InvalidateNode(nodeID) },
		func() { s.invalidator.InvalidateChildren(node.ParentID) },
	})

	// Рассылка идет по собственному пулу воркеров и не задерживает
	// публикующий запрос дольше разрешения множества подписчиков
	s.notifier.OnVersionPublished(ctx, node, version)

	log.Printf("[TreeService] Опубликована версия '%s' документа %d (ID версии: %d)",
		label, nodeID, version.ID)
	return version, nil
}

// ListVersions возвращает историю версий документа, сначала новые.
func (s *treeService) ListVersions(
	ctx context.Context,
	nodeID int64,
	limit, offset int,
) ([]models.Version, error) {
	node, err := s.nodeRepo.GetNodeByID(ctx, nodeID)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("ошибка получения узла: %w", err)
	}
	if node.IsFolder {
		return nil, ErrInvalidNode
	}

	versions, err := s.versionRepo.ListVersionsByNodeID(ctx, nodeID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка версий: %w", err)
	}
	return versions, nil
}

// SetDeliveryHandle сохраняет идентификатор доставки на текущей версии
// документа. Установка однократная, повторные вызовы - no-op.
func (s *treeService) SetDeliveryHandle(ctx context.Context, documentID int64, handle string) error {
	version, err := s.versionRepo.LatestVersion(ctx, documentID)
	if err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return ErrVersionNotFound
		}
		return fmt.Errorf("ошибка получения текущей версии: %w", err)
	}

	if err = s.versionRepo.SetDeliveryHandle(ctx, version.ID, handle); err != nil {
		if errors.Is(err, repository.ErrVersionNotFound) {
			return ErrVersionNotFound
		}
		return fmt.Errorf("ошибка сохранения идентификатора доставки: %w", err)
	}

	runEffects([]effect{
		func() { s.invalidator.InvalidateNode(documentID) },
	})
	return nil
}

// Rebuild пересчитывает таблицу замыкания и полностью сбрасывает кэш:
// после массового импорта точечная инвалидация бессмысленна.
func (s *treeService) Rebuild(ctx context.Context) error {
	if err := s.nodeRepo.Rebuild(ctx); err != nil {
		return fmt.Errorf("ошибка пересчета дерева: %w", err)
	}

	runEffects([]effect{
		func() { s.invalidator.InvalidateAll() },
	})

	log.Println("[TreeService] Дерево пересчитано, кэш навигации сброшен")
	return nil
}

// cleanupBlobs без гарантий удаляет блобы версий удаленного поддерева.
// Отказ чистки не отменяет уже зафиксированное удаление, поэтому только лог.
func (s *treeService) cleanupBlobs(objectKeys []string) {
	for _, key := range objectKeys {
		if err := s.fileStorage.DeleteFile(context.Background(), key); err != nil {
			log.Printf("[TreeService] Не удалось удалить блоб '%s': %v", key, err)
		}
	}
}
