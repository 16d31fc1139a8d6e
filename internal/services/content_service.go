package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/docshub/server/internal/cache"
	"github.com/docshub/server/internal/models"
	"github.com/docshub/server/internal/repository"
)

// ContentService обслуживает три горячие формы чтения навигации через
// сквозной кэш: список корней, раздел и документ. Промах пересчитывается
// из репозитория и кладется обратно; конкурентные промахи по одному ключу
// могут пересчитать значение дважды - это дешево и безвредно, защита от
// стампида не нужна.
type ContentService interface {
	GetRoots(ctx context.Context) ([]models.NodeRef, error)
	GetNodeView(ctx context.Context, id int64) (*models.NodeView, error)
	GetDocumentView(ctx context.Context, id int64) (*models.DocumentView, error)

	// InvalidateNode сбрасывает кэшированные представления самого узла.
	InvalidateNode(id int64)
	// InvalidateChildren сбрасывает листинг детей родителя:
	// nil означает корневой список.
	InvalidateChildren(parentID *int64)
	// InvalidateAll полностью очищает кэш (после rebuild).
	InvalidateAll()
}

var _ ContentService = (*contentService)(nil)

type contentService struct {
	nodeRepo    repository.NodeRepository
	versionRepo repository.VersionRepository
	store       *cache.Store
}

// NewContentService создает новый экземпляр сервиса навигации.
func NewContentService(
	nodeRepo repository.NodeRepository,
	versionRepo repository.VersionRepository,
	store *cache.Store,
) ContentService {
	return &contentService{
		nodeRepo:    nodeRepo,
		versionRepo: versionRepo,
		store:       store,
	}
}

// Ключи кэша: по одной записи на форму запроса и идентификатор.
const rootsCacheKey = "roots"

func nodeCacheKey(id int64) string { return "node:" + strconv.FormatInt(id, 10) }
func docCacheKey(id int64) string  { return "doc:" + strconv.FormatInt(id, 10) }

// GetRoots возвращает видимые корневые папки.
func (s *contentService) GetRoots(ctx context.Context) ([]models.NodeRef, error) {
	if cached, ok := s.store.Get(rootsCacheKey); ok {
		if refs, valid := cached.([]models.NodeRef); valid {
			return refs, nil
		}
	}

	roots, err := s.nodeRepo.GetRoots(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения корневых разделов: %w", err)
	}

	refs := make([]models.NodeRef, 0, len(roots))
	for _, n := range roots {
		refs = append(refs, models.NodeRef{ID: n.ID, Title: n.Title})
	}

	s.store.Set(rootsCacheKey, refs)
	return refs, nil
}

// GetNodeView возвращает представление раздела: хлебные крошки,
// видимые подразделы и документы.
func (s *contentService) GetNodeView(ctx context.Context, id int64) (*models.NodeView, error) {
	if cached, ok := s.store.Get(nodeCacheKey(id)); ok {
		if view, valid := cached.(*models.NodeView); valid {
			return view, nil
		}
	}

	node, err := s.nodeRepo.GetNodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("ошибка получения узла: %w", err)
	}

	ancestors, err := s.nodeRepo.GetAncestors(ctx, id, false)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения предков узла: %w", err)
	}
	breadcrumb := make([]string, 0, len(ancestors))
	for _, a := range ancestors {
		breadcrumb = append(breadcrumb, a.Title)
	}

	folders, err := s.nodeRepo.GetChildren(ctx, id, repository.FoldersOnly, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения подразделов: %w", err)
	}
	documents, err := s.nodeRepo.GetChildren(ctx, id, repository.DocumentsOnly, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения документов раздела: %w", err)
	}

	view := &models.NodeView{
		ID:            node.ID,
		Title:         node.Title,
		ParentID:      node.ParentID,
		Breadcrumb:    breadcrumb,
		Subcategories: toRefs(folders),
		Documents:     toRefs(documents),
	}

	s.store.Set(nodeCacheKey(id), view)
	return view, nil
}

// GetDocumentView возвращает представление документа с данными текущей версии.
// Для папки возвращает ErrInvalidNode.
func (s *contentService) GetDocumentView(ctx context.Context, id int64) (*models.DocumentView, error) {
	if cached, ok := s.store.Get(docCacheKey(id)); ok {
		if view, valid := cached.(*models.DocumentView); valid {
			return view, nil
		}
	}

	node, err := s.nodeRepo.GetNodeByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return nil, ErrNodeNotFound
		}
		return nil, fmt.Errorf("ошибка получения узла: %w", err)
	}
	if node.IsFolder {
		log.Printf("[ContentService] Узел %d является папкой, представление документа недоступно", id)
		return nil, ErrInvalidNode
	}

	view := &models.DocumentView{
		ID:          node.ID,
		Title:       node.Title,
		Description: node.Description,
		ParentID:    node.ParentID,
		Equipment:   node.Equipment,
	}

	version, err := s.versionRepo.LatestVersion(ctx, id)
	switch {
	case err == nil:
		view.Version = &version.Label
		view.Author = &version.Author
		view.ObjectKey = &version.ObjectKey
		view.DeliveryHandle = version.DeliveryHandle
	case errors.Is(err, repository.ErrVersionNotFound):
		// Документ без публикаций - поля версии остаются пустыми
	default:
		return nil, fmt.Errorf("ошибка получения текущей версии: %w", err)
	}

	s.store.Set(docCacheKey(id), view)
	return view, nil
}

// InvalidateNode сбрасывает обе формы представлений узла.
func (s *contentService) InvalidateNode(id int64) {
	s.store.Remove(nodeCacheKey(id))
	s.store.Remove(docCacheKey(id))
}

// InvalidateChildren сбрасывает листинг детей: для корневого уровня -
// список корней, иначе - представление родителя (листинг живет в нем).
func (s *contentService) InvalidateChildren(parentID *int64) {
	if parentID == nil {
		s.store.Remove(rootsCacheKey)
		return
	}
	s.store.Remove(nodeCacheKey(*parentID))
}

// InvalidateAll очищает кэш целиком.
func (s *contentService) InvalidateAll() {
	s.store.Purge()
}

func toRefs(nodes []models.Node) []models.NodeRef {
	refs := make([]models.NodeRef, 0, len(nodes))
	for _, n := range nodes {
		refs = append(refs, models.NodeRef{ID: n.ID, Title: n.Title})
	}
	return refs
}
