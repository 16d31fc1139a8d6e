package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/docshub/server/internal/models"
	"github.com/docshub/server/internal/repository"
)

// Результаты поиска ограничены жестким потолком независимо от запрошенного limit.
const defaultSearchLimit = 10

// SearchService ищет видимые документы по подстроке в заголовке или описании.
// Поиск редкий относительно навигации и идет мимо кэша, напрямую в хранилище.
type SearchService interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

var _ SearchService = (*searchService)(nil)

type searchService struct {
	nodeRepo repository.NodeRepository
}

// NewSearchService создает новый экземпляр сервиса поиска.
func NewSearchService(nodeRepo repository.NodeRepository) SearchService {
	return &searchService{nodeRepo: nodeRepo}
}

// Search возвращает до limit документов. Пустой запрос дает пустой
// результат, а не "все документы".
func (s *searchService) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []models.SearchResult{}, nil
	}
	if limit <= 0 || limit > defaultSearchLimit {
		limit = defaultSearchLimit
	}

	nodes, err := s.nodeRepo.SearchDocuments(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска документов: %w", err)
	}

	results := make([]models.SearchResult, 0, len(nodes))
	for _, n := range nodes {
		results = append(results, models.SearchResult{
			ID:       n.ID,
			Title:    n.Title,
			ParentID: n.ParentID,
		})
	}
	return results, nil
}
