package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/docshub/server/internal/repository"
)

// SubscriptionState - результат разрешения подписки для пары (пользователь, узел).
type SubscriptionState string

const (
	// NotSubscribed - уведомления по узлу не приходят.
	NotSubscribed SubscriptionState = "none"
	// Direct - явная подписка на сам узел.
	Direct SubscriptionState = "direct"
	// Inherited - покрытие через прямую подписку на одного из предков.
	Inherited SubscriptionState = "inherited"
)

// SubscriptionService разрешает прямые и унаследованные подписки.
type SubscriptionService interface {
	// Resolve определяет, получает ли пользователь уведомления по узлу и почему.
	// Прямая подписка имеет приоритет над унаследованной.
	Resolve(ctx context.Context, userID, nodeID int64) (SubscriptionState, error)
	// Toggle переключает только прямую подписку на узел, никогда не трогая
	// подписки на предков. Возвращает новое состояние прямого ребра.
	Toggle(ctx context.Context, userID, nodeID int64) (bool, error)
	// SubscribersForFanout возвращает без дубликатов всех пользователей,
	// подписанных на узел напрямую или через любого из предков.
	SubscribersForFanout(ctx context.Context, nodeID int64) ([]int64, error)
}

var _ SubscriptionService = (*subscriptionService)(nil)

type subscriptionService struct {
	nodeRepo repository.NodeRepository
	subRepo  repository.SubscriptionRepository
}

// NewSubscriptionService создает новый экземпляр сервиса подписок.
func NewSubscriptionService(
	nodeRepo repository.NodeRepository,
	subRepo repository.SubscriptionRepository,
) SubscriptionService {
	return &subscriptionService{nodeRepo: nodeRepo, subRepo: subRepo}
}

// Resolve проверяет сначала прямое ребро на узле (O(1)), затем наличие
// прямой подписки на любом из предков.
func (s *subscriptionService) Resolve(
	ctx context.Context,
	userID, nodeID int64,
) (SubscriptionState, error) {
	direct, err := s.subRepo.Exists(ctx, userID, nodeID)
	if err != nil {
		return NotSubscribed, fmt.Errorf("ошибка проверки прямой подписки: %w", err)
	}
	if direct {
		return Direct, nil
	}

	ancestors, err := s.nodeRepo.GetAncestors(ctx, nodeID, false)
	if err != nil {
		return NotSubscribed, fmt.Errorf("ошибка получения предков узла: %w", err)
	}
	if len(ancestors) == 0 {
		// Корневой узел без прямой подписки
		return NotSubscribed, nil
	}

	ancestorIDs := make([]int64, 0, len(ancestors))
	for _, a := range ancestors {
		ancestorIDs = append(ancestorIDs, a.ID)
	}

	inherited, err := s.subRepo.ExistsOnAny(ctx, userID, ancestorIDs)
	if err != nil {
		return NotSubscribed, fmt.Errorf("ошибка проверки подписок на предков: %w", err)
	}
	if inherited {
		return Inherited, nil
	}
	return NotSubscribed, nil
}

// Toggle переключает прямое ребро. Узел должен существовать.
func (s *subscriptionService) Toggle(ctx context.Context, userID, nodeID int64) (bool, error) {
	if _, err := s.nodeRepo.GetNodeByID(ctx, nodeID); err != nil {
		if errors.Is(err, repository.ErrNodeNotFound) {
			return false, ErrNodeNotFound
		}
		return false, fmt.Errorf("ошибка получения узла: %w", err)
	}

	direct, err := s.subRepo.Exists(ctx, userID, nodeID)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки прямой подписки: %w", err)
	}

	if direct {
		if err = s.subRepo.Delete(ctx, userID, nodeID); err != nil {
			return false, fmt.Errorf("ошибка удаления подписки: %w", err)
		}
		log.Printf("[SubService] Пользователь %d отписался от узла %d", userID, nodeID)
		return false, nil
	}

	if err = s.subRepo.Create(ctx, userID, nodeID); err != nil {
		return false, fmt.Errorf("ошибка создания подписки: %w", err)
	}
	log.Printf("[SubService] Пользователь %d подписался на узел %d", userID, nodeID)
	return true, nil
}

// SubscribersForFanout объединяет подписчиков узла и всех его предков.
// Дедупликацию выполняет репозиторий (DISTINCT), пользователь с подписками
// на двух уровнях одной цепочки попадает в результат один раз.
func (s *subscriptionService) SubscribersForFanout(ctx context.Context, nodeID int64) ([]int64, error) {
	chain, err := s.nodeRepo.GetAncestors(ctx, nodeID, true)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения цепочки предков: %w", err)
	}
	if len(chain) == 0 {
		return nil, ErrNodeNotFound
	}

	chainIDs := make([]int64, 0, len(chain))
	for _, n := range chain {
		chainIDs = append(chainIDs, n.ID)
	}

	userIDs, err := s.subRepo.UsersForNodes(ctx, chainIDs)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки подписчиков: %w", err)
	}
	return userIDs, nil
}
