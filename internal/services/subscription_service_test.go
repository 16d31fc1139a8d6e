package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docshub/server/internal/models"
	"github.com/docshub/server/internal/repository"
	"github.com/docshub/server/internal/services"
)

func TestSubscriptionResolve(t *testing.T) {
	ctx := context.Background()
	userID := int64(101)
	nodeID := int64(7)
	ancestors := []models.Node{{ID: 1, Title: "Цех"}, {ID: 2, Title: "Станки"}}

	tests := []struct {
		name          string
		mockSetup     func(nodeRepo *MockNodeRepository, subRepo *MockSubscriptionRepository)
		expectedState services.SubscriptionState
		expectErr     bool
	}{
		{
			name: "Прямая подписка имеет приоритет",
			mockSetup: func(_ *MockNodeRepository, subRepo *MockSubscriptionRepository) {
				subRepo.On("Exists", ctx, userID, nodeID).Return(true, nil)
			},
			expectedState: services.Direct,
		},
		{
			name: "Унаследованная через предка",
			mockSetup: func(nodeRepo *MockNodeRepository, subRepo *MockSubscriptionRepository) {
				subRepo.On("Exists", ctx, userID, nodeID).Return(false, nil)
				nodeRepo.On("GetAncestors", ctx, nodeID, false).Return(ancestors, nil)
				subRepo.On("ExistsOnAny", ctx, userID, []int64{1, 2}).Return(true, nil)
			},
			expectedState: services.Inherited,
		},
		{
			name: "Подписки нет нигде в цепочке",
			mockSetup: func(nodeRepo *MockNodeRepository, subRepo *MockSubscriptionRepository) {
				subRepo.On("Exists", ctx, userID, nodeID).Return(false, nil)
				nodeRepo.On("GetAncestors", ctx, nodeID, false).Return(ancestors, nil)
				subRepo.On("ExistsOnAny", ctx, userID, []int64{1, 2}).Return(false, nil)
			},
			expectedState: services.NotSubscribed,
		},
		{
			name: "Корневой узел без прямой подписки",
			mockSetup: func(nodeRepo *MockNodeRepository, subRepo *MockSubscriptionRepository) {
				subRepo.On("Exists", ctx, userID, nodeID).Return(false, nil)
				nodeRepo.On("GetAncestors", ctx, nodeID, false).Return([]models.Node{}, nil)
			},
			expectedState: services.NotSubscribed,
		},
		{
			name: "Ошибка репозитория",
			mockSetup: func(_ *MockNodeRepository, subRepo *MockSubscriptionRepository) {
				subRepo.On("Exists", ctx, userID, nodeID).Return(false, errors.New("db error"))
			},
			expectedState: services.NotSubscribed,
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodeRepo := new(MockNodeRepository)
			subRepo := new(MockSubscriptionRepository)
			tt.mockSetup(nodeRepo, subRepo)

			service := services.NewSubscriptionService(nodeRepo, subRepo)
			state, err := service.Resolve(ctx, userID, nodeID)

			if tt.expectErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.expectedState, state)
			nodeRepo.AssertExpectations(t)
			subRepo.AssertExpectations(t)
		})
	}
}

func TestSubscriptionToggle(t *testing.T) {
	ctx := context.Background()
	userID := int64(101)
	nodeID := int64(7)
	node := &models.Node{ID: nodeID, Title: "Паспорт", IsFolder: false}

	t.Run("Подписка включается", func(t *testing.T) {
		nodeRepo := new(MockNodeRepository)
		subRepo := new(MockSubscriptionRepository)
		nodeRepo.On("GetNodeByID", ctx, nodeID).Return(node, nil)
		subRepo.On("Exists", ctx, userID, nodeID).Return(false, nil)
		subRepo.On("Create", ctx, userID, nodeID).Return(nil)

		service := services.NewSubscriptionService(nodeRepo, subRepo)
		subscribed, err := service.Toggle(ctx, userID, nodeID)

		require.NoError(t, err)
		assert.True(t, subscribed)
		subRepo.AssertExpectations(t)
	})

	t.Run("Подписка выключается", func(t *testing.T) {
		nodeRepo := new(MockNodeRepository)
		subRepo := new(MockSubscriptionRepository)
		nodeRepo.On("GetNodeByID", ctx, nodeID).Return(node, nil)
		subRepo.On("Exists", ctx, userID, nodeID).Return(true, nil)
		subRepo.On("Delete", ctx, userID, nodeID).Return(nil)

		service := services.NewSubscriptionService(nodeRepo, subRepo)
		subscribed, err := service.Toggle(ctx, userID, nodeID)

		require.NoError(t, err)
		assert.False(t, subscribed)
		subRepo.AssertExpectations(t)
	})

	t.Run("Двойное переключение возвращает исходное состояние", func(t *testing.T) {
		nodeRepo := new(MockNodeRepository)
		subRepo := new(MockSubscriptionRepository)
		nodeRepo.On("GetNodeByID", ctx, nodeID).Return(node, nil)
		subRepo.On("Exists", ctx, userID, nodeID).Return(false, nil).Once()
		subRepo.On("Create", ctx, userID, nodeID).Return(nil).Once()
		subRepo.On("Exists", ctx, userID, nodeID).Return(true, nil).Once()
		subRepo.On("Delete", ctx, userID, nodeID).Return(nil).Once()

		service := services.NewSubscriptionService(nodeRepo, subRepo)

		subscribed, err := service.Toggle(ctx, userID, nodeID)
		require.NoError(t, err)
		assert.True(t, subscribed)

		subscribed, err = service.Toggle(ctx, userID, nodeID)
		require.NoError(t, err)
		assert.False(t, subscribed)
		subRepo.AssertExpectations(t)
	})

	t.Run("Узел не найден", func(t *testing.T) {
		nodeRepo := new(MockNodeRepository)
		subRepo := new(MockSubscriptionRepository)
		nodeRepo.On("GetNodeByID", ctx, int64(99)).Return(nil, repository.ErrNodeNotFound)

		service := services.NewSubscriptionService(nodeRepo, subRepo)
		_, err := service.Toggle(ctx, userID, 99)

		require.ErrorIs(t, err, services.ErrNodeNotFound)
		subRepo.AssertNotCalled(t, "Create")
		subRepo.AssertNotCalled(t, "Delete")
	})
}

func TestSubscribersForFanout(t *testing.T) {
	ctx := context.Background()
	nodeID := int64(7)

	t.Run("Подписчики узла и предков без дубликатов", func(t *testing.T) {
		nodeRepo := new(MockNodeRepository)
		subRepo := new(MockSubscriptionRepository)
		chain := []models.Node{{ID: 1}, {ID: 2}, {ID: 7}}
		nodeRepo.On("GetAncestors", ctx, nodeID, true).Return(chain, nil)
		subRepo.On("UsersForNodes", ctx, []int64{1, 2, 7}).Return([]int64{101, 102}, nil)

		service := services.NewSubscriptionService(nodeRepo, subRepo)
		userIDs, err := service.SubscribersForFanout(ctx, nodeID)

		require.NoError(t, err)
		assert.Equal(t, []int64{101, 102}, userIDs)
		nodeRepo.AssertExpectations(t)
		subRepo.AssertExpectations(t)
	})

	t.Run("Узел не найден", func(t *testing.T) {
		nodeRepo := new(MockNodeRepository)
		subRepo := new(MockSubscriptionRepository)
		nodeRepo.On("GetAncestors", ctx, int64(99), true).Return([]models.Node{}, nil)

		service := services.NewSubscriptionService(nodeRepo, subRepo)
		_, err := service.SubscribersForFanout(ctx, 99)

		require.ErrorIs(t, err, services.ErrNodeNotFound)
		subRepo.AssertNotCalled(t, "UsersForNodes")
	})
}
