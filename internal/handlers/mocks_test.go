package handlers_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/docshub/server/internal/models"
	"github.com/docshub/server/internal/repository"
	"github.com/docshub/server/internal/services"
)

// --- Mocks ---

// MockContentService is a mock for ContentService.
type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) GetRoots(ctx context.Context) ([]models.NodeRef, error) {
	args := m.Called(ctx)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.NodeRef), args.Error(1)
}

func (m *MockContentService) GetNodeView(ctx context.Context, id int64) (*models.NodeView, error) {
	args := m.Called(ctx, id)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.NodeView), args.Error(1)
}

func (m *MockContentService) GetDocumentView(ctx context.Context, id int64) (*models.DocumentView, error) {
	args := m.Called(ctx, id)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.DocumentView), args.Error(1)
}

func (m *MockContentService) InvalidateNode(id int64) {
	m.Called(id)
}

func (m *MockContentService) InvalidateChildren(parentID *int64) {
	m.Called(parentID)
}

func (m *MockContentService) InvalidateAll() {
	m.Called()
}

// MockSearchService is a mock for SearchService.
type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(
	ctx context.Context,
	query string,
	limit int,
) ([]models.SearchResult, error) {
	args := m.Called(ctx, query, limit)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.SearchResult), args.Error(1)
}

// MockTreeService is a mock for TreeService.
type MockTreeService struct {
	mock.Mock
}

func (m *MockTreeService) CreateNode(
	ctx context.Context,
	params repository.CreateNodeParams,
) (*models.Node, error) {
	args := m.Called(ctx, params)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Node), args.Error(1)
}

func (m *MockTreeService) MoveNode(ctx context.Context, id int64, newParentID *int64) error {
	args := m.Called(ctx, id, newParentID)
	return args.Error(0)
}

func (m *MockTreeService) DeleteNode(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTreeService) PublishVersion(
	ctx context.Context,
	nodeID int64,
	label, author string,
	content io.Reader,
	size int64,
	contentType string,
) (*models.Version, error) {
	args := m.Called(ctx, nodeID, label, author, content, size, contentType)
	// Дочитываем тело, как это делает реальная загрузка
	_, _ = io.Copy(io.Discard, content)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Version), args.Error(1)
}

func (m *MockTreeService) ListVersions(
	ctx context.Context,
	nodeID int64,
	limit, offset int,
) ([]models.Version, error) {
	args := m.Called(ctx, nodeID, limit, offset)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Version), args.Error(1)
}

func (m *MockTreeService) SetDeliveryHandle(ctx context.Context, documentID int64, handle string) error {
	args := m.Called(ctx, documentID, handle)
	return args.Error(0)
}

func (m *MockTreeService) Rebuild(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockSubscriptionService is a mock for SubscriptionService.
type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) Resolve(
	ctx context.Context,
	userID, nodeID int64,
) (services.SubscriptionState, error) {
	args := m.Called(ctx, userID, nodeID)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(services.SubscriptionState), args.Error(1)
}

func (m *MockSubscriptionService) Toggle(ctx context.Context, userID, nodeID int64) (bool, error) {
	args := m.Called(ctx, userID, nodeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionService) SubscribersForFanout(
	ctx context.Context,
	nodeID int64,
) ([]int64, error) {
	args := m.Called(ctx, nodeID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]int64), args.Error(1)
}

// MockFileStorage is a mock for storage.FileStorage.
type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) UploadFile(
	ctx context.Context,
	objectKey string,
	reader io.Reader,
	size int64,
	contentType string,
) error {
	args := m.Called(ctx, objectKey, reader, size, contentType)
	return args.Error(0)
}

func (m *MockFileStorage) DownloadFile(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	args := m.Called(ctx, objectKey)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(io.ReadCloser), args.Error(1)
}

func (m *MockFileStorage) DeleteFile(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0)
}
