package services_test

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"github.com/docshub/server/internal/models"
	"github.com/docshub/server/internal/repository"
)

// --- Mocks ---

// MockNodeRepository is a mock for NodeRepository.
type MockNodeRepository struct {
	mock.Mock
}

func (m *MockNodeRepository) CreateNode(
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

func (m *MockNodeRepository) GetNodeByID(ctx context.Context, id int64) (*models.Node, error) {
	args := m.Called(ctx, id)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Node), args.Error(1)
}

func (m *MockNodeRepository) GetRoots(ctx context.Context, visibleOnly bool) ([]models.Node, error) {
	args := m.Called(ctx, visibleOnly)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Node), args.Error(1)
}

func (m *MockNodeRepository) GetChildren(
	ctx context.Context,
	parentID int64,
	kind repository.ChildKind,
	visibleOnly bool,
) ([]models.Node, error) {
	args := m.Called(ctx, parentID, kind, visibleOnly)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Node), args.Error(1)
}

func (m *MockNodeRepository) GetAncestors(
	ctx context.Context,
	id int64,
	includeSelf bool,
) ([]models.Node, error) {
	args := m.Called(ctx, id, includeSelf)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Node), args.Error(1)
}

func (m *MockNodeRepository) GetDescendantIDs(ctx context.Context, id int64) ([]int64, error) {
	args := m.Called(ctx, id)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]int64), args.Error(1)
}

func (m *MockNodeRepository) MoveNode(ctx context.Context, id int64, newParentID *int64) error {
	args := m.Called(ctx, id, newParentID)
	return args.Error(0)
}

func (m *MockNodeRepository) DeleteNode(ctx context.Context, id int64) ([]string, error) {
	args := m.Called(ctx, id)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]string), args.Error(1)
}

func (m *MockNodeRepository) Rebuild(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockNodeRepository) SearchDocuments(
	ctx context.Context,
	query string,
	limit int,
) ([]models.Node, error) {
	args := m.Called(ctx, query, limit)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Node), args.Error(1)
}

// MockVersionRepository is a mock for VersionRepository.
type MockVersionRepository struct {
	mock.Mock
}

func (m *MockVersionRepository) CreateVersion(ctx context.Context, version *models.Version) (int64, error) {
	args := m.Called(ctx, version)
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVersionRepository) LatestVersion(ctx context.Context, nodeID int64) (*models.Version, error) {
	args := m.Called(ctx, nodeID)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.(*models.Version), args.Error(1)
}

func (m *MockVersionRepository) ListVersionsByNodeID(
	ctx context.Context,
	nodeID int64,
	limit,
	offset int,
) ([]models.Version, error) {
	args := m.Called(ctx, nodeID, limit, offset)
	ret := args.Get(0)
	if ret == nil {
		return nil, args.Error(1)
	}
	//nolint:errcheck // Ошибки кастования в моках приемлемы
	return ret.([]models.Version), args.Error(1)
}

func (m *MockVersionRepository) SetDeliveryHandle(ctx context.Context, versionID int64, handle string) error {
	args := m.Called(ctx, versionID, handle)
	return args.Error(0)
}

// MockSubscriptionRepository is a mock for SubscriptionRepository.
type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) Exists(ctx context.Context, userID, nodeID int64) (bool, error) {
	args := m.Called(ctx, userID, nodeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) ExistsOnAny(
	ctx context.Context,
	userID int64,
	nodeIDs []int64,
) (bool, error) {
	args := m.Called(ctx, userID, nodeIDs)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionRepository) Create(ctx context.Context, userID, nodeID int64) error {
	args := m.Called(ctx, userID, nodeID)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, userID, nodeID int64) error {
	args := m.Called(ctx, userID, nodeID)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) UsersForNodes(ctx context.Context, nodeIDs []int64) ([]int64, error) {
	args := m.Called(ctx, nodeIDs)
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

// MockInvalidator is a mock for CacheInvalidator.
type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateNode(id int64) {
	m.Called(id)
}

func (m *MockInvalidator) InvalidateChildren(parentID *int64) {
	m.Called(parentID)
}

func (m *MockInvalidator) InvalidateAll() {
	m.Called()
}

// MockNotifier is a mock for VersionPublishedNotifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OnVersionPublished(ctx context.Context, node *models.Node, version *models.Version) {
	m.Called(ctx, node, version)
}
