package usecase

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/agency-pipeline/internal/entity"
)

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Upsert(ctx context.Context, lead *entity.Lead) (bool, error) {
	args := m.Called(ctx, lead)
	return args.Bool(0), args.Error(1)
}

func (m *MockLeadRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.Lead, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) UpdateStatus(ctx context.Context, tenantID, leadID, status string) error {
	return m.Called(ctx, tenantID, leadID, status).Error(0)
}

func (m *MockLeadRepository) LinkClient(ctx context.Context, tenantID, leadID, clientID, status string) error {
	return m.Called(ctx, tenantID, leadID, clientID, status).Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	return m.Called(ctx, lead).Error(0)
}

func (m *MockLeadRepository) Delete(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, entry *entity.HistoryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

type MockStatusRepository struct {
	mock.Mock
}

func (m *MockStatusRepository) FetchActiveStatuses(ctx context.Context, tenantID string) ([]entity.StatusEntry, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.StatusEntry), args.Error(1)
}

func (m *MockStatusRepository) FindByID(ctx context.Context, tenantID, id string) (*entity.StatusEntry, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StatusEntry), args.Error(1)
}

func (m *MockStatusRepository) MaxDisplayOrder(ctx context.Context, tenantID string) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}

func (m *MockStatusRepository) Create(ctx context.Context, s *entity.StatusEntry) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStatusRepository) Deactivate(ctx context.Context, tenantID, id string) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByEmail(ctx context.Context, tenantID, email string) (*entity.Client, error) {
	args := m.Called(ctx, tenantID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Client), args.Error(1)
}

func (m *MockClientRepository) Create(ctx context.Context, c *entity.Client) error {
	return m.Called(ctx, c).Error(0)
}

type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	return m.Called(ctx, p).Error(0)
}

type MockProvisioner struct {
	mock.Mock
}

func (m *MockProvisioner) ProvisionClientLogin(ctx context.Context, input ProvisionLoginInput) ProvisionLoginResult {
	return m.Called(ctx, input).Get(0).(ProvisionLoginResult)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(ctx context.Context, tenantID string) error {
	return m.Called(ctx, tenantID).Error(0)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordConversion(existingClient bool) {
	m.Called(existingClient)
}

func (m *MockMetrics) RecordBestEffortFailure(operation string) {
	m.Called(operation)
}
