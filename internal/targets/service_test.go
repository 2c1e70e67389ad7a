package targets

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type mockTargetStore struct {
	mock.Mock
}

func (m *mockTargetStore) Create(ctx context.Context, target *Target) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

func (m *mockTargetStore) GetByID(ctx context.Context, id uuid.UUID) (*Target, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Target), args.Error(1)
}

func (m *mockTargetStore) List(ctx context.Context, filter TargetFilter) ([]Target, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Target), args.Error(1)
}

func (m *mockTargetStore) GetActive(ctx context.Context, organizationID uuid.UUID, domain string) (*Target, error) {
	args := m.Called(ctx, organizationID, domain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Target), args.Error(1)
}

func (m *mockTargetStore) Update(ctx context.Context, target *Target) error {
	args := m.Called(ctx, target)
	return args.Error(0)
}

func (m *mockTargetStore) ListHistory(ctx context.Context, targetID uuid.UUID) ([]ReplanningHistory, error) {
	args := m.Called(ctx, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ReplanningHistory), args.Error(1)
}

func (m *mockTargetStore) ListAllocations(ctx context.Context, targetID uuid.UUID) ([]MetricAllocation, error) {
	args := m.Called(ctx, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]MetricAllocation), args.Error(1)
}

func newTestService(store Store) *Service {
	return NewService(store, NewPathways(defaultPathwayPoints()), zap.NewNop())
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateTargetFromPercent(t *testing.T) {
	store := new(mockTargetStore)
	store.On("Create", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(store)

	target, err := service.CreateTarget(context.Background(), CreateTargetRequest{
		OrganizationID:        uuid.New(),
		BaselineYear:          2025,
		BaselineValue:         1000,
		TargetYear:            2030,
		TotalReductionPercent: floatPtr(30),
	})

	assert.NoError(t, err)
	assert.Equal(t, 700.0, target.TargetValue)
	assert.Equal(t, 30.0, target.TotalReductionPercent)
	assert.Equal(t, TargetStatusActive, target.Status)
	assert.Equal(t, "emissions", target.Domain)
	assert.Equal(t, 6.0, target.AnnualReductionPercent())
	store.AssertExpectations(t)
}

func TestCreateTargetAbsoluteValueWins(t *testing.T) {
	store := new(mockTargetStore)
	store.On("Create", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(store)

	target, err := service.CreateTarget(context.Background(), CreateTargetRequest{
		OrganizationID:        uuid.New(),
		BaselineYear:          2025,
		BaselineValue:         1000,
		TargetYear:            2030,
		TargetValue:           floatPtr(800),
		TotalReductionPercent: floatPtr(50),
	})

	assert.NoError(t, err)
	assert.Equal(t, 800.0, target.TargetValue)
	assert.Equal(t, 20.0, target.TotalReductionPercent)
}

func TestCreateTargetGeneratesName(t *testing.T) {
	store := new(mockTargetStore)
	store.On("Create", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(store)

	target, err := service.CreateTarget(context.Background(), CreateTargetRequest{
		OrganizationID:        uuid.New(),
		BaselineYear:          2025,
		BaselineValue:         500,
		TargetYear:            2035,
		TotalReductionPercent: floatPtr(42),
	})

	assert.NoError(t, err)
	assert.Equal(t, "Reduce emissions 42% by 2035", target.Name)
}

func TestCreateTargetValidation(t *testing.T) {
	service := newTestService(new(mockTargetStore))

	cases := []struct {
		name string
		req  CreateTargetRequest
	}{
		{
			name: "target year before baseline",
			req: CreateTargetRequest{
				BaselineYear: 2030, BaselineValue: 1000, TargetYear: 2025,
				TotalReductionPercent: floatPtr(30),
			},
		},
		{
			name: "no figure given",
			req: CreateTargetRequest{
				BaselineYear: 2025, BaselineValue: 1000, TargetYear: 2030,
			},
		},
		{
			name: "percent over 100",
			req: CreateTargetRequest{
				BaselineYear: 2025, BaselineValue: 1000, TargetYear: 2030,
				TotalReductionPercent: floatPtr(120),
			},
		},
		{
			name: "target above baseline",
			req: CreateTargetRequest{
				BaselineYear: 2025, BaselineValue: 1000, TargetYear: 2030,
				TargetValue: floatPtr(1200),
			},
		},
		{
			name: "zero baseline",
			req: CreateTargetRequest{
				BaselineYear: 2025, BaselineValue: 0, TargetYear: 2030,
				TotalReductionPercent: floatPtr(30),
			},
		},
		{
			name: "unknown domain",
			req: CreateTargetRequest{
				Domain:       "plasma",
				BaselineYear: 2025, BaselineValue: 1000, TargetYear: 2030,
				TotalReductionPercent: floatPtr(30),
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateTarget(context.Background(), tc.req)
			assert.ErrorIs(t, err, ErrInvalidTarget)
		})
	}
}

func TestCreateTargetSBTiValidation(t *testing.T) {
	store := new(mockTargetStore)
	store.On("Create", mock.Anything, mock.Anything).Return(nil)
	service := newTestService(store)

	scenario := string(ScenarioSBTi15C)

	aligned, err := service.CreateTarget(context.Background(), CreateTargetRequest{
		OrganizationID:        uuid.New(),
		BaselineYear:          2020,
		BaselineValue:         1000,
		TargetYear:            2030,
		TotalReductionPercent: floatPtr(50),
		SBTiScenario:          &scenario,
	})
	assert.NoError(t, err)
	assert.True(t, aligned.SBTiValidated)

	lagging, err := service.CreateTarget(context.Background(), CreateTargetRequest{
		OrganizationID:        uuid.New(),
		BaselineYear:          2020,
		BaselineValue:         1000,
		TargetYear:            2030,
		TotalReductionPercent: floatPtr(20),
		SBTiScenario:          &scenario,
	})
	assert.NoError(t, err)
	assert.False(t, lagging.SBTiValidated)
}

func TestCheckAlignment(t *testing.T) {
	service := newTestService(new(mockTargetStore))

	result, err := service.CheckAlignment(&Target{
		BaselineYear:          2020,
		TargetYear:            2030,
		TotalReductionPercent: 42,
	}, ScenarioSBTi15C)

	assert.NoError(t, err)
	assert.True(t, result.Aligned)
	assert.InDelta(t, 42.0, result.RequiredReductionPercent, 0.001)
}
