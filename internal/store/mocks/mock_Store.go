// Package mocks provides test doubles for the store package.
package mocks

import (
	"context"
	"time"

	mock "github.com/stretchr/testify/mock"

	model "github.com/sells-group/market-intel/internal/model"
)

// MockStore is a mock type for the Store interface.
type MockStore struct {
	mock.Mock
}

func mustReturn(ret mock.Arguments, method string) {
	if len(ret) == 0 {
		panic("no return value specified for " + method)
	}
}

// CreateClient provides a mock function with given fields: ctx, c
func (_m *MockStore) CreateClient(ctx context.Context, c *model.Client) (int64, error) {
	ret := _m.Called(ctx, c)
	mustReturn(ret, "CreateClient")

	if rf, ok := ret.Get(0).(func(context.Context, *model.Client) (int64, error)); ok {
		return rf(ctx, c)
	}
	return ret.Get(0).(int64), ret.Error(1)
}

// ImportClients provides a mock function with given fields: ctx, clients
func (_m *MockStore) ImportClients(ctx context.Context, clients []model.Client) (int, error) {
	ret := _m.Called(ctx, clients)
	mustReturn(ret, "ImportClients")

	if rf, ok := ret.Get(0).(func(context.Context, []model.Client) (int, error)); ok {
		return rf(ctx, clients)
	}
	return ret.Int(0), ret.Error(1)
}

// GetClient provides a mock function with given fields: ctx, id
func (_m *MockStore) GetClient(ctx context.Context, id int64) (*model.Client, error) {
	ret := _m.Called(ctx, id)
	mustReturn(ret, "GetClient")

	if rf, ok := ret.Get(0).(func(context.Context, int64) (*model.Client, error)); ok {
		return rf(ctx, id)
	}
	var r0 *model.Client
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*model.Client)
	}
	return r0, ret.Error(1)
}

// ListClients provides a mock function with given fields: ctx, projectID
func (_m *MockStore) ListClients(ctx context.Context, projectID int64) ([]model.Client, error) {
	ret := _m.Called(ctx, projectID)
	mustReturn(ret, "ListClients")

	if rf, ok := ret.Get(0).(func(context.Context, int64) ([]model.Client, error)); ok {
		return rf(ctx, projectID)
	}
	var r0 []model.Client
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Client)
	}
	return r0, ret.Error(1)
}

// ListPendingClientIDs provides a mock function with given fields: ctx, sel
func (_m *MockStore) ListPendingClientIDs(ctx context.Context, sel model.PopulationSelector) ([]int64, error) {
	ret := _m.Called(ctx, sel)
	mustReturn(ret, "ListPendingClientIDs")

	if rf, ok := ret.Get(0).(func(context.Context, model.PopulationSelector) ([]int64, error)); ok {
		return rf(ctx, sel)
	}
	var r0 []int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]int64)
	}
	return r0, ret.Error(1)
}

// UpdateClient provides a mock function with given fields: ctx, c
func (_m *MockStore) UpdateClient(ctx context.Context, c *model.Client) error {
	ret := _m.Called(ctx, c)
	mustReturn(ret, "UpdateClient")

	if rf, ok := ret.Get(0).(func(context.Context, *model.Client) error); ok {
		return rf(ctx, c)
	}
	return ret.Error(0)
}

// MarkClientEnriched provides a mock function with given fields: ctx, id, at
func (_m *MockStore) MarkClientEnriched(ctx context.Context, id int64, at time.Time) error {
	ret := _m.Called(ctx, id, at)
	mustReturn(ret, "MarkClientEnriched")

	if rf, ok := ret.Get(0).(func(context.Context, int64, time.Time) error); ok {
		return rf(ctx, id, at)
	}
	return ret.Error(0)
}

// UpsertMarket provides a mock function with given fields: ctx, m
func (_m *MockStore) UpsertMarket(ctx context.Context, m *model.Market) (int64, bool, error) {
	ret := _m.Called(ctx, m)
	mustReturn(ret, "UpsertMarket")

	if rf, ok := ret.Get(0).(func(context.Context, *model.Market) (int64, bool, error)); ok {
		return rf(ctx, m)
	}
	return ret.Get(0).(int64), ret.Bool(1), ret.Error(2)
}

// LinkClientMarket provides a mock function with given fields: ctx, clientID, marketID
func (_m *MockStore) LinkClientMarket(ctx context.Context, clientID int64, marketID int64) error {
	ret := _m.Called(ctx, clientID, marketID)
	mustReturn(ret, "LinkClientMarket")

	if rf, ok := ret.Get(0).(func(context.Context, int64, int64) error); ok {
		return rf(ctx, clientID, marketID)
	}
	return ret.Error(0)
}

// InsertProduct provides a mock function with given fields: ctx, p
func (_m *MockStore) InsertProduct(ctx context.Context, p *model.Product) (bool, error) {
	ret := _m.Called(ctx, p)
	mustReturn(ret, "InsertProduct")

	if rf, ok := ret.Get(0).(func(context.Context, *model.Product) (bool, error)); ok {
		return rf(ctx, p)
	}
	return ret.Bool(0), ret.Error(1)
}

// InsertCompetitor provides a mock function with given fields: ctx, c
func (_m *MockStore) InsertCompetitor(ctx context.Context, c *model.Competitor) (bool, error) {
	ret := _m.Called(ctx, c)
	mustReturn(ret, "InsertCompetitor")

	if rf, ok := ret.Get(0).(func(context.Context, *model.Competitor) (bool, error)); ok {
		return rf(ctx, c)
	}
	return ret.Bool(0), ret.Error(1)
}

// ListCompetitors provides a mock function with given fields: ctx, projectID
func (_m *MockStore) ListCompetitors(ctx context.Context, projectID int64) ([]model.Competitor, error) {
	ret := _m.Called(ctx, projectID)
	mustReturn(ret, "ListCompetitors")

	if rf, ok := ret.Get(0).(func(context.Context, int64) ([]model.Competitor, error)); ok {
		return rf(ctx, projectID)
	}
	var r0 []model.Competitor
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]model.Competitor)
	}
	return r0, ret.Error(1)
}

// InsertLead provides a mock function with given fields: ctx, l
func (_m *MockStore) InsertLead(ctx context.Context, l *model.Lead) (bool, error) {
	ret := _m.Called(ctx, l)
	mustReturn(ret, "InsertLead")

	if rf, ok := ret.Get(0).(func(context.Context, *model.Lead) (bool, error)); ok {
		return rf(ctx, l)
	}
	return ret.Bool(0), ret.Error(1)
}

// Migrate provides a mock function with given fields: ctx
func (_m *MockStore) Migrate(ctx context.Context) error {
	ret := _m.Called(ctx)
	mustReturn(ret, "Migrate")
	return ret.Error(0)
}

// Close provides a mock function with no fields
func (_m *MockStore) Close() error {
	ret := _m.Called()
	mustReturn(ret, "Close")
	return ret.Error(0)
}

// NewMockStore creates a new instance of MockStore. It also registers a
// cleanup function to assert the mocks expectations.
func NewMockStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockStore {
	m := &MockStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
