// Package mocks provides test doubles for the overpass client.
package mocks

import (
	"context"

	overpass "github.com/sells-group/site-feasibility/pkg/overpass"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Around provides a mock function with given fields: ctx, q
func (_m *MockClient) Around(ctx context.Context, q overpass.AroundQuery) ([]overpass.Element, error) {
	ret := _m.Called(ctx, q)

	if len(ret) == 0 {
		panic("no return value specified for Around")
	}

	var r0 []overpass.Element
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, overpass.AroundQuery) ([]overpass.Element, error)); ok {
		return rf(ctx, q)
	}
	if rf, ok := ret.Get(0).(func(context.Context, overpass.AroundQuery) []overpass.Element); ok {
		r0 = rf(ctx, q)
	} else {
		if ret.Get(0) != nil {
			r0 = ret.Get(0).([]overpass.Element)
		}
	}

	if rf, ok := ret.Get(1).(func(context.Context, overpass.AroundQuery) error); ok {
		r1 = rf(ctx, q)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
