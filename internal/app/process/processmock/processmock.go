package processmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/heatwork/heatwork/internal/network"
)

// MockNetworkFetcher is a mock implementation of process.NetworkFetcher.
type MockNetworkFetcher struct {
	mock.Mock
}

func (m *MockNetworkFetcher) FetchNetwork(ctx context.Context, networkID string) (*network.Graph, error) {
	args := m.Called(ctx, networkID)
	g, _ := args.Get(0).(*network.Graph)
	return g, args.Error(1)
}

// MockColumnFetcher is a mock implementation of process.ColumnFetcher.
type MockColumnFetcher struct {
	mock.Mock
}

func (m *MockColumnFetcher) FetchColumn(ctx context.Context, column string) (*network.Graph, error) {
	args := m.Called(ctx, column)
	g, _ := args.Get(0).(*network.Graph)
	return g, args.Error(1)
}
