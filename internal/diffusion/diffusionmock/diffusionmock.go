package diffusionmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/heatwork/heatwork/internal/diffusion"
	"github.com/heatwork/heatwork/internal/network"
)

// MockDiffuser is a mock implementation of diffusion.Diffuser.
type MockDiffuser struct {
	mock.Mock
}

func (m *MockDiffuser) Diffuse(ctx context.Context, g *network.Graph, summary diffusion.GeneLevelSummary, alpha float64) (map[string]float64, error) {
	args := m.Called(ctx, g, summary, alpha)
	result, _ := args.Get(0).(map[string]float64)
	return result, args.Error(1)
}
