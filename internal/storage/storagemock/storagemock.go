package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/heatwork/heatwork/internal/model"
)

// MockTaskRepository is a mock implementation of storage.TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) GetNextTask(ctx context.Context) (*model.Task, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).(*model.Task)
	return t, args.Error(1)
}

func (m *MockTaskRepository) SaveTask(ctx context.Context, t *model.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) MoveTask(ctx context.Context, t *model.Task, newState model.TaskState, errorMessage string) error {
	args := m.Called(ctx, t, newState, errorMessage)
	return args.Error(0)
}

func (m *MockTaskRepository) CleanUpQuarantine(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) QuarantineSize() int {
	args := m.Called()
	return args.Int(0)
}
