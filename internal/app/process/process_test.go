package process_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/heatwork/heatwork/internal/app/process"
	"github.com/heatwork/heatwork/internal/app/process/processmock"
	"github.com/heatwork/heatwork/internal/conventions"
	"github.com/heatwork/heatwork/internal/diffusion"
	"github.com/heatwork/heatwork/internal/diffusion/diffusionmock"
	"github.com/heatwork/heatwork/internal/model"
	"github.com/heatwork/heatwork/internal/network"
)

func floatPtr(f float64) *float64 { return &f }

func testGraph() *network.Graph {
	g := network.NewGraph()
	g.AddEdge("TP53", "MDM2", 1)
	g.AddEdge("MDM2", "BRCA1", 1)
	return g
}

// taskWithDir materializes the record in a real directory so the inline
// network branch can be exercised.
func taskWithDir(t *testing.T, record model.TaskRecord, sif string) *model.Task {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "submitted", "1.2.3.4", "abc")
	require.NoError(t, os.MkdirAll(dir, 0755))
	if sif != "" {
		require.NoError(t, os.WriteFile(conventions.NetworkFilePath(dir), []byte(sif), 0644))
	}
	return model.NewTask(dir, record)
}

func TestServiceProcess(t *testing.T) {
	tests := map[string]struct {
		record    model.TaskRecord
		sif       string
		mock      func(ndex *processmock.MockNetworkFetcher, biggim *processmock.MockColumnFetcher, diffuser *diffusionmock.MockDiffuser)
		expStage  process.Stage
		expErrMsg string
		check     func(t *testing.T, task *model.Task)
	}{
		"An inline network task runs the full pipeline": {
			record: model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "TP53,UNKNOWN"},
			sif:    "TP53\tMDM2\nMDM2\tBRCA1\n",
			mock: func(_ *processmock.MockNetworkFetcher, _ *processmock.MockColumnFetcher, diffuser *diffusionmock.MockDiffuser) {
				diffuser.On("Diffuse", mock.Anything, mock.Anything, mock.Anything, 0.5).Once().Return(map[string]float64{"TP53": 0.9}, nil)
			},
			check: func(t *testing.T, task *model.Task) {
				assert.Equal(t, []string{"TP53"}, task.FilteredSeeds)
				assert.Len(t, task.Summary, 3)
				assert.Equal(t, map[string]float64{"TP53": 0.9}, task.Result)
			},
		},
		"A task without an inline network falls back to NDEx": {
			record: model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "TP53", NDEx: "net-1"},
			mock: func(ndex *processmock.MockNetworkFetcher, _ *processmock.MockColumnFetcher, diffuser *diffusionmock.MockDiffuser) {
				ndex.On("FetchNetwork", mock.Anything, "net-1").Once().Return(testGraph(), nil)
				diffuser.On("Diffuse", mock.Anything, mock.Anything, mock.Anything, 0.5).Once().Return(map[string]float64{"TP53": 1}, nil)
			},
			check: func(t *testing.T, task *model.Task) {
				assert.Equal(t, []string{"TP53"}, task.FilteredSeeds)
			},
		},
		"A task with only a column builds the network from BigGIM": {
			record: model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "TP53", Column: "GTEx_Brain_Correlation"},
			mock: func(_ *processmock.MockNetworkFetcher, biggim *processmock.MockColumnFetcher, diffuser *diffusionmock.MockDiffuser) {
				biggim.On("FetchColumn", mock.Anything, "GTEx_Brain_Correlation").Once().Return(testGraph(), nil)
				diffuser.On("Diffuse", mock.Anything, mock.Anything, mock.Anything, 0.5).Once().Return(map[string]float64{"TP53": 1}, nil)
			},
			check: func(t *testing.T, task *model.Task) {
				assert.NotNil(t, task.Result)
			},
		},
		"A task without any network source fails acquisition": {
			record:    model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "TP53"},
			mock:      func(*processmock.MockNetworkFetcher, *processmock.MockColumnFetcher, *diffusionmock.MockDiffuser) {},
			expStage:  process.StageAcquireNetwork,
			expErrMsg: "unable to acquire network for task",
		},
		"A failing external fetch fails acquisition": {
			record: model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "TP53", NDEx: "net-1"},
			mock: func(ndex *processmock.MockNetworkFetcher, _ *processmock.MockColumnFetcher, _ *diffusionmock.MockDiffuser) {
				ndex.On("FetchNetwork", mock.Anything, "net-1").Once().Return(nil, fmt.Errorf("boom"))
			},
			expStage:  process.StageAcquireNetwork,
			expErrMsg: "unable to acquire network for task",
		},
		"A task without seeds fails before diffusion": {
			record: model.TaskRecord{Alpha: floatPtr(0.5), NDEx: "net-1"},
			mock: func(ndex *processmock.MockNetworkFetcher, _ *processmock.MockColumnFetcher, _ *diffusionmock.MockDiffuser) {
				ndex.On("FetchNetwork", mock.Anything, "net-1").Once().Return(testGraph(), nil)
			},
			expStage:  process.StageFilterSeeds,
			expErrMsg: "could not read seeds for task",
		},
		"A task whose seeds all miss the network fails seed filtering": {
			record: model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "NOPE1,NOPE2", NDEx: "net-1"},
			mock: func(ndex *processmock.MockNetworkFetcher, _ *processmock.MockColumnFetcher, _ *diffusionmock.MockDiffuser) {
				ndex.On("FetchNetwork", mock.Anything, "net-1").Once().Return(testGraph(), nil)
			},
			expStage:  process.StageFilterSeeds,
			expErrMsg: "no seeds are in network",
		},
		"A task without alpha fails before diffusion": {
			record: model.TaskRecord{Seeds: "TP53", NDEx: "net-1"},
			mock: func(ndex *processmock.MockNetworkFetcher, _ *processmock.MockColumnFetcher, _ *diffusionmock.MockDiffuser) {
				ndex.On("FetchNetwork", mock.Anything, "net-1").Once().Return(testGraph(), nil)
			},
			expStage:  process.StageDiffuse,
			expErrMsg: "could not read alpha parameter",
		},
		"A diffusion failure yields no result": {
			record: model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "TP53", NDEx: "net-1"},
			mock: func(ndex *processmock.MockNetworkFetcher, _ *processmock.MockColumnFetcher, diffuser *diffusionmock.MockDiffuser) {
				ndex.On("FetchNetwork", mock.Anything, "net-1").Once().Return(testGraph(), nil)
				diffuser.On("Diffuse", mock.Anything, mock.Anything, mock.Anything, 0.5).Once().Return(nil, fmt.Errorf("boom"))
			},
			expStage:  process.StageDiffuse,
			expErrMsg: "no result generated",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ndex := &processmock.MockNetworkFetcher{}
			biggim := &processmock.MockColumnFetcher{}
			diffuser := &diffusionmock.MockDiffuser{}
			test.mock(ndex, biggim, diffuser)

			svc, err := process.NewService(process.ServiceConfig{
				NDEx:     ndex,
				BigGIM:   biggim,
				Diffuser: diffuser,
			})
			require.NoError(t, err)

			task := taskWithDir(t, test.record, test.sif)
			err = svc.Process(context.Background(), task)

			if test.expStage != "" {
				var stageErr *process.StageError
				require.ErrorAs(t, err, &stageErr)
				assert.Equal(t, test.expStage, stageErr.Stage)
				assert.Equal(t, test.expErrMsg, stageErr.Message)
			} else {
				require.NoError(t, err)
				test.check(t, task)
			}

			ndex.AssertExpectations(t)
			biggim.AssertExpectations(t)
			diffuser.AssertExpectations(t)
		})
	}
}

func TestStageErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := &process.StageError{Stage: process.StageDiffuse, Message: "no result generated", Err: cause}

	assert.Equal(t, "no result generated: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestServiceProcessSummary(t *testing.T) {
	// The summary covers every network gene, seeds at p-value 0.
	ndex := &processmock.MockNetworkFetcher{}
	ndex.On("FetchNetwork", mock.Anything, "net-1").Once().Return(testGraph(), nil)
	diffuser := &diffusionmock.MockDiffuser{}
	diffuser.On("Diffuse", mock.Anything, mock.Anything, mock.Anything, 0.5).Once().Return(map[string]float64{"TP53": 1}, nil)

	svc, err := process.NewService(process.ServiceConfig{
		NDEx:     ndex,
		BigGIM:   &processmock.MockColumnFetcher{},
		Diffuser: diffuser,
	})
	require.NoError(t, err)

	task := taskWithDir(t, model.TaskRecord{Alpha: floatPtr(0.5), Seeds: "TP53", NDEx: "net-1"}, "")
	require.NoError(t, svc.Process(context.Background(), task))

	assert.Equal(t, diffusion.GeneLevelSummary{
		{Gene: "BRCA1", PValue: 1},
		{Gene: "MDM2", PValue: 1},
		{Gene: "TP53", PValue: 0},
	}, task.Summary)
}
