package randomwalk

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/heatwork/heatwork/internal/diffusion"
	"github.com/heatwork/heatwork/internal/log"
	"github.com/heatwork/heatwork/internal/network"
)

const (
	defaultTolerance     = 1e-9
	defaultMaxIterations = 1000
)

// DiffuserConfig is the configuration for the random walk diffuser.
type DiffuserConfig struct {
	// Tolerance is the L1 convergence threshold of the walk.
	Tolerance float64
	// MaxIterations bounds the walk when it does not converge.
	MaxIterations int
	Logger        log.Logger
}

func (c *DiffuserConfig) defaults() error {
	if c.Tolerance <= 0 {
		c.Tolerance = defaultTolerance
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = defaultMaxIterations
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "diffusion.RandomWalk"})
	return nil
}

// Diffuser runs a random walk with restart over the network: the heat vector
// derived from the gene level summary is propagated along a degree normalized
// adjacency matrix, restarting with probability alpha.
type Diffuser struct {
	tolerance     float64
	maxIterations int
	logger        log.Logger
}

// NewDiffuser creates a new random walk diffuser.
func NewDiffuser(cfg DiffuserConfig) (*Diffuser, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Diffuser{
		tolerance:     cfg.Tolerance,
		maxIterations: cfg.MaxIterations,
		logger:        cfg.Logger,
	}, nil
}

// Diffuse implements diffusion.Diffuser.
func (d *Diffuser) Diffuse(ctx context.Context, g *network.Graph, summary diffusion.GeneLevelSummary, alpha float64) (map[string]float64, error) {
	if g == nil || g.NumNodes() == 0 {
		return nil, fmt.Errorf("network is empty: %w", errInvalidInput)
	}
	if alpha <= 0 || alpha >= 1 {
		return nil, fmt.Errorf("alpha %v out of range (0, 1): %w", alpha, errInvalidInput)
	}

	genes := g.Nodes()
	index := make(map[string]int, len(genes))
	for i, gene := range genes {
		index[gene] = i
	}

	heat, err := heatVector(summary, index)
	if err != nil {
		return nil, err
	}

	walk := transitionMatrix(g, genes, index)

	n := len(genes)
	restart := mat.NewVecDense(n, heat)
	cur := mat.NewVecDense(n, nil)
	cur.CopyVec(restart)
	next := mat.NewVecDense(n, nil)
	diff := mat.NewVecDense(n, nil)

	converged := false
	for i := 0; i < d.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next.MulVec(walk, cur)
		next.ScaleVec(1-alpha, next)
		next.AddScaledVec(next, alpha, restart)

		diff.SubVec(next, cur)
		cur.CopyVec(next)
		if mat.Norm(diff, 1) < d.tolerance {
			converged = true
			d.logger.Debugf("Random walk converged after %d iterations", i+1)
			break
		}
	}
	if !converged {
		d.logger.Warningf("Random walk did not converge within %d iterations", d.maxIterations)
	}

	result := make(map[string]float64, n)
	for i, gene := range genes {
		result[gene] = cur.AtVec(i)
	}
	return result, nil
}

var errInvalidInput = fmt.Errorf("invalid diffusion input")

// heatVector converts summary p-values to initial heat: seed genes (p-value
// 0) get heat 1, everything else 0.
func heatVector(summary diffusion.GeneLevelSummary, index map[string]int) ([]float64, error) {
	heat := make([]float64, len(index))
	hasHeat := false
	for _, row := range summary {
		i, ok := index[row.Gene]
		if !ok {
			return nil, fmt.Errorf("summary gene %q is not in the network: %w", row.Gene, errInvalidInput)
		}
		heat[i] = 1 - row.PValue
		if heat[i] > 0 {
			hasHeat = true
		}
	}
	if !hasHeat {
		return nil, fmt.Errorf("summary carries no heat: %w", errInvalidInput)
	}
	return heat, nil
}

// transitionMatrix builds the column normalized weighted adjacency matrix of
// the network. Columns of isolated genes stay zero, their heat comes from the
// restart term only.
func transitionMatrix(g *network.Graph, genes []string, index map[string]int) *mat.Dense {
	n := len(genes)
	w := mat.NewDense(n, n, nil)
	degree := make([]float64, n)

	g.Edges(func(a, b string, weight float64) {
		i, j := index[a], index[b]
		w.Set(i, j, weight)
		w.Set(j, i, weight)
		degree[j] += weight
		degree[i] += weight
	})

	for j := 0; j < n; j++ {
		if degree[j] == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			if v := w.At(i, j); v != 0 {
				w.Set(i, j, v/degree[j])
			}
		}
	}
	return w
}
