package diffusion

import (
	"context"

	"github.com/heatwork/heatwork/internal/network"
)

// GeneScore is one row of a gene level summary: a gene identifier and its
// significance p-value.
type GeneScore struct {
	Gene   string
	PValue float64
}

// GeneLevelSummary has one row per network gene. It is the exact input
// contract expected by the diffusion step.
type GeneLevelSummary []GeneScore

// NewGeneLevelSummary builds a summary over every gene of the network with a
// default p-value of 1 (not significant), and 0 (maximally significant) for
// genes present in the seed list.
func NewGeneLevelSummary(g *network.Graph, seeds []string) GeneLevelSummary {
	seedSet := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		seedSet[s] = struct{}{}
	}

	genes := g.Nodes()
	summary := make(GeneLevelSummary, 0, len(genes))
	for _, gene := range genes {
		p := 1.0
		if _, ok := seedSet[gene]; ok {
			p = 0.0
		}
		summary = append(summary, GeneScore{Gene: gene, PValue: p})
	}
	return summary
}

// Diffuser propagates the initial signal of a gene level summary across a
// network and returns per gene heat scores. Implementations are opaque to the
// task engine, any failure is terminal for the task being processed.
type Diffuser interface {
	Diffuse(ctx context.Context, g *network.Graph, summary GeneLevelSummary, alpha float64) (map[string]float64, error)
}
