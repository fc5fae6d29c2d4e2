package diffusion_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/heatwork/heatwork/internal/diffusion"
	"github.com/heatwork/heatwork/internal/network"
)

func TestNewGeneLevelSummary(t *testing.T) {
	tests := map[string]struct {
		edges      [][2]string
		seeds      []string
		expSummary diffusion.GeneLevelSummary
	}{
		"Seed genes get p-value 0, everything else 1": {
			edges: [][2]string{{"G1", "G2"}, {"G2", "G3"}},
			seeds: []string{"G1"},
			expSummary: diffusion.GeneLevelSummary{
				{Gene: "G1", PValue: 0},
				{Gene: "G2", PValue: 1},
				{Gene: "G3", PValue: 1},
			},
		},
		"No seeds leaves every gene not significant": {
			edges: [][2]string{{"G1", "G2"}},
			expSummary: diffusion.GeneLevelSummary{
				{Gene: "G1", PValue: 1},
				{Gene: "G2", PValue: 1},
			},
		},
		"Seeds absent from the network are ignored": {
			edges: [][2]string{{"G1", "G2"}},
			seeds: []string{"G9"},
			expSummary: diffusion.GeneLevelSummary{
				{Gene: "G1", PValue: 1},
				{Gene: "G2", PValue: 1},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			g := network.NewGraph()
			for _, e := range test.edges {
				g.AddEdge(e[0], e[1], 1)
			}

			summary := diffusion.NewGeneLevelSummary(g, test.seeds)

			assert.Equal(t, test.expSummary, summary)
		})
	}
}
