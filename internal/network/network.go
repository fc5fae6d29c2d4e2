package network

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
)

// Graph is an undirected weighted gene interaction network with string gene
// identifiers as node labels.
type Graph struct {
	g     *simple.WeightedUndirectedGraph
	ids   map[string]int64
	names map[int64]string
	next  int64
}

// NewGraph returns an empty network.
func NewGraph() *Graph {
	return &Graph{
		g:     simple.NewWeightedUndirectedGraph(0, 0),
		ids:   map[string]int64{},
		names: map[int64]string{},
	}
}

// AddNode adds a gene to the network if not already present.
func (g *Graph) AddNode(gene string) {
	g.nodeID(gene)
}

// AddEdge adds a weighted undirected edge between two genes, adding the genes
// themselves when missing. Self interactions are ignored, gonum simple graphs
// do not allow them.
func (g *Graph) AddEdge(geneA, geneB string, weight float64) {
	if geneA == geneB {
		return
	}
	a := g.nodeID(geneA)
	b := g.nodeID(geneB)
	g.g.SetWeightedEdge(g.g.NewWeightedEdge(simple.Node(a), simple.Node(b), weight))
}

// HasNode returns true if the gene is a node of the network.
func (g *Graph) HasNode(gene string) bool {
	_, ok := g.ids[gene]
	return ok
}

// Nodes returns all gene identifiers in the network, sorted.
func (g *Graph) Nodes() []string {
	genes := make([]string, 0, len(g.ids))
	for gene := range g.ids {
		genes = append(genes, gene)
	}
	sort.Strings(genes)
	return genes
}

// NumNodes returns the number of genes in the network.
func (g *Graph) NumNodes() int {
	return len(g.ids)
}

// NumEdges returns the number of interactions in the network.
func (g *Graph) NumEdges() int {
	return g.g.Edges().Len()
}

// Weight returns the weight of the edge between two genes and whether the
// edge exists.
func (g *Graph) Weight(geneA, geneB string) (float64, bool) {
	a, okA := g.ids[geneA]
	b, okB := g.ids[geneB]
	if !okA || !okB || a == b {
		return 0, false
	}
	e := g.g.WeightedEdge(a, b)
	if e == nil {
		return 0, false
	}
	return e.Weight(), true
}

// Neighbors returns the genes directly connected to the given gene.
func (g *Graph) Neighbors(gene string) []string {
	id, ok := g.ids[gene]
	if !ok {
		return nil
	}
	var neighbors []string
	it := g.g.From(id)
	for it.Next() {
		neighbors = append(neighbors, g.names[it.Node().ID()])
	}
	sort.Strings(neighbors)
	return neighbors
}

// Edges visits every interaction in the network.
func (g *Graph) Edges(visit func(geneA, geneB string, weight float64)) {
	it := g.g.WeightedEdges()
	for it.Next() {
		e := it.WeightedEdge()
		visit(g.names[e.From().ID()], g.names[e.To().ID()], e.Weight())
	}
}

// Relabel returns a copy of the network with every gene renamed through the
// mapping. Genes absent from the mapping keep their name.
func (g *Graph) Relabel(names map[string]string) *Graph {
	rename := func(gene string) string {
		if n, ok := names[gene]; ok {
			return n
		}
		return gene
	}

	ng := NewGraph()
	for gene := range g.ids {
		ng.AddNode(rename(gene))
	}
	g.Edges(func(a, b string, w float64) {
		ng.AddEdge(rename(a), rename(b), w)
	})
	return ng
}

func (g *Graph) nodeID(gene string) int64 {
	if id, ok := g.ids[gene]; ok {
		return id
	}
	id := g.next
	g.next++
	g.ids[gene] = id
	g.names[id] = gene
	g.g.AddNode(simple.Node(id))
	return id
}

// ParseSIF parses a three column, tab separated edge list (source gene,
// target gene, weight) into a network. The weight column is optional and
// defaults to 1.
func ParseSIF(r io.Reader) (*Graph, error) {
	g := NewGraph()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		fields := strings.Split(text, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected at least source and target genes, got %q", line, text)
		}

		weight := 1.0
		if len(fields) >= 3 && strings.TrimSpace(fields[2]) != "" {
			w, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid edge weight %q: %w", line, fields[2], err)
			}
			weight = w
		}

		g.AddEdge(strings.TrimSpace(fields[0]), strings.TrimSpace(fields[1]), weight)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("could not read edge list: %w", err)
	}

	return g, nil
}

// ParseSIFFile parses an edge list file into a network.
func ParseSIFFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open network file: %w", err)
	}
	defer f.Close()

	return ParseSIF(f)
}
