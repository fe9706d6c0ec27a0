package graph

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"graphspace/backend/internal/constants"
)

// Statistics tallies node and edge kinds and ranks the most central nodes.
// A failure in the centrality ranking leaves MostCentralNodes empty.
func (q *QueryEngine) Statistics() Statistics {
	stats := Statistics{
		TotalNodes:       q.graph.NodeCount(),
		TotalEdges:       q.graph.EdgeCount(),
		NodeTypes:        make(map[string]int),
		EdgeTypes:        make(map[string]int),
		MostCentralNodes: []CentralNode{},
	}

	for _, n := range q.graph.nodes {
		stats.NodeTypes[n.Key.Kind.String()]++
	}
	q.graph.EachEdge(func(_, _ Key, e *Edge) {
		rel := e.Relationship()
		if rel == "" {
			rel = "unknown"
		}
		stats.EdgeTypes[rel]++
	})

	central, err := q.topCentral(constants.TopCentralNodes)
	if err != nil {
		q.logger.Warn("Centrality ranking failed", zap.Error(err))
		return stats
	}
	stats.MostCentralNodes = central
	return stats
}

func (q *QueryEngine) topCentral(limit int) (top []CentralNode, err error) {
	defer func() {
		if r := recover(); r != nil {
			top = nil
			err = fmt.Errorf("betweenness centrality: %v", r)
		}
	}()

	scores := BetweennessCentrality(q.graph)
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	if len(order) > limit {
		order = order[:limit]
	}

	top = make([]CentralNode, 0, len(order))
	for _, slot := range order {
		key := q.graph.nodes[slot].Key
		top = append(top, CentralNode{ID: key.ID, Kind: key.Kind, Centrality: scores[slot]})
	}
	return top, nil
}

// BetweennessCentrality computes Brandes betweenness for every node slot,
// normalised by 1/((n-1)(n-2)) when n > 2. Scores are indexed like
// Graph.Nodes.
func BetweennessCentrality(g *Graph) []float64 {
	n := len(g.nodes)
	betweenness := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	pred := make([][]int, n)

	for source := 0; source < n; source++ {
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			pred[i] = pred[i][:0]
		}
		sigma[source] = 1
		dist[source] = 0

		stack := make([]int, 0, n)
		queue := []int{source}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]
			stack = append(stack, current)

			for _, next := range g.neighborSlots(current) {
				if dist[next] < 0 {
					queue = append(queue, next)
					dist[next] = dist[current] + 1
				}
				if dist[next] == dist[current]+1 {
					sigma[next] += sigma[current]
					pred[next] = append(pred[next], current)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != source {
				betweenness[w] += delta[w]
			}
		}
	}

	if n > 2 {
		norm := 1.0 / (float64(n-1) * float64(n-2))
		for i := range betweenness {
			betweenness[i] *= norm
		}
	}
	return betweenness
}
