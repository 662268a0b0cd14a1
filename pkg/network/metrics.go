package network

import (
	"context"
	"time"

	"github.com/casegraph/backend/pkg/common"
)

// Recompute calculates degree and betweenness centrality for every node
// in the owner's graph and replaces the stored snapshot set. Disconnected
// graphs are fine; isolated nodes score zero on both metrics.
func (e *Engine) Recompute(ctx context.Context, owner common.Owner) ([]common.MetricsSnapshot, error) {
	lock := e.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	nodes, err := e.store.ListNodes(ctx, owner)
	if err != nil {
		return nil, err
	}
	edges, err := e.store.ListEdges(ctx, owner)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(nodes))
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		ids[i] = n.EntityID
		index[n.EntityID] = i
	}

	adj := make([][]int, len(nodes))
	for _, edge := range edges {
		ai, aok := index[edge.A]
		bi, bok := index[edge.B]
		if !aok || !bok {
			continue
		}
		adj[ai] = append(adj[ai], bi)
		adj[bi] = append(adj[bi], ai)
	}

	degree := degreeCentrality(adj)
	between := betweennessCentrality(adj)

	now := time.Now()
	snapshots := make([]common.MetricsSnapshot, 0, 2*len(nodes))
	for i, id := range ids {
		snapshots = append(snapshots,
			common.MetricsSnapshot{Owner: owner, EntityID: id, Metric: common.MetricDegree, Value: degree[i], CalculatedAt: now},
			common.MetricsSnapshot{Owner: owner, EntityID: id, Metric: common.MetricBetweenness, Value: between[i], CalculatedAt: now},
		)
	}

	if err := e.store.ReplaceMetrics(ctx, owner, snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

// degreeCentrality normalizes each node's degree by |V|-1, so values lie
// in [0, 1]. A single-node graph scores zero.
func degreeCentrality(adj [][]int) []float64 {
	n := len(adj)
	values := make([]float64, n)
	if n <= 1 {
		return values
	}
	for i := range adj {
		values[i] = float64(len(adj[i])) / float64(n-1)
	}
	return values
}

// betweennessCentrality runs Brandes' algorithm over unweighted shortest
// paths. Endpoints are excluded, and each undirected path is counted
// once (the accumulated pair sums are halved).
func betweennessCentrality(adj [][]int) []float64 {
	n := len(adj)
	values := make([]float64, n)

	sigma := make([]float64, n)
	dist := make([]int, n)
	delta := make([]float64, n)
	preds := make([][]int, n)
	stack := make([]int, 0, n)
	queue := make([]int, 0, n)

	for s := 0; s < n; s++ {
		stack = stack[:0]
		queue = queue[:0]
		for i := 0; i < n; i++ {
			sigma[i] = 0
			dist[i] = -1
			delta[i] = 0
			preds[i] = preds[i][:0]
		}
		sigma[s] = 1
		dist[s] = 0
		queue = append(queue, s)

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)
			for _, w := range adj[v] {
				if dist[w] < 0 {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					preds[w] = append(preds[w], v)
				}
			}
		}

		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range preds[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s {
				values[w] += delta[w]
			}
		}
	}

	for i := range values {
		values[i] /= 2
	}
	return values
}
