package hitchhike

import (
	"container/heap"
	"math"

	"github.com/paulmach/osm"
	"github.com/pkg/errors"
)

// shortestPath runs Dijkstra from source to target using given weight.
//
// Ties between equal tentative distances are broken by push order, neighbours are relaxed
// in adjacency (insertion) order and only strict improvements replace a predecessor,
// so the same graph always yields the same path.
func shortestPath(graph *Graph, source, target osm.NodeID, weight WeightFunc) (float64, []osm.NodeID, error) {
	if !graph.HasNode(source) {
		return -1, nil, errors.Wrapf(ErrNodeNotFound, "source %d", source)
	}
	if !graph.HasNode(target) {
		return -1, nil, errors.Wrapf(ErrNodeNotFound, "target %d", target)
	}
	if source == target {
		return 0, []osm.NodeID{source}, nil
	}

	dist := map[osm.NodeID]float64{source: 0}
	prev := make(map[osm.NodeID]osm.NodeID)
	visited := make(map[osm.NodeID]struct{})
	pq := make(nodePQ, 0, 16)
	heap.Init(&pq)
	seq := uint64(0)
	heap.Push(&pq, &nodeItem{id: source, dist: 0, seq: seq})

	for pq.Len() > 0 {
		item := heap.Pop(&pq).(*nodeItem)
		u := item.id
		if _, ok := visited[u]; ok {
			continue
		}
		visited[u] = struct{}{}
		if u == target {
			break
		}
		for _, edge := range graph.Outgoing(u) {
			v := edge.Target
			if _, ok := visited[v]; ok {
				continue
			}
			w := weight(edge)
			if w < 0 || math.IsNaN(w) {
				return -1, nil, errors.Wrapf(ErrInvalidEdgeData, "negative weight %f on edge %d->%d", w, u, v)
			}
			newDist := dist[u] + w
			if old, ok := dist[v]; ok && newDist >= old {
				continue
			}
			dist[v] = newDist
			prev[v] = u
			seq++
			heap.Push(&pq, &nodeItem{id: v, dist: newDist, seq: seq})
		}
	}

	total, ok := dist[target]
	if _, done := visited[target]; !ok || !done {
		return -1, nil, errors.Wrapf(ErrNoRouteFound, "%d -> %d", source, target)
	}
	path := []osm.NodeID{target}
	for cur := target; cur != source; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return total, path, nil
}

type nodeItem struct {
	id   osm.NodeID
	dist float64
	seq  uint64
}

// nodePQ is a min-heap ordered by distance, then by push sequence
type nodePQ []*nodeItem

func (pq nodePQ) Len() int { return len(pq) }

func (pq nodePQ) Less(i, j int) bool {
	if pq[i].dist == pq[j].dist {
		return pq[i].seq < pq[j].seq
	}
	return pq[i].dist < pq[j].dist
}

func (pq nodePQ) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *nodePQ) Push(x interface{}) { *pq = append(*pq, x.(*nodeItem)) }

func (pq *nodePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
