package community

import (
	"sort"

	"github.com/agenthands/chronicle/internal/core/model"
)

// GraphEdge is the reduced edge view used for clustering: just the two
// endpoints of a live fact.
type GraphEdge struct {
	SourceUUID string
	TargetUUID string
}

// Detector clusters an entity graph. Implementations treat the graph as
// undirected and ignore edges whose endpoints are not in the node set.
type Detector interface {
	Detect(nodes []*model.EntityNode, edges []GraphEdge) ([][]*model.EntityNode, error)
}

// LabelPropagationDetector clusters by label propagation: every node starts
// with its own label and repeatedly adopts the most frequent label among its
// neighbors until labels stop changing.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{MaxIterations: 20}
}

func (d *LabelPropagationDetector) Detect(nodes []*model.EntityNode, edges []GraphEdge) ([][]*model.EntityNode, error) {
	if len(nodes) == 0 {
		return nil, nil
	}

	nodeByUUID := make(map[string]*model.EntityNode, len(nodes))
	adj := make(map[string]map[string]int, len(nodes)) // node -> neighbor -> weight
	for _, n := range nodes {
		nodeByUUID[n.UUID] = n
		adj[n.UUID] = make(map[string]int)
	}

	// Parallel edges between the same pair count as a stronger connection.
	for _, e := range edges {
		if _, ok := nodeByUUID[e.SourceUUID]; !ok {
			continue
		}
		if _, ok := nodeByUUID[e.TargetUUID]; !ok {
			continue
		}
		adj[e.SourceUUID][e.TargetUUID]++
		adj[e.TargetUUID][e.SourceUUID]++
	}

	labels := make(map[string]string, len(nodes))
	order := make([]string, len(nodes))
	for i, n := range nodes {
		labels[n.UUID] = n.UUID
		order[i] = n.UUID
	}
	// Fixed processing order keeps results deterministic.
	sort.Strings(order)

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0
		for _, u := range order {
			neighbors := adj[u]
			if len(neighbors) == 0 {
				continue
			}

			counts := make(map[string]int)
			max := 0
			for v, weight := range neighbors {
				counts[labels[v]] += weight
				if counts[labels[v]] > max {
					max = counts[labels[v]]
				}
			}

			var tied []string
			for label, count := range counts {
				if count == max {
					tied = append(tied, label)
				}
			}
			sort.Strings(tied)
			best := tied[len(tied)-1]

			if labels[u] != best {
				labels[u] = best
				changed++
			}
		}
		if changed == 0 {
			break
		}
	}

	clusters := make(map[string][]*model.EntityNode)
	for _, u := range order {
		clusters[labels[u]] = append(clusters[labels[u]], nodeByUUID[u])
	}

	labelOrder := make([]string, 0, len(clusters))
	for label := range clusters {
		labelOrder = append(labelOrder, label)
	}
	sort.Strings(labelOrder)

	var communities [][]*model.EntityNode
	for _, label := range labelOrder {
		// Singletons are not communities.
		if len(clusters[label]) >= 2 {
			communities = append(communities, clusters[label])
		}
	}
	return communities, nil
}
