package graph

import "sort"

// Components returns the connected components of g as lists of node IDs,
// largest first. Ties keep discovery order.
func Components(g *Graph) [][]string {
	if g == nil || len(g.Nodes) == 0 {
		return nil
	}

	idx := make(map[string]int, len(g.Nodes))
	for i, n := range g.Nodes {
		idx[n.ID] = i
	}
	adj := make([][]int, len(g.Nodes))
	for _, e := range g.Edges {
		a, okA := idx[e.From]
		b, okB := idx[e.To]
		if !okA || !okB {
			continue
		}
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}

	// Connected components via BFS.
	visited := make([]bool, len(g.Nodes))
	var components [][]string
	for i := range g.Nodes {
		if visited[i] {
			continue
		}
		var comp []string
		queue := []int{i}
		visited[i] = true
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			comp = append(comp, g.Nodes[node].ID)
			for _, next := range adj[node] {
				if !visited[next] {
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
		components = append(components, comp)
	}

	sort.SliceStable(components, func(i, j int) bool {
		return len(components[i]) > len(components[j])
	})
	return components
}

// Hubs returns up to n entity nodes with the highest degree. Ties keep
// node order.
func Hubs(g *Graph, n int) []Node {
	var hubs []Node
	for _, node := range g.Nodes {
		if node.Kind == NodeEntity {
			hubs = append(hubs, node)
		}
	}
	sort.SliceStable(hubs, func(i, j int) bool {
		return hubs[i].Degree > hubs[j].Degree
	})
	if len(hubs) > n {
		hubs = hubs[:n]
	}
	return hubs
}
