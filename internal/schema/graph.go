package schema

import "strings"

// Edge is one direction of a mirrored foreign-key relationship.
type Edge struct {
	To         string
	FromColumn string
	ToColumn   string
	Heuristic  bool
}

// Graph is the undirected adjacency over tables built by mirroring each
// foreign key in both directions with the column pair swapped. It serves
// path-finding only; referential integrity is the store's business.
type Graph struct {
	adjacency map[string][]Edge
	names     map[string]string
}

func BuildGraph(keys []ForeignKey) *Graph {
	g := &Graph{
		adjacency: make(map[string][]Edge),
		names:     make(map[string]string),
	}
	for _, key := range keys {
		if key.FromTable == "" || key.ToTable == "" {
			continue
		}
		g.addEdge(key.FromTable, Edge{
			To:         key.ToTable,
			FromColumn: key.FromColumn,
			ToColumn:   key.ToColumn,
			Heuristic:  key.Heuristic,
		})
		g.addEdge(key.ToTable, Edge{
			To:         key.FromTable,
			FromColumn: key.ToColumn,
			ToColumn:   key.FromColumn,
			Heuristic:  key.Heuristic,
		})
	}
	return g
}

func (g *Graph) addEdge(from string, edge Edge) {
	key := strings.ToLower(from)
	g.names[key] = from
	g.names[strings.ToLower(edge.To)] = edge.To
	g.adjacency[key] = append(g.adjacency[key], edge)
}

func (g *Graph) Neighbors(table string) []Edge {
	return g.adjacency[strings.ToLower(table)]
}

// EdgeBetween returns the first edge connecting two adjacent tables,
// preferring explicit edges over heuristic ones.
func (g *Graph) EdgeBetween(from, to string) (Edge, bool) {
	var fallback Edge
	found := false
	for _, edge := range g.Neighbors(from) {
		if !strings.EqualFold(edge.To, to) {
			continue
		}
		if !edge.Heuristic {
			return edge, true
		}
		if !found {
			fallback = edge
			found = true
		}
	}
	return fallback, found
}

// FindPath computes a table sequence starting at start that visits every
// table in targets, in the given order, by repeated shortest-path BFS.
// It returns nil when any target is unreachable.
func (g *Graph) FindPath(start string, targets []string) []string {
	if len(targets) == 0 {
		return nil
	}

	path := []string{g.canonical(start)}
	current := start
	for _, goal := range targets {
		if strings.EqualFold(goal, current) {
			continue
		}
		segment := g.shortestPath(current, goal)
		if segment == nil {
			return nil
		}
		path = append(path, segment[1:]...)
		current = goal
	}
	return path
}

func (g *Graph) shortestPath(from, to string) []string {
	fromKey := strings.ToLower(from)
	toKey := strings.ToLower(to)

	previous := map[string]string{fromKey: ""}
	queue := []string{fromKey}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if node == toKey {
			return g.reconstruct(previous, fromKey, toKey)
		}
		for _, edge := range g.adjacency[node] {
			neighbor := strings.ToLower(edge.To)
			if _, seen := previous[neighbor]; seen {
				continue
			}
			previous[neighbor] = node
			queue = append(queue, neighbor)
		}
	}
	return nil
}

func (g *Graph) reconstruct(previous map[string]string, fromKey, toKey string) []string {
	var chain []string
	for node := toKey; node != ""; node = previous[node] {
		chain = append(chain, g.names[node])
		if node == fromKey {
			break
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func (g *Graph) canonical(table string) string {
	if name, ok := g.names[strings.ToLower(table)]; ok {
		return name
	}
	return table
}
