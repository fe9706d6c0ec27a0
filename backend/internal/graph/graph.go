package graph

// Reserved edge attribute keys.
const (
	AttrRelationship = "relationship"
	AttrWeight       = "weight"
)

// Node is one entity inside the derived graph.
type Node struct {
	Key    Key
	Record Record
}

// Attributes returns the node attribute bag: a copy of the record plus the
// entity kind under "type".
func (n Node) Attributes() map[string]any {
	attrs := map[string]any(n.Record.Clone())
	if attrs == nil {
		attrs = make(map[string]any)
	}
	attrs["type"] = n.Key.Kind.String()
	return attrs
}

// Edge is an undirected link. Its attributes form a single map: the reserved
// "relationship" and "weight" keys plus any extra attributes.
type Edge struct {
	attrs map[string]any
}

// Relationship returns the relationship kind, "" when unset.
func (e *Edge) Relationship() string {
	return getStringFromMap(e.attrs, AttrRelationship, "")
}

// Weight returns the weight, or def when unset or not numeric.
func (e *Edge) Weight(def float64) float64 {
	return getFloat64FromMap(e.attrs, AttrWeight, def)
}

// Has reports whether the attribute key is set.
func (e *Edge) Has(key string) bool {
	_, ok := e.attrs[key]
	return ok
}

// Attr returns one attribute.
func (e *Edge) Attr(key string) (any, bool) {
	v, ok := e.attrs[key]
	return v, ok
}

// Attributes returns a copy of every attribute.
func (e *Edge) Attributes() map[string]any {
	return edgeExtras(e.attrs)
}

type adjacency struct {
	order []int
	edges map[int]*Edge
}

// Graph is the derived, undirected, simple graph. Nodes live in an arena of
// slots indexed by Key; adjacency is kept per slot with neighbours in
// insertion order, so iteration is deterministic.
type Graph struct {
	nodes     []Node
	index     map[Key]int
	adj       []adjacency
	edgeCount int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{index: make(map[Key]int)}
}

// Clear drops every node and edge.
func (g *Graph) Clear() {
	g.nodes = nil
	g.adj = nil
	g.index = make(map[Key]int)
	g.edgeCount = 0
}

// AddNode inserts a node, or replaces the record of an existing one.
func (g *Graph) AddNode(key Key, rec Record) {
	if i, ok := g.index[key]; ok {
		g.nodes[i].Record = rec.Clone()
		return
	}
	g.index[key] = len(g.nodes)
	g.nodes = append(g.nodes, Node{Key: key, Record: rec.Clone()})
	g.adj = append(g.adj, adjacency{edges: make(map[int]*Edge)})
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		nodes:     make([]Node, len(g.nodes)),
		index:     make(map[Key]int, len(g.index)),
		adj:       make([]adjacency, len(g.adj)),
		edgeCount: g.edgeCount,
	}
	for i, n := range g.nodes {
		out.nodes[i] = Node{Key: n.Key, Record: n.Record.Clone()}
		out.index[n.Key] = i
		out.adj[i] = adjacency{
			order: append([]int(nil), g.adj[i].order...),
			edges: make(map[int]*Edge, len(g.adj[i].edges)),
		}
	}
	for i := range g.adj {
		for j, e := range g.adj[i].edges {
			if j < i {
				continue
			}
			c := &Edge{attrs: edgeExtras(e.attrs)}
			out.adj[i].edges[j] = c
			out.adj[j].edges[i] = c
		}
	}
	return out
}

// HasNode reports whether key is in the graph.
func (g *Graph) HasNode(key Key) bool {
	_, ok := g.index[key]
	return ok
}

// Node returns the node for key.
func (g *Graph) Node(key Key) (Node, bool) {
	i, ok := g.index[key]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Nodes returns every node in insertion order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return g.edgeCount }

// MergeEdge writes patch into the edge between a and b, creating the edge if
// needed. Existing keys not named in patch survive. Returns false when either
// endpoint is missing.
func (g *Graph) MergeEdge(a, b Key, patch map[string]any) bool {
	i, ok := g.index[a]
	if !ok {
		return false
	}
	j, ok := g.index[b]
	if !ok {
		return false
	}
	e, ok := g.adj[i].edges[j]
	if !ok {
		e = &Edge{attrs: make(map[string]any, len(patch))}
		g.link(i, j, e)
	}
	for k, v := range patch {
		e.attrs[k] = cloneValue(v)
	}
	return true
}

func (g *Graph) link(i, j int, e *Edge) {
	g.adj[i].edges[j] = e
	g.adj[i].order = append(g.adj[i].order, j)
	if i != j {
		g.adj[j].edges[i] = e
		g.adj[j].order = append(g.adj[j].order, i)
	}
	g.edgeCount++
}

// Edge returns the edge between a and b.
func (g *Graph) Edge(a, b Key) (*Edge, bool) {
	i, ok := g.index[a]
	if !ok {
		return nil, false
	}
	j, ok := g.index[b]
	if !ok {
		return nil, false
	}
	e, ok := g.adj[i].edges[j]
	return e, ok
}

// RemoveEdge deletes the edge between a and b. Returns false when absent.
func (g *Graph) RemoveEdge(a, b Key) bool {
	i, ok := g.index[a]
	if !ok {
		return false
	}
	j, ok := g.index[b]
	if !ok {
		return false
	}
	if _, ok := g.adj[i].edges[j]; !ok {
		return false
	}
	g.unlink(i, j)
	if i != j {
		g.unlink(j, i)
	}
	g.edgeCount--
	return true
}

func (g *Graph) unlink(i, j int) {
	delete(g.adj[i].edges, j)
	order := g.adj[i].order
	for n, s := range order {
		if s == j {
			g.adj[i].order = append(order[:n:n], order[n+1:]...)
			return
		}
	}
}

// Neighbors returns the keys adjacent to key, nil if key is absent.
func (g *Graph) Neighbors(key Key) []Key {
	i, ok := g.index[key]
	if !ok {
		return nil
	}
	out := make([]Key, 0, len(g.adj[i].order))
	for _, j := range g.adj[i].order {
		out = append(out, g.nodes[j].Key)
	}
	return out
}

// EachEdge calls fn once per undirected edge, ordered by the lower-slot
// endpoint and then by adjacency order.
func (g *Graph) EachEdge(fn func(a, b Key, e *Edge)) {
	for i := range g.nodes {
		for _, j := range g.adj[i].order {
			if j < i {
				continue
			}
			fn(g.nodes[i].Key, g.nodes[j].Key, g.adj[i].edges[j])
		}
	}
}

func (g *Graph) neighborSlots(i int) []int {
	return g.adj[i].order
}
