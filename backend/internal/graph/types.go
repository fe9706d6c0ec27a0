package graph

// ============================================================================
// Query Result Types
// ============================================================================

// EntityRef is an entity as returned by queries.
type EntityRef struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"type"`
	Record Record `json:"data"`
}

// RelatedEntity is a neighbour of the queried entity plus the linking edge.
type RelatedEntity struct {
	EntityRef
	Relationship     string         `json:"relationship"`
	RelationshipData map[string]any `json:"relationship_data"`
}

// PathStep is one hop of a path. NextRelationship holds the attributes of the
// edge to the following step and is nil on the last step.
type PathStep struct {
	EntityRef
	NextRelationship map[string]any `json:"next_relationship,omitempty"`
}

// CentralNode is one entry of the centrality ranking.
type CentralNode struct {
	ID         string  `json:"id"`
	Kind       Kind    `json:"type"`
	Centrality float64 `json:"centrality"`
}

// Statistics summarises the derived graph. The per-kind counts come from the
// entity store and include records the builder skipped.
type Statistics struct {
	TotalNodes       int            `json:"total_nodes"`
	TotalEdges       int            `json:"total_edges"`
	NodeTypes        map[string]int `json:"node_types"`
	EdgeTypes        map[string]int `json:"edge_types"`
	MostCentralNodes []CentralNode  `json:"most_central_nodes"`
	NotesCount       int            `json:"notes_count"`
	TasksCount       int            `json:"tasks_count"`
	ContactsCount    int            `json:"contacts_count"`
	DocumentsCount   int            `json:"documents_count"`
}

func refFor(n Node) EntityRef {
	return EntityRef{ID: n.Key.ID, Kind: n.Key.Kind, Record: n.Record.Clone()}
}
