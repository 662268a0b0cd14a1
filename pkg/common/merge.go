package common

// EdgeDocuments is a graph edge together with the set of document ids
// that contributed to its weight. The document set is what makes edge
// increments idempotent across pipeline redeliveries.
type EdgeDocuments struct {
	Owner     Owner    `json:"owner"`
	A         string   `json:"a"`
	B         string   `json:"b"`
	Documents []string `json:"documents"`
}

// MergePlan is the precomputed outcome of merging duplicate entities
// into a primary. Plans are built without touching storage and applied
// atomically: either the whole plan lands or none of it does.
type MergePlan struct {
	Owner           Owner           `json:"owner"`
	PrimaryID       string          `json:"primary_id"`
	RemoveEntityIDs []string        `json:"remove_entity_ids"`
	Aliases         []Alias         `json:"aliases"`
	RemoveEdges     [][2]string     `json:"remove_edges"`
	UpsertEdges     []EdgeDocuments `json:"upsert_edges"`
	PrimaryNode     *GraphNode      `json:"primary_node,omitempty"`
	PrimaryNodeDocs []string        `json:"primary_node_docs,omitempty"`
	RemoveNodeIDs   []string        `json:"remove_node_ids"`
}
