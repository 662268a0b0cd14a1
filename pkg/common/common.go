package common

import (
	"strings"
	"time"
)

// Owner is the tenant boundary. Every entity, graph, task, and metric
// belongs to exactly one owner; cross-owner references are never valid.
// Owner is always passed explicitly, never carried in ambient state.
type Owner string

// EntityType is the closed taxonomy of extracted entities. Anything the
// extractor emits outside this set maps to EntityTypeUnknown.
type EntityType string

const (
	EntityTypePerson   EntityType = "PERSON"
	EntityTypeOrg      EntityType = "ORG"
	EntityTypeCourt    EntityType = "COURT"
	EntityTypeDate     EntityType = "DATE"
	EntityTypeLocation EntityType = "LOCATION"
	EntityTypeUnknown  EntityType = "UNKNOWN"
)

// ParseEntityType maps a raw type string onto the closed taxonomy,
// falling back to EntityTypeUnknown.
func ParseEntityType(raw string) EntityType {
	switch EntityType(strings.ToUpper(strings.TrimSpace(raw))) {
	case EntityTypePerson:
		return EntityTypePerson
	case EntityTypeOrg:
		return EntityTypeOrg
	case EntityTypeCourt:
		return EntityTypeCourt
	case EntityTypeDate:
		return EntityTypeDate
	case EntityTypeLocation:
		return EntityTypeLocation
	default:
		return EntityTypeUnknown
	}
}

// DocumentStatus is the document lifecycle. A document moves strictly
// forward through the pipeline stages; StatusFailed is reachable from any
// non-terminal state.
type DocumentStatus string

const (
	StatusUploaded      DocumentStatus = "uploaded"
	StatusExtracting    DocumentStatus = "extracting"
	StatusExtracted     DocumentStatus = "extracted"
	StatusResolving     DocumentStatus = "resolving"
	StatusGraphUpdating DocumentStatus = "graph_updating"
	StatusComplete      DocumentStatus = "complete"
	StatusFailed        DocumentStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s DocumentStatus) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// Document is one uploaded source file. RawText stays empty until text
// extraction completes. Deleted is a soft-delete flag maintained outside
// the core; the pipeline checks it between stages and aborts quietly.
type Document struct {
	ID        string         `json:"id"`
	Owner     Owner          `json:"owner"`
	Filename  string         `json:"filename"`
	FilePath  string         `json:"file_path"`
	RawText   string         `json:"raw_text,omitempty"`
	Status    DocumentStatus `json:"status"`
	Deleted   bool           `json:"deleted"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RawMention is a single entity occurrence emitted by the extractor for
// one document. Mentions are ephemeral: consumed by resolution and then
// discarded.
type RawMention struct {
	Text     string     `json:"text"`
	Type     EntityType `json:"type"`
	Position int        `json:"position"`
}

// CanonicalEntity is the owner-scoped deduplicated representation of a
// real-world actor. CanonicalName keeps the original display casing;
// NormalizedName is the comparison form produced by entity.Normalize.
type CanonicalEntity struct {
	ID             string     `json:"id"`
	Owner          Owner      `json:"owner"`
	CanonicalName  string     `json:"canonical_name"`
	NormalizedName string     `json:"normalized_name"`
	Type           EntityType `json:"type"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Alias records that an observed surface form resolved to a canonical
// entity. Append-only; one alias text maps to at most one canonical
// entity per owner.
type Alias struct {
	Owner             Owner     `json:"owner"`
	CanonicalEntityID string    `json:"canonical_entity_id"`
	AliasText         string    `json:"alias_text"`
	SimilarityScore   float64   `json:"similarity_score"`
	MergedAt          time.Time `json:"merged_at"`
}

// GraphNode is one entity inside an owner's co-occurrence graph.
// DocumentCount accumulates the number of documents the entity appeared
// in and drives node sizing in the projection.
type GraphNode struct {
	EntityID      string     `json:"entity_id"`
	Owner         Owner      `json:"owner"`
	Label         string     `json:"label"`
	Type          EntityType `json:"type"`
	DocumentCount int        `json:"document_count"`
}

// GraphEdge is an undirected co-occurrence edge keyed by the unordered
// pair of entity ids. Weight counts the documents in which both
// endpoints appear and only grows as documents are ingested.
type GraphEdge struct {
	Owner  Owner  `json:"owner"`
	A      string `json:"a"`
	B      string `json:"b"`
	Weight int    `json:"weight"`
}

// EdgeKey returns the canonical unordered key for an entity pair.
func EdgeKey(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// MetricType identifies a centrality metric.
type MetricType string

const (
	MetricDegree      MetricType = "degree"
	MetricBetweenness MetricType = "betweenness"
)

// MetricsSnapshot is one computed centrality value. Recomputation
// overwrites the snapshot for (owner, entity, metric); it never appends.
type MetricsSnapshot struct {
	Owner        Owner      `json:"owner"`
	EntityID     string     `json:"entity_id"`
	Metric       MetricType `json:"metric_type"`
	Value        float64    `json:"value"`
	CalculatedAt time.Time  `json:"calculated_at"`
}

// TaskType identifies a pipeline stage.
type TaskType string

const (
	TaskExtract     TaskType = "extract"
	TaskResolve     TaskType = "resolve"
	TaskGraphUpdate TaskType = "graph_update"
	TaskMetrics     TaskType = "metrics"
	TaskAnalyze     TaskType = "analyze"
)

// TaskStatus is the task lifecycle.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is one unit of pipeline work. Status transitions are driven only
// by the orchestrator, and a task is held by at most one worker at a
// time.
type Task struct {
	ID           string       `json:"id"`
	Owner        Owner        `json:"owner"`
	Type         TaskType     `json:"type"`
	DocumentID   string       `json:"document_id,omitempty"`
	Kind         AnalysisKind `json:"kind,omitempty"`
	Status       TaskStatus   `json:"status"`
	AttemptCount int          `json:"attempt_count"`
	LastError    string       `json:"last_error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	CompletedAt  time.Time    `json:"completed_at,omitzero"`
}

// AnalysisKind selects the free-text analysis produced for a document.
type AnalysisKind string

const (
	AnalysisSummary   AnalysisKind = "summary"
	AnalysisSentiment AnalysisKind = "sentiment"
	AnalysisArguments AnalysisKind = "arguments"
)

// AnalysisResult is the stored output of one analysis run.
type AnalysisResult struct {
	Owner      Owner        `json:"owner"`
	DocumentID string       `json:"document_id"`
	Kind       AnalysisKind `json:"kind"`
	Content    string       `json:"content"`
	CreatedAt  time.Time    `json:"created_at"`
}
