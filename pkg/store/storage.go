package store

import (
	"context"
	"errors"

	"github.com/casegraph/backend/pkg/common"
)

// ErrNotFound is returned when a requested row does not exist for the
// given owner.
var ErrNotFound = errors.New("not found")

// Storage is the persistence interface for the pipeline core. Every
// owner-scoped method takes the owner explicitly; implementations key
// all data by owner so tenants stay isolated.
//
// Two implementations exist: memory (tests, development) and pgx
// (PostgreSQL).
type Storage interface {
	// Documents. Documents are created on upload and only mutated by the
	// pipeline; the core never deletes them.
	GetDocument(ctx context.Context, owner common.Owner, id string) (common.Document, error)
	ListDocuments(ctx context.Context, owner common.Owner) ([]common.Document, error)
	SaveDocument(ctx context.Context, doc common.Document) error
	UpdateDocumentStatus(ctx context.Context, owner common.Owner, id string, status common.DocumentStatus) error
	SetDocumentText(ctx context.Context, owner common.Owner, id string, text string) error

	// SetDocumentEntities records the resolved entity set of a document,
	// replacing any prior set. GetDocumentEntities returns those entities.
	SetDocumentEntities(ctx context.Context, owner common.Owner, documentID string, entityIDs []string) error
	GetDocumentEntities(ctx context.Context, owner common.Owner, documentID string) ([]common.CanonicalEntity, error)

	// Entities and aliases. SaveAlias is a no-op when the alias text is
	// already mapped for the owner: an alias never points at two
	// canonical entities.
	ListEntities(ctx context.Context, owner common.Owner) ([]common.CanonicalEntity, error)
	GetEntity(ctx context.Context, owner common.Owner, id string) (common.CanonicalEntity, error)
	SaveEntity(ctx context.Context, e common.CanonicalEntity) error
	FindAlias(ctx context.Context, owner common.Owner, aliasText string) (common.Alias, bool, error)
	SaveAlias(ctx context.Context, a common.Alias) error
	ListAliases(ctx context.Context, owner common.Owner) ([]common.Alias, error)

	// Graph. Node and edge contributions are tracked per document id so
	// re-applying a document never double-counts. AddNodeDocument and
	// AddEdgeDocument report whether the document was newly counted.
	ListNodes(ctx context.Context, owner common.Owner) ([]common.GraphNode, error)
	ListEdges(ctx context.Context, owner common.Owner) ([]common.GraphEdge, error)
	ListEdgeDocuments(ctx context.Context, owner common.Owner) ([]common.EdgeDocuments, error)
	ListNodeDocuments(ctx context.Context, owner common.Owner) (map[string][]string, error)
	AddNodeDocument(ctx context.Context, node common.GraphNode, documentID string) (bool, error)
	AddEdgeDocument(ctx context.Context, owner common.Owner, a, b, documentID string) (bool, error)

	// ApplyMerge applies a merge plan atomically: all removals, alias
	// reassignments, and edge upserts land together or not at all.
	ApplyMerge(ctx context.Context, plan common.MergePlan) error

	// Metrics. ReplaceMetrics swaps the owner's full snapshot set.
	ReplaceMetrics(ctx context.Context, owner common.Owner, snapshots []common.MetricsSnapshot) error
	ListMetrics(ctx context.Context, owner common.Owner) ([]common.MetricsSnapshot, error)

	// Tasks.
	CreateTask(ctx context.Context, t common.Task) error
	GetTask(ctx context.Context, id string) (common.Task, error)
	UpdateTask(ctx context.Context, t common.Task) error
	ListDocumentTasks(ctx context.Context, owner common.Owner, documentID string) ([]common.Task, error)

	// Analyses.
	SaveAnalysis(ctx context.Context, res common.AnalysisResult) error
	ListAnalyses(ctx context.Context, owner common.Owner, documentID string) ([]common.AnalysisResult, error)
}
