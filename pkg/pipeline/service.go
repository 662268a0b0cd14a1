// Package pipeline orchestrates document processing: it owns the task
// lifecycle, drives the stage state machine over the queue, and exposes
// the operations the API layer serves.
package pipeline

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/entity"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/network"
	"github.com/casegraph/backend/pkg/store"
)

const (
	// DefaultMaxAttempts caps retries of a transient stage failure.
	DefaultMaxAttempts = 3

	defaultBackoffBase = 500 * time.Millisecond
	defaultBackoffMax  = 30 * time.Second
)

type Params struct {
	Store     store.Storage
	Queue     queue.Queue
	Engine    *network.Engine
	Resolver  *entity.Resolver
	Extractor TextExtractor
	NER       MentionExtractor
	Analyzer  Analyzer

	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

type Service struct {
	store     store.Storage
	queue     queue.Queue
	engine    *network.Engine
	resolver  *entity.Resolver
	extractor TextExtractor
	ner       MentionExtractor
	analyzer  Analyzer

	maxAttempts int
	backoffBase time.Duration
	backoffMax  time.Duration
}

func NewService(params Params) *Service {
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = DefaultMaxAttempts
	}
	if params.BackoffBase <= 0 {
		params.BackoffBase = defaultBackoffBase
	}
	if params.BackoffMax <= 0 {
		params.BackoffMax = defaultBackoffMax
	}
	return &Service{
		store:       params.Store,
		queue:       params.Queue,
		engine:      params.Engine,
		resolver:    params.Resolver,
		extractor:   params.Extractor,
		ner:         params.NER,
		analyzer:    params.Analyzer,
		maxAttempts: params.MaxAttempts,
		backoffBase: params.BackoffBase,
		backoffMax:  params.BackoffMax,
	}
}

// EnqueueDocument starts the pipeline for a document at its first
// incomplete stage.
func (s *Service) EnqueueDocument(ctx context.Context, owner common.Owner, documentID string) (common.Task, error) {
	doc, err := s.store.GetDocument(ctx, owner, documentID)
	if err != nil {
		return common.Task{}, err
	}
	if doc.Deleted {
		return common.Task{}, fmt.Errorf("document %s is deleted", documentID)
	}
	stage, err := s.firstIncompleteStage(ctx, doc)
	if err != nil {
		return common.Task{}, err
	}
	return s.enqueueTask(ctx, owner, stage, documentID, "")
}

// RequestAnalysis enqueues an analyze task for a document.
func (s *Service) RequestAnalysis(ctx context.Context, owner common.Owner, documentID string, kind common.AnalysisKind) (common.Task, error) {
	if _, err := s.store.GetDocument(ctx, owner, documentID); err != nil {
		return common.Task{}, err
	}
	return s.enqueueTask(ctx, owner, common.TaskAnalyze, documentID, kind)
}

// GetTaskStatus returns the task's current state. The task's last_error
// string is the only failure detail exposed.
func (s *Service) GetTaskStatus(ctx context.Context, owner common.Owner, taskID string) (common.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return common.Task{}, err
	}
	if task.Owner != owner {
		return common.Task{}, store.ErrNotFound
	}
	return task, nil
}

// RetryTask re-enqueues a failed task's document from its first
// incomplete stage. Stages that already succeeded are not rerun.
func (s *Service) RetryTask(ctx context.Context, owner common.Owner, taskID string) (common.Task, error) {
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return common.Task{}, err
	}
	if task.Owner != owner {
		return common.Task{}, store.ErrNotFound
	}
	if task.Status != common.TaskFailed {
		return common.Task{}, Permanent("task %s is %s, only failed tasks can be retried", taskID, task.Status)
	}

	doc, err := s.store.GetDocument(ctx, owner, task.DocumentID)
	if err != nil {
		return common.Task{}, err
	}
	if doc.Deleted {
		return common.Task{}, fmt.Errorf("document %s is deleted", doc.ID)
	}

	if task.Type == common.TaskAnalyze || task.Type == common.TaskMetrics {
		return s.enqueueTask(ctx, owner, task.Type, task.DocumentID, task.Kind)
	}

	stage, err := s.firstIncompleteStage(ctx, doc)
	if err != nil {
		return common.Task{}, err
	}
	if err := s.store.UpdateDocumentStatus(ctx, owner, doc.ID, stageStartStatus(stage)); err != nil {
		return common.Task{}, err
	}
	return s.enqueueTask(ctx, owner, stage, task.DocumentID, "")
}

// GetGraph returns the owner's graph projection.
func (s *Service) GetGraph(ctx context.Context, owner common.Owner, limit int) (network.Projection, error) {
	return s.engine.Project(ctx, owner, limit)
}

// GetMetrics returns the owner's current centrality snapshots.
func (s *Service) GetMetrics(ctx context.Context, owner common.Owner) ([]common.MetricsSnapshot, error) {
	return s.store.ListMetrics(ctx, owner)
}

// MergeEntities merges duplicates into the primary and recomputes
// metrics over the changed graph.
func (s *Service) MergeEntities(ctx context.Context, owner common.Owner, primaryID string, duplicateIDs []string) (common.CanonicalEntity, error) {
	merged, err := s.engine.MergePrimary(ctx, owner, primaryID, duplicateIDs)
	if err != nil {
		return common.CanonicalEntity{}, err
	}
	if _, err := s.enqueueTask(ctx, owner, common.TaskMetrics, "", ""); err != nil {
		logger.Error("Failed to enqueue metrics recompute after merge", "owner", owner, "err", err)
	}
	return merged, nil
}

// ListAnalyses returns the stored analyses for a document.
func (s *Service) ListAnalyses(ctx context.Context, owner common.Owner, documentID string) ([]common.AnalysisResult, error) {
	return s.store.ListAnalyses(ctx, owner, documentID)
}

// firstIncompleteStage inspects what the document already holds rather
// than trusting its status, so a retry never repeats a finished stage.
func (s *Service) firstIncompleteStage(ctx context.Context, doc common.Document) (common.TaskType, error) {
	if doc.RawText == "" {
		return common.TaskExtract, nil
	}
	entities, err := s.store.GetDocumentEntities(ctx, doc.Owner, doc.ID)
	if err != nil {
		return "", err
	}
	if len(entities) == 0 {
		return common.TaskResolve, nil
	}
	return common.TaskGraphUpdate, nil
}

func (s *Service) enqueueTask(ctx context.Context, owner common.Owner, taskType common.TaskType, documentID string, kind common.AnalysisKind) (common.Task, error) {
	id, err := gonanoid.New()
	if err != nil {
		return common.Task{}, err
	}
	task := common.Task{
		ID:         id,
		Owner:      owner,
		Type:       taskType,
		DocumentID: documentID,
		Kind:       kind,
		Status:     common.TaskPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		return common.Task{}, fmt.Errorf("failed to create task: %w", err)
	}
	env := queue.Envelope{
		TaskID:     task.ID,
		Owner:      owner,
		Type:       taskType,
		DocumentID: documentID,
	}
	if err := s.queue.Enqueue(ctx, env); err != nil {
		return common.Task{}, fmt.Errorf("failed to enqueue task: %w", err)
	}
	logger.Debug("Enqueued task", "task", task.ID, "type", taskType, "document", documentID)
	return task, nil
}

func stageStartStatus(stage common.TaskType) common.DocumentStatus {
	switch stage {
	case common.TaskExtract:
		return common.StatusUploaded
	case common.TaskResolve:
		return common.StatusExtracted
	case common.TaskGraphUpdate:
		return common.StatusResolving
	default:
		return common.StatusUploaded
	}
}
