package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/casegraph/backend/internal/queue"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

// ProcessDelivery runs one queued task to completion or failure. Called
// by workers; must tolerate redelivery of an already-completed task.
func (s *Service) ProcessDelivery(ctx context.Context, d queue.Delivery) error {
	env := d.Envelope

	task, err := s.store.GetTask(ctx, env.TaskID)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", env.TaskID, err)
	}
	if task.Status == common.TaskCompleted || task.Status == common.TaskFailed {
		logger.Debug("Dropping redelivery of settled task", "task", task.ID, "status", task.Status)
		return nil
	}

	task.Status = common.TaskInProgress
	if err := s.store.UpdateTask(ctx, task); err != nil {
		return fmt.Errorf("failed to mark task in progress: %w", err)
	}

	runErr := s.runStageWithRetries(ctx, &task, env)
	if runErr == nil {
		task.Status = common.TaskCompleted
		task.CompletedAt = time.Now().UTC()
		task.LastError = ""
		return s.store.UpdateTask(ctx, task)
	}

	task.Status = common.TaskFailed
	task.LastError = runErr.Error()
	task.CompletedAt = time.Now().UTC()
	if err := s.store.UpdateTask(ctx, task); err != nil {
		logger.Error("Failed to record task failure", "task", task.ID, "err", err)
	}
	s.failDocument(ctx, task, runErr)
	logger.Error("Task failed",
		"task", task.ID,
		"type", task.Type,
		"attempts", task.AttemptCount,
		"err", runErr,
	)
	return nil
}

// runStageWithRetries executes the stage, retrying transient failures
// with exponential backoff up to the attempt cap. Permanent failures
// stop immediately.
func (s *Service) runStageWithRetries(ctx context.Context, task *common.Task, env queue.Envelope) error {
	// A redelivery can arrive with the attempt budget already spent: the
	// previous worker crashed after persisting the final attempt but
	// before settling the task. Without a completed run that is a
	// failure, never a fall-through success.
	if task.AttemptCount >= s.maxAttempts {
		return fmt.Errorf("attempt cap reached (%d/%d) with no completed run", task.AttemptCount, s.maxAttempts)
	}

	var lastErr error
	for task.AttemptCount < s.maxAttempts {
		task.AttemptCount++
		if err := s.store.UpdateTask(ctx, *task); err != nil {
			return err
		}

		lastErr = s.runStage(ctx, *task, env)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return lastErr
		}

		if task.AttemptCount < s.maxAttempts {
			delay := util.Backoff(task.AttemptCount, s.backoffBase, s.backoffMax)
			logger.Warn("Transient stage failure, backing off",
				"task", task.ID,
				"attempt", task.AttemptCount,
				"delay", delay,
				"err", lastErr,
			)
			if err := util.SleepWithContext(ctx, delay); err != nil {
				return err
			}
		}
	}
	return lastErr
}

func (s *Service) runStage(ctx context.Context, task common.Task, env queue.Envelope) error {
	// The envelope only routes; it must agree with the task row it
	// points at.
	if env.Owner != task.Owner {
		return ErrOwnershipMismatch
	}

	// Metrics recomputation is owner-wide and carries no document.
	if task.Type == common.TaskMetrics {
		return s.stageMetrics(ctx, task.Owner)
	}

	doc, err := s.store.GetDocument(ctx, task.Owner, task.DocumentID)
	if err != nil {
		return Permanent("document %s not found for owner: %w", task.DocumentID, err)
	}
	if doc.Deleted {
		logger.Info("Document deleted, skipping stage", "document", doc.ID, "stage", task.Type)
		return nil
	}

	switch task.Type {
	case common.TaskExtract:
		return s.stageExtract(ctx, doc)
	case common.TaskResolve:
		return s.stageResolve(ctx, doc)
	case common.TaskGraphUpdate:
		return s.stageGraphUpdate(ctx, doc)
	case common.TaskAnalyze:
		return s.stageAnalyze(ctx, doc, task.Kind)
	default:
		return Permanent("unknown task type %q", task.Type)
	}
}

func (s *Service) stageExtract(ctx context.Context, doc common.Document) error {
	if err := s.store.UpdateDocumentStatus(ctx, doc.Owner, doc.ID, common.StatusExtracting); err != nil {
		return err
	}

	text, err := s.extractor.ExtractText(ctx, doc)
	if err != nil {
		return fmt.Errorf("text extraction: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Permanent("document %s produced no text", doc.ID)
	}

	if err := s.store.SetDocumentText(ctx, doc.Owner, doc.ID, text); err != nil {
		return err
	}
	if err := s.store.UpdateDocumentStatus(ctx, doc.Owner, doc.ID, common.StatusExtracted); err != nil {
		return err
	}

	_, err = s.enqueueTask(ctx, doc.Owner, common.TaskResolve, doc.ID, "")
	return err
}

func (s *Service) stageResolve(ctx context.Context, doc common.Document) error {
	if err := s.store.UpdateDocumentStatus(ctx, doc.Owner, doc.ID, common.StatusResolving); err != nil {
		return err
	}

	// The stored text is authoritative; the envelope might predate a
	// reprocess.
	current, err := s.store.GetDocument(ctx, doc.Owner, doc.ID)
	if err != nil {
		return err
	}
	if current.RawText == "" {
		return Permanent("document %s has no extracted text to resolve", doc.ID)
	}

	mentions, err := s.ner.ExtractMentions(ctx, current.RawText)
	if err != nil {
		return fmt.Errorf("entity extraction: %w", err)
	}

	resolved, err := s.resolver.ResolveMentions(ctx, doc.Owner, mentions)
	if err != nil {
		return fmt.Errorf("entity resolution: %w", err)
	}

	ids := make([]string, len(resolved))
	for i, e := range resolved {
		ids[i] = e.ID
	}
	if err := s.store.SetDocumentEntities(ctx, doc.Owner, doc.ID, ids); err != nil {
		return err
	}

	_, err = s.enqueueTask(ctx, doc.Owner, common.TaskGraphUpdate, doc.ID, "")
	return err
}

func (s *Service) stageGraphUpdate(ctx context.Context, doc common.Document) error {
	if err := s.store.UpdateDocumentStatus(ctx, doc.Owner, doc.ID, common.StatusGraphUpdating); err != nil {
		return err
	}

	entities, err := s.store.GetDocumentEntities(ctx, doc.Owner, doc.ID)
	if err != nil {
		return err
	}

	if err := s.engine.ApplyDocument(ctx, doc.Owner, doc.ID, entities); err != nil {
		return fmt.Errorf("graph update: %w", err)
	}

	if err := s.store.UpdateDocumentStatus(ctx, doc.Owner, doc.ID, common.StatusComplete); err != nil {
		return err
	}
	logger.Info("Document pipeline complete", "document", doc.ID, "entities", len(entities))

	_, err = s.enqueueTask(ctx, doc.Owner, common.TaskMetrics, "", "")
	return err
}

// stageMetrics recomputes centrality. A failure here keeps the previous
// snapshots; nothing already persisted is rolled back.
func (s *Service) stageMetrics(ctx context.Context, owner common.Owner) error {
	if _, err := s.engine.Recompute(ctx, owner); err != nil {
		return fmt.Errorf("metrics recompute: %w", err)
	}
	return nil
}

func (s *Service) stageAnalyze(ctx context.Context, doc common.Document, kind common.AnalysisKind) error {
	if kind == "" {
		kind = common.AnalysisSummary
	}
	if doc.RawText == "" {
		current, err := s.store.GetDocument(ctx, doc.Owner, doc.ID)
		if err != nil {
			return err
		}
		doc = current
	}
	if doc.RawText == "" {
		return Permanent("document %s has no text to analyze", doc.ID)
	}

	content, err := s.analyzer.GenerateAnalysis(ctx, doc.RawText, kind)
	if err != nil {
		return fmt.Errorf("analysis generation: %w", err)
	}

	return s.store.SaveAnalysis(ctx, common.AnalysisResult{
		Owner:      doc.Owner,
		DocumentID: doc.ID,
		Kind:       kind,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	})
}

// failDocument marks the document failed unless it already reached a
// terminal state. Metrics and analyze failures never fail the document.
func (s *Service) failDocument(ctx context.Context, task common.Task, cause error) {
	if task.Type == common.TaskMetrics || task.Type == common.TaskAnalyze {
		return
	}
	doc, err := s.store.GetDocument(ctx, task.Owner, task.DocumentID)
	if err != nil {
		logger.Error("Failed to load document for failure marking", "document", task.DocumentID, "err", err)
		return
	}
	if doc.Status.Terminal() {
		return
	}
	if err := s.store.UpdateDocumentStatus(ctx, task.Owner, task.DocumentID, common.StatusFailed); err != nil {
		logger.Error("Failed to mark document failed", "document", task.DocumentID, "err", err)
	}
}
