package pipeline

import (
	"context"

	"github.com/casegraph/backend/pkg/common"
)

// TextExtractor turns a stored document file into plain text.
type TextExtractor interface {
	ExtractText(ctx context.Context, doc common.Document) (string, error)
}

// MentionExtractor runs named-entity recognition over extracted text.
type MentionExtractor interface {
	ExtractMentions(ctx context.Context, text string) ([]common.RawMention, error)
}

// Analyzer produces a free-text analysis of a document.
type Analyzer interface {
	GenerateAnalysis(ctx context.Context, text string, kind common.AnalysisKind) (string, error)
}
