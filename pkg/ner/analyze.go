package ner

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/casegraph/backend/pkg/common"
)

var analysisPrompts = map[common.AnalysisKind]string{
	common.AnalysisSummary: `You are a legal analyst. Summarize the following document in a few
concise paragraphs: the parties involved, the matter at issue, and the outcome if stated.`,
	common.AnalysisSentiment: `You are a legal analyst. Assess the overall tone and disposition of
the following document: favorable, unfavorable, or neutral toward the primary party, with a short
justification grounded in the text.`,
	common.AnalysisArguments: `You are a legal analyst. List the principal arguments advanced in the
following document, grouped by the party making them, each in one or two sentences.`,
}

// GenerateAnalysis produces a free-text analysis of the document text.
func (c *Client) GenerateAnalysis(ctx context.Context, text string, kind common.AnalysisKind) (string, error) {
	if c.chat == nil {
		return "", fmt.Errorf("ner client not configured")
	}
	system, ok := analysisPrompts[kind]
	if !ok {
		return "", fmt.Errorf("unknown analysis kind %q", kind)
	}

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.analysisModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(text),
		},
		Temperature: openai.Float(0.3),
	}

	start := time.Now()
	response, err := c.chat.Chat.Completions.New(ctx, body)
	if err != nil {
		return "", err
	}
	c.addMetrics(ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response from model")
	}
	return response.Choices[0].Message.Content, nil
}
