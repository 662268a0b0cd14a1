package ner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/casegraph/backend/pkg/common"
	"github.com/casegraph/backend/pkg/logger"
)

const extractionSystemPrompt = `You are a named-entity recognition system for legal documents.
Extract every named entity from the text. Classify each as one of:
PERSON (judges, advocates, parties), ORG (companies, agencies, institutions),
COURT (courts and tribunals), DATE (calendar dates), LOCATION (places and jurisdictions).
Return only entities actually present in the text. Keep the surface form exactly as written.`

type extractedEntity struct {
	Text string `json:"text" jsonschema_description:"Entity text exactly as it appears"`
	Type string `json:"type" jsonschema:"enum=PERSON,enum=ORG,enum=COURT,enum=DATE,enum=LOCATION"`
}

type extractionResult struct {
	Entities []extractedEntity `json:"entities"`
}

const (
	minMentionLen = 2
	maxMentionLen = 100
)

// ExtractMentions runs NER over the text, chunking it to fit the model
// context. Mentions are validated and deduplicated; malformed model
// output for a single chunk fails the whole call so the stage can retry.
func (c *Client) ExtractMentions(ctx context.Context, text string) ([]common.RawMention, error) {
	if c.chat == nil {
		return nil, fmt.Errorf("ner client not configured")
	}

	chunks, err := chunkText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk text: %w", err)
	}

	mentions := make([]common.RawMention, 0)
	seen := make(map[string]bool)
	position := 0

	for i, chunk := range chunks {
		var result extractionResult
		if err := c.completeWithFormat(ctx, "entity_extraction",
			"Named entities found in the document text.",
			extractionSystemPrompt, chunk, &result); err != nil {
			return nil, fmt.Errorf("extraction chunk %d/%d: %w", i+1, len(chunks), err)
		}

		for _, ent := range result.Entities {
			mention, ok := validateMention(ent)
			if !ok {
				logger.Debug("Dropping invalid mention", "text", ent.Text, "type", ent.Type)
				continue
			}
			key := strings.ToLower(mention.Text) + "/" + string(mention.Type)
			if seen[key] {
				continue
			}
			seen[key] = true
			mention.Position = position
			position++
			mentions = append(mentions, mention)
		}
	}

	logger.Debug("Extracted mentions", "chunks", len(chunks), "mentions", len(mentions))
	return mentions, nil
}

func validateMention(ent extractedEntity) (common.RawMention, bool) {
	text := strings.Join(strings.Fields(ent.Text), " ")
	if len(text) < minMentionLen || len(text) > maxMentionLen {
		return common.RawMention{}, false
	}
	typ := common.ParseEntityType(ent.Type)
	if typ == common.EntityTypeUnknown {
		return common.RawMention{}, false
	}
	return common.RawMention{Text: text, Type: typ}, true
}

func (c *Client) completeWithFormat(ctx context.Context, name, description, system, prompt string, out any) error {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String(description),
		Schema:      generateSchema(out),
		Strict:      openai.Bool(true),
	}

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.extractionModel),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.1),
	}

	start := time.Now()
	response, err := c.chat.Chat.Completions.New(ctx, body)
	if err != nil {
		return err
	}
	c.addMetrics(ModelMetrics{
		InputTokens:  int(response.Usage.PromptTokens),
		OutputTokens: int(response.Usage.CompletionTokens),
		TotalTokens:  int(response.Usage.TotalTokens),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	if len(response.Choices) == 0 {
		return fmt.Errorf("no choices in response from model")
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason)
	}
	return unmarshalFlexible(message, out)
}
