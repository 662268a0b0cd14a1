// Package ner calls an OpenAI-compatible chat model to extract entity
// mentions from document text and to generate per-document analyses.
package ner

import (
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

type NewClientParams struct {
	ExtractionModel string
	AnalysisModel   string

	BaseURL string
	APIKey  string
}

type Client struct {
	chat *openai.Client

	extractionModel string
	analysisModel   string

	metricsLock sync.Mutex
	metrics     ModelMetrics
}

// ModelMetrics accumulates token usage across calls.
type ModelMetrics struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	DurationMs   int64
}

func NewClient(params NewClientParams) *Client {
	return &Client{
		chat:            newOpenaiClient(params.BaseURL, params.APIKey),
		extractionModel: params.ExtractionModel,
		analysisModel:   params.AnalysisModel,
	}
}

func newOpenaiClient(baseURL, apiKey string) *openai.Client {
	if apiKey == "" {
		return nil
	}
	options := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		options = append(options, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(options...)
	return &client
}

func (c *Client) addMetrics(m ModelMetrics) {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics.InputTokens += m.InputTokens
	c.metrics.OutputTokens += m.OutputTokens
	c.metrics.TotalTokens += m.TotalTokens
	c.metrics.DurationMs += m.DurationMs
}

func (c *Client) GetMetrics() ModelMetrics {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	return c.metrics
}

func (c *Client) ResetMetrics() {
	c.metricsLock.Lock()
	defer c.metricsLock.Unlock()
	c.metrics = ModelMetrics{}
}
