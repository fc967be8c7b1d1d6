// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/logsift/classify"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// maxParseAttempts bounds how often a malformed model response is regenerated.
const maxParseAttempts = 3

// ErrEmptyResponse is returned when the model produced no choices.
var ErrEmptyResponse = errors.New("classifier returned no choices")

// Classifier implements classify.Classifier using OpenAI-compatible chat APIs.
type Classifier struct {
	client  llms.Model
	maxTags int
	logger  *slog.Logger
}

// explanation is the JSON document the model is asked to produce.
type explanation struct {
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Severity  string   `json:"severity"`
	Component string   `json:"component"`
}

// NewClassifier creates a classifier using the provided configuration.
//
// Returns classify.Classifier to keep callers off the concrete type.
func NewClassifier(config *classify.Config) (classify.Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithModel(config.Model),
	)
	if err != nil {
		return nil, err
	}
	return newClassifier(client, config.MaxTags), nil
}

func newClassifier(client llms.Model, maxTags int) *Classifier {
	return &Classifier{
		client:  client,
		maxTags: maxTags,
		logger:  slog.Default().With("component", "openai-classifier"),
	}
}

// Classify asks the model to explain one unit of log text.
func (c *Classifier) Classify(ctx context.Context, text string) (*classify.Result, error) {
	cleaned := cleanLogText(text)

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt(c.maxTags))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(cleaned)},
		},
	}

	var parsed explanation
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			return nil, ErrEmptyResponse
		}

		responseText := stripCodeFence(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		c.logger.Error("failed to parse classifier response after retries", "err", lastErr)
		return nil, lastErr
	}

	result := &classify.Result{
		CleanedText: cleaned,
		Summary:     strings.TrimSpace(parsed.Summary),
		Tags:        normalizeTags(parsed.Tags, c.maxTags),
		Metadata:    map[string]string{},
	}
	if parsed.Severity != "" {
		result.Metadata["severity"] = strings.ToLower(parsed.Severity)
	}
	if parsed.Component != "" {
		result.Metadata["component"] = parsed.Component
	}
	return result, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// normalizeTags lowercases, snake-cases and de-duplicates tags, keeping at most max.
func normalizeTags(tags []string, max int) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		tag = strings.Join(strings.Fields(tag), "_")
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
		if len(out) == max {
			break
		}
	}
	return out
}
