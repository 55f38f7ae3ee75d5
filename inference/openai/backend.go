// Copyright 2026 Poiesic Systems
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
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/photoflow/inference"
)

// Backend implements inference.Backend using OpenAI-compatible chat
// APIs with vision input.
type Backend struct {
	client llms.Model
	logger *slog.Logger
}

// newBackend is an internal constructor that returns the concrete type.
func newBackend(config *inference.Config) (*Backend, error) {
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

	return &Backend{
		client: client,
		logger: slog.Default().With("component", "openai-backend"),
	}, nil
}

// NewBackend creates a vision inference backend using the provided
// configuration.
//
// Returns the inference.Backend interface to enforce abstraction.
func NewBackend(config *inference.Config) (inference.Backend, error) {
	return newBackend(config)
}

// analysisInstruction accompanies the image in the user turn; the
// schema-derived prompt travels as the system message.
const analysisInstruction = "Analyze this image in detail and return the metadata record as a single JSON object, exactly as instructed above."

// Complete sends the prompt and image to the model and returns the raw
// text of the first choice.
func (b *Backend) Complete(ctx context.Context, prompt string, image []byte, params inference.Params) (string, error) {
	if len(image) == 0 {
		return "", &inference.BackendError{Category: inference.CategoryMalformedRequest, Err: inference.ErrImageRequired}
	}

	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(image))

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(analysisInstruction),
				llms.ImageURLWithDetailPart(dataURL, params.ImageDetail),
			},
		},
	}

	response, err := b.client.GenerateContent(ctx, content,
		llms.WithModel(params.Model),
		llms.WithTemperature(params.Temperature),
		llms.WithMaxTokens(params.MaxTokens),
	)
	if err != nil {
		categorized := categorize(err)
		b.logger.Debug("completion failed",
			"category", categorized.Category,
			"err", err)
		return "", categorized
	}

	if len(response.Choices) < 1 {
		return "", &inference.BackendError{Category: inference.CategoryTransport, Err: inference.ErrEmptyResponse}
	}

	return response.Choices[0].Content, nil
}
