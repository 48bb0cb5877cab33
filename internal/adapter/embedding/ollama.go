package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docindex/internal/domain"
	"docindex/internal/port"
)

var _ port.Embedder = (*OllamaEmbedder)(nil)

// OllamaEmbedder calls a local Ollama daemon. It speaks the /api/embeddings
// endpoint and falls back to /api/embed on servers that only expose the newer one.
type OllamaEmbedder struct {
	baseURL string
	model   string
	client  *http.Client
}

type ollamaPromptRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaInputRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

// ollamaResponse covers both endpoints: /api/embeddings answers with
// "embedding", /api/embed with "embeddings".
type ollamaResponse struct {
	Embedding  []float32   `json:"embedding"`
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func NewOllamaEmbedder(model, baseURL string, timeout time.Duration) *OllamaEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OllamaEmbedder{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	status, body, err := e.post(ctx, "/api/embeddings", ollamaPromptRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		status, body, err = e.post(ctx, "/api/embed", ollamaInputRequest{Model: e.model, Input: text})
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, &domain.EmbeddingBackendError{StatusCode: status, Message: preview(body)}
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.EmbeddingBackendError{
			Message: "failed to parse response: " + preview(body),
			Err:     err,
		}
	}
	if resp.Error != "" {
		return nil, &domain.EmbeddingBackendError{Message: resp.Error}
	}

	vector := resp.Embedding
	if len(vector) == 0 && len(resp.Embeddings) > 0 {
		vector = resp.Embeddings[0]
	}
	if len(vector) == 0 {
		return nil, &domain.EmbeddingBackendError{Message: "response contained no embedding"}
	}
	return vector, nil
}

func (e *OllamaEmbedder) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, nil, &domain.EmbeddingBackendError{Message: "request to " + path + " failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &domain.EmbeddingBackendError{StatusCode: resp.StatusCode, Message: "failed to read response", Err: err}
	}
	return resp.StatusCode, body, nil
}

func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
