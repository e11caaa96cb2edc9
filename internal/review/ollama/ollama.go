package ollama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/review"
)

type Reviewer struct {
	host   string
	model  string
	client *http.Client
}

func NewReviewer(host, model string) *Reviewer {
	return &Reviewer{
		host:   host,
		model:  model,
		client: &http.Client{},
	}
}

func (r *Reviewer) Review(ctx context.Context, rd io.Reader, mimeType string, slot domain.Slot) (*review.Verdict, error) {
	imageData, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	payload, err := json.Marshal(map[string]any{
		"model":  r.model,
		"prompt": review.PromptFor(slot),
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"stream": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	v := review.ParseVerdict(respBody.Response)
	return &v, nil
}
