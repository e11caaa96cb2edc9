package claude

import (
	"context"
	"fmt"
	"io"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/wardrobe/internal/domain"
	"github.com/vbonduro/wardrobe/internal/review"
)

// maxTokens comfortably covers the single verdict line the prompt asks for.
const maxTokens = 256

type Reviewer struct {
	client *anthropic.Client
	model  string
}

// NewReviewer builds a reviewer backed by the Anthropic Messages API.
// Options are passed through to the client, e.g. anthropic.WithBaseURL in tests.
func NewReviewer(apiKey, model string, opts ...anthropic.ClientOption) *Reviewer {
	return &Reviewer{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func buildMessages(imageData []byte, mimeType string, slot domain.Slot) []anthropic.Message {
	return []anthropic.Message{{
		Role: anthropic.RoleUser,
		Content: []anthropic.MessageContent{
			anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
				anthropic.MessagesContentSourceTypeBase64,
				normaliseMIME(mimeType),
				imageData,
			)),
			anthropic.NewTextMessageContent(review.PromptFor(slot)),
		},
	}}
}

func (r *Reviewer) Review(ctx context.Context, rd io.Reader, mimeType string, slot domain.Slot) (*review.Verdict, error) {
	imageData, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	resp, err := r.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(r.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(imageData, mimeType, slot),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call claude: %w", err)
	}

	var responseText string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			responseText = c.GetText()
			break
		}
	}

	v := review.ParseVerdict(responseText)
	return &v, nil
}

// normaliseMIME maps upload MIME types to the values the Anthropic API
// accepts (jpeg, png, gif, webp). TGA artwork has no API equivalent; callers
// convert it before review or fall back to manual approval.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/jpeg", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/png"
	}
}
