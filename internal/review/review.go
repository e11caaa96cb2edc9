// Package review decides whether merchant-uploaded artwork may be shown on
// an avatar.
package review

import (
	"context"
	"fmt"
	"io"

	"github.com/vbonduro/wardrobe/internal/domain"
)

const promptTemplate = `You moderate clothing and accessory artwork that businesses upload for
their mascot avatar. The merchant submitted this image as a %s item, so it
must show a single %s on a transparent or plain background. Reject it if it
shows a different kind of item, or contains nudity, hate symbols, violence or
third-party logos.
Respond with exactly one line, format: APPROVED | reason
or: REJECTED | reason`

// PromptFor is the prompt shared by all review adapters for artwork
// submitted in slot.
func PromptFor(slot domain.Slot) string {
	return fmt.Sprintf(promptTemplate, slot, describeSlot(slot))
}

func describeSlot(slot domain.Slot) string {
	switch slot {
	case domain.SlotBase:
		return "base body"
	case domain.SlotHat:
		return "hat or other headwear"
	case domain.SlotShirt:
		return "shirt or other top"
	case domain.SlotBottom:
		return "pair of trousers, shorts or a skirt"
	}
	return "wearable item"
}

type Reviewer interface {
	Review(ctx context.Context, r io.Reader, mimeType string, slot domain.Slot) (*Verdict, error)
}

type Verdict struct {
	Approved    bool
	Reason      string
	RawResponse string
}
