// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pdiddy/assessment-engine/internal/container"
)

const imageMarkitdown = "markitdown:latest"

// MarkitdownSlideParser extracts slide text by piping the deck through the
// markitdown container image. It depends on a container.Runtime (docker or
// podman) injected at construction time.
type MarkitdownSlideParser struct {
	runtime container.Runtime
}

// NewMarkitdownSlideParser verifies that the markitdown image exists locally
// before returning.
func NewMarkitdownSlideParser(ctx context.Context, rt container.Runtime) (*MarkitdownSlideParser, error) {
	if err := rt.ImageExists(ctx, imageMarkitdown); err != nil {
		return nil, fmt.Errorf("markitdown image not available in %s: %w", rt.Name(), err)
	}
	return &MarkitdownSlideParser{runtime: rt}, nil
}

// Convert streams the deck on stdin and returns markitdown's output. Stdin
// carries no filename, so the extension hint is passed explicitly.
func (m *MarkitdownSlideParser) Convert(ctx context.Context, data []byte) (string, error) {
	var out bytes.Buffer
	if err := m.runtime.Run(ctx, imageMarkitdown, []string{"-x", "pptx"}, bytes.NewReader(data), &out); err != nil {
		return "", fmt.Errorf("%w: markitdown: %v", ErrExtractionFailure, err)
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("%w: markitdown produced empty output", ErrExtractionFailure)
	}
	return out.String(), nil
}
