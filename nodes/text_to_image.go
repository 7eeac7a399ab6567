package nodes

import (
	"strings"

	"github.com/BaSui01/fluxnodes/labs"
	"github.com/BaSui01/fluxnodes/types"
)

// TextToImageModels lists the generation endpoints this node can target.
var TextToImageModels = []string{
	"flux-kontext-pro",
	"flux-kontext-max",
	"flux-pro-1.1-ultra",
	"flux-pro-1.1",
	"flux-pro",
	"flux-dev",
}

// TextToImage generates an image from a text prompt. The payload shape
// depends on the model family: Kontext endpoints take an aspect_ratio
// and support prompt upsampling, classic endpoints take explicit
// width/height and support raw mode.
type TextToImage struct {
	// Model endpoint. Defaults to "flux-pro-1.1".
	Model string
	// Prompt describing the desired image. Required (directly or via a
	// connection); trimmed before submission.
	Prompt string
	// AspectRatio like "16:9". Defaults to "1:1".
	AspectRatio string
	// MaxSize bounds the longer image side in pixels (classic models
	// only). Defaults to 1024.
	MaxSize int
	// Seed for reproducibility. Nil means random.
	Seed *int64
	// PromptUpsampling rewrites the prompt upstream for potentially
	// better results (Kontext models only).
	PromptUpsampling bool
	// Raw requests less processed, more natural-looking images (classic
	// models only).
	Raw bool
	// SafetyTolerance 0 (strict) to 6 (permissive). Defaults to 2.
	SafetyTolerance int
	// OutputFormat "jpeg" or "png". Defaults to "jpeg".
	OutputFormat string
}

// Name implements Node.
func (n *TextToImage) Name() string { return "text_to_image" }

// Endpoint implements Node.
func (n *TextToImage) Endpoint() string { return orDefault(n.Model, "flux-pro-1.1") }

// Profile implements Node.
func (n *TextToImage) Profile() labs.PollProfile { return labs.StandardProfile() }

// Validate implements Node.
func (n *TextToImage) Validate(conn Connected) error {
	if err := validateCommon(n.Name(), n.Prompt, conn, n.SafetyTolerance, n.OutputFormat); err != nil {
		return err
	}
	model := n.Endpoint()
	for _, m := range TextToImageModels {
		if m == model {
			return nil
		}
	}
	return types.Errorf(types.ErrValidation, "%s: unsupported model %q", n.Name(), model)
}

// Payload implements Node.
func (n *TextToImage) Payload() (map[string]any, error) {
	prompt := strings.TrimSpace(n.Prompt)
	if prompt == "" {
		return nil, types.Errorf(types.ErrValidation, "%s: prompt is required and cannot be empty", n.Name())
	}

	payload := map[string]any{
		"prompt":           prompt,
		"safety_tolerance": n.SafetyTolerance,
		"output_format":    orDefault(n.OutputFormat, FormatJPEG),
	}

	if n.isKontext() {
		payload["aspect_ratio"] = orDefault(n.AspectRatio, "1:1")
		payload["prompt_upsampling"] = n.PromptUpsampling
	} else {
		maxSize := n.MaxSize
		if maxSize == 0 {
			maxSize = 1024
		}
		width, height, err := SizeFor(maxSize, orDefault(n.AspectRatio, "1:1"))
		if err != nil {
			return nil, err
		}
		payload["width"] = width
		payload["height"] = height
		payload["raw"] = n.Raw
	}

	if n.Seed != nil {
		payload["seed"] = *n.Seed
	}
	return payload, nil
}

func (n *TextToImage) isKontext() bool {
	return strings.HasPrefix(n.Endpoint(), "flux-kontext")
}
