package nodes

import (
	"strings"

	"github.com/BaSui01/fluxnodes/labs"
	"github.com/BaSui01/fluxnodes/types"
)

// fillEndpoint is the single inpainting endpoint.
const fillEndpoint = "flux-pro-1.0-fill"

// FluxFill inpaints the masked region of an image. White mask pixels are
// regenerated, black pixels are kept. Both images travel base64-encoded,
// so fills poll on the long-running profile.
type FluxFill struct {
	// Image is the base64-encoded source image. Required.
	Image string
	// Mask is the base64-encoded mask. Required.
	Mask string
	// Prompt guides the fill. Optional; an empty prompt lets the model
	// infer content from the surroundings.
	Prompt string
	// Steps of generation, higher means more detail. Defaults to 50.
	Steps int
	// Guidance strength. Defaults to 60.
	Guidance int
	Seed     *int64
	// SafetyTolerance 0 (strict) to 6 (permissive). Defaults to 2.
	SafetyTolerance int
	OutputFormat    string
}

// Name implements Node.
func (n *FluxFill) Name() string { return "flux_fill" }

// Endpoint implements Node.
func (n *FluxFill) Endpoint() string { return fillEndpoint }

// Profile implements Node.
func (n *FluxFill) Profile() labs.PollProfile { return labs.LongRunningProfile() }

// Validate implements Node. Unlike the generation variants, the prompt is
// optional here; the images are what is required.
func (n *FluxFill) Validate(conn Connected) error {
	if n.Image == "" && !conn["input_image"] {
		return types.Errorf(types.ErrValidation,
			"%s: provide an input image or connect one to the input_image parameter", n.Name())
	}
	if n.Mask == "" && !conn["mask"] {
		return types.Errorf(types.ErrValidation,
			"%s: provide a mask image or connect one to the mask parameter", n.Name())
	}
	if !validSafetyTolerance(n.SafetyTolerance) {
		return types.Errorf(types.ErrValidation,
			"%s: safety_tolerance must be between 0 and 6, got %d", n.Name(), n.SafetyTolerance)
	}
	if !validOutputFormat(n.OutputFormat) {
		return types.Errorf(types.ErrValidation,
			"%s: output_format must be %q or %q, got %q", n.Name(), FormatJPEG, FormatPNG, n.OutputFormat)
	}
	return nil
}

// Payload implements Node.
func (n *FluxFill) Payload() (map[string]any, error) {
	if n.Image == "" || n.Mask == "" {
		return nil, types.Errorf(types.ErrValidation, "%s: image and mask are required", n.Name())
	}

	steps := n.Steps
	if steps == 0 {
		steps = 50
	}
	guidance := n.Guidance
	if guidance == 0 {
		guidance = 60
	}

	payload := map[string]any{
		"image":            n.Image,
		"mask":             n.Mask,
		"steps":            steps,
		"guidance":         guidance,
		"safety_tolerance": n.SafetyTolerance,
		"output_format":    orDefault(n.OutputFormat, FormatJPEG),
	}
	if prompt := strings.TrimSpace(n.Prompt); prompt != "" {
		payload["prompt"] = prompt
	}
	if n.Seed != nil {
		payload["seed"] = *n.Seed
	}
	return payload, nil
}
