package nodes

import (
	"strings"

	"github.com/BaSui01/fluxnodes/labs"
	"github.com/BaSui01/fluxnodes/types"
)

// KontextModels lists the Kontext-family endpoints.
var KontextModels = []string{"flux-kontext-pro", "flux-kontext-max"}

// KontextTextToImage generates an image with the Kontext models only.
// Unlike TextToImage it never falls back to explicit width/height.
type KontextTextToImage struct {
	Model            string // defaults to "flux-kontext-pro"
	Prompt           string
	AspectRatio      string // defaults to "1:1"
	Seed             *int64
	PromptUpsampling bool
	SafetyTolerance  int
	OutputFormat     string
}

// Name implements Node.
func (n *KontextTextToImage) Name() string { return "kontext_text_to_image" }

// Endpoint implements Node.
func (n *KontextTextToImage) Endpoint() string { return orDefault(n.Model, "flux-kontext-pro") }

// Profile implements Node.
func (n *KontextTextToImage) Profile() labs.PollProfile { return labs.StandardProfile() }

// Validate implements Node.
func (n *KontextTextToImage) Validate(conn Connected) error {
	if err := validateCommon(n.Name(), n.Prompt, conn, n.SafetyTolerance, n.OutputFormat); err != nil {
		return err
	}
	return validKontextModel(n.Name(), n.Endpoint())
}

// Payload implements Node.
func (n *KontextTextToImage) Payload() (map[string]any, error) {
	prompt := strings.TrimSpace(n.Prompt)
	if prompt == "" {
		return nil, types.Errorf(types.ErrValidation, "%s: prompt is required and cannot be empty", n.Name())
	}

	payload := map[string]any{
		"prompt":            prompt,
		"aspect_ratio":      orDefault(n.AspectRatio, "1:1"),
		"prompt_upsampling": n.PromptUpsampling,
		"safety_tolerance":  n.SafetyTolerance,
		"output_format":     orDefault(n.OutputFormat, FormatJPEG),
	}
	if n.Seed != nil {
		payload["seed"] = *n.Seed
	}
	return payload, nil
}

// KontextImageEdit modifies an existing image according to an edit
// instruction. The input image travels base64-encoded in the payload, so
// requests are large and edits poll on the long-running profile.
type KontextImageEdit struct {
	Model string // defaults to "flux-kontext-pro"
	// Prompt is the edit instruction, e.g. "make the car red".
	Prompt string
	// InputImage is the base64-encoded source image. Required.
	InputImage string
	// AspectRatio of the output. Empty keeps the input ratio.
	AspectRatio     string
	Seed            *int64
	SafetyTolerance int
	OutputFormat    string
}

// Name implements Node.
func (n *KontextImageEdit) Name() string { return "kontext_image_edit" }

// Endpoint implements Node.
func (n *KontextImageEdit) Endpoint() string { return orDefault(n.Model, "flux-kontext-pro") }

// Profile implements Node.
func (n *KontextImageEdit) Profile() labs.PollProfile { return labs.LongRunningProfile() }

// Validate implements Node.
func (n *KontextImageEdit) Validate(conn Connected) error {
	if err := validateCommon(n.Name(), n.Prompt, conn, n.SafetyTolerance, n.OutputFormat); err != nil {
		return err
	}
	if n.InputImage == "" && !conn["input_image"] {
		return types.Errorf(types.ErrValidation,
			"%s: provide an input image or connect one to the input_image parameter", n.Name())
	}
	return validKontextModel(n.Name(), n.Endpoint())
}

// Payload implements Node.
func (n *KontextImageEdit) Payload() (map[string]any, error) {
	prompt := strings.TrimSpace(n.Prompt)
	if prompt == "" {
		return nil, types.Errorf(types.ErrValidation, "%s: prompt is required and cannot be empty", n.Name())
	}
	if n.InputImage == "" {
		return nil, types.Errorf(types.ErrValidation, "%s: input image is required", n.Name())
	}

	payload := map[string]any{
		"prompt":           prompt,
		"input_image":      n.InputImage,
		"safety_tolerance": n.SafetyTolerance,
		"output_format":    orDefault(n.OutputFormat, FormatJPEG),
	}
	if n.AspectRatio != "" {
		payload["aspect_ratio"] = n.AspectRatio
	}
	if n.Seed != nil {
		payload["seed"] = *n.Seed
	}
	return payload, nil
}

func validKontextModel(name, model string) error {
	for _, m := range KontextModels {
		if m == model {
			return nil
		}
	}
	return types.Errorf(types.ErrValidation, "%s: unsupported model %q", name, model)
}
