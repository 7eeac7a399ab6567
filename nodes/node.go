package nodes

import (
	"strings"

	"github.com/BaSui01/fluxnodes/labs"
	"github.com/BaSui01/fluxnodes/types"
)

// Connected marks which node parameters have an incoming graph
// connection. A connected parameter may be empty at validation time; its
// value arrives when the upstream node runs. The set is owned by the
// host engine and passed in, never stored on the node.
type Connected map[string]bool

// Node is one parameterized generation variant. Implementations carry
// plain parameter fields; all protocol behavior lives in labs.Client.
type Node interface {
	// Name identifies the node kind (e.g. "text_to_image").
	Name() string
	// Endpoint is the model endpoint the payload is POSTed to.
	Endpoint() string
	// Validate checks the parameter set before any network traffic.
	Validate(conn Connected) error
	// Payload builds the JSON creation request body.
	Payload() (map[string]any, error)
	// Profile selects the poll behavior for this endpoint.
	Profile() labs.PollProfile
}

// Output formats accepted by the API.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// AspectRatios lists the ratios the API accepts, portrait to landscape.
var AspectRatios = []string{
	"3:7", "9:21", "9:16", "2:3", "3:4", "1:1", "4:3", "3:2", "16:9", "7:3", "21:9",
}

func validOutputFormat(format string) bool {
	return format == "" || format == FormatJPEG || format == FormatPNG
}

func validSafetyTolerance(v int) bool {
	return v >= 0 && v <= 6
}

// validateCommon checks the parameters every variant shares.
func validateCommon(name, prompt string, conn Connected, safety int, format string) error {
	if strings.TrimSpace(prompt) == "" && !conn["prompt"] {
		return types.Errorf(types.ErrValidation,
			"%s: provide a prompt or connect one to the prompt parameter", name)
	}
	if !validSafetyTolerance(safety) {
		return types.Errorf(types.ErrValidation,
			"%s: safety_tolerance must be between 0 (strict) and 6 (permissive), got %d", name, safety)
	}
	if !validOutputFormat(format) {
		return types.Errorf(types.ErrValidation,
			"%s: output_format must be %q or %q, got %q", name, FormatJPEG, FormatPNG, format)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
