package nodes

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/BaSui01/fluxnodes/types"
)

// Pixel bounds accepted by the classic FLUX endpoints.
const (
	MinDimension = 256
	MaxDimension = 1440
)

// SizeFor computes explicit width/height for the classic endpoints from a
// maximum dimension and an aspect ratio string ("W:H"). The longer side
// gets maxSize; both sides are floored to multiples of 32 as the API
// requires.
func SizeFor(maxSize int, aspectRatio string) (width, height int, err error) {
	wr, hr, err := parseRatio(aspectRatio)
	if err != nil {
		return 0, 0, err
	}
	if maxSize < MinDimension || maxSize > MaxDimension {
		return 0, 0, types.Errorf(types.ErrValidation,
			"max_size must be between %d and %d pixels, got %d", MinDimension, MaxDimension, maxSize)
	}

	if wr > hr {
		width = maxSize
		height = maxSize * hr / wr
	} else {
		height = maxSize
		width = maxSize * wr / hr
	}

	width = width / 32 * 32
	height = height / 32 * 32
	return width, height, nil
}

func parseRatio(aspectRatio string) (int, int, error) {
	parts := strings.Split(aspectRatio, ":")
	if len(parts) != 2 {
		return 0, 0, types.Errorf(types.ErrValidation,
			"invalid aspect ratio %q, expected \"width:height\"", aspectRatio)
	}
	wr, errW := strconv.Atoi(parts[0])
	hr, errH := strconv.Atoi(parts[1])
	if errW != nil || errH != nil || wr <= 0 || hr <= 0 {
		return 0, 0, types.Errorf(types.ErrValidation,
			"invalid aspect ratio %q, expected \"width:height\"", aspectRatio)
	}
	return wr, hr, nil
}

// FormatSize renders a width/height pair the way node UIs display it.
func FormatSize(width, height int) string {
	return fmt.Sprintf("%dx%d", width, height)
}
