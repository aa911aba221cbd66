package analyzer

import (
	"fmt"
	"strings"
)

// NewDetector returns the detector registered under name. Only the
// Sobel-based contrast detector ships; ML detection runs out of process.
func NewDetector(name string) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "contrast", "sobel":
		return NewContrastDetector(), nil
	}
	return nil, fmt.Errorf("unknown detector %q (available: contrast)", name)
}
