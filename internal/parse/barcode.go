package parse

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxBarcodeLength bounds the accepted barcode length; it matches the width
// of the barcode column.
const MaxBarcodeLength = 64

var (
	spaceRe = regexp.MustCompile(`\s+`)
	// Scanners in keyboard-wedge mode may append CR/LF/TAB, and GS1 codes
	// carry the group separator (0x1D). NUL shows up on some serial adapters.
	controlReplacer = strings.NewReplacer("\r", "", "\n", "", "\t", "", "\x00", "", "\x1d", "")
)

// Barcode normalises a scanned barcode: scanner control characters are
// dropped, surrounding whitespace trimmed and inner whitespace collapsed.
// Case is preserved.
func Barcode(raw string) (string, error) {
	s := controlReplacer.Replace(raw)
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))

	if s == "" {
		return "", fmt.Errorf("empty barcode: %q", raw)
	}
	if len(s) > MaxBarcodeLength {
		return "", fmt.Errorf("barcode longer than %d characters: %q", MaxBarcodeLength, raw)
	}
	return s, nil
}
