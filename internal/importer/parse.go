package importer

import (
	"bytes"
	"fmt"
	"strings"
)

// ParseFormat validates a user-supplied format name. File extensions such as
// ".OFX" are accepted.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")) {
	case FormatOFX:
		return FormatOFX, nil
	case FormatXLSX:
		return FormatXLSX, nil
	case FormatJSON, "chat":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Parse dispatches raw bytes to the parser for format.
func Parse(format Format, data []byte, opts Options) ([]Row, error) {
	switch format {
	case FormatOFX:
		return ParseOFX(string(data), opts)
	case FormatXLSX:
		return ParseXLSX(bytes.NewReader(data), opts)
	case FormatJSON:
		return ParseChat(data, opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}
