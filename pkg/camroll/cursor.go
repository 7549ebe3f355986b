package camroll

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseCursor decodes an after-cursor into a row offset. Blank means offset 0.
func ParseCursor(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCursor, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidCursor, n)
	}
	return n, nil
}

// FormatCursor encodes a row offset as a cursor.
func FormatCursor(offset int) string {
	return strconv.Itoa(offset)
}
