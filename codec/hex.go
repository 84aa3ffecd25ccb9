package codec

import "strings"

// PrependZx adds the "0x" prefix if it is not already present.
func PrependZx(hex string) string {
	if strings.HasPrefix(hex, "0x") {
		return hex
	}
	return "0x" + hex
}

// RemoveZx strips a leading "0x" prefix, if present.
func RemoveZx(hex string) string {
	return strings.TrimPrefix(hex, "0x")
}
