package utils

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var plainTableNumber = regexp.MustCompile(`^\d+$`)

// EncodeTableID obfuscates a table number for use in tracking URLs so
// guests can't trivially guess other tables.
func EncodeTableID(tableID string) string {
	if tableID == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte("tbl_" + tableID))
}

// DecodeTableID reverses EncodeTableID. Plain numeric values are passed
// through for links printed before encoding was introduced.
func DecodeTableID(encoded string) string {
	if encoded == "" {
		return ""
	}
	if plainTableNumber.MatchString(encoded) {
		return encoded
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return encoded
	}
	if s := string(decoded); strings.HasPrefix(s, "tbl_") {
		return strings.TrimPrefix(s, "tbl_")
	}
	return encoded
}
