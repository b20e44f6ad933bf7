package blob

import (
	"strings"
	"unicode/utf8"
)

// maxKeyLen is the S3 object key limit.
const maxKeyLen = 1024

// ValidateKey reports whether key is a relative slash separated archive key that is
// safe both as an S3 object key and as a path below the local archive root.
func ValidateKey(key string) bool {
	if key == "" || len(key) > maxKeyLen || !utf8.ValidString(key) {
		return false
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, `\`) || strings.Contains(key, "..") {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." {
			return false
		}
	}
	return true
}
