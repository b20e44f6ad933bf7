package utils

const maskVisible = 4

// MaskSecret keeps the first few characters of a key so log lines can be told apart.
func MaskSecret(s string) string {
	if len(s) <= maskVisible {
		return "*****"
	}
	return s[:maskVisible] + "*****"
}
