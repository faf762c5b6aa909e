package ratelimit

import "strconv"

// formatInt padroniza os valores numéricos dos headers.
func formatInt(v int) string { return strconv.Itoa(v) }
