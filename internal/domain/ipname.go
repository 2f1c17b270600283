package domain

import (
	"regexp"
	"strings"
)

// ipNoise matches the manufacturer/model-series letter codes, digits and the
// "号機" (model number) suffix that decorate a display name.
var ipNoise = regexp.MustCompile(`SP|CR|[A-Z]|[0-9]|号機`)

// DeriveIPName strips model-code tokens from a display name to obtain the IP
// grouping key. Best-effort heuristic: replace with a structured IP field if the
// catalog ever carries one.
func DeriveIPName(name string) string {
	return strings.TrimSpace(ipNoise.ReplaceAllString(name, ""))
}
