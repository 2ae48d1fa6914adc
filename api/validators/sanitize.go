package validators

import "strings"

const maxNameLen = 100

// SanitizeName trims a display name and collapses runs of internal
// whitespace before it is stored on the account.
func SanitizeName(input string) string {
	name := strings.Join(strings.Fields(input), " ")
	if len(name) > maxNameLen {
		name = strings.TrimSpace(name[:maxNameLen])
	}
	return name
}
