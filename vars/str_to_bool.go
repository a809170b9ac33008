package vars

import "strings"

// StrToBool parses common truthy spellings. Anything unrecognized is false.
func StrToBool(str string) bool {
	str = strings.ToLower(strings.TrimSpace(str))
	switch str {
	case "true", "t", "yes", "y", "1", "on":
		return true
	}
	return false
}
