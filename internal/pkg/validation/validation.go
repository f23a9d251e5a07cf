package validation

import (
	"regexp"
	"strings"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Person names: letters, spaces, hyphens, apostrophes, dots.
var nameRe = regexp.MustCompile(`^[\p{L}\s\-'.]+$`)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidName accepts an empty name; identities are not required to carry one.
func IsValidName(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || nameRe.MatchString(name)
}
