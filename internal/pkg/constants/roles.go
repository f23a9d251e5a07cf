package constants

const (
	HR       = "hr"
	Employee = "employee"
)

// ValidRoles is the set of roles an identity may carry.
var ValidRoles = []string{Employee, HR}

// IsValidRole returns true if role is one of the allowed values.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
