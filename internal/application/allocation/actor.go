package allocation

import "assetverse-backend/internal/pkg/constants"

// Actor is the authenticated caller as supplied by the identity middleware. It is trusted
// as-is; signatures and sessions are checked before it reaches the coordinator.
type Actor struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	CompanyName string `json:"company_name,omitempty"`
	CompanyLogo string `json:"company_logo,omitempty"`
}

func (a Actor) can(permission string) bool {
	return a.Email != "" && constants.AllowedRole(permission, a.Role)
}

// ActorFromUser reads the identity map that the session and bearer middleware keep in
// Locals. It reports false when there is no usable identity.
func ActorFromUser(user interface{}) (Actor, bool) {
	m, ok := user.(map[string]interface{})
	if !ok {
		return Actor{}, false
	}
	str := func(k string) string {
		s, _ := m[k].(string)
		return s
	}
	a := Actor{
		Email:       str("email"),
		Name:        str("name"),
		Role:        str("role"),
		CompanyName: str("company_name"),
		CompanyLogo: str("company_logo"),
	}
	return a, a.Email != "" && constants.IsValidRole(a.Role)
}
