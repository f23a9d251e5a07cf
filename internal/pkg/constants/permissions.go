package constants

const (
	RequestAsset   = "request_asset"
	ReturnAsset    = "return_asset"
	DecideRequest  = "decide_request"
	CreateAsset    = "create_asset"
	RemoveEmployee = "remove_employee"
	ViewSelf       = "view_self"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	RequestAsset:   {Employee},
	ReturnAsset:    {Employee},
	DecideRequest:  {HR},
	CreateAsset:    {HR},
	RemoveEmployee: {HR},
	ViewSelf:       {Employee, HR},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
