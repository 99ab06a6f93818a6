package authorization

// Role is carried in admin API tokens.
type Role string

const (
	// RoleAdmin may manage every tenant.
	RoleAdmin Role = "admin"
	// RoleOperator is bound to the tenant named in its token.
	RoleOperator Role = "operator"
)

func (r Role) String() string {
	return string(r)
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleOperator
}

func ParseRole(s string) Role {
	role := Role(s)
	if role.IsValid() {
		return role
	}
	return RoleOperator
}

// CanAccessTenant reports whether a token holder may act on tenantID.
func CanAccessTenant(role Role, tokenTenant, tenantID string) bool {
	if role.IsAdmin() {
		return true
	}
	return tokenTenant != "" && tokenTenant == tenantID
}
