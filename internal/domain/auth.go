package domain

// Role enumerates access levels. USER/AGENT/COMPANY_ADMIN are granted per
// company; PLATFORM_ADMIN is global.
type Role string

const (
	RoleUser          Role = "USER"
	RoleAgent         Role = "AGENT"
	RoleCompanyAdmin  Role = "COMPANY_ADMIN"
	RolePlatformAdmin Role = "PLATFORM_ADMIN"
)

// IsStaff reports whether the role acts on behalf of a company's support side.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleCompanyAdmin
}

// Actor is the resolved identity context threaded into every service call.
// It replaces ambient "current user" lookups: the auth layer builds it once
// per request from the verified token.
type Actor struct {
	UserID    string
	Role      Role
	CompanyID string
}

// CanAccessCompany reports whether the actor may see data of the company.
func (a Actor) CanAccessCompany(companyID string) bool {
	if a.Role == RolePlatformAdmin {
		return true
	}
	return a.CompanyID == companyID
}
