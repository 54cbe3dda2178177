package domain

import "time"

// Role enumerates facility roles, ordered from broadest to narrowest access.
type Role string

const (
	RoleAdmin          Role = "ADMIN"
	RoleManager        Role = "MANAGER"
	RoleDepartmentHead Role = "DEPARTMENT_HEAD"
	RoleSupport        Role = "SUPPORT"
	RoleLiaison        Role = "DEPARTMENT_LIAISON"
)

// Roles lists every recognized role.
var Roles = []Role{RoleAdmin, RoleManager, RoleDepartmentHead, RoleSupport, RoleLiaison}

// SupportType is an informational specialization tag for support users.
// It never grants capabilities.
type SupportType string

const (
	SupportTypeBiomedTech  SupportType = "BIOMED_TECH"
	SupportTypeElectrician SupportType = "ELECTRICIAN"
	SupportTypePlumber     SupportType = "PLUMBER"
	SupportTypeAircon      SupportType = "AIRCON"
	SupportTypeCarpenter   SupportType = "CARPENTER"
	SupportTypeITStaff     SupportType = "IT_STAFF"
	SupportTypeHousekeep   SupportType = "HOUSE_KEEPING"
	SupportTypeOther       SupportType = "OTHER"
)

// User is a facility account. DepartmentID is nil for admins, who are not
// bound to a single department.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         Role
	SupportType  *SupportType
	DepartmentID *string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
