package model

type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleMasterAdmin = "MASTER_ADMIN"
	RoleAdmin       = "ADMIN"
)

var DefaultRoles = []Role{
	{
		Code:        RoleMasterAdmin,
		Name:        "Master Administrator",
		Description: "Full access including user management",
	},
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Catalog, stock and report access",
	},
}

// DefaultRolePrivileges maps each seeded role to the privilege codes it gets
func DefaultRolePrivileges(roleCode string) []string {
	var codes []string
	for _, p := range DefaultPrivileges {
		if roleCode == RoleAdmin && p.Group() == "user" {
			continue
		}
		codes = append(codes, p.Code)
	}
	return codes
}
