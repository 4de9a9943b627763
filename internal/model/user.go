package model

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is an authenticated operator of the inventory
type User struct {
	BaseModel
	Email        string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string      `gorm:"type:varchar(255);not null" json:"-"`
	FullName     string      `gorm:"type:varchar(255)" json:"full_name"`
	RoleID       *uint       `gorm:"index" json:"role_id"`
	Role         *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive     bool        `gorm:"default:true" json:"is_active"`
	Privileges   []Privilege `gorm:"many2many:user_privileges;" json:"privileges,omitempty"`
	TokenVersion string      `gorm:"type:varchar(255);default:''" json:"-"` // single session
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (u *User) HasPrivilege(code string) bool {
	for _, p := range u.Privileges {
		if p.Code == code {
			return true
		}
	}
	return false
}

func (u *User) PrivilegeCodes() []string {
	codes := make([]string, len(u.Privileges))
	for i, p := range u.Privileges {
		codes[i] = p.Code
	}
	return codes
}

func (u *User) RoleCode() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Code
}

// UserResponse is the API shape of a user (no password or token version)
type UserResponse struct {
	ID         uuid.UUID   `json:"id"`
	Email      string      `json:"email"`
	FullName   string      `json:"full_name"`
	RoleID     *uint       `json:"role_id,omitempty"`
	Role       *Role       `json:"role,omitempty"`
	IsActive   bool        `json:"is_active"`
	Privileges []Privilege `json:"privileges"`
}

func (u *User) ToResponse() UserResponse {
	privileges := u.Privileges
	if privileges == nil {
		privileges = []Privilege{}
	}
	return UserResponse{
		ID:         u.ID,
		Email:      u.Email,
		FullName:   u.FullName,
		RoleID:     u.RoleID,
		Role:       u.Role,
		IsActive:   u.IsActive,
		Privileges: privileges,
	}
}

// UserSummary is embedded in transaction and activity responses
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Email    string    `json:"email"`
}
