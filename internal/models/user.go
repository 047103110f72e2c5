package models

import "strings"

// Role is what a user does on the marketplace.
type Role string

const (
	RoleDonor     Role = "donor"
	RoleRecipient Role = "recipient"
	RoleVolunteer Role = "volunteer"
)

// Organization describes the body a donor or volunteer acts for.
type Organization struct {
	Name        string `json:"name,omitempty" bson:"name,omitempty"`
	Type        string `json:"type,omitempty" bson:"type,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty" validate:"max=500"`
}

// User represents a registered marketplace participant.
type User struct {
	BaseModel    `bson:",inline"`
	Name         string       `json:"name" bson:"name" validate:"required,max=50"`
	Email        string       `gorm:"uniqueIndex" json:"email" bson:"email" validate:"required,email"`
	PasswordHash string       `json:"-" bson:"password"`
	Role         Role         `gorm:"index" json:"role" bson:"role" validate:"required,oneof=donor recipient volunteer"`
	Phone        string       `json:"phone,omitempty" bson:"phone,omitempty"`
	Address      Address      `gorm:"embedded;embeddedPrefix:address_" json:"address" bson:"address"`
	Organization Organization `gorm:"embedded;embeddedPrefix:org_" json:"organization" bson:"organization"`
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
