package models

import "time"

// User is an actor identity. Rows are provisioned from verified tokens; the
// identity provider owns credentials.
type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OpenID       string    `gorm:"size:64;not null;uniqueIndex" json:"openId"`
	Name         string    `gorm:"size:255;index" json:"name"`
	Email        string    `gorm:"size:320" json:"email"`
	Role         Role      `gorm:"size:20;not null;default:'user'" json:"role"`
	Department   string    `gorm:"size:128" json:"department,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastSignedIn time.Time `json:"lastSignedIn"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// SystemActorID marks reports and audit rows produced without a human actor
// (webhooks, the SLA sweep).
const SystemActorID uint = 0

// SystemActor is the identity the SLA sweep acts as.
func SystemActor() *User {
	return &User{ID: SystemActorID, Name: "Sistema", Role: RoleAdmin}
}
