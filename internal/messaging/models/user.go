package models

import "time"

// User rows are owned by the identity/profile subsystem. Messaging only
// reads them (participant validation, display names); it never writes.
type User struct {
	ID             string    `gorm:"primaryKey;type:uuid" json:"id"`
	FirstName      string    `gorm:"not null" json:"first_name"`
	LastName       string    `gorm:"not null" json:"last_name"`
	ProfilePicture string    `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// FullName is the display form used for derived room names.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (User) TableName() string {
	return "users"
}
