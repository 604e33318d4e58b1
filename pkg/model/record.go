package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrMalformedRecord is returned when a stored or submitted record is
// missing a required field or carries an unknown role.
var ErrMalformedRecord = errors.New("malformed user record")

// Record is the durable account of a user.
type Record struct {
	ID               string    `gorm:"column:id;primaryKey" json:"id"`
	Username         string    `gorm:"column:username" json:"username"`
	DisplayName      string    `gorm:"column:display_name" json:"displayName"`
	OriginalUsername string    `gorm:"column:original_username" json:"originalUsername"`
	Role             Role      `gorm:"column:role" json:"role"`
	IsActive         bool      `gorm:"column:is_active" json:"isActive"`
	CreatedAt        time.Time `gorm:"column:created_at" json:"createdAt"`
	LastLoginAt      time.Time `gorm:"column:last_login_at" json:"lastLoginAt"`
	LastEphemeralID  string    `gorm:"column:last_ephemeral_id" json:"lastEphemeralId"`
}

func (Record) TableName() string {
	return "users"
}

// Validate checks the fields every record must carry.
func (r Record) Validate() error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: missing id", ErrMalformedRecord)
	case r.Username == "":
		return fmt.Errorf("%w: record %s has no username", ErrMalformedRecord, r.ID)
	case !r.Role.IsARole():
		return fmt.Errorf("%w: record %s has role %s", ErrMalformedRecord, r.ID, r.Role)
	}
	return nil
}
