package user

import (
	"time"

	"github.com/google/uuid"
)

// User is the operator account that owns screens. Kept minimal: the
// device lifecycle only needs an identity and an admin flag.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
}
