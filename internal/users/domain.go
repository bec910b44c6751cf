package users

import (
	"time"

	"github.com/google/uuid"
)

// User is a profile together with its assigned roles.
type User struct {
	ID        uuid.UUID  `json:"id"`
	Email     *string    `json:"email"`
	FullName  *string    `json:"full_name"`
	Phone     *string    `json:"phone"`
	CreatedAt *time.Time `json:"created_at"`
	Roles     []string   `json:"roles"`
}
