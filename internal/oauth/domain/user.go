package domain

import (
	"time"

	"github.com/oddgrid/grantd/pkg/idx"
)

// User is a resource owner known to the built-in directory. Deployments that
// delegate credential checks to an external identity backend never touch this
// table.
type User struct {
	ID           idx.ID
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
