package domain

import (
	"time"

	"github.com/google/uuid"
)

// Admin is a back-office operator. Every settlement records the admin
// who performed it.
type Admin struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}
