package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// APITokenMinLength is the shortest token accepted by the store.
const APITokenMinLength = 16

// User is an admin principal. The APIToken gates bundle uploads; admin UI
// reads go through a session JWT instead.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email    string `gorm:"uniqueIndex;size:120;not null" json:"email"`
	APIToken string `gorm:"uniqueIndex;size:128;not null" json:"api_token"`
}

// GenerateAPIToken assigns a fresh random token (32 bytes, hex encoded).
func (u *User) GenerateAPIToken() error {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	u.APIToken = hex.EncodeToString(buf)
	return nil
}
