package models

import "time"

type Admin struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // don’t expose hash
}

// AccessToken is a license key that gates sign-up.
type AccessToken struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}
