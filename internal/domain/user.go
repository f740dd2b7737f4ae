package domain

import "time"

// User represents a console account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile holds user-editable account details. One per user.
type Profile struct {
	UserID           string    `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	Bio              string    `json:"bio"`
	Company          string    `json:"company"`
	AvatarURL        string    `json:"avatar_url"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	TwoFactorSecret  []byte    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ProfileUpdate carries editable profile fields.
type ProfileUpdate struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Company     string `json:"company"`
	AvatarURL   string `json:"avatar_url"`
}
