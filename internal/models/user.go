package models

import "time"

// User is the shopkeeper. Push token and Telegram chat are set and cleared
// independently of each other.
type User struct {
	ID             string    `json:"id"`
	Phone          string    `json:"phone"`
	Name           string    `json:"name"`
	PushToken      *string   `json:"-"`
	TelegramChatID *int64    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u User) HasPushToken() bool { return u.PushToken != nil && *u.PushToken != "" }

func (u User) IsTelegramLinked() bool { return u.TelegramChatID != nil }
