package models

import "time"

const (
	AccountStaff = 0
	AccountAdmin = 1
)

type Account struct {
	UserName    string    `gorm:"primaryKey;type:varchar(100)" json:"user_name"`
	DisplayName string    `gorm:"type:varchar(255);not null" json:"display_name"`
	Password    string    `gorm:"type:varchar(255);not null" json:"-"`
	Type        int       `gorm:"not null;default:0" json:"type"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a Account) IsAdmin() bool {
	return a.Type == AccountAdmin
}
