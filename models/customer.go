package models

import "time"

const GuestCustomerName = "Khách vãng lai"

type Customer struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CustomerCode string    `gorm:"type:varchar(50);uniqueIndex" json:"customer_code"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber  string    `gorm:"type:varchar(30)" json:"phone_number"`
	Address      string    `gorm:"type:varchar(255)" json:"address"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
