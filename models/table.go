package models

import "time"

const (
	TableEmpty    = "Trống"
	TableOccupied = "Có người"
)

type DiningTable struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Capacity  int       `gorm:"not null;default:4" json:"capacity"`
	Status    string    `gorm:"type:varchar(50);not null;default:'Trống'" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DiningTable) TableName() string {
	return "dining_tables"
}
