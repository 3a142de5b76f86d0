package models

import "time"

type Material struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	UnitID    uint      `gorm:"not null" json:"unit_id"`
	Unit      Unit      `gorm:"foreignKey:UnitID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"unit"`
	Quantity  float64   `gorm:"type:decimal(12,3);not null;default:0" json:"quantity"`
	Price     float64   `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
