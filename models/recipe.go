package models

type Recipe struct {
	DrinkID    uint     `gorm:"primaryKey;autoIncrement:false" json:"drink_id"`
	MaterialID uint     `gorm:"primaryKey;autoIncrement:false" json:"material_id"`
	Material   Material `gorm:"foreignKey:MaterialID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Quantity   float64  `gorm:"type:decimal(12,3);not null" json:"quantity"`
}
