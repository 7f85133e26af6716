package models

// Tier maps a subscription level to its daily request quota. Read-mostly
// reference data owned by the persistence layer.
type Tier struct {
	Level          int    `gorm:"primaryKey" json:"level"`
	Name           string `gorm:"not null" json:"name"`
	RequestsPerDay int    `gorm:"not null" json:"requests_per_day"`
}

func (Tier) TableName() string {
	return "tiers"
}
