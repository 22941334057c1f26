package models

import "time"

// ShippingAddress is owned by exactly one order.
type ShippingAddress struct {
	ID         uint   `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    uint   `gorm:"column:order_id;not null;uniqueIndex"`
	Recipient  string `gorm:"column:recipient;not null"`
	Line1      string `gorm:"column:line1;not null"`
	Line2      string `gorm:"column:line2"`
	City       string `gorm:"column:city;not null"`
	State      string `gorm:"column:state"`
	PostalCode string `gorm:"column:postal_code;not null"`
	Country    string `gorm:"column:country;not null"`
	Phone      string `gorm:"column:phone"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
