package models

import (
	"slices"
	"time"
)

type Product struct {
	ID          string    `bson:"_id" json:"_id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description" json:"description"`
	Price       float64   `bson:"price" json:"price"`
	Category    string    `bson:"category" json:"category"`
	SubCategory string    `bson:"subCategory" json:"subCategory"`
	Images      []string  `bson:"image" json:"image"`
	Sizes       []string  `bson:"sizes" json:"sizes"`
	Bestseller  bool      `bson:"bestseller" json:"bestseller"`
	NewArrival  bool      `bson:"newArrival" json:"newArrival"`
	CreatedAt   time.Time `bson:"date" json:"date"`
}

func (p *Product) HasSize(size string) bool {
	return slices.Contains(p.Sizes, size)
}

// Thumbnail is the first image, or empty when the product has none.
func (p *Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
