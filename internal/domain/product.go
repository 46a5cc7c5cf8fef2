package domain

import "time"

type Product struct {
	ID        string    `bson:"_id" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Image     string    `bson:"image" json:"image"`
	Price     float64   `bson:"price" json:"price"`
	Stock     int       `bson:"stock" json:"stock"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// ProductFilter narrows catalog listings. Zero values disable a criterion.
type ProductFilter struct {
	Title    string
	MinPrice *float64
	MaxPrice *float64
	InStock  bool
	Limit    int
	Offset   int
}
