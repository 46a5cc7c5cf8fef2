package domain

import "time"

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"
	CartStatusCompleted CartStatus = "completed"
)

type Cart struct {
	ID          string     `bson:"_id" json:"id"`
	UserID      string     `bson:"user_id" json:"userId"`
	Items       []CartItem `bson:"items" json:"items"`
	TotalAmount float64    `bson:"total_amount" json:"totalAmount"`
	Status      CartStatus `bson:"status" json:"status"`
	Version     int64      `bson:"version" json:"-"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
}

// CartItem holds the unit price captured when the line was added.
// Product is filled in for display only and is never persisted.
type CartItem struct {
	ProductID string          `bson:"product_id" json:"productId"`
	Quantity  int             `bson:"quantity" json:"quantity"`
	UnitPrice float64         `bson:"unit_price" json:"unitPrice"`
	Product   *ProductDetails `bson:"-" json:"product,omitempty"`
}

type ProductDetails struct {
	Title string  `json:"title"`
	Image string  `json:"image"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// FindItem returns the index of the line for productID, or -1.
func (c *Cart) FindItem(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) IsActive() bool {
	return c.Status == CartStatusActive
}
