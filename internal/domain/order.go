package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
)

// OrderItem is a denormalized copy of the product at checkout time.
type OrderItem struct {
	ProductID    string  `json:"productId"`
	ProductTitle string  `json:"productTitle"`
	ProductImage string  `json:"productImage"`
	UnitPrice    float64 `json:"unitPrice"`
	Quantity     int     `json:"quantity"`
}

type Order struct {
	ID         uuid.UUID   `json:"id"`
	UserID     string      `json:"userId"`
	OrderItems []OrderItem `json:"orderItems"`
	Total      float64     `json:"total"`
	Subtotal   *float64    `json:"subtotal,omitempty"`
	Shipping   *float64    `json:"shipping,omitempty"`
	Tax        *float64    `json:"tax,omitempty"`
	Address    string      `json:"address"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}
