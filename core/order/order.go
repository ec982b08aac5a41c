package order

import "time"

type Status string

const (
	Pending Status = "pending"
	Success Status = "success"
	Expired Status = "expired"
)

// Order keeps the full payable breakdown so the charged amount stays
// reproducible after prices or discount rules change.
type Order struct {
	ID             string    `json:"id" db:"order_id"`
	ProviderID     string    `json:"providerId" db:"provider_id"`
	CartID         string    `json:"-" db:"cart_id"`
	Status         Status    `json:"status" db:"status"`
	Email          string    `json:"email" db:"email"`
	Name           string    `json:"name" db:"name"`
	Phone          string    `json:"phone" db:"phone"`
	Address        string    `json:"address" db:"address"`
	Subtotal       int       `json:"subtotal" db:"subtotal"`
	Shipping       int       `json:"shipping" db:"shipping"`
	Tax            int       `json:"tax" db:"tax"`
	DiscountID     *string   `json:"-" db:"discount_id"`
	DiscountCode   *string   `json:"discountCode" db:"discount_code"`
	DiscountAmount int       `json:"discountAmount" db:"discount_amount"`
	Total          int       `json:"total" db:"total"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

type StatusUp struct {
	ID        string    `db:"order_id"`
	Status    Status    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Item struct {
	OrderID   string    `json:"orderId" db:"order_id"`
	ProductID string    `json:"productId" db:"product_id"`
	Name      string    `json:"name" db:"name"`
	Price     int       `json:"price" db:"price"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CheckoutNew is the customer detail payload accompanying a checkout. The
// storefront has no customer accounts, so orders carry contact info directly.
type CheckoutNew struct {
	Email        string `json:"email" validate:"required,email"`
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone"`
	Address      string `json:"address" validate:"required"`
	DiscountCode string `json:"discountCode"`
}
