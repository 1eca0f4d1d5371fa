package client

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ContactNumber string    `json:"contact_number"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type RegisterRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	ContactNumber        string `json:"contact_number"`
}

type Product struct {
	ID          int64           `json:"id"`
	Barcode     string          `json:"barcode"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// 一覧の絞り込み。空の項目は送らない
type ProductFilter struct {
	Search   string
	Category string
	MinPrice string
	MaxPrice string
	InStock  bool
}

type CreateProductRequest struct {
	Barcode     string          `json:"barcode"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
	Category    string          `json:"category"`
}

// 部分更新。nilは送らない
type UpdateProductRequest struct {
	Barcode     *string          `json:"barcode,omitempty"`
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *int64           `json:"quantity,omitempty"`
	Category    *string          `json:"category,omitempty"`
}

type CartProduct struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Price             decimal.Decimal `json:"price"`
	Description       string          `json:"description,omitempty"`
	AvailableQuantity int64           `json:"available_quantity"`
}

type CartLine struct {
	ID           int64           `json:"id"`
	ProductName  string          `json:"product_name"`
	Quantity     int64           `json:"quantity"`
	PricePerItem decimal.Decimal `json:"price_per_item"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	Product      CartProduct     `json:"product"`
}

type Cart struct {
	Items     []CartLine      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int64           `json:"item_count"`
}

type CartItemResponse struct {
	Message  string   `json:"message"`
	CartItem CartLine `json:"cart_item"`
}

type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int64           `json:"quantity"`
}

type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Total           decimal.Decimal `json:"total"`
	Status          string          `json:"status"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type PlaceOrderRequest struct {
	ShippingAddress string          `json:"shipping_address"`
	PaymentMethod   string          `json:"payment_method"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	CartItems       []OrderLine     `json:"cart_items"`
}

type OrderResponse struct {
	Message string `json:"message"`
	Order   Order  `json:"order"`
}

type AdminOrderQuery struct {
	Page   int
	Limit  int
	Status string
	UserID int64
}

type AdminOrderList struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

type AuditLog struct {
	ID           int64     `json:"id"`
	ActorUserID  int64     `json:"actor_user_id"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   int64     `json:"resource_id"`
	BeforeJSON   string    `json:"before_json"`
	AfterJSON    string    `json:"after_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// 時刻はRFC3339で送る
type AuditLogQuery struct {
	ActorUserID  int64
	Action       string
	ResourceType string
	ResourceID   int64
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}
