package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateProductRequest struct {
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Platform string          `json:"platform"`
	Stock    int             `json:"stock"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

type UpdateProductRequest struct {
	Name     *string          `json:"name"`
	SKU      *string          `json:"sku"`
	Stock    *int             `json:"stock"`
	Price    *decimal.Decimal `json:"price"`
	Currency *string          `json:"currency"`
	Status   *string          `json:"status"`
}

type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

type ProductResponse struct {
	ID              uuid.UUID       `json:"id"`
	ShopID          uuid.UUID       `json:"shop_id"`
	ShopeeProductID *int64          `json:"shopee_product_id,omitempty"`
	Platform        string          `json:"platform"`
	Name            string          `json:"name"`
	SKU             string          `json:"sku,omitempty"`
	Stock           int             `json:"stock"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type ProductListResponse struct {
	Products   []ProductResponse `json:"products"`
	Total      int64             `json:"total"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
	TotalPages int               `json:"total_pages"`
}
