package cart

import "github.com/google/uuid"

const defaultAddQuantity = 1

type addItemRequest struct {
	ProductVariantID uuid.UUID `json:"product_variant_id" validate:"required"`
	Quantity         *int      `json:"quantity"`
}

func (r addItemRequest) quantity() int {
	if r.Quantity == nil {
		return defaultAddQuantity
	}
	return *r.Quantity
}

type updateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
