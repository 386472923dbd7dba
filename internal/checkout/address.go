package checkout

import (
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const defaultCountry = "IN"

// AddressInput is the shipping address captured at checkout.
type AddressInput struct {
	FullName   string `json:"full_name" validate:"required,max=255"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"omitempty,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"omitempty,len=2"`
	Phone      string `json:"phone" validate:"omitempty,max=20"`
}

func (in AddressInput) normalize() AddressInput {
	out := AddressInput{
		FullName:   strings.TrimSpace(in.FullName),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		State:      strings.TrimSpace(in.State),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(in.Country)),
		Phone:      strings.TrimSpace(in.Phone),
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	return out
}

func (in AddressInput) validate() error {
	missing := map[string]string{}
	required := map[string]string{
		"full_name":   in.FullName,
		"line1":       in.Line1,
		"city":        in.City,
		"state":       in.State,
		"postal_code": in.PostalCode,
	}
	for field, value := range required {
		if value == "" {
			missing[field] = "required"
		}
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping address incomplete").WithDetails(missing)
	}
	return nil
}

func (in AddressInput) model(userID *uuid.UUID) *models.Address {
	return &models.Address{
		UserID:     userID,
		FullName:   in.FullName,
		Line1:      in.Line1,
		Line2:      in.Line2,
		City:       in.City,
		State:      in.State,
		PostalCode: in.PostalCode,
		Country:    in.Country,
		Phone:      in.Phone,
	}
}
