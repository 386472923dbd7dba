package payments

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ToMinor converts a major-unit amount into the currency's minor units.
func ToMinor(amount decimal.Decimal, currency enums.Currency) int64 {
	return amount.Mul(decimal.NewFromInt(currency.MinorUnits())).Round(0).IntPart()
}

// FromMinor converts gateway minor units back into a major-unit amount.
func FromMinor(minor int64, currency enums.Currency) decimal.Decimal {
	return decimal.New(minor, 0).Div(decimal.NewFromInt(currency.MinorUnits()))
}
