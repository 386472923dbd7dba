package shipments

import (
	"time"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var metroPrefixes = []string{"11", "40", "56", "60", "70", "50"}

type Estimate struct {
	Pincode       string `json:"pincode"`
	MinDays       int    `json:"min_days"`
	MaxDays       int    `json:"max_days"`
	EstimatedDate string `json:"estimated_date"`
}

// EstimateDelivery quotes a delivery window for an Indian pincode.
func (s *Service) EstimateDelivery(pincode string) (*Estimate, error) {
	return estimate(pincode, s.now())
}

func estimate(pincode string, now time.Time) (*Estimate, error) {
	if !validPincode(pincode) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pincode").
			WithDetails(map[string]any{"pincode": "must be 6 digits"})
	}
	minDays, maxDays := 4, 7
	for _, prefix := range metroPrefixes {
		if pincode[:2] == prefix {
			minDays, maxDays = 2, 4
			break
		}
	}
	return &Estimate{
		Pincode:       pincode,
		MinDays:       minDays,
		MaxDays:       maxDays,
		EstimatedDate: now.AddDate(0, 0, maxDays).Format("2006-01-02"),
	}, nil
}

func validPincode(pincode string) bool {
	if len(pincode) != 6 {
		return false
	}
	for _, r := range pincode {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
