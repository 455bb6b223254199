package enums

import "fmt"

// BillingType selects the gateway payment method.
type BillingType string

const (
	BillingTypePix        BillingType = "PIX"
	BillingTypeCreditCard BillingType = "CREDIT_CARD"
)

// String implements fmt.Stringer.
func (b BillingType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingType.
func (b BillingType) IsValid() bool {
	return b == BillingTypePix || b == BillingTypeCreditCard
}

// ParseBillingType converts raw input into a BillingType.
func ParseBillingType(value string) (BillingType, error) {
	switch BillingType(value) {
	case BillingTypePix:
		return BillingTypePix, nil
	case BillingTypeCreditCard:
		return BillingTypeCreditCard, nil
	default:
		return "", fmt.Errorf("invalid billing type %q", value)
	}
}
