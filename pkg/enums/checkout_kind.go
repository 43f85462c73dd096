package enums

import "fmt"

// CheckoutKind distinguishes a general-cart checkout from a buy-now checkout.
// Only cart checkouts clear the persistent cart on success.
type CheckoutKind string

const (
	CheckoutKindCart   CheckoutKind = "cart"
	CheckoutKindBuyNow CheckoutKind = "buy_now"
)

var validCheckoutKinds = []CheckoutKind{
	CheckoutKindCart,
	CheckoutKindBuyNow,
}

// IsValid reports whether the value matches the canonical checkout kind enum.
func (c CheckoutKind) IsValid() bool {
	for _, candidate := range validCheckoutKinds {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutKind converts the raw string to CheckoutKind.
func ParseCheckoutKind(value string) (CheckoutKind, error) {
	for _, candidate := range validCheckoutKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout kind %q", value)
}
