package billing

import (
	"fmt"
	"strings"
)

// ValidateNewMethod checks that the declared type carries its matching
// details variant.
func ValidateNewMethod(m NewPaymentMethod) error {
	switch m.Type {
	case MethodCreditCard:
		if m.Details.Card == nil {
			return fmt.Errorf("%w: card details are required", ErrInvalidInput)
		}
	case MethodPayPal:
		if m.Details.PayPal == nil || !strings.Contains(m.Details.PayPal.Email, "@") {
			return fmt.Errorf("%w: paypal email is required", ErrInvalidInput)
		}
	case MethodBankTransfer:
		if m.Details.Bank == nil {
			return fmt.Errorf("%w: bank details are required", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unsupported method type %q", ErrInvalidInput, m.Type)
	}
	return nil
}

// SanitizeDetails keeps only the variant matching the declared type and trims
// stored numbers down to their last four digits.
func SanitizeDetails(t MethodType, d MethodDetails) MethodDetails {
	switch t {
	case MethodCreditCard:
		card := *d.Card
		card.Last4 = lastFour(card.Last4)
		return MethodDetails{Card: &card}
	case MethodPayPal:
		pp := *d.PayPal
		return MethodDetails{PayPal: &pp}
	case MethodBankTransfer:
		bank := *d.Bank
		bank.Last4 = lastFour(bank.Last4)
		return MethodDetails{Bank: &bank}
	}
	return MethodDetails{}
}

func lastFour(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4 {
		return s
	}
	return s[len(s)-4:]
}

// PriceCart validates the cart and returns the subtotal and tax in cents.
func PriceCart(items []CheckoutItem) (subtotal, tax int64, err error) {
	if len(items) == 0 {
		return 0, 0, ErrEmptyCart
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return 0, 0, fmt.Errorf("%w: quantity must be > 0", ErrInvalidInput)
		}
		if item.PriceCents < 0 {
			return 0, 0, fmt.Errorf("%w: price must be >= 0", ErrInvalidInput)
		}
		if strings.TrimSpace(item.Name) == "" {
			return 0, 0, fmt.Errorf("%w: item name is required", ErrInvalidInput)
		}
		subtotal += item.PriceCents * int64(item.Quantity)
	}
	return subtotal, taxOn(subtotal), nil
}
