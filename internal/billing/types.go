package billing

import "time"

// All currency amounts are minor units (cents). No floats.

// MethodType enumerates supported payment instrument kinds.
type MethodType string

const (
	MethodCreditCard   MethodType = "credit_card"
	MethodPayPal       MethodType = "paypal"
	MethodBankTransfer MethodType = "bank_transfer"
)

// CardDetails keeps the last four digits only; full numbers are never stored.
type CardDetails struct {
	Brand          string `json:"brand"`
	Last4          string `json:"last4"`
	ExpiryMonth    string `json:"expiry_month"`
	ExpiryYear     string `json:"expiry_year"`
	CardholderName string `json:"cardholder_name"`
}

type PayPalDetails struct {
	Email string `json:"email"`
}

// BankDetails keeps the last four digits of the account number only.
type BankDetails struct {
	BankName string `json:"bank_name"`
	Last4    string `json:"last4"`
}

// MethodDetails is a variant record: exactly one field is set, matching the
// method type.
type MethodDetails struct {
	Card   *CardDetails   `json:"card,omitempty"`
	PayPal *PayPalDetails `json:"paypal,omitempty"`
	Bank   *BankDetails   `json:"bank,omitempty"`
}

// PaymentMethod is a stored payment instrument owned by exactly one user.
type PaymentMethod struct {
	ID        string        `json:"id"`
	Type      MethodType    `json:"type"`
	Details   MethodDetails `json:"details"`
	IsDefault bool          `json:"is_default"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewPaymentMethod is the caller-supplied part of a payment method; the id is
// assigned on add.
type NewPaymentMethod struct {
	Type      MethodType    `json:"type"`
	Details   MethodDetails `json:"details"`
	IsDefault bool          `json:"is_default"`
}

// Plan is a static catalog entry. The catalog is immutable at runtime.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	PriceCents  int64    `json:"price_cents"`
	Interval    string   `json:"interval"`
	Features    []string `json:"features"`
	Popular     bool     `json:"popular,omitempty"`
}

// SubscriptionStatus enumerates subscription lifecycle states.
type SubscriptionStatus string

const (
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusCanceled SubscriptionStatus = "canceled"
	SubStatusPastDue  SubscriptionStatus = "past_due"
	SubStatusTrialing SubscriptionStatus = "trialing"
)

// Subscription is the single non-historical subscription record of a user.
type Subscription struct {
	ID                 string             `json:"id"`
	UserID             string             `json:"user_id"`
	PlanID             string             `json:"plan_id"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"`
	PaymentMethodID    string             `json:"payment_method_id"`
}

// InvoiceStatus enumerates invoice states.
type InvoiceStatus string

const (
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// SubscriptionIDOneTime marks invoices produced by checkout rather than a
// subscription cycle.
const SubscriptionIDOneTime = "one_time_purchase"

type InvoiceItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Quantity    int    `json:"quantity"`
}

// Invoice is an append-only billing record per user.
type Invoice struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	SubscriptionID string        `json:"subscription_id"`
	AmountCents    int64         `json:"amount_cents"`
	Status         InvoiceStatus `json:"status"`
	Date           time.Time     `json:"date"`
	DueDate        time.Time     `json:"due_date"`
	Items          []InvoiceItem `json:"items"`
}

// CheckoutItem is one cart line.
type CheckoutItem struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	PriceCents  int64  `json:"price_cents"`
	Quantity    int    `json:"quantity"`
}

// SessionStatus enumerates checkout session states.
type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "pending"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// CheckoutSession is the single-slot priced snapshot of a user's cart. Each
// recompute overwrites the previous session.
type CheckoutSession struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	Items           []CheckoutItem `json:"items"`
	SubtotalCents   int64          `json:"subtotal_cents"`
	TaxCents        int64          `json:"tax_cents"`
	TotalCents      int64          `json:"total_cents"`
	PaymentMethodID string         `json:"payment_method_id,omitempty"`
	Status          SessionStatus  `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Order is an append-only record of a completed checkout.
type Order struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	CheckoutSessionID string         `json:"checkout_session_id"`
	Items             []CheckoutItem `json:"items"`
	TotalCents        int64          `json:"total_cents"`
	Status            string         `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
}

// taxRatePercent is the fixed checkout tax rate.
const taxRatePercent = 10

// taxOn returns 10% of the subtotal rounded half-up to whole cents.
func taxOn(subtotalCents int64) int64 {
	return (subtotalCents*taxRatePercent + 50) / 100
}
