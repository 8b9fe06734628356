package billing

import "context"

// Service defines the commerce operations: payment method registry,
// subscription engine, and checkout engine. All state is keyed per user;
// invoices and orders are append-only logs, while the subscription and the
// checkout session are single-slot records.
type Service interface {
	// Payment method registry. A non-empty method list always contains
	// exactly one default.
	Methods(ctx context.Context, userID string) ([]PaymentMethod, error)
	AddMethod(ctx context.Context, userID string, m NewPaymentMethod) (PaymentMethod, error)
	RemoveMethod(ctx context.Context, userID, methodID string) error
	SetDefaultMethod(ctx context.Context, userID, methodID string) (bool, error)

	// Subscription engine. Reads reconcile expired deferred cancellations.
	CurrentSubscription(ctx context.Context, userID string) (*Subscription, error)
	Subscribe(ctx context.Context, userID, planID, methodID string) (Subscription, error)
	CancelSubscription(ctx context.Context, userID string, atPeriodEnd bool) (bool, error)

	// Checkout engine. Creating a session overwrites any prior one.
	CreateCheckout(ctx context.Context, userID string, items []CheckoutItem) (CheckoutSession, error)
	CompleteCheckout(ctx context.Context, userID, methodID string) (CheckoutSession, error)

	// Append-only history.
	Invoices(ctx context.Context, userID string) ([]Invoice, error)
	Orders(ctx context.Context, userID string) ([]Order, error)
}
