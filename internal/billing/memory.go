package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"loquia.org/internal/ids"
)

// InMemory implements Service with in-process concurrency safety.
type InMemory struct {
	mu    sync.RWMutex
	users map[string]*userState
	now   func() time.Time
}

type userState struct {
	methods  []PaymentMethod
	sub      *Subscription
	checkout *CheckoutSession
	invoices []Invoice
	orders   []Order
}

var _ Service = (*InMemory)(nil)

// MemoryOption configures InMemory.
type MemoryOption func(*InMemory)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) MemoryOption {
	return func(s *InMemory) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewInMemory creates an empty billing store.
func NewInMemory(opts ...MemoryOption) *InMemory {
	s := &InMemory{
		users: make(map[string]*userState),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) state(userID string) *userState {
	st, ok := s.users[userID]
	if !ok {
		st = &userState{}
		s.users[userID] = st
	}
	return st
}

// Methods returns the user's payment methods in insertion order.
func (s *InMemory) Methods(ctx context.Context, userID string) ([]PaymentMethod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]PaymentMethod, len(st.methods))
	copy(out, st.methods)
	return out, nil
}

// AddMethod stores a new payment instrument. The first method of a user is
// forced to be the default; adding another default clears the previous one.
func (s *InMemory) AddMethod(ctx context.Context, userID string, m NewPaymentMethod) (PaymentMethod, error) {
	if err := ValidateNewMethod(m); err != nil {
		return PaymentMethod{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	isDefault := m.IsDefault
	if len(st.methods) == 0 {
		isDefault = true
	}
	if isDefault {
		for i := range st.methods {
			st.methods[i].IsDefault = false
		}
	}

	method := PaymentMethod{
		ID:        ids.New(),
		Type:      m.Type,
		Details:   SanitizeDetails(m.Type, m.Details),
		IsDefault: isDefault,
		CreatedAt: s.now().UTC(),
	}
	st.methods = append(st.methods, method)
	return method, nil
}

// RemoveMethod deletes a payment instrument. Removing the only method while
// it is the default is rejected outright; removing a non-sole default
// promotes the first remaining method.
func (s *InMemory) RemoveMethod(ctx context.Context, userID, methodID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok {
		return ErrMethodNotFound
	}
	idx := -1
	for i, m := range st.methods {
		if m.ID == methodID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrMethodNotFound
	}
	removed := st.methods[idx]
	if removed.IsDefault && len(st.methods) == 1 {
		return ErrSoleDefaultMethod
	}
	st.methods = append(st.methods[:idx], st.methods[idx+1:]...)
	if removed.IsDefault && len(st.methods) > 0 {
		st.methods[0].IsDefault = true
	}
	return nil
}

// SetDefaultMethod marks the method as default and clears all others. Returns
// false without error when the id is unknown.
func (s *InMemory) SetDefaultMethod(ctx context.Context, userID, methodID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok {
		return false, nil
	}
	found := false
	for _, m := range st.methods {
		if m.ID == methodID {
			found = true
			break
		}
	}
	if !found {
		return false, nil
	}
	for i := range st.methods {
		st.methods[i].IsDefault = st.methods[i].ID == methodID
	}
	return true, nil
}

// CurrentSubscription returns the user's subscription, applying the deferred
// cancellation lazily: an active record past its period end with
// cancel_at_period_end set flips to canceled before it is returned.
func (s *InMemory) CurrentSubscription(ctx context.Context, userID string) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok || st.sub == nil {
		return nil, nil
	}
	s.reconcile(st.sub)
	cp := *st.sub
	return &cp, nil
}

func (s *InMemory) reconcile(sub *Subscription) {
	if sub.Status == SubStatusActive && sub.CancelAtPeriodEnd && !s.now().Before(sub.CurrentPeriodEnd) {
		sub.Status = SubStatusCanceled
	}
}

// Subscribe creates the user's subscription against the static plan catalog
// and emits one paid invoice for the plan price, due in seven days.
func (s *InMemory) Subscribe(ctx context.Context, userID, planID, methodID string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	if st.sub != nil {
		s.reconcile(st.sub)
		if st.sub.Status == SubStatusActive {
			return Subscription{}, ErrAlreadySubscribed
		}
	}
	if !hasMethod(st.methods, methodID) {
		return Subscription{}, ErrInvalidPaymentMethod
	}
	plan, ok := PlanByID(planID)
	if !ok {
		return Subscription{}, ErrInvalidPlan
	}

	now := s.now().UTC()
	sub := Subscription{
		ID:                 ids.New(),
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             SubStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		CancelAtPeriodEnd:  false,
		PaymentMethodID:    methodID,
	}
	st.sub = &sub

	st.invoices = append(st.invoices, Invoice{
		ID:             ids.New(),
		UserID:         userID,
		SubscriptionID: sub.ID,
		AmountCents:    plan.PriceCents,
		Status:         InvoiceStatusPaid,
		Date:           now,
		DueDate:        now.AddDate(0, 0, 7),
		Items: []InvoiceItem{{
			ID:          ids.New(),
			Description: fmt.Sprintf("%s Plan - %s", plan.Name, plan.Interval),
			AmountCents: plan.PriceCents,
			Quantity:    1,
		}},
	})
	return sub, nil
}

// CancelSubscription cancels the user's subscription, either deferred to the
// period end or immediately. Returns false when no subscription exists.
func (s *InMemory) CancelSubscription(ctx context.Context, userID string, atPeriodEnd bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok || st.sub == nil {
		return false, nil
	}
	if atPeriodEnd {
		st.sub.CancelAtPeriodEnd = true
	} else {
		st.sub.Status = SubStatusCanceled
	}
	return true, nil
}

// CreateCheckout prices the cart and stores it as the user's single active
// session, replacing any previous one.
func (s *InMemory) CreateCheckout(ctx context.Context, userID string, items []CheckoutItem) (CheckoutSession, error) {
	subtotal, tax, err := PriceCart(items)
	if err != nil {
		return CheckoutSession{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID)

	session := CheckoutSession{
		ID:            ids.New(),
		UserID:        userID,
		Items:         append([]CheckoutItem(nil), items...),
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		Status:        SessionStatusPending,
		CreatedAt:     s.now().UTC(),
	}
	st.checkout = &session

	cp := session
	cp.Items = append([]CheckoutItem(nil), session.Items...)
	return cp, nil
}

// CompleteCheckout finalizes the pending session: it is marked completed and
// one order plus one paid invoice (one item per cart line) are appended.
func (s *InMemory) CompleteCheckout(ctx context.Context, userID, methodID string) (CheckoutSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.users[userID]
	if !ok || st.checkout == nil || st.checkout.Status != SessionStatusPending {
		return CheckoutSession{}, ErrNoActiveSession
	}
	if !hasMethod(st.methods, methodID) {
		return CheckoutSession{}, ErrInvalidPaymentMethod
	}

	now := s.now().UTC()
	session := st.checkout
	session.PaymentMethodID = methodID
	session.Status = SessionStatusCompleted

	st.orders = append(st.orders, Order{
		ID:                ids.New(),
		UserID:            userID,
		CheckoutSessionID: session.ID,
		Items:             append([]CheckoutItem(nil), session.Items...),
		TotalCents:        session.TotalCents,
		Status:            "completed",
		CreatedAt:         now,
	})

	items := make([]InvoiceItem, 0, len(session.Items))
	for _, item := range session.Items {
		items = append(items, InvoiceItem{
			ID:          ids.New(),
			Description: item.Name,
			AmountCents: item.PriceCents,
			Quantity:    item.Quantity,
		})
	}
	st.invoices = append(st.invoices, Invoice{
		ID:             ids.New(),
		UserID:         userID,
		SubscriptionID: SubscriptionIDOneTime,
		AmountCents:    session.TotalCents,
		Status:         InvoiceStatusPaid,
		Date:           now,
		DueDate:        now,
		Items:          items,
	})

	cp := *session
	cp.Items = append([]CheckoutItem(nil), session.Items...)
	return cp, nil
}

// Invoices returns the user's invoices in creation order.
func (s *InMemory) Invoices(ctx context.Context, userID string) ([]Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]Invoice, len(st.invoices))
	copy(out, st.invoices)
	return out, nil
}

// Orders returns the user's orders in creation order.
func (s *InMemory) Orders(ctx context.Context, userID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]Order, len(st.orders))
	copy(out, st.orders)
	return out, nil
}

func hasMethod(methods []PaymentMethod, id string) bool {
	for _, m := range methods {
		if m.ID == id {
			return true
		}
	}
	return false
}

