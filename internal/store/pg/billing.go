package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"loquia.org/internal/billing"
	"loquia.org/internal/ids"
)

var _ billing.Service = (*Store)(nil)

func (s *Store) Methods(ctx context.Context, userID string) ([]billing.PaymentMethod, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, type, details, is_default, created_at
		from payment_methods
		where user_id = $1
		order by created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var methods []billing.PaymentMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		methods = append(methods, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return methods, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMethod(row rowScanner) (billing.PaymentMethod, error) {
	var (
		m       billing.PaymentMethod
		typ     string
		details []byte
	)
	if err := row.Scan(&m.ID, &typ, &details, &m.IsDefault, &m.CreatedAt); err != nil {
		return billing.PaymentMethod{}, err
	}
	m.Type = billing.MethodType(typ)
	if err := json.Unmarshal(details, &m.Details); err != nil {
		return billing.PaymentMethod{}, fmt.Errorf("%w: payment method %s details: %v", billing.ErrCorruptState, m.ID, err)
	}
	return m, nil
}

func (s *Store) AddMethod(ctx context.Context, userID string, m billing.NewPaymentMethod) (billing.PaymentMethod, error) {
	if s.db == nil {
		return billing.PaymentMethod{}, errors.New("database connection unavailable")
	}
	if err := billing.ValidateNewMethod(m); err != nil {
		return billing.PaymentMethod{}, err
	}
	details := billing.SanitizeDetails(m.Type, m.Details)
	raw, err := json.Marshal(details)
	if err != nil {
		return billing.PaymentMethod{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return billing.PaymentMethod{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var existing int
	if err := tx.QueryRowContext(ctx, `select count(*) from payment_methods where user_id = $1`, userID).Scan(&existing); err != nil {
		return billing.PaymentMethod{}, err
	}
	isDefault := m.IsDefault || existing == 0
	if isDefault {
		if _, err := tx.ExecContext(ctx, `update payment_methods set is_default = false where user_id = $1`, userID); err != nil {
			return billing.PaymentMethod{}, err
		}
	}

	method := billing.PaymentMethod{
		ID:        ids.New(),
		Type:      m.Type,
		Details:   details,
		IsDefault: isDefault,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := tx.ExecContext(ctx, `
		insert into payment_methods (id, user_id, type, details, is_default, created_at)
		values ($1, $2, $3, $4, $5, $6)
	`, method.ID, userID, string(method.Type), raw, method.IsDefault, method.CreatedAt); err != nil {
		return billing.PaymentMethod{}, err
	}
	if err := tx.Commit(); err != nil {
		return billing.PaymentMethod{}, err
	}
	return method, nil
}

func (s *Store) RemoveMethod(ctx context.Context, userID, methodID string) error {
	if s.db == nil {
		return errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		isDefault bool
		total     int
	)
	err = tx.QueryRowContext(ctx, `
		select m.is_default, (select count(*) from payment_methods where user_id = $1)
		from payment_methods m
		where m.user_id = $1 and m.id = $2
	`, userID, methodID).Scan(&isDefault, &total)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.ErrMethodNotFound
	}
	if err != nil {
		return err
	}
	if isDefault && total == 1 {
		return billing.ErrSoleDefaultMethod
	}

	if _, err := tx.ExecContext(ctx, `delete from payment_methods where user_id = $1 and id = $2`, userID, methodID); err != nil {
		return err
	}
	if isDefault {
		// Promote the oldest remaining method.
		if _, err := tx.ExecContext(ctx, `
			update payment_methods set is_default = true
			where id = (
				select id from payment_methods
				where user_id = $1
				order by created_at, id
				limit 1
			)
		`, userID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) SetDefaultMethod(ctx context.Context, userID, methodID string) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	var one int
	err = tx.QueryRowContext(ctx, `select 1 from payment_methods where user_id = $1 and id = $2`, userID, methodID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, `
		update payment_methods set is_default = (id = $2) where user_id = $1
	`, userID, methodID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

const subscriptionColumns = `id, user_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end, payment_method_id`

func (s *Store) CurrentSubscription(ctx context.Context, userID string) (*billing.Subscription, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	sub, err := s.subscriptionOf(ctx, s.db, userID)
	if err != nil || sub == nil {
		return sub, err
	}
	// Deferred cancellation is applied lazily at read time.
	if sub.Status == billing.SubStatusActive && sub.CancelAtPeriodEnd && !time.Now().UTC().Before(sub.CurrentPeriodEnd) {
		if _, err := s.db.ExecContext(ctx, `
			update subscriptions set status = $2 where id = $1
		`, sub.ID, string(billing.SubStatusCanceled)); err != nil {
			return nil, err
		}
		sub.Status = billing.SubStatusCanceled
	}
	return sub, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) subscriptionOf(ctx context.Context, q querier, userID string) (*billing.Subscription, error) {
	var (
		sub    billing.Subscription
		status string
	)
	err := q.QueryRowContext(ctx, `
		select `+subscriptionColumns+` from subscriptions where user_id = $1
	`, userID).Scan(&sub.ID, &sub.UserID, &sub.PlanID, &status,
		&sub.CurrentPeriodStart, &sub.CurrentPeriodEnd, &sub.CancelAtPeriodEnd, &sub.PaymentMethodID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub.Status = billing.SubscriptionStatus(status)
	return &sub, nil
}

func (s *Store) Subscribe(ctx context.Context, userID, planID, methodID string) (billing.Subscription, error) {
	if s.db == nil {
		return billing.Subscription{}, errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return billing.Subscription{}, err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	existing, err := s.subscriptionOf(ctx, tx, userID)
	if err != nil {
		return billing.Subscription{}, err
	}
	if existing != nil && existing.Status == billing.SubStatusActive {
		if !existing.CancelAtPeriodEnd || now.Before(existing.CurrentPeriodEnd) {
			return billing.Subscription{}, billing.ErrAlreadySubscribed
		}
	}

	var one int
	err = tx.QueryRowContext(ctx, `select 1 from payment_methods where user_id = $1 and id = $2`, userID, methodID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Subscription{}, billing.ErrInvalidPaymentMethod
	}
	if err != nil {
		return billing.Subscription{}, err
	}

	plan, ok := billing.PlanByID(planID)
	if !ok {
		return billing.Subscription{}, billing.ErrInvalidPlan
	}

	sub := billing.Subscription{
		ID:                 ids.New(),
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             billing.SubStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(0, 1, 0),
		PaymentMethodID:    methodID,
	}
	// Single slot per user: a lapsed record is replaced in place.
	if _, err := tx.ExecContext(ctx, `
		insert into subscriptions (id, user_id, plan_id, status, current_period_start, current_period_end, cancel_at_period_end, payment_method_id)
		values ($1, $2, $3, $4, $5, $6, false, $7)
		on conflict (user_id) do update set
			id = excluded.id,
			plan_id = excluded.plan_id,
			status = excluded.status,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			cancel_at_period_end = excluded.cancel_at_period_end,
			payment_method_id = excluded.payment_method_id
	`, sub.ID, sub.UserID, sub.PlanID, string(sub.Status),
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.PaymentMethodID); err != nil {
		return billing.Subscription{}, err
	}

	items := []billing.InvoiceItem{{
		ID:          ids.New(),
		Description: fmt.Sprintf("%s Plan - %s", plan.Name, plan.Interval),
		AmountCents: plan.PriceCents,
		Quantity:    1,
	}}
	if err := insertInvoice(ctx, tx, billing.Invoice{
		ID:             ids.New(),
		UserID:         userID,
		SubscriptionID: sub.ID,
		AmountCents:    plan.PriceCents,
		Status:         billing.InvoiceStatusPaid,
		Date:           now,
		DueDate:        now.AddDate(0, 0, 7),
		Items:          items,
	}); err != nil {
		return billing.Subscription{}, err
	}

	if err := tx.Commit(); err != nil {
		return billing.Subscription{}, err
	}
	return sub, nil
}

func (s *Store) CancelSubscription(ctx context.Context, userID string, atPeriodEnd bool) (bool, error) {
	if s.db == nil {
		return false, errors.New("database connection unavailable")
	}
	var res sql.Result
	var err error
	if atPeriodEnd {
		res, err = s.db.ExecContext(ctx, `
			update subscriptions set cancel_at_period_end = true where user_id = $1
		`, userID)
	} else {
		res, err = s.db.ExecContext(ctx, `
			update subscriptions set status = $2 where user_id = $1
		`, userID, string(billing.SubStatusCanceled))
	}
	if err != nil {
		return false, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return aff > 0, nil
}

func (s *Store) CreateCheckout(ctx context.Context, userID string, items []billing.CheckoutItem) (billing.CheckoutSession, error) {
	if s.db == nil {
		return billing.CheckoutSession{}, errors.New("database connection unavailable")
	}
	subtotal, tax, err := billing.PriceCart(items)
	if err != nil {
		return billing.CheckoutSession{}, err
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return billing.CheckoutSession{}, err
	}

	session := billing.CheckoutSession{
		ID:            ids.New(),
		UserID:        userID,
		Items:         append([]billing.CheckoutItem(nil), items...),
		SubtotalCents: subtotal,
		TaxCents:      tax,
		TotalCents:    subtotal + tax,
		Status:        billing.SessionStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	// One session per user; a new cart replaces the previous one.
	if _, err := s.db.ExecContext(ctx, `
		insert into checkout_sessions (id, user_id, items, subtotal_cents, tax_cents, total_cents, payment_method_id, status, created_at)
		values ($1, $2, $3, $4, $5, $6, '', $7, $8)
		on conflict (user_id) do update set
			id = excluded.id,
			items = excluded.items,
			subtotal_cents = excluded.subtotal_cents,
			tax_cents = excluded.tax_cents,
			total_cents = excluded.total_cents,
			payment_method_id = excluded.payment_method_id,
			status = excluded.status,
			created_at = excluded.created_at
	`, session.ID, session.UserID, raw, session.SubtotalCents, session.TaxCents,
		session.TotalCents, string(session.Status), session.CreatedAt); err != nil {
		return billing.CheckoutSession{}, err
	}
	return session, nil
}

func (s *Store) CompleteCheckout(ctx context.Context, userID, methodID string) (billing.CheckoutSession, error) {
	if s.db == nil {
		return billing.CheckoutSession{}, errors.New("database connection unavailable")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return billing.CheckoutSession{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		session billing.CheckoutSession
		status  string
		rawItem []byte
	)
	err = tx.QueryRowContext(ctx, `
		select id, user_id, items, subtotal_cents, tax_cents, total_cents, status, created_at
		from checkout_sessions
		where user_id = $1 and status = $2
	`, userID, string(billing.SessionStatusPending)).Scan(&session.ID, &session.UserID, &rawItem,
		&session.SubtotalCents, &session.TaxCents, &session.TotalCents, &status, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.CheckoutSession{}, billing.ErrNoActiveSession
	}
	if err != nil {
		return billing.CheckoutSession{}, err
	}
	session.Status = billing.SessionStatus(status)
	if err := json.Unmarshal(rawItem, &session.Items); err != nil {
		return billing.CheckoutSession{}, fmt.Errorf("%w: checkout session %s items: %v", billing.ErrCorruptState, session.ID, err)
	}

	var one int
	err = tx.QueryRowContext(ctx, `select 1 from payment_methods where user_id = $1 and id = $2`, userID, methodID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.CheckoutSession{}, billing.ErrInvalidPaymentMethod
	}
	if err != nil {
		return billing.CheckoutSession{}, err
	}

	now := time.Now().UTC()
	session.PaymentMethodID = methodID
	session.Status = billing.SessionStatusCompleted
	if _, err := tx.ExecContext(ctx, `
		update checkout_sessions set status = $2, payment_method_id = $3 where id = $1
	`, session.ID, string(session.Status), methodID); err != nil {
		return billing.CheckoutSession{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		insert into orders (id, user_id, checkout_session_id, items, total_cents, status, created_at)
		values ($1, $2, $3, $4, $5, $6, $7)
	`, ids.New(), userID, session.ID, rawItem, session.TotalCents, "completed", now); err != nil {
		return billing.CheckoutSession{}, err
	}

	invItems := make([]billing.InvoiceItem, 0, len(session.Items))
	for _, item := range session.Items {
		invItems = append(invItems, billing.InvoiceItem{
			ID:          ids.New(),
			Description: item.Name,
			AmountCents: item.PriceCents,
			Quantity:    item.Quantity,
		})
	}
	if err := insertInvoice(ctx, tx, billing.Invoice{
		ID:             ids.New(),
		UserID:         userID,
		SubscriptionID: billing.SubscriptionIDOneTime,
		AmountCents:    session.TotalCents,
		Status:         billing.InvoiceStatusPaid,
		Date:           now,
		DueDate:        now,
		Items:          invItems,
	}); err != nil {
		return billing.CheckoutSession{}, err
	}

	if err := tx.Commit(); err != nil {
		return billing.CheckoutSession{}, err
	}
	return session, nil
}

func insertInvoice(ctx context.Context, tx *sql.Tx, inv billing.Invoice) error {
	raw, err := json.Marshal(inv.Items)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		insert into invoices (id, user_id, subscription_id, amount_cents, status, date, due_date, items)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.UserID, inv.SubscriptionID, inv.AmountCents, string(inv.Status), inv.Date, inv.DueDate, raw)
	return err
}

func (s *Store) Invoices(ctx context.Context, userID string) ([]billing.Invoice, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, subscription_id, amount_cents, status, date, due_date, items
		from invoices
		where user_id = $1
		order by date, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []billing.Invoice
	for rows.Next() {
		var (
			inv    billing.Invoice
			status string
			raw    []byte
		)
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.SubscriptionID, &inv.AmountCents, &status, &inv.Date, &inv.DueDate, &raw); err != nil {
			return nil, err
		}
		inv.Status = billing.InvoiceStatus(status)
		if err := json.Unmarshal(raw, &inv.Items); err != nil {
			return nil, fmt.Errorf("%w: invoice %s items: %v", billing.ErrCorruptState, inv.ID, err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) Orders(ctx context.Context, userID string) ([]billing.Order, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, checkout_session_id, items, total_cents, status, created_at
		from orders
		where user_id = $1
		order by created_at, id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []billing.Order
	for rows.Next() {
		var (
			o   billing.Order
			raw []byte
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.CheckoutSessionID, &raw, &o.TotalCents, &o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &o.Items); err != nil {
			return nil, fmt.Errorf("%w: order %s items: %v", billing.ErrCorruptState, o.ID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
