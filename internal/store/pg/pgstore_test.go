package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"loquia.org/internal/account"
	"loquia.org/internal/billing"
	"loquia.org/internal/rbac"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("insert into users").
		WithArgs("u1", "ada@example.com", "Ada", "user", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.CreateUser(context.Background(), &account.User{
		ID:           "u1",
		Email:        "ada@example.com",
		Name:         "Ada",
		Role:         rbac.RoleUser,
		PasswordHash: "hash",
	})
	if !errors.Is(err, account.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserReturnsTimestamps(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("insert into users").
		WithArgs("u1", "ada@example.com", "Ada", "admin", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &account.User{ID: "u1", Email: "ada@example.com", Name: "Ada", Role: rbac.RoleAdmin, PasswordHash: "hash"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if !u.CreatedAt.Equal(now) {
		t.Fatalf("created_at not populated: %v", u.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindUserByEmailNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("select id, email, name, role, password_hash").
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.FindUserByEmail(context.Background(), "missing@example.com")
	if !errors.Is(err, account.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserEmailInUse(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("update users").
		WithArgs("u1", "taken@example.com", "Ada", "user", "hash").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.UpdateUser(context.Background(), &account.User{
		ID: "u1", Email: "taken@example.com", Name: "Ada", Role: rbac.RoleUser, PasswordHash: "hash",
	})
	if !errors.Is(err, account.ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAddMethodFirstForcedDefault(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select count").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("update payment_methods set is_default = false").WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("insert into payment_methods").
		WithArgs(sqlmock.AnyArg(), "u1", "credit_card", sqlmock.AnyArg(), true, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	m, err := s.AddMethod(context.Background(), "u1", billing.NewPaymentMethod{
		Type: billing.MethodCreditCard,
		Details: billing.MethodDetails{Card: &billing.CardDetails{
			Brand: "visa", Last4: "4242424242424242",
		}},
	})
	if err != nil {
		t.Fatalf("AddMethod: %v", err)
	}
	if !m.IsDefault {
		t.Fatalf("first method must be forced default")
	}
	if m.Details.Card.Last4 != "4242" {
		t.Fatalf("card number not trimmed: %s", m.Details.Card.Last4)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRemoveMethodSoleDefault(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select m.is_default").WithArgs("u1", "pm1").
		WillReturnRows(sqlmock.NewRows([]string{"is_default", "count"}).AddRow(true, 1))
	mock.ExpectRollback()

	err := s.RemoveMethod(context.Background(), "u1", "pm1")
	if !errors.Is(err, billing.ErrSoleDefaultMethod) {
		t.Fatalf("expected ErrSoleDefaultMethod, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRemoveMethodPromotesRemaining(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select m.is_default").WithArgs("u1", "pm1").
		WillReturnRows(sqlmock.NewRows([]string{"is_default", "count"}).AddRow(true, 2))
	mock.ExpectExec("delete from payment_methods").WithArgs("u1", "pm1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("update payment_methods set is_default = true").WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := s.RemoveMethod(context.Background(), "u1", "pm1"); err != nil {
		t.Fatalf("RemoveMethod: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetDefaultMethodUnknown(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select 1 from payment_methods").WithArgs("u1", "nope").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	ok, err := s.SetDefaultMethod(context.Background(), "u1", "nope")
	if err != nil {
		t.Fatalf("SetDefaultMethod: %v", err)
	}
	if ok {
		t.Fatalf("unknown method must report false")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubscribeAlreadyActive(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery("select id, user_id, plan_id, status").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "plan_id", "status",
			"current_period_start", "current_period_end", "cancel_at_period_end", "payment_method_id",
		}).AddRow("sub1", "u1", "pro", "active", now, now.AddDate(0, 1, 0), false, "pm1"))
	mock.ExpectRollback()

	_, err := s.Subscribe(context.Background(), "u1", "basic", "pm1")
	if !errors.Is(err, billing.ErrAlreadySubscribed) {
		t.Fatalf("expected ErrAlreadySubscribed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSubscribeHappyPath(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, user_id, plan_id, status").WithArgs("u1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("select 1 from payment_methods").WithArgs("u1", "pm1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectExec("insert into subscriptions").
		WithArgs(sqlmock.AnyArg(), "u1", "pro", "active", sqlmock.AnyArg(), sqlmock.AnyArg(), "pm1").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into invoices").
		WithArgs(sqlmock.AnyArg(), "u1", sqlmock.AnyArg(), int64(1999), "paid", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sub, err := s.Subscribe(context.Background(), "u1", "pro", "pm1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.Status != billing.SubStatusActive || sub.PlanID != "pro" {
		t.Fatalf("subscription = %+v", sub)
	}
	if !sub.CurrentPeriodEnd.Equal(sub.CurrentPeriodStart.AddDate(0, 1, 0)) {
		t.Fatalf("period end = %v", sub.CurrentPeriodEnd)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCancelSubscriptionNone(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("update subscriptions set status").WithArgs("u1", "canceled").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.CancelSubscription(context.Background(), "u1", false)
	if err != nil {
		t.Fatalf("CancelSubscription: %v", err)
	}
	if ok {
		t.Fatalf("expected false when no subscription exists")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCurrentSubscriptionReconcilesLapsedCancellation(t *testing.T) {
	s, mock := newMockStore(t)

	past := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery("select id, user_id, plan_id, status").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "plan_id", "status",
			"current_period_start", "current_period_end", "cancel_at_period_end", "payment_method_id",
		}).AddRow("sub1", "u1", "basic", "active", past.AddDate(0, -1, 0), past, true, "pm1"))
	mock.ExpectExec("update subscriptions set status").WithArgs("sub1", "canceled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	sub, err := s.CurrentSubscription(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CurrentSubscription: %v", err)
	}
	if sub.Status != billing.SubStatusCanceled {
		t.Fatalf("status = %s", sub.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvoicesDecodeItems(t *testing.T) {
	s, mock := newMockStore(t)

	items, _ := json.Marshal([]billing.InvoiceItem{{ID: "ii1", Description: "Pro Plan - monthly", AmountCents: 1999, Quantity: 1}})
	now := time.Now().UTC()
	mock.ExpectQuery("select id, user_id, subscription_id").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "subscription_id", "amount_cents", "status", "date", "due_date", "items",
		}).AddRow("inv1", "u1", "sub1", int64(1999), "paid", now, now.AddDate(0, 0, 7), items))

	invoices, err := s.Invoices(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Invoices: %v", err)
	}
	if len(invoices) != 1 || len(invoices[0].Items) != 1 {
		t.Fatalf("invoices = %+v", invoices)
	}
	if invoices[0].Items[0].AmountCents != 1999 {
		t.Fatalf("item = %+v", invoices[0].Items[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInvoicesCorruptItems(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("select id, user_id, subscription_id").WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "subscription_id", "amount_cents", "status", "date", "due_date", "items",
		}).AddRow("inv1", "u1", "sub1", int64(1999), "paid", now, now, []byte("{not json")))

	_, err := s.Invoices(context.Background(), "u1")
	if !errors.Is(err, billing.ErrCorruptState) {
		t.Fatalf("expected ErrCorruptState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCompleteCheckoutNoSession(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("select id, user_id, items").WithArgs("u1", "pending").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.CompleteCheckout(context.Background(), "u1", "pm1")
	if !errors.Is(err, billing.ErrNoActiveSession) {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
