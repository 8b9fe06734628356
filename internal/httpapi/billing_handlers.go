package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"loquia.org/internal/billing"
	"loquia.org/internal/stream"
)

func (a *API) handlePlans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": billing.Plans()})
}

func (a *API) handleMethodsCollection(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		methods, err := a.billing.Methods(r.Context(), sess.UserID)
		if err != nil {
			handleBillingError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": methods})
	case http.MethodPost:
		var req billing.NewPaymentMethod
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		method, err := a.billing.AddMethod(r.Context(), sess.UserID, req)
		if err != nil {
			handleBillingError(w, r, err)
			return
		}
		a.publish(stream.Event{Type: stream.EventMethodAdded, UserID: sess.UserID, Payload: method})
		w.Header().Set("Location", "/v1/payment-methods/"+method.ID)
		writeJSON(w, http.StatusCreated, method)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleMethodResource(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/payment-methods/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if strings.HasSuffix(path, "/default") {
		id := strings.TrimSuffix(strings.TrimSuffix(path, "/default"), "/")
		if id == "" {
			writeError(w, r, http.StatusNotFound, "payment method not found")
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		changed, err := a.billing.SetDefaultMethod(r.Context(), sess.UserID, id)
		if err != nil {
			handleBillingError(w, r, err)
			return
		}
		if !changed {
			writeError(w, r, http.StatusNotFound, "payment method not found")
			return
		}
		a.publish(stream.Event{Type: stream.EventMethodDefaultChanged, UserID: sess.UserID, Payload: map[string]string{"id": id}})
		writeJSON(w, http.StatusOK, map[string]any{"status": "default_updated"})
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	if err := a.billing.RemoveMethod(r.Context(), sess.UserID, path); err != nil {
		handleBillingError(w, r, err)
		return
	}
	a.publish(stream.Event{Type: stream.EventMethodRemoved, UserID: sess.UserID, Payload: map[string]string{"id": path}})
	writeJSON(w, http.StatusOK, map[string]any{"status": "removed"})
}

type subscribeRequest struct {
	PlanID          string `json:"plan_id"`
	PaymentMethodID string `json:"payment_method_id"`
}

func (a *API) handleSubscription(w http.ResponseWriter, r *http.Request) {
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		sub, err := a.billing.CurrentSubscription(r.Context(), sess.UserID)
		if err != nil {
			handleBillingError(w, r, err)
			return
		}
		if sub == nil {
			writeJSON(w, http.StatusOK, map[string]any{"subscription": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subscription": sub})
	case http.MethodPost:
		var req subscribeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		sub, err := a.billing.Subscribe(r.Context(), sess.UserID, req.PlanID, req.PaymentMethodID)
		if err != nil {
			handleBillingError(w, r, err)
			return
		}
		a.audit(r.Context(), "billing.subscription.create", map[string]any{
			"plan_id": sub.PlanID,
			"sub_id":  sub.ID,
		})
		a.publish(stream.Event{Type: stream.EventSubscriptionCreated, UserID: sess.UserID, Payload: sub})
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodDelete:
		atPeriodEnd := r.URL.Query().Get("at_period_end") != "false"
		canceled, err := a.billing.CancelSubscription(r.Context(), sess.UserID, atPeriodEnd)
		if err != nil {
			handleBillingError(w, r, err)
			return
		}
		if !canceled {
			writeError(w, r, http.StatusNotFound, "no subscription")
			return
		}
		a.audit(r.Context(), "billing.subscription.cancel", map[string]any{
			"at_period_end": atPeriodEnd,
		})
		a.publish(stream.Event{Type: stream.EventSubscriptionCanceled, UserID: sess.UserID})
		writeJSON(w, http.StatusOK, map[string]any{"status": "canceled", "at_period_end": atPeriodEnd})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

type checkoutRequest struct {
	Items []billing.CheckoutItem `json:"items"`
}

type completeCheckoutRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.billing.CreateCheckout(r.Context(), sess.UserID, req.Items)
	if err != nil {
		handleBillingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (a *API) handleCheckoutComplete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	var req completeCheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.billing.CompleteCheckout(r.Context(), sess.UserID, req.PaymentMethodID)
	if err != nil {
		handleBillingError(w, r, err)
		return
	}
	a.audit(r.Context(), "billing.checkout.complete", map[string]any{
		"session_id":  session.ID,
		"total_cents": session.TotalCents,
	})
	a.publish(stream.Event{Type: stream.EventCheckoutCompleted, UserID: sess.UserID, Payload: session})
	writeJSON(w, http.StatusOK, session)
}

func (a *API) handleInvoices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	invoices, err := a.billing.Invoices(r.Context(), sess.UserID)
	if err != nil {
		handleBillingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": invoices})
}

func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	sess, ok := a.sessionOrFail(w, r)
	if !ok {
		return
	}
	orders, err := a.billing.Orders(r.Context(), sess.UserID)
	if err != nil {
		handleBillingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": orders})
}

func (a *API) publish(evt stream.Event) {
	if a.stream != nil {
		a.stream.Publish(evt)
	}
}

func handleBillingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidInput),
		errors.Is(err, billing.ErrInvalidPaymentMethod),
		errors.Is(err, billing.ErrInvalidPlan),
		errors.Is(err, billing.ErrEmptyCart):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrMethodNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, billing.ErrSoleDefaultMethod),
		errors.Is(err, billing.ErrAlreadySubscribed),
		errors.Is(err, billing.ErrNoActiveSession):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
