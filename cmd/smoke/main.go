package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"time"

	"loquia.org/internal/billing"
)

// Exercises a running loquia-api end to end: signup, payment method,
// subscription, checkout. Exits non-zero on the first mismatch.
func main() {
	baseURL := os.Getenv("LOQUIA_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	email := fmt.Sprintf("smoke-%d@loquia.org", rand.New(rand.NewSource(time.Now().UnixNano())).Int63())

	var session struct {
		Token string `json:"token"`
	}
	status, err := doJSON(ctx, client, http.MethodPost, baseURL+"/v1/auth/signup", "", map[string]any{
		"email":    email,
		"name":     "Smoke Test",
		"password": "smoke-password-1",
	}, &session)
	if err != nil || status != http.StatusCreated {
		log.Fatalf("signup: status=%d err=%v", status, err)
	}
	token := session.Token

	var method billing.PaymentMethod
	status, err = doJSON(ctx, client, http.MethodPost, baseURL+"/v1/payment-methods", token, map[string]any{
		"type": "credit_card",
		"details": map[string]any{
			"card": map[string]any{
				"brand":           "visa",
				"last4":           "4242",
				"expiry_month":    "12",
				"expiry_year":     "2030",
				"cardholder_name": "Smoke Test",
			},
		},
	}, &method)
	if err != nil || status != http.StatusCreated {
		log.Fatalf("add payment method: status=%d err=%v", status, err)
	}
	if !method.IsDefault {
		log.Fatalf("first payment method not default: %+v", method)
	}

	var sub billing.Subscription
	status, err = doJSON(ctx, client, http.MethodPost, baseURL+"/v1/subscription", token, map[string]any{
		"plan_id":           "basic",
		"payment_method_id": method.ID,
	}, &sub)
	if err != nil || status != http.StatusCreated {
		log.Fatalf("subscribe: status=%d err=%v", status, err)
	}
	if sub.Status != billing.SubStatusActive {
		log.Fatalf("subscription not active: %s", sub.Status)
	}

	var cart billing.CheckoutSession
	status, err = doJSON(ctx, client, http.MethodPost, baseURL+"/v1/checkout", token, map[string]any{
		"items": []map[string]any{
			{"id": "sku-1", "name": "Widget", "price_cents": 749, "quantity": 2},
		},
	}, &cart)
	if err != nil || status != http.StatusCreated {
		log.Fatalf("create checkout: status=%d err=%v", status, err)
	}
	if cart.SubtotalCents+cart.TaxCents != cart.TotalCents {
		log.Fatalf("checkout totals do not add up: %d + %d != %d", cart.SubtotalCents, cart.TaxCents, cart.TotalCents)
	}
	if cart.SubtotalCents != 1498 || cart.TotalCents != 1648 {
		log.Fatalf("unexpected checkout pricing: subtotal=%d total=%d", cart.SubtotalCents, cart.TotalCents)
	}

	var completed billing.CheckoutSession
	status, err = doJSON(ctx, client, http.MethodPost, baseURL+"/v1/checkout/complete", token, map[string]any{
		"payment_method_id": method.ID,
	}, &completed)
	if err != nil || status != http.StatusOK {
		log.Fatalf("complete checkout: status=%d err=%v", status, err)
	}
	if completed.Status != billing.SessionStatusCompleted {
		log.Fatalf("checkout not completed: %s", completed.Status)
	}

	var orders struct {
		Items []billing.Order `json:"items"`
	}
	status, err = doJSON(ctx, client, http.MethodGet, baseURL+"/v1/orders", token, nil, &orders)
	if err != nil || status != http.StatusOK {
		log.Fatalf("list orders: status=%d err=%v", status, err)
	}
	if len(orders.Items) != 1 || orders.Items[0].TotalCents != cart.TotalCents {
		log.Fatalf("unexpected orders: %+v", orders.Items)
	}

	var invoices struct {
		Items []billing.Invoice `json:"items"`
	}
	status, err = doJSON(ctx, client, http.MethodGet, baseURL+"/v1/invoices", token, nil, &invoices)
	if err != nil || status != http.StatusOK {
		log.Fatalf("list invoices: status=%d err=%v", status, err)
	}
	var subTotal, oneTimeTotal int64
	for _, inv := range invoices.Items {
		if inv.SubscriptionID == billing.SubscriptionIDOneTime {
			oneTimeTotal += inv.AmountCents
		} else {
			subTotal += inv.AmountCents
		}
	}
	if subTotal != 999 {
		log.Fatalf("unexpected subscription invoice total: %d", subTotal)
	}
	if oneTimeTotal != cart.TotalCents {
		log.Fatalf("one-time invoice total %d != order total %d", oneTimeTotal, cart.TotalCents)
	}

	fmt.Printf("✅ loquia-api smoke test passed: user=%s order=%s\n", email, orders.Items[0].ID)
}

func doJSON(ctx context.Context, client *http.Client, method, url, token string, in, out any) (int, error) {
	var body *bytes.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(buf)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}
