package test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/plutov/paypal/v4"
	mock "github.com/stripe/stripe-mock/param"
	"github.com/vuonxanh/plantstore/api/web"
)

type mockPaypal struct {
	mu            sync.Mutex
	expectedTotal int
}

func (m *mockPaypal) expect(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedTotal = total
}

func (m *mockPaypal) handle() http.Handler {
	token := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := map[string]any{
			"access_token": "test-token",
			"token_type":   "Bearer",
			"expires_in":   3600,
		}
		web.Respond(context.Background(), w, tok, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var pu struct {
			Units []paypal.PurchaseUnitRequest `json:"purchase_units"`
		}
		if err := json.NewDecoder(r.Body).Decode(&pu); err != nil {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		if len(pu.Units) != 1 {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		m.mu.Lock()
		exp := m.expectedTotal
		m.mu.Unlock()

		if pu.Units[0].Amount.Value != strconv.Itoa(exp) {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		randID := fmt.Sprintf("paypal-%d", rand.Intn(100000))
		ord := paypal.Order{ID: randID}
		web.Respond(context.Background(), w, ord, 200)
	})

	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ord := paypal.Order{Status: "COMPLETED"}
		web.Respond(context.Background(), w, ord, 200)
	})

	r := mux.NewRouter()
	r.Handle("/v1/oauth2/token", token).Methods("POST")
	r.Handle("/v2/checkout/orders", checkout).Methods("POST")
	r.Handle("/v2/checkout/orders/{id}/capture", capture).Methods("POST")
	return r
}

type mockStripe struct {
	mu            sync.Mutex
	expectedTotal int
	coupons       map[string]int
}

func (m *mockStripe) expect(total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expectedTotal = total
}

func (m *mockStripe) handle() http.Handler {
	coupon := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)

		s := params["amount_off"].(string)
		amount, err := strconv.ParseInt(s, 10, 0)
		if err != nil {
			web.Respond(context.Background(), w, err, 400)
			return
		}

		randID := fmt.Sprintf("coupon-%d", rand.Intn(100000))
		m.mu.Lock()
		if m.coupons == nil {
			m.coupons = make(map[string]int)
		}
		m.coupons[randID] = int(amount)
		m.mu.Unlock()

		web.Respond(context.Background(), w, map[string]any{"id": randID}, 200)
	})

	checkout := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params, _ := mock.ParseParams(r)

		// Lines carry the gross amount; a coupon subtracts the discount.
		tot := 0
		if lines, ok := params["line_items"].(map[string]any); ok {
			for _, li := range lines {
				it := li.(map[string]any)

				qty, err := strconv.ParseInt(it["quantity"].(string), 10, 0)
				if err != nil {
					web.Respond(context.Background(), w, err, 400)
					return
				}

				pd := it["price_data"].(map[string]any)
				amount, err := strconv.ParseInt(pd["unit_amount"].(string), 10, 0)
				if err != nil {
					web.Respond(context.Background(), w, err, 400)
					return
				}

				tot += int(amount) * int(qty)
			}
		}

		if discounts, ok := params["discounts"].(map[string]any); ok {
			for _, d := range discounts {
				dd := d.(map[string]any)
				id := dd["coupon"].(string)

				m.mu.Lock()
				tot -= m.coupons[id]
				m.mu.Unlock()
			}
		}

		m.mu.Lock()
		exp := m.expectedTotal
		m.mu.Unlock()

		if tot != exp {
			web.Respond(context.Background(), w, nil, 400)
			return
		}

		randID := fmt.Sprintf("stripe-%d", rand.Intn(100000))
		ord := map[string]any{"ID": randID, "URL": randID}
		web.Respond(context.Background(), w, ord, 201)
	})

	r := mux.NewRouter()
	r.Handle("/v1/coupons", coupon).Methods("POST")
	r.Handle("/v1/checkout/sessions", checkout).Methods("POST")
	return r
}

type mockMailer struct {
	mu            sync.Mutex
	recovery      map[string]string
	confirmations []string
}

func (m *mockMailer) SendRecoveryCode(to string, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recovery[to] = code
	return nil
}

func (m *mockMailer) SendOrderConfirmation(to string, orderID string, total int, discountAmount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmations = append(m.confirmations, orderID)
	return nil
}

// WaitRecoveryCode polls for the code delivered by the background runner.
func (m *mockMailer) WaitRecoveryCode(to string) (string, bool) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		code, ok := m.recovery[to]
		m.mu.Unlock()
		if ok {
			return code, true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return "", false
}

func (m *mockMailer) Confirmations() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.confirmations))
	copy(out, m.confirmations)
	return out
}
