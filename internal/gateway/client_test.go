package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/orders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_test" || pass != "secret_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		var body struct {
			Amount  int64  `json:"amount"`
			Receipt string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Amount != 50000 {
			t.Errorf("amount = %d, want 50000", body.Amount)
		}
		if body.Receipt == "" {
			t.Error("receipt is empty")
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{
			ID:          "order_123",
			Receipt:     body.Receipt,
			AmountCents: body.Amount,
			Currency:    "INR",
			Status:      OrderStatusCreated,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key_test", "secret_test")

	order, err := client.CreateOrder(context.Background(), 50000)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if order.ID != "order_123" {
		t.Errorf("order ID = %q, want %q", order.ID, "order_123")
	}
	if order.Status != OrderStatusCreated {
		t.Errorf("order status = %q, want %q", order.Status, OrderStatusCreated)
	}
}

func TestCreateOrderServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key_test", "secret_test")

	if _, err := client.CreateOrder(context.Background(), 10000); err == nil {
		t.Error("CreateOrder() expected error, got nil")
	}
}

func TestGetOrderStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders/order_123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Order{ID: "order_123", Status: OrderStatusPaid})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key_test", "secret_test")

	order, err := client.GetOrderStatus(context.Background(), "order_123")
	if err != nil {
		t.Fatalf("GetOrderStatus() error = %v", err)
	}
	if order.Status != OrderStatusPaid {
		t.Errorf("order status = %q, want %q", order.Status, OrderStatusPaid)
	}
}

func TestVerifySignature(t *testing.T) {
	client := NewClient("http://gateway", "key_test", "secret_test")

	sign := func(message string) string {
		mac := hmac.New(sha256.New, []byte("secret_test"))
		mac.Write([]byte(message))
		return hex.EncodeToString(mac.Sum(nil))
	}

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		signature string
		want      bool
	}{
		{
			name:      "valid signature",
			orderID:   "order_1",
			paymentID: "pay_1",
			signature: sign("order_1|pay_1"),
			want:      true,
		},
		{
			name:      "signature for different order",
			orderID:   "order_2",
			paymentID: "pay_1",
			signature: sign("order_1|pay_1"),
			want:      false,
		},
		{
			name:      "garbage signature",
			orderID:   "order_1",
			paymentID: "pay_1",
			signature: "deadbeef",
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.VerifySignature(tt.orderID, tt.paymentID, tt.signature)
			if got != tt.want {
				t.Errorf("VerifySignature() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := NewClient("http://gateway", "key_test", "secret_test")

	body := []byte(`{"event":"payment.captured","order_id":"order_1"}`)
	mac := hmac.New(sha256.New, []byte("secret_test"))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !client.VerifyWebhookSignature(body, signature) {
		t.Error("VerifyWebhookSignature() = false for valid signature")
	}
	if client.VerifyWebhookSignature([]byte(`{"tampered":true}`), signature) {
		t.Error("VerifyWebhookSignature() = true for tampered body")
	}
}
