package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	body := []byte(`{"type":"charge.succeeded"}`)

	if !VerifyWebhookSignature("whsec_test", body, signBody("whsec_test", body)) {
		t.Error("Expected valid signature to verify")
	}
	if VerifyWebhookSignature("whsec_test", body, signBody("wrong_secret", body)) {
		t.Error("Expected signature from wrong secret to fail")
	}
	if VerifyWebhookSignature("whsec_test", []byte(`tampered`), signBody("whsec_test", body)) {
		t.Error("Expected tampered body to fail")
	}
	if VerifyWebhookSignature("", body, signBody("", body)) {
		t.Error("Expected empty secret to fail closed")
	}
	if VerifyWebhookSignature("whsec_test", body, "") {
		t.Error("Expected empty signature to fail closed")
	}
}

func TestHTTPCardGatewayCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/charges" {
			t.Errorf("Expected POST /charges, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("Expected bearer auth, got %q", r.Header.Get("Authorization"))
		}
		r.ParseForm()
		if r.PostForm.Get("amount") != "23600" {
			t.Errorf("Expected amount 23600, got %s", r.PostForm.Get("amount"))
		}
		if r.PostForm.Get("metadata[reservationId]") != "KONCH-ABC12345" {
			t.Errorf("Expected reservation metadata, got %s", r.PostForm.Get("metadata[reservationId]"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"ch_1","status":"succeeded","cardLast4":"4242","cardBrand":"visa"}`))
	}))
	defer server.Close()

	t.Setenv("CARD_GATEWAY_URL", server.URL)
	t.Setenv("CARD_GATEWAY_SECRET", "sk_test")

	gateway := &HTTPCardGateway{}
	charge, err := gateway.Charge(23600, "usd", "tok_visa", "Konchamar Resort - Test Villa",
		map[string]string{"reservationId": "KONCH-ABC12345"})
	if err != nil {
		t.Fatalf("Charge failed: %v", err)
	}
	if charge.ID != "ch_1" || charge.CardLast4 != "4242" {
		t.Errorf("Unexpected charge payload: %+v", charge)
	}
}

func TestHTTPCardGatewayDecline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"id":"ch_2","status":"failed"}`))
	}))
	defer server.Close()

	t.Setenv("CARD_GATEWAY_URL", server.URL)
	t.Setenv("CARD_GATEWAY_SECRET", "sk_test")

	gateway := &HTTPCardGateway{}
	_, err := gateway.Charge(1000, "usd", "tok_declined", "test", nil)
	if !errors.Is(err, ErrGatewayDeclined) {
		t.Fatalf("Expected ErrGatewayDeclined, got %v", err)
	}
}

func TestHTTPCryptoGatewayCreateCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-CC-Api-Key") != "cc_test" {
			t.Errorf("Expected api key header, got %q", r.Header.Get("X-CC-Api-Key"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"charge_1","address":"bc1qtest","amount":"0.0031","symbol":"BTC","network":"bitcoin","hostedUrl":"https://pay.example/charge_1"}`))
	}))
	defer server.Close()

	t.Setenv("CRYPTO_GATEWAY_URL", server.URL)
	t.Setenv("CRYPTO_GATEWAY_API_KEY", "cc_test")

	gateway := &HTTPCryptoGateway{}
	charge, err := gateway.CreateCharge(236.00, "Konchamar Resort - Test Villa",
		map[string]string{"reservationId": "KONCH-ABC12345"})
	if err != nil {
		t.Fatalf("CreateCharge failed: %v", err)
	}
	if charge.Address != "bc1qtest" || charge.Symbol != "BTC" {
		t.Errorf("Unexpected charge payload: %+v", charge)
	}
}

func TestGatewaysFailWithoutConfig(t *testing.T) {
	t.Setenv("CARD_GATEWAY_URL", "")
	t.Setenv("CARD_GATEWAY_SECRET", "")
	t.Setenv("CRYPTO_GATEWAY_URL", "")
	t.Setenv("CRYPTO_GATEWAY_API_KEY", "")

	if _, err := (&HTTPCardGateway{}).Charge(100, "usd", "tok", "d", nil); err == nil {
		t.Error("Expected error when card gateway is unconfigured")
	}
	if _, err := (&HTTPCryptoGateway{}).CreateCharge(1, "d", nil); err == nil {
		t.Error("Expected error when crypto gateway is unconfigured")
	}
}
