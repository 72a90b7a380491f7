package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// Gateway integration details are deliberately thin: the resort talks to its
// card and crypto processors over their HTTP APIs and only the call surface
// lives here. Tests swap the package-level gateways for stubs.

type CardCharge struct {
	ID        string `json:"id"`
	Status    string `json:"status"` // succeeded, failed
	CardLast4 string `json:"cardLast4"`
	CardBrand string `json:"cardBrand"`
}

type CardGateway interface {
	Charge(amountCents int64, currency, source, description string, metadata map[string]string) (*CardCharge, error)
}

type CryptoCharge struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	Amount    string `json:"amount"`
	Symbol    string `json:"symbol"`
	Network   string `json:"network"`
	HostedURL string `json:"hostedUrl"`
	ExpiresAt string `json:"expiresAt"`
}

type CryptoGateway interface {
	CreateCharge(amountUSD float64, description string, metadata map[string]string) (*CryptoCharge, error)
}

var (
	Card   CardGateway   = &HTTPCardGateway{}
	Crypto CryptoGateway = &HTTPCryptoGateway{}

	ErrGatewayDeclined = errors.New("payment declined by gateway")
)

var gatewayClient = &http.Client{Timeout: 30 * time.Second}

// HTTPCardGateway posts a form-encoded charge to the card processor, the same
// shape the processor's own SDKs emit.
type HTTPCardGateway struct{}

func (g *HTTPCardGateway) Charge(amountCents int64, currency, source, description string, metadata map[string]string) (*CardCharge, error) {
	endpoint := os.Getenv("CARD_GATEWAY_URL")
	secret := os.Getenv("CARD_GATEWAY_SECRET")
	if endpoint == "" || secret == "" {
		return nil, errors.New("card gateway not configured")
	}

	form := url.Values{}
	form.Add("amount", fmt.Sprintf("%d", amountCents))
	form.Add("currency", currency)
	form.Add("source", source)
	form.Add("description", description)
	for k, v := range metadata {
		form.Add("metadata["+k+"]", v)
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(endpoint, "/")+"/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+secret)

	resp, err := gatewayClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var charge CardCharge
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 || charge.Status != "succeeded" {
		return &charge, ErrGatewayDeclined
	}

	return &charge, nil
}

// HTTPCryptoGateway creates a fixed-price charge with the crypto processor.
type HTTPCryptoGateway struct{}

func (g *HTTPCryptoGateway) CreateCharge(amountUSD float64, description string, metadata map[string]string) (*CryptoCharge, error) {
	endpoint := os.Getenv("CRYPTO_GATEWAY_URL")
	apiKey := os.Getenv("CRYPTO_GATEWAY_API_KEY")
	if endpoint == "" || apiKey == "" {
		return nil, errors.New("crypto gateway not configured")
	}

	body := map[string]interface{}{
		"name":         description,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   fmt.Sprintf("%.2f", amountUSD),
			"currency": "USD",
		},
		"metadata": metadata,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(endpoint, "/")+"/charges", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-CC-Api-Key", apiKey)

	resp, err := gatewayClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("crypto gateway returned status %d", resp.StatusCode)
	}

	var charge CryptoCharge
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return nil, err
	}

	return &charge, nil
}

// VerifyWebhookSignature checks the gateway's HMAC-SHA256 hex signature over
// the raw request body.
func VerifyWebhookSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
