package models

import "gorm.io/gorm"

// PaymentToken stores per-reservation payment artifacts. Gateway tokens are
// encrypted before persisting; the last4/brand pair stays plain for display.
type PaymentToken struct {
	gorm.Model
	ReservationID string `json:"reservationId" gorm:"uniqueIndex;not null"`

	// Card payments
	GatewayToken string `json:"-"` // encrypted charge/token reference
	CardLast4    string `json:"cardLast4"`
	CardBrand    string `json:"cardBrand"`

	// Crypto payments
	CryptoAddress string `json:"cryptoAddress"`
	CryptoNetwork string `json:"cryptoNetwork"` // btc_mainnet, eth_mainnet, ...
	CryptoAmount  string `json:"cryptoAmount"`  // string to keep precision
	CryptoSymbol  string `json:"cryptoSymbol"`  // BTC, ETH, USDT
	TxHash        string `json:"txHash"`        // guest-submitted transaction hash
}
