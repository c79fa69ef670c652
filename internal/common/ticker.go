// Package common provides shared utilities across the application.
package common

import (
	"strings"
)

// Ticker represents a parsed, optionally exchange-qualified ticker.
// Format: EXCHANGE:CODE (e.g., "NASDAQ:AAPL", "NYSE:BRK.B") or CODE
type Ticker struct {
	// Exchange is the exchange code (e.g., "NYSE", "NASDAQ"), empty when not given
	Exchange string
	// Code is the security code (e.g., "AAPL", "BRK.B")
	Code string
	// Raw is the original ticker string
	Raw string
}

// KnownExchanges lists exchange prefixes recognised in qualified tickers.
var KnownExchanges = map[string]bool{
	"NYSE":   true,
	"NASDAQ": true,
	"AMEX":   true,
	"ARCA":   true,
	"BATS":   true,
	"OTC":    true,
	"ASX":    true,
	"LSE":    true,
	"TSX":    true,
	"XETRA":  true,
}

// ParseTicker parses a ticker string.
// Supports formats:
//   - "NASDAQ:AAPL" -> Exchange="NASDAQ", Code="AAPL" (colon separator)
//   - "NYSE.JPM" -> Exchange="NYSE", Code="JPM" (dot separator, known exchanges only)
//   - "BRK.B" -> Exchange="", Code="BRK.B" (share class suffix kept)
//   - "$aapl" -> Exchange="", Code="AAPL" (cashtag)
func ParseTicker(ticker string) Ticker {
	raw := ticker
	ticker = strings.TrimSpace(ticker)
	ticker = strings.TrimPrefix(ticker, "$")
	if ticker == "" {
		return Ticker{}
	}

	// EXCHANGE:CODE
	if idx := strings.Index(ticker, ":"); idx > 0 {
		exchange := strings.ToUpper(ticker[:idx])
		code := strings.ToUpper(strings.TrimSpace(ticker[idx+1:]))
		if code == "" {
			return Ticker{}
		}
		return Ticker{Exchange: exchange, Code: code, Raw: raw}
	}

	// EXCHANGE.CODE - only when the prefix is a known exchange, so that
	// share classes such as BRK.B survive
	if idx := strings.Index(ticker, "."); idx > 0 {
		possibleExchange := strings.ToUpper(ticker[:idx])
		if KnownExchanges[possibleExchange] && idx < len(ticker)-1 {
			return Ticker{
				Exchange: possibleExchange,
				Code:     strings.ToUpper(ticker[idx+1:]),
				Raw:      raw,
			}
		}
	}

	return Ticker{Code: strings.ToUpper(ticker), Raw: raw}
}

// String returns the exchange-qualified ticker when an exchange is known.
func (t Ticker) String() string {
	if t.Exchange == "" || t.Code == "" {
		return t.Code
	}
	return t.Exchange + ":" + t.Code
}

// Symbol returns the canonical symbol used as the index key (the code only).
func (t Ticker) Symbol() string {
	return t.Code
}

// IsValid reports whether the code looks like a listed symbol:
// 1-10 characters of letters, digits, '.' or '-', starting with a letter or digit.
func (t Ticker) IsValid() bool {
	if t.Code == "" || len(t.Code) > 10 {
		return false
	}
	for i, r := range t.Code {
		isAlnum := (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if i == 0 && !isAlnum {
			return false
		}
		if !isAlnum && r != '.' && r != '-' {
			return false
		}
	}
	return true
}
