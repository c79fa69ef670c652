package common

import (
	"testing"
)

func TestParseTicker(t *testing.T) {
	tests := []struct {
		input        string
		wantExchange string
		wantCode     string
		wantString   string
	}{
		// Exchange-qualified format with colon separator
		{"NASDAQ:AAPL", "NASDAQ", "AAPL", "NASDAQ:AAPL"},
		{"NYSE:JPM", "NYSE", "JPM", "NYSE:JPM"},

		// Exchange-qualified format with dot separator
		{"NYSE.JPM", "NYSE", "JPM", "NYSE:JPM"},
		{"NASDAQ.MSFT", "NASDAQ", "MSFT", "NASDAQ:MSFT"},

		// Share classes are not exchanges
		{"BRK.B", "", "BRK.B", "BRK.B"},
		{"brk.a", "", "BRK.A", "BRK.A"},

		// Bare codes and cashtags
		{"AAPL", "", "AAPL", "AAPL"},
		{"$aapl", "", "AAPL", "AAPL"},
		{"  googl  ", "", "GOOGL", "GOOGL"},

		// Case normalization
		{"nasdaq:msft", "NASDAQ", "MSFT", "NASDAQ:MSFT"},

		// Empty input
		{"", "", "", ""},
		{"$", "", "", ""},
		{"NYSE:", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseTicker(tt.input)

			if result.Exchange != tt.wantExchange {
				t.Errorf("Exchange = %q, want %q", result.Exchange, tt.wantExchange)
			}
			if result.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", result.Code, tt.wantCode)
			}
			if result.String() != tt.wantString {
				t.Errorf("String() = %q, want %q", result.String(), tt.wantString)
			}
		})
	}
}

func TestTicker_IsValid(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"AAPL", true},
		{"BRK.B", true},
		{"BF-B", true},
		{"3M", true},
		{"", false},
		{"TOOLONGTICKER", false},
		{".B", false},
		{"AB CD", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseTicker(tt.input).IsValid(); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
