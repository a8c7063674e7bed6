package utils

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"$20,000", "20000"},
		{"USD -20,000", "-20000"},
		{"  $ 1,234.50  ", "1234.5"},
		{"(45.10)", "-45.1"},
	}
	for _, tc := range cases {
		d, err := ParseMoney(tc.in)
		if err != nil {
			t.Fatalf("ParseMoney(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseMoney(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseMoney_DriverTypes(t *testing.T) {
	cases := []struct {
		name     string
		in       interface{}
		expected string
	}{
		{"bytes", []byte("750000.00"), "750000"},
		{"int64", int64(42), "42"},
		{"float64", 12.5, "12.5"},
		{"json number", json.Number("99.99"), "99.99"},
		{"decimal", decimal.RequireFromString("-300"), "-300"},
	}
	for _, tc := range cases {
		d, err := ParseMoney(tc.in)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.expected, d.String())
		}
	}
}

func TestMoneyOrZero_FailuresAreZero(t *testing.T) {
	for _, in := range []interface{}{nil, "", "n/a", struct{}{}, true} {
		if d := MoneyOrZero(in); !d.IsZero() {
			t.Fatalf("MoneyOrZero(%#v) expected 0, got %s", in, d.String())
		}
	}
}
