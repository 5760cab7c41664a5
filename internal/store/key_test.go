package store

import (
	"testing"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
)

func TestEncodeKey_Roundtrip(t *testing.T) {
	cases := []struct {
		orderNumber int
		productCode string
		want        string
	}{
		{10107, "S10_1678", "10107_S10_1678"},
		{1, "A", "1_A"},
		{99999, "S700_2824", "99999_S700_2824"},
	}

	for _, tc := range cases {
		key, err := EncodeKey(tc.orderNumber, tc.productCode)
		if err != nil {
			t.Fatalf("EncodeKey(%d, %q): %v", tc.orderNumber, tc.productCode, err)
		}
		if key != tc.want {
			t.Errorf("EncodeKey(%d, %q) = %q, want %q", tc.orderNumber, tc.productCode, key, tc.want)
		}

		gotNumber, gotCode, err := DecodeKey(key)
		if err != nil {
			t.Fatalf("DecodeKey(%q): %v", key, err)
		}
		if gotNumber != tc.orderNumber || gotCode != tc.productCode {
			t.Errorf("DecodeKey(%q) = (%d, %q), want (%d, %q)",
				key, gotNumber, gotCode, tc.orderNumber, tc.productCode)
		}
	}
}

func TestEncodeKey_Invalid(t *testing.T) {
	cases := []struct {
		name        string
		orderNumber int
		productCode string
	}{
		{"zero order number", 0, "S10_1678"},
		{"negative order number", -5, "S10_1678"},
		{"empty product code", 10107, ""},
		{"leading separator", 10107, "_S10"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := EncodeKey(tc.orderNumber, tc.productCode)
			if !sgerrors.Is(err, sgerrors.ErrInvalidKey) {
				t.Errorf("expected ErrInvalidKey, got %v", err)
			}
		})
	}
}

func TestDecodeKey_Invalid(t *testing.T) {
	cases := []struct {
		name string
		key  string
	}{
		{"no separator", "10107"},
		{"empty", ""},
		{"non-numeric order", "abc_S10"},
		{"negative order", "-1_S10"},
		{"empty product code", "10107_"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := DecodeKey(tc.key)
			if !sgerrors.Is(err, sgerrors.ErrInvalidKey) {
				t.Errorf("DecodeKey(%q): expected ErrInvalidKey, got %v", tc.key, err)
			}
		})
	}
}
