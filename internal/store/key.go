package store

import (
	"strconv"
	"strings"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
)

// KeySeparator joins the natural key components into a row key.
//
// Product codes in the source feed contain underscores themselves
// (e.g. "S10_1678"), so decoding splits on the first separator only.
// That stays exact because the order number component is digits-only
// and can never contain the separator.
const KeySeparator = "_"

// EncodeKey derives the row key from the natural key
// (order number, product code). Deterministic, no side effects.
func EncodeKey(orderNumber int, productCode string) (string, error) {
	if orderNumber <= 0 {
		return "", sgerrors.NewInvalidKey(strconv.Itoa(orderNumber), "order number must be positive")
	}
	if productCode == "" {
		return "", sgerrors.NewInvalidKey("product code", "must not be empty")
	}
	if strings.HasPrefix(productCode, KeySeparator) {
		return "", sgerrors.NewInvalidKey(productCode, "must not start with the key separator")
	}
	return strconv.Itoa(orderNumber) + KeySeparator + productCode, nil
}

// DecodeKey is the exact inverse of EncodeKey.
func DecodeKey(key string) (int, string, error) {
	num, code, ok := strings.Cut(key, KeySeparator)
	if !ok {
		return 0, "", sgerrors.NewInvalidKey(key, "missing key separator")
	}
	orderNumber, err := strconv.Atoi(num)
	if err != nil || orderNumber <= 0 {
		return 0, "", sgerrors.NewInvalidKey(key, "malformed order number")
	}
	if code == "" {
		return 0, "", sgerrors.NewInvalidKey(key, "empty product code")
	}
	return orderNumber, code, nil
}
