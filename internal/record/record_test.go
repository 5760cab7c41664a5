package record

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
)

func sampleRecord() SalesRecord {
	return SalesRecord{
		OrderNumber:     10107,
		ProductCode:     "S10_1678",
		OrderDate:       time.Date(2018, 2, 24, 0, 0, 0, 0, time.UTC),
		Status:          "Shipped",
		CustomerName:    "Land of Toys Inc.",
		Country:         "USA",
		ProductLine:     "Motorcycles",
		MSRP:            decimal.NewFromInt(95),
		QuantityOrdered: 30,
		PriceEach:       decimal.RequireFromString("95.70"),
		Total:           decimal.RequireFromString("2871.00"),
		DealSize:        "Small",
	}
}

func TestSalesRecord_Fields(t *testing.T) {
	rec := sampleRecord()

	fields, err := rec.Fields()
	if err != nil {
		t.Fatalf("Fields: %v", err)
	}

	if len(fields) != 4 {
		t.Fatalf("expected 4 families, got %d", len(fields))
	}

	cases := []struct {
		family    string
		qualifier string
		want      string
	}{
		{FamilyOrderInfo, "order_date", "2018-02-24 00:00:00"},
		{FamilyOrderInfo, "status", "Shipped"},
		{FamilyCustomer, "name", "Land of Toys Inc."},
		{FamilyCustomer, "country", "USA"},
		{FamilyProduct, "line", "Motorcycles"},
		{FamilyProduct, "msrp", "95"},
		{FamilySales, "quantity", "30"},
		{FamilySales, "price", "95.7"},
		{FamilySales, "total", "2871"},
		{FamilySales, "deal_size", "Small"},
	}
	for _, tc := range cases {
		got, ok := fields[tc.family][tc.qualifier]
		if !ok {
			t.Errorf("%s:%s missing", tc.family, tc.qualifier)
			continue
		}
		if got != tc.want {
			t.Errorf("%s:%s = %q, want %q", tc.family, tc.qualifier, got, tc.want)
		}
	}
}

func TestSalesRecord_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SalesRecord)
	}{
		{"zero order number", func(r *SalesRecord) { r.OrderNumber = 0 }},
		{"empty product code", func(r *SalesRecord) { r.ProductCode = "" }},
		{"zero order date", func(r *SalesRecord) { r.OrderDate = time.Time{} }},
		{"negative quantity", func(r *SalesRecord) { r.QuantityOrdered = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := sampleRecord()
			tc.mutate(&rec)
			if err := rec.Validate(); !sgerrors.Is(err, sgerrors.ErrSerialization) {
				t.Errorf("expected ErrSerialization, got %v", err)
			}
			if _, err := rec.Fields(); err == nil {
				t.Error("Fields must fail for an invalid record")
			}
		})
	}

	rec := sampleRecord()
	if err := rec.Validate(); err != nil {
		t.Errorf("valid record rejected: %v", err)
	}
}
