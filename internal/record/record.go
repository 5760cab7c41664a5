// Package record defines the typed sales record flowing into the store
// and the CSV source that produces it.
package record

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
)

// Column family names used for the stored row layout.
const (
	FamilyOrderInfo = "order_info"
	FamilyCustomer  = "customer"
	FamilyProduct   = "product"
	FamilySales     = "sales"
)

// OrderDateLayout is the stored representation of order dates.
const OrderDateLayout = "2006-01-02 15:04:05"

// SalesRecord is a single sales line as read from the source feed.
// (OrderNumber, ProductCode) is the natural key and is unique across
// the feed. Immutable once read.
type SalesRecord struct {
	OrderNumber     int
	ProductCode     string
	OrderDate       time.Time
	Status          string
	CustomerName    string
	Country         string
	ProductLine     string
	MSRP            decimal.Decimal
	QuantityOrdered int
	PriceEach       decimal.Decimal
	Total           decimal.Decimal
	DealSize        string
}

// Validate checks the fields that must serialize for the row to be stored.
func (r *SalesRecord) Validate() error {
	if r.OrderNumber <= 0 {
		return sgerrors.NewSerialization("order_number", "must be positive")
	}
	if r.ProductCode == "" {
		return sgerrors.NewSerialization("product_code", "must not be empty")
	}
	if r.OrderDate.IsZero() {
		return sgerrors.NewSerialization("order_date", "must be set")
	}
	if r.QuantityOrdered < 0 {
		return sgerrors.NewSerialization("quantity", "must not be negative")
	}
	return nil
}

// Fields builds the family -> qualifier -> value maps stored for this
// record. The four families are write-independent: any subset may later
// be updated without touching the others.
func (r *SalesRecord) Fields() (map[string]map[string]string, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	return map[string]map[string]string{
		FamilyOrderInfo: {
			"order_date": r.OrderDate.Format(OrderDateLayout),
			"status":     r.Status,
		},
		FamilyCustomer: {
			"name":    r.CustomerName,
			"country": r.Country,
		},
		FamilyProduct: {
			"line": r.ProductLine,
			"msrp": r.MSRP.String(),
		},
		FamilySales: {
			"quantity":  strconv.Itoa(r.QuantityOrdered),
			"price":     r.PriceEach.String(),
			"total":     r.Total.String(),
			"deal_size": r.DealSize,
		},
	}, nil
}
