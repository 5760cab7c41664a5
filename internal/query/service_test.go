package query

import (
	"context"
	"errors"
	"io"
	"testing"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
	"github.com/xtxerr/salesgrid/internal/record"
	"github.com/xtxerr/salesgrid/internal/store"
	"github.com/xtxerr/salesgrid/internal/storetest"
)

const testTable = "auto_sales"

func seedSale(f *storetest.Fake, order int, code, country, total string) {
	key, _ := store.EncodeKey(order, code)
	f.SeedRow(testTable, key, map[string]map[string]string{
		record.FamilyOrderInfo: {"status": "Shipped", "order_date": "2018-02-24 00:00:00"},
		record.FamilyCustomer:  {"name": "Land of Toys Inc.", "country": country},
		record.FamilyProduct:   {"line": "Motorcycles", "msrp": "95"},
		record.FamilySales:     {"quantity": "30", "price": "95.7", "total": total, "deal_size": "Small"},
	})
}

func TestGet(t *testing.T) {
	fake := storetest.New()
	seedSale(fake, 10107, "S10_1678", "USA", "2871")

	svc := New(fake, testTable)
	row, err := svc.Get(context.Background(), 10107, "S10_1678")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.Key != "10107_S10_1678" {
		t.Errorf("key = %q", row.Key)
	}
	if v, _ := row.Value(record.FamilyCustomer, "country"); v != "USA" {
		t.Errorf("country = %q, want USA", v)
	}
}

func TestGet_AbsentRow(t *testing.T) {
	svc := New(storetest.New(), testTable)
	_, err := svc.Get(context.Background(), 99999, "S10_0000")
	if !sgerrors.IsNotFound(err) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGet_InvalidKey(t *testing.T) {
	svc := New(storetest.New(), testTable)
	if _, err := svc.Get(context.Background(), 0, "S10_1678"); !sgerrors.Is(err, sgerrors.ErrInvalidKey) {
		t.Errorf("expected ErrInvalidKey, got %v", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	fake := storetest.New()
	seedSale(fake, 10107, "S10_1678", "USA", "2871")

	svc := New(fake, testTable)
	err := svc.Update(context.Background(), 10107, "S10_1678", map[string]map[string]string{
		record.FamilyOrderInfo: {"status": "Cancelled"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	row, err := svc.Get(context.Background(), 10107, "S10_1678")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if v, _ := row.Value(record.FamilyOrderInfo, "status"); v != "Cancelled" {
		t.Errorf("status = %q, want Cancelled", v)
	}
	// Untouched fields survive the partial write.
	if v, _ := row.Value(record.FamilySales, "total"); v != "2871" {
		t.Errorf("total = %q, want 2871", v)
	}
	if v, _ := row.Value(record.FamilyCustomer, "name"); v != "Land of Toys Inc." {
		t.Errorf("name = %q", v)
	}
}

func TestUpdate_AbsentKeyCreatesSparseRow(t *testing.T) {
	fake := storetest.New()
	svc := New(fake, testTable)

	err := svc.Update(context.Background(), 10200, "S12_1099", map[string]map[string]string{
		record.FamilyOrderInfo: {"status": "On Hold"},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	row, err := svc.Get(context.Background(), 10200, "S12_1099")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v, _ := row.Value(record.FamilyOrderInfo, "status"); v != "On Hold" {
		t.Errorf("status = %q, want On Hold", v)
	}
	if _, ok := row.Value(record.FamilySales, "total"); ok {
		t.Error("sparse row must not grow fields it was never given")
	}
}

func TestUpdate_NoFields(t *testing.T) {
	svc := New(storetest.New(), testTable)
	if err := svc.Update(context.Background(), 10107, "S10_1678", nil); err == nil {
		t.Error("expected error for empty field set")
	}
}

func drain(t *testing.T, it store.RowIterator) []*store.StoredRow {
	t.Helper()
	defer it.Close()

	var rows []*store.StoredRow
	for {
		row, err := it.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		rows = append(rows, row)
	}
}

func TestScan_Unfiltered(t *testing.T) {
	fake := storetest.New()
	seedSale(fake, 10107, "S10_1678", "USA", "2871")
	seedSale(fake, 10121, "S10_1678", "France", "2765.9")
	seedSale(fake, 10134, "S18_2325", "Norway", "3884.34")

	svc := New(fake, testTable)
	it, err := svc.Scan(context.Background(), store.ScanOptions{})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	rows := drain(t, it)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	// Store-native key order.
	if rows[0].Key != "10107_S10_1678" || rows[2].Key != "10134_S18_2325" {
		t.Errorf("unexpected order: %q .. %q", rows[0].Key, rows[len(rows)-1].Key)
	}
}

func TestScan_FilteredAndProjected(t *testing.T) {
	fake := storetest.New()
	seedSale(fake, 10107, "S10_1678", "USA", "2871")
	seedSale(fake, 10121, "S10_1678", "France", "2765.9")
	seedSale(fake, 10145, "S18_1749", "USA", "7374.1")

	svc := New(fake, testTable)
	it, err := svc.Scan(context.Background(), store.ScanOptions{
		Predicate: store.Equals(record.FamilyCustomer, "country", "USA"),
		Projection: map[string][]string{
			record.FamilyCustomer: {"country"},
			record.FamilySales:    {"total"},
		},
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	rows := drain(t, it)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	for _, row := range rows {
		if v, _ := row.Value(record.FamilyCustomer, "country"); v != "USA" {
			t.Errorf("%s: country = %q", row.Key, v)
		}
		if _, ok := row.Value(record.FamilyOrderInfo, "status"); ok {
			t.Errorf("%s: unprojected family leaked through", row.Key)
		}
	}
}

func TestScan_InvalidPredicate(t *testing.T) {
	svc := New(storetest.New(), testTable)
	_, err := svc.Scan(context.Background(), store.ScanOptions{
		Predicate: &store.ScanPredicate{Family: "", Qualifier: "country", Op: store.OpEqual},
	})
	if !sgerrors.Is(err, sgerrors.ErrInvalidPredicate) {
		t.Errorf("expected ErrInvalidPredicate, got %v", err)
	}
}

func TestLargeSalesByCountry(t *testing.T) {
	fake := storetest.New()
	seedSale(fake, 10107, "S10_1678", "USA", "2871")
	seedSale(fake, 10145, "S18_1749", "USA", "7374.1")
	seedSale(fake, 10168, "S18_3232", "USA", "5000") // boundary: not strictly greater
	seedSale(fake, 10121, "S10_1678", "France", "9000")
	seedSale(fake, 10199, "S24_2840", "USA", "garbled")

	svc := New(fake, testTable)
	sales, err := svc.LargeSalesByCountry(context.Background(), "USA", 5000)
	if err != nil {
		t.Fatalf("LargeSalesByCountry: %v", err)
	}

	if len(sales) != 1 {
		t.Fatalf("results = %d, want 1: %+v", len(sales), sales)
	}
	got := sales[0]
	if got.OrderNumber != 10145 || got.ProductCode != "S18_1749" {
		t.Errorf("result key = (%d, %s), want (10145, S18_1749)", got.OrderNumber, got.ProductCode)
	}
	if got.Total.StringFixed(2) != "7374.10" {
		t.Errorf("total = %s, want 7374.10", got.Total.StringFixed(2))
	}
}

func TestLargeSalesByCountry_NoMatches(t *testing.T) {
	fake := storetest.New()
	seedSale(fake, 10107, "S10_1678", "USA", "2871")

	svc := New(fake, testTable)
	sales, err := svc.LargeSalesByCountry(context.Background(), "Spain", 5000)
	if err != nil {
		t.Fatalf("LargeSalesByCountry: %v", err)
	}
	if len(sales) != 0 {
		t.Errorf("results = %d, want 0", len(sales))
	}
}
