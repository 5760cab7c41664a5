package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/salesgrid/internal/record"
	"github.com/xtxerr/salesgrid/internal/store"
	"github.com/xtxerr/salesgrid/internal/storetest"
)

func TestFlattenRow(t *testing.T) {
	row := &store.StoredRow{
		Key: "10107_S10_1678",
		Families: map[string]map[string]string{
			record.FamilyOrderInfo: {"order_date": "2018-02-24 00:00:00", "status": "Shipped"},
			record.FamilyCustomer:  {"country": "USA"},
			record.FamilyProduct:   {"line": "Motorcycles"},
			record.FamilySales:     {"quantity": "30", "total": "2871", "deal_size": "Small"},
		},
	}

	got := FlattenRow(row)
	want := SaleRow{
		OrderID:     "10107_S10_1678",
		OrderDate:   "2018-02-24 00:00:00",
		Status:      "Shipped",
		ProductLine: "Motorcycles",
		Country:     "USA",
		Quantity:    30,
		Total:       2871,
		DealSize:    "Small",
		Valid:       true,
	}
	if got != want {
		t.Errorf("FlattenRow = %+v, want %+v", got, want)
	}
}

func TestFlattenRow_BadFigures(t *testing.T) {
	cases := []struct {
		name  string
		sales map[string]string
	}{
		{"missing total", map[string]string{"quantity": "30"}},
		{"unparsable total", map[string]string{"quantity": "30", "total": "oops"}},
		{"missing quantity", map[string]string{"total": "2871"}},
		{"unparsable quantity", map[string]string{"quantity": "many", "total": "2871"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			row := &store.StoredRow{
				Key:      "10107_S10_1678",
				Families: map[string]map[string]string{record.FamilySales: tc.sales},
			}
			if got := FlattenRow(row); got.Valid {
				t.Errorf("row must be flagged invalid: %+v", got)
			}
		})
	}
}

func TestWriteSnapshot_Roundtrip(t *testing.T) {
	fake := storetest.New()
	seeds := map[string]string{
		"10107_S10_1678": "2871",
		"10121_S10_1678": "2765.9",
		"10134_S18_2325": "3884.34",
	}
	for key, total := range seeds {
		fake.SeedRow("auto_sales", key, map[string]map[string]string{
			record.FamilyCustomer: {"country": "USA"},
			record.FamilyProduct:  {"line": "Motorcycles"},
			record.FamilySales:    {"quantity": "30", "total": total, "deal_size": "Small"},
		})
	}

	it, err := fake.Scan(context.Background(), "auto_sales", store.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer it.Close()

	path := filepath.Join(t.TempDir(), "snapshot.parquet")
	n, err := WriteSnapshot(context.Background(), it, path)
	if err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	if n != 3 {
		t.Errorf("rows written = %d, want 3", n)
	}

	rows, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows read = %d, want 3", len(rows))
	}
	// Fake scans in key order.
	if rows[0].OrderID != "10107_S10_1678" || rows[0].Total != 2871 || !rows[0].Valid {
		t.Errorf("first row = %+v", rows[0])
	}
}

func TestWriteSnapshot_FailureRemovesFile(t *testing.T) {
	fake := storetest.New()
	fake.SeedRow("auto_sales", "10107_S10_1678", map[string]map[string]string{
		record.FamilySales: {"quantity": "30", "total": "2871"},
	})

	it, err := fake.Scan(context.Background(), "auto_sales", store.ScanOptions{})
	if err != nil {
		t.Fatal(err)
	}
	it.Close() // next advance fails with ErrScanClosed

	path := filepath.Join(t.TempDir(), "snapshot.parquet")
	if _, err := WriteSnapshot(context.Background(), it, path); err == nil {
		t.Fatal("expected error from closed iterator")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("partial snapshot must be removed, stat err = %v", err)
	}
}
