package store_test

import (
	"context"
	"errors"
	"testing"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
	"github.com/xtxerr/salesgrid/internal/store"
	"github.com/xtxerr/salesgrid/internal/storetest"
)

var families = []string{"order_info", "customer", "product", "sales"}

func TestEnsureTable_CreatesOnce(t *testing.T) {
	fake := storetest.New()
	ctx := context.Background()

	if err := store.EnsureTable(ctx, fake, "auto_sales", families); err != nil {
		t.Fatalf("first EnsureTable: %v", err)
	}
	if err := store.EnsureTable(ctx, fake, "auto_sales", families); err != nil {
		t.Fatalf("second EnsureTable: %v", err)
	}

	if fake.CreateCalls != 1 {
		t.Errorf("expected exactly 1 create call, got %d", fake.CreateCalls)
	}
	if fake.ExistsCalls != 2 {
		t.Errorf("expected 2 existence checks, got %d", fake.ExistsCalls)
	}
}

func TestEnsureTable_ExistingTableUntouched(t *testing.T) {
	fake := storetest.New()
	ctx := context.Background()

	// Table already provisioned with a superset of families.
	superset := append(append([]string(nil), families...), "audit")
	if err := fake.CreateTable(ctx, "auto_sales", superset); err != nil {
		t.Fatal(err)
	}
	fake.CreateCalls = 0

	if err := store.EnsureTable(ctx, fake, "auto_sales", families); err != nil {
		t.Fatalf("EnsureTable over existing table: %v", err)
	}
	if fake.CreateCalls != 0 {
		t.Errorf("existing table must not be recreated, got %d create calls", fake.CreateCalls)
	}
}

func TestEnsureTable_TransportFaults(t *testing.T) {
	ctx := context.Background()

	fake := storetest.New()
	fake.FailTableExists = errors.New("zk unreachable")
	if err := store.EnsureTable(ctx, fake, "auto_sales", families); !sgerrors.Is(err, sgerrors.ErrSchema) {
		t.Errorf("existence fault: expected ErrSchema, got %v", err)
	}

	fake = storetest.New()
	fake.FailCreate = errors.New("master down")
	err := store.EnsureTable(ctx, fake, "auto_sales", families)
	if !sgerrors.Is(err, sgerrors.ErrSchema) {
		t.Errorf("create fault: expected ErrSchema, got %v", err)
	}
	if !sgerrors.IsFatal(err) {
		t.Error("schema errors must be fatal")
	}
}
