//go:build postgres

package tabular

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"
	"testing"
	"time"
)

// Runs against a throwaway database; point FIELDLOG_TEST_POSTGRES_DSN at it
// and build with -tags postgres.
func openPostgresStoreForTest(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("FIELDLOG_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FIELDLOG_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := NewPostgresStore(ctx, dsn, WithPostgresApplicationName("fieldlog-test"))
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cleanupCancel()
		_ = store.Close(cleanupCtx)
	})
	return store
}

func uniqueSheetName(t *testing.T) string {
	return fmt.Sprintf("it-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestPostgresStoreRowLifecycle(t *testing.T) {
	store := openPostgresStoreForTest(t)
	ctx := context.Background()
	sheet := uniqueSheetName(t)

	header := []string{"Week", "Zone", "District"}
	if err := store.EnsureSheet(ctx, sheet, header); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}
	if err := store.AppendRow(ctx, sheet, []string{"W1", "North", "Anand"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}
	if err := store.AppendRow(ctx, sheet, []string{"W2", "South", "Surat"}); err != nil {
		t.Fatalf("AppendRow: %v", err)
	}

	rows, err := store.Rows(ctx, sheet)
	if err != nil {
		t.Fatalf("Rows: %v", err)
	}
	if len(rows) != 3 || !reflect.DeepEqual(rows[0], header) {
		t.Fatalf("rows = %v", rows)
	}

	if err := store.UpdateRow(ctx, sheet, 2, []string{"W1", "North", "Kheda"}); err != nil {
		t.Fatalf("UpdateRow: %v", err)
	}
	if err := store.DeleteRow(ctx, sheet, 2); err != nil {
		t.Fatalf("DeleteRow: %v", err)
	}

	rows, err = store.Rows(ctx, sheet)
	if err != nil {
		t.Fatalf("Rows after delete: %v", err)
	}
	// The surviving data row must have been renumbered into position 2.
	if len(rows) != 2 || rows[1][0] != "W2" {
		t.Fatalf("rows after delete = %v", rows)
	}
}

func TestPostgresStoreErrors(t *testing.T) {
	store := openPostgresStoreForTest(t)
	ctx := context.Background()

	if _, err := store.Rows(ctx, "no-such-sheet"); !errors.Is(err, ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}

	sheet := uniqueSheetName(t)
	if err := store.EnsureSheet(ctx, sheet, []string{"A"}); err != nil {
		t.Fatalf("EnsureSheet: %v", err)
	}
	if err := store.UpdateRow(ctx, sheet, 1, []string{"x"}); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange for header row, got %v", err)
	}
	if err := store.DeleteRow(ctx, sheet, 2); !errors.Is(err, ErrRowOutOfRange) {
		t.Fatalf("expected ErrRowOutOfRange beyond last row, got %v", err)
	}
}
