package oui

import (
	"context"
	"strings"
	"testing"

	"github.com/arall/sigint/internal/model"
	"github.com/arall/sigint/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestRepo(t *testing.T) *store.Repo {
	t.Helper()
	dsn := "file:oui_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := store.New(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func TestImport(t *testing.T) {
	repo := openTestRepo(t)
	input := strings.Join([]string{
		`{"oui":"AA:BB:CC","companyName":"Acme Networks"}`,
		`{"oui":"AA:BB:CD","companyName":"Acme Networks"}`,
		``,
		`not json at all`,
		`{"oui":"","companyName":"Nameless"}`,
		`{"oui":"11:22:33","companyName":"Other Corp"}`,
	}, "\n")

	stats, err := Import(context.Background(), strings.NewReader(input), repo)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if stats.Imported != 3 {
		t.Fatalf("expected 3 imported, got %d", stats.Imported)
	}
	if stats.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", stats.Skipped)
	}

	vendor, err := repo.LookupVendor(context.Background(), "AA:BB:CD:00:11:22")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if vendor == nil || vendor.Name != "Acme Networks" {
		t.Fatalf("expected Acme Networks, got %+v", vendor)
	}

	// Both Acme prefixes point at the same vendor row.
	dev1, _, err := repo.ResolveDevice(context.Background(), "AA:BB:CC:00:00:01", model.TypeWiFi)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	dev2, _, err := repo.ResolveDevice(context.Background(), "AA:BB:CD:00:00:02", model.TypeWiFi)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if dev1.VendorID == nil || dev2.VendorID == nil || *dev1.VendorID != *dev2.VendorID {
		t.Fatalf("expected both devices attributed to the same vendor")
	}
}

func TestImportIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	input := `{"oui":"AA:BB:CC","companyName":"Acme Networks"}`

	for i := 0; i < 2; i++ {
		if _, err := Import(context.Background(), strings.NewReader(input), repo); err != nil {
			t.Fatalf("import %d: %v", i, err)
		}
	}

	vendor, err := repo.LookupVendor(context.Background(), "AA:BB:CC:00:11:22")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if vendor == nil {
		t.Fatalf("expected vendor after re-import")
	}
}
