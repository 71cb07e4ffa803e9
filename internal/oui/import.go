// Package oui imports vendor reference data in the newline-delimited JSON
// format published by MAC address registries.
package oui

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/arall/sigint/internal/store"
)

// record is one registry line, e.g.
// {"oui":"70:B3:D5:F6:6","companyName":"Acme Networks"}.
type record struct {
	Oui         string `json:"oui"`
	CompanyName string `json:"companyName"`
}

// Stats summarizes one import run.
type Stats struct {
	Imported int
	Skipped  int
}

// Import reads one JSON object per line and registers each prefix under its
// vendor. Lines that fail to decode or miss a field are counted and skipped;
// the import keeps going. Vendors seen on multiple lines are created once.
func Import(ctx context.Context, r io.Reader, repo *store.Repo) (Stats, error) {
	var stats Stats
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			slog.Warn("skipping malformed vendor line", "error", err)
			stats.Skipped++
			continue
		}
		if rec.Oui == "" || rec.CompanyName == "" {
			stats.Skipped++
			continue
		}
		vendor, err := repo.EnsureVendor(ctx, rec.CompanyName)
		if err != nil {
			return stats, err
		}
		if err := repo.EnsureVendorMac(ctx, vendor.ID, rec.Oui); err != nil {
			return stats, err
		}
		stats.Imported++
	}
	if err := sc.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}
