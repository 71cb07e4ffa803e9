package store

import (
	"context"
	"errors"

	"github.com/arall/sigint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Prefix search bounds for LookupVendor, in characters of the colon-separated
// identifier. 12 characters covers five octets, 8 covers the classic three
// octet OUI.
const (
	maxOuiPrefixLen = 12
	minOuiPrefixLen = 8
)

// EnsureVendor returns the vendor with the given name, creating it if needed.
func (r *Repo) EnsureVendor(ctx context.Context, name string) (*model.Vendor, error) {
	if name == "" {
		return nil, errors.New("empty vendor name")
	}
	vendor := model.Vendor{ID: uuid.New(), Name: name}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(&vendor)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if err := r.db.WithContext(ctx).Where("name = ?", name).First(&vendor).Error; err != nil {
			return nil, err
		}
	}
	return &vendor, nil
}

// EnsureVendorMac registers an OUI prefix for a vendor. Re-imports of the
// same prefix are a no-op, even when the reference data moved it to another
// vendor; the first import wins.
func (r *Repo) EnsureVendorMac(ctx context.Context, vendorID uuid.UUID, mac string) error {
	mac = NormalizeIdentifier(mac)
	if mac == "" {
		return errors.New("empty vendor mac")
	}
	vm := model.VendorMac{ID: uuid.New(), VendorID: vendorID, Mac: mac}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mac"}},
			DoNothing: true,
		}).
		Create(&vm).Error
}

// LookupVendor resolves an identifier to its vendor by shortening prefix
// search: the first 12 characters are tried first, then 11, down to 8.
// Prefixes longer than the identifier are skipped. A device with no matching
// registration resolves to (nil, nil), not an error.
func (r *Repo) LookupVendor(ctx context.Context, identifier string) (*model.Vendor, error) {
	identifier = NormalizeIdentifier(identifier)
	for l := maxOuiPrefixLen; l >= minOuiPrefixLen; l-- {
		if l > len(identifier) {
			continue
		}
		var vm model.VendorMac
		err := r.db.WithContext(ctx).Where("mac = ?", identifier[:l]).First(&vm).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		var vendor model.Vendor
		if err := r.db.WithContext(ctx).First(&vendor, "id = ?", vm.VendorID).Error; err != nil {
			return nil, err
		}
		return &vendor, nil
	}
	return nil, nil
}
