package reorder

import (
	"fmt"
	"regexp"
	"strings"
)

// SupplierPolicy selects how rows are matched to catalog suppliers.
type SupplierPolicy string

const (
	// PolicyBrandStore matches (brand, store) first and falls back to brand.
	PolicyBrandStore SupplierPolicy = "brand_store"
	// PolicyBrandOnly matches brand against the priority store's suppliers
	// first and falls back to any other supplier of the brand.
	PolicyBrandOnly SupplierPolicy = "brand_only"
)

// DefaultPriorityStore is the catalog store whose suppliers win ties.
const DefaultPriorityStore = "Miss Glam Padang"

// ParseSupplierPolicy maps a configuration value to a policy.
func ParseSupplierPolicy(s string) (SupplierPolicy, error) {
	switch SupplierPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyBrandStore:
		return PolicyBrandStore, nil
	case PolicyBrandOnly:
		return PolicyBrandOnly, nil
	}
	return "", fmt.Errorf("unknown supplier policy %q", s)
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Policy        SupplierPolicy
	PriorityStore string
}

// ResolveSummary counts how the rows of one file were matched.
type ResolveSummary struct {
	Primary  int
	Fallback int
	None     int
}

// supplierKey is used to index supplier data by normalized store and brand.
type supplierKey struct {
	Store string
	Brand string
}

// Resolver attaches catalog suppliers to PO rows. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	policy SupplierPolicy

	byBrandStore map[supplierKey]SupplierRecord
	primary      map[string]SupplierRecord
	fallback     map[string]SupplierRecord
}

// NewResolver indexes catalog according to cfg. Catalog order decides
// which supplier wins among duplicates.
func NewResolver(catalog []SupplierRecord, cfg ResolverConfig) *Resolver {
	if cfg.Policy == "" {
		cfg.Policy = PolicyBrandStore
	}
	if cfg.PriorityStore == "" {
		cfg.PriorityStore = DefaultPriorityStore
	}

	r := &Resolver{
		policy:       cfg.Policy,
		byBrandStore: make(map[supplierKey]SupplierRecord),
		primary:      make(map[string]SupplierRecord),
		fallback:     make(map[string]SupplierRecord),
	}

	var priority, others []SupplierRecord
	for _, s := range catalog {
		if strings.EqualFold(strings.TrimSpace(s.NamaStore), cfg.PriorityStore) {
			priority = append(priority, s)
		} else {
			others = append(others, s)
		}
	}

	switch r.policy {
	case PolicyBrandOnly:
		indexFirstByBrand(r.primary, priority)
		indexFirstByBrand(r.fallback, others)
	default:
		for _, s := range catalog {
			key := supplierKey{
				Store: normalizeStoreNameForSupplier(s.NamaStore),
				Brand: strings.TrimSpace(s.NamaBrand),
			}
			if key.Store == "" || key.Brand == "" {
				continue
			}
			if _, exists := r.byBrandStore[key]; !exists {
				r.byBrandStore[key] = s
			}
		}
		indexFirstByBrand(r.fallback, priority)
		indexFirstByBrand(r.fallback, others)
	}

	return r
}

func indexFirstByBrand(index map[string]SupplierRecord, suppliers []SupplierRecord) {
	for _, s := range suppliers {
		brand := strings.TrimSpace(s.NamaBrand)
		if brand == "" {
			continue
		}
		if _, exists := index[brand]; !exists {
			index[brand] = s
		}
	}
}

// Policy returns the active policy.
func (r *Resolver) Policy() SupplierPolicy {
	return r.policy
}

// Resolve fills the supplier fields of rows in place. Unmatched rows keep
// zero supplier fields.
func (r *Resolver) Resolve(rows []PORow) ResolveSummary {
	var summary ResolveSummary
	for i := range rows {
		row := &rows[i]
		brand := strings.TrimSpace(row.Brand)

		if s, ok := r.primaryMatch(row, brand); ok {
			row.Supplier = s
			row.SupplierMatch = MatchPrimary
			summary.Primary++
			continue
		}
		if s, ok := r.fallback[brand]; ok && brand != "" {
			row.Supplier = s
			row.SupplierMatch = MatchFallback
			summary.Fallback++
			continue
		}

		row.Supplier = SupplierRecord{}
		row.SupplierMatch = MatchNone
		summary.None++
	}
	return summary
}

func (r *Resolver) primaryMatch(row *PORow, brand string) (SupplierRecord, bool) {
	if brand == "" {
		return SupplierRecord{}, false
	}
	if r.policy == PolicyBrandOnly {
		s, ok := r.primary[brand]
		return s, ok
	}

	store := row.Location
	if store == "" {
		store = row.Toko
	}
	s, ok := r.byBrandStore[supplierKey{Store: normalizeStoreNameForSupplier(store), Brand: brand}]
	return s, ok
}

var leadingIndexRe = regexp.MustCompile(`^[\d.\s]+`)

// normalizeStoreNameForSupplier normalizes store names from both stock files
// and supplier master so they can be joined reliably.
// "Miss Glam Padang", "002 Miss Glam Padang" and "PADANG" all become "PADANG".
func normalizeStoreNameForSupplier(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return ""
	}
	upper = strings.TrimSpace(leadingIndexRe.ReplaceAllString(upper, ""))
	parts := strings.Fields(upper)
	if len(parts) >= 3 && parts[0] == "MISS" && parts[1] == "GLAM" {
		parts = parts[2:]
	}
	return strings.Join(parts, " ")
}
