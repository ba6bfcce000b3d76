package reorder

import (
	"fmt"
	"strings"

	"github.com/andresuchdata/autopo-go/internal/ingest"
)

// Store file columns.
const (
	ColBrand            = "Brand"
	ColSKU              = "SKU"
	ColNama             = "Nama"
	ColToko             = "Toko"
	ColStok             = "Stok"
	ColStock            = "Stock"
	ColDailySales       = "Daily Sales"
	ColMaxDailySales    = "Max. Daily Sales"
	ColLeadTime         = "Lead Time"
	ColMaxLeadTime      = "Max. Lead Time"
	ColMinOrder         = "Min. Order"
	ColSedangPO         = "Sedang PO"
	ColHPP              = "HPP"
	ColLeadTimeSedangPO = "Lead Time Sedang PO"
)

// DefaultLeadTimeSedangPO is used when a file has no Lead Time Sedang PO column.
const DefaultLeadTimeSedangPO = 5.0

// DefaultExemptStores read their own sales unless their contribution is
// below 100%.
var DefaultExemptStores = []string{"PADANG", "SOETA", "BALIKPAPAN"}

var criticalColumns = []string{ColBrand, ColSKU, ColHPP}

// NormalizeOptions tunes Normalize.
type NormalizeOptions struct {
	// StrictColumns fails files that lack Brand, SKU or HPP instead of
	// defaulting them to empty values.
	StrictColumns bool

	// ExemptStores overrides DefaultExemptStores when non-nil.
	ExemptStores []string
}

func (o NormalizeOptions) isExempt(store string) bool {
	exempt := o.ExemptStores
	if exempt == nil {
		exempt = DefaultExemptStores
	}
	store = strings.ToUpper(strings.TrimSpace(store))
	for _, s := range exempt {
		if strings.ToUpper(s) == store {
			return true
		}
	}
	return false
}

// NeedsOverride reports whether the reference sales replace the figures of
// the given store.
func (o NormalizeOptions) NeedsOverride(store string, contributionPct float64) bool {
	return !o.isExempt(store) || contributionPct < 100
}

// Normalize converts an ingested store file into PO rows. storeName is the
// name derived from the file name; refSales may be nil.
func Normalize(table *ingest.Table, storeName string, contributionPct float64, refSales ReferenceSales, opts NormalizeOptions) ([]PORow, error) {
	if table == nil || table.Len() == 0 {
		return nil, ErrEmptyInput
	}

	col := columnLookup(table)
	if opts.StrictColumns {
		var missing []string
		for _, name := range criticalColumns {
			if !col.has(name) {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			return nil, fmt.Errorf("%w: %s", ErrMissingRequiredColumn, strings.Join(missing, ", "))
		}
	}

	stockCol := ColStok
	if !col.has(ColStok) {
		stockCol = ColStock
	}
	hasLeadTimeSedangPO := col.has(ColLeadTimeSedangPO)

	ratio := contributionPct / 100
	override := refSales != nil && opts.NeedsOverride(storeName, contributionPct)

	rows := make([]PORow, 0, table.Len())
	for _, rec := range table.Rows {
		row := PORow{
			Brand:             col.text(rec, ColBrand),
			SKU:               col.text(rec, ColSKU),
			Nama:              col.text(rec, ColNama),
			Toko:              col.text(rec, ColToko),
			Stock:             col.number(rec, stockCol),
			DailySales:        col.number(rec, ColDailySales),
			MaxDailySales:     col.number(rec, ColMaxDailySales),
			LeadTime:          col.number(rec, ColLeadTime),
			MaxLeadTime:       col.number(rec, ColMaxLeadTime),
			SedangPO:          col.number(rec, ColSedangPO),
			MinOrder:          col.number(rec, ColMinOrder),
			HPP:               col.number(rec, ColHPP),
			LeadTimeSedangPO:  DefaultLeadTimeSedangPO,
			ContributionPct:   contributionPct,
			ContributionRatio: ratio,
			Location:          storeName,
			SupplierMatch:     MatchNone,
		}
		if hasLeadTimeSedangPO {
			row.LeadTimeSedangPO = col.number(rec, ColLeadTimeSedangPO)
		}

		row.OrigDailySales = row.DailySales
		row.OrigMaxDailySales = row.MaxDailySales

		if ref, ok := refSales[row.SKU]; ok {
			row.IsInPadang = 1
			if override {
				row.DailySales = ref.DailySales * ratio
				row.MaxDailySales = ref.MaxDailySales * ratio
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}
