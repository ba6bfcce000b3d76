package reorder

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/ingest"
)

// Supplier catalog columns.
const (
	ColIDSupplier   = "ID Supplier"
	ColNamaSupplier = "Nama Supplier"
	ColIDBrand      = "ID Brand"
	ColNamaBrand    = "Nama Brand"
	ColIDStore      = "ID Store"
	ColNamaStore    = "Nama Store"
	ColHariOrder    = "Hari Order"
	ColMinPurchase  = "Min. Purchase"
	ColTradingTerm  = "Trading Term"
	ColPromoFactor  = "Promo Factor"
	ColDelayFactor  = "Delay Factor"
)

// DefaultContributionPct applies to stores missing from the contribution table.
const DefaultContributionPct = 100.0

// SalesFigures are the reference store's figures for one SKU.
type SalesFigures struct {
	DailySales    float64
	MaxDailySales float64
}

// ReferenceSales maps a trimmed SKU to the reference store's sales figures.
// A nil table disables the override.
type ReferenceSales map[string]SalesFigures

// Contains reports whether sku is present in the table.
func (r ReferenceSales) Contains(sku string) bool {
	_, ok := r[strings.TrimSpace(sku)]
	return ok
}

// ContributionTable maps lower-cased store names to contribution percentages.
type ContributionTable map[string]float64

// Pct returns the contribution percentage of store, DefaultContributionPct
// when unknown.
func (c ContributionTable) Pct(store string) float64 {
	key := strings.ToLower(strings.TrimSpace(store))
	if key == "" {
		return DefaultContributionPct
	}
	if v, ok := c[key]; ok {
		return v
	}
	return DefaultContributionPct
}

// Lookup returns the contribution percentage of store and whether it was found.
func (c ContributionTable) Lookup(store string) (float64, bool) {
	v, ok := c[strings.ToLower(strings.TrimSpace(store))]
	return v, ok
}

// LoadSupplierCatalog reads the semicolon-delimited supplier catalog. A missing
// or unreadable file yields an empty catalog.
func LoadSupplierCatalog(path string) []SupplierRecord {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("file", path).Err(err).Msg("supplier catalog not available, continuing without suppliers")
		return nil
	}

	reader := ingest.NewReader(ingest.Config{Formats: semicolonOnlyFormats()})
	table, err := reader.Read(path)
	if err != nil {
		log.Warn().Str("file", path).Err(err).Msg("failed to read supplier catalog, continuing without suppliers")
		return nil
	}

	col := columnLookup(table)
	catalog := make([]SupplierRecord, 0, table.Len())
	for _, rec := range table.Rows {
		catalog = append(catalog, SupplierRecord{
			IDSupplier:   col.text(rec, ColIDSupplier),
			NamaSupplier: col.text(rec, ColNamaSupplier),
			IDBrand:      col.text(rec, ColIDBrand),
			NamaBrand:    strings.TrimSpace(col.text(rec, ColNamaBrand)),
			IDStore:      col.text(rec, ColIDStore),
			NamaStore:    col.text(rec, ColNamaStore),
			HariOrder:    col.text(rec, ColHariOrder),
			MinPurchase:  col.number(rec, ColMinPurchase),
			TradingTerm:  col.text(rec, ColTradingTerm),
			PromoFactor:  col.number(rec, ColPromoFactor),
			DelayFactor:  col.number(rec, ColDelayFactor),
		})
	}

	log.Info().Str("file", path).Int("suppliers", len(catalog)).Msg("loaded supplier catalog")
	return catalog
}

// LoadContributions reads the headerless (store, percentage) table. A missing
// or unreadable file yields an empty table.
func LoadContributions(path string) ContributionTable {
	table := ContributionTable{}
	if path == "" {
		return table
	}
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("file", path).Err(err).Msg("store contribution table not available, defaulting to 100%")
		return table
	}

	reader := ingest.NewReader(ingest.Config{Formats: ingest.CommaOnlyFormats(), Headerless: true})
	records, err := reader.ReadRecords(path)
	if err != nil {
		log.Warn().Str("file", path).Err(err).Msg("failed to read store contribution table, defaulting to 100%")
		return table
	}

	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(rec[0]))
		if key == "" {
			continue
		}
		if _, exists := table[key]; exists {
			continue
		}
		table[key] = Coerce(rec[1])
	}

	log.Info().Str("file", path).Int("stores", len(table)).Msg("loaded store contribution table")
	return table
}

// LoadReferenceSales reads the reference store's per-SKU sales. An empty path
// returns a nil table.
func LoadReferenceSales(path string, cfg ingest.Config) (ReferenceSales, error) {
	if path == "" {
		return nil, nil
	}

	cfg.Formats = ingest.SemicolonFirstFormats()
	table, err := ingest.NewReader(cfg).Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference sales %s: %w", path, err)
	}

	col := columnLookup(table)
	if _, ok := col[ColSKU]; !ok {
		return nil, fmt.Errorf("reference sales %s: %w: %s", path, ErrMissingRequiredColumn, ColSKU)
	}

	sales := make(ReferenceSales, table.Len())
	for _, rec := range table.Rows {
		sku := col.text(rec, ColSKU)
		if sku == "" {
			continue
		}
		if _, exists := sales[sku]; exists {
			continue
		}
		sales[sku] = SalesFigures{
			DailySales:    col.number(rec, ColDailySales),
			MaxDailySales: col.number(rec, ColMaxDailySales),
		}
	}

	log.Info().Str("file", path).Int("skus", len(sales)).Msg("loaded reference sales")
	return sales, nil
}

func semicolonOnlyFormats() []ingest.Format {
	return []ingest.Format{
		{Delimiter: ';', Encoding: ingest.EncodingUTF8},
		{Delimiter: ';', Encoding: ingest.EncodingLatin1},
		{Delimiter: ';', Encoding: ingest.EncodingWindows1252},
	}
}

// columns maps trimmed header labels to their first index.
type columns map[string]int

func columnLookup(t *ingest.Table) columns {
	col := make(columns, len(t.Header))
	for i, h := range t.Header {
		name := strings.TrimSpace(h)
		if _, exists := col[name]; !exists {
			col[name] = i
		}
	}
	return col
}

func (c columns) has(name string) bool {
	_, ok := c[name]
	return ok
}

func (c columns) text(rec []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func (c columns) number(rec []string, name string) float64 {
	idx, ok := c[name]
	if !ok || idx >= len(rec) {
		return 0
	}
	return Coerce(rec[idx])
}
