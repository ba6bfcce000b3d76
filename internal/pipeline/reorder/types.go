package reorder

import (
	"errors"
	"time"

	"github.com/andresuchdata/autopo-go/internal/ingest"
)

var (
	// ErrMissingRequiredColumn is returned in strict mode when Brand, SKU or
	// HPP is absent from a store file.
	ErrMissingRequiredColumn = errors.New("missing required column")

	// ErrEmptyInput is returned when a store file has no data rows.
	ErrEmptyInput = ingest.ErrEmptyInput

	// ErrComputation is returned when the metrics of a row-set cannot be
	// computed.
	ErrComputation = errors.New("computation error")
)

// SupplierMatch records how a row obtained its supplier.
type SupplierMatch string

const (
	MatchNone     SupplierMatch = "none"
	MatchPrimary  SupplierMatch = "primary"
	MatchFallback SupplierMatch = "fallback"
)

// PORow is one SKU at one store.
type PORow struct {
	Brand string
	SKU   string
	Nama  string // Product name
	Toko  string // Store column as found in the file

	Stock            float64 // Stok / Stock
	DailySales       float64
	MaxDailySales    float64
	LeadTime         float64
	MaxLeadTime      float64
	SedangPO         float64 // Quantity already on order
	LeadTimeSedangPO float64
	MinOrder         float64
	HPP              float64 // Unit cost price

	ContributionPct   float64
	ContributionRatio float64

	// Reference store override bookkeeping
	IsInPadang        int
	OrigDailySales    float64
	OrigMaxDailySales float64

	// Location is the store name derived from the file name.
	Location string

	Supplier      SupplierRecord
	SupplierMatch SupplierMatch

	Metrics InventoryMetrics
}

// SupplierRecord is one row of the supplier catalog.
type SupplierRecord struct {
	IDSupplier   string
	NamaSupplier string
	IDBrand      string
	NamaBrand    string
	IDStore      string
	NamaStore    string
	HariOrder    string
	MinPurchase  float64
	TradingTerm  string
	PromoFactor  float64
	DelayFactor  float64
}

// InventoryMetrics holds calculated inventory metrics
type InventoryMetrics struct {
	SafetyStock               int     // Safety stock level, any sign
	ReorderPoint              int     // Reorder point
	TargetDaysCover           int     // Target days of stock cover (30 or 60)
	QtyForTargetDaysCover     int     // Quantity needed for target days
	CurrentDaysStockCover     float64 // Current days of stock cover
	IsOpenPO                  int     // Flag: 1 if PO should be opened
	InitialQtyPO              int     // Initial PO quantity
	EmergencyPOQty            int     // Emergency PO quantity
	UpdatedRegularPOQty       int     // Updated regular PO quantity
	FinalUpdatedRegularPOQty  int     // Final regular PO quantity (with min order)
	EmergencyPOCost           float64 // Cost of emergency PO
	FinalUpdatedRegularPOCost float64 // Cost of final regular PO
}

// ProcessingSummary holds summary statistics for a processed file
type ProcessingSummary struct {
	FileName        string
	Location        string
	ContributionPct float64
	TotalRows       int
	PrimaryMatches  int
	FallbackMatches int
	NoSupplier      int
	Status          string
	Error           string
	ProcessingTime  time.Duration
}

// BatchSummary aggregates the rows of every successfully processed file.
// ItemsToOrder counts rows with a regular order; emergency-only rows are not
// included.
type BatchSummary struct {
	TotalSKUs            int     `json:"total_skus"`
	TotalEmergencyPOCost float64 `json:"total_emergency_po_cost"`
	TotalRegularPOCost   float64 `json:"total_regular_po_cost"`
	ItemsToOrder         int     `json:"items_to_order"`
}

// Add folds rows into the summary.
func (s *BatchSummary) Add(rows []PORow) {
	for i := range rows {
		m := rows[i].Metrics
		s.TotalSKUs++
		s.TotalEmergencyPOCost = roundCost(s.TotalEmergencyPOCost + m.EmergencyPOCost)
		s.TotalRegularPOCost = roundCost(s.TotalRegularPOCost + m.FinalUpdatedRegularPOCost)
		if m.FinalUpdatedRegularPOQty > 0 {
			s.ItemsToOrder++
		}
	}
}

// OutputFormat defines the type of output CSV to generate
type OutputFormat string

const (
	FormatComplete  OutputFormat = "complete"  // All columns
	FormatM2        OutputFormat = "m2"        // M2 format: Toko, SKU, HPP, final_updated_regular_po_qty
	FormatEmergency OutputFormat = "emergency" // Emergency PO: Brand, SKU, Nama, Toko, HPP, emergency_po_qty, emergency_po_cost
)

// Formats lists the per-store output variants in write order.
var Formats = []OutputFormat{FormatComplete, FormatM2, FormatEmergency}
