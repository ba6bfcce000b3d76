package reorder

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Computed metric columns.
const (
	ColContributionPct           = "contribution_pct"
	ColContributionRatio         = "contribution_ratio"
	ColIsInPadang                = "Is in Padang"
	ColOrigDailySales            = "Orig Daily Sales"
	ColOrigMaxDailySales         = "Orig Max. Daily Sales"
	ColSafetyStock               = "Safety stock"
	ColReorderPoint              = "Reorder point"
	ColStockCover30              = "Stock cover 30 days"
	ColCurrentDaysCover          = "current_stock_days_cover"
	ColIsOpenPO                  = "is_open_po"
	ColInitialQtyPO              = "initial_qty_po"
	ColEmergencyPOQty            = "emergency_po_qty"
	ColUpdatedRegularPOQty       = "updated_regular_po_qty"
	ColFinalUpdatedRegularPOQty  = "final_updated_regular_po_qty"
	ColEmergencyPOCost           = "emergency_po_cost"
	ColFinalUpdatedRegularPOCost = "final_updated_regular_po_cost"
	ColSourceFile                = "Source File"
	ColLocation                  = "Location"
)

// ResultFileName is the combined result written at the root of the data dir.
const ResultFileName = "result.csv"

const outputDelimiter = ';'

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type cell func(r *PORow) string

type column struct {
	name   string
	render cell
}

func text(f func(r *PORow) string) cell { return f }

func number(f func(r *PORow) float64) cell {
	return func(r *PORow) string { return formatIDFloat(f(r), 2) }
}

func integer(f func(r *PORow) int) cell {
	return func(r *PORow) string { return formatIDFloat(float64(f(r)), 0) }
}

var completeColumns = []column{
	{ColBrand, text(func(r *PORow) string { return r.Brand })},
	{ColSKU, text(func(r *PORow) string { return `="` + r.SKU + `"` })},
	{ColNama, text(func(r *PORow) string { return r.Nama })},
	{ColToko, text(func(r *PORow) string { return r.Toko })},
	{ColStok, number(func(r *PORow) float64 { return r.Stock })},
	{ColDailySales, number(func(r *PORow) float64 { return r.DailySales })},
	{ColMaxDailySales, number(func(r *PORow) float64 { return r.MaxDailySales })},
	{ColOrigDailySales, number(func(r *PORow) float64 { return r.OrigDailySales })},
	{ColOrigMaxDailySales, number(func(r *PORow) float64 { return r.OrigMaxDailySales })},
	{ColLeadTime, number(func(r *PORow) float64 { return r.LeadTime })},
	{ColMaxLeadTime, number(func(r *PORow) float64 { return r.MaxLeadTime })},
	{ColMinOrder, number(func(r *PORow) float64 { return r.MinOrder })},
	{ColSedangPO, number(func(r *PORow) float64 { return r.SedangPO })},
	{ColHPP, number(func(r *PORow) float64 { return r.HPP })},
	{ColLeadTimeSedangPO, number(func(r *PORow) float64 { return r.LeadTimeSedangPO })},
	{ColContributionPct, number(func(r *PORow) float64 { return r.ContributionPct })},
	{ColContributionRatio, number(func(r *PORow) float64 { return r.ContributionRatio })},
	{ColIsInPadang, integer(func(r *PORow) int { return r.IsInPadang })},
	{ColIDSupplier, text(func(r *PORow) string { return r.Supplier.IDSupplier })},
	{ColNamaSupplier, text(func(r *PORow) string { return r.Supplier.NamaSupplier })},
	{ColIDBrand, text(func(r *PORow) string { return r.Supplier.IDBrand })},
	{ColNamaBrand, text(func(r *PORow) string { return r.Supplier.NamaBrand })},
	{ColIDStore, text(func(r *PORow) string { return r.Supplier.IDStore })},
	{ColNamaStore, text(func(r *PORow) string { return r.Supplier.NamaStore })},
	{ColHariOrder, text(func(r *PORow) string { return r.Supplier.HariOrder })},
	{ColMinPurchase, number(func(r *PORow) float64 { return r.Supplier.MinPurchase })},
	{ColTradingTerm, text(func(r *PORow) string { return r.Supplier.TradingTerm })},
	{ColPromoFactor, number(func(r *PORow) float64 { return r.Supplier.PromoFactor })},
	{ColDelayFactor, number(func(r *PORow) float64 { return r.Supplier.DelayFactor })},
	{ColSafetyStock, integer(func(r *PORow) int { return r.Metrics.SafetyStock })},
	{ColReorderPoint, integer(func(r *PORow) int { return r.Metrics.ReorderPoint })},
	{ColStockCover30, integer(func(r *PORow) int { return r.Metrics.QtyForTargetDaysCover })},
	{ColCurrentDaysCover, number(func(r *PORow) float64 { return r.Metrics.CurrentDaysStockCover })},
	{ColIsOpenPO, integer(func(r *PORow) int { return r.Metrics.IsOpenPO })},
	{ColInitialQtyPO, integer(func(r *PORow) int { return r.Metrics.InitialQtyPO })},
	{ColEmergencyPOQty, integer(func(r *PORow) int { return r.Metrics.EmergencyPOQty })},
	{ColUpdatedRegularPOQty, integer(func(r *PORow) int { return r.Metrics.UpdatedRegularPOQty })},
	{ColFinalUpdatedRegularPOQty, integer(func(r *PORow) int { return r.Metrics.FinalUpdatedRegularPOQty })},
	{ColEmergencyPOCost, number(func(r *PORow) float64 { return r.Metrics.EmergencyPOCost })},
	{ColFinalUpdatedRegularPOCost, number(func(r *PORow) float64 { return r.Metrics.FinalUpdatedRegularPOCost })},
}

// The M2 and emergency exports carry the raw SKU and ungrouped numbers.
var m2Columns = []column{
	{ColToko, text(func(r *PORow) string { return r.Toko })},
	{ColSKU, text(func(r *PORow) string { return r.SKU })},
	{ColHPP, plain(func(r *PORow) float64 { return r.HPP })},
	{ColFinalUpdatedRegularPOQty, plainInt(func(r *PORow) int { return r.Metrics.FinalUpdatedRegularPOQty })},
}

var emergencyColumns = []column{
	{ColBrand, text(func(r *PORow) string { return r.Brand })},
	{ColSKU, text(func(r *PORow) string { return r.SKU })},
	{ColNama, text(func(r *PORow) string { return r.Nama })},
	{ColToko, text(func(r *PORow) string { return r.Toko })},
	{ColHPP, plain(func(r *PORow) float64 { return r.HPP })},
	{ColEmergencyPOQty, plainInt(func(r *PORow) int { return r.Metrics.EmergencyPOQty })},
	{ColEmergencyPOCost, plain(func(r *PORow) float64 { return r.Metrics.EmergencyPOCost })},
}

func plain(f func(r *PORow) float64) cell {
	return func(r *PORow) string { return formatCommaDecimal(f(r)) }
}

func plainInt(f func(r *PORow) int) cell {
	return func(r *PORow) string { return strconv.Itoa(f(r)) }
}

func columnsFor(format OutputFormat) ([]column, error) {
	switch format {
	case FormatComplete:
		return completeColumns, nil
	case FormatM2:
		return m2Columns, nil
	case FormatEmergency:
		return emergencyColumns, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// Header returns the column labels of an output variant.
func Header(format OutputFormat) []string {
	cols, err := columnsFor(format)
	if err != nil {
		return nil
	}
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.name
	}
	return header
}

// WriteVariant renders rows as one output variant to w.
func WriteVariant(w io.Writer, format OutputFormat, rows []PORow) error {
	cols, err := columnsFor(format)
	if err != nil {
		return err
	}

	cw, flush, err := newOutputWriter(w)
	if err != nil {
		return err
	}
	if err := cw.Write(Header(format)); err != nil {
		return err
	}
	for i := range rows {
		if err := cw.Write(renderRow(cols, &rows[i])); err != nil {
			return err
		}
	}
	return flush()
}

// SourceRows are the rows produced from one input file.
type SourceRows struct {
	SourceFile string
	Location   string
	Rows       []PORow
}

// WriteCombined renders every source's rows with the complete columns plus
// Source File and Location, in the order given.
func WriteCombined(w io.Writer, sources []SourceRows) error {
	cw, flush, err := newOutputWriter(w)
	if err != nil {
		return err
	}

	header := append(Header(FormatComplete), ColSourceFile, ColLocation)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, src := range sources {
		for i := range src.Rows {
			record := append(renderRow(completeColumns, &src.Rows[i]), src.SourceFile, src.Location)
			if err := cw.Write(record); err != nil {
				return err
			}
		}
	}
	return flush()
}

func renderRow(cols []column, row *PORow) []string {
	record := make([]string, len(cols))
	for i, c := range cols {
		record[i] = c.render(row)
	}
	return record
}

func newOutputWriter(w io.Writer) (*csv.Writer, func() error, error) {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(utf8BOM); err != nil {
		return nil, nil, err
	}
	cw := csv.NewWriter(bw)
	cw.Comma = outputDelimiter
	flush := func() error {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
		return bw.Flush()
	}
	return cw, flush, nil
}

// Writer lays out output files under a data directory.
type Writer struct {
	dataDir string
}

// NewWriter creates a Writer rooted at dataDir.
func NewWriter(dataDir string) *Writer {
	return &Writer{dataDir: dataDir}
}

// DataDir returns the output root.
func (w *Writer) DataDir() string {
	return w.dataDir
}

var storeFileSanitizer = strings.NewReplacer("/", "-", "\\", "-", ":", "-")

// outputStem is the file name a store's outputs are written under, before
// the variant suffix and extension.
func outputStem(store string) string {
	name := storeFileSanitizer.Replace(strings.TrimSpace(store))
	if name == "" {
		name = "UNKNOWN"
	}
	return name
}

// Path returns the output path of a store variant.
func (w *Writer) Path(format OutputFormat, store string) string {
	name := outputStem(store)
	switch format {
	case FormatM2:
		name += "_m2"
	case FormatEmergency:
		name += "_emergency"
	}
	return filepath.Join(w.dataDir, string(format), name+".csv")
}

// ResultPath returns the combined result path.
func (w *Writer) ResultPath() string {
	return filepath.Join(w.dataDir, ResultFileName)
}

// WriteStore writes the three variants of one store and returns their paths
// keyed by format.
func (w *Writer) WriteStore(store string, rows []PORow) (map[OutputFormat]string, error) {
	paths := make(map[OutputFormat]string, len(Formats))
	for _, format := range Formats {
		path := w.Path(format, store)
		if err := writeFile(path, func(f io.Writer) error {
			return WriteVariant(f, format, rows)
		}); err != nil {
			return nil, fmt.Errorf("failed to write %s output for %s: %w", format, store, err)
		}
		paths[format] = path
	}
	return paths, nil
}

// WriteResult writes the combined result file.
func (w *Writer) WriteResult(sources []SourceRows) (string, error) {
	path := w.ResultPath()
	if err := writeFile(path, func(f io.Writer) error {
		return WriteCombined(f, sources)
	}); err != nil {
		return "", fmt.Errorf("failed to write combined result: %w", err)
	}
	return path, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
