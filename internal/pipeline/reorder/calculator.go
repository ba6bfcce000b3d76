package reorder

import (
	"fmt"
	"math"
)

const (
	// DefaultTargetDaysCover is the stock cover ordered for regular SKUs.
	DefaultTargetDaysCover = 30
	// SpecialTargetDaysCover is the stock cover ordered for special SKUs.
	SpecialTargetDaysCover = 60
)

// InventoryCalculator calculates reorder metrics for PO rows.
type InventoryCalculator struct {
	specialSKUs map[string]bool
}

// NewInventoryCalculator creates a new inventory calculator. SKUs in
// specialSKUs target SpecialTargetDaysCover instead of the default.
func NewInventoryCalculator(specialSKUs map[string]bool) *InventoryCalculator {
	return &InventoryCalculator{
		specialSKUs: specialSKUs,
	}
}

// Calculate computes all inventory metrics for one row.
func (ic *InventoryCalculator) Calculate(row *PORow) InventoryMetrics {
	metrics := InventoryMetrics{}

	// 1. Safety stock = (Max Daily Sales × Max Lead Time) - (Daily Sales × Lead Time)
	safetyStock := (row.MaxDailySales * row.MaxLeadTime) - (row.DailySales * row.LeadTime)
	metrics.SafetyStock = toInt(math.Ceil(safetyStock))

	// 2. Reorder point = (Daily Sales × Lead Time) + Safety Stock
	reorderPoint := (row.DailySales * row.LeadTime) + float64(metrics.SafetyStock)
	metrics.ReorderPoint = toInt(math.Ceil(reorderPoint))

	// 3. Target days cover (30 or 60 days based on special SKUs)
	metrics.TargetDaysCover = DefaultTargetDaysCover
	if ic.specialSKUs[row.SKU] {
		metrics.TargetDaysCover = SpecialTargetDaysCover
	}

	// 4. Quantity for target days cover
	metrics.QtyForTargetDaysCover = toInt(math.Ceil(row.DailySales * float64(metrics.TargetDaysCover)))

	// 5. Current days stock cover
	if row.DailySales > 0 {
		metrics.CurrentDaysStockCover = finiteOrZero(row.Stock / row.DailySales)
	}

	// 6. Is open PO flag
	if metrics.CurrentDaysStockCover < float64(metrics.TargetDaysCover) &&
		row.Stock <= float64(metrics.ReorderPoint) {
		metrics.IsOpenPO = 1
	}

	// 7. Initial PO quantity
	if metrics.IsOpenPO == 1 {
		initialQty := float64(metrics.QtyForTargetDaysCover) - row.Stock - row.SedangPO
		metrics.InitialQtyPO = toInt(math.Max(0, initialQty))
	}

	// 8. Emergency PO quantity
	var emergencyQty float64
	if row.SedangPO > 0 {
		emergencyQty = math.Max(0, (row.LeadTimeSedangPO-metrics.CurrentDaysStockCover)*row.DailySales)
	} else {
		emergencyQty = math.Ceil((row.MaxLeadTime - metrics.CurrentDaysStockCover) * row.DailySales)
	}
	metrics.EmergencyPOQty = toInt(math.Max(0, finiteOrZero(emergencyQty)))

	// 9. Updated regular PO quantity
	metrics.UpdatedRegularPOQty = max(0, metrics.InitialQtyPO-metrics.EmergencyPOQty)

	// 10. Final updated regular PO quantity (enforce minimum order)
	if metrics.UpdatedRegularPOQty > 0 && float64(metrics.UpdatedRegularPOQty) < row.MinOrder {
		metrics.FinalUpdatedRegularPOQty = toInt(row.MinOrder)
	} else {
		metrics.FinalUpdatedRegularPOQty = metrics.UpdatedRegularPOQty
	}

	// 11. Calculate costs
	metrics.EmergencyPOCost = roundCost(float64(metrics.EmergencyPOQty) * row.HPP)
	metrics.FinalUpdatedRegularPOCost = roundCost(float64(metrics.FinalUpdatedRegularPOQty) * row.HPP)

	return metrics
}

// CalculateAll computes the metrics of every row in place. It fails with
// ErrComputation when a row carries non-finite inputs.
func (ic *InventoryCalculator) CalculateAll(rows []PORow) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrComputation, r)
		}
	}()

	for i := range rows {
		if field, ok := nonFiniteInput(&rows[i]); ok {
			return fmt.Errorf("%w: row %d (SKU %q) has non-finite %s", ErrComputation, i+1, rows[i].SKU, field)
		}
		rows[i].Metrics = ic.Calculate(&rows[i])
	}
	return nil
}

func nonFiniteInput(row *PORow) (string, bool) {
	inputs := []struct {
		name string
		v    float64
	}{
		{ColStok, row.Stock},
		{ColDailySales, row.DailySales},
		{ColMaxDailySales, row.MaxDailySales},
		{ColLeadTime, row.LeadTime},
		{ColMaxLeadTime, row.MaxLeadTime},
		{ColSedangPO, row.SedangPO},
		{ColLeadTimeSedangPO, row.LeadTimeSedangPO},
		{ColMinOrder, row.MinOrder},
		{ColHPP, row.HPP},
	}
	for _, in := range inputs {
		if math.IsNaN(in.v) || math.IsInf(in.v, 0) {
			return in.name, true
		}
	}
	return "", false
}
