package reorder

import (
	"errors"
	"math"
	"testing"
)

func TestInventoryCalculator_EndToEndScenario(t *testing.T) {
	row := PORow{
		Brand:            "X",
		SKU:              "1",
		Stock:            10,
		DailySales:       1,
		MaxDailySales:    2,
		LeadTime:         5,
		MaxLeadTime:      10,
		SedangPO:         0,
		LeadTimeSedangPO: DefaultLeadTimeSedangPO,
		MinOrder:         5,
		HPP:              10000,
	}

	m := NewInventoryCalculator(nil).Calculate(&row)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"SafetyStock", float64(m.SafetyStock), 15},
		{"ReorderPoint", float64(m.ReorderPoint), 20},
		{"StockCover30", float64(m.QtyForTargetDaysCover), 30},
		{"CurrentDaysStockCover", m.CurrentDaysStockCover, 10},
		{"IsOpenPO", float64(m.IsOpenPO), 1},
		{"InitialQtyPO", float64(m.InitialQtyPO), 20},
		{"EmergencyPOQty", float64(m.EmergencyPOQty), 0},
		{"UpdatedRegularPOQty", float64(m.UpdatedRegularPOQty), 20},
		{"FinalUpdatedRegularPOQty", float64(m.FinalUpdatedRegularPOQty), 20},
		{"EmergencyPOCost", m.EmergencyPOCost, 0},
		{"FinalUpdatedRegularPOCost", m.FinalUpdatedRegularPOCost, 200000},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("Expected %s %v, got %v", c.name, c.want, c.got)
		}
	}
}

func TestInventoryCalculator_OpenPOBoundary(t *testing.T) {
	// Safety stock 0 and reorder point 30, so only the days cover decides.
	base := PORow{DailySales: 1, MaxDailySales: 1, LeadTime: 30, MaxLeadTime: 30}

	testCases := []struct {
		name     string
		stock    float64
		wantOpen int
	}{
		{name: "cover exactly 30 days", stock: 30, wantOpen: 0},
		{name: "cover just under 30 days", stock: 29, wantOpen: 1},
		{name: "stock above reorder point", stock: 31, wantOpen: 0},
	}

	calc := NewInventoryCalculator(nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row := base
			row.Stock = tc.stock
			m := calc.Calculate(&row)
			if m.ReorderPoint != 30 {
				t.Fatalf("Expected reorder point 30, got %d", m.ReorderPoint)
			}
			if m.IsOpenPO != tc.wantOpen {
				t.Errorf("Expected open PO %d at cover %v, got %d", tc.wantOpen, m.CurrentDaysStockCover, m.IsOpenPO)
			}
		})
	}
}

func TestInventoryCalculator_ZeroDailySales(t *testing.T) {
	row := PORow{Stock: 50, MaxDailySales: 3, MaxLeadTime: 7, LeadTime: 3}
	m := NewInventoryCalculator(nil).Calculate(&row)

	if m.CurrentDaysStockCover != 0 {
		t.Errorf("Expected days cover 0 with no daily sales, got %v", m.CurrentDaysStockCover)
	}
	if math.IsNaN(m.CurrentDaysStockCover) || math.IsInf(m.CurrentDaysStockCover, 0) {
		t.Errorf("Expected finite days cover, got %v", m.CurrentDaysStockCover)
	}
	if m.EmergencyPOQty != 0 {
		t.Errorf("Expected emergency qty 0 with no daily sales, got %d", m.EmergencyPOQty)
	}
}

func TestInventoryCalculator_Quantities(t *testing.T) {
	testCases := []struct {
		name          string
		row           PORow
		wantEmergency int
		wantUpdated   int
		wantFinal     int
	}{
		{
			name:          "min order lifts small regular qty",
			row:           PORow{Stock: 25, DailySales: 1, MaxDailySales: 1, LeadTime: 26, MaxLeadTime: 26, MinOrder: 12},
			wantEmergency: 1,
			wantUpdated:   4,
			wantFinal:     12,
		},
		{
			name:          "on order uses lead time sedang po and truncates",
			row:           PORow{Stock: 2, DailySales: 1.5, MaxDailySales: 1.5, LeadTime: 10, MaxLeadTime: 10, SedangPO: 3, LeadTimeSedangPO: 5, MinOrder: 1},
			wantEmergency: 5,
			wantUpdated:   35,
			wantFinal:     35,
		},
		{
			name:          "emergency larger than initial clips regular to zero",
			row:           PORow{Stock: 0, DailySales: 1, MaxDailySales: 1, LeadTime: 40, MaxLeadTime: 40, MinOrder: 10},
			wantEmergency: 40,
			wantUpdated:   0,
			wantFinal:     0,
		},
		{
			name:          "no order when well stocked",
			row:           PORow{Stock: 500, DailySales: 2, MaxDailySales: 3, LeadTime: 5, MaxLeadTime: 7, MinOrder: 10},
			wantEmergency: 0,
			wantUpdated:   0,
			wantFinal:     0,
		},
	}

	calc := NewInventoryCalculator(nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			row := tc.row
			m := calc.Calculate(&row)
			if m.EmergencyPOQty != tc.wantEmergency {
				t.Errorf("Expected emergency qty %d, got %d", tc.wantEmergency, m.EmergencyPOQty)
			}
			if m.UpdatedRegularPOQty != tc.wantUpdated {
				t.Errorf("Expected updated regular qty %d, got %d", tc.wantUpdated, m.UpdatedRegularPOQty)
			}
			if m.FinalUpdatedRegularPOQty != tc.wantFinal {
				t.Errorf("Expected final regular qty %d, got %d", tc.wantFinal, m.FinalUpdatedRegularPOQty)
			}
			if m.EmergencyPOQty < 0 || m.FinalUpdatedRegularPOQty < 0 {
				t.Errorf("Expected non-negative quantities, got %+v", m)
			}
			if m.UpdatedRegularPOQty > 0 && float64(m.UpdatedRegularPOQty) < row.MinOrder && float64(m.FinalUpdatedRegularPOQty) < row.MinOrder {
				t.Errorf("Expected min order %v enforced, got %d", row.MinOrder, m.FinalUpdatedRegularPOQty)
			}
		})
	}
}

func TestInventoryCalculator_SafetyStockKeepsSign(t *testing.T) {
	row := PORow{DailySales: 4, LeadTime: 5, MaxDailySales: 1, MaxLeadTime: 5}
	m := NewInventoryCalculator(nil).Calculate(&row)
	if m.SafetyStock != -15 {
		t.Errorf("Expected safety stock -15, got %d", m.SafetyStock)
	}
	if m.ReorderPoint != 5 {
		t.Errorf("Expected reorder point 5, got %d", m.ReorderPoint)
	}
}

func TestInventoryCalculator_SpecialSKU(t *testing.T) {
	calc := NewInventoryCalculator(map[string]bool{"SP-1": true})
	row := PORow{SKU: "SP-1", DailySales: 2}
	m := calc.Calculate(&row)
	if m.TargetDaysCover != SpecialTargetDaysCover {
		t.Errorf("Expected target days %d, got %d", SpecialTargetDaysCover, m.TargetDaysCover)
	}
	if m.QtyForTargetDaysCover != 120 {
		t.Errorf("Expected qty for target 120, got %d", m.QtyForTargetDaysCover)
	}
}

func TestInventoryCalculator_CostRounding(t *testing.T) {
	row := PORow{Stock: 0, DailySales: 1, MaxDailySales: 1, LeadTime: 1, MaxLeadTime: 1, HPP: 1234.5678}
	m := NewInventoryCalculator(nil).Calculate(&row)
	if m.FinalUpdatedRegularPOQty != 29 {
		t.Fatalf("Expected final qty 29, got %d", m.FinalUpdatedRegularPOQty)
	}
	if m.FinalUpdatedRegularPOCost != 35802.47 {
		t.Errorf("Expected cost 35802.47, got %v", m.FinalUpdatedRegularPOCost)
	}
}

func TestInventoryCalculator_CalculateAllRejectsNonFinite(t *testing.T) {
	rows := []PORow{
		{SKU: "ok", DailySales: 1},
		{SKU: "bad", DailySales: math.Inf(1)},
	}
	err := NewInventoryCalculator(nil).CalculateAll(rows)
	if !errors.Is(err, ErrComputation) {
		t.Fatalf("Expected ErrComputation, got %v", err)
	}
}

func TestBatchSummary_Add(t *testing.T) {
	testCases := []struct {
		name          string
		metrics       []InventoryMetrics
		expectedItems int
	}{
		{"regular order counted", []InventoryMetrics{{FinalUpdatedRegularPOQty: 4}}, 1},
		{"emergency only not counted", []InventoryMetrics{{EmergencyPOQty: 3, EmergencyPOCost: 300}}, 0},
		{"both counted once", []InventoryMetrics{{FinalUpdatedRegularPOQty: 2, EmergencyPOQty: 1}}, 1},
		{"nothing to order", []InventoryMetrics{{}, {}}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows := make([]PORow, len(tc.metrics))
			for i, m := range tc.metrics {
				rows[i].Metrics = m
			}
			var s BatchSummary
			s.Add(rows)
			if s.ItemsToOrder != tc.expectedItems {
				t.Errorf("Expected %d items to order, got %d", tc.expectedItems, s.ItemsToOrder)
			}
			if s.TotalSKUs != len(rows) {
				t.Errorf("Expected %d SKUs, got %d", len(rows), s.TotalSKUs)
			}
		})
	}
}
