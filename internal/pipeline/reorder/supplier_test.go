package reorder

import "testing"

func testCatalog() []SupplierRecord {
	return []SupplierRecord{
		{IDSupplier: "S1", NamaSupplier: "Medan Wardah", NamaBrand: "Wardah", NamaStore: "Miss Glam Medan", MinPurchase: 100},
		{IDSupplier: "S2", NamaSupplier: "Padang Wardah", NamaBrand: "Wardah", NamaStore: "Miss Glam Padang", MinPurchase: 200},
		{IDSupplier: "S3", NamaSupplier: "Medan Emina", NamaBrand: "Emina", NamaStore: "Miss Glam Medan"},
		{IDSupplier: "S4", NamaSupplier: "Medan Emina Dup", NamaBrand: "Emina", NamaStore: "Miss Glam Medan"},
		{IDSupplier: "S5", NamaSupplier: "Jambi Emina", NamaBrand: "Emina", NamaStore: "Miss Glam Jambi"},
	}
}

func TestResolver_BrandStore(t *testing.T) {
	resolver := NewResolver(testCatalog(), ResolverConfig{Policy: PolicyBrandStore})

	testCases := []struct {
		name      string
		row       PORow
		wantID    string
		wantMatch SupplierMatch
	}{
		{name: "exact brand and store", row: PORow{Brand: "Wardah", Location: "MEDAN"}, wantID: "S1", wantMatch: MatchPrimary},
		{name: "duplicates keep first occurrence", row: PORow{Brand: "Emina", Location: "MEDAN"}, wantID: "S3", wantMatch: MatchPrimary},
		{name: "fallback prefers priority store", row: PORow{Brand: "Wardah", Location: "PEKANBARU"}, wantID: "S2", wantMatch: MatchFallback},
		{name: "fallback without priority supplier", row: PORow{Brand: "Emina", Location: "PEKANBARU"}, wantID: "S3", wantMatch: MatchFallback},
		{name: "store column used without location", row: PORow{Brand: "Emina", Toko: "Miss Glam Jambi"}, wantID: "S5", wantMatch: MatchPrimary},
		{name: "unknown brand", row: PORow{Brand: "Unknown", Location: "MEDAN"}, wantID: "", wantMatch: MatchNone},
		{name: "brand match is case sensitive", row: PORow{Brand: "wardah", Location: "MEDAN"}, wantID: "", wantMatch: MatchNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows := []PORow{tc.row}
			resolver.Resolve(rows)
			if rows[0].Supplier.IDSupplier != tc.wantID {
				t.Errorf("Expected supplier %q, got %q", tc.wantID, rows[0].Supplier.IDSupplier)
			}
			if rows[0].SupplierMatch != tc.wantMatch {
				t.Errorf("Expected match %s, got %s", tc.wantMatch, rows[0].SupplierMatch)
			}
		})
	}
}

func TestResolver_PrimaryNeverGetsFallbackFields(t *testing.T) {
	resolver := NewResolver(testCatalog(), ResolverConfig{})
	rows := []PORow{{Brand: "Wardah", Location: "MEDAN"}}

	summary := resolver.Resolve(rows)
	if rows[0].Supplier.NamaSupplier != "Medan Wardah" || rows[0].Supplier.MinPurchase != 100 {
		t.Errorf("Expected primary supplier fields only, got %+v", rows[0].Supplier)
	}
	if summary.Primary != 1 || summary.Fallback != 0 || summary.None != 0 {
		t.Errorf("Expected summary 1/0/0, got %+v", summary)
	}
}

func TestResolver_BrandOnly(t *testing.T) {
	resolver := NewResolver(testCatalog(), ResolverConfig{Policy: PolicyBrandOnly})

	rows := []PORow{
		{Brand: "Wardah", Location: "MEDAN"},
		{Brand: " Emina ", Location: "PADANG"},
		{Brand: "Other"},
	}
	summary := resolver.Resolve(rows)

	if rows[0].Supplier.IDSupplier != "S2" || rows[0].SupplierMatch != MatchPrimary {
		t.Errorf("Expected priority supplier S2 as primary, got %s (%s)", rows[0].Supplier.IDSupplier, rows[0].SupplierMatch)
	}
	if rows[1].Supplier.IDSupplier != "S3" || rows[1].SupplierMatch != MatchFallback {
		t.Errorf("Expected first other supplier S3 as fallback, got %s (%s)", rows[1].Supplier.IDSupplier, rows[1].SupplierMatch)
	}
	if rows[2].Supplier != (SupplierRecord{}) || rows[2].SupplierMatch != MatchNone {
		t.Errorf("Expected zero supplier, got %+v", rows[2].Supplier)
	}
	if summary.Primary != 1 || summary.Fallback != 1 || summary.None != 1 {
		t.Errorf("Expected summary 1/1/1, got %+v", summary)
	}
}

func TestResolver_EmptyCatalog(t *testing.T) {
	rows := []PORow{{Brand: "Wardah", Location: "MEDAN"}}
	summary := NewResolver(nil, ResolverConfig{}).Resolve(rows)
	if summary.None != 1 || rows[0].SupplierMatch != MatchNone {
		t.Errorf("Expected unmatched row, got %+v", summary)
	}
}

func TestParseSupplierPolicy(t *testing.T) {
	testCases := []struct {
		in      string
		want    SupplierPolicy
		wantErr bool
	}{
		{"", PolicyBrandStore, false},
		{"brand_store", PolicyBrandStore, false},
		{"BRAND_ONLY", PolicyBrandOnly, false},
		{"store", "", true},
	}
	for _, tc := range testCases {
		got, err := ParseSupplierPolicy(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseSupplierPolicy(%q): unexpected error state %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("ParseSupplierPolicy(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestNormalizeStoreNameForSupplier(t *testing.T) {
	testCases := map[string]string{
		"Miss Glam Padang":      "PADANG",
		"002 Miss Glam Padang":  "PADANG",
		"PEKANBARU":             "PEKANBARU",
		" miss glam  Kota Baru": "KOTA BARU",
		"":                      "",
	}
	for in, want := range testCases {
		if got := normalizeStoreNameForSupplier(in); got != want {
			t.Errorf("normalizeStoreNameForSupplier(%q): expected %q, got %q", in, want, got)
		}
	}
}
