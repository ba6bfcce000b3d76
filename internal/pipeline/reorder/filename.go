package reorder

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Reserved upload names holding reference data rather than store files.
const (
	SupplierFileName     = "supplier_data.csv"
	ContributionFileName = "store_contribution.csv"
)

// SnapshotDateLayout is the date prefix the Drive importer puts on file names.
const SnapshotDateLayout = "20060102"

var (
	storeKeywordRe = regexp.MustCompile(`(?i)glam\s+(.+)`)
	leadingJunkRe  = regexp.MustCompile(`^[\d.\s]+`)
)

// StoreNameFromFilename derives the upper-cased store name from a store file
// name: "002 Miss Glam Pekanbaru.csv" becomes "PEKANBARU".
func StoreNameFromFilename(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = stripSnapshotPrefix(name)

	if m := storeKeywordRe.FindStringSubmatch(name); m != nil {
		location := strings.TrimSpace(leadingJunkRe.ReplaceAllString(strings.TrimSpace(m[1]), ""))
		return strings.ToUpper(location)
	}

	parts := strings.Fields(name)
	if len(parts) > 1 {
		// Fallback: drop the first token (often a sequence number)
		return strings.ToUpper(strings.Join(parts[1:], " "))
	}
	return strings.ToUpper(strings.TrimSpace(name))
}

// stripSnapshotPrefix removes a leading "YYYYMMDD_" prefix.
func stripSnapshotPrefix(name string) string {
	layout := SnapshotDateLayout
	if len(name) > len(layout)+1 && name[len(layout)] == '_' {
		if _, err := time.Parse(layout, name[:len(layout)]); err == nil {
			return name[len(layout)+1:]
		}
	}
	return name
}

// IsReferenceFile reports whether name looks like the reference store's file.
func IsReferenceFile(name string) bool {
	lower := strings.ToLower(filepath.Base(name))
	return strings.Contains(lower, "padang") && strings.Contains(lower, "miss") && strings.Contains(lower, "glam")
}

// IsReservedFile reports whether name is one of the reference data uploads.
func IsReservedFile(name string) bool {
	return ReservedKind(name) != ""
}

// ReservedKind returns SupplierFileName or ContributionFileName when name is
// that reference upload, and "" for store files.
func ReservedKind(name string) string {
	switch n := reservedName(name); n {
	case SupplierFileName, ContributionFileName:
		return n
	}
	return ""
}

// reservedName is the lower-cased base name without a snapshot prefix.
func reservedName(path string) string {
	return stripSnapshotPrefix(strings.ToLower(filepath.Base(path)))
}

// DetectReferenceFile returns the first reference store file among paths.
func DetectReferenceFile(paths []string) (string, bool) {
	for _, p := range paths {
		if IsReservedFile(p) {
			continue
		}
		if IsReferenceFile(p) {
			return p, true
		}
	}
	return "", false
}
