package reorder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-go/internal/ingest"
	"github.com/andresuchdata/autopo-go/internal/pipeline"
)

// ProcessorName identifies the reorder pipeline in logs and job records.
const ProcessorName = "reorder"

var supportedExtensions = map[string]bool{
	".csv":  true,
	".txt":  true,
	".xlsx": true,
	".xlsm": true,
}

// Config holds configuration for the reorder pipeline
type Config struct {
	Ingest      ingest.Config
	Normalize   NormalizeOptions
	Resolver    ResolverConfig
	SpecialSKUs map[string]bool // SKUs that need 60 days cover instead of 30
	WorkerCount int
	DataDir     string // Output root; empty disables file output
}

// DefaultConfig returns the configuration used by the server and CLI.
func DefaultConfig(dataDir string) Config {
	return Config{
		Ingest:      ingest.DefaultConfig(),
		Resolver:    ResolverConfig{Policy: PolicyBrandStore, PriorityStore: DefaultPriorityStore},
		WorkerCount: runtime.NumCPU(),
		DataDir:     dataDir,
	}
}

// References is the read-only reference data shared by every file of a run.
type References struct {
	Catalog       []SupplierRecord
	Contributions ContributionTable
	Sales         ReferenceSales
	Stores        map[string]StoreOverride // keyed by input path
}

// StoreOverride pins the store name or contribution percentage of one input
// file instead of deriving them from its name and the contribution table.
type StoreOverride struct {
	Name            string
	ContributionPct *float64
}

// ReferencePaths locates the reference data of a run. Empty paths are skipped.
type ReferencePaths struct {
	SupplierPath     string
	ContributionPath string
	ReferencePath    string
}

// LoadReferences loads every reference dataset. Failures degrade to empty
// lookups.
func LoadReferences(paths ReferencePaths, cfg ingest.Config) References {
	refs := References{
		Catalog:       LoadSupplierCatalog(paths.SupplierPath),
		Contributions: LoadContributions(paths.ContributionPath),
	}

	if paths.ReferencePath != "" {
		sales, err := LoadReferenceSales(paths.ReferencePath, cfg)
		if err != nil {
			log.Warn().Str("file", paths.ReferencePath).Err(err).Msg("reference sales unavailable, skipping override")
		} else {
			refs.Sales = sales
		}
	}
	return refs
}

// FileOutput is the result of processing one store file.
type FileOutput struct {
	SourceFile      string
	Path            string
	Location        string
	ContributionPct float64
	Rows            []PORow
	Summary         ProcessingSummary
	Outputs         map[OutputFormat]string
}

// Processor runs ingest, normalization, supplier resolution, metrics and
// output for store files. It implements pipeline.FileProcessor.
type Processor struct {
	cfg        Config
	refs       References
	reader     *ingest.Reader
	resolver   *Resolver
	calculator *InventoryCalculator
	writer     *Writer
	outputs    map[string]string // input path -> output name, set per run
}

// NewProcessor creates a processor over immutable reference data.
func NewProcessor(cfg Config, refs References) *Processor {
	if refs.Contributions == nil {
		refs.Contributions = ContributionTable{}
	}
	p := &Processor{
		cfg:        cfg,
		refs:       refs,
		reader:     ingest.NewReader(cfg.Ingest),
		resolver:   NewResolver(refs.Catalog, cfg.Resolver),
		calculator: NewInventoryCalculator(cfg.SpecialSKUs),
	}
	if cfg.DataDir != "" {
		p.writer = NewWriter(cfg.DataDir)
	}
	return p
}

// Name returns the unique identifier of this pipeline.
func (p *Processor) Name() string {
	return ProcessorName
}

// Validate performs basic validation on the input file.
func (p *Processor) Validate(inputFile string) error {
	info, err := os.Stat(inputFile)
	if err != nil {
		return fmt.Errorf("cannot stat input file %s: %w", inputFile, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input path %s is a directory, expected file", inputFile)
	}
	ext := strings.ToLower(filepath.Ext(inputFile))
	if !supportedExtensions[ext] {
		return fmt.Errorf("unsupported file extension %s for %s", ext, inputFile)
	}
	return nil
}

// Process handles one store file end to end.
func (p *Processor) Process(ctx context.Context, inputFile string) (*FileOutput, error) {
	start := time.Now()
	fileName := filepath.Base(inputFile)
	location, pct := p.storeOf(inputFile)

	table, err := p.reader.Read(inputFile)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := Normalize(table, location, pct, p.refs.Sales, p.cfg.Normalize)
	if err != nil {
		return nil, err
	}

	matches := p.resolver.Resolve(rows)

	if err := p.calculator.CalculateAll(rows); err != nil {
		return nil, err
	}

	out := &FileOutput{
		SourceFile:      fileName,
		Path:            inputFile,
		Location:        location,
		ContributionPct: pct,
		Rows:            rows,
	}

	if p.writer != nil {
		out.Outputs, err = p.writer.WriteStore(p.outputName(inputFile, location), rows)
		if err != nil {
			return nil, err
		}
	}

	out.Summary = ProcessingSummary{
		FileName:        fileName,
		Location:        location,
		ContributionPct: pct,
		TotalRows:       len(rows),
		PrimaryMatches:  matches.Primary,
		FallbackMatches: matches.Fallback,
		NoSupplier:      matches.None,
		Status:          "success",
		ProcessingTime:  time.Since(start),
	}

	log.Info().
		Str("file", fileName).
		Str("location", location).
		Float64("contribution_pct", pct).
		Int("rows", len(rows)).
		Int("primary_suppliers", matches.Primary).
		Int("fallback_suppliers", matches.Fallback).
		Int("no_supplier", matches.None).
		Msg("processed store file")

	return out, nil
}

// locationOf returns the store name of an input file.
func (p *Processor) locationOf(inputFile string) string {
	if name := strings.TrimSpace(p.refs.Stores[inputFile].Name); name != "" {
		return strings.ToUpper(name)
	}
	return StoreNameFromFilename(filepath.Base(inputFile))
}

// outputName is the name the outputs of inputFile are written under. It is
// the store name unless an earlier input of the run already claimed it.
func (p *Processor) outputName(inputFile, location string) string {
	if name, ok := p.outputs[inputFile]; ok {
		return name
	}
	return location
}

// assignOutputNames gives every file a distinct output name in input order.
// The first file of a store keeps the store name, later ones get _2, _3...
func (p *Processor) assignOutputNames(files []string) map[string]string {
	names := make(map[string]string, len(files))
	taken := make(map[string]bool, len(files))
	for _, f := range files {
		base := p.locationOf(f)
		name := base
		for n := 2; taken[outputStem(name)]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		if name != base {
			log.Warn().Str("file", filepath.Base(f)).Str("location", base).Str("output", name).
				Msg("store already has an input in this batch, writing under a suffixed name")
		}
		taken[outputStem(name)] = true
		names[f] = name
	}
	return names
}

// storeOf returns the store name and contribution percentage of an input file.
func (p *Processor) storeOf(inputFile string) (string, float64) {
	fileName := filepath.Base(inputFile)
	override := p.refs.Stores[inputFile]
	location := p.locationOf(inputFile)

	if override.ContributionPct != nil {
		return location, *override.ContributionPct
	}
	pct, ok := p.refs.Contributions.Lookup(location)
	if !ok {
		if len(p.refs.Contributions) > 0 {
			log.Warn().Str("file", fileName).Str("location", location).Msg("no contribution pct found, defaulting to 100")
		}
		pct = p.refs.Contributions.Pct(location)
	}
	return location, pct
}

// BatchOutput is the outcome of a batch run.
type BatchOutput struct {
	Files      []*FileOutput
	Errors     []*pipeline.FileError
	Summaries  []ProcessingSummary
	Summary    BatchSummary
	ResultPath string
}

// Run processes store files concurrently, then writes the combined result
// for the files that succeeded, in input order.
func (p *Processor) Run(ctx context.Context, files []string, observer pipeline.Observer) (*BatchOutput, error) {
	storeFiles := make([]string, 0, len(files))
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if IsReservedFile(f) {
			continue
		}
		if seen[f] {
			log.Warn().Str("file", f).Msg("duplicate input file, processing it once")
			continue
		}
		seen[f] = true
		storeFiles = append(storeFiles, f)
	}

	// Output names belong to this run; p itself is not mutated.
	bp := *p
	bp.outputs = p.assignOutputNames(storeFiles)

	runner := pipeline.NewBatchRunner[*FileOutput](&bp, pipeline.BatchConfig{
		Name:        ProcessorName,
		WorkerCount: p.cfg.WorkerCount,
	}, observer)

	res, runErr := runner.Run(ctx, storeFiles)

	out := &BatchOutput{Errors: res.Errors()}
	for _, r := range res.Results {
		if !r.OK() {
			out.Summaries = append(out.Summaries, ProcessingSummary{
				FileName:       filepath.Base(r.File),
				Location:       StoreNameFromFilename(r.File),
				Status:         "error",
				Error:          r.Err.Error(),
				ProcessingTime: r.Duration,
			})
			continue
		}
		out.Files = append(out.Files, r.Value)
		out.Summaries = append(out.Summaries, r.Value.Summary)
		out.Summary.Add(r.Value.Rows)
	}
	if runErr != nil {
		return out, runErr
	}

	if p.writer != nil {
		sources := make([]SourceRows, 0, len(out.Files))
		for _, f := range out.Files {
			sources = append(sources, SourceRows{SourceFile: f.SourceFile, Location: f.Location, Rows: f.Rows})
		}
		path, err := p.writer.WriteResult(sources)
		if err != nil {
			return out, err
		}
		out.ResultPath = path
	}

	return out, nil
}

// BatchInput describes one batch: the uploaded files plus optional explicit
// reference data. Reserved names among Files are used as reference data.
type BatchInput struct {
	Files            []string
	SupplierPath     string
	ContributionPath string
	ReferencePath    string
	Stores           map[string]StoreOverride
}

// ResolveReferencePaths fills reference paths missing from in using the
// reserved names and the reference store file found among the inputs.
func ResolveReferencePaths(in BatchInput) ReferencePaths {
	paths := ReferencePaths{
		SupplierPath:     in.SupplierPath,
		ContributionPath: in.ContributionPath,
		ReferencePath:    in.ReferencePath,
	}
	for _, f := range in.Files {
		switch reservedName(f) {
		case SupplierFileName:
			if paths.SupplierPath == "" {
				paths.SupplierPath = f
			}
		case ContributionFileName:
			if paths.ContributionPath == "" {
				paths.ContributionPath = f
			}
		}
	}
	if paths.ReferencePath == "" {
		if ref, ok := DetectReferenceFile(in.Files); ok {
			log.Info().Str("file", filepath.Base(ref)).Msg("found reference store file")
			paths.ReferencePath = ref
		}
	}
	return paths
}

// RunBatch loads the reference data of in and processes its store files.
func RunBatch(ctx context.Context, cfg Config, in BatchInput, observer pipeline.Observer) (*BatchOutput, error) {
	refs := LoadReferences(ResolveReferencePaths(in), cfg.Ingest)
	refs.Stores = in.Stores
	return NewProcessor(cfg, refs).Run(ctx, in.Files, observer)
}
