// Package main wires a bpmastats run end to end: read the workbook, extract
// and merge the records, resolve species, render the upserts and deliver
// them to the configured targets. This file depends on storage through the
// registry only and never imports database drivers directly.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"bpmastats/internal/artifact"
	"bpmastats/internal/config"
	"bpmastats/internal/ddl"
	"bpmastats/internal/extract"
	"bpmastats/internal/grid"
	"bpmastats/internal/layout"
	"bpmastats/internal/merge"
	"bpmastats/internal/metrics"
	"bpmastats/internal/postgrest"
	"bpmastats/internal/report"
	"bpmastats/internal/resolve"
	"bpmastats/internal/schema"
	"bpmastats/internal/sqlgen"
	"bpmastats/internal/storage"
)

// errWriteFailures marks a run that finished with failed natural keys.
var errWriteFailures = errors.New("some records failed to load")

// Function variables used as test seams.
var (
	openWorkbookFn = grid.Open

	newRepositoryFn = func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return storage.New(ctx, cfg)
	}

	newSinkFn = newSink

	newRESTClientFn = postgrest.NewClient

	nowFn = time.Now
)

// runtimeConfig holds the resolved batching configuration: pipeline value,
// then environment variable (12-factor style), then built-in default.
type runtimeConfig struct {
	batchSize       int
	rescueBatchSize int
	dimBatchSize    int
	partSize        int
	maxIssues       int
}

func newRuntimeConfig(p config.Pipeline) runtimeConfig {
	return runtimeConfig{
		batchSize:       pickInt(p.Runtime.BatchSize, getenvInt("BPMA_BATCH_SIZE", sqlgen.DefaultBatchSize)),
		rescueBatchSize: pickInt(p.Runtime.RescueBatchSize, getenvInt("BPMA_RESCUE_BATCH_SIZE", sqlgen.DefaultRescueBatchSize)),
		dimBatchSize:    pickInt(p.Runtime.DimBatchSize, getenvInt("BPMA_DIM_BATCH_SIZE", sqlgen.DefaultDimBatchSize)),
		partSize:        pickInt(p.Runtime.PartSize, getenvInt("BPMA_PART_SIZE", sqlgen.DefaultPartSize)),
		maxIssues:       pickInt(p.Runtime.MaxIssues, getenvInt("BPMA_MAX_ISSUES", 20)),
	}
}

// tableRows pairs a descriptor with its rows, in load order.
type tableRows struct {
	desc sqlgen.TableDescriptor
	rows []sqlgen.Row
	size int
	dim  bool
}

// runState carries what the steps of one run share.
type runState struct {
	p       config.Pipeline
	rt      runtimeConfig
	verbose bool
	flavor  ddl.Flavor
	model   schema.Model
	runID   string
	started time.Time

	recs     *merge.Records
	sheets   int
	sections int
	issues   *errAgg
	tables   []tableRows

	head, body []sqlgen.Statement
	batches    int
	unmatched  int

	writeErrs *errAgg
	failed    int
}

// run executes the whole pipeline. All reads (workbook and species lookups)
// finish before the first write. The returned report is nil only when the
// run failed before anything was extracted.
func run(ctx context.Context, p config.Pipeline, verbose bool) (*report.Report, error) {
	flavor, err := p.Dialect()
	if err != nil {
		return nil, err
	}
	s := &runState{
		p:       p,
		rt:      newRuntimeConfig(p),
		verbose: verbose,
		flavor:  flavor,
		model:   schema.Model{Schema: p.Output.Schema},
		runID:   artifact.NewRunID(),
		started: nowFn(),
		recs:    merge.NewRecords(),
	}
	s.issues = newErrAgg(s.rt.maxIssues)
	s.writeErrs = newErrAgg(s.rt.maxIssues)

	log.Printf("run %s: dialect=%s batch=%d rescue_batch=%d dim_batch=%d part=%d",
		s.runID, s.flavor, s.rt.batchSize, s.rt.rescueBatchSize, s.rt.dimBatchSize, s.rt.partSize)

	if err := s.step("extract", func() error { return s.extract(ctx) }); err != nil {
		return nil, err
	}
	if err := s.step("resolve", func() error { return s.buildRows(ctx) }); err != nil {
		return nil, err
	}
	if err := s.step("render", s.render); err != nil {
		return nil, err
	}

	rep, err := report.Summarize(s.recs, p.Output.TopSpecies)
	if err != nil {
		return nil, fmt.Errorf("report: %w", err)
	}

	if p.HasTarget(config.TargetStorage) {
		if err := s.step("storage", func() error { return s.loadStorage(ctx) }); err != nil {
			return nil, err
		}
	}
	if p.HasTarget(config.TargetREST) {
		if err := s.step("rest", func() error { return s.loadREST(ctx) }); err != nil {
			return nil, err
		}
	}

	s.fillReport(&rep)
	if p.HasTarget(config.TargetFiles) {
		if err := s.step("files", func() error { return s.writeFiles(ctx, rep) }); err != nil {
			return &rep, err
		}
	}

	s.issues.log("extraction issues")
	s.writeErrs.log("write errors")
	rep.Log()

	metrics.RecordRecords(p.Job, "indicator", rep.Totals.Indicators)
	metrics.RecordRecords(p.Job, "rescue", rep.Totals.Rescues)
	metrics.RecordRecords(p.Job, "span", rep.Totals.Spans)
	metrics.RecordRecords(p.Job, "dropped", rep.Totals.Dropped)
	metrics.RecordRecords(p.Job, "overwritten", rep.Totals.Overwrites)
	metrics.RecordRecords(p.Job, "issue", rep.Totals.Issues)
	metrics.RecordRecords(p.Job, "unmatched_species", rep.Totals.Unmatched)
	metrics.RecordBatches(p.Job, s.batches)

	if s.failed > 0 {
		return &rep, fmt.Errorf("%d keys: %w", s.failed, errWriteFailures)
	}
	return &rep, nil
}

func (s *runState) step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(s.p.Job, name, err, time.Since(start))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// extract reads the selected sheets and folds their records together in
// sheet order.
func (s *runState) extract(ctx context.Context) error {
	wb, err := openWorkbookFn(ctx, s.p.Source.File.Path)
	if err != nil {
		return err
	}
	sheets, err := selectSheets(wb, s.p.Source.Sheets)
	if err != nil {
		return err
	}

	zp, err := extract.ParseZeroPolicy(s.p.Extract.ZeroPolicy)
	if err != nil {
		return err
	}
	ex := extract.New(extract.Options{
		Layout: layout.Options{
			Window:        s.p.Layout.Window,
			MonthColFrom:  s.p.Layout.MonthColFrom,
			MonthColTo:    s.p.Layout.MonthColTo,
			SkipBlankRows: s.p.Layout.SkipBlankRows,
		},
		Zero:    zp,
		Year:    s.p.Extract.Year,
		Verbose: s.verbose,
	})

	for _, sh := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := ex.Sheet(sh)
		if err != nil {
			return err
		}
		s.sheets++
		s.sections += res.Sections
		for _, iss := range res.Issues {
			s.issues.add(iss.Error())
		}
		before := s.recs.Len()
		s.recs.Add(res)
		log.Printf("extract: sheet=%s year=%d sections=%d records=%d new_keys=%d issues=%d",
			res.Sheet, res.Year, res.Sections, res.Records(), s.recs.Len()-before, len(res.Issues))
	}
	log.Printf("merge: indicators=%d rescues=%d spans=%d overwrites=%d dropped=%d",
		s.recs.Indicators.Len(), s.recs.Rescues.Len(), s.recs.Spans.Len(), s.recs.Overwrites(), s.recs.Dropped)
	return nil
}

// selectSheets returns the listed sheets in the listed order, or every sheet
// named after a year when names is empty.
func selectSheets(wb *grid.Workbook, names []string) ([]*grid.Sheet, error) {
	if len(names) > 0 {
		out := make([]*grid.Sheet, 0, len(names))
		for _, n := range names {
			sh, ok := wb.Sheet(n)
			if !ok {
				return nil, fmt.Errorf("sheet %q not found in %s", n, wb.Path)
			}
			out = append(out, sh)
		}
		return out, nil
	}
	var out []*grid.Sheet
	for _, sh := range wb.Sheets {
		if _, ok := sh.Year(); !ok {
			log.Printf("extract: skipping sheet %q: name is not a year", sh.Name())
			continue
		}
		out = append(out, sh)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: no sheet is named after a year; list sheets in source.sheets", wb.Path)
	}
	return out, nil
}

// buildRows maps the merged records to table rows. Species are resolved
// here, once per rescue record, through a cache that lives for this run.
func (s *runState) buildRows(ctx context.Context) error {
	ref, closeFn, err := s.speciesRef(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	resgate := schema.ResgateFactRows(s.recs, ref)
	if s.p.ResolverKind() != config.ResolverNone {
		for _, r := range resgate {
			if r[1] == nil {
				s.unmatched++
			}
		}
	}

	s.tables = []tableRows{
		{desc: s.model.Tempo(), rows: schema.TempoRows(schema.Periods(s.recs)), size: s.rt.dimBatchSize, dim: true},
		{desc: s.model.Indicador(), rows: schema.IndicadorRows(s.recs), size: s.rt.dimBatchSize, dim: true},
		{desc: s.model.IndicadorFact(), rows: schema.IndicadorFactRows(s.recs), size: s.rt.batchSize},
		{desc: s.model.ResgateFact(), rows: resgate, size: s.rt.rescueBatchSize},
		{desc: s.model.FeriasFact(), rows: schema.FeriasFactRows(s.recs), size: s.rt.batchSize},
	}
	return nil
}

// speciesRef builds the configured species reference and a func releasing
// whatever it opened.
func (s *runState) speciesRef(ctx context.Context) (schema.SpeciesRef, func(), error) {
	nop := func() {}
	table := s.p.Resolver.Table
	if strings.TrimSpace(table) == "" {
		table = schema.DimEspecies
	}

	var src resolve.Source
	closeFn := nop
	switch s.p.ResolverKind() {
	case config.ResolverNone:
		return nil, nop, nil
	case config.ResolverEmbedded:
		return resolve.EmbeddedRef(s.flavor, s.model.FQN(table)), nop, nil
	case config.ResolverInline:
		o := s.p.Resolver.Options
		src = resolve.NewInlineSource(o.StringMap("scientific"), o.StringMap("common"))
	case config.ResolverSQL:
		sqlSrc, err := resolve.OpenSQL(ctx, s.p.Resolver.Driver, s.p.Resolver.DSN, s.model.FQN(table))
		if err != nil {
			return nil, nop, err
		}
		src = sqlSrc
		closeFn = func() { _ = sqlSrc.Close() }
	case config.ResolverREST:
		c, err := s.restClient()
		if err != nil {
			return nil, nop, err
		}
		src = resolve.NewRESTSource(c, table)
	default:
		return nil, nop, fmt.Errorf("unknown resolver kind %q", s.p.Resolver.Kind)
	}

	cache := resolve.NewCache()
	r := resolve.New(src, s.verbose)
	ref := r.Ref(ctx, cache)
	return ref, func() {
		log.Printf("resolver: lookups=%d hits=%d errors=%d", cache.Misses, cache.Hits, cache.Errors)
		closeFn()
	}, nil
}

// render batches every table. Dimension statements form the head that
// must land in part 1.
func (s *runState) render() error {
	b := sqlgen.NewBatcher(s.flavor)
	for _, t := range s.tables {
		stmts, err := b.Batch(t.desc, t.rows, t.size)
		if err != nil {
			return err
		}
		if t.dim {
			s.head = append(s.head, stmts...)
		} else {
			s.body = append(s.body, stmts...)
		}
	}
	s.batches = b.Total()
	return nil
}

func (s *runState) statements() []sqlgen.Statement {
	return append(append([]sqlgen.Statement(nil), s.head...), s.body...)
}

func (s *runState) loadStorage(ctx context.Context) error {
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: s.p.Storage.Kind, DSN: s.p.Storage.DB.DSN})
	if err != nil {
		return fmt.Errorf("init repo: %w", err)
	}
	defer repo.Close()

	if s.p.Storage.DB.AutoCreateTable {
		stmts, err := s.model.Statements(s.flavor)
		if err != nil {
			return err
		}
		if err := storage.EnsureSchema(ctx, repo, stmts); err != nil {
			return fmt.Errorf("apply DDL: %w", err)
		}
		log.Printf("storage: schema ensured (%d statements)", len(stmts))
	}

	sum, werrs, err := storage.Apply(ctx, repo, s.statements())
	log.Printf("storage: statements=%d rows=%d replayed=%d failed=%d",
		sum.Statements, sum.Rows, sum.Replayed, sum.Failed)
	s.recordWriteErrors(werrs)
	return err
}

func (s *runState) loadREST(ctx context.Context) error {
	c, err := s.restClient()
	if err != nil {
		return err
	}
	w := postgrest.NewWriter(c)
	for _, t := range s.tables {
		if len(t.rows) == 0 {
			continue
		}
		_, werrs, err := w.Apply(ctx, t.desc, t.rows)
		s.recordWriteErrors(werrs)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *runState) restClient() (*postgrest.Client, error) {
	r := s.p.REST
	return newRESTClientFn(postgrest.Config{
		BaseURL:            r.URL,
		APIKey:             r.APIKey,
		Schema:             r.Schema,
		Timeout:            time.Duration(r.TimeoutSeconds) * time.Second,
		MaxRetries:         r.MaxRetries,
		InsecureSkipVerify: r.InsecureSkipVerify,
	})
}

func (s *runState) recordWriteErrors(werrs []*storage.WriteError) {
	perTable := map[string]int{}
	for _, we := range werrs {
		s.writeErrs.add(we.Error())
		perTable[we.Table]++
	}
	for table, n := range perTable {
		metrics.RecordWriteErrors(s.p.Job, table, n)
	}
	s.failed += len(werrs)
}

// writeFiles stores the part files, schema.sql and report.json, then the
// manifest listing them.
func (s *runState) writeFiles(ctx context.Context, rep report.Report) error {
	sink, err := newSinkFn(ctx, s.p.Output)
	if err != nil {
		return err
	}
	w := artifact.NewWriter(sink, s.runID, string(s.flavor), s.p.Source.File.Path, s.started)

	prefix := s.p.Output.Prefix
	if prefix == "" {
		prefix = s.p.Job
	}
	hdr := sqlgen.Header{
		Title:     s.p.Output.Title,
		RunID:     s.runID,
		Dialect:   s.flavor,
		Generated: s.started,
		Total:     s.batches,
	}
	for _, part := range sqlgen.Split(s.head, s.body, s.rt.partSize) {
		var buf bytes.Buffer
		if err := part.Write(&buf, hdr); err != nil {
			return err
		}
		name := sqlgen.FileName(prefix, part)
		e := artifact.Entry{Name: name, Kind: artifact.KindPart, Part: part.Index, Of: part.Count}
		if err := w.Put(ctx, e, buf.Bytes(), "application/sql"); err != nil {
			return err
		}
		first, last := part.Range()
		log.Printf("files: %s batches %d..%d", w.Location(name), first, last)
	}

	script, err := s.model.Script(s.flavor)
	if err != nil {
		return err
	}
	if err := w.Put(ctx, artifact.Entry{Name: "schema.sql", Kind: artifact.KindSchema}, []byte(script), "application/sql"); err != nil {
		return err
	}

	data, err := rep.JSON()
	if err != nil {
		return err
	}
	if err := w.Put(ctx, artifact.Entry{Name: report.FileName, Kind: artifact.KindReport}, data, "application/json"); err != nil {
		return err
	}
	if err := w.Finish(ctx); err != nil {
		return err
	}
	log.Printf("files: manifest %s (%d files)", w.Location(artifact.ManifestName), len(w.Manifest().Files))
	return nil
}

func newSink(ctx context.Context, o config.Output) (artifact.Sink, error) {
	switch strings.ToLower(strings.TrimSpace(o.Sink)) {
	case "s3":
		return artifact.NewS3Sink(ctx, artifact.S3Config{
			Bucket:          o.S3.Bucket,
			Prefix:          o.S3.Prefix,
			Region:          o.S3.Region,
			Endpoint:        o.S3.Endpoint,
			AccessKeyID:     o.S3.AccessKeyID,
			SecretAccessKey: o.S3.SecretAccessKey,
			PathStyle:       o.S3.PathStyle,
		})
	default:
		dir := o.Dir
		if dir == "" {
			dir = "out"
		}
		return artifact.FSSink{Dir: dir}, nil
	}
}

func (s *runState) fillReport(rep *report.Report) {
	rep.RunID = s.runID
	rep.Source = s.p.Source.File.Path
	rep.Generated = s.started.UTC()
	rep.Totals.Sheets = s.sheets
	rep.Totals.Sections = s.sections
	rep.Totals.Issues = s.issues.count
	rep.Totals.Statements = s.batches
	rep.Totals.Unmatched = s.unmatched
	rep.Totals.WriteErrors = s.failed
}

// getenvInt reads an int from env or returns def.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

// errAgg keeps the first limit messages and a per-message count.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

func (a *errAgg) add(msg string) {
	a.mu.Lock()
	a.buckets[msg]++
	if a.count < a.limit {
		a.first = append(a.first, msg)
	}
	a.count++
	a.mu.Unlock()
}

func (a *errAgg) log(what string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	log.Printf("%s: %d (%d distinct, showing first %d)", what, a.count, len(a.buckets), len(a.first))
	for i, s := range a.first {
		log.Printf("  #%03d: %s", i+1, s)
	}
}
