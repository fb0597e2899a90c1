// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/modgate/modgate/pkg/cueutil"
	"github.com/modgate/modgate/pkg/metadata"
	"github.com/modgate/modgate/pkg/policy"
	"github.com/modgate/modgate/pkg/scanner"
)

const tracerName = "github.com/modgate/modgate/pkg/modloader"

type (
	// Loader admits and loads the modules found in one directory.
	Loader struct {
		dir          string
		reader       metadata.Reader
		policy       *policy.Policy
		scanner      *scanner.Scanner
		runtime      Runtime
		registry     *Registry
		logger       *log.Logger
		enum         Enumerator
		extension    string
		workers      int
		maxFileSize  int64
		parseTimeout time.Duration
		auditor      Auditor
		metrics      *Metrics
		tracer       trace.Tracer
	}

	// admission is the scan outcome for one file. module and types are only
	// set when the verdict accepted the file; instantiation consumes nothing
	// else.
	admission struct {
		report *FileReport
		module *metadata.Module
		types  []*metadata.TypeDef
	}

	// sizeGuard fails the read once more than limit bytes have been consumed.
	sizeGuard struct {
		r         io.Reader
		name      string
		limit     int64
		remaining int64
	}
)

// New returns a loader for the module files in dir.
func New(dir string, opts ...Option) (*Loader, error) {
	if dir == "" {
		return nil, errors.New("modloader: mods directory must not be empty")
	}
	l := &Loader{dir: filepath.Clean(dir)}
	for _, opt := range opts {
		opt(l)
	}
	l.applyDefaults()
	if l.logger == nil {
		l.logger = log.New(io.Discard)
	}
	if l.tracer == nil {
		l.tracer = noop.NewTracerProvider().Tracer(tracerName)
	}
	l.scanner = scanner.New(l.policy)
	return l, nil
}

// Dir returns the mods directory.
func (l *Loader) Dir() string { return l.dir }

// Policy returns the active policy.
func (l *Loader) Policy() *policy.Policy { return l.policy }

// Registry returns the registry mods are loaded into.
func (l *Loader) Registry() *Registry { return l.registry }

// Mod looks up a loaded mod by identifier. A missing identifier is logged and
// reported as not found.
func (l *Loader) Mod(id string) (Mod, bool) {
	m, ok := l.registry.Lookup(id)
	if !ok {
		l.logger.Warn("mod not found", "id", id)
	}
	return m, ok
}

// Admit enumerates the candidate files and scans each one without
// instantiating anything. Only enumeration failures and cancellation are
// returned as errors; per-file outcomes are in the report.
func (l *Loader) Admit(ctx context.Context) (*Report, error) {
	report, _, err := l.admit(ctx)
	return report, err
}

// Load admits the candidate files, then instantiates and registers the
// capability types of every accepted module in file-set order. Instantiation
// and registration happen on the calling goroutine.
func (l *Loader) Load(ctx context.Context) (*Report, error) {
	ctx, span := l.tracer.Start(ctx, "modloader.Load")
	defer span.End()

	report, admissions, err := l.admit(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, err
	}

	for _, a := range admissions {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if a.module == nil {
			continue
		}
		for _, t := range a.types {
			l.instantiate(ctx, report, a, t)
		}
	}

	span.SetAttributes(attribute.Int("modgate.mods_registered", report.ModCount()))
	return report, nil
}

func (l *Loader) admit(ctx context.Context) (*Report, []admission, error) {
	report := &Report{
		RunID:  uuid.NewString(),
		Dir:    l.dir,
		Policy: l.policy.Fingerprint(),
	}

	ctx, span := l.tracer.Start(ctx, "modloader.Admit", trace.WithAttributes(
		attribute.String("modgate.run_id", report.RunID),
		attribute.String("modgate.dir", l.dir),
	))
	defer span.End()

	paths, err := l.enum.Enumerate(ctx, l.dir)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return report, nil, fmt.Errorf("enumerate %s: %w", l.dir, err)
	}
	l.logger.Debug("scanning mods", "run", report.RunID, "dir", l.dir, "files", len(paths), "workers", l.workers)

	admissions, err := l.scanAll(ctx, paths)
	if err != nil {
		return report, nil, err
	}

	for i := range admissions {
		l.record(ctx, report, &admissions[i])
	}

	span.SetAttributes(
		attribute.Int("modgate.files", len(paths)),
		attribute.Int("modgate.accepted", len(report.Accepted())),
	)
	if err := ctx.Err(); err != nil {
		return report, nil, err
	}
	return report, admissions, nil
}

// scanAll scans paths on a bounded worker pool and returns the admissions in
// path order.
func (l *Loader) scanAll(ctx context.Context, paths []string) ([]admission, error) {
	admissions := make([]admission, len(paths))
	if len(paths) == 0 {
		return admissions, nil
	}

	pool, err := ants.NewPool(min(l.workers, len(paths)))
	if err != nil {
		return nil, fmt.Errorf("create scan pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			admissions[i] = l.scanFile(ctx, path)
		})
		if submitErr != nil {
			wg.Done()
			admissions[i] = unreadableAdmission(path, fmt.Errorf("schedule scan: %w", submitErr))
		}
	}
	wg.Wait()
	return admissions, nil
}

// scanFile opens, reads and scans one file. The file is closed before it returns.
func (l *Loader) scanFile(ctx context.Context, path string) (a admission) {
	start := time.Now()
	ctx, span := l.tracer.Start(ctx, "modloader.scan", trace.WithAttributes(attribute.String("modgate.file", path)))
	defer func() {
		a.report.Duration = time.Since(start)
		span.SetAttributes(attribute.Bool("modgate.accepted", a.report.Verdict.Accepted))
		span.End()
	}()
	defer func() {
		if rec := recover(); rec != nil {
			a = unreadableAdmission(path, fmt.Errorf("scan panic: %v", rec))
		}
	}()

	name := filepath.Base(path)
	if err := ctx.Err(); err != nil {
		return unreadableAdmission(path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return unreadableAdmission(path, err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > l.maxFileSize {
		return unreadableAdmission(path, fmt.Errorf("%s: size %d exceeds maximum %d bytes: %w", name, info.Size(), l.maxFileSize, cueutil.ErrFileTooLarge))
	}

	digest := sha256.New()
	src := io.TeeReader(&sizeGuard{r: f, name: name, limit: l.maxFileSize, remaining: l.maxFileSize}, digest)

	parseCtx, cancel := context.WithTimeout(ctx, l.parseTimeout)
	defer cancel()

	module, verdict := l.scanner.ScanReader(parseCtx, l.reader, name, src)
	a = admission{report: &FileReport{Path: path, SHA256: hexDigest(digest), Verdict: verdict}}
	if module != nil {
		a.report.Module = module.Name
	}
	if !verdict.Accepted {
		if verdict.Unreadable() {
			span.RecordError(verdict.Cause)
		}
		span.SetStatus(codes.Error, verdict.FirstReason())
		return a
	}

	types, errs := CapabilityTypes(module)
	a.module = module
	a.types = types
	for _, t := range types {
		a.report.CapabilityTypes = append(a.report.CapabilityTypes, t.FullName)
	}
	a.report.Failures = append(a.report.Failures, errs...)
	return a
}

// record logs, audits and reports one admission. It runs on a single goroutine.
func (l *Loader) record(ctx context.Context, report *Report, a *admission) {
	fr := a.report
	report.Files = append(report.Files, fr)

	outcome := OutcomeAccepted
	switch {
	case fr.Verdict.Unreadable():
		outcome = OutcomeUnreadable
		l.logger.Error("unreadable mod rejected", "file", fr.Path, "err", fr.Verdict.Cause)
		report.addDiagnostic(Diagnostic{
			Severity: SeverityError,
			Code:     CodeModuleUnreadable,
			Message:  fmt.Sprintf("failed to read mod %s: %v", filepath.Base(fr.Path), fr.Verdict.Cause),
			Path:     fr.Path,
			Cause:    fr.Verdict.Cause,
		})
	case !fr.Verdict.Accepted:
		outcome = OutcomeRejected
		l.logger.Warn("mod blocked", "file", fr.Path, "reason", fr.Verdict.FirstReason())
		report.addDiagnostic(Diagnostic{
			Severity: SeverityWarning,
			Code:     CodePolicyViolation,
			Message:  fmt.Sprintf("mod %s blocked: %s", filepath.Base(fr.Path), fr.Verdict.FirstReason()),
			Path:     fr.Path,
		})
	default:
		l.logger.Debug("mod passed safety checks", "file", fr.Path, "types", len(fr.CapabilityTypes))
		for _, err := range fr.Failures {
			l.logger.Warn("export skipped", "file", fr.Path, "err", err)
			report.addDiagnostic(Diagnostic{
				Severity: SeverityWarning,
				Code:     CodeContractUnsatisfied,
				Message:  err.Error(),
				Path:     fr.Path,
				Cause:    err,
			})
		}
	}
	l.metrics.observeScan(outcome, fr.Duration)

	if l.auditor == nil {
		return
	}
	entry := AuditEntry{
		RunID:             report.RunID,
		Path:              fr.Path,
		SHA256:            fr.SHA256,
		Module:            fr.Module,
		PolicyFingerprint: report.Policy,
		Accepted:          fr.Verdict.Accepted,
		Unreadable:        fr.Verdict.Unreadable(),
		Reasons:           fr.Verdict.Reasons,
		ScannedAt:         time.Now().UTC(),
	}
	if err := l.auditor.Record(ctx, entry); err != nil {
		l.logger.Warn("audit record failed", "file", fr.Path, "err", err)
		report.addDiagnostic(Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeAuditFailed,
			Message:  fmt.Sprintf("failed to record audit entry: %v", err),
			Path:     fr.Path,
			Cause:    err,
		})
	}
}

// instantiate creates and registers one capability type of an admitted module.
func (l *Loader) instantiate(ctx context.Context, report *Report, a admission, t *metadata.TypeDef) {
	fr := a.report
	mod, err := l.construct(ctx, a.module, t)
	if err != nil {
		ierr := &InstantiationError{Path: fr.Path, TypeName: t.FullName, Cause: err}
		fr.Failures = append(fr.Failures, ierr)
		l.metrics.instantiationFailed()
		l.logger.Warn("mod type skipped", "file", fr.Path, "type", t.FullName, "err", err)
		report.addDiagnostic(Diagnostic{
			Severity: SeverityError,
			Code:     CodeInstantiationFailed,
			Message:  ierr.Error(),
			Path:     fr.Path,
			Cause:    ierr,
		})
		return
	}

	desc := Describe(mod)
	prev, replaced := l.registry.Register(mod)
	l.metrics.registered(replaced)
	fr.Mods = append(fr.Mods, desc)
	if replaced {
		l.logger.Debug("mod identifier replaced", "id", desc.ID, "previous_version", prev.ModVersion(), "file", fr.Path)
		report.addDiagnostic(Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeDuplicateIdentifier,
			Message:  fmt.Sprintf("mod %q from %s replaced an earlier registration", desc.ID, filepath.Base(fr.Path)),
			Path:     fr.Path,
		})
	}
	l.logger.Info("mod registered", "id", desc.ID, "version", desc.Version, "author", desc.Author, "file", filepath.Base(fr.Path))
}

// construct runs the runtime for t and validates the instance. Panics from
// the runtime or from the instance's accessors are returned as errors.
func (l *Loader) construct(ctx context.Context, module *metadata.Module, t *metadata.TypeDef) (mod Mod, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			mod = nil
			err = fmt.Errorf("constructor panic: %v", rec)
		}
	}()

	if !hasDefaultConstructor(t) {
		return nil, ErrNoConstructor
	}
	mod, err = l.runtime.Instantiate(ctx, module, t.FullName)
	if err != nil {
		return nil, err
	}
	if mod == nil {
		return nil, errors.New("runtime returned no instance")
	}
	if mod.ModID() == "" {
		return nil, ErrEmptyID
	}
	return mod, nil
}

func unreadableAdmission(path string, cause error) admission {
	return admission{report: &FileReport{
		Path:    path,
		Verdict: scanner.Unreadable(metadata.Unreadable(filepath.Base(path), cause)),
	}}
}

func hexDigest(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Read implements io.Reader.
func (g *sizeGuard) Read(p []byte) (int, error) {
	if g.remaining < 0 {
		return 0, g.tooLarge()
	}
	if int64(len(p)) > g.remaining+1 {
		p = p[:g.remaining+1]
	}
	n, err := g.r.Read(p)
	g.remaining -= int64(n)
	if g.remaining < 0 {
		return n, g.tooLarge()
	}
	return n, err
}

func (g *sizeGuard) tooLarge() error {
	return fmt.Errorf("%s: size exceeds maximum %d bytes: %w", g.name, g.limit, cueutil.ErrFileTooLarge)
}
