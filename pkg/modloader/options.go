// SPDX-License-Identifier: MPL-2.0

package modloader

import (
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/modgate/modgate/pkg/metadata"
	"github.com/modgate/modgate/pkg/policy"
)

const (
	// DefaultMaxFileSize bounds the bytes read from one module file (16 MiB).
	DefaultMaxFileSize int64 = 16 << 20

	// DefaultParseTimeout bounds metadata parsing of one module file.
	DefaultParseTimeout = 10 * time.Second
)

// Option configures a Loader.
type Option func(*Loader)

// WithReader sets the metadata reader. Default: metadata.ImageReader.
func WithReader(r metadata.Reader) Option {
	return func(l *Loader) { l.reader = r }
}

// WithPolicy sets the active policy. Default: policy.Default().
func WithPolicy(p *policy.Policy) Option {
	return func(l *Loader) { l.policy = p }
}

// WithRuntime sets the runtime that instantiates capability types.
// Default: an empty StaticRuntime, which fails every instantiation.
func WithRuntime(rt Runtime) Option {
	return func(l *Loader) { l.runtime = rt }
}

// WithRegistry sets the registry mods are loaded into. Default: a new Registry.
func WithRegistry(r *Registry) Option {
	return func(l *Loader) { l.registry = r }
}

// WithLogger sets the logging sink. Default: discard.
func WithLogger(logger *log.Logger) Option {
	return func(l *Loader) { l.logger = logger }
}

// WithEnumerator sets the candidate file enumerator. Default: DirEnumerator
// using the configured extension.
func WithEnumerator(e Enumerator) Option {
	return func(l *Loader) { l.enum = e }
}

// WithExtension sets the module file extension. Default: metadata.ImageExtension.
func WithExtension(ext string) Option {
	return func(l *Loader) { l.extension = ext }
}

// WithWorkers bounds the number of concurrent scans. Values <= 0 select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(l *Loader) { l.workers = n }
}

// WithMaxFileSize bounds the bytes read from one module file.
func WithMaxFileSize(n int64) Option {
	return func(l *Loader) { l.maxFileSize = n }
}

// WithParseTimeout bounds metadata parsing of one module file. A file that
// overruns it is rejected at once; the reader's decode goroutine may keep
// running until its next ctx check.
func WithParseTimeout(d time.Duration) Option {
	return func(l *Loader) { l.parseTimeout = d }
}

// WithAuditor records every verdict with a.
func WithAuditor(a Auditor) Option {
	return func(l *Loader) { l.auditor = a }
}

// WithMetrics records loader metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

// WithTracer sets the tracer for admission and load spans. Default: no-op.
func WithTracer(t trace.Tracer) Option {
	return func(l *Loader) { l.tracer = t }
}

func (l *Loader) applyDefaults() {
	if l.maxFileSize <= 0 {
		l.maxFileSize = DefaultMaxFileSize
	}
	if l.policy == nil {
		l.policy = policy.Default()
	}
	if l.reader == nil {
		l.reader = metadata.ImageReader{MaxSize: l.maxFileSize}
	}
	if l.runtime == nil {
		l.runtime = NewStaticRuntime()
	}
	if l.registry == nil {
		l.registry = NewRegistry()
	}
	if l.extension == "" {
		l.extension = metadata.ImageExtension
	}
	if l.enum == nil {
		l.enum = DirEnumerator{Extension: l.extension}
	}
	if l.workers <= 0 {
		l.workers = runtime.NumCPU()
	}
	if l.parseTimeout <= 0 {
		l.parseTimeout = DefaultParseTimeout
	}
}
