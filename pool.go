package tex2html

import (
	"errors"
	"runtime"
	"sync"

	"github.com/alnah/go-tex2html/internal/pipeline"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps concurrent pandoc processes and, for PDF export,
	// browser instances (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for pandoc and Chrome child processes.
	cpuDivisor = 2
)

// ConverterPool bounds concurrent conversions for batch builds.
// Converters are created lazily on first acquire and share one engine, so
// pandoc is located once per pool. Each converter owns its own browser for
// PDF export.
type ConverterPool struct {
	size       int
	opts       []Option
	converters []*Converter
	sem        chan *Converter
	mu         sync.Mutex
	created    int
	closed     bool
}

// NewConverterPool creates a pool with capacity for n converters built
// with opts.
func NewConverterPool(n int, opts ...Option) *ConverterPool {
	if n < 1 {
		n = 1
	}

	p := &ConverterPool{
		size:       n,
		converters: make([]*Converter, 0, n),
		sem:        make(chan *Converter, n),
	}

	probe := &Converter{cfg: converterConfig{math: MathMathML, timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(probe)
	}
	if probe.cfg.engine == nil && probe.cfg.loader == nil {
		pandoc := &pipeline.PandocLoader{Runner: probe.cfg.runner, Options: probe.engineOptions()}
		opts = append(opts, withLoader(pipeline.NewEngineLoader(pandoc.Load)))
	}
	p.opts = opts
	return p
}

// Acquire gets a converter from the pool, creating one if needed.
// Blocks if all converters are in use.
func (p *ConverterPool) Acquire() (*Converter, error) {
	select {
	case conv := <-p.sem:
		return conv, nil
	default:
	}

	p.mu.Lock()
	if p.created < p.size {
		p.created++
		p.mu.Unlock()

		conv, err := NewConverter(p.opts...)
		if err != nil {
			p.mu.Lock()
			p.created--
			p.mu.Unlock()
			return nil, err
		}

		p.mu.Lock()
		p.converters = append(p.converters, conv)
		p.mu.Unlock()
		return conv, nil
	}
	p.mu.Unlock()

	conv, ok := <-p.sem
	if !ok {
		return nil, errors.New("converter pool closed")
	}
	return conv, nil
}

// Release returns a converter to the pool.
func (p *ConverterPool) Release(conv *Converter) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.sem <- conv
}

// Close releases all browser resources.
// Returns an aggregated error if multiple converters fail to close.
func (p *ConverterPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.sem)
	converters := p.converters
	p.mu.Unlock()

	var errs []error
	for _, conv := range converters {
		if err := conv.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Size returns the pool capacity.
func (p *ConverterPool) Size() int {
	return p.size
}

// ResolvePoolSize determines the pool size.
// Priority: explicit workers > GOMAXPROCS-based calculation.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is container-aware once automaxprocs has run
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
