// Package pipeline drives one demo through the event source, the match
// state tracker and the aggregators, and hands the result to the output
// writer.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pable/go-cs-demostats/internal/aggregator"
	"github.com/pable/go-cs-demostats/internal/decoder"
	"github.com/pable/go-cs-demostats/internal/demo"
	"github.com/pable/go-cs-demostats/internal/events"
	"github.com/pable/go-cs-demostats/internal/log"
	"github.com/pable/go-cs-demostats/internal/metrics"
	"github.com/pable/go-cs-demostats/internal/model"
	"github.com/pable/go-cs-demostats/internal/output"
	"github.com/pable/go-cs-demostats/internal/parser"
	"github.com/pable/go-cs-demostats/internal/tracker"
)

const (
	EngineNative     = "native"
	EngineDemoinfocs = "demoinfocs"
)

var (
	ErrUnknownEngine = errors.New("unknown engine")
	ErrState         = errors.New("pipeline used out of order")
)

type State int

const (
	Uninitialized State = iota
	HeaderRead
	Streaming
	Finalized
	Aborted
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case HeaderRead:
		return "header_read"
	case Streaming:
		return "streaming"
	case Finalized:
		return "finalized"
	case Aborted:
		return "aborted"
	default:
		return "invalid"
	}
}

// Source yields the events of one demo in order. Next returns io.EOF once
// the demo is exhausted.
type Source interface {
	Engine() string
	ReadHeader() (demo.Header, error)
	Next() ([]events.Event, error)
	Close() error
}

// Env carries the collaborators shared by every pipeline in a process.
type Env struct {
	Logger  *slog.Logger
	Metrics *metrics.Collector
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return log.Discard()
	}
	return e.Logger
}

type Options struct {
	Engine       string
	ValveMatchID uint64
}

// Pipeline is single use.
type Pipeline struct {
	env     Env
	logger  *slog.Logger
	src     Source
	state   State
	tracker *tracker.Tracker
	set     *aggregator.Set
	header  demo.Header
	events  int
}

func New(src Source, env Env) *Pipeline {
	return &Pipeline{
		env:     env,
		logger:  env.logger().With(slog.String("engine", src.Engine())),
		src:     src,
		tracker: tracker.New(),
		set:     aggregator.NewSet(),
	}
}

func (p *Pipeline) State() State {
	return p.state
}

// Run consumes the whole source. On any error the pipeline is Aborted and
// the partial aggregates are dropped.
func (p *Pipeline) Run() error {
	if p.state != Uninitialized {
		return fmt.Errorf("%w: run in state %s", ErrState, p.state)
	}
	if err := p.run(); err != nil {
		p.state = Aborted
		p.set = nil
		return err
	}
	p.state = Finalized
	return nil
}

func (p *Pipeline) run() error {
	header, err := p.src.ReadHeader()
	if err != nil {
		return err
	}
	p.header = header
	p.state = HeaderRead
	p.logger.Debug("Read demo header",
		slog.String("map", header.MapName), slog.String("server", header.ServerName),
		slog.Int("build", header.BuildNum))

	p.state = Streaming
	for {
		evs, err := p.src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		for _, ev := range evs {
			if err := p.apply(ev); err != nil {
				return err
			}
		}
	}
}

func (p *Pipeline) apply(ev events.Event) error {
	p.events++
	if p.env.Metrics != nil {
		p.env.Metrics.EventCounter.With(prometheus.Labels{"kind": ev.Kind().String()}).Inc()
	}
	p.tracker.Apply(ev)
	return p.set.Apply(ev, p.tracker)
}

// Input collects the finalized state for the output writer.
func (p *Pipeline) Input(demoHash string, valveMatchID uint64) (output.MatchInput, error) {
	if p.state != Finalized {
		return output.MatchInput{}, fmt.Errorf("%w: input in state %s", ErrState, p.state)
	}
	ct, t := p.tracker.Score()
	in := output.MatchInput{
		DemoHash:     demoHash,
		Engine:       p.src.Engine(),
		Header:       p.header,
		TickRate:     p.tracker.TickRate(),
		MapName:      p.tracker.MapName(),
		RoundsPlayed: p.tracker.RoundsPlayed(),
		CTScore:      ct,
		TScore:       t,
		ValveMatchID: valveMatchID,
		Results:      p.set.Results(),
	}
	if fi, ok := p.src.(interface{ FileInfo() (demo.FileInfo, bool) }); ok {
		if info, found := fi.FileInfo(); found {
			in.FileInfo = &info
		}
	}
	return in, nil
}

// NewSource picks the event source for engine.
func NewSource(engine string, r io.Reader, env Env) (Source, error) {
	switch engine {
	case "", EngineNative:
		logger := env.logger()
		return decoder.NewSource(r, logger, func(w error) {
			logger.Warn("Skipped event", log.ErrAttr(w))
			if env.Metrics != nil {
				env.Metrics.Warning(w)
			}
		}), nil
	case EngineDemoinfocs:
		return parser.NewSource(r, env.logger()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

// Result is one processed demo.
type Result struct {
	Path     string
	Records  model.RecordSet
	Events   int
	Bytes    int64
	Duration time.Duration
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// Process runs one raw demo stream end to end. The demo hash covers every
// byte of r, including anything the source did not need to read.
func Process(r io.Reader, opts Options, env Env) (Result, error) {
	start := time.Now()
	engine := opts.Engine
	if engine == "" {
		engine = EngineNative
	}

	digest := sha256.New()
	counter := &countingWriter{}
	tee := io.TeeReader(r, io.MultiWriter(digest, counter))

	res, err := process(tee, engine, opts, env, func() string {
		return hex.EncodeToString(digest.Sum(nil))
	})
	res.Bytes = counter.n
	res.Duration = time.Since(start)

	if env.Metrics != nil {
		result := "ok"
		if err != nil {
			result = "failed"
		}
		env.Metrics.DemoCounter.With(prometheus.Labels{"engine": engine, "result": result}).Inc()
		env.Metrics.ParseDuration.With(prometheus.Labels{"engine": engine}).Observe(res.Duration.Seconds())
		env.Metrics.BytesCounter.Add(float64(counter.n))
		if err == nil {
			env.Metrics.RoundCounter.Add(float64(len(res.Records.Rounds)))
		}
	}
	return res, err
}

func process(tee io.Reader, engine string, opts Options, env Env, demoHash func() string) (Result, error) {
	src, err := NewSource(engine, tee, env)
	if err != nil {
		return Result{}, err
	}
	defer log.Closer(src)

	p := New(src, env)
	if err := p.Run(); err != nil {
		return Result{Events: p.events}, err
	}

	if _, err := io.Copy(io.Discard, tee); err != nil {
		return Result{Events: p.events}, fmt.Errorf("hash demo: %w", err)
	}

	in, err := p.Input(demoHash(), opts.ValveMatchID)
	if err != nil {
		return Result{Events: p.events}, err
	}
	rs, err := output.Build(in)
	if err != nil {
		return Result{Events: p.events}, err
	}
	return Result{Records: rs, Events: p.events}, nil
}

// ProcessFile opens path, unwrapping bzip2 and zstd, and processes it.
func ProcessFile(path string, opts Options, env Env) (Result, error) {
	rc, err := demo.Open(path)
	if err != nil {
		return Result{Path: path}, err
	}
	defer log.Closer(rc)

	res, err := Process(rc, opts, env)
	res.Path = path
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
