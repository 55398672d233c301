package profiling

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

// stat aggregates every span recorded under one name.
type stat struct {
	name  string
	count int
	total time.Duration
	max   time.Duration
	first time.Time
}

// Profiler aggregates timed spans by name. Spans may be started and stopped
// from any goroutine, so concurrent compilers can share one profiler.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	started time.Time
	stats   map[string]*stat
}

var defaultProfiler = &Profiler{}

// Enable turns on the global profiler.
func Enable() { defaultProfiler.Enable() }

// Start begins a span on the global profiler.
func Start(name string) Stopper { return defaultProfiler.Start(name) }

// Summarize writes the global profiler's table to w.
func Summarize(w io.Writer) { defaultProfiler.Summarize(w) }

// Enable starts collecting. Calling it again keeps collected spans.
func (p *Profiler) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.enabled {
		return
	}
	p.enabled = true
	p.started = time.Now()
	p.stats = make(map[string]*stat)
}

// Enabled reports whether spans are being recorded.
func (p *Profiler) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// Start begins a span. Stop it exactly once, usually via defer.
func (p *Profiler) Start(name string) Stopper {
	if !p.Enabled() {
		return noopStopper{}
	}
	return &span{profiler: p, name: name, start: time.Now()}
}

func (p *Profiler) record(name string, start time.Time, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	s, ok := p.stats[name]
	if !ok {
		s = &stat{name: name, first: start}
		p.stats[name] = s
	}
	s.count++
	s.total += d
	if d > s.max {
		s.max = d
	}
}

// Summarize writes one row per span name, in order of first use.
func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}

	rows := make([]*stat, 0, len(p.stats))
	for _, s := range p.stats {
		rows = append(rows, s)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].first.Before(rows[j].first) })

	fmt.Fprintf(w, "\n--- Timing Profile (%v) ---\n", time.Since(p.started).Round(time.Millisecond))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SPAN\tCOUNT\tTOTAL\tAVG\tMAX")
	for _, s := range rows {
		avg := s.total / time.Duration(s.count)
		fmt.Fprintf(tw, "%s\t%d\t%v\t%v\t%v\n", s.name, s.count,
			s.total.Round(100*time.Microsecond), avg.Round(100*time.Microsecond), s.max.Round(100*time.Microsecond))
	}
	tw.Flush()
}

type span struct {
	profiler *Profiler
	name     string
	start    time.Time
	once     sync.Once
}

func (s *span) Stop() {
	s.once.Do(func() {
		s.profiler.record(s.name, s.start, time.Since(s.start))
	})
}

type noopStopper struct{}

func (noopStopper) Stop() {}
