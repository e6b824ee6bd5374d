package common

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Metrics accumulates counters for one analysis pass over a capture.
type Metrics struct {
	mu           sync.Mutex
	start        time.Time
	end          time.Time
	rows         int64
	totalRows    int64
	islands      int64
	packets      int64
	symbolErrors int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Start() {
	m.mu.Lock()
	if m.start.IsZero() {
		m.start = time.Now()
		m.end = time.Time{}
	}
	m.mu.Unlock()
}

func (m *Metrics) Stop() {
	m.mu.Lock()
	if !m.start.IsZero() && m.end.IsZero() {
		m.end = time.Now()
	}
	m.mu.Unlock()
}

func (m *Metrics) AddRows(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.rows += n
	m.mu.Unlock()
}

func (m *Metrics) SetTotalRows(total int64) {
	if total < 0 {
		total = 0
	}
	m.mu.Lock()
	m.totalRows = total
	m.mu.Unlock()
}

func (m *Metrics) IncIsland() {
	m.mu.Lock()
	m.islands++
	m.mu.Unlock()
}

func (m *Metrics) IncPacket() {
	m.mu.Lock()
	m.packets++
	m.mu.Unlock()
}

func (m *Metrics) AddSymbolErrors(n int64) {
	if n <= 0 {
		return
	}
	m.mu.Lock()
	m.symbolErrors += n
	m.mu.Unlock()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MetricsSnapshot{
		Duration:     m.elapsedLocked(),
		Rows:         m.rows,
		TotalRows:    m.totalRows,
		Islands:      m.islands,
		Packets:      m.packets,
		SymbolErrors: m.symbolErrors,
	}
}

func (m *Metrics) elapsedLocked() time.Duration {
	if m.start.IsZero() {
		return 0
	}
	if !m.end.IsZero() {
		return m.end.Sub(m.start)
	}
	return time.Since(m.start)
}

type MetricsSnapshot struct {
	Duration     time.Duration
	Rows         int64
	TotalRows    int64
	Islands      int64
	Packets      int64
	SymbolErrors int64
}

func (s MetricsSnapshot) RowsPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Rows) / s.Duration.Seconds()
}

func (s MetricsSnapshot) Completion() float64 {
	if s.TotalRows <= 0 {
		return 0
	}
	ratio := float64(s.Rows) / float64(s.TotalRows)
	if ratio < 0 {
		return 0
	}
	if ratio > 1 {
		return 1
	}
	return ratio
}

func formatProgressLine(s MetricsSnapshot) string {
	if s.TotalRows > 0 {
		return fmt.Sprintf("Progress: %6.2f%% (%d / %d rows) %d islands", s.Completion()*100, s.Rows, s.TotalRows, s.Islands)
	}
	return fmt.Sprintf("Processed: %d rows, %d islands", s.Rows, s.Islands)
}

// StartProgressPrinter periodically rewrites a progress line on w until the
// returned stop function is called.
func StartProgressPrinter(w io.Writer, m *Metrics, interval time.Duration) func() {
	if m == nil || w == nil {
		return func() {}
	}
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		lastLen := 0
		for {
			select {
			case <-ticker.C:
				line := formatProgressLine(m.Snapshot())
				pad := lastLen - len(line)
				if pad > 0 {
					line += strings.Repeat(" ", pad)
				}
				fmt.Fprintf(w, "\r%s", line)
				lastLen = len(line)
			case <-done:
				if lastLen > 0 {
					fmt.Fprintf(w, "\r%s\r\n", strings.Repeat(" ", lastLen))
				}
				return
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}
