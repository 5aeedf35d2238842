package ui

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"vodarchiver/pkg/models"
)

const (
	barWidth       = 40
	barFilled      = "█"
	barEmpty       = "░"
	updateInterval = 500 * time.Millisecond
)

var (
	quietMu sync.Mutex
	quiet   bool
)

// SetQuietMode suppresses all progress output.
func SetQuietMode(on bool) {
	quietMu.Lock()
	quiet = on
	quietMu.Unlock()
}

func isQuiet() bool {
	quietMu.Lock()
	defer quietMu.Unlock()
	return quiet
}

// ProgressRenderer draws a single-line transfer progress bar. On a TTY the
// line is redrawn in place with a carriage return; when output is piped it
// prints throttled plain lines instead.
type ProgressRenderer struct {
	label      string
	isTTY      bool
	lastLen    int
	lastUpdate time.Time
}

// NewProgressRenderer creates a renderer with a fixed label, e.g.
// "download" or "upload".
func NewProgressRenderer(label string) *ProgressRenderer {
	return &ProgressRenderer{
		label: label,
		isTTY: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// Update redraws the bar. Updates are throttled except at completion.
func (r *ProgressRenderer) Update(p models.Progress) {
	if isQuiet() {
		return
	}

	percent := p.Percent()
	now := time.Now()
	if percent < 100 && now.Sub(r.lastUpdate) < updateInterval {
		return
	}
	r.lastUpdate = now

	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat(barFilled, filled) + strings.Repeat(barEmpty, barWidth-filled)

	extra := ""
	if p.Total > 0 {
		extra = fmt.Sprintf(" | %s/%s", FormatBytes(p.Done), FormatBytes(p.Total))
	} else if p.Done > 0 {
		extra = fmt.Sprintf(" | %s", FormatBytes(p.Done))
	}
	if p.Rate > 0 {
		extra += fmt.Sprintf(" | %s/s", FormatBytes(int64(p.Rate)))
	}
	if p.ETA > 0 && percent < 100 {
		extra += fmt.Sprintf(" | ETA %s", FormatDuration(p.ETA))
	}

	line := fmt.Sprintf("[%s] [%s] %5.1f%%%s", r.label, bar, percent, extra)

	if r.isTTY {
		padding := ""
		if n := r.lastLen - len(line); n > 0 {
			padding = strings.Repeat(" ", n)
		}
		fmt.Printf("\r%s%s", line, padding)
	} else {
		fmt.Println(line)
	}
	r.lastLen = len(line)
}

// Finish terminates the in-place line with a newline.
func (r *ProgressRenderer) Finish() {
	if isQuiet() || !r.isTTY {
		return
	}
	fmt.Println()
	r.lastLen = 0
}

// FormatBytes renders a byte count as a human-readable string.
func FormatBytes(n int64) string {
	v := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if v < 1024 {
			return fmt.Sprintf("%.1f%s", v, unit)
		}
		v /= 1024
	}
	return fmt.Sprintf("%.1fTB", v)
}

// FormatDuration renders a duration as 42s, 3m 10s, or 2h 5m.
func FormatDuration(d time.Duration) string {
	s := int(d.Seconds())
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh %dm", s/3600, (s%3600)/60)
	}
}
