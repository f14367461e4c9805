// Package progress renders orchestration events as console output.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"medialift/internal/uploader"
	"medialift/internal/utils"
)

var (
	cyan   = color.New(color.FgCyan)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

// maxFilenameWidth keeps the progress line on one terminal row
const maxFilenameWidth = 50

// Tracker renders orchestration events as a single rewriting progress line
// and accumulates counters for the final summary. It implements
// uploader.EventSink and is safe for concurrent use by parallel workers.
type Tracker struct {
	out       io.Writer
	operation string

	mu         sync.Mutex
	start      time.Time
	completed  int
	successful int
	duplicates int
	errors     int
	skipped    int
	bytes      int64
}

// NewTracker creates a tracker for one named run, writing to out; nil means
// standard output
func NewTracker(operation string, out io.Writer) *Tracker {
	if out == nil {
		out = os.Stdout
	}
	return &Tracker{
		out:       out,
		operation: operation,
		start:     time.Now(),
	}
}

// Publish renders one event. Processing events only refresh the line;
// counters move when the final outcome for a file arrives.
func (t *Tracker) Publish(event uploader.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	speed := ""
	switch event.Status {
	case uploader.OutcomeSuccess:
		t.completed++
		t.successful++
		t.bytes += event.FileSize
		if event.FileSize > 0 && event.Elapsed > 0 {
			mbps := float64(event.FileSize) / event.Elapsed.Seconds() / 1024 / 1024
			speed = fmt.Sprintf(" - %.2fMB/s", mbps)
		}
	case uploader.OutcomeDuplicate:
		t.completed++
		t.duplicates++
	case uploader.OutcomeSkipped:
		t.completed++
		t.skipped++
	case uploader.OutcomeError:
		t.completed++
		t.errors++
	}

	percent := 0.0
	if event.Total > 0 {
		percent = float64(event.Index) / float64(event.Total) * 100
	}

	fmt.Fprintf(t.out, "\r%s", strings.Repeat(" ", 120))
	fmt.Fprintf(t.out, "\r[%d/%d] (%.1f%%) ETA: %s - %s - %s%s",
		event.Index, event.Total, percent, t.eta(event.Total), statusLabel(event.Status),
		truncateName(event.Filename), speed)
}

// eta estimates the remaining time from the average pace so far
func (t *Tracker) eta(total int) string {
	if t.completed == 0 || total == 0 {
		return "calculating..."
	}
	perFile := time.Since(t.start).Seconds() / float64(t.completed)
	remaining := total - t.completed
	if remaining < 0 {
		remaining = 0
	}
	return utils.FormatTime(perFile * float64(remaining))
}

// PrintSummary renders the closing block of counters and throughput. The
// counters reflect whatever completed, so an interrupted run reports its
// partial progress with the same layout.
func (t *Tracker) PrintSummary() {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.start).Seconds()
	pace := 0.0
	if elapsed > 0 {
		pace = float64(t.completed) / elapsed
	}

	line := strings.Repeat("=", 60)
	fmt.Fprintf(t.out, "\n\n%s\n", line)
	cyan.Fprintf(t.out, "%s summary\n", t.operation)
	fmt.Fprintln(t.out, line)
	fmt.Fprintf(t.out, "Files processed:      %d\n", t.completed)
	green.Fprintf(t.out, "Successful uploads:   %d\n", t.successful)
	yellow.Fprintf(t.out, "Duplicates:           %d\n", t.duplicates)
	fmt.Fprintf(t.out, "Skipped (already up): %d\n", t.skipped)
	red.Fprintf(t.out, "Errors:               %d\n", t.errors)
	fmt.Fprintln(t.out, strings.Repeat("-", 60))
	fmt.Fprintf(t.out, "Total time:           %s\n", utils.FormatTime(elapsed))
	fmt.Fprintf(t.out, "Average speed:        %.2f files/s\n", pace)

	if t.bytes > 0 {
		throughput := 0.0
		if elapsed > 0 {
			throughput = float64(t.bytes) / elapsed
		}
		fmt.Fprintf(t.out, "Data transferred:     %s\n", utils.FormatSize(t.bytes))
		fmt.Fprintf(t.out, "Average throughput:   %s/s\n", utils.FormatSize(int64(throughput)))
	}

	fmt.Fprintf(t.out, "%s\n", line)
}

func statusLabel(status uploader.Outcome) string {
	switch status {
	case uploader.OutcomeSuccess:
		return green.Sprint("✅ Success")
	case uploader.OutcomeDuplicate:
		return yellow.Sprint("⚠ Duplicate")
	case uploader.OutcomeError:
		return red.Sprint("❌ Error")
	case uploader.OutcomeSkipped:
		return yellow.Sprint("⏭ Skipped")
	default:
		return cyan.Sprint("⏳ Processing")
	}
}

func truncateName(name string) string {
	if len(name) <= maxFilenameWidth {
		return name
	}
	return name[:maxFilenameWidth]
}
