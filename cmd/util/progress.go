package util

import (
	"fmt"
	"io"
	"strings"
	gosync "sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"github.com/sidkik/cdnsync/pkg/sync"
)

// ProgressPrinter prints a message followed by dots until it's stopped.
type ProgressPrinter struct {
	out   io.Writer
	msg   string
	clock clockwork.Clock

	stopOnce gosync.Once
	stop     chan struct{}
	done     chan struct{}
}

const progressInterval = 500 * time.Millisecond

// NewProgressPrinter creates a ProgressPrinter. The caller should start it
// with `go pp.Run()`.
func NewProgressPrinter(out io.Writer, msg string) *ProgressPrinter {
	return &ProgressPrinter{
		out:   out,
		msg:   msg,
		clock: clockwork.NewRealClock(),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run prints progress until Stop is called.
func (pp *ProgressPrinter) Run() {
	defer close(pp.done)

	fmt.Fprint(pp.out, pp.msg)
	for {
		select {
		case <-pp.stop:
			fmt.Fprintln(pp.out)
			return
		case <-pp.clock.After(progressInterval):
			fmt.Fprint(pp.out, ".")
		}
	}
}

// Stop stops the printer, and waits for it to finish the line.
func (pp *ProgressPrinter) Stop() {
	pp.stopOnce.Do(func() { close(pp.stop) })
	<-pp.done
}

// TerminalReporter is a sync.Reporter that prints status lines and a
// progress bar for each download.
type TerminalReporter struct {
	out   io.Writer
	clock clockwork.Clock

	bar *progressBar
}

var _ sync.Reporter = &TerminalReporter{}

// NewTerminalReporter creates a TerminalReporter that writes to `out`.
func NewTerminalReporter(out io.Writer) *TerminalReporter {
	return &TerminalReporter{out: out, clock: clockwork.NewRealClock()}
}

func (r *TerminalReporter) Checked(path string) {
	r.println(StatusChecked, path)
}

func (r *TerminalReporter) NothingToDownload(group string) {
	r.println(StatusInfo, fmt.Sprintf("No files to download for %s", group))
}

func (r *TerminalReporter) Pending(group string, _ int, size int64) {
	r.println(StatusInfo, fmt.Sprintf("Downloading outdated or missing files for %s, %s",
		group, humanize.IBytes(uint64(size))))
}

func (r *TerminalReporter) Downloading(path string, size int64) io.Writer {
	r.println(StatusDownloading, path)
	r.bar = &progressBar{out: r.out, clock: r.clock, total: size}
	return r.bar
}

func (r *TerminalReporter) Downloaded(path string) {
	r.println(StatusDownloaded, path)
}

func (r *TerminalReporter) Skipped(path string, err error) {
	r.println(StatusSkipped, fmt.Sprintf("%s: %s", path, err))
}

func (r *TerminalReporter) Renamed(from, to string) {
	r.println(StatusRenamed, fmt.Sprintf("%s -> %s", from, to))
}

func (r *TerminalReporter) Removed(path string) {
	r.println(StatusRemoved, path)
}

func (r *TerminalReporter) CleanupFailed(path string, err error) {
	r.println(StatusError, fmt.Sprintf("%s: %s", path, err))
}

// println ends the current progress bar, if any, and prints a status line.
func (r *TerminalReporter) println(status Status, msg string) {
	if r.bar != nil {
		r.bar.finish()
		r.bar = nil
	}
	fmt.Fprintf(r.out, "%s%s\n", Prefix(status), msg)
}

const (
	barWidth          = 30
	barRenderInterval = 100 * time.Millisecond
)

// progressBar redraws a single line as bytes are written to it.
type progressBar struct {
	out   io.Writer
	clock clockwork.Clock

	total, written int64
	lastRender     time.Time
	rendered       bool
}

func (b *progressBar) Write(p []byte) (int, error) {
	b.written += int64(len(p))

	now := b.clock.Now()
	if b.written >= b.total || now.Sub(b.lastRender) >= barRenderInterval {
		b.render()
		b.lastRender = now
	}
	return len(p), nil
}

func (b *progressBar) render() {
	b.rendered = true

	fraction := 1.0
	if b.total > 0 {
		fraction = float64(b.written) / float64(b.total)
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(fraction * barWidth)
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)
	fmt.Fprintf(b.out, "\r[%s] %3d%% %s / %s", bar, int(fraction*100),
		humanize.IBytes(uint64(b.written)), humanize.IBytes(uint64(b.total)))
}

func (b *progressBar) finish() {
	if b.rendered {
		fmt.Fprintln(b.out)
	}
}
