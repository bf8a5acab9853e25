package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"

	"folio/internal/events"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 24

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	status := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", status)
	if colorize {
		return statusKindColor(kind) + line + ansiReset
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// progressRenderer prints scan events. On a terminal job progress redraws a
// single line; otherwise only node completions and failures are printed.
type progressRenderer struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	lineOpen    bool
}

func newProgressRenderer(out io.Writer) *progressRenderer {
	return &progressRenderer{out: out, interactive: isTerminal(out)}
}

func (r *progressRenderer) handle(_ context.Context, ev events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch v := ev.(type) {
	case events.JobProgressChanged:
		if !r.interactive {
			return
		}
		p := v.Progress
		fmt.Fprintf(r.out, "\r\x1b[2K%-18s %5.1f%% (%d/%d) %s", v.Node, p.Percent(), p.Completed, p.Total, p.Operation)
		r.lineOpen = true
	case events.ScanProgressChanged:
		r.println(renderStatusLine(v.Node, statusOK, "done", r.interactive))
	case events.ScanFailed:
		r.println(renderStatusLine(v.Node, statusError, strings.TrimSpace(v.Reason), r.interactive))
	case events.ScanCompleted:
		r.println(fmt.Sprintf("Scan %s cataloged %d items in %s", v.ScanID, v.Items, v.Duration))
	}
}

func (r *progressRenderer) println(line string) {
	if r.lineOpen {
		fmt.Fprint(r.out, "\r\x1b[2K")
		r.lineOpen = false
	}
	fmt.Fprintln(r.out, line)
}
