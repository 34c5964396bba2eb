package status

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"featnav/internal/navigator"
)

// Formatter renders navigator status as operator text. Counts use the
// locale's digit grouping; identifiers are printed verbatim.
type Formatter struct {
	p *message.Printer
}

// NewFormatter returns a formatter for a BCP 47 locale tag. Unknown or
// malformed tags fall back to English.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Formatter{p: message.NewPrinter(tag)}
}

func (f Formatter) printer() *message.Printer {
	if f.p == nil {
		return message.NewPrinter(language.English)
	}
	return f.p
}

// Format renders s as a single line without a trailing newline.
func (f Formatter) Format(s navigator.Status) string {
	p := f.printer()
	id := strconv.FormatInt(s.ID, 10)
	switch s.Event {
	case navigator.EventLoaded:
		return p.Sprintf("Loaded %d records from %s - Record %d/%d - OID: %s",
			s.Total, s.Source, s.Position+1, s.Total, id)
	default:
		line := p.Sprintf("Record %d/%d - OID: %s", s.Position+1, s.Total, id)
		if !s.HasExtent {
			line += " (no extent)"
		}
		return line
	}
}

// Number formats n with the locale's digit grouping.
func (f Formatter) Number(n int) string {
	return f.printer().Sprintf("%d", n)
}

// Writer is a status sink that prints one line per status to an io.Writer.
// It is used when there is a single operator and no hub.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	fmt Formatter
}

// NewWriter returns a sink writing to w.
func NewWriter(w io.Writer, f Formatter) *Writer {
	return &Writer{w: w, fmt: f}
}

func (w *Writer) Status(s navigator.Status) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.w, w.fmt.Format(s))
}
