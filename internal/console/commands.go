package console

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"featnav/internal/export"
	"featnav/internal/extent"
	"featnav/internal/feature"
	"featnav/internal/geom"
	"featnav/internal/navigator"
	"featnav/internal/status"
	"featnav/internal/store"
)

// Codes for console-level failures outside the navigation taxonomy.
const (
	CodeBadFormat = "BAD_FORMAT"
	CodeBadView   = "BAD_VIEW"
)

var errUnknownView = errors.New("unknown view")

// View is a viewport the operator can switch to and inspect.
type View interface {
	navigator.Viewport
	Describe() string
}

// Env is what the navigation commands operate on. Hub is optional; without
// it /who is not registered.
type Env struct {
	Nav       *navigator.Navigator
	Hub       *status.Hub
	Format    status.Formatter
	ListLimit int

	mu     sync.Mutex
	views  map[string]View
	names  []string
	active string
}

// AddView makes v selectable under name. The first view added becomes
// active and is installed on the navigator.
func (e *Env) AddView(name string, v View) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.views == nil {
		e.views = make(map[string]View)
	}
	if _, ok := e.views[name]; !ok {
		e.names = append(e.names, name)
	}
	e.views[name] = v
	if e.active == "" {
		e.active = name
		e.Nav.SetViewport(v)
	}
}

// UseView switches the navigator to the named view.
func (e *Env) UseView(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[name]
	if !ok {
		return fmt.Errorf("%w %q (have %s)", errUnknownView, name, strings.Join(e.names, ", "))
	}
	e.active = name
	e.Nav.SetViewport(v)
	return nil
}

// ActiveView returns the active view's name and the view, or false when
// none was added.
func (e *Env) ActiveView() (string, View, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.views[e.active]
	return e.active, v, ok
}

// RegisterNavigation registers the navigation command set on reg.
func RegisterNavigation(reg Registrar, env *Env) {
	reg.Register("/next", Command{
		Aliases: []string{"n"},
		Help:    "move to the next record (wraps)",
		Handler: handleMove(env.Nav.Next),
	})

	reg.Register("/prev", Command{
		Aliases: []string{"b"},
		Help:    "move to the previous record (wraps)",
		Handler: handleMove(env.Nav.Previous),
	})

	reg.Register("/goto", Command{
		Usage:   "/goto <oid>",
		Help:    "jump to the record with this OID",
		Handler: handleGoto(env.Nav),
	})

	reg.Register("/index", Command{
		Usage:   "/index <n>",
		Help:    "jump to a zero-based position",
		Handler: handleIndex(env.Nav),
	})

	reg.Register("/current", Command{
		Help:    "show the current record",
		Handler: handleCurrent(env),
	})

	reg.Register("/reload", Command{
		Aliases: []string{"r"},
		Help:    "reload records from the source",
		Handler: handleReload(env.Nav),
	})

	reg.Register("/filter", Command{
		Usage:   "/filter <field> <value>",
		Help:    "list positions whose field equals value",
		Handler: handleFilter(env),
	})

	reg.Register("/jump", Command{
		Usage:   "/jump <field> <value>",
		Help:    "jump to the first record whose field equals value",
		Handler: handleJump(env.Nav),
	})

	reg.Register("/list", Command{
		Usage:   "/list [limit]",
		Help:    "list record OIDs from the start",
		Handler: handleList(env),
	})

	reg.Register("/export", Command{
		Usage:   "/export <path> [csv|json|yaml]",
		Help:    "write all records to a file (.zst/.lz4 compress)",
		Handler: handleExport(env.Nav),
	})

	reg.Register("/stats", Command{
		Help:    "show collection statistics",
		Handler: handleStats(env),
	})

	reg.Register("/view", Command{
		Usage:   "/view [name]",
		Help:    "show the viewport, or switch to another one",
		Handler: handleView(env),
	})

	if env.Hub != nil {
		reg.Register("/who", Command{
			Help:    "list attached operators",
			Handler: handleWho(env.Hub),
		})
	}
}

func printErr(c Context, err error) {
	_, _ = fmt.Fprintf(c.Out, "Error [%s]: %v\n", code(err), err)
}

func code(err error) string {
	switch {
	case errors.Is(err, export.ErrUnknownFormat):
		return CodeBadFormat
	case errors.Is(err, errUnknownView):
		return CodeBadView
	default:
		return navigator.Code(err)
	}
}

// handleMove adapts a navigator move. Success prints nothing: the status
// sink reports the new position.
func handleMove(move func() (feature.Record, error)) Handler {
	return func(c Context) bool {
		if _, err := move(); err != nil {
			printErr(c, err)
		}
		return false
	}
}

func handleGoto(nav *navigator.Navigator) Handler {
	return func(c Context) bool {
		if len(c.Args) != 1 {
			_, _ = fmt.Fprintln(c.Out, "Usage: /goto <oid>")
			return false
		}
		id, err := strconv.ParseInt(c.Args[0], 10, 64)
		if err != nil {
			_, _ = fmt.Fprintf(c.Out, "Usage: /goto <oid> (%q is not an integer)\n", c.Args[0])
			return false
		}
		if _, err := nav.GoToID(id); err != nil {
			printErr(c, err)
		}
		return false
	}
}

func handleIndex(nav *navigator.Navigator) Handler {
	return func(c Context) bool {
		if len(c.Args) != 1 {
			_, _ = fmt.Fprintln(c.Out, "Usage: /index <n>")
			return false
		}
		pos, err := strconv.Atoi(c.Args[0])
		if err != nil {
			_, _ = fmt.Fprintf(c.Out, "Usage: /index <n> (%q is not an integer)\n", c.Args[0])
			return false
		}
		if _, err := nav.GoToIndex(pos); err != nil {
			printErr(c, err)
		}
		return false
	}
}

func handleCurrent(env *Env) Handler {
	return func(c Context) bool {
		rec, ok := env.Nav.Current()
		if !ok {
			printErr(c, navigator.ErrEmptyCollection)
			return false
		}
		pos, total, _ := env.Nav.Position()
		_, _ = fmt.Fprintf(c.Out, "Record %s/%s - OID: %d\n",
			env.Format.Number(pos+1), env.Format.Number(total), rec.ID)
		if rec.Geometry != nil {
			_, _ = fmt.Fprintf(c.Out, "  geometry: %s\n", geom.Kind(rec.Geometry))
		}
		if box, ok := extent.Of(rec); ok {
			_, _ = fmt.Fprintf(c.Out, "  extent:   %s\n", box)
		} else {
			_, _ = fmt.Fprintln(c.Out, "  extent:   none")
		}
		for _, name := range rec.Attributes.Names() {
			if name == feature.IDField {
				continue
			}
			v, _ := rec.Attributes.Get(name)
			_, _ = fmt.Fprintf(c.Out, "  %s = %s\n", name, display(v))
		}
		return false
	}
}

func handleReload(nav *navigator.Navigator) Handler {
	return func(c Context) bool {
		if _, err := nav.Reload(c.Ctx); err != nil {
			printErr(c, err)
		}
		return false
	}
}

// fieldValue splits "<field> <value...>"; the value may contain spaces.
func fieldValue(args []string) (string, feature.Value, bool) {
	if len(args) < 2 {
		return "", feature.Value{}, false
	}
	return args[0], feature.ParseValue(strings.Join(args[1:], " ")), true
}

func handleFilter(env *Env) Handler {
	return func(c Context) bool {
		field, value, ok := fieldValue(c.Args)
		if !ok {
			_, _ = fmt.Fprintln(c.Out, "Usage: /filter <field> <value>")
			return false
		}
		matches := env.Nav.Filter(field, value)
		_, _ = fmt.Fprintf(c.Out, "%s records match %s=%s\n",
			env.Format.Number(len(matches)), field, display(value))
		if len(matches) == 0 {
			return false
		}
		shown := matches[:min(len(matches), env.listLimit())]
		parts := make([]string, len(shown))
		for i, p := range shown {
			parts[i] = strconv.Itoa(p)
		}
		line := "  positions: " + strings.Join(parts, ", ")
		if rest := len(matches) - len(shown); rest > 0 {
			line += fmt.Sprintf(" ... and %s more", env.Format.Number(rest))
		}
		_, _ = fmt.Fprintln(c.Out, line)
		return false
	}
}

func handleJump(nav *navigator.Navigator) Handler {
	return func(c Context) bool {
		field, value, ok := fieldValue(c.Args)
		if !ok {
			_, _ = fmt.Fprintln(c.Out, "Usage: /jump <field> <value>")
			return false
		}
		if _, err := nav.JumpToFirstMatch(field, value); err != nil {
			printErr(c, err)
		}
		return false
	}
}

func handleList(env *Env) Handler {
	return func(c Context) bool {
		limit := env.listLimit()
		if len(c.Args) > 0 {
			n, err := strconv.Atoi(c.Args[0])
			if err != nil || n <= 0 {
				_, _ = fmt.Fprintln(c.Out, "Usage: /list [limit]")
				return false
			}
			limit = n
		}
		entries, total := env.Nav.ListIDs(limit)
		if total == 0 {
			printErr(c, navigator.ErrEmptyCollection)
			return false
		}
		_, _ = fmt.Fprintf(c.Out, "OIDs (showing %s/%s)\n",
			env.Format.Number(len(entries)), env.Format.Number(total))
		for _, e := range entries {
			marker := ""
			if e.Current {
				marker = "  <- current"
			}
			_, _ = fmt.Fprintf(c.Out, "  index %4d: OID %d%s\n", e.Position, e.ID, marker)
		}
		if rest := total - len(entries); rest > 0 {
			_, _ = fmt.Fprintf(c.Out, "  ... and %s more\n", env.Format.Number(rest))
		}
		return false
	}
}

func handleExport(nav *navigator.Navigator) Handler {
	return func(c Context) bool {
		if len(c.Args) < 1 || len(c.Args) > 2 {
			_, _ = fmt.Fprintln(c.Out, "Usage: /export <path> [csv|json|yaml]")
			return false
		}
		path := c.Args[0]
		var opts export.Options
		if len(c.Args) == 2 {
			f, err := export.ParseFormat(c.Args[1])
			if err != nil {
				printErr(c, err)
				return false
			}
			opts.Format = f
		}
		var n int
		err := nav.Export(func(s *store.Store) error {
			if s.Count() == 0 {
				return navigator.ErrEmptyCollection
			}
			var err error
			n, err = export.WriteFile(path, s, opts)
			return err
		})
		if err != nil {
			printErr(c, err)
			return false
		}
		_, _ = fmt.Fprintf(c.Out, "Exported %d records to %s\n", n, path)
		return false
	}
}

func handleStats(env *Env) Handler {
	return func(c Context) bool {
		st := env.Nav.Stats()
		if st.Total == 0 {
			printErr(c, navigator.ErrEmptyCollection)
			return false
		}
		WriteStats(c.Out, st, env.Format)
		return false
	}
}

// WriteStats renders navigator statistics as an aligned block.
func WriteStats(w io.Writer, st navigator.Stats, f status.Formatter) {
	row := func(label, value string) {
		_, _ = fmt.Fprintf(w, "  %-16s %s\n", label+":", value)
	}
	row("Source", st.Source)
	row("Load ID", st.LoadID)
	row("Loaded at", st.LoadedAt.UTC().Format(time.RFC3339))
	row("Records", f.Number(st.Total))
	if st.Position >= 0 {
		row("Current", fmt.Sprintf("%s/%s (OID %d)", f.Number(st.Position+1), f.Number(st.Total), st.CurrentID))
	}
	row("Without extent", f.Number(st.WithoutExtent))
	if st.HasExtent {
		row("Extent", st.Extent.String())
	} else {
		row("Extent", "none")
	}
}

func handleView(env *Env) Handler {
	return func(c Context) bool {
		if len(c.Args) > 1 {
			_, _ = fmt.Fprintln(c.Out, "Usage: /view [name]")
			return false
		}
		if len(c.Args) == 1 {
			if err := env.UseView(c.Args[0]); err != nil {
				printErr(c, err)
				return false
			}
		}
		name, v, ok := env.ActiveView()
		if !ok {
			_, _ = fmt.Fprintln(c.Out, "No viewport attached")
			return false
		}
		_, _ = fmt.Fprintf(c.Out, "[%s] %s\n", name, v.Describe())
		return false
	}
}

func handleWho(hub *status.Hub) Handler {
	return func(c Context) bool {
		ops := hub.Who()
		_, _ = fmt.Fprintf(c.Out, "Operators (%d): %s\n", len(ops), strings.Join(ops, ", "))
		return false
	}
}

func (e *Env) listLimit() int {
	if e.ListLimit <= 0 {
		return navigator.DefaultListLimit
	}
	return e.ListLimit
}

// display renders a value so its type is visible: strings are quoted.
func display(v feature.Value) string {
	if v.Kind() == feature.KindString {
		return strconv.Quote(v.String())
	}
	return v.String()
}
