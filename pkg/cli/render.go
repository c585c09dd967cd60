package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/utils/markup"
)

// renderer prints transcript turns as labelled bubbles
type renderer struct {
	w    io.Writer
	html bool

	bot  *color.Color
	user *color.Color
	dim  *color.Color
	warn *color.Color

	mu   sync.Mutex
	stop func()
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{
		w:    w,
		bot:  color.New(color.FgCyan, color.Bold),
		user: color.New(color.FgGreen, color.Bold),
		dim:  color.New(color.FgHiBlack),
		warn: color.New(color.FgRed),
	}
}

// Turn prints one turn. It is registered as a transcript subscriber.
func (r *renderer) Turn(turn model.Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopIndicator()

	label, c := "You", r.user
	if turn.IsBot() {
		label, c = "SEO Assistant", r.bot
	}
	c.Fprintf(r.w, "%s:\n", label)

	body := turn.Content
	if !r.html {
		body = markup.PlainText(body)
	}
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(r.w, "  %s\n", line)
	}
	fmt.Fprintln(r.w)
}

// Transcript prints every turn of t
func (r *renderer) Transcript(t *model.Transcript) {
	for _, turn := range t.Turns {
		r.Turn(turn)
	}
}

// Header prints the session line used by the history command
func (r *renderer) Header(t *model.Transcript, now time.Time) {
	origin := t.OriginURL
	if origin == "" {
		origin = "no analysis"
	}
	r.dim.Fprintf(r.w, "Session %s · %s · saved %s\n\n",
		t.SessionID, origin, humanize.RelTime(t.SavedAt, now, "ago", "from now"))
}

// Notice prints a single dimmed line
func (r *renderer) Notice(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopIndicator()
	r.dim.Fprintf(r.w, format+"\n", args...)
}

// Warn prints an inline error line
func (r *renderer) Warn(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopIndicator()
	r.warn.Fprintf(r.w, format+"\n", args...)
}

// Typing shows a spinner until the next turn is printed or done is called.
// The spinner is only drawn on a terminal file.
func (r *renderer) Typing(suffix string) (done func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopIndicator()

	f, ok := r.w.(*os.File)
	if !ok {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f))
	s.Suffix = " " + suffix
	s.Start()

	var once sync.Once
	r.stop = func() { once.Do(s.Stop) }
	stop := r.stop
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		stop()
	}
}

// stopIndicator must be called with r.mu held
func (r *renderer) stopIndicator() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
}
