// Package render formats job listings for the terminal and for machines.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/protocol"
)

// Format selects how a listing is printed.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text", "json" or "" (text).
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (expected text or json)", s)
}

// 256-color palette.
const (
	colorGreen  = "42"
	colorRed    = "196"
	colorYellow = "220"
	colorDim    = "241"
)

// Renderer writes listings to out. Colors are emitted only when out is a
// terminal, unless forced with WithColor.
type Renderer struct {
	out io.Writer
	r   *lipgloss.Renderer
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithColor forces colored (true) or plain (false) output.
func WithColor(on bool) Option {
	return func(r *Renderer) {
		if on {
			r.r.SetColorProfile(termenv.ANSI256)
		} else {
			r.r.SetColorProfile(termenv.Ascii)
		}
	}
}

// New creates a Renderer bound to out.
func New(out io.Writer, opts ...Option) *Renderer {
	r := &Renderer{out: out, r: lipgloss.NewRenderer(out)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Jobs prints one line per job: the name in its status color, then the URL.
func (r *Renderer) Jobs(jobs []domain.JobSummary) error {
	for _, j := range jobs {
		if _, err := fmt.Fprintf(r.out, "%s - %s\n", r.style(j.Color).Render(j.Name), j.URL); err != nil {
			return err
		}
	}
	return nil
}

// JobsJSON prints the listing as an indented JSON document.
func (r *Renderer) JobsJSON(ep domain.Endpoint, jobs []domain.JobSummary) error {
	doc, err := JobsJSON(ep, jobs)
	if err != nil {
		return err
	}
	_, err = r.out.Write(doc)
	return err
}

func (r *Renderer) style(c protocol.Color) lipgloss.Style {
	s := r.r.NewStyle()
	switch c.Base() {
	case protocol.ColorBlue:
		s = s.Foreground(lipgloss.Color(colorGreen))
	case protocol.ColorRed:
		s = s.Foreground(lipgloss.Color(colorRed))
	case protocol.ColorYellow:
		s = s.Foreground(lipgloss.Color(colorYellow))
	case protocol.ColorGrey, protocol.ColorNotBuilt, protocol.ColorDisabled, protocol.ColorAborted:
		s = s.Foreground(lipgloss.Color(colorDim))
	}
	if c.Building() {
		s = s.Bold(true)
	}
	return s
}

// JobsJSON builds {"server": "host:port", "jobs": [...]} for the listing.
func JobsJSON(ep domain.Endpoint, jobs []domain.JobSummary) ([]byte, error) {
	doc := []byte(`{}`)
	var err error

	doc, err = sjson.SetBytes(doc, "server", ep.Address())
	if err != nil {
		return nil, fmt.Errorf("encode server: %w", err)
	}
	doc, err = sjson.SetRawBytes(doc, "jobs", []byte(`[]`))
	if err != nil {
		return nil, fmt.Errorf("encode jobs: %w", err)
	}

	for i, j := range jobs {
		prefix := "jobs." + strconv.Itoa(i) + "."
		for _, kv := range []struct {
			key string
			val any
		}{
			{"name", j.Name},
			{"url", j.URL},
			{"color", j.Color.String()},
			{"status", j.Color.Status()},
			{"building", j.Color.Building()},
		} {
			doc, err = sjson.SetBytes(doc, prefix+kv.key, kv.val)
			if err != nil {
				return nil, fmt.Errorf("encode job %s: %w", j.Name, err)
			}
		}
	}

	return pretty.Pretty(doc), nil
}
