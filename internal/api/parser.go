package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"crawlchat/internal/logging"
)

const dataPrefix = "data: "

// ParseError describes a stream line that could not be decoded. It is
// recoverable: the line is dropped and parsing continues.
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	line := e.Line
	if len(line) > 120 {
		line = line[:117] + "..."
	}
	return fmt.Sprintf("parsing stream line %q: %v", line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errUnknownType = errors.New("unknown event type")
	errMissingStep = errors.New("reasoning event without step")
)

// wireEvent is the union of every field the backend sends on a data line.
type wireEvent struct {
	Type string `json:"type"`

	FullContent string `json:"full_content"`
	Text        string `json:"text"`
	IsFinal     bool   `json:"is_final"`

	Step       *wireStep `json:"step"`
	StepNumber int       `json:"step_number"`

	Message string   `json:"message"`
	URLs    []string `json:"urls"`

	FinalContent string   `json:"final_content"`
	Sources      []Source `json:"sources"`
}

type wireStep struct {
	Title     string `json:"title"`
	Thought   string `json:"thought"`
	Reasoning string `json:"reasoning"`
}

// Parser turns raw stream bytes into fragments. Chunks may split lines at any
// byte; the partial trailing line is kept until the next Feed or Flush.
type Parser struct {
	pending string

	// OnError receives every recovered ParseError. Defaults to a warning log.
	OnError func(err *ParseError)
}

func NewParser() *Parser {
	return &Parser{}
}

// Feed consumes one chunk and returns the fragments completed by it, in
// stream order.
func (p *Parser) Feed(chunk string) []Fragment {
	p.pending += chunk
	var out []Fragment
	for {
		i := strings.IndexByte(p.pending, '\n')
		if i < 0 {
			break
		}
		line := p.pending[:i]
		p.pending = p.pending[i+1:]
		if f := p.line(line); f != nil {
			out = append(out, f)
		}
	}
	return out
}

// Flush parses whatever remains after the stream ended without a trailing
// newline.
func (p *Parser) Flush() []Fragment {
	line := p.pending
	p.pending = ""
	if f := p.line(line); f != nil {
		return []Fragment{f}
	}
	return nil
}

// Stream reads r to EOF, feeding every read to the parser and calling fn for
// each fragment. A non-nil error from fn stops the read and is returned, as
// are read errors other than io.EOF.
func (p *Parser) Stream(r io.Reader, fn func(Fragment) error) error {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			for _, f := range p.Feed(string(buf[:n])) {
				if ferr := fn(f); ferr != nil {
					return ferr
				}
			}
		}
		if err == io.EOF {
			for _, f := range p.Flush() {
				if ferr := fn(f); ferr != nil {
					return ferr
				}
			}
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (p *Parser) line(raw string) Fragment {
	f, err := ParseLine(raw)
	if err != nil {
		var pe *ParseError
		if !errors.As(err, &pe) {
			pe = &ParseError{Line: raw, Err: err}
		}
		if p.OnError != nil {
			p.OnError(pe)
		} else {
			logging.Warn("%v", pe)
		}
		return nil
	}
	return f
}

// ParseLine decodes one stream line. Lines that are blank or lack the data
// prefix yield (nil, nil).
func ParseLine(raw string) (Fragment, error) {
	line := strings.TrimRight(raw, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return nil, nil
	}
	payload := line[len(dataPrefix):]

	var ev wireEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}

	switch ev.Type {
	case "content":
		text := ev.FullContent
		if text == "" {
			text = ev.Text
		}
		return Content{Text: text, IsFinal: ev.IsFinal}, nil

	case "reasoning":
		if ev.Step == nil {
			return nil, &ParseError{Line: line, Err: errMissingStep}
		}
		body := ev.Step.Thought
		if body == "" {
			body = ev.Step.Reasoning
		}
		return ReasoningStep{Title: ev.Step.Title, Body: body, Index: ev.StepNumber}, nil

	case "crawling":
		return Crawling{Message: ev.Message, URLs: ev.URLs}, nil

	case "completion":
		var sources []Source
		for _, s := range ev.Sources {
			if s.URL != "" {
				sources = append(sources, s)
			}
		}
		return Completion{FinalText: ev.FinalContent, Sources: sources}, nil

	case "error":
		return UpstreamError{Message: ev.Message}, nil
	}

	return nil, &ParseError{Line: line, Err: fmt.Errorf("%w: %q", errUnknownType, ev.Type)}
}
