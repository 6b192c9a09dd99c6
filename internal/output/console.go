package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"fedgate/internal/policy"
)

var (
	statusRed    = color.New(color.FgRed).SprintFunc()
	statusYellow = color.New(color.FgYellow).SprintFunc()
	statusGreen  = color.New(color.FgGreen).SprintFunc()
)

type ConsoleSink struct {
	writer   io.Writer
	format   string // "text", "json", "ndjson"
	mu       sync.Mutex
	findings []Finding // for JSON array output
}

func NewConsoleSink(w io.Writer, format string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}
	return &ConsoleSink{writer: w, format: format}
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		f, ok := v.(Finding)
		if !ok {
			// Ignore lifecycle events in JSON console mode.
			return nil
		}
		s.findings = append(s.findings, f)
		return nil
	case "ndjson":
		encoder := json.NewEncoder(s.writer)
		switch t := v.(type) {
		case Event:
			if err := encoder.Encode(t); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		case Finding:
			if err := encoder.Encode(eventFromFinding(t)); err != nil {
				return err
			}
			return flushIfPossible(s.writer)
		default:
			return nil
		}
	case "text":
		f, ok := v.(Finding)
		if !ok {
			// Ignore events in text mode.
			return nil
		}
		if _, err := fmt.Fprintf(s.writer, "[%s] %s/%s", coloredStatus(f.Status), f.Repo, f.Path); err != nil {
			return err
		}
		if f.Message != "" {
			if _, err := fmt.Fprintf(s.writer, " - %s", f.Message); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(s.writer); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		encoder := json.NewEncoder(s.writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(s.findings); err != nil {
			return err
		}
		return flushIfPossible(s.writer)
	}
	if s.format != "text" && s.format != "ndjson" {
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
	return nil
}

func coloredStatus(st policy.Status) string {
	switch st {
	case policy.StatusStop:
		return statusRed(string(st))
	case policy.StatusWarn:
		return statusYellow(string(st))
	case policy.StatusProceed:
		return statusGreen(string(st))
	default:
		return string(st)
	}
}
