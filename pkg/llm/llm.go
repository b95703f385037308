// Package llm provides extractors that turn a fragment of statute text into
// a partial structure: a deterministic local one and a Gemini-backed one.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coolbeans/hukum/pkg/statute"
)

// ErrEmptyResponse is returned when a model replies with no usable content.
var ErrEmptyResponse = errors.New("empty model response")

// Request is one extraction call.
type Request struct {
	FragmentID string
	// Hint is the section kind of a section fragment, or "window".
	Hint string
	Text string
	// Offset is the fragment's byte offset in the source document.
	Offset int
}

// Response is the result of an extraction call. Cost is the reported cost of
// the call, or 0 when the backend does not report usage.
type Response struct {
	Structure *statute.PartialStructure
	Cost      float64
}

// Extractor extracts a partial structure from a fragment.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Response, error)
}

// InitialKind returns the segmenter state a fragment should start in. Section
// fragments start in their own kind; a window starts in the header only when
// it opens the document, otherwise as generic text.
func InitialKind(req Request) statute.Kind {
	if kind, ok := statute.ParseKind(req.Hint); ok {
		return kind
	}
	if req.Offset == 0 {
		return statute.KindHeader
	}
	return statute.KindGeneric
}

// DecodeStructure parses a model reply into a partial structure. Markdown
// code fences are stripped, and when the reply has text around the JSON the
// first complete object is used.
func DecodeStructure(reply string) (*statute.PartialStructure, error) {
	js := stripCodeFences(reply)
	if js == "" {
		return nil, ErrEmptyResponse
	}
	var out statute.PartialStructure
	if err := json.Unmarshal([]byte(js), &out); err != nil {
		s := findFirstJSON(js)
		if s == "" {
			return nil, fmt.Errorf("failed to parse model response - no JSON found: %w", err)
		}
		if err2 := json.Unmarshal([]byte(s), &out); err2 != nil {
			return nil, fmt.Errorf("failed to parse model response as JSON: %w (original error: %v)", err2, err)
		}
	}
	return &out, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if firstNewline := strings.Index(s, "\n"); firstNewline != -1 {
			s = s[firstNewline+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// findFirstJSON returns the first balanced {...} object in s, ignoring
// braces inside JSON strings.
func findFirstJSON(s string) string {
	start := -1
	depth := 0
	inString, escaped := false, false
	for i, r := range s {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			if start != -1 {
				inString = true
			}
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

// shiftSpans moves every section span of ps by offset, from fragment to
// document coordinates.
func shiftSpans(ps *statute.PartialStructure, offset int) {
	if offset == 0 || ps == nil {
		return
	}
	shift := func(s *statute.Section) {
		if s != nil {
			s.Span.Start += offset
			s.Span.End += offset
		}
	}
	shift(ps.Header)
	for _, s := range ps.Preamble.Sections() {
		shift(s)
	}
	for i := range ps.Body {
		shift(&ps.Body[i])
	}
	shift(ps.Explanation)
}
