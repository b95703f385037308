package llm

import (
	"context"
	"strings"

	"github.com/coolbeans/hukum/pkg/extract"
)

// Local extracts structure with the rule-based parser. It makes no external
// call and reports no cost, so the ledger charges the estimate.
type Local struct {
	// Concurrency bounds section building within one fragment.
	Concurrency int
	// Source is recorded as the metadata source file.
	Source string
}

// NewLocal creates a local extractor.
func NewLocal(concurrency int) *Local {
	return &Local{Concurrency: concurrency}
}

// Extract implements Extractor.
func (l *Local) Extract(ctx context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Response{}, ErrEmptyResponse
	}
	ps, err := extract.Parse(ctx, req.Text, extract.Options{
		Initial:     InitialKind(req),
		Concurrency: l.Concurrency,
		Source:      l.Source,
	})
	if err != nil {
		return Response{}, err
	}
	shiftSpans(ps, req.Offset)
	return Response{Structure: ps}, nil
}
