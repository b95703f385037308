package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/coolbeans/hukum/pkg/pattern"
	"github.com/coolbeans/hukum/pkg/statute"
)

// Build converts one section's raw lines into its kind-specific payload. It
// reads nothing but the section itself, so sections can be built in any
// order and in parallel. It never fails: content that cannot be structured
// becomes a GenericPayload and a MalformedSection warning.
func Build(section statute.Section) (statute.Payload, []statute.Diagnostic) {
	b := &builder{section: section}
	var payload statute.Payload
	switch section.Kind {
	case statute.KindHeader:
		payload = &statute.HeaderPayload{Text: section.Text()}
	case statute.KindMenimbang, statute.KindMengingat:
		payload = b.items()
	case statute.KindMemutuskan:
		payload = b.memutuskan()
	case statute.KindPasal:
		payload = b.pasal()
	case statute.KindPenjelasan:
		payload = b.penjelasan()
	default:
		payload = &statute.GenericPayload{Raw: section.Text()}
	}
	return payload, b.diagnostics
}

type builder struct {
	section     statute.Section
	diagnostics []statute.Diagnostic
}

func (b *builder) warn(code statute.Code, format string, args ...any) {
	b.diagnostics = append(b.diagnostics, statute.Warn(code, b.section.ID, format, args...))
}

func (b *builder) generic(reason string) *statute.GenericPayload {
	b.warn(statute.CodeMalformedSection, "%s; keeping raw text", reason)
	return &statute.GenericPayload{Raw: b.section.Text()}
}

// content returns the section lines after the opening keyword or Pasal line.
func (b *builder) content() []string {
	lines := b.section.Lines
	if len(lines) > 0 && pattern.Classify(lines[0]).OpensSection() {
		return lines[1:]
	}
	return lines
}

var approvalPattern = regexp.MustCompile(`(?i)^Dengan\s+Persetujuan\s+Bersama`)

func (b *builder) items() statute.Payload {
	payload := &statute.ItemsPayload{}
	var loose []string
	for _, line := range b.content() {
		if approvalPattern.MatchString(line) {
			// The joint approval formula closes the preamble lists.
			break
		}
		kind := pattern.Classify(line)
		switch kind.Tag {
		case pattern.HurufMarker:
			payload.Items = append(payload.Items, statute.Item{Letter: kind.Letter, Content: normalizeSpace(kind.Rest)})
		case pattern.AngkaMarker:
			payload.Items = append(payload.Items, statute.Item{Letter: strconv.Itoa(kind.Number), Content: normalizeSpace(kind.Rest)})
		default:
			if len(payload.Items) == 0 {
				loose = append(loose, line)
				continue
			}
			last := &payload.Items[len(payload.Items)-1]
			last.Content = joinSpace(last.Content, line)
		}
	}

	if len(payload.Items) == 0 {
		if len(loose) == 0 {
			return b.generic("no items found")
		}
		// A single consideration or legal basis is often written without a letter.
		payload.Items = []statute.Item{{Content: normalizeSpace(strings.Join(loose, " "))}}
	} else if len(loose) > 0 {
		payload.Items[0].Content = joinSpace(strings.Join(loose, " "), payload.Items[0].Content)
		b.warn(statute.CodeClassificationAmbiguity, "text before the first item merged into item %s", payload.Items[0].Letter)
	}
	return payload
}

func (b *builder) memutuskan() statute.Payload {
	payload := &statute.MemutuskanPayload{}
	var text []string
	headings := &headingCollector{}
	for _, line := range b.content() {
		if headings.accept(line) {
			continue
		}
		text = append(text, line)
	}
	payload.Text = normalizeSpace(strings.Join(text, " "))
	payload.Headings = headings.headings
	if payload.Text == "" && len(payload.Headings) == 0 {
		return b.generic("empty enacting formula")
	}
	return payload
}

func (b *builder) pasal() statute.Payload {
	number := atoi(b.section.Identifier)
	payload := &statute.PasalPayload{Number: number}
	headings := &headingCollector{}

	// target is where continuation text goes: the intro, the open Ayat or
	// its last sub-item.
	var target *string
	target = &payload.Intro

	openAyat := func(n int, content string) {
		payload.Ayat = append(payload.Ayat, statute.Ayat{Number: n, Content: normalizeSpace(content)})
		target = &payload.Ayat[len(payload.Ayat)-1].Content
	}

	for _, line := range b.content() {
		if headings.accept(line) {
			continue
		}
		kind := pattern.Classify(line)
		switch kind.Tag {
		case pattern.AyatMarker:
			openAyat(b.ayatNumber(payload.Ayat, kind.Number), kind.Rest)
		case pattern.HurufMarker, pattern.AngkaMarker:
			if len(payload.Ayat) == 0 {
				// Sub-items without an Ayat marker belong to an implicit
				// first Ayat whose content is the text so far.
				intro := payload.Intro
				payload.Intro = ""
				openAyat(1, intro)
			}
			ayat := &payload.Ayat[len(payload.Ayat)-1]
			sub := statute.SubItem{Content: normalizeSpace(kind.Rest)}
			if kind.Tag == pattern.HurufMarker {
				sub.Kind, sub.Letter = statute.SubItemHuruf, kind.Letter
			} else {
				sub.Kind, sub.Number = statute.SubItemAngka, kind.Number
			}
			ayat.SubItems = append(ayat.SubItems, sub)
			target = &ayat.SubItems[len(ayat.SubItems)-1].Content
		default:
			*target = joinSpace(*target, line)
		}
	}
	payload.Headings = headings.headings

	if len(payload.Ayat) == 0 {
		if payload.Intro == "" {
			if len(payload.Headings) > 0 {
				b.warn(statute.CodeMalformedSection, "pasal %d has headings but no content", number)
				return payload
			}
			return b.generic("pasal has no content")
		}
		payload.Ayat = []statute.Ayat{{Number: 1, Content: payload.Intro}}
		payload.Intro = ""
	}
	return payload
}

// ayatNumber validates a captured Ayat number against the ones already
// opened. Captured numbers are kept as they are; duplicates and gaps are
// reported. A missing or malformed capture falls back to the next number in
// sequence.
func (b *builder) ayatNumber(opened []statute.Ayat, captured int) int {
	previous := 0
	if len(opened) > 0 {
		previous = opened[len(opened)-1].Number
	}
	switch {
	case captured <= 0:
		b.warn(statute.CodeClassificationAmbiguity, "malformed ayat number after (%d), using (%d)", previous, previous+1)
		return previous + 1
	case captured <= previous:
		b.warn(statute.CodeClassificationAmbiguity, "duplicate ayat (%d) after (%d)", captured, previous)
	case captured > previous+1:
		b.warn(statute.CodeClassificationAmbiguity, "ayat numbering skips from (%d) to (%d)", previous, captured)
	}
	return captured
}

var explanationHeadingPattern = regexp.MustCompile(`(?i)^[IVX]+\.\s*(UMUM|PASAL DEMI PASAL)\s*$`)

func (b *builder) penjelasan() statute.Payload {
	payload := &statute.PenjelasanPayload{}
	var article *statute.ArticleExplanation
	for _, line := range b.content() {
		if explanationHeadingPattern.MatchString(line) {
			continue
		}
		kind := pattern.Classify(line)
		if kind.Tag == pattern.PasalHeader {
			payload.Articles = append(payload.Articles, statute.ArticleExplanation{PasalNumber: kind.Number})
			article = &payload.Articles[len(payload.Articles)-1]
			continue
		}
		if article == nil {
			payload.General = joinSpace(payload.General, line)
			continue
		}
		article.Explanation = joinSpace(article.Explanation, line)
	}
	if payload.General == "" && len(payload.Articles) == 0 {
		return b.generic("empty explanation")
	}
	return payload
}

// headingCollector gathers Bab and Bagian headings and the title line that
// may follow a bare heading.
type headingCollector struct {
	headings     []statute.Heading
	pendingTitle bool
}

func (h *headingCollector) accept(line string) bool {
	kind := pattern.Classify(line)
	switch kind.Tag {
	case pattern.BabHeader, pattern.BagianHeader:
		heading := statute.Heading{Kind: statute.HeadingBab, Label: kind.Label, Title: strings.TrimSpace(kind.Rest)}
		if kind.Tag == pattern.BagianHeader {
			heading.Kind = statute.HeadingBagian
		}
		h.headings = append(h.headings, heading)
		h.pendingTitle = heading.Title == ""
		return true
	case pattern.Plain:
		if h.pendingTitle && looksLikeTitle(line) {
			h.headings[len(h.headings)-1].Title = line
			h.pendingTitle = false
			return true
		}
	}
	h.pendingTitle = false
	return false
}

// looksLikeTitle reports whether a line can be a heading title: it does not
// end like a sentence or clause.
func looksLikeTitle(line string) bool {
	return !strings.ContainsAny(line[len(line)-1:], ".;:,")
}

var closingPattern = regexp.MustCompile(`(?i)^(Disahkan\s+di|Diundangkan\s+di|Ditetapkan\s+di|Agar\s+setiap\s+orang\s+mengetahuinya)`)

// SplitClosing detaches the enactment and promulgation block from the tail
// of the last section before the Penjelasan, if present. The section keeps
// its span; only its lines are trimmed.
func SplitClosing(sections []statute.Section) *statute.Closing {
	last := -1
	for i := range sections {
		if sections[i].Kind == statute.KindPenjelasan {
			break
		}
		last = i
	}
	if last < 0 {
		return nil
	}
	lines := sections[last].Lines
	for i, line := range lines {
		if i == 0 && pattern.Classify(line).OpensSection() {
			continue
		}
		if closingPattern.MatchString(line) {
			sections[last].Lines = lines[:i]
			return &statute.Closing{Text: strings.Join(lines[i:], "\n")}
		}
	}
	return nil
}

// BuildAll builds every section on a worker pool of at most concurrency
// goroutines and returns the sections with payloads set, in input order,
// together with all diagnostics in section order.
func BuildAll(ctx context.Context, sections []statute.Section, concurrency int) ([]statute.Section, []statute.Diagnostic, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	built := make([]statute.Section, len(sections))
	diagnostics := make([][]statute.Diagnostic, len(sections))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := range sections {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			section := sections[i]
			section.Payload, diagnostics[i] = Build(section)
			built[i] = section
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var all []statute.Diagnostic
	for _, d := range diagnostics {
		all = append(all, d...)
	}
	return built, all, nil
}

// AssignGroups propagates Bab and Bagian context through the sections in
// order. A heading applies to the Pasals after the section it appears in; a
// new Bab resets the Bagian.
func AssignGroups(sections []statute.Section) {
	var bab, bagian string
	apply := func(headings []statute.Heading) {
		for _, h := range headings {
			switch h.Kind {
			case statute.HeadingBab:
				bab, bagian = h.Label, ""
			case statute.HeadingBagian:
				bagian = h.Label
			}
		}
	}
	for i := range sections {
		switch p := sections[i].Payload.(type) {
		case *statute.PasalPayload:
			p.Bab, p.Bagian = bab, bagian
			apply(p.Headings)
		case *statute.MemutuskanPayload:
			apply(p.Headings)
		}
	}
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func joinSpace(a, b string) string {
	a, b = normalizeSpace(a), normalizeSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + " " + b
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
