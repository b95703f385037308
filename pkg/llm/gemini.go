package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "google.golang.org/genai"

	"github.com/coolbeans/hukum/pkg/statute"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// Pricing converts token usage to cost units.
type Pricing struct {
	InputPerToken  float64 `yaml:"input_per_token" json:"input_per_token"`
	OutputPerToken float64 `yaml:"output_per_token" json:"output_per_token"`
}

// Cost returns the cost of a call with the given token counts.
func (p Pricing) Cost(inputTokens, outputTokens int32) float64 {
	return float64(inputTokens)*p.InputPerToken + float64(outputTokens)*p.OutputPerToken
}

// contentGenerator is the part of *genai.Models the extractor uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini extracts structure by asking a Gemini model for JSON in the
// document model's wire form.
type Gemini struct {
	models          contentGenerator
	model           string
	pricing         Pricing
	maxOutputTokens int32
}

// NewGemini creates a Gemini extractor.
func NewGemini(ctx context.Context, apiKey, model string, pricing Pricing) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("missing Gemini API key")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{models: c.Models, model: model, pricing: pricing, maxOutputTokens: 2000}, nil
}

// SetMaxOutputTokens caps the reply length. Non-positive values are ignored.
func (g *Gemini) SetMaxOutputTokens(n int32) {
	if n > 0 {
		g.maxOutputTokens = n
	}
}

// Extract implements Extractor.
func (g *Gemini) Extract(ctx context.Context, req Request) (Response, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.1),
		MaxOutputTokens:  g.maxOutputTokens,
		ResponseMIMEType: "application/json",
	}
	res, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{
		genai.NewContentFromText(buildPrompt(req), genai.RoleUser),
	}, config)
	if err != nil {
		return Response{}, fmt.Errorf("gemini API call failed: %w", err)
	}

	var cost float64
	if usage := res.UsageMetadata; usage != nil {
		cost = g.pricing.Cost(usage.PromptTokenCount, usage.CandidatesTokenCount)
	}

	ps, err := DecodeStructure(res.Text())
	if err != nil {
		return Response{Cost: cost}, fmt.Errorf("fragment %s: %w", req.FragmentID, err)
	}
	shiftSpans(ps, req.Offset)
	return Response{Structure: ps, Cost: cost}, nil
}

const promptPreamble = `You are processing a fragment of an Indonesian statute.
Return ONLY valid JSON - no markdown code blocks, no explanations.

The JSON object may contain any of these keys:
  "metadata": {"title", "document_type", "number", "year", "subject", "issuing_authority"}
  "header", "explanation": a section
  "preamble": {"menimbang": section, "mengingat": section, "memutuskan": section}
  "body": [section, ...]
  "closing": {"text": "..."}

A section is {"kind": K, "identifier": "...", "lines": [...], K: payload} where K is one of
header, menimbang, mengingat, memutuskan, pasal, penjelasan, generic and the payload is:
  header:     {"text": "..."}
  menimbang, mengingat: {"items": [{"letter": "a", "content": "..."}]}
  memutuskan: {"text": "..."}
  pasal:      {"number": 5, "intro": "...", "ayat": [{"number": 1, "content": "...",
               "sub_items": [{"type": "huruf", "letter": "a", "content": "..."},
                             {"type": "angka", "number": 1, "content": "..."}]}]}
  penjelasan: {"general_explanation": "...", "article_explanations":
               [{"pasal_number": 1, "explanation": "..."}]}
  generic:    {"raw": "..."}

Keep numbering exactly as written. Do not invent content.
`

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\nFragment type: ")
	b.WriteString(req.Hint)
	b.WriteString("\n")

	switch InitialKind(req) {
	case statute.KindMenimbang:
		b.WriteString("Extract the Menimbang considerations. Each item is usually marked with a letter a, b, c.\n")
	case statute.KindMengingat:
		b.WriteString("Extract the Mengingat legal bases. Each item is usually marked with a letter or number.\n")
	case statute.KindPasal:
		b.WriteString("Extract this Pasal with its ayat (1), (2) and huruf/angka sub-items.\n")
	case statute.KindPenjelasan:
		b.WriteString("Extract the Penjelasan: the general explanation and one entry per explained Pasal.\n")
	default:
		b.WriteString("Extract every part present in this fragment, keeping document order in body.\n")
	}
	b.WriteString("\nFragment text:\n")
	b.WriteString(req.Text)
	return b.String()
}
