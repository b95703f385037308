// Package mcptools exposes statute analysis and processing as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/coolbeans/hukum/pkg/extract"
	"github.com/coolbeans/hukum/pkg/pipeline"
	"github.com/coolbeans/hukum/pkg/schedule"
	"github.com/coolbeans/hukum/pkg/source"
	"github.com/coolbeans/hukum/pkg/statute"
	"github.com/coolbeans/hukum/pkg/store"
	"github.com/coolbeans/hukum/pkg/validate"
)

// Server holds the tools and the documents processed during the session.
type Server struct {
	base pipeline.Options
	mcp  *server.MCPServer

	mu        sync.Mutex
	documents map[string]*statute.Document
	snapshots map[string]*schedule.Snapshot
}

// New creates a server whose process_document runs use base for everything
// the tool arguments do not set.
func New(base pipeline.Options, version string) *Server {
	s := &Server{
		base:      base,
		documents: make(map[string]*statute.Document),
		snapshots: make(map[string]*schedule.Snapshot),
	}
	s.mcp = server.NewMCPServer(
		"hukum",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)
	s.addTools()
	return s
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ServeStdio serves the tools over stdin and stdout until EOF.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) addTools() {
	s.mcp.AddTool(mcp.NewTool("analyze_structure",
		mcp.WithDescription("Map the structure of an Indonesian statute: sections found, Pasal/Bab/Ayat counts, complexity and a recommended chunking strategy"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Statute text")),
	), s.handleAnalyze)

	s.mcp.AddTool(mcp.NewTool("segment_document",
		mcp.WithDescription("Cut a statute into processing fragments and estimate their cost"),
		mcp.WithString("text", mcp.Required(), mcp.Description("Statute text")),
		mcp.WithString("strategy", mcp.Description("sections, single, chars:N, words:N or paragraphs:N"), mcp.DefaultString(schedule.StrategySections)),
	), s.handleSegment)

	s.mcp.AddTool(mcp.NewTool("process_document",
		mcp.WithDescription("Extract the full structure of a statute under a cost budget and validate it"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Identifier for the document")),
		mcp.WithString("text", mcp.Description("Statute text; either text or path is required")),
		mcp.WithString("path", mcp.Description("Path to a .txt or .pdf statute")),
		mcp.WithString("strategy", mcp.Description("sections, single, chars:N, words:N or paragraphs:N")),
		mcp.WithNumber("budget", mcp.Description("Budget limit for this run; 0 uses the configured limit"), mcp.DefaultNumber(0)),
	), s.handleProcess)

	s.mcp.AddTool(mcp.NewTool("validate_structure",
		mcp.WithDescription("Check a processed document for completeness"),
		mcp.WithString("document_id", mcp.Description("A document processed in this session")),
		mcp.WithString("document_json", mcp.Description("A document as JSON, used when document_id is not given")),
	), s.handleValidate)

	s.mcp.AddTool(mcp.NewTool("lookup_references",
		mcp.WithDescription("List where a processed document references a target such as \"Pasal 5\", or all targets when none is given"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("A document processed in this session")),
		mcp.WithString("target", mcp.Description("Target identifier")),
	), s.handleLookup)

	s.mcp.AddTool(mcp.NewTool("search_content",
		mcp.WithDescription("Search the fragments of a document run for a term, case-insensitively, in both the raw text and the extracted structure"),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("A document processed in this session or saved in the state store")),
		mcp.WithString("query", mcp.Required(), mcp.Description("Term to search for")),
	), s.handleSearch)

	s.mcp.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Report the processing ledger of a document run: spent, limit and fragment statuses"),
		mcp.WithString("document_id", mcp.Description("Document to report; empty lists every run of the session")),
	), s.handleStatus)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleAnalyze(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(extract.Analyze(text))
}

// fragmentSummary is a fragment without its text.
type fragmentSummary struct {
	ID            string       `json:"id"`
	Hint          string       `json:"hint"`
	Span          statute.Span `json:"span"`
	Chars         int          `json:"chars"`
	EstimatedCost float64      `json:"estimated_cost"`
}

func (s *Server) handleSegment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fragments, err := schedule.Plan(text, req.GetString("strategy", schedule.StrategySections))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cost := s.base.Cost
	if cost == nil {
		cost = schedule.DefaultCost
	}
	summaries := make([]fragmentSummary, 0, len(fragments))
	total := 0.0
	for _, f := range fragments {
		estimate := cost.Estimate(f)
		total += estimate
		summaries = append(summaries, fragmentSummary{ID: f.ID, Hint: f.Hint, Span: f.Span, Chars: len(f.Text), EstimatedCost: estimate})
	}
	return jsonResult(map[string]any{
		"fragments":            summaries,
		"total_estimated_cost": total,
	})
}

func (s *Server) handleProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := req.GetString("text", "")
	opts := s.base
	opts.DocumentID = documentID
	if path := req.GetString("path", ""); path != "" {
		src, err := source.Load(path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, opts.Source = src.Text, path
	}
	if text == "" {
		return mcp.NewToolResultError("either text or path is required"), nil
	}
	if strategy := req.GetString("strategy", ""); strategy != "" {
		opts.Strategy = strategy
	}
	if budget := req.GetFloat("budget", 0); budget > 0 {
		opts.Limit = budget
	}

	res, err := pipeline.Run(ctx, text, opts)
	if res == nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.remember(res)

	out := map[string]any{
		"document":   res.Document,
		"validation": res.Report,
	}
	if err != nil {
		out["interrupted"] = err.Error()
	}
	return jsonResult(out)
}

func (s *Server) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.document(req.GetString("document_id", ""), req.GetString("document_json", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	report := validate.NewValidator(s.base.Profile).Validate(doc)
	return jsonResult(report)
}

func (s *Server) handleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.document(documentID, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target := req.GetString("target", "")
	if target == "" {
		return jsonResult(doc.References)
	}
	return jsonResult(map[string]any{
		"target":     statute.Canonical(target),
		"referenced": doc.References.ReferencesTo(target),
	})
}

// runStatus is the get_status view of a snapshot.
type runStatus struct {
	RunID      string                  `json:"run_id"`
	DocumentID string                  `json:"document_id"`
	Spent      float64                 `json:"spent"`
	Limit      float64                 `json:"limit"`
	Counts     map[schedule.Status]int `json:"fragment_counts"`
	Fragments  map[string]string       `json:"fragments"`
}

func newRunStatus(snapshot *schedule.Snapshot) runStatus {
	status := runStatus{
		RunID:      snapshot.RunID,
		DocumentID: snapshot.DocumentID,
		Spent:      snapshot.Spent,
		Limit:      snapshot.Limit,
		Counts:     snapshot.Counts(),
		Fragments:  make(map[string]string, len(snapshot.Fragments)),
	}
	for _, f := range snapshot.Fragments {
		status.Fragments[f.ID] = string(f.Status)
	}
	return status
}

func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID := req.GetString("document_id", "")
	if documentID == "" {
		s.mu.Lock()
		ids := make([]string, 0, len(s.snapshots))
		for id := range s.snapshots {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		statuses := make([]runStatus, 0, len(ids))
		for _, id := range ids {
			statuses = append(statuses, newRunStatus(s.snapshots[id]))
		}
		s.mu.Unlock()
		return jsonResult(statuses)
	}

	snapshot, err := s.snapshot(ctx, documentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(newRunStatus(snapshot))
}

// previewLen bounds the text shown around a search match.
const previewLen = 300

// Match types reported by search_content.
const (
	matchRawContent = "raw_content"
	matchStructure  = "extracted_structure"
)

// searchMatch is one search_content hit.
type searchMatch struct {
	FragmentID string `json:"fragment_id"`
	MatchType  string `json:"match_type"`
	Preview    string `json:"preview"`
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	documentID, err := req.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query must not be empty"), nil
	}
	snapshot, err := s.snapshot(ctx, documentID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(searchFragments(snapshot.Fragments, query))
}

// searchFragments matches query against each fragment's text and, when the
// fragment completed, its extracted structure encoded as JSON.
func searchFragments(fragments []*schedule.Fragment, query string) []searchMatch {
	matches := []searchMatch{}
	for _, f := range fragments {
		if preview, ok := matchPreview(f.Text, query); ok {
			matches = append(matches, searchMatch{FragmentID: f.ID, MatchType: matchRawContent, Preview: preview})
		}
		if f.Result == nil {
			continue
		}
		data, err := json.MarshalIndent(f.Result, "", "  ")
		if err != nil {
			continue
		}
		if preview, ok := matchPreview(string(data), query); ok {
			matches = append(matches, searchMatch{FragmentID: f.ID, MatchType: matchStructure, Preview: preview})
		}
	}
	return matches
}

// matchPreview reports whether text contains query, ignoring case, and
// returns up to previewLen bytes of text around the first match.
func matchPreview(text, query string) (string, bool) {
	lower := strings.ToLower(text)
	i := strings.Index(lower, strings.ToLower(query))
	if i < 0 {
		return "", false
	}
	if len(lower) != len(text) {
		// Lowering changed byte offsets; preview from the start.
		i = 0
	}
	start := i - previewLen/3
	if start < 0 {
		start = 0
	}
	end := start + previewLen
	if end > len(text) {
		end = len(text)
	}
	for start > 0 && !utf8.RuneStart(text[start]) {
		start--
	}
	for end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	preview := text[start:end]
	if start > 0 {
		preview = "..." + preview
	}
	if end < len(text) {
		preview += "..."
	}
	return preview, true
}

// snapshot returns the run of documentID from this session, or from the
// state store when one is configured.
func (s *Server) snapshot(ctx context.Context, documentID string) (*schedule.Snapshot, error) {
	s.mu.Lock()
	snapshot, ok := s.snapshots[documentID]
	s.mu.Unlock()
	if ok {
		return snapshot, nil
	}
	if s.base.Store != nil {
		loaded, err := s.base.Store.Load(ctx, documentID)
		if err == nil {
			return loaded, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no run recorded for %s", documentID)
}

func (s *Server) remember(res *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[res.Document.ID] = res.Document
	s.snapshots[res.Snapshot.DocumentID] = res.Snapshot
}

// document returns a document of this session, or decodes documentJSON.
func (s *Server) document(documentID, documentJSON string) (*statute.Document, error) {
	if documentID != "" {
		s.mu.Lock()
		defer s.mu.Unlock()
		doc, ok := s.documents[documentID]
		if !ok {
			return nil, fmt.Errorf("document %s has not been processed in this session", documentID)
		}
		return doc, nil
	}
	if documentJSON == "" {
		return nil, fmt.Errorf("document_id or document_json is required")
	}
	var doc statute.Document
	if err := json.Unmarshal([]byte(documentJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document_json: %w", err)
	}
	return &doc, nil
}
