package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	root := &cobra.Command{Use: "hukum"}
	root.PersistentFlags().String("config", "", "")
	root.PersistentFlags().String("log-level", "info", "")
	root.PersistentFlags().String("log-format", "json", "")

	cmd := &cobra.Command{Use: "process", RunE: func(*cobra.Command, []string) error { return nil }}
	addRunFlags(cmd)
	root.AddCommand(cmd)
	root.SetArgs(append([]string{"process"}, args...))
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	return cmd
}

func TestLoadConfig_FlagsOverrideDefaults(t *testing.T) {
	cmd := newTestCommand(t, "--budget", "2.5", "--strategy", "chars:500", "--concurrency", "4", "--log-level", "debug")

	cfg, err := loadConfig(cmd)
	if err != nil {
		t.Fatalf("loadConfig() error = %v", err)
	}
	if cfg.Budget.Limit != 2.5 {
		t.Errorf("Expected budget 2.5, got %v", cfg.Budget.Limit)
	}
	if cfg.Scheduler.Strategy != "chars:500" || cfg.Scheduler.Concurrency != 4 {
		t.Errorf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Log.Level)
	}
	if cfg.Extractor.Kind != "local" {
		t.Errorf("Expected the default extractor to stay local, got %s", cfg.Extractor.Kind)
	}
}

func TestLoadConfig_RejectsInvalidStrategy(t *testing.T) {
	cmd := newTestCommand(t, "--strategy", "paragraphs")
	if _, err := loadConfig(cmd); err == nil {
		t.Error("Expected an error for an unknown strategy")
	}
}

func TestLoadConfig_AcceptsSizedStrategies(t *testing.T) {
	for _, strategy := range []string{"words:300", "paragraphs:4", "by_words_300", "by_paragraphs_4"} {
		cmd := newTestCommand(t, "--strategy", strategy)
		cfg, err := loadConfig(cmd)
		if err != nil {
			t.Errorf("loadConfig(%s) error = %v", strategy, err)
			continue
		}
		if cfg.Scheduler.Strategy != strategy {
			t.Errorf("Expected strategy %s, got %s", strategy, cfg.Scheduler.Strategy)
		}
	}
}

func TestReadDocument_RebuildsMissingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	data := `{"id":"uu","metadata":{},"preamble":{},"body":[
		{"kind":"pasal","id":"pasal_1","identifier":"1","pasal":{"number":1,"ayat":[{"number":1,"content":"Sebagaimana dimaksud dalam Pasal 2."}]}},
		{"kind":"pasal","id":"pasal_2","identifier":"2","pasal":{"number":2,"ayat":[{"number":1,"content":"Cukup jelas."}]}}]}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := readDocument(path)
	if err != nil {
		t.Fatalf("readDocument() error = %v", err)
	}
	if doc.References == nil {
		t.Fatal("Expected the reference index to be rebuilt")
	}
	if got := doc.References.ReferencesTo("Pasal 2"); len(got) != 1 {
		t.Errorf("Expected one reference to pasal 2, got %v", got)
	}
	if doc.Section("pasal_1") == nil {
		t.Errorf("Expected pasal_1, got %v", doc.Sections())
	}
}

func TestReadDocument_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := readDocument(path); err == nil {
		t.Error("Expected an error for malformed JSON")
	}
}
