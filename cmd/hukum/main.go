package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/coolbeans/hukum/pkg/mcptools"
	"github.com/coolbeans/hukum/pkg/pipeline"
	"github.com/coolbeans/hukum/pkg/schedule"
	"github.com/coolbeans/hukum/pkg/source"
	"github.com/coolbeans/hukum/pkg/store"
	"github.com/coolbeans/hukum/pkg/watch"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "hukum",
		Short: "Indonesian statute structure extractor",
		Long: `Hukum turns the text of Indonesian statutes (UU, PP, Perpres, Perda and
related instruments) into a structured document tree.

It plans the text into fragments, extracts each fragment under a cost
budget, merges the results and produces:
  - A JSON document with preamble, Pasal, Ayat and Penjelasan
  - A cross-reference index of every "Pasal N" citation
  - A validation report
  - A resumable run snapshot`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "json", "Log format: json or text")

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(resumeCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(segmentCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(refsCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(mcpCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addRunFlags registers the flags that override the run configuration.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("budget", 0, "Budget limit in cost units (overrides config)")
	cmd.Flags().String("strategy", "", "Fragment strategy: sections, single, chars:N, words:N or paragraphs:N")
	cmd.Flags().Int("concurrency", 0, "Fragments extracted in parallel")
	cmd.Flags().String("extractor", "", "Extractor: local or gemini")
	cmd.Flags().String("state-dir", "", "Directory for run snapshots when the file store is used")
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Extract the structure of a statute",
		Long: `Extract the structure of a statute under a cost budget.

The text is planned into fragments, each fragment is extracted within the
budget, and the results are merged and validated. The run snapshot is saved
so an interrupted or budget-limited run can be resumed.

Supported formats: TXT, MD, PDF

Example:
  hukum process --source uu-11-2008.pdf
  hukum process --source uu-11-2008.txt --budget 0.5 --output uu.json --report md
  hukum process --source perda.txt --extractor gemini --strategy chars:8000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			documentID, _ := cmd.Flags().GetString("id")
			output, _ := cmd.Flags().GetString("output")
			reportFormat, _ := cmd.Flags().GetString("report")

			if sourcePath == "" {
				return fmt.Errorf("--source flag is required")
			}
			src, err := source.Load(sourcePath)
			if err != nil {
				return err
			}
			if documentID == "" {
				documentID = src.ID()
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts, err := a.options(ctx, documentID, sourcePath)
			if err != nil {
				return err
			}
			res, runErr := pipeline.Run(ctx, src.Text, opts)
			if res == nil {
				return runErr
			}
			if err := a.flush(ctx); err != nil {
				a.logger.Warn("failed to publish run events", "error", err)
			}
			if err := finishRun(res, output, reportFormat); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringP("source", "s", "", "Statute file (.txt, .md, .pdf)")
	cmd.Flags().String("id", "", "Document identifier (default: source file name)")
	cmd.Flags().StringP("output", "o", "", "Write the document JSON to this file (default: <id>.json)")
	cmd.Flags().String("report", "", "Print the validation report: md or json")
	addRunFlags(cmd)
	return cmd
}

func resumeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume [document-id]",
		Short: "Resume a saved run",
		Long: `Resume a run from its snapshot.

Completed fragments keep their results. Pending, failed and budget-skipped
fragments are extracted again under the new budget; the amount already spent
carries over.

Example:
  hukum resume uu-11-2008 --budget 2
  hukum resume --state .hukum/uu-11-2008.state.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath, _ := cmd.Flags().GetString("state")
			output, _ := cmd.Flags().GetString("output")
			reportFormat, _ := cmd.Flags().GetString("report")
			if len(args) == 0 && statePath == "" {
				return fmt.Errorf("a document id or --state is required")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snapshot, err := a.snapshot(ctx, args, statePath)
			if err != nil {
				return err
			}
			// Fragments carry their own text, so the source is not reread.
			opts, err := a.options(ctx, snapshot.DocumentID, snapshot.Source)
			if err != nil {
				return err
			}

			limit := 0.0
			if cmd.Flags().Changed("budget") {
				limit = a.cfg.Budget.Limit
			}
			res, runErr := pipeline.Resume(ctx, snapshot, limit, opts)
			if res == nil {
				return runErr
			}
			if err := a.flush(ctx); err != nil {
				a.logger.Warn("failed to publish run events", "error", err)
			}
			if err := finishRun(res, output, reportFormat); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().String("state", "", "Snapshot file to resume instead of the configured store")
	cmd.Flags().StringP("output", "o", "", "Write the document JSON to this file (default: <id>.json)")
	cmd.Flags().String("report", "", "Print the validation report: md or json")
	addRunFlags(cmd)
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [document-id]",
		Short: "Show the ledger of a saved run",
		Long: `Show the budget ledger and fragment statuses of a saved run.

Example:
  hukum status uu-11-2008
  hukum status --state .hukum/uu-11-2008.state.json --fragments`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			statePath, _ := cmd.Flags().GetString("state")
			showFragments, _ := cmd.Flags().GetBool("fragments")
			asJSON, _ := cmd.Flags().GetBool("json")
			if len(args) == 0 && statePath == "" {
				return fmt.Errorf("a document id or --state is required")
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			snapshot, err := a.snapshot(ctx, args, statePath)
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(snapshot, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode snapshot: %w", err)
				}
				fmt.Println(string(data))
				return nil
			}
			printStatus(snapshot, showFragments)
			return nil
		},
	}
	cmd.Flags().String("state", "", "Snapshot file to read instead of the configured store")
	cmd.Flags().Bool("fragments", false, "List every fragment")
	cmd.Flags().Bool("json", false, "Print the full snapshot as JSON")
	cmd.Flags().String("state-dir", "", "Directory for run snapshots when the file store is used")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process statutes dropped into an inbox directory",
		Long: `Watch an inbox directory and process every statute file that appears
in it. Each document is written to the output directory as <id>.json.

Example:
  hukum watch --inbox ./inbox --out ./processed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			inboxDir, _ := cmd.Flags().GetString("inbox")
			outDir, _ := cmd.Flags().GetString("out")
			if inboxDir == "" {
				return fmt.Errorf("--inbox flag is required")
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", outDir, err)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			handler := func(ctx context.Context, path string) error {
				src, err := source.Load(path)
				if err != nil {
					return err
				}
				opts, err := a.options(ctx, src.ID(), path)
				if err != nil {
					return err
				}
				res, runErr := pipeline.Run(ctx, src.Text, opts)
				if res == nil {
					return runErr
				}
				if err := a.flush(ctx); err != nil {
					a.logger.Warn("failed to publish run events", "error", err)
				}
				if err := writeJSON(filepath.Join(outDir, src.ID()+".json"), res.Document); err != nil {
					return err
				}
				return runErr
			}

			a.logger.Info("watching inbox", "dir", inboxDir, "out", outDir)
			return watch.NewInbox(inboxDir, handler, watch.WithLogger(a.logger)).Run(ctx)
		},
	}
	cmd.Flags().String("inbox", "", "Directory to watch")
	cmd.Flags().String("out", "processed", "Directory for processed documents")
	addRunFlags(cmd)
	return cmd
}

func mcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the statute tools over MCP on stdio",
		Long: `Serve analyze_structure, segment_document, process_document,
validate_structure, lookup_references and get_status as MCP tools on stdin
and stdout. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opts, err := a.options(ctx, "", "")
			if err != nil {
				return err
			}
			return mcptools.New(opts, version).ServeStdio()
		},
	}
	addRunFlags(cmd)
	return cmd
}

// snapshot loads a run from an explicit state file or from the store.
func (a *app) snapshot(ctx context.Context, args []string, statePath string) (*schedule.Snapshot, error) {
	if statePath != "" {
		return store.ReadFile(statePath)
	}
	snapshot, err := a.store.Load(ctx, args[0])
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no saved run for %s", args[0])
	}
	return snapshot, err
}

func (a *app) flush(ctx context.Context) error {
	if a.notifier == nil {
		return nil
	}
	return a.notifier.Flush(ctx)
}

// finishRun writes the document and prints the run summary.
func finishRun(res *pipeline.Result, output, reportFormat string) error {
	if output == "" {
		output = res.Document.ID + ".json"
	}
	if err := writeJSON(output, res.Document); err != nil {
		return err
	}

	stats := res.Report.Statistics
	fmt.Printf("Processed %s (run %s)\n", res.Document.ID, res.Snapshot.RunID)
	fmt.Printf("  Title:       %s\n", res.Document.Metadata.Title)
	fmt.Printf("  Pasal:       %d (%d ayat)\n", stats.Pasal, stats.Ayat)
	fmt.Printf("  References:  %d targets\n", stats.References)
	fmt.Printf("  Spent:       %.6f of %.6f\n", res.Snapshot.Spent, res.Snapshot.Limit)
	fmt.Printf("  Validation:  %s\n", res.Report.Status)
	fmt.Printf("  Output:      %s\n", output)

	switch reportFormat {
	case "":
	case "md", "markdown":
		fmt.Println()
		fmt.Print(res.Report.ToMarkdown())
	case "json":
		data, err := res.Report.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
		fmt.Println(string(data))
	default:
		return fmt.Errorf("unknown report format: %s", reportFormat)
	}
	return nil
}

func printStatus(snapshot *schedule.Snapshot, showFragments bool) {
	fmt.Printf("Run %s\n", snapshot.RunID)
	fmt.Printf("  Document:  %s\n", snapshot.DocumentID)
	if snapshot.Source != "" {
		fmt.Printf("  Source:    %s\n", snapshot.Source)
	}
	fmt.Printf("  Strategy:  %s\n", snapshot.Strategy)
	fmt.Printf("  Spent:     %.6f of %.6f\n", snapshot.Spent, snapshot.Limit)
	fmt.Printf("  Updated:   %s\n", snapshot.UpdatedAt.Format("2006-01-02 15:04:05"))

	counts := snapshot.Counts()
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	fmt.Println("\nFragments:")
	for _, status := range statuses {
		fmt.Printf("  %-16s %d\n", status, counts[schedule.Status(status)])
	}

	if !showFragments {
		return
	}
	fmt.Println()
	for _, f := range snapshot.Fragments {
		line := fmt.Sprintf("  %-20s %-16s %.6f", f.ID, f.Status, f.ActualCost)
		if f.Error != "" {
			line += "  " + f.Error
		}
		fmt.Println(line)
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
