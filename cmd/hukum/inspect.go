package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/hukum/pkg/extract"
	"github.com/coolbeans/hukum/pkg/graph"
	"github.com/coolbeans/hukum/pkg/schedule"
	"github.com/coolbeans/hukum/pkg/source"
	"github.com/coolbeans/hukum/pkg/statute"
	"github.com/coolbeans/hukum/pkg/validate"
)

func segmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "segment",
		Short: "Show how a statute would be cut into fragments",
		Long: `Plan a statute into fragments without extracting them, and print each
fragment with its span and estimated cost.

Example:
  hukum segment --source uu-11-2008.txt
  hukum segment --source uu-11-2008.txt --strategy chars:4000
  hukum segment --source uu-11-2008.txt --strategy paragraphs:5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			if sourcePath == "" {
				return fmt.Errorf("--source flag is required")
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			src, err := source.Load(sourcePath)
			if err != nil {
				return err
			}
			fragments, err := schedule.Plan(src.Text, cfg.Scheduler.Strategy)
			if err != nil {
				return err
			}

			fmt.Printf("%d fragments (%s)\n\n", len(fragments), cfg.Scheduler.Strategy)
			fmt.Printf("  %-20s %-12s %-15s %8s %12s\n", "ID", "HINT", "SPAN", "CHARS", "ESTIMATE")
			total := 0.0
			for _, f := range fragments {
				estimate := cfg.Budget.Cost.Estimate(f)
				total += estimate
				span := fmt.Sprintf("%d-%d", f.Span.Start, f.Span.End)
				fmt.Printf("  %-20s %-12s %-15s %8d %12.6f\n", f.ID, f.Hint, span, len(f.Text), estimate)
			}
			fmt.Printf("\nEstimated total: %.6f (budget %.6f)\n", total, cfg.Budget.Limit)
			return nil
		},
	}
	cmd.Flags().StringP("source", "s", "", "Statute file (.txt, .md, .pdf)")
	cmd.Flags().String("strategy", "", "Fragment strategy: sections, single, chars:N, words:N or paragraphs:N")
	cmd.Flags().Float64("budget", 0, "Budget limit to compare the estimate against")
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Summarize the structure of a statute",
		Long: `Scan a statute and report which sections occur, how many Pasal, Bab
and Ayat it holds, a complexity estimate and a recommended strategy.

Example:
  hukum analyze --source uu-11-2008.pdf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			if sourcePath == "" {
				return fmt.Errorf("--source flag is required")
			}
			src, err := source.Load(sourcePath)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(extract.Analyze(src.Text), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode analysis: %w", err)
			}
			fmt.Println(string(data))
			return nil
		},
	}
	cmd.Flags().StringP("source", "s", "", "Statute file (.txt, .md, .pdf)")
	return cmd
}

func refsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "refs <document.json>",
		Short: "List the cross-references of a processed document",
		Long: `List the cross-reference index of a processed document.

With --target only the locations referencing that target are listed.
The turtle format exports the document and its citations as RDF.

Example:
  hukum refs uu-11-2008.json
  hukum refs uu-11-2008.json --target "Pasal 5"
  hukum refs uu-11-2008.json --format turtle > uu-11-2008.ttl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, _ := cmd.Flags().GetString("target")
			format, _ := cmd.Flags().GetString("format")
			baseURI, _ := cmd.Flags().GetString("base-uri")

			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			switch format {
			case "text":
				printReferences(doc, target)
			case "json":
				var v any = doc.References
				if target != "" {
					v = map[string]any{
						"target":     statute.Canonical(target),
						"referenced": doc.References.ReferencesTo(target),
					}
				}
				data, err := json.MarshalIndent(v, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode references: %w", err)
				}
				fmt.Println(string(data))
			case "turtle", "ttl":
				tripleStore := graph.NewTripleStore()
				stats, err := graph.NewGraphBuilder(tripleStore, baseURI).Build(doc)
				if err != nil {
					return err
				}
				fmt.Print(graph.NewTurtleSerializer().Serialize(tripleStore))
				fmt.Fprintf(os.Stderr, "%d triples, %d citations, %d unresolved targets\n",
					stats.Triples, stats.Citations, stats.Unresolved)
			default:
				return fmt.Errorf("unknown format: %s (valid: text, json, turtle)", format)
			}
			return nil
		},
	}
	cmd.Flags().String("target", "", "Only list references to this target, e.g. \"Pasal 5\"")
	cmd.Flags().String("format", "text", "Output format: text, json or turtle")
	cmd.Flags().String("base-uri", graph.DefaultBaseURI, "Base URI for turtle output")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <document.json>",
		Short: "Validate a processed document",
		Long: `Check a processed document for completeness and consistency.

Exits with an error when the document is invalid.

Example:
  hukum validate uu-11-2008.json
  hukum validate uu-11-2008.json --profile profiles/perda.yaml --format markdown`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			profilePath, _ := cmd.Flags().GetString("profile")
			format, _ := cmd.Flags().GetString("format")

			if profilePath == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				profilePath = cfg.Validation.Profile
			}
			profile, err := loadProfile(profilePath)
			if err != nil {
				return err
			}
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}

			report := validate.NewValidator(profile).Validate(doc)
			switch format {
			case "json":
				data, err := report.ToJSON()
				if err != nil {
					return fmt.Errorf("failed to encode report: %w", err)
				}
				fmt.Println(string(data))
			case "markdown", "md":
				fmt.Print(report.ToMarkdown())
			default:
				return fmt.Errorf("unknown format: %s (valid: json, markdown)", format)
			}
			if !report.IsValid {
				return fmt.Errorf("%s is invalid: %d errors", doc.ID, len(report.Errors))
			}
			return nil
		},
	}
	cmd.Flags().String("profile", "", "Validation profile YAML (default: from config)")
	cmd.Flags().String("format", "markdown", "Output format: json or markdown")
	return cmd
}

func readDocument(path string) (*statute.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var doc statute.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", path, err)
	}
	if doc.References == nil {
		extract.Resolve(&doc)
	}
	return &doc, nil
}

func printReferences(doc *statute.Document, target string) {
	if target != "" {
		locations := doc.References.ReferencesTo(target)
		fmt.Printf("%s: %d references\n", statute.Canonical(target), len(locations))
		for _, loc := range locations {
			fmt.Printf("  %s\n", loc)
		}
		return
	}

	targets := doc.References.Targets()
	fmt.Printf("%d referenced targets in %s\n\n", len(targets), doc.ID)
	for _, t := range targets {
		locations := doc.References.ReferencesTo(t)
		from := make([]string, len(locations))
		for i, loc := range locations {
			from[i] = loc.String()
		}
		fmt.Printf("  %-30s %s\n", t, strings.Join(from, ", "))
	}
}
