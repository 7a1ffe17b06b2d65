package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
	"github.com/sethyboi74/odemasterpro/internal/config"
	"github.com/sethyboi74/odemasterpro/internal/observability"
	"github.com/sethyboi74/odemasterpro/internal/workshop"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newAnalyzeCmd creates and configures the `analyze` command.
func newAnalyzeCmd() *cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [files...]",
		Short: "Extracts external resources and CSS rules from the given files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			files, err := readSourceFiles(args, cfg.Workshop.MaxFileBytes, logger)
			if err != nil {
				return err
			}

			analyzer := workshop.NewAnalyzer(logger)
			report, err := analyzer.Analyze(ctx, files)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			rendered, err := renderReport(report, format)
			if err != nil {
				return err
			}
			return writeOutput(rendered, output)
		},
	}

	analyzeCmd.Flags().StringP("format", "f", "text", "Output format ('text' or 'json').")
	analyzeCmd.Flags().StringP("output", "o", "", "Output file path. Defaults to stdout.")

	return analyzeCmd
}

// readSourceFiles loads each path, classifies it by extension, and rejects
// files over the configured size cap. Unknown extensions are skipped with a
// warning rather than failing the whole run.
func readSourceFiles(paths []string, maxBytes int64, logger *zap.Logger) ([]schemas.SourceFile, error) {
	var files []schemas.SourceFile
	for _, path := range paths {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
		kind, ok := schemas.KindForExtension(ext)
		if !ok {
			logger.Warn("Skipping file with unsupported extension", zap.String("path", path))
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if maxBytes > 0 && info.Size() > maxBytes {
			return nil, fmt.Errorf("%s is %d bytes, over the %d byte limit", path, info.Size(), maxBytes)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		files = append(files, schemas.SourceFile{
			Name:    filepath.Base(path),
			Content: string(content),
			Kind:    kind,
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no supported files among %d inputs", len(paths))
	}
	return files, nil
}

func renderReport(report schemas.AnalysisReport, format string) (string, error) {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode report: %w", err)
		}
		return string(data) + "\n", nil
	case "text":
		return renderReportText(report), nil
	default:
		return "", fmt.Errorf("unsupported format %q (want 'text' or 'json')", format)
	}
}

func renderReportText(report schemas.AnalysisReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "External resources (%d):\n", len(report.Resources))
	for _, r := range report.Resources {
		hint := string(r.RecommendedHint)
		note := ""
		if r.ExistingHint != "" {
			hint = string(r.ExistingHint)
			note = " (already hinted)"
		}
		fmt.Fprintf(&b, "  [%s] %s -> %s%s\n", r.Kind, r.URL, hint, note)
	}

	fmt.Fprintf(&b, "\nCSS rules (%d):\n", len(report.Rules))
	for _, rule := range report.Rules {
		fmt.Fprintf(&b, "  %s (lines %d-%d, %d declarations) in %s\n",
			rule.Selector, rule.StartLine, rule.EndLine, len(rule.Properties), rule.SourceLabel)
	}
	return b.String()
}

func writeOutput(content, path string) error {
	if path == "" {
		fmt.Print(content)
		return nil
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
