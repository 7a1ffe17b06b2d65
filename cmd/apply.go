package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sethyboi74/odemasterpro/api/schemas"
	"github.com/sethyboi74/odemasterpro/internal/observability"
	"github.com/sethyboi74/odemasterpro/internal/verify"
	"github.com/sethyboi74/odemasterpro/internal/workshop"
)

// newApplyCmd creates and configures the `apply` command.
func newApplyCmd() *cobra.Command {
	applyCmd := &cobra.Command{
		Use:   "apply",
		Short: "Applies a patch to a file: resource hints into <head>, or a CSS rule rewrite",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			file, _ := cmd.Flags().GetString("file")
			target, _ := cmd.Flags().GetString("target")
			output, _ := cmd.Flags().GetString("output")
			dryRun, _ := cmd.Flags().GetBool("dry-run")

			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			buffer := string(raw)

			content, err := resolveContent(cmd)
			if err != nil {
				return err
			}

			analyzer := workshop.NewAnalyzer(logger)
			patcher := workshop.NewPatcher(logger)

			var result schemas.PatchResult
			if strings.EqualFold(target, "head") {
				result, err = patcher.ApplyHints(buffer, analyzer.Resources(buffer))
			} else {
				if content == "" {
					return fmt.Errorf("--content or --content-file is required when targeting a CSS rule")
				}
				result, err = patcher.ApplyRule(buffer, target, content)
			}
			if err != nil {
				return err
			}

			fmt.Println(result.Summary)
			if result.Placement == schemas.PlacementManual {
				fmt.Printf("\nAdd this snippet inside <head> yourself:\n%s\n", result.Snippet)
				return nil
			}
			if result.Placement == schemas.PlacementAfterOpen {
				warnOnStructure(result.Buffer, logger)
			}

			if dryRun {
				fmt.Print(result.Buffer)
				return nil
			}

			dest := output
			if dest == "" {
				dest = file
			}
			if err := os.WriteFile(dest, []byte(result.Buffer), 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", dest, err)
			}
			fmt.Printf("Wrote %s\n", dest)
			return nil
		},
	}

	applyCmd.Flags().String("file", "", "Path of the file to patch.")
	applyCmd.Flags().String("target", "head", "Patch target: 'head' for resource hints, or a CSS selector.")
	applyCmd.Flags().String("content", "", "Replacement declaration block when targeting a CSS selector.")
	applyCmd.Flags().String("content-file", "", "Read the replacement block from a file instead of --content.")
	applyCmd.Flags().StringP("output", "o", "", "Write the result here instead of overwriting the input.")
	applyCmd.Flags().Bool("dry-run", false, "Print the patched buffer without writing any file.")
	_ = applyCmd.MarkFlagRequired("file")

	return applyCmd
}

func resolveContent(cmd *cobra.Command) (string, error) {
	content, _ := cmd.Flags().GetString("content")
	contentFile, _ := cmd.Flags().GetString("content-file")
	if content != "" && contentFile != "" {
		return "", fmt.Errorf("--content and --content-file are mutually exclusive")
	}
	if contentFile != "" {
		data, err := os.ReadFile(contentFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", contentFile, err)
		}
		return string(data), nil
	}
	return content, nil
}

// warnOnStructure re-parses the patched document when the insert landed on the
// fallback tier; a malformed head is worth flagging to the user.
func warnOnStructure(buffer string, logger *zap.Logger) {
	report, err := verify.Check(buffer)
	if err != nil {
		logger.Warn("Could not verify patched document", zap.Error(err))
		return
	}
	if !report.HasHead {
		logger.Warn("Patched document has no parseable <head>; review the result manually")
	}
}
