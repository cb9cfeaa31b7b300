package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/wI2L/jsondiff"

	"github.com/mwoo-bridge/mwoo/internal/document"
	"github.com/mwoo-bridge/mwoo/internal/patch"
	"github.com/mwoo-bridge/mwoo/internal/ui"
	"github.com/mwoo-bridge/mwoo/pkg/deepdiff"
	"github.com/mwoo-bridge/mwoo/pkg/diffpreview"
)

const (
	outputJSON    = "json"
	outputYAML    = "yaml"
	outputPreview = "preview"
	outputPatch   = "patch"
	outputTable   = "table"
)

var diffCmd = &cobra.Command{
	Use:   "diff [FLAGS] LEFT RIGHT",
	Short: "Print the change-set that turns LEFT into RIGHT",
	Long: `Compares two JSON, JSON5 or YAML documents and prints the change-set, the part
of RIGHT that differs from LEFT. Use "-" to read one side from stdin.

Keys missing on the right are not removals unless --mark-removals is set, as
the right side is usually a partial desired state.`,
	Example: `  mwoo diff remote.json desired.yaml --kind product
  mwoo diff a.json b.json --policy policy.yaml -o preview`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDiff(cmd, args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().String("policy", "", "Policy file (YAML or JSON)")
	diffCmd.Flags().StringP("kind", "k", "", "Use the built-in policy of this record kind")
	diffCmd.Flags().StringP("output", "o", outputJSON, "Output format: json, yaml, preview or patch")
	diffCmd.Flags().BoolP("interactive", "i", false, "Show the preview in a pager")
	diffCmd.Flags().Bool("mark-removals", false, "Report keys missing on the right as removed")
	diffCmd.Flags().Bool("exit-code", false, "Exit with 1 if there are differences")
	diffCmd.MarkFlagsMutuallyExclusive("policy", "kind")
	_ = diffCmd.RegisterFlagCompletionFunc("kind", kindCompletion)

	for _, name := range []string{"policy", "kind", "output", "mark-removals"} {
		mustBind(name, viper.BindPFlag("diff."+name, diffCmd.Flags().Lookup(name)))
	}
}

func runDiff(cmd *cobra.Command, leftPath, rightPath string) error {
	interactive, _ := cmd.Flags().GetBool("interactive")
	exitCode, _ := cmd.Flags().GetBool("exit-code")
	output := viper.GetString("diff.output")
	if interactive {
		output = outputPreview
	}

	closeLog, err := setupLogger(interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := loadPolicy(viper.GetString("diff.policy"), viper.GetString("diff.kind"))
	if err != nil {
		return err
	}
	left, err := document.Load(leftPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", leftPath, err)
	}
	right, err := document.Load(rightPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", rightPath, err)
	}
	if viper.GetBool("diff.mark-removals") {
		right = deepdiff.MarkRemovals(left, right)
	}

	changeset, err := deepdiff.Diff(left, right, cfg)
	if err != nil {
		return err
	}
	changed := deepdiff.Changed(changeset)
	log.Debug().
		Str("left", leftPath).
		Str("right", rightPath).
		Bool("changed", changed).
		Msg("compared documents")

	out := cmd.OutOrStdout()
	switch output {
	case outputJSON:
		err = document.Encode(out, changeset, document.JSON)
	case outputYAML:
		err = document.Encode(out, changeset, document.YAML)
	case outputPatch:
		leftObj, ok := left.(map[string]any)
		if !ok {
			return fmt.Errorf("patch output needs an object on the left, got %s", deepdiff.KindOf(left))
		}
		ops, opsErr := patch.Operations(leftObj, changeset, cfg)
		if opsErr != nil {
			return opsErr
		}
		if ops == nil {
			ops = []jsondiff.Operation{}
		}
		err = document.Encode(out, ops, document.JSON)
	case outputPreview:
		if !changed {
			_, err = fmt.Fprintln(out, "no differences")
			break
		}
		node := diffpreview.Annotate(left, changeset, cfg, false)
		if interactive {
			rendered := diffpreview.RenderYAML(node, diffpreview.DarkTheme, diffpreview.DefaultRenderOptions)
			err = ui.RunPager(rightPath, rendered)
			break
		}
		_, err = fmt.Fprint(out, diffpreview.RenderYAML(node, diffpreview.DarkTheme, diffpreview.RenderOptions{
			IndentSize: 2,
			Markers:    true,
		}))
	default:
		return fmt.Errorf("unknown output format %q", output)
	}
	if err != nil {
		return err
	}

	if exitCode && changed {
		return errChangesFound
	}
	return nil
}
