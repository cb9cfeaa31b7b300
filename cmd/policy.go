package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/mwoo-bridge/mwoo/internal/document"
	"github.com/mwoo-bridge/mwoo/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy (--kind KIND | --policy FILE)",
	Short: "Print a comparison policy",
	Long: `Prints the built-in policy of a record kind, or validates and normalises a
policy file. The output is itself a valid policy file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		policyFile, _ := cmd.Flags().GetString("policy")
		kind, _ := cmd.Flags().GetString("kind")
		if policyFile == "" && kind == "" {
			return errors.New("either --kind or --policy is required")
		}
		cfg, err := loadPolicy(policyFile, kind)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		return document.Encode(cmd.OutOrStdout(), policy.ToMap(cfg), document.Format(output))
	},
}

func init() {
	rootCmd.AddCommand(policyCmd)

	policyCmd.Flags().StringP("kind", "k", "", "Record kind: product, category or tag")
	policyCmd.Flags().String("policy", "", "Policy file to validate")
	policyCmd.Flags().StringP("output", "o", outputYAML, "Output format: yaml or json")
	policyCmd.MarkFlagsMutuallyExclusive("policy", "kind")
	_ = policyCmd.RegisterFlagCompletionFunc("kind", kindCompletion)
}
