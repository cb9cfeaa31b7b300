package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwoo-bridge/mwoo/internal/document"
	"github.com/mwoo-bridge/mwoo/internal/planner"
	"github.com/mwoo-bridge/mwoo/internal/policy"
	"github.com/mwoo-bridge/mwoo/internal/service"
	"github.com/mwoo-bridge/mwoo/internal/store"
	bboltStore "github.com/mwoo-bridge/mwoo/internal/store/bbolt"
	"github.com/mwoo-bridge/mwoo/internal/ui"
)

var planCmd = &cobra.Command{
	Use:   "plan [FLAGS]",
	Short: "Decide which records have to be created or updated remotely",
	Long: `Pairs the remote records with the desired records by identity (sku for
products, slug for categories and tags) and decides per record whether it has
to be created, updated, or is up-to-date. Records that only exist remotely are
reported as orphans and are never deleted.

With --ledger every planned payload is committed to a ledger file, see
"mwoo history".`,
	Example: `  mwoo plan --kind product --remote remote.json --desired products.yaml
  mwoo plan -k tag --desired tags.json5 --ledger sync.ledger --filter 'Prefix("sale-")'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPlan(cmd)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringP("kind", "k", "", "Record kind: product, category or tag")
	planCmd.Flags().String("remote", "", "Remote records (JSON, JSON5 or YAML); empty plans against nothing")
	planCmd.Flags().String("desired", "", "Desired records (JSON, JSON5 or YAML)")
	planCmd.Flags().String("policy", "", "Policy file overriding the built-in policy of the kind")
	planCmd.Flags().String("identity", "", "Field pairing records up (default: the kind's)")
	planCmd.Flags().StringP("filter", "f", "", "Filter expression selecting the records to plan (default: all records)")
	planCmd.Flags().IntP("workers", "w", planner.DefaultWorkers, "Number of records compared at once")
	planCmd.Flags().StringP("output", "o", outputTable, "Output format: table or json")
	planCmd.Flags().BoolP("interactive", "i", false, "Browse the plan in a TUI")
	planCmd.Flags().String("dump-dir", "", "Write each remote record to <dir>/<id>.json")
	planCmd.Flags().Bool("exit-code", false, "Exit with 1 if records have to be created or updated")

	// ledger flags
	planCmd.Flags().String("ledger", "", "Record the planned payloads in this ledger file")
	planCmd.Flags().Uint64P("snapshot-every", "s", 10,
		"Store a full snapshot after this many ledger revisions")
	planCmd.Flags().Bool("no-durable-sync", false,
		"Skip fsync on every ledger commit to improve throughput (unsafe on crashes)")
	planCmd.Flags().Bool("disable-cache", false,
		"Disable in-memory cache layer for the ledger")
	planCmd.Flags().String("ledger-codec", "msgpack", "Encoding of ledger revisions: msgpack or json")

	_ = planCmd.MarkFlagRequired("kind")
	_ = planCmd.MarkFlagRequired("desired")
	_ = planCmd.RegisterFlagCompletionFunc("kind", kindCompletion)

	for _, name := range []string{
		"kind", "remote", "desired", "policy", "identity", "filter", "workers", "output", "dump-dir",
		"ledger", "snapshot-every", "no-durable-sync", "disable-cache", "ledger-codec",
	} {
		mustBind(name, viper.BindPFlag("plan."+name, planCmd.Flags().Lookup(name)))
	}
}

func runPlan(cmd *cobra.Command) error {
	interactive, _ := cmd.Flags().GetBool("interactive")
	exitCode, _ := cmd.Flags().GetBool("exit-code")

	closeLog, err := setupLogger(interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	kind, err := policy.ParseKind(viper.GetString("plan.kind"))
	if err != nil {
		return err
	}
	cfg, err := loadPolicy(viper.GetString("plan.policy"), kind.String())
	if err != nil {
		return err
	}

	var remote []map[string]any
	if path := viper.GetString("plan.remote"); path != "" {
		if remote, err = document.LoadRecords(path); err != nil {
			return fmt.Errorf("loading remote records: %w", err)
		}
	}
	desired, err := document.LoadRecords(viper.GetString("plan.desired"))
	if err != nil {
		return fmt.Errorf("loading desired records: %w", err)
	}

	opts := planner.Options{
		Kind:     kind,
		Policy:   cfg,
		Identity: viper.GetString("plan.identity"),
		Workers:  viper.GetInt("plan.workers"),
		Filter:   viper.GetString("plan.filter"),
		Logger:   log.Logger,
	}

	if path := viper.GetString("plan.ledger"); path != "" {
		log.Info().Str("ledger-file", path).Msg("Preparing ledger...")
		codec, codecErr := ledgerCodec(viper.GetString("plan.ledger-codec"))
		if codecErr != nil {
			return codecErr
		}
		rps, storeErr := bboltStore.New(path, codec, !viper.GetBool("plan.no-durable-sync"))
		if storeErr != nil {
			return fmt.Errorf("opening ledger: %w", storeErr)
		}
		ledger := service.NewLedgerService(rps, service.Options{
			SnapshotEvery: viper.GetUint64("plan.snapshot-every"),
			Logger:        log.Logger,
			DisableCache:  viper.GetBool("plan.disable-cache"),
		})
		defer func() {
			if closeErr := ledger.Close(); closeErr != nil {
				log.Error().Err(closeErr).Msg("Error closing ledger")
			}
		}()
		opts.Ledger = ledger
	}

	p, err := planner.New(opts)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	plan, err := p.Plan(ctx, remote, desired)
	if err != nil {
		return err
	}

	if dir := viper.GetString("plan.dump-dir"); dir != "" {
		if err := dumpRemotes(ctx, dir, plan); err != nil {
			return err
		}
	}

	if interactive {
		if err := ui.Run(ui.DarkTheme, ui.NewPlanView(plan, p.Policy())); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		switch output := viper.GetString("plan.output"); output {
		case outputTable:
			plan.WriteTable(out)
		case outputJSON:
			err = document.Encode(out, plan, document.JSON)
		default:
			return fmt.Errorf("unknown output format %q", output)
		}
		if err != nil {
			return err
		}
	}

	if exitCode && plan.Summary().Pending() {
		return errChangesFound
	}
	return nil
}

// ledgerCodec resolves the --ledger-codec flag.
func ledgerCodec(name string) (store.Codec, error) {
	switch name {
	case "", "msgpack":
		return store.DefaultCodec, nil
	case "json":
		return store.JSONCodec, nil
	}
	return nil, fmt.Errorf("unknown ledger codec %q", name)
}

var fileNameReplacer = strings.NewReplacer("/", "_", `\`, "_", ":", "_")

// dumpRemotes writes the remote record of every planned item next to each
// other, named by identity.
func dumpRemotes(ctx context.Context, dir string, plan *planner.Plan) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, item := range plan.Items {
		if err := ctx.Err(); err != nil {
			return err
		}
		if item.Remote == nil {
			continue
		}
		path := filepath.Join(dir, fileNameReplacer.Replace(item.ID)+".json")
		if err := document.WriteFile(path, item.Remote); err != nil {
			return fmt.Errorf("dumping %q: %w", item.ID, err)
		}
		log.Debug().Str("id", item.ID).Str("path", path).Msg("dumped remote record")
	}
	return nil
}
