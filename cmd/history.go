package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
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

var historyCmd = &cobra.Command{
	Use:   "history --ledger FILE [RECORD_ID]",
	Short: "Inspect the payloads recorded in a ledger",
	Long: `Without RECORD_ID, lists every record of the ledger. With RECORD_ID, lists the
revisions of that record, or prints the payload at --revision.

Ledger keys are <kind>:<identity>; with --kind the identity alone is enough.`,
	Example: `  mwoo history --ledger sync.ledger
  mwoo history --ledger sync.ledger --kind product SKU-1 --revision 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recordID := ""
		if len(args) == 1 {
			recordID = args[0]
		}
		return runHistory(cmd, recordID)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("ledger", "", "Ledger file written by \"mwoo plan --ledger\"")
	historyCmd.Flags().String("ledger-codec", "msgpack", "Encoding of ledger revisions: msgpack or json")
	historyCmd.Flags().StringP("kind", "k", "", "Record kind the RECORD_ID belongs to")
	historyCmd.Flags().Uint64P("revision", "r", 0, "Print the payload at this revision (0 prints the latest)")
	historyCmd.Flags().Bool("show", false, "Print the latest payload instead of the revision list")
	historyCmd.Flags().StringP("output", "o", outputJSON, "Payload format: json or yaml")
	historyCmd.Flags().Bool("dump", false, "Dump the restored snapshot with go-spew")
	historyCmd.Flags().BoolP("interactive", "i", false, "Show the payload in a pager")

	_ = historyCmd.MarkFlagRequired("ledger")
	_ = historyCmd.RegisterFlagCompletionFunc("kind", kindCompletion)

	for _, name := range []string{"ledger", "ledger-codec", "kind", "output"} {
		mustBind(name, viper.BindPFlag("history."+name, historyCmd.Flags().Lookup(name)))
	}
}

func runHistory(cmd *cobra.Command, recordID string) error {
	interactive, _ := cmd.Flags().GetBool("interactive")
	closeLog, err := setupLogger(interactive)
	if err != nil {
		return err
	}
	defer closeLog()

	codec, err := ledgerCodec(viper.GetString("history.ledger-codec"))
	if err != nil {
		return err
	}
	rps, err := bboltStore.New(viper.GetString("history.ledger"), codec, false)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	ledger := service.NewLedgerService(rps, service.Options{
		Logger:       log.Logger,
		DisableCache: true,
	})
	defer func() {
		if closeErr := ledger.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Error closing ledger")
		}
	}()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if recordID == "" {
		return writeRecordList(cmd, ledger, out)
	}
	if kind := viper.GetString("history.kind"); kind != "" {
		k, kindErr := policy.ParseKind(kind)
		if kindErr != nil {
			return kindErr
		}
		recordID = planner.LedgerID(k, recordID)
	}

	rev, _ := cmd.Flags().GetUint64("revision")
	show, _ := cmd.Flags().GetBool("show")
	dump, _ := cmd.Flags().GetBool("dump")
	if rev == 0 && !show && !dump && !interactive {
		return writeRevisionList(cmd, ledger, recordID, out)
	}

	var snapshot *store.Snapshot
	if rev == 0 {
		snapshot, err = ledger.Latest(ctx, recordID)
	} else {
		snapshot, err = ledger.Restore(ctx, recordID, store.RevisionID(rev))
	}
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w (see \"mwoo history --ledger %s\" for the known records)",
			err, viper.GetString("history.ledger"))
	}
	if err != nil {
		return err
	}

	if dump {
		spew.Fdump(out, snapshot)
		return nil
	}

	format := document.Format(viper.GetString("history.output"))
	if interactive {
		var buf strings.Builder
		if err := document.Encode(&buf, snapshot.Object, format); err != nil {
			return err
		}
		return ui.RunPager(fmt.Sprintf("%s @ %s", recordID, snapshot.ID), buf.String())
	}
	return document.Encode(out, snapshot.Object, format)
}

func writeRecordList(cmd *cobra.Command, ledger *service.LedgerService, out io.Writer) error {
	ctx := cmd.Context()
	records, err := ledger.Records(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Record", "Revisions", "Latest", "Updated"})
	for _, recordID := range records {
		revisions, err := ledger.History(ctx, recordID)
		if err != nil {
			return err
		}
		latest, err := ledger.Latest(ctx, recordID)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{recordID, len(revisions), latest.ID.String(), humanize.Time(latest.Time)})
	}
	t.AppendFooter(table.Row{humanize.Comma(int64(len(records))) + " records", "", "", ""})
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}

func writeRevisionList(cmd *cobra.Command, ledger *service.LedgerService, recordID string, out io.Writer) error {
	ctx := cmd.Context()
	revisions, err := ledger.History(ctx, recordID)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Revision", "Stored as", "Time", "Age"})
	for _, info := range revisions {
		snapshot, err := ledger.Restore(ctx, recordID, info.ID)
		if err != nil {
			return err
		}
		storedAs := "patch"
		if info.Snapshot {
			storedAs = "snapshot"
		}
		t.AppendRow(table.Row{
			fmt.Sprintf("%s (%d)", info.ID, uint64(info.ID)),
			storedAs,
			snapshot.Time.Format("02.01.2006 15:04:05"),
			humanize.Time(snapshot.Time),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
	return nil
}
