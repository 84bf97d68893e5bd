package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/buckleypaul/testit/internal/results"
)

var reportFlags struct {
	sortKey    string
	descending bool
	follow     bool
	plain      bool
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the results of the last campaign",
	RunE:  runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.sortKey, "sort-key", "", "sort each table by this output tag")
	f.BoolVar(&reportFlags.descending, "descending", false, "sort in descending order")
	f.BoolVar(&reportFlags.follow, "follow", false, "re-render whenever the results change")
	f.BoolVar(&reportFlags.plain, "plain", false, "render without colors")
}

func runReport(cmd *cobra.Command, _ []string) error {
	proj, err := loadProject()
	if err != nil {
		return err
	}
	store := results.New(proj.path(proj.cfg.Report.Dir))
	out := cmd.OutOrStdout()

	opts := results.ReportOptions{
		SortKey:   reportFlags.sortKey,
		Ascending: !reportFlags.descending,
		Plain:     reportFlags.plain || !isatty.IsTerminal(os.Stdout.Fd()),
	}

	if !reportFlags.follow {
		return store.Report(out, opts)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return store.Follow(ctx, func() error {
		if !opts.Plain {
			fmt.Fprint(out, "\033[H\033[2J")
		}
		return store.Report(out, opts)
	})
}
