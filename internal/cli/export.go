package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tally/internal/report"
	"github.com/mesh-intelligence/tally/pkg/types"
)

func newExportCmd() *cobra.Command {
	var (
		outPath string
		bom     bool
	)

	cmd := &cobra.Command{
		Use:   "export [event-id]",
		Short: "Export an event as CSV",
		Long: "Export writes the sales, wallet summary, product totals and gifts of an event.\n" +
			"Without an event id the active event is exported. Use --out - for stdout.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				event := a.ws.Ledger()
				if len(args) == 1 && args[0] != types.ActiveEventID {
					archived, ok := a.ws.Account().Event(args[0])
					if !ok {
						return fmt.Errorf("event %q: %w", args[0], types.ErrNotFound)
					}
					event = archived.EventLedger
				}

				opts := report.Options{Location: a.settings.reportLoc, BOM: a.settings.reportBOM}
				if cmd.Flags().Changed("bom") {
					opts.BOM = bom
				}

				if outPath == "-" {
					return report.WriteCSV(cmd.OutOrStdout(), event, a.ws.Wallets(), a.ws.Products(), opts)
				}
				if outPath == "" {
					outPath = report.FileName(event)
				}
				if err := writeFile(outPath, func(w io.Writer) error {
					return report.WriteCSV(w, event, a.ws.Wallets(), a.ws.Products(), opts)
				}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d sales)\n", outPath, len(event.Sales))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file, - for stdout (default: <date>_<name>.csv)")
	cmd.Flags().BoolVar(&bom, "bom", true, "prefix a UTF-8 byte order mark (default from report.bom)")
	return cmd
}

// writeFile creates path and lets fn fill it. The file is removed if fn
// fails.
func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
