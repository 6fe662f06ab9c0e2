package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/tally/internal/ledger"
	"github.com/mesh-intelligence/tally/internal/report"
	"github.com/mesh-intelligence/tally/pkg/types"
)

type statusOutput struct {
	State      types.LedgerState `json:"state"`
	EventName  string            `json:"eventName"`
	EventDate  string            `json:"eventDate"`
	Sales      int               `json:"sales"`
	Gifts      int               `json:"gifts"`
	Settlement ledger.Settlement `json:"settlement"`
	UserID     string            `json:"userId,omitempty"`
	LastError  string            `json:"lastError,omitempty"`
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active event and session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				l := a.ws.Ledger()
				wallets := a.ws.Wallets()
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					st := statusOutput{
						State:      l.State(),
						EventName:  l.EventName,
						EventDate:  l.EventDate,
						Sales:      len(l.Sales),
						Gifts:      len(l.Gifts),
						Settlement: ledger.Summarize(l.Sales, wallets),
						UserID:     a.session.CurrentUserID(),
					}
					if serr := a.sched.LastError(); serr != nil {
						st.LastError = serr.Error()
					}
					return printJSON(out, st)
				}

				if err := report.WriteSummary(out, l, wallets, nil); err != nil {
					return err
				}
				if user := a.session.CurrentUserID(); user != "" {
					fmt.Fprintf(out, "\nSigned in as %s\n", user)
				} else {
					fmt.Fprintln(out, "\nNot signed in; changes stay on this device")
				}
				return nil
			})
		},
	}
}

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Open the active event for sales",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				if err := a.ws.StartEvent(); err != nil {
					return err
				}
				l := a.ws.Ledger()
				if l.StartAt == nil {
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Event open since %s\n", l.StartAt.Time().In(a.settings.reportLoc).Format(time.DateTime))
				return nil
			})
		},
	}
}

func newEventCmd() *cobra.Command {
	eventCmd := &cobra.Command{
		Use:   "event",
		Short: "Edit the active event",
	}

	var name, date string
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set the event name and date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				if _, err := time.Parse(time.DateOnly, date); err != nil {
					return usageError("date %q is not YYYY-MM-DD", date)
				}
			}
			return withApp(cmd, true, func(a *app) error {
				l := a.ws.Ledger()
				if !cmd.Flags().Changed("name") {
					name = l.EventName
				}
				if date == "" {
					date = l.EventDate
				}
				if err := a.ws.SetEventInfo(name, date); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Event: %s (%s)\n", strings.TrimSpace(name), date)
				return nil
			})
		},
	}
	setCmd.Flags().StringVar(&name, "name", "", "event name")
	setCmd.Flags().StringVar(&date, "date", "", "event date, YYYY-MM-DD")
	eventCmd.AddCommand(setCmd)
	return eventCmd
}

func newFloatCmd() *cobra.Command {
	floatCmd := &cobra.Command{
		Use:   "float",
		Short: "Manage starting cash per wallet drawer",
	}
	floatCmd.AddCommand(&cobra.Command{
		Use:   "set <wallet-id> <amount>",
		Short: "Set the starting cash of a wallet drawer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount := ledger.ParseAmount(args[1])
			return withApp(cmd, true, func(a *app) error {
				if _, ok := types.FindWallet(a.ws.Wallets(), args[0]); !ok {
					return fmt.Errorf("wallet %q: %w", args[0], types.ErrNotFound)
				}
				if err := a.ws.SetFloat(args[0], amount.InexactFloat64()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Float for %s: %d\n", args[0], a.ws.Ledger().Float(args[0]))
				return nil
			})
		},
	})
	return floatCmd
}

func newSaleCmd() *cobra.Command {
	saleCmd := &cobra.Command{
		Use:   "sale",
		Short: "Correct recorded sales",
	}
	var eventID string
	deleteCmd := &cobra.Command{
		Use:   "delete <sale-id>",
		Short: "Delete a sale from the active or an archived event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				if err := a.ws.DeleteSale(eventID, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted sale %s\n", args[0])
				return nil
			})
		},
	}
	deleteCmd.Flags().StringVar(&eventID, "event", types.ActiveEventID, "archived event id")
	saleCmd.AddCommand(deleteCmd)
	return saleCmd
}

func newGiftCmd() *cobra.Command {
	giftCmd := &cobra.Command{
		Use:   "gift",
		Short: "Record gifts received during the event",
	}

	var from, content, image string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record a gift",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				g, err := a.ws.AddGift(from, content, image)
				if err != nil {
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), g)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded gift %s\n", g.ID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&from, "from", "", "who brought it")
	addCmd.Flags().StringVar(&content, "content", "", "what it was")
	addCmd.Flags().StringVar(&image, "image", "", "image reference")

	var thankEvent string
	thankCmd := &cobra.Command{
		Use:   "thank <gift-id>",
		Short: "Toggle the thanked mark of a gift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				return a.ws.ToggleThanked(thankEvent, args[0])
			})
		},
	}
	thankCmd.Flags().StringVar(&thankEvent, "event", types.ActiveEventID, "archived event id")

	var deleteEvent string
	deleteCmd := &cobra.Command{
		Use:   "delete <gift-id>",
		Short: "Delete a gift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, true, func(a *app) error {
				return a.ws.DeleteGift(deleteEvent, args[0])
			})
		},
	}
	deleteCmd.Flags().StringVar(&deleteEvent, "event", types.ActiveEventID, "archived event id")

	giftCmd.AddCommand(addCmd, thankCmd, deleteCmd)
	return giftCmd
}

func newCloseCmd() *cobra.Command {
	var countedArgs []string
	cmd := &cobra.Command{
		Use:   "close",
		Short: "Settle and archive the active event",
		Long: "Close totals the active event, archives it and pushes at once.\n" +
			"Pass --counted wallet_1=4800 for each drawer you counted to see its variance.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counted, err := parseCounted(countedArgs)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(a *app) error {
				closing, err := a.ws.CloseEvent(cmd.Context(), counted)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, closing)
				}
				if err := report.WriteSummary(out, closing.Event.EventLedger, a.ws.Wallets(), counted); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nArchived as %s\n", closing.Event.ID)
				if serr := a.sched.LastError(); serr != nil {
					fmt.Fprintf(out, "Not synced yet: %v\n", serr)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&countedArgs, "counted", nil, "counted cash as wallet=amount (repeatable)")
	return cmd
}

func parseCounted(args []string) (map[string]int64, error) {
	counted := make(map[string]int64, len(args))
	for _, arg := range args {
		wallet, amount, ok := strings.Cut(arg, "=")
		if !ok || wallet == "" {
			return nil, usageError("counted value %q is not wallet=amount", arg)
		}
		counted[wallet] = ledger.Round(ledger.ParseAmount(amount))
	}
	return counted, nil
}

type historyEntry struct {
	ID        string `json:"id"`
	EventName string `json:"eventName"`
	EventDate string `json:"eventDate"`
	Sales     int    `json:"sales"`
	Total     int64  `json:"total"`
}

func newHistoryCmd() *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List archived events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				account := a.ws.Account()
				entries := make([]historyEntry, 0, len(account.ArchivedEvents))
				// Newest first.
				for i := len(account.ArchivedEvents) - 1; i >= 0; i-- {
					ev := account.ArchivedEvents[i]
					entries = append(entries, historyEntry{
						ID:        ev.ID,
						EventName: ev.EventName,
						EventDate: ev.EventDate,
						Sales:     len(ev.Sales),
						Total:     ledger.Summarize(ev.Sales, nil).Total,
					})
				}
				out := cmd.OutOrStdout()
				if flags.jsonMode {
					return printJSON(out, entries)
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No archived events")
					return nil
				}
				for _, e := range entries {
					fmt.Fprintf(out, "%s  %s  %-24s %4d sales  %d\n", e.ID, e.EventDate, e.EventName, e.Sales, e.Total)
				}
				return nil
			})
		},
	}

	historyCmd.AddCommand(&cobra.Command{
		Use:   "show <event-id>",
		Short: "Show the settlement of an archived event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, false, func(a *app) error {
				ev, ok := a.ws.Account().Event(args[0])
				if !ok {
					return fmt.Errorf("event %q: %w", args[0], types.ErrNotFound)
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), ev)
				}
				return report.WriteSummary(cmd.OutOrStdout(), ev.EventLedger, a.ws.Wallets(), nil)
			})
		},
	})
	return historyCmd
}
