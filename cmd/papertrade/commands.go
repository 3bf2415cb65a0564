package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"papertrade/internal/engine"
	"papertrade/internal/server"
	"papertrade/types"
)

// withApp wires the components, runs fn and tears them down.
func withApp(fn func(ctx context.Context, a *app, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, args)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API server",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			srv := server.New(a.engine, a.accounts, a.logger.Named("server"), a.cfg.Server)
			return srv.Start(ctx)
		}),
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger tables (postgres driver only)",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			m, ok := a.store.(interface{ Migrate(context.Context) error })
			if !ok {
				fmt.Printf("storage driver %q needs no migration\n", a.cfg.Storage.Driver)
				return nil
			}
			if err := m.Migrate(ctx); err != nil {
				return err
			}
			fmt.Println("schema applied")
			return nil
		}),
	}
}

func registerCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create a user with the configured starting cash",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			if password == "" {
				password = os.Getenv("PAPERTRADE_PASSWORD")
			}
			u, err := a.accounts.Register(ctx, types.RegisterRequest{
				Username:     args[0],
				Password:     password,
				Confirmation: password,
			})
			if err != nil {
				return err
			}
			fmt.Printf("registered %s (id %d) with %s\n", u.Username, u.ID, types.FormatUSD(u.Cash))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (defaults to PAPERTRADE_PASSWORD)")
	return cmd
}

func quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <symbol>",
		Short: "Look up a stock quote",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			q, err := a.engine.Quote(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("A share of %s (%s) costs %s.\n", q.Name, q.Symbol, types.FormatUSD(q.Price))
			return nil
		}),
	}
}

func tradeCmd(side types.Side) *cobra.Command {
	var username string
	verb, short := "buy", "Buy shares at the current quote"
	if side == types.SideTypeSell {
		verb, short = "sell", "Sell shares at the current quote"
	}
	cmd := &cobra.Command{
		Use:   verb + " <symbol> <shares>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			shares, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("shares %q: %w", args[1], types.ErrInvalidInput)
			}
			id, err := a.lookupUser(ctx, username)
			if err != nil {
				return err
			}

			var res types.TradeResult
			if side == types.SideTypeBuy {
				res, err = a.engine.Buy(ctx, id, args[0], shares)
			} else {
				res, err = a.engine.Sell(ctx, id, args[0], shares)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s %d %s @ %s, position %d, cash %s\n",
				res.Entry.Side, res.Entry.Shares, res.Entry.Symbol,
				types.FormatUSD(res.Entry.Price), res.Position, types.FormatUSD(res.Cash))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Username to trade for")
	return cmd
}

func buyCmd() *cobra.Command  { return tradeCmd(types.SideTypeBuy) }
func sellCmd() *cobra.Command { return tradeCmd(types.SideTypeSell) }

func depositCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Add cash to an account",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			amount, err := decimal.NewFromString(args[0])
			if err != nil {
				return fmt.Errorf("amount %q: %w", args[0], types.ErrInvalidInput)
			}
			id, err := a.lookupUser(ctx, username)
			if err != nil {
				return err
			}
			cash, err := a.engine.Deposit(ctx, id, amount)
			if err != nil {
				return err
			}
			fmt.Printf("cash is now %s\n", types.FormatUSD(cash))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Username to credit")
	return cmd
}

func portfolioCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Value every position at the current quote",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			id, err := a.lookupUser(ctx, username)
			if err != nil {
				return err
			}
			view, err := a.engine.GetPortfolio(ctx, id)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tNAME\tSHARES\tPRICE\tTOTAL")
			for _, p := range view.Positions {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					p.Symbol, p.Name, p.Shares, types.FormatUSD(p.Price), types.FormatUSD(p.Value))
			}
			fmt.Fprintf(tw, "CASH\t\t\t\t%s\n", types.FormatUSD(view.Cash))
			fmt.Fprintf(tw, "\t\t\t\t%s\n", types.FormatUSD(view.Total))
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Username to value")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		username string
		csvPath  string
		report   bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List executed trades, oldest first",
		RunE: withApp(func(ctx context.Context, a *app, args []string) error {
			id, err := a.lookupUser(ctx, username)
			if err != nil {
				return err
			}
			entries, err := a.engine.GetHistory(ctx, id)
			if err != nil {
				return err
			}

			switch {
			case csvPath == "-":
				return engine.WriteHistoryCSV(os.Stdout, entries)
			case csvPath != "":
				return engine.WriteHistoryCSVFile(csvPath, entries)
			case report:
				engine.PrintReport(os.Stdout, engine.GenerateReport(entries))
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tSHARES\tPRICE\tTRANSACTED")
			for _, e := range entries {
				shares := e.Shares
				if e.Side == types.SideTypeSell {
					shares = -shares
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
					e.Symbol, shares, types.FormatUSD(e.Price), e.Time.Local().Format(time.DateTime))
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "Username whose history to show")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Write the history as CSV to a file (- for stdout)")
	cmd.Flags().BoolVar(&report, "report", false, "Print a realized performance summary instead of the trade list")
	return cmd
}
