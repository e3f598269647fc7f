package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"backlab/pkg/backlab"
)

const version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: backlab-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version     Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  symbols     List stored symbols\n")
		fmt.Fprintf(os.Stderr, "  strategies  List available strategies\n")
		fmt.Fprintf(os.Stderr, "  fetch       Ingest bars from the upstream source\n")
		fmt.Fprintf(os.Stderr, "  backtest    Run a strategy over stored data\n")
		fmt.Fprintf(os.Stderr, "  runs        List stored backtest runs\n")
		fmt.Fprintf(os.Stderr, "\nThe server address comes from -server or BACKLAB_SERVER\n")
		fmt.Fprintf(os.Stderr, "(default http://localhost:8080).\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "version":
		fmt.Printf("backlab-cli %s\n", version)

	case "symbols":
		client := newClient(os.Args[2:], nil)
		symbols, err := client.Symbols(ctx)
		exitOn(err)
		for _, s := range symbols {
			fmt.Println(s)
		}

	case "strategies":
		client := newClient(os.Args[2:], nil)
		strategies, err := client.Strategies(ctx)
		exitOn(err)
		for _, s := range strategies {
			fmt.Println(s)
		}

	case "fetch":
		var symbols, start, end string
		client := newClient(os.Args[2:], func(fs *flag.FlagSet) {
			fs.StringVar(&symbols, "symbols", "", "comma-separated symbols (required)")
			fs.StringVar(&start, "start", "", "start date YYYY-MM-DD (required)")
			fs.StringVar(&end, "end", "", "end date YYYY-MM-DD (default: latest trading day)")
		})
		rows, err := client.Fetch(ctx, splitSymbols(symbols), parseDate(start), parseDate(end))
		exitOn(err)
		fmt.Printf("stored %d new rows\n", rows)

	case "backtest":
		var symbols, strat, start, end string
		var cash float64
		client := newClient(os.Args[2:], func(fs *flag.FlagSet) {
			fs.StringVar(&symbols, "symbols", "", "comma-separated symbols (required)")
			fs.StringVar(&strat, "strategy", "buy-hold", "strategy name")
			fs.Float64Var(&cash, "cash", 0, "starting cash (default: server default)")
			fs.StringVar(&start, "start", "", "start date YYYY-MM-DD")
			fs.StringVar(&end, "end", "", "end date YYYY-MM-DD")
		})
		res, err := client.Backtest(ctx, backlab.BacktestRequest{
			Symbols:  splitSymbols(symbols),
			Strategy: strat,
			Cash:     cash,
			Start:    start,
			End:      end,
		})
		exitOn(err)
		printResult(res)

	case "runs":
		var limit int
		client := newClient(os.Args[2:], func(fs *flag.FlagSet) {
			fs.IntVar(&limit, "limit", 0, "max runs to list (default: server default)")
		})
		runs, err := client.Runs(ctx, limit)
		exitOn(err)
		for _, r := range runs {
			fmt.Printf("#%d  %s  %-12s %-20s return %+.2f%%  trades %d\n",
				r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Strategy,
				strings.Join(r.Symbols, ","), r.TotalReturn*100, r.NumTrades)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

// newClient parses the subcommand flags (including the shared -server flag)
// and returns a client for the chosen server.
func newClient(args []string, register func(*flag.FlagSet)) *backlab.Client {
	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	server := fs.String("server", defaultServer(), "backlab-server base URL")
	if register != nil {
		register(fs)
	}
	fs.Parse(args)
	return backlab.NewClient(*server)
}

func defaultServer() string {
	if s := os.Getenv("BACKLAB_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func splitSymbols(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseDate(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid date %q, want YYYY-MM-DD\n", s)
		os.Exit(1)
	}
	return t
}

func printResult(res *backlab.BacktestResult) {
	fmt.Printf("run #%d\n", res.RunID)
	fmt.Printf("  trades: %d\n", len(res.Trades))
	for _, t := range res.Trades {
		fmt.Printf("    %s  %-4s %-6s %8d @ %.2f\n",
			t.Timestamp.Format("2006-01-02"), t.Side, t.Symbol, t.Qty, t.Price)
	}

	fmt.Println("  report:")
	for _, metric := range []string{
		"total_return", "annual_return", "max_drawdown", "sharpe_ratio",
		"win_rate", "profit_factor", "num_trades", "final_value",
	} {
		if v, ok := res.Report[metric]; ok {
			fmt.Printf("    %-14s %s\n", metric, formatMetric(metric, v))
		}
	}
}

func formatMetric(name string, v float64) string {
	switch name {
	case "total_return", "annual_return", "max_drawdown", "win_rate":
		return fmt.Sprintf("%+.2f%%", v*100)
	case "num_trades":
		return strconv.Itoa(int(v))
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
