package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/retail-insights/cmd/retailctl/cli"
	"github.com/odyssey-erp/retail-insights/internal/reconcile"
	"github.com/odyssey-erp/retail-insights/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	switch args[0] {
	case "report":
		return runReport(ctx, args[1:], stdout, stderr)
	case "jobs":
		return runJobs(ctx, args[1:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `usage: retailctl <command> [flags]

commands:
  report --dir <csv dir> [--threshold N] [--top N] [--granularity month|week]
         [--metric name] [--as-of YYYY-MM-DD] [--locale tag] [--json] [--fail-on-alerts]
  jobs trigger <task>     enqueue `+strings.Join(jobs.TaskTypes(), " | ")+`
  jobs stats              print default queue stats`)
}

func runReport(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(stderr)
	opts := cli.ReportOptions{Stdout: stdout, Stderr: stderr}
	fs.StringVar(&opts.Dir, "dir", os.Getenv("CSV_DIR"), "directory holding products.csv, purchases.csv, sales.csv")
	fs.Int64Var(&opts.Threshold, "threshold", reconcile.DefaultLowStockThreshold, "low stock threshold")
	fs.IntVar(&opts.Top, "top", reconcile.DefaultTopN, "number of top products")
	fs.StringVar(&opts.Granularity, "granularity", string(reconcile.GranularityMonth), "trend granularity")
	fs.StringVar(&opts.Metric, "metric", string(reconcile.MetricRevenue), "ranking metric")
	fs.StringVar(&opts.AsOf, "as-of", "", "date payment alerts are evaluated at")
	fs.StringVar(&opts.Locale, "locale", "en-US", "number formatting locale")
	fs.BoolVar(&opts.JSONOutput, "json", false, "print JSON")
	fs.BoolVar(&opts.FailOnAlerts, "fail-on-alerts", false, "exit 10 when low stock or overdue payments exist")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return cli.ReportCommand(ctx, opts)
}

func runJobs(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("redis", envOr("REDIS_ADDR", "127.0.0.1:6379"), "redis address")
	password := fs.String("redis-password", os.Getenv("REDIS_PASSWORD"), "redis password")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	rest := fs.Args()
	if len(rest) == 0 {
		usage(stderr)
		return 2
	}

	jobsCLI := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: *addr, Password: *password})
	defer func() { _ = jobsCLI.Close() }()

	switch rest[0] {
	case "trigger":
		if len(rest) < 2 {
			_, _ = fmt.Fprintln(stderr, "jobs trigger: task name required")
			return 2
		}
		info, err := jobsCLI.Trigger(ctx, rest[1])
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs trigger: %v\n", err)
			return 1
		}
		_, _ = fmt.Fprintf(stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := jobsCLI.InspectQueue()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "jobs stats: %v\n", err)
			return 1
		}
		cli.PrintStats(stdout, stats)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown jobs command %q\n", rest[0])
		return 2
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
