// Command tripledemo runs producers and consumers against a triple buffer
// and checks that readers only ever see complete, non-regressing values.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aradilov/triplebuffer"
)

func main() {
	os.Exit(runMain(os.Args[1:], os.Stderr))
}

// runMain parses args, runs the soak and returns the process exit code: 0 on
// success, 1 on a failed check, 2 on bad flags.
func runMain(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("tripledemo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		policyName = fs.String("policy", "lockfree", "concurrency policy: lockfree, exclusive or spsc")
		writers    = fs.Int("writers", 1, "number of producer goroutines")
		readers    = fs.Int("readers", 1, "number of consumer goroutines")
		duration   = fs.Duration("duration", 2*time.Second, "how long to run")
		jitter     = fs.Duration("jitter", 0, "maximum random pause after each operation")
		interval   = fs.Duration("interval", time.Second, "progress report interval (debug level)")
		verbose    = fs.Bool("v", false, "enable debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	triplebuffer.SetLogger(logger)
	defer triplebuffer.SetLogger(nil)

	cfg := config{
		writers:  *writers,
		readers:  *readers,
		jitter:   *jitter,
		interval: *interval,
	}
	policy, err := triplebuffer.ParsePolicy(*policyName)
	if err == nil {
		cfg.policy = policy
		err = cfg.validate()
	}
	if err != nil {
		logger.Error("invalid flags", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	logger.Info("starting",
		"policy", cfg.policy,
		"writers", cfg.writers,
		"readers", cfg.readers,
		"duration", *duration,
		"jitter", cfg.jitter,
	)

	st, err := run(ctx, cfg, logger)
	logger.Info("finished",
		"writes", st.Writes,
		"published", st.Published,
		"coalesced", st.Coalesced,
		"reads", st.Reads,
		"fresh_reads", st.FreshReads,
		"stale_reads", st.StaleReads,
	)
	if err != nil {
		logger.Error("check failed", "error", err)
		return 1
	}
	return 0
}
