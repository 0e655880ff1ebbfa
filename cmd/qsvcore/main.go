// Command qsvcore is the CLI entrypoint for the stats, frequency, and
// validate engines. Grounded on the teacher-pool repo ja7ad-consumption's
// cmd/consumption/main.go: a cobra root command building a context wired
// to os/signal for Ctrl-C, a slog logger constructed once in main, and
// flags read directly into each subcommand's options the same way
// cmd/consumption/main.go's opts struct is filled straight from cobra
// flags, with no viper flag-binding layer in between. internal/config's
// viper-based RunContext still supplies every default and env override;
// an explicitly-passed persistent flag only overrides the field it names.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qsvcore/qsvcore/internal/config"
)

// Version is stamped at release time; kept simple like the teacher's
// own main.go Version/BuildDate consts.
const Version = "0.1.0"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "qsvcore",
		Short: "CSV analytical engine toolkit",
		Long: `qsvcore profiles, tabulates, and validates CSV data: a single-pass
parallel statistics engine, a tie-aware frequency-distribution builder,
and a JSON-Schema-driven row validator, all sharing one memory-aware
chunked record source.`,
		SilenceUsage: true,
	}

	root.PersistentFlags().Int("max-jobs", 0, "worker count (0 = all CPUs, i.e. internal/config's own default)")
	root.PersistentFlags().Int("memory-headroom-pct", 0, "fraction of memory held back from chunk planning (0 = internal/config's default)")
	root.PersistentFlags().Int("chunk-memory-mb", 0, "fixed per-chunk memory budget in MB (0 = internal/config's default: CPU-based)")
	root.PersistentFlags().String("stats-cache-mode", "", "stats-cache policy: auto, force, or none (empty = internal/config's default: auto)")
	root.PersistentFlags().Int("stats-string-max-length", 0, "stored in the run context; no engine reads it, so string values are never truncated")
	root.PersistentFlags().Int("antimodes-len", 0, "cap on the joined mode/antimode string length (0 = unlimited)")

	root.AddCommand(newStatsCmd())
	root.AddCommand(newFrequencyCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "print the qsvcore version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("qsvcore", Version)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// runContextFrom builds the base RunContext from the environment (see
// internal/config.Load), then applies any persistent flag the caller
// actually set, on top. Flags left at their zero value never shadow
// internal/config's own defaults, matching the "empty = default" help
// text declared on each persistent flag above.
func runContextFrom(cmd *cobra.Command) *config.RunContext {
	rc := config.Load(nil)
	flags := cmd.Root().PersistentFlags()

	if flags.Changed("max-jobs") {
		rc.MaxJobs, _ = flags.GetInt("max-jobs")
	}
	if flags.Changed("memory-headroom-pct") {
		rc.MemoryHeadroomPct, _ = flags.GetInt("memory-headroom-pct")
	}
	if flags.Changed("chunk-memory-mb") {
		rc.ChunkMemoryMB, _ = flags.GetInt("chunk-memory-mb")
	}
	if flags.Changed("stats-cache-mode") {
		mode, _ := flags.GetString("stats-cache-mode")
		switch config.CacheMode(strings.ToLower(mode)) {
		case config.CacheForce:
			rc.StatsCacheMode = config.CacheForce
		case config.CacheNone:
			rc.StatsCacheMode = config.CacheNone
		default:
			rc.StatsCacheMode = config.CacheAuto
		}
	}
	if flags.Changed("stats-string-max-length") {
		rc.StatsStringMaxLength, _ = flags.GetInt("stats-string-max-length")
	}
	if flags.Changed("antimodes-len") {
		rc.AntimodesLen, _ = flags.GetInt("antimodes-len")
	}
	return rc
}
