package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	cfgpkg "github.com/rzbill/logpipe/internal/config"
	"github.com/rzbill/logpipe/internal/feed"
	"github.com/rzbill/logpipe/internal/services/follow"
	"github.com/rzbill/logpipe/internal/storage"
	boltstore "github.com/rzbill/logpipe/internal/storage/bolt"
	pebblestore "github.com/rzbill/logpipe/internal/storage/pebble"
	"github.com/rzbill/logpipe/internal/streams"
)

func main() {
	var (
		dataDir  string
		backend  string
		fsync    string
		fsyncMs  int
		feedName string
		logLevel string
	)

	rootCmd := &cobra.Command{
		Use:   "logpipe",
		Short: "logpipe CLI",
		Long:  "logpipe adapts an append-only feed into ordered read and coalesced write streams.",
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", os.Getenv("LOGPIPE_DATA_DIR"), "Data directory (defaults to an OS-specific location)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Storage backend: pebble|bolt")
	rootCmd.PersistentFlags().StringVar(&fsync, "fsync", "", "Fsync mode: always|interval|never")
	rootCmd.PersistentFlags().IntVar(&fsyncMs, "fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms")
	rootCmd.PersistentFlags().StringVar(&feedName, "feed", "default", "Feed name")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOGPIPE_LOG_LEVEL"), "Log level: debug|info|warn|error")

	loadConfig := func() cfgpkg.Config {
		cfg := cfgpkg.Default()
		if fileCfg, err := cfgpkg.Load(os.Getenv("LOGPIPE_CONFIG")); err == nil {
			cfg = fileCfg
		}
		cfgpkg.FromEnv(&cfg)
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if cfg.DataDir == "" {
			cfg.DataDir = cfgpkg.DefaultDataDir()
		}
		if backend != "" {
			cfg.Backend = backend
		}
		if fsync != "" {
			cfg.Fsync = fsync
		}
		if fsyncMs > 0 {
			cfg.FsyncIntervalMs = fsyncMs
		}
		return cfg
	}

	openFeed := func(logger *zap.Logger) (*feed.Feed, storage.Backend, error) {
		cfg := loadConfig()
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		var (
			be  storage.Backend
			err error
		)
		switch cfg.Backend {
		case "bolt":
			be, err = boltstore.Open(boltstore.Options{DataDir: cfg.DataDir})
		default:
			mode := pebblestore.FsyncModeAlways
			switch cfg.Fsync {
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "never":
				mode = pebblestore.FsyncModeNever
			}
			be, err = pebblestore.Open(pebblestore.Options{
				DataDir:       cfg.DataDir,
				Fsync:         mode,
				FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
			})
		}
		if err != nil {
			return nil, nil, err
		}
		f, err := feed.Open(be, feedName, logger)
		if err != nil {
			be.Close()
			return nil, nil, err
		}
		return f, be, nil
	}

	appendCmd := &cobra.Command{
		Use:   "append [payload...]",
		Short: "Append payloads to the feed (args, or stdin lines when none)",
		RunE: func(cmd *cobra.Command, args []string) error {
			maxBlock, _ := cmd.Flags().GetInt("max-block-size")
			logger, err := buildLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, be, err := openFeed(logger)
			if err != nil {
				return err
			}
			defer be.Close()
			defer f.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := loadConfig()
			if maxBlock == 0 {
				maxBlock = cfg.MaxBlockSize
			}
			w := streams.NewWriter(f, streams.WriterOptions{MaxBlockSize: maxBlock})
			if len(args) > 0 {
				for _, a := range args {
					if err := w.Write([]byte(a)); err != nil {
						return err
					}
				}
			} else {
				sc := bufio.NewScanner(os.Stdin)
				sc.Buffer(make([]byte, 0, 1<<20), 16<<20)
				for sc.Scan() {
					if err := w.Write(append([]byte(nil), sc.Bytes()...)); err != nil {
						return err
					}
				}
				if err := sc.Err(); err != nil {
					return err
				}
			}
			if err := w.Close(ctx); err != nil {
				return err
			}
			if idx, ok := w.LastIndex(); ok {
				fmt.Printf("appended, last batch starts at index %d, feed length %d\n", idx, f.Length())
			}
			return nil
		},
	}
	appendCmd.Flags().Int("max-block-size", 0, "Split payloads larger than this many bytes into chunks (0 = unbounded)")
	rootCmd.AddCommand(appendCmd)

	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read a range of entries, optionally following new appends",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetUint64("start")
			endSet := cmd.Flags().Changed("end")
			end, _ := cmd.Flags().GetUint64("end")
			batch, _ := cmd.Flags().GetInt("batch")
			live, _ := cmd.Flags().GetBool("live")
			tail, _ := cmd.Flags().GetBool("tail")
			noSnapshot, _ := cmd.Flags().GetBool("no-snapshot")
			timeoutMs, _ := cmd.Flags().GetInt("timeout-ms")
			encName, _ := cmd.Flags().GetString("encoding")

			logger, err := buildLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, be, err := openFeed(logger)
			if err != nil {
				return err
			}
			defer be.Close()
			defer f.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg := loadConfig()
			if batch == 0 {
				batch = cfg.DefaultBatch
			}
			enc, err := encodingByName(encName)
			if err != nil {
				return err
			}
			opts := streams.ReaderOptions{
				Start:    &start,
				Tail:     tail,
				Live:     live,
				Batch:    batch,
				Timeout:  time.Duration(timeoutMs) * time.Millisecond,
				Encoding: enc,
			}
			if endSet {
				opts.End = &end
			}
			if noSnapshot {
				snap := false
				opts.Snapshot = &snap
			}
			r := streams.NewReader(f, opts)
			defer r.Close()
			for {
				ent, err := r.Next(ctx)
				if err != nil {
					if errors.Is(err, streams.Done) || errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				printEntry(ent)
			}
		},
	}
	readCmd.Flags().Uint64("start", 0, "First index to read (inclusive)")
	readCmd.Flags().Uint64("end", 0, "End index (exclusive); defaults to the feed length")
	readCmd.Flags().Int("batch", 0, "Entries per underlying range read")
	readCmd.Flags().Bool("live", false, "Follow new appends indefinitely")
	readCmd.Flags().Bool("tail", false, "Start at the current feed length")
	readCmd.Flags().Bool("no-snapshot", false, "Re-read the feed length before each fetch instead of pinning it")
	readCmd.Flags().Int("timeout-ms", 0, "Fail when no entry arrives within this window (0 = disabled)")
	readCmd.Flags().String("encoding", "binary", "Value encoding: binary|utf8|json")
	rootCmd.AddCommand(readCmd)

	followCmd := &cobra.Command{
		Use:   "follow",
		Short: "Tail the feed through the follow service with an optional CEL filter",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			earliest, _ := cmd.Flags().GetBool("earliest")
			limit, _ := cmd.Flags().GetInt("limit")

			logger, err := buildLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, be, err := openFeed(logger)
			if err != nil {
				return err
			}
			defer be.Close()
			defer f.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			svc := follow.New(logger)
			sink := stdoutSink{ctx: ctx}
			return svc.Follow(ctx, f, feedName, follow.Options{Filter: filter, Earliest: earliest, Limit: limit}, sink)
		},
	}
	followCmd.Flags().String("filter", "", "CEL expression over {index, size, text, json, now_ms}")
	followCmd.Flags().Bool("earliest", false, "Start from index 0 instead of the tail")
	followCmd.Flags().Int("limit", 0, "Stop after this many entries (0 = unlimited)")
	rootCmd.AddCommand(followCmd)

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "Show feed metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(logLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			f, be, err := openFeed(logger)
			if err != nil {
				return err
			}
			defer be.Close()
			defer f.Close()

			fmt.Printf("feed: %s\nlength: %d\n", feedName, f.Length())
			return nil
		},
	}
	rootCmd.AddCommand(infoCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
		lvl = parsed
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func encodingByName(name string) (streams.Encoding, error) {
	switch name {
	case "", "binary":
		return nil, nil
	case "utf8":
		return streams.UTF8{}, nil
	case "json":
		return streams.JSON{}, nil
	default:
		return nil, fmt.Errorf("invalid --encoding %q; use binary|utf8|json", name)
	}
}

func printEntry(ent streams.Entry) {
	switch v := ent.Value.(type) {
	case []byte:
		fmt.Printf("%d\t%s\n", ent.Index, v)
	default:
		fmt.Printf("%d\t%v\n", ent.Index, v)
	}
}

type stdoutSink struct{ ctx context.Context }

func (s stdoutSink) Send(it follow.Item) error {
	_, err := fmt.Printf("%d\t%s\n", it.Index, it.Payload)
	return err
}

func (s stdoutSink) Flush() error { return nil }

func (s stdoutSink) Context() context.Context { return s.ctx }
