// Command datafin is the thin presentation surface over the two public
// pipeline operations: it parses flags, calls pkg/cvm or pkg/b3, and
// formats the resulting aggregate — no pipeline logic lives here, per
// spec.md §1's "thin presentation surface" non-goal. Command tree
// modelled on the corpus's one working CLI, standardbeagle-lci/cmd/lci.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/jor0105/datafin/internal/config"
	"github.com/jor0105/datafin/internal/logging"
	"github.com/jor0105/datafin/pkg/b3"
	"github.com/jor0105/datafin/pkg/cvm"
)

func main() {
	app := &cli.App{
		Name:  "datafin",
		Usage: "download CVM fundamental statements and extract B3 COTAHIST quotes",
		Commands: []*cli.Command{
			downloadCVMCommand(),
			extractQuotesCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "datafin:", err)
		os.Exit(1)
	}
}

func downloadCVMCommand() *cli.Command {
	return &cli.Command{
		Name:  "download-cvm",
		Usage: "download and transcode CVM fundamental-statement archives",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "destination", Aliases: []string{"d"}, Required: true},
			&cli.StringSliceFlag{Name: "family", Aliases: []string{"f"}, Required: true, Usage: "document family, repeatable (DFP, ITR, FCA, ...)"},
			&cli.IntFlag{Name: "initial-year", Required: true},
			&cli.IntFlag{Name: "last-year", Required: true},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := cvm.DownloadCVM(ctx, cvm.Options{
				Destination: c.String("destination"),
				Families:    c.StringSlice("family"),
				InitialYear: c.Int("initial-year"),
				LastYear:    c.Int("last-year"),
				Config:      cfg,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			fmt.Printf("downloaded %d archive(s), %d failure(s)\n", res.SuccessCount(), res.ErrorCount())
			for id, msg := range res.Failures() {
				fmt.Printf("  %s: %s\n", id, msg)
			}
			return nil
		},
	}
}

func extractQuotesCommand() *cli.Command {
	return &cli.Command{
		Name:  "extract-quotes",
		Usage: "extract B3 COTAHIST quotes into one consolidated columnar file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "staging-dir", Aliases: []string{"s"}, Required: true},
			&cli.StringFlag{Name: "dest-dir", Aliases: []string{"d"}, Required: true},
			&cli.StringSliceFlag{Name: "class", Aliases: []string{"c"}, Required: true, Usage: "instrument class, repeatable (ações, etf, opções, ...)"},
			&cli.IntFlag{Name: "initial-year", Required: true},
			&cli.IntFlag{Name: "last-year", Required: true},
			&cli.StringFlag{Name: "output-name", Aliases: []string{"o"}, Required: true},
			&cli.StringFlag{Name: "mode", Value: "slow", Usage: "fast or slow"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			res, err := b3.ExtractQuotes(ctx, b3.Options{
				StagingDir:  c.String("staging-dir"),
				DestDir:     c.String("dest-dir"),
				Classes:     c.StringSlice("class"),
				InitialYear: c.Int("initial-year"),
				LastYear:    c.Int("last-year"),
				OutputName:  c.String("output-name"),
				Mode:        c.String("mode"),
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			fmt.Println(res.Message())
			if errs := res.Errors(); len(errs) > 0 {
				fmt.Println("errors:")
				for file, msg := range errs {
					fmt.Printf("  %s: %s\n", file, msg)
				}
			}
			return nil
		},
	}
}
