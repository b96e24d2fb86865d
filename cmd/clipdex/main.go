// Command clipdex is a small maintenance CLI around the clipboard search
// core: add captures, run queries, and inspect or prune a store.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/clipdex/clipdex"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	app := &cli.App{
		Name:  "clipdex",
		Usage: "clipboard history search core",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db",
				Value:   "clipdex.db",
				Usage:   "path to the storage file",
				EnvVars: []string{"CLIPDEX_DB"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "save a text capture",
				ArgsUsage: "<text>",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return cli.Exit("add requires the text to save", 1)
					}
					store, err := clipdex.Open(c.String("db"))
					if err != nil {
						return err
					}
					defer store.Close()
					id, err := store.SaveText(c.Args().First(), "clipdex-cli", "")
					if err != nil {
						return err
					}
					if id == 0 {
						logger.Info().Msg("duplicate content, timestamp touched")
					} else {
						logger.Info().Int64("id", id).Msg("saved")
					}
					return nil
				},
			},
			{
				Name:      "search",
				Usage:     "query the history and print matches as JSON",
				ArgsUsage: "<query>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "max matches to print"},
					&cli.IntFlag{Name: "snippet", Value: 0, Usage: "snippet context chars (0 = default)"},
				},
				Action: func(c *cli.Context) error {
					store, err := clipdex.Open(c.String("db"))
					if err != nil {
						return err
					}
					defer store.Close()

					result, err := store.Search(context.Background(), c.Args().First(), c.Int("snippet"))
					if err != nil {
						return err
					}
					limit := c.Int("limit")
					if limit > 0 && len(result.Matches) > limit {
						result.Matches = result.Matches[:limit]
					}
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(result)
				},
			},
			{
				Name:  "stats",
				Usage: "print store statistics",
				Action: func(c *cli.Context) error {
					store, err := clipdex.Open(c.String("db"))
					if err != nil {
						return err
					}
					defer store.Close()
					size := datasize.ByteSize(store.DatabaseSizeBytes())
					fmt.Printf("database size: %s\n", size.HumanReadable())
					return nil
				},
			},
			{
				Name:  "prune",
				Usage: "prune oldest items until the store fits the size budget",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "max", Value: "512MB", Usage: "size budget"},
					&cli.Float64Flag{Name: "keep-ratio", Value: 0.8, Usage: "target fraction of the budget after pruning"},
				},
				Action: func(c *cli.Context) error {
					var budget datasize.ByteSize
					if err := budget.UnmarshalText([]byte(c.String("max"))); err != nil {
						return cli.Exit(fmt.Sprintf("bad size %q: %v", c.String("max"), err), 1)
					}
					store, err := clipdex.Open(c.String("db"))
					if err != nil {
						return err
					}
					defer store.Close()
					deleted, err := store.PruneToSize(int64(budget.Bytes()), c.Float64("keep-ratio"))
					if err != nil {
						return err
					}
					logger.Info().Int64("deleted", deleted).Msg("prune complete")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal().Err(err).Msg("clipdex failed")
	}
}
