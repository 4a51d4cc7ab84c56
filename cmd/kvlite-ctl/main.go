package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	cli "github.com/urfave/cli/v2"

	"github.com/yeqown/kvlite"
)

// kvlite-ctl is a command line tool to control a kvlite database.
// Usage:
// $ kvlite-ctl [global flags] sub-command [sub-command flags] [args...]
// It has sub-commands:
// - get: kvlite-ctl -p PATH get key
// - set: kvlite-ctl -p PATH set key value
// - del: kvlite-ctl -p PATH del key
// - keys: kvlite-ctl -p PATH keys
// - size, check, save
// - bench: kvlite-ctl -p PATH bench [--n N] [--save]
//
// Global flags:
// - path: snapshot file of the database
// - config: YAML file with database options
// - verbose: log every lifecycle event

func main() {
	app := newCliApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Printf("kvlite-ctl failed: %v\n", err)
		os.Exit(1)
	}
}

func newCliApp() *cli.App {
	var logger *zapLogger

	// -v is taken by --verbose.
	cli.VersionFlag = &cli.BoolFlag{Name: "version", Aliases: []string{"V"}, Usage: "print the version"}

	app := cli.NewApp()
	app.Name = "kvlite-ctl"
	app.Usage = "kvlite control tool"
	app.Version = "0.1.0"
	app.Commands = []*cli.Command{
		newGetCommand(),
		newSetCommand(),
		newDelCommand(),
		newKeysCommand(),
		newSizeCommand(),
		newCheckCommand(),
		newSaveCommand(),
		newBenchCommand(),
	}
	app.Before = func(c *cli.Context) (err error) {
		if logger, err = newZapLogger(c.Bool("verbose")); err != nil {
			return errors.Wrap(err, "init logger")
		}

		cfg, err := loadConfig(c.String("config"))
		if err != nil {
			return err
		}

		options := append(cfg.options(), kvlite.WithLogger(logger))
		db, err := kvlite.Open(c.String("path"), options...)
		if err != nil {
			return err
		}

		contextWithDB(c, db)
		return nil
	}
	app.After = func(c *cli.Context) error {
		if logger != nil {
			defer logger.sync()
		}

		if db := dbFromContext(c); db != nil {
			return db.Close()
		}
		return nil
	}
	// global flags
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:     "path",
			Aliases:  []string{"p"},
			Usage:    "snapshot file of the database",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML file with database options",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "log every lifecycle event",
		},
	}

	return app
}

func newGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "get value by the input key",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("get requires exactly one key")
			}

			value, err := dbFromContext(c).Lookup([]byte(c.Args().First()))
			if err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, string(value))
			return nil
		},
	}
}

func newSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "set key-value pair",
		ArgsUsage: "KEY VALUE",
		Action: func(c *cli.Context) error {
			if c.NArg() != 2 {
				return errors.New("set requires a key and a value")
			}

			return dbFromContext(c).Insert([]byte(c.Args().Get(0)), []byte(c.Args().Get(1)))
		},
	}
}

func newDelCommand() *cli.Command {
	return &cli.Command{
		Name:      "del",
		Usage:     "delete key-value pair",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("del requires exactly one key")
			}

			return dbFromContext(c).Remove([]byte(c.Args().First()))
		},
	}
}

func newKeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "list all keys",
		Action: func(c *cli.Context) error {
			for _, key := range dbFromContext(c).ListKeys() {
				fmt.Fprintln(c.App.Writer, string(key))
			}
			return nil
		},
	}
}

func newSizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "size",
		Usage: "print the number of keys",
		Action: func(c *cli.Context) error {
			fmt.Fprintln(c.App.Writer, dbFromContext(c).Size())
			return nil
		},
	}
}

func newCheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "verify balance and order of the whole tree",
		Action: func(c *cli.Context) error {
			if err := dbFromContext(c).CheckValidity(); err != nil {
				return err
			}

			fmt.Fprintln(c.App.Writer, "valid")
			return nil
		},
	}
}

func newSaveCommand() *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "write a snapshot and empty the journal",
		Action: func(c *cli.Context) error {
			return dbFromContext(c).Save()
		},
	}
}
