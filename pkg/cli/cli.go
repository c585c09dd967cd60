package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/model"
	"github.com/m-mizutani/seochat/pkg/utils/clock"
	"github.com/m-mizutani/seochat/pkg/utils/errutil"
	"github.com/m-mizutani/seochat/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "seochat",
		Usage: "Chat with the SEO analysis assistant about your website",
		Commands: []*cli.Command{
			analyzeCommand(),
			chatCommand(),
			historyCommand(),
			clearCommand(),
		},
	}
}

func Run(ctx context.Context, argv []string) *Error {
	return run(ctx, newApp(), argv)
}

func run(ctx context.Context, cmd *cli.Command, argv []string) *Error {
	if err := cmd.Run(ctx, argv); err != nil {
		errWriter := cmd.ErrWriter
		if errWriter == nil {
			errWriter = os.Stderr
		}
		report(ctx, errWriter, err)

		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}

// report shows validation errors inline and hands everything else to errutil
func report(ctx context.Context, w io.Writer, err error) {
	switch {
	case goerr.HasTag(err, model.TagValidation):
		fmt.Fprintf(w, "error: %s\n", err.Error())
	case errors.Is(err, model.ErrStale):
		logging.From(ctx).Debug("response discarded", logging.ErrAttr(err))
	default:
		errutil.Handle(ctx, err)
	}
}

func analyzeCommand() *cli.Command {
	var (
		cfg        config
		websiteURL string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Aliases:     []string{"u"},
			Usage:       "Website URL to analyse",
			Sources:     cli.EnvVars("SEOCHAT_URL"),
			Destination: &websiteURL,
			Required:    true,
		},
	}
	flags = append(flags, webhookFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "analyze",
		Usage: "Start a new analysis session for a website",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, closer, err := cfg.setup(ctx, c.Root().ErrWriter)
			defer closer()
			if err != nil {
				return err
			}

			store, release, err := cfg.newStore(ctx)
			defer release()
			if err != nil {
				return err
			}

			ctrl, err := cfg.newController(store)
			if err != nil {
				return err
			}
			if _, err := ctrl.Restore(ctx); err != nil {
				return err
			}

			r := newRenderer(c.Root().Writer)
			store.Subscribe(r.Turn)

			done := r.Typing("analysing")
			defer done()

			if _, err := ctrl.Analyze(ctx, websiteURL); err != nil {
				return err
			}
			return nil
		},
	}
}

func historyCommand() *cli.Command {
	var (
		cfg  config
		html bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "html",
			Usage:       "Print stored HTML instead of plain text",
			Destination: &html,
		},
	}
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "history",
		Usage: "Print the saved conversation",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, closer, err := cfg.setup(ctx, c.Root().ErrWriter)
			defer closer()
			if err != nil {
				return err
			}

			store, release, err := cfg.newStore(ctx)
			defer release()
			if err != nil {
				return err
			}

			saved, err := store.Load(ctx)
			if err != nil {
				return err
			}

			r := newRenderer(c.Root().Writer)
			r.html = html
			if saved == nil {
				r.Notice("No saved conversation.")
				return nil
			}

			r.Header(saved, clock.Now(ctx))
			r.Transcript(saved)
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	var cfg config

	flags := storageFlags(&cfg)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete the saved conversation",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, closer, err := cfg.setup(ctx, c.Root().ErrWriter)
			defer closer()
			if err != nil {
				return err
			}

			store, release, err := cfg.newStore(ctx)
			defer release()
			if err != nil {
				return err
			}

			if err := store.Clear(ctx); err != nil {
				return err
			}

			newRenderer(c.Root().Writer).Notice("Conversation cleared.")
			return nil
		},
	}
}
