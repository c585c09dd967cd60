package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/seochat/pkg/usecase/session"
	"github.com/urfave/cli/v3"
)

const chatPrompt = "> "

type lineReader interface {
	Readline() (string, error)
	Close() error
}

// newLineReader uses readline on a terminal and plain line scanning otherwise
func newLineReader(r io.Reader, w io.Writer) (lineReader, error) {
	if f, ok := r.(*os.File); ok && readline.IsTerminal(int(f.Fd())) {
		rl, err := readline.NewEx(&readline.Config{
			Prompt:          chatPrompt,
			Stdin:           f,
			Stdout:          w,
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to initialize readline")
		}
		return rl, nil
	}
	return &scanReader{scanner: bufio.NewScanner(r)}, nil
}

type scanReader struct {
	scanner *bufio.Scanner
}

func (x *scanReader) Readline() (string, error) {
	if !x.scanner.Scan() {
		if err := x.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return x.scanner.Text(), nil
}

func (x *scanReader) Close() error { return nil }

func chatCommand() *cli.Command {
	var (
		cfg        config
		websiteURL string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "url",
			Aliases:     []string{"u"},
			Usage:       "Analyse this website before chatting",
			Sources:     cli.EnvVars("SEOCHAT_URL"),
			Destination: &websiteURL,
		},
	}
	flags = append(flags, webhookFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "chat",
		Usage: "Chat interactively, resuming the saved conversation",
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

			restored, err := ctrl.Restore(ctx)
			if err != nil {
				return err
			}

			r := newRenderer(c.Root().Writer)
			if restored {
				r.Notice("Resuming conversation about %s", originLabel(ctrl.WebsiteURL()))
			}
			r.Transcript(store.Current())
			store.Subscribe(r.Turn)

			if websiteURL != "" {
				analyze(ctx, r, ctrl, websiteURL)
			}

			reader, err := newLineReader(c.Root().Reader, c.Root().Writer)
			if err != nil {
				return err
			}
			defer reader.Close()

			r.Notice("Type a message, /analyze <url>, /clear or /exit.")

			for {
				line, err := reader.Readline()
				if errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
					return nil
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				line = strings.TrimSpace(line)
				switch {
				case line == "":
					continue

				case line == "/exit" || line == "exit" || line == "quit":
					return nil

				case line == "/clear":
					if err := ctrl.Clear(ctx); err != nil {
						report(ctx, c.Root().ErrWriter, err)
						continue
					}
					r.Notice("Conversation cleared.")
					r.Transcript(store.Current())

				case line == "/analyze" || strings.HasPrefix(line, "/analyze "):
					analyze(ctx, r, ctrl, strings.TrimSpace(strings.TrimPrefix(line, "/analyze")))

				default:
					done := r.Typing("thinking")
					_, err := ctrl.Chat(ctx, line)
					done()
					if err != nil {
						reportInline(ctx, r, err)
					}
				}
			}
		},
	}
}

func analyze(ctx context.Context, r *renderer, ctrl *session.Controller, websiteURL string) {
	done := r.Typing("analysing")
	_, err := ctrl.Analyze(ctx, websiteURL)
	done()
	if err != nil {
		reportInline(ctx, r, err)
	}
}

// reportInline keeps the chat loop running on any error
func reportInline(ctx context.Context, r *renderer, err error) {
	var b strings.Builder
	report(ctx, &b, err)
	if b.Len() > 0 {
		r.Warn("%s", strings.TrimSpace(b.String()))
	}
}

func originLabel(url string) string {
	if url == "" {
		return "no website yet"
	}
	return url
}
