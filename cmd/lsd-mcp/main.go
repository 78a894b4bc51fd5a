// Command lsd-mcp detects line segments in images, either as an MCP server
// over stdio or from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/ironsheep/lsd-mcp/internal/logging"
	"github.com/ironsheep/lsd-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const (
	flagLogLevel = "log-level"
	flagLogJSON  = "log-json"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "lsd-mcp: %v\n", err)
		os.Exit(1)
	}
}

// newApp builds the CLI. Stdout is reserved for the MCP protocol and command
// output; logs go to errw.
func newApp(out, errw io.Writer) *cli.App {
	logger := zerolog.Nop()

	serve := func(c *cli.Context) error {
		srv := server.New(
			server.WithLogger(logger),
			server.WithVersion(Version),
		)
		return srv.Serve(c.Context, c.App.Reader, c.App.Writer)
	}

	return &cli.App{
		Name:      "lsd-mcp",
		Usage:     "a-contrario line segment detection, as an MCP server or a command",
		Version:   Version,
		Writer:    out,
		ErrWriter: errw,
		Reader:    os.Stdin,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagLogLevel,
				Usage:   "log level: trace, debug, info, warn, error",
				Value:   "info",
				EnvVars: []string{logging.EnvLevel},
			},
			&cli.BoolFlag{
				Name:  flagLogJSON,
				Usage: "log JSON lines instead of console output",
			},
		},
		Before: func(c *cli.Context) error {
			level, err := logging.ParseLevel(c.String(flagLogLevel))
			if err != nil {
				return err
			}
			if c.Bool(flagLogJSON) {
				logger = logging.New(errw, level)
			} else {
				logger = logging.NewConsole(errw, level)
			}
			logger.Debug().Str("version", Version).Str("commit", GitCommit).Str("built", BuildTime).Msg("starting")
			return nil
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "serve MCP over stdin and stdout (default)",
				Action: serve,
			},
			{
				Name:      "detect",
				Usage:     "detect line segments in an image",
				ArgsUsage: "<image>",
				Flags:     detectFlags(),
				Action: func(c *cli.Context) error {
					return runDetect(c, logger)
				},
			},
			{
				Name:  "version",
				Usage: "print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintf(c.App.Writer, "lsd-mcp %s\n", Version)
					fmt.Fprintf(c.App.Writer, "  Build time: %s\n", BuildTime)
					fmt.Fprintf(c.App.Writer, "  Git commit: %s\n", GitCommit)
					return nil
				},
			},
		},
	}
}
