package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/brojonat/sigwatch/client"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

func statusCommands() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Signature status commands",
		Subcommands: []*cli.Command{
			statusFetchCommand(),
			statusGetCommand(),
			statusListCommand(),
			statusAwaitCommand(),
		},
	}
}

func statusFetchCommand() *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Trigger a status fetch for a signature",
		ArgsUsage: "SIGNATURE",
		Action: func(c *cli.Context) error {
			signature := c.Args().First()
			if signature == "" {
				return fmt.Errorf("SIGNATURE argument is required")
			}

			cl := client.NewClient(c.String("server-url"), nil, cliLogger(c))
			if err := cl.Fetch(c.Context, signature); err != nil {
				return err
			}

			fmt.Printf("fetch requested for %s\n", signature)
			return nil
		},
	}
}

func statusGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Get the status record for a signature",
		ArgsUsage: "SIGNATURE",
		Flags: []cli.Flag{
			jqFilterFlag(),
		},
		Action: func(c *cli.Context) error {
			signature := c.Args().First()
			if signature == "" {
				return fmt.Errorf("SIGNATURE argument is required")
			}

			cl := client.NewClient(c.String("server-url"), nil, cliLogger(c))
			record, err := cl.GetStatus(c.Context, signature)
			if err != nil {
				return err
			}

			return printJSON(record, c.String("filter"))
		},
	}
}

func statusListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Dump the full status map and its cluster URL",
		Flags: []cli.Flag{
			jqFilterFlag(),
		},
		Action: func(c *cli.Context) error {
			cl := client.NewClient(c.String("server-url"), nil, cliLogger(c))
			state, err := cl.ListStatuses(c.Context)
			if err != nil {
				return err
			}

			return printJSON(state, c.String("filter"))
		},
	}
}

func statusAwaitCommand() *cli.Command {
	return &cli.Command{
		Name:      "await",
		Usage:     "Fetch a signature and wait for a terminal status",
		ArgsUsage: "SIGNATURE",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Maximum time to wait",
				Value: 60 * time.Second,
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "How often to poll the server",
				Value: time.Second,
			},
			jqFilterFlag(),
		},
		Action: func(c *cli.Context) error {
			signature := c.Args().First()
			if signature == "" {
				return fmt.Errorf("SIGNATURE argument is required")
			}

			ctx, cancel := contextWithTimeout(c, c.Duration("timeout"))
			defer cancel()

			cl := client.NewClient(c.String("server-url"), nil, cliLogger(c))
			record, err := cl.Await(ctx, signature, c.Duration("poll-interval"))
			if err != nil {
				return err
			}

			return printJSON(record, c.String("filter"))
		},
	}
}

func jqFilterFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "filter",
		Aliases: []string{"f"},
		Usage:   "jq expression applied to the JSON output",
	}
}

// printJSON writes v to stdout as indented JSON, optionally transformed
// by a jq expression.
func printJSON(v interface{}, filter string) error {
	if filter == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	// Round-trip through encoding/json so gojq sees plain maps/slices.
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to unmarshal output: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	iter := code.Run(input)
	for {
		out, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := out.(error); ok {
			return fmt.Errorf("jq filter failed: %w", err)
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}
