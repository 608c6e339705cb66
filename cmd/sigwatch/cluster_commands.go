package main

import (
	"fmt"
	"time"

	"github.com/brojonat/sigwatch/client"
	"github.com/urfave/cli/v2"
)

func clusterCommands() *cli.Command {
	return &cli.Command{
		Name:  "cluster",
		Usage: "Cluster connection commands",
		Subcommands: []*cli.Command{
			clusterGetCommand(),
			clusterSetCommand(),
		},
	}
}

func clusterGetCommand() *cli.Command {
	return &cli.Command{
		Name:  "get",
		Usage: "Show the server's current cluster connection",
		Flags: []cli.Flag{
			jqFilterFlag(),
		},
		Action: func(c *cli.Context) error {
			cl := client.NewClient(c.String("server-url"), nil, cliLogger(c))
			st, err := cl.GetCluster(c.Context)
			if err != nil {
				return err
			}
			return printJSON(st, c.String("filter"))
		},
	}
}

func clusterSetCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "Switch the server's active cluster (clears the status store)",
		ArgsUsage: "RPC_URL",
		Action: func(c *cli.Context) error {
			clusterURL := c.Args().First()
			if clusterURL == "" {
				return fmt.Errorf("RPC_URL argument is required")
			}

			cl := client.NewClient(c.String("server-url"), nil, cliLogger(c))
			st, err := cl.SetCluster(c.Context, clusterURL)
			if err != nil {
				if st != nil {
					fmt.Printf("cluster is %s (phase %s)\n", st.URL, st.Phase)
				}
				return err
			}

			fmt.Printf("connected to %s (version %s)\n", st.URL, st.Version)
			return nil
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check server health",
		Action: func(c *cli.Context) error {
			ctx, cancel := contextWithTimeout(c, 10*time.Second)
			defer cancel()

			cl := client.NewClient(c.String("server-url"), nil, cliLogger(c))
			if err := cl.Health(ctx); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
}
