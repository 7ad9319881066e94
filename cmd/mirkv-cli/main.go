// Command mirkv-cli is a small command-line client for a mirkv server,
// exercising pkg/client's SDK from the shell.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirkv/mirkv/pkg/client"
	"github.com/mirkv/mirkv/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.NewClientConfig()

	root := &cobra.Command{
		Use:   "mirkv-cli",
		Short: "mirkv-cli talks to a mirkv server",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return fmt.Errorf("load .env: %w", err)
			}
			addr := cfg.Addr
			cfg.ApplyEnv()
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			return cfg.Validate()
		},
	}
	root.PersistentFlags().StringVar(&cfg.Addr, "addr", cfg.Addr, "mirkv server address")

	root.AddCommand(
		newPingCmd(cfg),
		newGetCmd(cfg),
		newSetCmd(cfg),
		newDelCmd(cfg),
	)
	return root
}

func newPingCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check server liveness",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewWithConfig(cfg)
			defer func() { _ = c.Close() }()
			if err := c.Ping(); err != nil {
				return err
			}
			fmt.Println("PONG")
			return nil
		},
	}
}

func newGetCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve the string value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewWithConfig(cfg)
			defer func() { _ = c.Close() }()

			value, found, err := c.Get(args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("(nil)")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}
}

func newSetCmd(cfg *config.ClientConfig) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a string value, optionally with an expiration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewWithConfig(cfg)
			defer func() { _ = c.Close() }()

			if err := c.Set(args[0], args[1], ttl); err != nil {
				return err
			}
			fmt.Println("OK")
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "expiration duration, e.g. 30s (0 for no expiration)")
	return cmd
}

func newDelCmd(cfg *config.ClientConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "del <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.NewWithConfig(cfg)
			defer func() { _ = c.Close() }()

			existed, err := c.Del(args[0])
			if err != nil {
				return err
			}
			fmt.Println(boolToIntString(existed))
			return nil
		},
	}
}

func boolToIntString(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
