package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nour-az/portfolio-cms/internal/cmsclient"
)

var clearYes bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Wipe every CMS entity on the server",
	Long: `Blank all six CMS keys on the server in one call. Reads then fall back to
the server's local files and built-in defaults. Requires --yes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to clear without --yes")
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		if err := c.Authenticate(ctx, password); err != nil {
			return err
		}
		return clearAll(ctx, c, cmd.OutOrStdout())
	},
}

func init() {
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "Confirm wiping all CMS data")
	rootCmd.AddCommand(clearCmd)
}

func clearAll(ctx context.Context, c *cmsclient.Client, out io.Writer) error {
	res, err := c.ClearAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, res.Message)
	if res.Failed > 0 {
		return fmt.Errorf("%d keys could not be cleared", res.Failed)
	}
	return nil
}
