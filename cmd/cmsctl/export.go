package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/nour-az/portfolio-cms/internal/cmsclient"
	"github.com/nour-az/portfolio-cms/internal/models"
	"github.com/nour-az/portfolio-cms/internal/services"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Snapshot the live CMS into local JSON files",
	Long: `Read every entity from the server's public API and write it, pretty
printed, to the local CMS directory. Entities the server has no data for are
left untouched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()
		_, err := export(ctx, newClient(), localFiles(), cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

// export returns the names of the entities it wrote.
func export(ctx context.Context, c *cmsclient.Client, files *services.LocalFiles, out io.Writer) ([]string, error) {
	var written []string
	for _, key := range models.AllKeys {
		name := entity(key)
		raw, err := c.Get(ctx, name)
		if err != nil {
			return written, err
		}
		if raw == nil {
			fmt.Fprintf(out, "- %s: no data on server, skipped\n", name)
			continue
		}
		if err := files.Write(key, pretty.Pretty(raw)); err != nil {
			return written, fmt.Errorf("write %s: %w", files.Path(key), err)
		}
		written = append(written, name)
		fmt.Fprintf(out, "✓ %s -> %s\n", name, files.Path(key))
	}
	return written, nil
}
