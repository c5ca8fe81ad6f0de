package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nour-az/portfolio-cms/internal/cmsclient"
	"github.com/nour-az/portfolio-cms/internal/models"
	"github.com/nour-az/portfolio-cms/internal/services"
)

var pushClear bool

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload local CMS files to the server",
	Long: `Authenticate with the admin password, then upload every local CMS file.

Singletons (bio, settings) are posted whole. List files are posted one record
at a time, so each record passes the server's validation. Missing files are
skipped. With --clear each list is emptied first so a repeated push does not
duplicate records.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		c := newClient()
		if err := c.Authenticate(ctx, password); err != nil {
			return err
		}
		_, err := push(ctx, c, localFiles(), pushClear, cmd.OutOrStdout())
		return err
	},
}

func init() {
	pushCmd.Flags().BoolVar(&pushClear, "clear", false, "Empty each list on the server before uploading it")
	rootCmd.AddCommand(pushCmd)
}

var singletonKeys = map[string]bool{models.KeyBio: true, models.KeySettings: true}

func entity(key string) string { return strings.TrimPrefix(key, "cms:") }

// push uploads each local file in AllKeys order and returns how many
// records were sent per entity.
func push(ctx context.Context, c *cmsclient.Client, files *services.LocalFiles, clear bool, out io.Writer) (map[string]int, error) {
	counts := map[string]int{}
	for _, key := range models.AllKeys {
		name := entity(key)
		raw, err := files.Read(key)
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(out, "- %s: no local file, skipped\n", name)
			continue
		}
		if err != nil {
			return counts, fmt.Errorf("read %s: %w", files.Path(key), err)
		}

		if singletonKeys[key] {
			if err := c.Post(ctx, name, json.RawMessage(raw)); err != nil {
				return counts, err
			}
			counts[name] = 1
			fmt.Fprintf(out, "✓ %s uploaded\n", name)
			continue
		}

		var records []json.RawMessage
		if err := json.Unmarshal(raw, &records); err != nil {
			return counts, fmt.Errorf("%s: expected a JSON array: %w", files.Path(key), err)
		}
		if clear {
			if err := c.Post(ctx, name+"?action=clear", nil); err != nil {
				return counts, err
			}
		}
		for _, rec := range records {
			if err := c.Post(ctx, name, rec); err != nil {
				return counts, err
			}
			counts[name]++
		}
		fmt.Fprintf(out, "✓ %d %s uploaded\n", len(records), name)
	}
	return counts, nil
}
