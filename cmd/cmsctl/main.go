package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nour-az/portfolio-cms/internal/cmsclient"
	"github.com/nour-az/portfolio-cms/internal/services"
)

var (
	siteURL  string
	password string
	cmsDir   string
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "cmsctl",
	Short: "Operate a portfolio CMS over its HTTP API",
	Long: `cmsctl moves CMS content between local JSON files and a running server.

The local directory holds one file per entity (bio.json, projects.json,
experiences.json, education.json, skills.json, settings.json). The same
files are read by the server as its local fallback tier.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&siteURL, "url", envOr("SITE_URL", "http://localhost:8080"), "CMS server base URL (or set SITE_URL)")
	rootCmd.PersistentFlags().StringVar(&password, "password", os.Getenv("CMS_ADMIN_PASSWORD"), "Admin password (or set CMS_ADMIN_PASSWORD)")
	rootCmd.PersistentFlags().StringVarP(&cmsDir, "dir", "d", envOr("CMS_DIR", "cms"), "Directory of CMS JSON files")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newClient() *cmsclient.Client {
	return cmsclient.New(siteURL, nil)
}

func localFiles() *services.LocalFiles {
	return services.NewLocalFiles(cmsDir)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func main() {
	// .env.local wins over .env, matching the server's local setup.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
