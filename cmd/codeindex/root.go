package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/HelixDB/codebase-index/internal/config"
	"github.com/HelixDB/codebase-index/internal/index"
)

var (
	cfgFile string
	v       *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:   "codeindex",
	Short: "Ingest source trees into a code index",
	Long: `codeindex walks a directory tree and mirrors it into a code index:
  - folders and files become index records
  - syntax entities selected by the retention policy are extracted per file
  - top-level entities are chunked and embedded under a request rate limit

Later runs reconcile the index with the tree, re-extracting only files that
changed and deleting what disappeared.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("codeindex {{.Version}}\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\n",
		buildTime, index.BuildMode, index.DriverName))

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./codeindex.toml or $HOME/.config/codeindex/codeindex.toml)")
	flags.String("backend", "", "index backend: http or sqlite")
	flags.String("address", "", "index service address for the http backend")
	flags.String("sqlite-path", "", "database file for the sqlite backend")
	flags.String("policy", "", "retention policy file")
	flags.Int("workers", 0, "concurrent indexing tasks")
	flags.String("log-level", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(ingestCmd, updateCmd, watchCmd, serveCmd, embedCheckCmd)
}

// flagKeys maps persistent flags onto configuration keys
var flagKeys = map[string]string{
	"backend":     "index.backend",
	"address":     "index.address",
	"sqlite-path": "index.sqlite_path",
	"policy":      "policy.path",
	"workers":     "workers",
	"log-level":   "log.level",
}

func initConfig(cmd *cobra.Command) error {
	// A missing .env is fine; keys may come from the real environment
	_ = godotenv.Load()

	var err error
	v, err = config.New(cfgFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	if used := v.ConfigFileUsed(); used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
	return nil
}
