package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/silodb/silo/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	hostFlag     string
	portFlag     int
	userFlag     string
	passwordFlag string
	databaseFlag string
	configFlag   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "silo",
		Short: "Multi-tenant PostgreSQL repository administration",
		Long: `silo administers per-user, schema-isolated repositories on a single
PostgreSQL server: repo lifecycle, collaborator privileges, role management,
catalog introspection, and bulk CSV transfer.

Examples:
  silo repo create sales
  silo collab add sales bob SELECT,INSERT
  silo export table sales.customers /tmp/customers.csv
  silo import sales.customers /tmp/customers.csv`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&hostFlag, "host", "H", "", "Database host (default from config)")
	pf.IntVarP(&portFlag, "port", "p", 0, "Database port (default from config)")
	pf.StringVarP(&userFlag, "user", "u", "", "Database login")
	pf.StringVarP(&passwordFlag, "password", "P", "", "Database password")
	pf.StringVarP(&databaseFlag, "database", "d", "", "Target database")
	pf.StringVarP(&configFlag, "config", "c", "", "Config file path")

	rootCmd.AddCommand(
		newRepoCmd(),
		newUserCmd(),
		newCollabCmd(),
		newTablesCmd(),
		newViewsCmd(),
		newSchemaCmd(),
		newExecCmd(),
		newExportCmd(),
		newImportCmd(),
		newJobsCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the config file named by --config, or the default one.
func loadConfig() *config.Config {
	var cfg *config.Config
	var err error
	if configFlag != "" {
		cfg, err = config.Load(configFlag)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	return cfg
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("silo %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
