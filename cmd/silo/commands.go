package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/silodb/silo/internal/pg"
)

func newRepoCmd() *cobra.Command {
	repoCmd := &cobra.Command{
		Use:   "repo",
		Short: "Manage repositories (schemas)",
	}

	var owner string

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a repository owned by the login (idempotent)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			who := owner
			if who == "" {
				who = e.session.User()
			}
			if err := e.repos().Create(cmd.Context(), who, args[0]); err != nil {
				return err
			}
			fmt.Printf("repo %s ready (owner %s)\n", args[0], who)
			return nil
		},
	}
	createCmd.Flags().StringVar(&owner, "owner", "", "Owning role (defaults to the login)")

	listCmd := &cobra.Command{
		Use:   "ls",
		Short: "List repositories owned by the login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			who := owner
			if who == "" {
				who = e.session.User()
			}
			repos, err := e.repos().List(cmd.Context(), who)
			if err != nil {
				return err
			}
			for _, r := range repos {
				fmt.Println(r)
			}
			return nil
		},
	}
	listCmd.Flags().StringVar(&owner, "owner", "", "Owning role (defaults to the login)")

	var force bool
	rmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a repository and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			who := owner
			if who == "" {
				who = e.session.User()
			}
			if err := e.repos().Delete(cmd.Context(), who, args[0], force); err != nil {
				return err
			}
			fmt.Printf("repo %s deleted\n", args[0])
			return nil
		},
	}
	rmCmd.Flags().BoolVarP(&force, "force", "f", false, "Cascade to contained tables and views")
	rmCmd.Flags().StringVar(&owner, "owner", "", "Owning role (defaults to the login)")

	repoCmd.AddCommand(createCmd, listCmd, rmCmd)
	return repoCmd
}

func newUserCmd() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage database logins",
	}

	var newPassword string
	var createDB bool
	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a login role (no createdb/createrole rights)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			if err := pg.NewRoles(e.session).Create(cmd.Context(), args[0], newPassword, createDB); err != nil {
				return err
			}
			fmt.Printf("user %s created\n", args[0])
			return nil
		},
	}
	createCmd.Flags().StringVar(&newPassword, "new-password", "", "Password for the new login")
	createCmd.Flags().BoolVar(&createDB, "create-db", false, "Also provision a personal database")

	var dropDB bool
	rmCmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Drop a login role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			if err := pg.NewRoles(e.session).Remove(cmd.Context(), args[0], dropDB); err != nil {
				return err
			}
			fmt.Printf("user %s removed\n", args[0])
			return nil
		},
	}
	rmCmd.Flags().BoolVar(&dropDB, "drop-db", false, "Drop the personal database first")

	passwdCmd := &cobra.Command{
		Use:   "passwd <name> <new-password>",
		Short: "Change a login's password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			if err := pg.NewRoles(e.session).ChangePassword(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("password for %s changed\n", args[0])
			return nil
		},
	}

	userCmd.AddCommand(createCmd, rmCmd, passwdCmd)
	return userCmd
}

func newCollabCmd() *cobra.Command {
	collabCmd := &cobra.Command{
		Use:   "collab",
		Short: "Manage repository collaborators",
	}

	addCmd := &cobra.Command{
		Use:   "add <repo> <username> <priv[,priv...]>",
		Short: "Grant privileges on a repo, atomically",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			privs := strings.Split(args[2], ",")
			for i := range privs {
				privs[i] = strings.ToUpper(strings.TrimSpace(privs[i]))
			}
			if err := pg.NewCollaborators(e.session).Add(cmd.Context(), args[0], args[1], privs); err != nil {
				return err
			}
			fmt.Printf("%s granted %s on %s\n", args[1], strings.Join(privs, ","), args[0])
			return nil
		},
	}

	rmCmd := &cobra.Command{
		Use:   "rm <repo> <username>",
		Short: "Revoke all of a collaborator's privileges on a repo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			if err := pg.NewCollaborators(e.session).Remove(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%s removed from %s\n", args[1], args[0])
			return nil
		},
	}

	lsCmd := &cobra.Command{
		Use:   "ls <repo>",
		Short: "List collaborators and their privileges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			collabs, err := pg.NewCollaborators(e.session).List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, c := range collabs {
				fmt.Printf("%s\t%s\n", c.Username, strings.Join(c.Privileges, ","))
			}
			return nil
		},
	}

	collabCmd.AddCommand(addCmd, rmCmd, lsCmd)
	return collabCmd
}

func newTablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables <repo>",
		Short: "List tables in an owned repo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			tables, err := e.catalog().ListTables(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Println(t)
			}
			return nil
		},
	}
}

func newViewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "views <repo>",
		Short: "List views in an owned repo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			views, err := e.catalog().ListViews(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, v := range views {
				fmt.Println(v)
			}
			return nil
		},
	}
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <repo.table>",
		Short: "Show a table's columns and types",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			cols, err := e.catalog().DescribeTable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, col := range cols {
				fmt.Printf("%s\t%s\n", col.Name, col.Type)
			}
			return nil
		},
	}
}

func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <sql>",
		Short: "Execute one SQL statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			res, err := e.session.Execute(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printResult(res)
			return nil
		},
	}
}

// copyFlags registers the shared COPY option flags on cmd.
func copyFlags(cmd *cobra.Command, opts *pg.CopyOptions, noHeader *bool) {
	cmd.Flags().StringVar(&opts.Format, "format", "CSV", "COPY format literal")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", ",", "Field delimiter")
	cmd.Flags().BoolVar(noHeader, "no-header", false, "Omit the header row")
}

func newExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export tabular data to a server-side file",
	}

	var tableOpts pg.CopyOptions
	var tableNoHeader bool
	tableCmd := &cobra.Command{
		Use:   "table <table> <path>",
		Short: "Export a table with COPY TO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			tableOpts.Header = !tableNoHeader
			job, err := e.transfer().ExportTable(cmd.Context(), args[0], args[1], tableOpts)
			if err != nil {
				return err
			}
			fmt.Printf("job %s %s\n", job.ID, job.State)
			return nil
		},
	}
	copyFlags(tableCmd, &tableOpts, &tableNoHeader)

	var queryOpts pg.CopyOptions
	var queryNoHeader bool
	queryCmd := &cobra.Command{
		Use:   "query <sql> <path>",
		Short: "Export a query's result set with COPY TO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			queryOpts.Header = !queryNoHeader
			job, err := e.transfer().ExportQuery(cmd.Context(), args[0], args[1], queryOpts)
			if err != nil {
				return err
			}
			fmt.Printf("job %s %s\n", job.ID, job.State)
			return nil
		},
	}
	copyFlags(queryCmd, &queryOpts, &queryNoHeader)

	exportCmd.AddCommand(tableCmd, queryCmd)
	return exportCmd
}

func newImportCmd() *cobra.Command {
	var opts pg.CopyOptions
	var noHeader bool

	importCmd := &cobra.Command{
		Use:   "import <table> <path>",
		Short: "Bulk-load a server-side file with COPY FROM",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			opts.Header = !noHeader
			job, err := e.transfer().Import(cmd.Context(), args[0], args[1], opts)
			if err != nil {
				return err
			}
			fmt.Printf("job %s %s (%s loaded in %s)\n", job.ID, job.State, args[0], job.Duration)
			return nil
		},
	}
	copyFlags(importCmd, &opts, &noHeader)
	importCmd.Flags().StringVar(&opts.Encoding, "encoding", "ISO-8859-1", "Source file encoding")
	importCmd.Flags().StringVar(&opts.Quote, "quote", `"`, "Quote character")
	return importCmd
}

func newJobsCmd() *cobra.Command {
	var limit int
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Show recent transfer jobs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.close(cmd.Context())

			if e.ledger == nil {
				return fmt.Errorf("transfer ledger is not enabled (set ledger.enabled in the config)")
			}
			entries, err := e.ledger.Recent(limit)
			if err != nil {
				return err
			}
			for _, entry := range entries {
				line := fmt.Sprintf("%s\t%s\t%s\t%s\t%s", entry.ID, entry.Direction, entry.Subject, entry.Path, entry.State)
				if entry.Error != "" {
					line += "\t" + entry.Error
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	jobsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	return jobsCmd
}
