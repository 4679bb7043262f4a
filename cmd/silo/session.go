package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/silodb/silo/internal/audit"
	"github.com/silodb/silo/internal/config"
	"github.com/silodb/silo/internal/ledger"
	"github.com/silodb/silo/internal/pg"
)

// env bundles everything a command needs: the live session plus the
// configured side facilities.
type env struct {
	cfg     *config.Config
	session *pg.Session
	ledger  *ledger.Ledger
	audit   *audit.Logger
}

// openEnv resolves configuration and flags into a connected environment.
// Flags win over the config file; the config file wins over defaults.
func openEnv(ctx context.Context) (*env, error) {
	cfg := loadConfig()

	creds := pg.Credentials{
		User:     cfg.Server.User,
		Password: cfg.Server.Password,
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		SSLMode:  cfg.Server.SSLMode,
	}
	if userFlag != "" {
		creds.User = userFlag
	}
	if passwordFlag != "" {
		creds.Password = passwordFlag
	}
	if hostFlag != "" {
		creds.Host = hostFlag
	}
	if portFlag != 0 {
		creds.Port = portFlag
	}
	if creds.User == "" {
		return nil, fmt.Errorf("no database login: set --user or server.user in the config")
	}

	database := cfg.Server.Database
	if databaseFlag != "" {
		database = databaseFlag
	}
	if database == "" {
		database = creds.User
	}

	session, err := pg.Open(ctx, creds, database)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, session: session}

	if cfg.Audit.Enabled {
		path := cfg.Audit.Path
		if path == "" {
			if dir, err := config.ConfigDir(); err == nil {
				path = filepath.Join(dir, "audit.jsonl")
			}
		}
		if path != "" {
			log, err := audit.New(path, cfg.Audit.MaxSizeMB)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not open audit log: %v\n", err)
			} else {
				e.audit = log
				session.SetAudit(log)
			}
		}
	}

	if cfg.Ledger.Enabled {
		path := cfg.Ledger.Path
		if path == "" {
			if dir, err := config.ConfigDir(); err == nil {
				path = filepath.Join(dir, "ledger.db")
			}
		}
		if path != "" {
			led, err := ledger.Open(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not open transfer ledger: %v\n", err)
			} else {
				e.ledger = led
			}
		}
	}

	return e, nil
}

// close releases the session and side facilities on every exit path.
func (e *env) close(ctx context.Context) {
	e.session.Close(ctx)
	if e.audit != nil {
		_ = e.audit.Close()
	}
	if e.ledger != nil {
		_ = e.ledger.Close()
	}
}

func (e *env) repos() *pg.Repos {
	return pg.NewRepos(e.session, e.cfg.RepoDir)
}

func (e *env) catalog() *pg.Catalog {
	return pg.NewCatalog(e.session, e.repos(), e.session.User())
}

func (e *env) transfer() *pg.Transfer {
	var rec pg.JobRecorder
	if e.ledger != nil {
		rec = e.ledger
	}
	return pg.NewTransfer(e.session, rec)
}

// printResult writes a Result as tab-separated rows, with a header line when
// column metadata is present.
func printResult(res *pg.Result) {
	if len(res.Columns) > 0 {
		for i, col := range res.Columns {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(col.Name)
		}
		fmt.Println()
	}
	for _, row := range res.Rows {
		for i, v := range row {
			if i > 0 {
				fmt.Print("\t")
			}
			fmt.Print(v)
		}
		fmt.Println()
	}
	if len(res.Rows) == 0 {
		fmt.Printf("(%d rows affected)\n", res.RowCount)
	}
}
