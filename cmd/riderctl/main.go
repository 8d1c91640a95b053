// cmd/riderctl/main.go
// Maintenance CLI for the rider identity store: duplicate scans, batch
// merges, exclusions and operator accounts.
//
// Usage:
//
//	go run ./cmd/riderctl duplicates
//	go run ./cmd/riderctl merge-all --apply
//	go run ./cmd/riderctl exclude 812 4410
//	go run ./cmd/riderctl adduser --username padraic --password testing
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/riderapi/config"
	bundb "github.com/padraicbc/riderapi/db"
	"github.com/padraicbc/riderapi/identity"
	applog "github.com/padraicbc/riderapi/logger"
)

// app is the state shared by every subcommand, opened before the command
// runs and closed after it.
type app struct {
	log      *zap.Logger
	db       *bun.DB
	resolver *identity.Resolver
	out      io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "riderctl",
		Short:        "Rider identity maintenance",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.db != nil {
				return nil
			}
			return a.open()
		},
	}
	root.AddCommand(
		newDuplicatesCmd(a),
		newMergeCmd(a),
		newMergeAllCmd(a),
		newExcludeCmd(a),
		newMatchCmd(a),
		newAddUserCmd(a),
	)
	return root
}

func (a *app) open() error {
	cfg := config.LoadTools()
	logger, err := applog.New("riderctl", cfg.Debug)
	if err != nil {
		return err
	}
	a.log = logger
	a.db = bundb.Setup(cfg)
	if err := bundb.CreateTables(context.Background(), a.db); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	a.resolver, err = identity.Setup(a.db, cfg, logger.Named("identity"), nil)
	return err
}

func (a *app) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid rider id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
