package commands

import (
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/teranos/cadence/am"
	"github.com/teranos/cadence/db"
	"github.com/teranos/cadence/errors"
	"github.com/teranos/cadence/logger"
)

// openDatabase opens and migrates the database. The --db flag wins over
// database.path from am config.
func openDatabase(cmd *cobra.Command) (*sql.DB, error) {
	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		path, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		dbPath = path
	}
	if dbPath == "" {
		dbPath = am.DefaultDatabasePath
	}

	database, err := db.OpenWithMigrations(dbPath, logger.AddDBSymbol(logger.Logger))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, nil
}
