/*
main.go - Application entry point

PURPOSE:
  Command-line front end of the TimeArch reconciliation engine: runs the
  HTTP API, migrates the database, loads demo data and prints per-user
  balance reports.

COMMANDS:
  serve               Start the HTTP API (graceful shutdown on SIGINT/SIGTERM)
  migrate             Create the schema and seed the phase catalog
  demo <scenario>     Reset the database and load a demo scenario
  report --user NAME  Print the balance overview of one user

CONFIGURATION:
  Environment variables (TIMEARCH_ prefix, see config/config.go) are read
  first; flags given on the command line override them.

EXAMPLES:
  timearch serve --addr=:3000
  timearch --driver=postgres --dsn="postgres://localhost/timearch?sslmode=disable" migrate
  timearch demo project-team
  timearch report --user=anna --as-of=2024-01-05 --format=csv

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Environment variables
*/
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

var version = "dev"

var CLI struct {
	Version kong.VersionFlag

	Driver   string `help:"Database driver (sqlite or postgres). Overrides TIMEARCH_DB_DRIVER."`
	DSN      string `help:"SQLite path or PostgreSQL connection string. Overrides TIMEARCH_DSN." name:"dsn"`
	LogLevel string `help:"Log level (debug, info, warn, error). Overrides TIMEARCH_LOG_LEVEL."`
	LogFile  string `help:"Also write logs to this rotating file. Overrides TIMEARCH_LOG_FILE." type:"path"`

	Serve   ServeCmd   `cmd:"" help:"Start the HTTP API." default:"1"`
	Migrate MigrateCmd `cmd:"" help:"Create the schema and seed the SIA phase catalog."`
	Demo    DemoCmd    `cmd:"" help:"Reset the database and load a demo scenario."`
	Report  ReportCmd  `cmd:"" help:"Print the balance overview of one user."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("timearch"),
		kong.Description("Work-hours reconciliation engine for architecture offices"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	app, err := newApp(overrides{
		Driver:   CLI.Driver,
		DSN:      CLI.DSN,
		LogLevel: CLI.LogLevel,
		LogFile:  CLI.LogFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer app.Logger.Sync()

	if err := ctx.Run(app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
