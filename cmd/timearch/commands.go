package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/timearch/engine/api"
	"github.com/timearch/engine/export"
	"github.com/timearch/engine/store/sqlstore"
	"github.com/timearch/engine/worktime"
)

// =============================================================================
// SERVE
// =============================================================================

type ServeCmd struct {
	Addr string `help:"Listen address. Overrides TIMEARCH_HTTP_ADDR."`
}

func (c *ServeCmd) Run(app *App) error {
	addr := app.Config.HTTPAddr
	if c.Addr != "" {
		addr = c.Addr
	}

	store, err := app.OpenStore(context.Background())
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, app.Logger)
	handler.Engine = app.Engine(store)
	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: app.Config.CORSOrigins})

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.Logger.Info("server starting", zap.String("addr", addr), zap.String("driver", store.Dialect()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	app.Logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	app.Logger.Info("server stopped")
	return nil
}

// =============================================================================
// MIGRATE
// =============================================================================

type MigrateCmd struct{}

func (c *MigrateCmd) Run(app *App) error {
	// OpenStore migrates.
	store, err := app.OpenStore(context.Background())
	if err != nil {
		return err
	}
	defer store.Close()

	app.Logger.Info("database migrated", zap.String("driver", store.Dialect()))
	return nil
}

// =============================================================================
// DEMO
// =============================================================================

type DemoCmd struct {
	Scenario string `arg:"" optional:"" help:"Scenario to load. Omit to list scenarios."`
}

func (c *DemoCmd) Run(app *App) error {
	if c.Scenario == "" {
		return listScenarios(os.Stdout)
	}

	ctx := context.Background()
	store, err := app.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	ledger := worktime.NewLedger(store, app.Logger.Named("ledger"))
	if err := api.Seed(ctx, store, ledger, c.Scenario); err != nil {
		return err
	}
	app.Logger.Info("scenario loaded", zap.String("scenario", c.Scenario))
	return nil
}

func listScenarios(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, s := range api.Scenarios() {
		fmt.Fprintf(tw, "%s\t%s\n", s.ID, s.Description)
	}
	return tw.Flush()
}

// =============================================================================
// REPORT
// =============================================================================

type ReportCmd struct {
	User   string `required:"" help:"Username or numeric user ID."`
	AsOf   string `name:"as-of" help:"Report date (YYYY-MM-DD). Defaults to today."`
	Format string `enum:"text,json,csv" default:"text" help:"Output format (text, json, csv)."`
}

func (c *ReportCmd) Run(app *App) error {
	ctx := context.Background()
	store, err := app.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := app.Engine(store)
	asOf := engine.Today()
	if c.AsOf != "" {
		if asOf, err = worktime.ParseDate(c.AsOf); err != nil {
			return fmt.Errorf("--as-of: %w", err)
		}
	}

	user, err := resolveUser(ctx, store, c.User)
	if err != nil {
		return err
	}
	o, err := engine.Overview(ctx, user.ID, asOf)
	if err != nil {
		return err
	}
	return writeReport(os.Stdout, c.Format, *user, o)
}

// resolveUser accepts a username or a numeric ID.
func resolveUser(ctx context.Context, store *sqlstore.Store, ref string) (*worktime.User, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return store.GetUser(ctx, worktime.UserID(id))
	}
	users, err := store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == ref {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", ref, worktime.ErrUserNotFound)
}

func writeReport(w io.Writer, format string, user worktime.User, o worktime.Overview) error {
	switch format {
	case "csv":
		return export.OverviewCSV(w, o)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "User\t%s (%d)\n", user.Username, user.ID)
	fmt.Fprintf(tw, "As of\t%s\n", o.Year.AsOf)
	if o.Year.Status != worktime.StatusOK {
		fmt.Fprintf(tw, "Status\t%s\n", o.Year.Status)
		return tw.Flush()
	}
	fmt.Fprintf(tw, "Today\t%s h of %s h (net %s)\n",
		o.Daily.ActualHours.StringFixed(2), o.Daily.TargetHours.StringFixed(2), o.Daily.NetHours.StringFixed(2))
	fmt.Fprintf(tw, "Year\t%s h of %s h (net %s)\n",
		o.Year.ActualHours.StringFixed(2), o.Year.ExpectedHours.StringFixed(2), o.Year.NetHours.StringFixed(2))
	fmt.Fprintf(tw, "Employment\t%s %% (contract %d %%)\n",
		o.Employment.ActualPercentage.StringFixed(1), o.Employment.ContractualPercentage)
	fmt.Fprintf(tw, "Vacation\t%s of %s days used, %s remaining, %s overused\n",
		o.Vacation.UsedDays.StringFixed(1), o.Vacation.AssignedDays.StringFixed(1),
		o.Vacation.RemainingDays.StringFixed(1), o.Vacation.OverusedDays.StringFixed(1))
	return tw.Flush()
}
