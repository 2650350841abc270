// ABOUTME: Entry point for the teamhub server and its operator commands.
// ABOUTME: Wires config, logging, store, backend client, plugin registry and web server into CLI commands.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/2389/teamhub/internal/backend"
	"github.com/2389/teamhub/internal/config"
	"github.com/2389/teamhub/internal/logging"
	"github.com/2389/teamhub/internal/metrics"
	"github.com/2389/teamhub/internal/rbac"
	"github.com/2389/teamhub/internal/sessions"
	"github.com/2389/teamhub/internal/store"
	"github.com/2389/teamhub/internal/web"
	"github.com/2389/teamhub/plugins/builtin"
	"github.com/2389/teamhub/plugins/core"
	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var configFile string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "teamhub",
		Short: "teamhub - channel and permission front end for team servers",
		Long: `teamhub serves channel pages, channel creation and the role and member
admin screens for a team-collaboration backend.

Every channel type is rendered by a plugin. Every screen is gated by the
viewer's permission snapshot, fetched from the backend per server.

Quick Start:
  teamhub serve --backend http://localhost:8080
  teamhub types
  teamhub check --server SERVER_ID --token TOKEN --permission manage_channels`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, json or toml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the teamhub HTTP server.

The server provides:
  • Channel pages at /servers/{id}/channels/{channel}
  • Role and member admin at /servers/{id}/admin
  • The viewer's permission view at /servers/{id}/permissions
  • Health check at /healthz and Prometheus metrics at /metrics

Authentication:
  Requests carry the backend token as "Authorization: Bearer TOKEN" or in the
  teamhub_token cookie. Tokens of the form user:NAME name the viewer directly.

Environment Variables:
  TEAMHUB_LISTEN         Listen address (default: :9100)
  TEAMHUB_BACKEND_URL    Backend base URL (required)
  TEAMHUB_DB_PATH        Database path
  TEAMHUB_LOG_LEVEL      debug, info, warn or error
  TEAMHUB_SNAPSHOT_WAIT  How long pages wait for permissions (default: 1500ms)`,
		RunE: runServe,
	}
	serveCmd.Flags().StringP("listen", "l", "", "Address to listen on")
	serveCmd.Flags().StringP("backend", "b", "", "Backend base URL")
	serveCmd.Flags().StringP("db", "d", "", "Database path")
	serveCmd.Flags().String("log-level", "", "Log level")
	serveCmd.Flags().String("log-format", "", "Log format (text or json)")

	typesCmd := &cobra.Command{
		Use:   "types",
		Short: "List the registered channel types",
		RunE:  runTypes,
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch a permission snapshot and print decisions",
		Long: `Fetch the permission snapshot for a token on one server and print the
admin, moderator, capability, role and level decisions made from it.

Exits non-zero when the snapshot cannot be fetched.

Usage:
  teamhub check --server s1 --token user:alice
  teamhub check --server s1 --token T --permission manage_channels --permission manage_roles
  teamhub check --server s1 --token T --role Moderator --level 50`,
		RunE: runCheck,
	}
	checkCmd.Flags().StringP("backend", "b", "", "Backend base URL")
	checkCmd.Flags().String("server", "", "Server ID")
	checkCmd.Flags().String("token", "", "Viewer token")
	checkCmd.Flags().StringArray("permission", nil, "Permission to check (repeatable)")
	checkCmd.Flags().String("role", "", "Role name to check")
	checkCmd.Flags().Int("level", -1, "Permission level to check")
	_ = checkCmd.MarkFlagRequired("server")
	_ = checkCmd.MarkFlagRequired("token")

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent request logs",
		RunE:  runLogs,
	}
	logsCmd.Flags().StringP("db", "d", "", "Database path")
	logsCmd.Flags().IntP("limit", "n", 20, "Number of entries")
	logsCmd.Flags().String("area", "", "Only show one area (channels, admin, permissions, types)")

	rootCmd.AddCommand(serveCmd, typesCmd, checkCmd, logsCmd)
	return rootCmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.RequireBackend(); err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	handler, cleanup, err := newServer(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"listen":  cfg.Listen,
			"backend": cfg.BackendURL,
		}).Info("teamhub server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServer builds the web handler from cfg. cleanup closes the store.
func newServer(cfg *config.Config, log *logrus.Logger) (http.Handler, func(), error) {
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(dbPath, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("failed to close store")
		}
	}

	client, err := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.HTTPTimeout), backend.WithLogger(log))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	reg := core.NewRegistry(log)
	if err := builtin.Register(reg); err != nil {
		cleanup()
		return nil, nil, err
	}

	sess := sessions.New(cfg.SessionSize, cfg.SessionTTL, log)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	m.RegisterSessionGauge(sess.Len)

	s := web.New(web.Options{
		Registry:     reg,
		Backend:      client,
		Sessions:     sess,
		Metrics:      m,
		Store:        st,
		Logger:       log,
		SnapshotWait: cfg.SnapshotWait,
		SnapshotAge:  cfg.SnapshotAge,
	})

	log.WithFields(logrus.Fields{
		"db":            dbPath,
		"channel_types": reg.Len(),
	}).Info("server initialized")
	return s.Handler(), cleanup, nil
}

func runTypes(cmd *cobra.Command, args []string) error {
	log := logrus.New()
	log.SetOutput(io.Discard)

	reg := core.NewRegistry(log)
	if err := builtin.Register(reg); err != nil {
		return err
	}
	printTypes(cmd.OutOrStdout(), reg)
	return nil
}

func printTypes(out io.Writer, reg *core.Registry) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tNAME\tCREATE FORM\tSETTINGS\tDESCRIPTION")
	for _, p := range reg.All() {
		meta := p.Meta()
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			meta.Type, meta.Name, yesNo(core.HasCreateForm(p)), yesNo(core.HasSettings(p)), meta.Description)
	}
	_ = tw.Flush()
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.RequireBackend(); err != nil {
		return err
	}
	log, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	serverID, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")
	perms, _ := cmd.Flags().GetStringArray("permission")
	role, _ := cmd.Flags().GetString("role")
	level, _ := cmd.Flags().GetInt("level")

	client, err := backend.New(cfg.BackendURL, backend.WithTimeout(cfg.HTTPTimeout), backend.WithLogger(log))
	if err != nil {
		return err
	}

	ev := rbac.NewEvaluator(serverID, client.SnapshotFetcher(token), rbac.WithLogger(log))
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
	defer cancel()
	if err := ev.Load(ctx); err != nil {
		return fmt.Errorf("fetch permissions for server %s: %w", serverID, err)
	}

	printDecisions(cmd.OutOrStdout(), ev, perms, role, level)
	return nil
}

func printDecisions(out io.Writer, ev *rbac.Evaluator, perms []string, role string, level int) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "server\t%s\n", ev.ServerID())

	roles := make([]string, 0, len(ev.UserRoles()))
	for _, r := range ev.UserRoles() {
		roles = append(roles, r.Name)
	}
	fmt.Fprintf(tw, "roles\t%s\n", strings.Join(roles, ", "))
	fmt.Fprintf(tw, "max level\t%d\n", ev.MaxPermissionLevel())
	fmt.Fprintf(tw, "admin\t%s\n", yesNo(ev.IsAdmin()))
	fmt.Fprintf(tw, "moderator\t%s\n", yesNo(ev.IsModerator()))

	for _, p := range perms {
		fmt.Fprintf(tw, "can %s\t%s\n", p, yesNo(ev.Can(p)))
	}
	if len(perms) > 1 {
		fmt.Fprintf(tw, "can all\t%s\n", yesNo(ev.CanAll(perms...)))
		fmt.Fprintf(tw, "can any\t%s\n", yesNo(ev.CanAny(perms...)))
	}
	if role != "" {
		fmt.Fprintf(tw, "role %s\t%s\n", role, yesNo(ev.HasRole(role)))
	}
	if level >= 0 {
		fmt.Fprintf(tw, "level %d\t%s\n", level, yesNo(ev.HasPermissionLevel(level)))
	}
	_ = tw.Flush()
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	dbPath, err := cfg.ResolveDBPath()
	if err != nil {
		return err
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	st, err := store.New(dbPath, log)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	area, _ := cmd.Flags().GetString("area")
	logs, err := st.GetRequestLogs(&store.RequestLogQuery{Limit: limit, Area: area})
	if err != nil {
		return err
	}
	printLogs(cmd.OutOrStdout(), logs)
	return nil
}

func printLogs(out io.Writer, logs []*store.RequestLog) {
	if len(logs) == 0 {
		fmt.Fprintln(out, "No requests logged yet.")
		return
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMETHOD\tSTATUS\tAREA\tPATH\tDURATION\tVIEWER")
	for _, l := range logs {
		viewer := l.Viewer
		if viewer == "" {
			viewer = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%dms\t%s\n",
			humanize.Time(l.Timestamp), l.Method, strconv.Itoa(l.StatusCode), l.Area, l.Path, l.DurationMs, viewer)
	}
	_ = tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
