// SPDX-License-Identifier: MIT

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/1001011000101101/lers-plugins-sub000/internal/batch"
	"github.com/1001011000101101/lers-plugins-sub000/internal/config"
	"github.com/1001011000101101/lers-plugins-sub000/internal/history"
	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one report template for every target across servers",
	Long: `Generate resolves the given template title on every configured server,
enumerates the matching measure points (or buildings for apartment reports)
and produces one report per target. Failures on one server never stop the
others; the consolidated outcome is printed when every server is done.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringP("template", "t", "", "Report template title (matched per server, case-insensitive)")
	generateCmd.Flags().Int64("report-id", 0, "Report id shortcut for the local server only")
	generateCmd.Flags().String("point-type", "regular", "Target scope: regular or communal")
	generateCmd.Flags().Int("system-type", 0, "Restrict regular points to one system type id")
	generateCmd.Flags().String("data-type", "", "Data granularity passed to the report engine (e.g. Day)")
	generateCmd.Flags().String("start", "", "Start date (YYYY-MM-DD)")
	generateCmd.Flags().String("end", "", "End date (YYYY-MM-DD)")
	generateCmd.Flags().String("format", "", "Export format passed to the report engine (e.g. Pdf)")
	generateCmd.Flags().String("delivery", "archive", "Delivery mode: archive or separate")
	generateCmd.Flags().StringP("output", "o", ".", "Output directory")
	generateCmd.Flags().String("targets", "", "Path to the remote server targets file (YAML)")
	generateCmd.Flags().Duration("generate-timeout", 3*time.Minute, "Per-report generation ceiling")

	generateCmd.Flags().String("lers-url", "", "Local LERS server base URL (empty skips the local source)")
	generateCmd.Flags().String("login", "", "Local LERS login")
	generateCmd.Flags().String("password", "", "Local LERS password")
	generateCmd.Flags().Bool("insecure", false, "Skip TLS verification toward the local server")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger := log.WithComponent("cli")

	req, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}
	genTimeout, _ := cmd.Flags().GetDuration("generate-timeout")

	sources, cleanup, err := buildSources(ctx, cmd, genTimeout)
	if err != nil {
		return err
	}
	defer cleanup()

	orch := batch.New(genTimeout)
	summary, err := orch.Run(ctx, req, sources)

	if path, _ := cmd.Flags().GetString("history"); path != "" && summary != nil {
		if herr := saveHistory(ctx, path, req.TemplateTitle, summary); herr != nil {
			logger.Warn().Err(herr).Str("event", "cli.history_failed").Msg("failed to record batch history")
		}
	}
	if err != nil {
		return err
	}

	printSummary(cmd, summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d reports failed", summary.Failed, summary.Total)
	}
	return nil
}

func requestFromFlags(cmd *cobra.Command) (batch.Request, error) {
	var req batch.Request
	req.TemplateTitle, _ = cmd.Flags().GetString("template")
	req.ReportID, _ = cmd.Flags().GetInt64("report-id")
	req.SystemTypeID, _ = cmd.Flags().GetInt("system-type")
	req.DataType, _ = cmd.Flags().GetString("data-type")
	req.Format, _ = cmd.Flags().GetString("format")
	req.OutputDir, _ = cmd.Flags().GetString("output")

	pointType, _ := cmd.Flags().GetString("point-type")
	switch pointType {
	case lers.PointTypeRegular, lers.PointTypeCommunal:
		req.PointType = pointType
	default:
		return req, fmt.Errorf("unknown point type %q", pointType)
	}

	delivery, _ := cmd.Flags().GetString("delivery")
	req.Delivery = batch.Delivery(delivery)

	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")
	var err error
	if req.StartDate, err = time.Parse("2006-01-02", start); err != nil {
		return req, fmt.Errorf("invalid start date %q", start)
	}
	if req.EndDate, err = time.Parse("2006-01-02", end); err != nil {
		return req, fmt.Errorf("invalid end date %q", end)
	}
	return req, nil
}

// buildSources assembles the local source (when a server URL is given) and
// one remote source per configured target. The returned cleanup closes the
// local connection.
func buildSources(ctx context.Context, cmd *cobra.Command, timeout time.Duration) ([]batch.Source, func(), error) {
	var sources []batch.Source
	cleanup := func() {}

	if baseURL, _ := cmd.Flags().GetString("lers-url"); baseURL != "" {
		login, _ := cmd.Flags().GetString("login")
		password, _ := cmd.Flags().GetString("password")
		insecure, _ := cmd.Flags().GetBool("insecure")
		conn, err := lers.Connect(ctx, lers.Options{
			BaseURL:  baseURL,
			Login:    login,
			Password: password,
			Insecure: insecure,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("connect to local server: %w", err)
		}
		cleanup = func() { _ = conn.Close(context.WithoutCancel(ctx)) }
		sources = append(sources, batch.NewLocalSource(conn))
	}

	if targetsPath, _ := cmd.Flags().GetString("targets"); targetsPath != "" {
		targets, err := config.LoadTargets(targetsPath)
		if err != nil {
			return nil, cleanup, err
		}
		for _, target := range targets {
			sources = append(sources, batch.NewRemoteSource(target, timeout))
		}
	}

	if len(sources) == 0 {
		return nil, cleanup, fmt.Errorf("no servers configured: pass --lers-url and/or --targets")
	}
	return sources, cleanup, nil
}

func saveHistory(ctx context.Context, path, template string, summary *batch.Summary) error {
	store, err := history.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	return store.Save(ctx, template, summary)
}

func printSummary(cmd *cobra.Command, summary *batch.Summary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "batch %s: %s\n", summary.BatchID, summary.State)
	fmt.Fprintf(out, "  total %d, succeeded %d, failed %d, skipped %d\n",
		summary.Total, summary.Succeeded, summary.Failed, summary.Skipped)
	if summary.ArchivePath != "" {
		fmt.Fprintf(out, "  archive: %s\n", summary.ArchivePath)
	}
	for _, msg := range summary.ExampleErrors {
		fmt.Fprintf(out, "  error: %s\n", msg)
	}
}
