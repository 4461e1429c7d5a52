package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"gh-intel/internal/analyzer"
	"gh-intel/internal/config"
	"gh-intel/internal/domain"
	"gh-intel/internal/service"
	"gh-intel/internal/service/github"
	"gh-intel/pkg/logger"
)

func main() {
	var (
		owner    = flag.String("owner", "", "repository owner")
		repo     = flag.String("repo", "", "repository name")
		token    = flag.String("token", "", "GitHub personal access token (defaults to GITHUB_TOKEN)")
		topN     = flag.Int("top", 0, "number of referrers and paths to show (0 uses the configured default)")
		detailed = flag.Bool("detailed", false, "show the daily views and clones breakdown")
		out      = flag.String("out", "", "write the full report as JSON to this file")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewConsole(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if *token == "" {
		*token = cfg.GitHubToken
	}
	if *topN == 0 {
		*topN = cfg.DefaultTopN
	}

	if *owner == "" || *repo == "" {
		fmt.Fprintln(os.Stderr, "Usage: report -owner <owner> -repo <repo> [-token <token>] [-top <n>] [-detailed] [-out <file>]")
		os.Exit(2)
	}
	if *token == "" {
		fmt.Fprintln(os.Stderr, "A GitHub token is required (use -token or set GITHUB_TOKEN)")
		os.Exit(2)
	}

	fetcher, err := github.NewService(*token, cfg.GitHubBaseURL, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize GitHub client")
	}

	trafficAnalyzer := analyzer.New(analyzer.WithTrendThreshold(cfg.TrendThreshold))
	reportService := service.NewTrafficReportService(fetcher, trafficAnalyzer, nil, log, cfg.DefaultTopN)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	report, err := reportService.BuildReport(ctx, *owner, *repo, service.ReportOptions{
		TopN:          *topN,
		IncludeSeries: true,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build traffic report")
	}

	render(report, *detailed)

	if *out != "" {
		if err := writeJSON(*out, report); err != nil {
			log.WithError(err).Fatal("Failed to write JSON report")
		}
		fmt.Printf("\nReport saved to %s\n", *out)
	}
}

func render(report *domain.TrafficReport, detailed bool) {
	if repo := report.Repository; repo != nil {
		fmt.Printf("Repository: %s\n", repo.FullName)
		if repo.Description != "" {
			fmt.Printf("Description: %s\n", repo.Description)
		}
		fmt.Printf("Stars: %d | Forks: %d | Watchers: %d\n", repo.Stars, repo.Forks, repo.Watchers)
	}

	fmt.Printf("\nTraffic window: %s to %s (%d days)\n",
		report.Window.Since.Format("2006-01-02"),
		report.Window.Until.Format("2006-01-02"),
		report.Window.Days)

	fmt.Println("\nSummary:")
	fmt.Println(renderSummary(report))

	if len(report.TopReferrers) > 0 {
		fmt.Println("\nTop referrers:")
		fmt.Println(renderRanking(report.TopReferrers, "Referrer"))
	}

	if len(report.TopPaths) > 0 {
		fmt.Println("\nPopular paths:")
		fmt.Println(renderRanking(report.TopPaths, "Path"))
	}

	if detailed {
		fmt.Println("\nDaily views:")
		fmt.Println(renderSeries(report.ViewSeries))
		fmt.Println("\nDaily clones:")
		fmt.Println(renderSeries(report.CloneSeries))
	}
}

func renderSummary(report *domain.TrafficReport) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"", "Total", "Uniques", "Avg/Day", "Peak Day", "Peak", "Trend"})
	tbl.AppendRow(summaryRow("Views", report.Views))
	tbl.AppendRow(summaryRow("Clones", report.Clones))
	return tbl.Render()
}

func summaryRow(label string, s domain.TrafficSummary) table.Row {
	peakDay := "-"
	if !s.PeakDay.IsZero() {
		peakDay = s.PeakDay.Format("2006-01-02")
	}
	uniques := fmt.Sprintf("%d", s.TotalUniques)
	if s.UniquesEstimated {
		uniques += " (est)"
	}
	return table.Row{label, s.TotalCount, uniques, fmt.Sprintf("%.1f", s.AverageDailyCount), peakDay, s.PeakValue, string(s.Trend)}
}

func renderRanking(entries domain.RankedList, label string) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"#", label, "Count", "Uniques"})
	for i, entry := range entries {
		tbl.AppendRow(table.Row{i + 1, entry.Label, entry.Count, entry.Uniques})
	}
	return tbl.Render()
}

func renderSeries(days []domain.DailyCount) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Date", "Count", "Uniques"})
	var total, uniques int64
	for _, day := range days {
		tbl.AppendRow(table.Row{day.Date.Format("2006-01-02"), day.Count, day.Uniques})
		total += day.Count
		uniques += day.Uniques
	}
	tbl.AppendFooter(table.Row{"Total", total, uniques})
	return tbl.Render()
}

func writeJSON(path string, report *domain.TrafficReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
