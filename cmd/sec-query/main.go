package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/tensorlakeai/mother-duck/internal/common"
	"github.com/tensorlakeai/mother-duck/internal/export"
	"github.com/tensorlakeai/mother-duck/internal/queries"
	repo "github.com/tensorlakeai/mother-duck/internal/repository"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	xlsxOut := flag.String("xlsx", "", "also write every query to this XLSX file")
	flag.Usage = func() {
		printError("usage: sec-query [flags] [index|name]\n\nqueries:\n")
		for i, n := range queries.Names() {
			printError("  %d  %s\n", i, n)
		}
		printError("\nflags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	// Query output goes to stdout; logs stay on stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	name, err := selectQuery(flag.Arg(0))
	if err != nil {
		printError("Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := common.LoadConfig()
	dbResult, err := repo.InitDatabase(ctx, cfg, false, logger)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer dbResult.Cleanup()

	runner := queries.NewRunner(dbResult.DB, logger)
	res, err := runner.Run(ctx, name)
	if err != nil {
		printError("Error: query %s: %v\n", name, err)
		os.Exit(1)
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		printError("Error: encode results: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if *xlsxOut != "" {
		b, err := export.NewService(runner, logger).ExportXLSX(ctx)
		if err != nil {
			printError("Error: export: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*xlsxOut, b, 0644); err != nil {
			printError("Error: write %s: %v\n", *xlsxOut, err)
			os.Exit(1)
		}
		printError("wrote %s\n", *xlsxOut)
	}
}

// selectQuery accepts a positional index or a query name; empty picks the default.
func selectQuery(arg string) (queries.Name, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return queries.ByIndex(i)
	}
	return queries.ParseName(arg)
}
