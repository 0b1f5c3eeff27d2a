package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func indexCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	coord, _, err := openIndex(ctx, cfg)
	if err != nil {
		return err
	}
	defer coord.Shutdown()

	if c.Bool("full") {
		summary, err := coord.FullRebuild(ctx)
		if err != nil {
			return err
		}
		return printSummary(c, summary.Files, summary.Chunks, summary.Elapsed.String())
	}

	// Init already reconciled; report the resulting state.
	stats := coord.Stats()
	return printSummary(c, stats.Files, stats.Chunks, "")
}

func printSummary(c *cli.Context, files, chunks int, elapsed string) error {
	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"files":  files,
			"chunks": chunks,
		})
	}
	if elapsed != "" {
		fmt.Printf("Indexed %d files (%d lines) in %s\n", files, chunks, elapsed)
	} else {
		fmt.Printf("Index up to date: %d files, %d lines\n", files, chunks)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return fmt.Errorf("usage: prism search <query>")
	}

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	coord, engine, err := openIndex(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer coord.Shutdown()

	results, err := engine.Search(query, c.Int("limit"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		if suggestions := engine.Suggest(query); len(suggestions) > 0 {
			fmt.Printf("Did you mean: %v\n", suggestions)
		}
		return nil
	}

	for _, r := range results {
		fmt.Printf("%s:%d  %s  (%.2f)\n", r.Path, r.Line, r.Text, r.Score)
	}
	return nil
}

func usageCommand(c *cli.Context) error {
	symbol := c.Args().First()
	if symbol == "" {
		return fmt.Errorf("usage: prism usage <symbol>")
	}

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	coord, engine, err := openIndex(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer coord.Shutdown()

	usage, err := engine.ExplainUsage(symbol, c.Int("limit"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(usage)
	}

	if usage.Definition != nil {
		fmt.Printf("Definition: %s:%d  %s\n", usage.Definition.Path, usage.Definition.Line, usage.Definition.Text)
	} else {
		fmt.Println("Definition: not found")
	}
	for _, u := range usage.Usages {
		fmt.Printf("  %s:%d  %s\n", u.Path, u.Line, u.Text)
	}
	return nil
}

func fileCommand(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("usage: prism file <path>")
	}

	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	coord, _, err := openIndex(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer coord.Shutdown()

	lines, err := coord.GetFileContext(path)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(lines)
	}

	for _, l := range lines {
		fmt.Printf("%6d  %s\n", l.Number, l.Text)
	}
	return nil
}

func statsCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}

	coord, engine, err := openIndex(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer coord.Shutdown()

	stats := coord.Stats()

	if c.Bool("json") {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"index": stats,
			"cache": engine.CacheStats(),
		})
	}

	fmt.Printf("Root:      %s\n", cfg.Project.Root)
	fmt.Printf("Files:     %d\n", stats.Files)
	fmt.Printf("Lines:     %d\n", stats.Chunks)
	fmt.Printf("Terms:     %d\n", stats.Terms)
	fmt.Printf("Indexed:   %s\n", stats.IndexedAt.Format("2006-01-02 15:04:05"))
	if stats.AbsorbedErrors > 0 {
		fmt.Printf("Errors:    %d (absorbed)\n", stats.AbsorbedErrors)
	}
	return nil
}
