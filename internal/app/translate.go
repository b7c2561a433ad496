package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/babel/internal/cli"
	"horse.fit/babel/internal/config"
	"horse.fit/babel/internal/db"
	"horse.fit/babel/internal/language"
	"horse.fit/babel/internal/logging"
)

// runTranslate pushes one text through the full pipeline, for operators
// verifying accounts and provider reachability.
func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 3*time.Minute, "Command timeout")
	source := fs.String("source", "auto", "Source language (ISO 639-1, or auto)")
	target := fs.String("target", "en", "Target language (ISO 639-1, for example: en, ja)")
	asJSON := fs.Bool("json", false, "Print the full result as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "translate requires exactly one text argument")
		printTranslateUsage()
		return 2
	}

	text := strings.TrimSpace(fs.Arg(0))
	if text == "" {
		fmt.Fprintln(os.Stderr, "text must not be empty")
		return 2
	}

	sourceLang := normalizeLanguageFlag(*source)
	targetLang := normalizeLanguageFlag(*target)
	if targetLang == "" {
		fmt.Fprintln(os.Stderr, "--target must be a valid language code")
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	deps := buildPipeline(pool, cfg, logger)
	result, err := deps.Manager.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Translation failed: %v\n", err)
		return 1
	}

	if *asJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode result: %v\n", err)
			return 1
		}
		fmt.Println(string(encoded))
		return 0
	}

	fmt.Println(result.Text)
	return 0
}

func normalizeLanguageFlag(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" || value == "auto" {
		return value
	}
	normalized := language.NormalizeTag(value)
	if len(normalized) < 2 || len(normalized) > 7 {
		return ""
	}
	return normalized
}

func printTranslateUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  babel translate [flags] <text>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  babel translate --target en \"待翻译的文本\"")
	fmt.Fprintln(os.Stderr, "  babel translate --source zh --target ja --json \"文本\"")
}
