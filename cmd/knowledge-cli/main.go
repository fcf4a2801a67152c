package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/williamjung/voiceagent/internal/app"
	"github.com/williamjung/voiceagent/internal/config"
	logpkg "github.com/williamjung/voiceagent/internal/logger"
	knowledgeuc "github.com/williamjung/voiceagent/internal/usecase/knowledge"
	"github.com/williamjung/voiceagent/internal/version"
)

// retriever is the part of the knowledge service the CLI drives.
type retriever interface {
	Retrieve(ctx context.Context, query string) (knowledgeuc.Result, error)
}

var (
	promptColor = color.New(color.FgCyan, color.Bold)
	titleColor  = color.New(color.FgYellow)
	dimColor    = color.New(color.FgHiBlack)
	errColor    = color.New(color.FgRed)
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: config/<ENV>.yaml)")
	logLevel := flag.String("log-level", "", "log level for diagnostics (default: warn)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("knowledge-cli"))
		return
	}

	if err := run(*configPath, *logLevel, flag.Args()); err != nil {
		errColor.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, logLevel string, args []string) error {
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(config.GetEnv())
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewCLILogger(logLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	store, err := app.OpenStore(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	embedders := app.NewEmbedders(&cfg, logger)
	svc, err := app.NewKnowledge(&cfg, app.NewRepository(&cfg, store), embedders.Instrumented, logger)
	if err != nil {
		return err
	}

	// One-shot mode: query from arguments.
	if len(args) > 0 {
		query(ctx, os.Stdout, svc, strings.Join(args, " "))
		return nil
	}
	return repl(ctx, os.Stdin, os.Stdout, svc)
}

// repl reads one query per line until EOF or an exit command.
func repl(ctx context.Context, in io.Reader, out io.Writer, svc retriever) error {
	scanner := bufio.NewScanner(in)
	for {
		promptColor.Fprint(out, "query> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit", ":q":
			return nil
		}
		query(ctx, out, svc, line)
	}
}

func query(ctx context.Context, out io.Writer, svc retriever, q string) {
	res, err := svc.Retrieve(ctx, q)
	if err != nil {
		errColor.Fprintf(out, "%s%s\n", knowledgeuc.DefaultErrorPrefix, knowledgeuc.Category(err))
		dimColor.Fprintf(out, "  %v\n", err)
		return
	}
	if len(res.Documents) == 0 {
		fmt.Fprintln(out, knowledgeuc.DefaultNoResults)
		return
	}

	dimColor.Fprintf(out, "%d candidates, rerank=%s\n", res.Candidates, res.Rerank)
	for i, d := range res.Documents {
		titleColor.Fprintf(out, "%d. %s", i+1, d.DisplayTitle())
		dimColor.Fprintf(out, "  (%.3f)", d.Score)
		if d.URL != "" {
			dimColor.Fprintf(out, "  %s", d.URL)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, res.Context)
}
