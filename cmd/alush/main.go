// Command alush is the interactive/file-mode front end for the
// interpreter in package eval, plus a `serve -ssh` subcommand that
// hands the same evaluator to remote clients over SSH (SPEC_FULL.md
// §5). Its flag-handling and log-file setup follow the teacher's
// bin/server/main.go.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/buildkite/shellwords"
	goccy "github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alush-lang/alush"
	"github.com/alush-lang/alush/eval"
	"github.com/alush-lang/alush/heap"
	"github.com/alush-lang/alush/internal/audit"
	"github.com/alush-lang/alush/internal/stats"
	"github.com/alush-lang/alush/parser"
	"github.com/alush-lang/alush/server"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		os.Exit(runServe(os.Args[2:]))
	}
	os.Exit(runInterpreter(os.Args[1:]))
}

type cliConfig struct {
	strategy string
	json     bool
	audit    string
	stats    bool
}

func parseFlags(name string, argv []string) (cliConfig, []string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	cfg := cliConfig{}
	fs.StringVar(&cfg.strategy, "strategy", "default", "heap collection strategy: disabled, default, aggressive, checking")
	fs.BoolVar(&cfg.json, "json", false, "render the final result (or error) as JSON instead of wire-format text")
	fs.StringVar(&cfg.audit, "audit", "", "path to a SQLite audit log recording every top-level command")
	fs.BoolVar(&cfg.stats, "stats", false, "print a heap diagnostics table after the run")
	fs.Parse(argv)
	return cfg, fs.Args()
}

// shebangFlags inspects path's first line for a `#!interpreter -flags`
// shebang and, if present, splits the flag words out with
// github.com/buildkite/shellwords the same way a shell would split an
// exec argv (SPEC_FULL.md §3).
func shebangFlags(path string) []string {
	data, err := alush.ReadFile(path)
	if err != nil {
		return nil
	}
	_, shebangLine, had := parser.StripShebang(string(data))
	if !had {
		return nil
	}
	words, err := shellwords.Split(strings.TrimSpace(shebangLine))
	if err != nil || len(words) < 2 {
		return nil
	}
	return words[1:]
}

func runInterpreter(argv []string) int {
	cfg, rest := parseFlags("alush", argv)
	if len(rest) > 0 {
		if extra := shebangFlags(rest[0]); len(extra) > 0 {
			cfg, rest = parseFlags("alush", append(extra, argv...))
		}
	}

	strategy, err := heap.ParseStrategy(cfg.strategy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	var auditLog *audit.Log
	if cfg.audit != "" {
		auditLog, err = audit.Open(cfg.audit)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		defer auditLog.Close()
	}

	if len(rest) == 0 && isatty.IsTerminal(os.Stdin.Fd()) {
		return runREPL(strategy, auditLog)
	}
	return runFile(strategy, cfg, auditLog, rest)
}

func runFile(strategy heap.Strategy, cfg cliConfig, auditLog *audit.Log, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "alush: no script given and stdin is not a terminal")
		return 1
	}
	path := args[0]
	data, err := alush.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rest, _, _ := parser.StripShebang(string(data))
	cmds, err := parser.Parse(rest)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ev := eval.New(strategy)
	for i, arg := range args[1:] {
		binding, err := parser.ParseCommand(fmt.Sprintf("var arg%d %s", i+1, quoteArg(arg)))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		h, err := ev.EvalCommand(binding)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		ev.Heap().Unroot(h)
	}

	result, evalErr := ev.EvalCommands(cmds)
	var rendered string
	if evalErr == nil {
		rendered = eval.Render(ev, result)
		ev.Heap().Unroot(result)
	}

	if auditLog != nil {
		if err := auditLog.Record("local", path, rendered, evalErr); err != nil {
			fmt.Fprintln(os.Stderr, "audit:", err)
		}
	}

	if cfg.json {
		printJSON(rendered, evalErr)
	} else if evalErr != nil {
		fmt.Fprintln(os.Stderr, "error:", evalErr)
	} else {
		fmt.Println(rendered)
	}

	if cfg.stats {
		stats.Print(os.Stdout, ev.Heap())
	}

	if evalErr != nil {
		return 2
	}
	return 0
}

// quoteArg renders s as an alush string literal, single-quoted with an
// internal `'` doubled (the escaping quotedString in parser.go expects)
// so CLI args containing spaces or quotes survive the var-binding round
// trip in runFile.
func quoteArg(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type jsonResult struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func printJSON(rendered string, evalErr error) {
	out := jsonResult{Result: rendered}
	if evalErr != nil {
		out = jsonResult{Error: evalErr.Error()}
	}
	b, err := goccy.Marshal(out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Println(string(b))
}

func runREPL(strategy heap.Strategy, auditLog *audit.Log) int {
	ev := eval.New(strategy)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		for range sigCh {
			ev = eval.New(strategy)
			fmt.Println("\nheap reset")
		}
	}()

	reader := bufio.NewReader(os.Stdin)
	var pending strings.Builder

	for {
		if pending.Len() == 0 {
			fmt.Print("$ ")
		} else {
			fmt.Print("> ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return 0
		}

		if pending.Len() == 0 {
			switch strings.TrimSpace(line) {
			case ":stats":
				stats.Print(os.Stdout, ev.Heap())
				continue
			case ":quit":
				return 0
			case "":
				continue
			}
		}

		pending.WriteString(line)
		cmd, perr := parser.ParseCommand(pending.String())
		if perr == parser.ErrIncomplete {
			continue
		}
		src := pending.String()
		pending.Reset()
		if perr != nil {
			fmt.Fprintln(os.Stderr, "parse error:", perr)
			continue
		}

		result, evalErr := ev.EvalCommand(cmd)
		var rendered string
		if evalErr != nil {
			fmt.Fprintln(os.Stderr, "error:", evalErr)
		} else {
			rendered = eval.Render(ev, result)
			ev.Heap().Unroot(result)
			fmt.Println(rendered)
		}
		if auditLog != nil {
			if err := auditLog.Record("repl", strings.TrimSpace(src), rendered, evalErr); err != nil {
				fmt.Fprintln(os.Stderr, "audit:", err)
			}
		}
	}
}

func runServe(argv []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	sshAddr := fs.String("ssh", "127.0.0.1:2222", "where to listen for SSH connections")
	dir := fs.String("dir", filepath.Join(os.Getenv("HOME"), ".alush"), "where to save the host key and audit log")
	strategyFlag := fs.String("strategy", "default", "heap collection strategy for every session")
	auditFlag := fs.String("audit", "", "path to a SQLite audit log (defaults to <dir>/audit.db)")
	logFile := fs.String("logfile", "", "path to log file (default: stderr)")
	fs.Parse(argv)

	if *logFile != "" {
		// Rotated in place, unlike bin/server/main.go's bare append-only
		// -logfile, since this process is meant to run indefinitely.
		log.SetOutput(&lumberjack.Logger{
			Filename:   *logFile,
			MaxSize:    10,
			MaxBackups: 5,
			MaxAge:     28,
		})
	}

	strategy, err := heap.ParseStrategy(*strategyFlag)
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(*dir, 0700); err != nil {
		log.Fatal(err)
	}

	cfg := server.DefaultConfig()
	cfg.SSHAddr = *sshAddr
	cfg.PrivKeyPath = filepath.Join(*dir, "privKey")
	cfg.SSHPubKeyPath = filepath.Join(*dir, "sshPubKey")
	cfg.Strategy = strategy
	cfg.AuditPath = *auditFlag
	if cfg.AuditPath == "" {
		cfg.AuditPath = filepath.Join(*dir, "audit.db")
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := srv.Serve(ctx); err != nil {
		log.Fatal(err)
	}
	return 0
}
