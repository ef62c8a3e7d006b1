package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/peterh/liner"

	pain "github.com/FG-SirVY/deerhacks-2022"
)

const (
	appName     = "pain"
	historyFile = ".pain_history"
	promptMain  = ">>> "
	promptCont  = "... "
)

var banner = fmt.Sprintf("pain %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :quit to exit.", pain.Version)

func red(s string) string  { return "\x1b[31m" + s + "\x1b[0m" }
func blue(s string) string { return "\x1b[94m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(pain.Version)
		return
	case "-h", "--help", "help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`pain %s

Usage:
  %s run [--watch] <file.pain>    Run a script (--watch re-runs on change).
  %s repl                         Start the REPL.
  %s version                     Print the version

`, pain.Version, appName, appName, appName)
}

// -----------------------------------------------------------------------------
// run
// -----------------------------------------------------------------------------

func cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	watch := fs.Bool("watch", false, "re-run the script whenever the file changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "usage: %s run [--watch] <file.pain>\n", appName)
		return 2
	}
	file := fs.Arg(0)

	if *watch {
		return runWatch(file)
	}
	return runOnce(file)
}

func runOnce(file string) int {
	ip := pain.NewInterpreter()
	if _, err := ip.RunFile(file); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		return 1
	}
	return 0
}

// runWatch re-runs the script on every write to it. Each run starts from a
// fresh interpreter so state never leaks between runs. The watcher sits on
// the directory because editors typically replace the file on save.
func runWatch(file string) int {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot start watcher: %v\n", appName, err)
		return 1
	}
	defer w.Close()

	abs, err := filepath.Abs(file)
	if err != nil {
		abs = file
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot watch %s: %v\n", appName, filepath.Dir(abs), err)
		return 1
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	rerun := func() {
		fmt.Fprintf(os.Stderr, "-- %s %s\n", appName, file)
		runOnce(file)
	}
	rerun()

	// Editors often emit a burst of events per save; a short quiet period
	// collapses the burst into one re-run.
	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return 0
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				pending = time.After(100 * time.Millisecond)
			}
		case <-pending:
			pending = nil
			rerun()
		case werr, ok := <-w.Errors:
			if !ok {
				return 0
			}
			fmt.Fprintf(os.Stderr, "%s: watch error: %v\n", appName, werr)
		case <-sigc:
			return 0
		}
	}
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	ip := pain.NewInterpreter()

	for {
		code, ok := readByParseProbe(ln, promptMain, promptCont)
		if !ok {
			fmt.Println()
			break
		}

		trimmed := strings.TrimSpace(code)
		if strings.HasPrefix(trimmed, ":") {
			if strings.ToLower(trimmed) == ":quit" {
				return 0
			}
			fmt.Printf("unknown command. Type :quit to exit.\n")
			continue
		}
		if trimmed == "" {
			continue
		}

		v, err := ip.RunPersistent(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, red(pain.WrapErrorWithSource(err, code).Error()))
			continue
		}
		fmt.Println(blue(pain.FormatValue(v, true)))
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	}

	return 0
}

// readByParseProbe collects lines until the buffer parses or fails with a
// non-recoverable error, so multi-line blocks keep prompting with promptCont.
func readByParseProbe(ln *liner.State, prompt, cont string) (string, bool) {
	var b strings.Builder

	for {
		var line string
		var err error
		if b.Len() == 0 {
			line, err = ln.Prompt(prompt)
		} else {
			line, err = ln.Prompt(cont)
		}
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		_, perr := pain.ParseSExpr(src)
		if perr == nil {
			return src, true
		}
		if pain.IsIncomplete(perr) {
			continue
		}
		return src, true
	}
}
