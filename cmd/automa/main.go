package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fsnotify/fsnotify"
	"github.com/mattn/go-isatty"

	"github.com/funvibe/automa/internal/config"
	"github.com/funvibe/automa/internal/storage"
	"github.com/funvibe/automa/pkg/script"
)

func main() {
	var (
		expr       = flag.String("e", "", "evaluate the given script text and exit")
		configPath = flag.String("config", "", "config file (default ~/.automa.yaml)")
		dbPath     = flag.String("db", "", "SQLite file for persistent globals (overrides config)")
		watch      = flag.Bool("watch", false, "keep running, re-run the script file whenever it changes")
		trace      = flag.Bool("trace", false, "trace thread execution on stderr")
	)
	flag.Parse()

	path := *configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".automa.yaml")
		}
	}
	limits, err := script.LoadLimits(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading config %s: %s\n", path, err)
		os.Exit(1)
	}

	opts := []script.Option{script.WithLimits(limits)}
	if limits.Latitude != 0 || limits.Longitude != 0 {
		opts = append(opts, script.WithGeoLocation(limits.Latitude, limits.Longitude))
	}
	if *trace {
		opts = append(opts, script.WithTrace(), script.WithOutput(os.Stderr))
	}
	db := *dbPath
	if db == "" {
		db = limits.GlobalsDB
	}
	if db != "" {
		store, err := storage.Open(db)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening globals db %s: %s\n", db, err)
			os.Exit(1)
		}
		defer store.Close()
		opts = append(opts, script.WithStore(store))
	}

	rt, err := script.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
	defer rt.Stop()

	switch {
	case *expr != "":
		os.Exit(runText(rt, "commandline", *expr))
	case flag.NArg() >= 1:
		file := flag.Arg(0)
		if !isSourceFile(file) {
			fmt.Fprintf(os.Stderr, "Warning: %s has no recognized script extension (%s)\n",
				file, strings.Join(config.SourceFileExtensions, ", "))
		}
		if *watch {
			if err := watchAndRun(rt, file); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
			return
		}
		text, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading script: %s\n", err)
			os.Exit(1)
		}
		os.Exit(runText(rt, filepath.Base(file), string(text)))
	case isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()):
		runREPL(rt)
	default:
		text, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading stdin: %s\n", err)
			os.Exit(1)
		}
		os.Exit(runText(rt, "stdin", string(text)))
	}
}

// isSourceFile checks if a file has a recognized source extension
func isSourceFile(path string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// runText runs one script to completion and prints its result,
// returning a process exit code.
func runText(rt *script.Runtime, name, text string) int {
	src := rt.NewSource(name)
	src.SetSource(text)
	v := runAndWait(src)
	if v.IsError() {
		fmt.Fprintf(os.Stderr, "%s\n", v.Str())
		return 1
	}
	fmt.Println(v.Str())
	return 0
}

// runAndWait lets the script suspend on timers etc. and blocks until it
// is done, unlike the synchronous evaluation used for expressions.
func runAndWait(src *script.Source) script.Value {
	done := make(chan script.Value, 1)
	src.Run(script.ScriptBody|script.StopRunning, func(v script.Value) { done <- v })
	return <-done
}

// watchAndRun runs the file now and on every change, pre-empting a
// still-running previous version.
func watchAndRun(rt *script.Runtime, file string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	// watch the directory: editors replace files, which drops a watch
	// placed on the file itself
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	src := rt.NewSource(filepath.Base(abs))
	run := func() {
		text, err := os.ReadFile(abs)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading script: %s\n", err)
			return
		}
		if !src.SetSource(string(text)) {
			return // unchanged
		}
		src.Run(script.ScriptBody|script.StopRunning, func(v script.Value) {
			if v.IsError() {
				fmt.Fprintf(os.Stderr, "%s: %s\n", file, v.Str())
				return
			}
			fmt.Printf("%s: %s\n", file, v.Str())
		})
	}
	run()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name == abs && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				run()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %s\n", err)
		}
	}
}

func runREPL(rt *script.Runtime) {
	fmt.Println("automa interactive interpreter")
	fmt.Println("Type a script line to run it, 'quit' to exit")
	src := rt.NewSource("repl")
	homeDir, _ := os.UserHomeDir()
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          config.ReplPrompt,
		HistoryFile:     filepath.Join(homeDir, config.ReplHistoryFile),
		HistoryLimit:    1000,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		fmt.Printf("Failed to create readline instance, falling back to basic input: %v\n", err)
		runBasicREPL(src)
		return
	}
	defer func() {
		_ = rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if src.Evaluating() {
					src.Abort()
					continue
				}
				if len(line) == 0 {
					fmt.Println("Use 'quit' or 'exit' to exit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !replLine(src, line) {
			return
		}
	}
}

func runBasicREPL(src *script.Source) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(config.ReplPrompt)
		if !scanner.Scan() {
			return
		}
		if !replLine(src, scanner.Text()) {
			return
		}
	}
}

func replLine(src *script.Source, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if line == "quit" || line == "exit" {
		return false
	}
	src.SetSource(line)
	v := runAndWait(src)
	if v.IsError() {
		fmt.Printf("error: %s\n", v.ErrorMessage())
		return true
	}
	fmt.Println(v.Str())
	return true
}
