package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// pathCommands take a remote path as their first argument.
var pathCommands = []string{"ls", "cd", "cat", "get", "rm", "mkdir"}

func runShell(ctx context.Context) error {
	var history string
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, ".smbwire_history")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          buildPrompt(),
		HistoryFile:     history,
		AutoComplete:    newCompleter(ctx),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdin:           os.Stdin,
		Stdout:          os.Stdout,
		Stderr:          os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	for {
		rl.SetPrompt(buildPrompt())
		input, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		args := parseArgs(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		if !executeCommand(ctx, strings.ToLower(args[0]), args[1:]) {
			return nil
		}
	}
}

// newCompleter completes command names and, for path commands, entries of
// the current remote directory.
func newCompleter(ctx context.Context) *readline.PrefixCompleter {
	remote := readline.PcItemDynamic(func(line string) []string {
		return completePaths(ctx, line)
	})

	var items []readline.PrefixCompleterInterface
	for _, cmd := range commands.List() {
		names := append([]string{cmd.Name}, cmd.Aliases...)
		for _, name := range names {
			if contains(pathCommands, cmd.Name) {
				items = append(items, readline.PcItem(name, remote))
			} else {
				items = append(items, readline.PcItem(name))
			}
		}
	}
	return readline.NewPrefixCompleter(items...)
}

func completePaths(ctx context.Context, line string) []string {
	if currentTree == nil || currentTree.IsPipe() {
		return nil
	}
	dir := currentPath
	if fields := strings.Fields(line); len(fields) > 1 && !strings.HasSuffix(line, " ") {
		arg := strings.ReplaceAll(fields[len(fields)-1], "/", "\\")
		if i := strings.LastIndex(arg, "\\"); i >= 0 {
			dir = resolvePath(currentPath, arg[:i])
		}
	}

	entries, err := currentTree.ListDirectory(ctx, dir)
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name
		if e.IsDir {
			name += "\\"
		}
		names = append(names, name)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func buildPrompt() string {
	prompt := colorBold + "[smbwire]" + colorReset
	if targetHost != "" {
		prompt += " " + colorCyan + targetHost + colorReset
		if currentTree != nil {
			prompt += "\\" + currentTree.ShareName()
			if currentPath != "" {
				prompt += "\\" + currentPath
			}
		}
	}
	return prompt + "> "
}

// parseArgs splits line on spaces, honouring single and double quotes.
func parseArgs(line string) []string {
	var args []string
	var cur strings.Builder
	var quote rune
	inArg := false

	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inArg = true
		case r == ' ' || r == '\t':
			if inArg {
				args = append(args, cur.String())
				cur.Reset()
				inArg = false
			}
		default:
			cur.WriteRune(r)
			inArg = true
		}
	}
	if inArg {
		args = append(args, cur.String())
	}
	return args
}
