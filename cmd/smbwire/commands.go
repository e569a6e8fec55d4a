package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ineffectivecoder/smbwire/pkg/smb"
)

// Command is one shell command.
type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string
	Handler     func(ctx context.Context, args []string) error
}

// CommandRegistry maps names and aliases to commands.
type CommandRegistry struct {
	commands map[string]*Command
}

var commands = NewCommandRegistry()

// NewCommandRegistry creates an empty registry.
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command)}
}

// Register adds cmd under its name and every alias.
func (r *CommandRegistry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.commands[alias] = cmd
	}
}

// Get looks a command up by name or alias.
func (r *CommandRegistry) Get(name string) *Command {
	return r.commands[name]
}

// List returns each command once, sorted by name.
func (r *CommandRegistry) List() []*Command {
	seen := make(map[string]bool)
	var list []*Command
	for _, cmd := range r.commands {
		if !seen[cmd.Name] {
			seen[cmd.Name] = true
			list = append(list, cmd)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// executeCommand runs name and reports whether the shell should keep going.
func executeCommand(ctx context.Context, name string, args []string) bool {
	cmd := commands.Get(name)
	if cmd == nil {
		error_("Unknown command: %s (type 'help' for commands)", name)
		return true
	}
	if err := cmd.Handler(ctx, args); err != nil {
		error_("%v", err)
	}
	return cmd.Name != "exit"
}

func init() {
	registerCoreCommands()
	registerShareCommands()
	registerFileCommands()
}

func registerCoreCommands() {
	commands.Register(&Command{
		Name:        "help",
		Aliases:     []string{"?", "h"},
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     cmdHelp,
	})
	commands.Register(&Command{
		Name:        "exit",
		Aliases:     []string{"quit", "q"},
		Description: "Exit the shell",
		Handler:     cmdExit,
	})
	commands.Register(&Command{
		Name:        "info",
		Aliases:     []string{"whoami"},
		Description: "Show connection and session info",
		Handler:     cmdInfo,
	})
	commands.Register(&Command{
		Name:        "echo",
		Aliases:     []string{"ping"},
		Description: "Send an ECHO and time the round trip",
		Handler:     cmdEcho,
	})
}

func cmdHelp(ctx context.Context, args []string) error {
	if len(args) > 0 {
		cmd := commands.Get(args[0])
		if cmd == nil {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Printf("\n%s%s%s - %s\n", colorBold, cmd.Name, colorReset, cmd.Description)
		if cmd.Usage != "" {
			fmt.Printf("Usage: %s\n", cmd.Usage)
		}
		if len(cmd.Aliases) > 0 {
			fmt.Printf("Aliases: %s\n", strings.Join(cmd.Aliases, ", "))
		}
		fmt.Println()
		return nil
	}

	fmt.Println()
	for _, cmd := range commands.List() {
		fmt.Printf("  %-10s %s\n", cmd.Name, cmd.Description)
	}
	fmt.Println()
	return nil
}

func cmdExit(ctx context.Context, args []string) error {
	if currentTree != nil {
		currentTree.Disconnect(ctx)
		currentTree = nil
	}
	if session != nil {
		session.Logoff(ctx)
	}
	info_("Goodbye!")
	return nil
}

func cmdInfo(ctx context.Context, args []string) error {
	if client == nil {
		return fmt.Errorf("not connected")
	}

	fmt.Printf("\n%sConnection:%s\n", colorBold, colorReset)
	fmt.Printf("  Target:       %s\n", targetHost)
	fmt.Printf("  Dialect:      %s\n", client.DialectName())
	fmt.Printf("  State:        %s\n", client.State())
	if conn := client.Conn(); conn != nil {
		fmt.Printf("  Credits:      %d\n", conn.Credits())
		fmt.Printf("  Next msg id:  %d\n", conn.NextMessageID())
	}

	if session != nil {
		fmt.Printf("\n%sSession:%s\n", colorBold, colorReset)
		fmt.Printf("  User:         %s\n", currentUser)
		fmt.Printf("  Session ID:   0x%016X\n", session.SessionID())
		fmt.Printf("  Guest:        %v\n", session.IsGuest())
		fmt.Printf("  Max Read:     %d bytes\n", session.MaxReadSize())
		fmt.Printf("  Max Write:    %d bytes\n", session.MaxWriteSize())
	}

	if currentTree != nil {
		fmt.Printf("\n%sShare:%s\n", colorBold, colorReset)
		fmt.Printf("  Name:         %s\n", currentTree.ShareName())
		fmt.Printf("  Type:         %s\n", currentTree.ShareType())
		fmt.Printf("  Tree ID:      %d\n", currentTree.TreeID())
	}
	fmt.Println()
	return nil
}

func cmdEcho(ctx context.Context, args []string) error {
	if client == nil {
		return fmt.Errorf("not connected")
	}
	start := time.Now()
	if err := client.Echo(ctx); err != nil {
		return fmt.Errorf("echo failed: %w", err)
	}
	success_("Echo reply in %s", time.Since(start).Round(time.Microsecond))
	return nil
}

func registerShareCommands() {
	commands.Register(&Command{
		Name:        "use",
		Aliases:     []string{"connect"},
		Description: "Connect to a share",
		Usage:       "use <sharename>",
		Handler:     cmdUse,
	})
	commands.Register(&Command{
		Name:        "disconnect",
		Aliases:     []string{"disc"},
		Description: "Disconnect from the current share",
		Handler:     cmdDisconnect,
	})
}

func cmdUse(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: use <sharename>")
	}
	if session == nil {
		return fmt.Errorf("not connected")
	}

	if currentTree != nil {
		currentTree.Disconnect(ctx)
		currentTree = nil
		currentPath = ""
	}

	info_("Connecting to \\\\%s\\%s...", targetHost, args[0])
	tree, err := client.TreeConnect(ctx, args[0])
	if err != nil {
		return describe("connect", err)
	}
	currentTree = tree
	currentPath = ""
	success_("Connected to %s (%s share)", args[0], tree.ShareType())
	return nil
}

func cmdDisconnect(ctx context.Context, args []string) error {
	if currentTree == nil {
		return fmt.Errorf("not connected to any share")
	}
	name := currentTree.ShareName()
	err := currentTree.Disconnect(ctx)
	currentTree = nil
	currentPath = ""
	if err != nil {
		return describe("disconnect", err)
	}
	success_("Disconnected from %s", name)
	return nil
}

// describe prefixes err with op and, for protocol failures, the NTSTATUS
// name the server returned.
func describe(op string, err error) error {
	var se *smb.StatusError
	if errors.As(err, &se) {
		return fmt.Errorf("%s failed: %s (%s)", op, se.Info.Name, se.Info.Description)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
