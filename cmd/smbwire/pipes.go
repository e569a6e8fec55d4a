package main

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/ineffectivecoder/smbwire/pkg/pipe"
)

func init() {
	commands.Register(&Command{
		Name:        "pipes",
		Description: "Probe named pipes on the IPC$ share",
		Usage:       "pipes [name...]",
		Handler:     cmdPipes,
	})
	commands.Register(&Command{
		Name:        "transact",
		Description: "Send hex bytes to a named pipe and print the reply",
		Usage:       "transact <pipe> <hex>",
		Handler:     cmdTransact,
	})
}

func cmdPipes(ctx context.Context, args []string) error {
	if currentTree == nil || !currentTree.IsPipe() {
		return fmt.Errorf("connect to IPC$ first (use IPC$)")
	}

	fmt.Println()
	found := 0
	for _, st := range pipe.Probe(ctx, currentTree, args) {
		color := colorRed
		switch st.Result {
		case pipe.Available:
			color = colorGreen
			found++
		case pipe.AccessDenied:
			color = colorYellow
		}
		fmt.Printf("  %-12s %s%s%s\n", st.Name, color, st.Result, colorReset)
		if st.Result == pipe.Failed {
			debug_("%s: %v", st.Name, st.Err)
		}
	}
	fmt.Println()
	success_("%d pipe(s) available", found)
	return nil
}

func cmdTransact(ctx context.Context, args []string) error {
	if currentTree == nil || !currentTree.IsPipe() {
		return fmt.Errorf("connect to IPC$ first (use IPC$)")
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: transact <pipe> <hex>")
	}
	req, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("bad hex: %w", err)
	}

	p, err := pipe.Open(ctx, currentTree, args[0])
	if err != nil {
		return describe("open", err)
	}
	defer p.Close()

	resp, err := p.Transact(ctx, req)
	if err != nil {
		return describe("transact", err)
	}
	fmt.Print(hex.Dump(resp))
	return nil
}
