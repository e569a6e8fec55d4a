package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/ineffectivecoder/smbwire/pkg/smb"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

func registerFileCommands() {
	commands.Register(&Command{
		Name:        "ls",
		Aliases:     []string{"dir"},
		Description: "List directory contents",
		Usage:       "ls [path]",
		Handler:     cmdLs,
	})
	commands.Register(&Command{
		Name:        "cd",
		Description: "Change directory",
		Usage:       "cd <path>",
		Handler:     cmdCd,
	})
	commands.Register(&Command{
		Name:        "pwd",
		Description: "Print working directory",
		Handler:     cmdPwd,
	})
	commands.Register(&Command{
		Name:        "cat",
		Aliases:     []string{"type"},
		Description: "Display file contents",
		Usage:       "cat <file>",
		Handler:     cmdCat,
	})
	commands.Register(&Command{
		Name:        "get",
		Aliases:     []string{"download"},
		Description: "Download a file",
		Usage:       "get <remote> [local]",
		Handler:     cmdGet,
	})
	commands.Register(&Command{
		Name:        "put",
		Aliases:     []string{"upload"},
		Description: "Upload a file",
		Usage:       "put <local> [remote]",
		Handler:     cmdPut,
	})
	commands.Register(&Command{
		Name:        "mkdir",
		Aliases:     []string{"md"},
		Description: "Create a directory",
		Usage:       "mkdir <path>",
		Handler:     cmdMkdir,
	})
	commands.Register(&Command{
		Name:        "rm",
		Aliases:     []string{"del", "rmdir"},
		Description: "Delete a file or empty directory",
		Usage:       "rm <path>",
		Handler:     cmdRm,
	})
}

// diskTree returns the current tree if file commands can run on it.
func diskTree() (*smb.Tree, error) {
	if currentTree == nil {
		return nil, fmt.Errorf("not connected to a share (use 'use <share>' first)")
	}
	if currentTree.IsPipe() {
		return nil, fmt.Errorf("%s is an IPC share", currentTree.ShareName())
	}
	return currentTree, nil
}

// resolvePath joins p onto the working directory of the share. Both / and
// \ separate components; the result uses \ and has no leading separator.
func resolvePath(cwd, p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if !strings.HasPrefix(p, "/") {
		p = strings.ReplaceAll(cwd, "\\", "/") + "/" + p
	}
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	return strings.ReplaceAll(p, "/", "\\")
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func cmdLs(ctx context.Context, args []string) error {
	tree, err := diskTree()
	if err != nil {
		return err
	}
	dir := currentPath
	if len(args) > 0 {
		dir = resolvePath(currentPath, args[0])
	}

	files, err := tree.ListDirectory(ctx, dir)
	if err != nil {
		return describe("list", err)
	}

	fmt.Println()
	for _, f := range files {
		kind, name := "    ", f.Name
		if f.IsDir {
			kind = colorBlue + "DIR " + colorReset
			name = colorBlue + name + "/" + colorReset
		}
		fmt.Printf("  %s %10s  %s  %s\n", kind, formatSize(f.Size),
			f.LastWriteTime.Local().Format("2006-01-02 15:04"), name)
	}
	fmt.Printf("\n  %d item(s)\n\n", len(files))
	return nil
}

func cmdCd(ctx context.Context, args []string) error {
	tree, err := diskTree()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		currentPath = ""
		return nil
	}

	target := resolvePath(currentPath, args[0])
	if target != "" {
		fi, err := tree.Stat(ctx, target)
		if err != nil {
			return describe("cd", err)
		}
		if !fi.IsDir {
			return fmt.Errorf("%s is not a directory", target)
		}
	}
	currentPath = target
	return nil
}

func cmdPwd(ctx context.Context, args []string) error {
	if currentTree == nil {
		return fmt.Errorf("not connected to a share")
	}
	p := "\\\\" + targetHost + "\\" + currentTree.ShareName()
	if currentPath != "" {
		p += "\\" + currentPath
	}
	fmt.Println(p)
	return nil
}

func cmdCat(ctx context.Context, args []string) error {
	tree, err := diskTree()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: cat <file>")
	}

	f, err := tree.OpenFile(ctx, resolvePath(currentPath, args[0]), types.GenericRead, types.FileOpen)
	if err != nil {
		return describe("open", err)
	}
	defer f.CloseContext(ctx)

	if _, err := io.Copy(os.Stdout, f); err != nil {
		return describe("read", err)
	}
	fmt.Println()
	return nil
}

func cmdGet(ctx context.Context, args []string) error {
	tree, err := diskTree()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: get <remote> [local]")
	}

	remote := resolvePath(currentPath, args[0])
	local := remote[strings.LastIndex(remote, "\\")+1:]
	if len(args) > 1 {
		local = args[1]
	}
	info_("Downloading %s -> %s", remote, local)

	f, err := tree.OpenFile(ctx, remote, types.GenericRead, types.FileOpen)
	if err != nil {
		return describe("open", err)
	}
	defer f.CloseContext(ctx)

	out, err := os.Create(local)
	if err != nil {
		return err
	}
	n, err := io.Copy(out, f)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return describe("download", err)
	}
	success_("Downloaded %s (%s)", local, formatSize(n))
	return nil
}

func cmdPut(ctx context.Context, args []string) error {
	tree, err := diskTree()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: put <local> [remote]")
	}

	local := args[0]
	remote := local[strings.LastIndexAny(local, "/\\")+1:]
	if len(args) > 1 {
		remote = args[1]
	}
	remote = resolvePath(currentPath, remote)
	info_("Uploading %s -> %s", local, remote)

	in, err := os.Open(local)
	if err != nil {
		return err
	}
	defer in.Close()

	f, err := tree.OpenFile(ctx, remote, types.GenericRead|types.GenericWrite, types.FileOverwriteIf)
	if err != nil {
		return describe("create", err)
	}
	n, err := io.Copy(f, in)
	if cerr := f.CloseContext(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return describe("upload", err)
	}
	success_("Uploaded %s (%s)", remote, formatSize(n))
	return nil
}

func cmdMkdir(ctx context.Context, args []string) error {
	tree, err := diskTree()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: mkdir <path>")
	}
	p := resolvePath(currentPath, args[0])
	if err := tree.Mkdir(ctx, p); err != nil {
		if errors.Is(err, smb.ErrAlreadyExists) {
			return fmt.Errorf("%s already exists", p)
		}
		return describe("mkdir", err)
	}
	success_("Created directory: %s", p)
	return nil
}

func cmdRm(ctx context.Context, args []string) error {
	tree, err := diskTree()
	if err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: rm <path>")
	}
	p := resolvePath(currentPath, args[0])
	fi, err := tree.Stat(ctx, p)
	if err != nil {
		return describe("stat", err)
	}
	if err := tree.Delete(ctx, p, fi.IsDir); err != nil {
		return describe("delete", err)
	}
	success_("Deleted: %s", p)
	return nil
}
