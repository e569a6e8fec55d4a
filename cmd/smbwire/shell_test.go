package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", nil},
		{"ls", []string{"ls"}},
		{"get  a.txt   b.txt", []string{"get", "a.txt", "b.txt"}},
		{`cd "Program Files"`, []string{"cd", "Program Files"}},
		{`put 'it''s' x`, []string{"put", "its", "x"}},
		{`cat "say 'hi'"`, []string{"cat", "say 'hi'"}},
		{`mkdir ""`, []string{"mkdir", ""}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseArgs(tt.line), "line %q", tt.line)
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		cwd, arg, want string
	}{
		{"", "a", "a"},
		{"", "a/b", `a\b`},
		{`dir`, "file.txt", `dir\file.txt`},
		{`dir\sub`, "..", "dir"},
		{`dir\sub`, `\top`, "top"},
		{`dir`, "/", ""},
		{`dir`, `..\..\..`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolvePath(tt.cwd, tt.arg), "cwd %q arg %q", tt.cwd, tt.arg)
	}
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "0 B", formatSize(0))
	assert.Equal(t, "1023 B", formatSize(1023))
	assert.Equal(t, "1.0 KiB", formatSize(1024))
	assert.Equal(t, "1.5 MiB", formatSize(1536*1024))
}

func TestRegistryAliases(t *testing.T) {
	r := NewCommandRegistry()
	r.Register(&Command{Name: "rm", Aliases: []string{"del"}})
	r.Register(&Command{Name: "cat"})

	require.NotNil(t, r.Get("del"))
	assert.Equal(t, "rm", r.Get("del").Name)
	assert.Nil(t, r.Get("nope"))

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "cat", list[0].Name)
	assert.Equal(t, "rm", list[1].Name)
}

func TestExecuteCommandExit(t *testing.T) {
	ctx := context.Background()
	assert.True(t, executeCommand(ctx, "no-such-command", nil))
	assert.False(t, executeCommand(ctx, "quit", nil))
}

func TestFileCommandsNeedShare(t *testing.T) {
	currentTree = nil
	err := cmdLs(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}
