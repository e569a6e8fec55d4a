package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProfile = `
[Default]
user = alice
domain = CORP
verbose = true

[files.corp.local]
share = data
port = 1445
user = bob
`

func writeProfile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "smbwire.ini")
	require.NoError(t, os.WriteFile(p, []byte(testProfile), 0o600))
	return p
}

func TestLoadProfileDefaultSection(t *testing.T) {
	p, err := loadProfile(writeProfile(t), "other.host")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.User)
	assert.Equal(t, "CORP", p.Domain)
	assert.True(t, p.Verbose)
	assert.Empty(t, p.Share)
	assert.Zero(t, p.Port)
}

func TestLoadProfileTargetSectionOverrides(t *testing.T) {
	p, err := loadProfile(writeProfile(t), "files.corp.local")
	require.NoError(t, err)
	assert.Equal(t, "files.corp.local", p.Target)
	assert.Equal(t, "bob", p.User)
	assert.Equal(t, "CORP", p.Domain)
	assert.Equal(t, "data", p.Share)
	assert.Equal(t, 1445, p.Port)
}

func TestLoadProfileMissingFile(t *testing.T) {
	p, err := loadProfile(filepath.Join(t.TempDir(), "absent.ini"), "host")
	require.NoError(t, err)
	assert.Equal(t, profile{}, p)
}

func TestMergeFlagsWin(t *testing.T) {
	file := profile{User: "alice", Domain: "CORP", Share: "data", Port: 1445}
	got := file.merge(profile{User: "carol", Target: "h"})
	assert.Equal(t, "carol", got.User)
	assert.Equal(t, "CORP", got.Domain)
	assert.Equal(t, "h", got.Target)
	assert.Equal(t, 1445, got.Port)

	assert.Equal(t, 445, profile{}.merge(profile{}).Port)
}
