package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status  NTStatus
		sev     Severity
		success bool
		warning bool
		failed  bool
	}{
		{StatusSuccess, SeveritySuccess, true, false, false},
		{StatusPending, SeveritySuccess, true, false, false},
		{StatusNotifyEnumDir, SeveritySuccess, true, false, false},
		{StatusBufferOverflow, SeverityWarning, false, true, false},
		{StatusNoMoreFiles, SeverityWarning, false, true, true},
		{StatusLogonFailure, SeverityError, false, false, true},
		{NTStatus(0x40000000), SeverityInformational, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			assert.Equal(t, tt.sev, tt.status.Severity())
			assert.Equal(t, tt.success, tt.status.IsSuccess())
			assert.Equal(t, tt.warning, tt.status.IsWarning())
			assert.Equal(t, tt.failed, tt.status.Failed())
		})
	}
}

func TestStatusFields(t *testing.T) {
	s := NTStatus(0xE0AB1234)
	assert.True(t, s.Customer())
	assert.Equal(t, uint16(0x0AB), s.Facility())
	assert.Equal(t, uint16(0x1234), s.Code())
}

func TestLookupStatusKnown(t *testing.T) {
	for _, code := range []NTStatus{StatusNoSuchFile, StatusObjectNameNotFound, StatusNoSuchDevice} {
		info := LookupStatus(code)
		assert.True(t, info.Known())
		assert.Equal(t, CategoryNotFound, info.Category)
		assert.Equal(t, "File not found", info.Description)
	}

	info := StatusAccessDenied.Info()
	assert.Equal(t, "STATUS_ACCESS_DENIED", info.Name)
	assert.Equal(t, CategoryAccessDenied, info.Category)
}

func TestLookupStatusUnknown(t *testing.T) {
	info := LookupStatus(0xDEADBEEF)
	assert.False(t, info.Known())
	assert.Equal(t, CategoryUnknown, info.Category)
	assert.Equal(t, "STATUS_0xDEADBEEF", info.Name)
	assert.Contains(t, info.Description, "0xDEADBEEF")
}

func TestCatalogEntriesComplete(t *testing.T) {
	cat := Catalog()
	assert.NotEmpty(t, cat)
	seen := make(map[NTStatus]bool)
	for _, info := range cat {
		assert.False(t, seen[info.Code], "duplicate %s", info.Name)
		seen[info.Code] = true
		assert.True(t, strings.HasPrefix(info.Name, "STATUS_"), "bad name %q", info.Name)
		assert.NotEmpty(t, info.Description, info.Name)
		assert.NotEqual(t, CategoryUnknown, info.Category, info.Name)
	}
}

func TestStatusCategoryString(t *testing.T) {
	assert.Equal(t, "access denied", CategoryAccessDenied.String())
	assert.Equal(t, "not found", CategoryNotFound.String())
}
