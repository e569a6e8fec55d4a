package pipe

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ineffectivecoder/smbwire/pkg/smb"
	"github.com/ineffectivecoder/smbwire/pkg/smb/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want Availability
	}{
		{nil, Available},
		{smb.NewStatusError(types.CommandCreate, types.StatusAccessDenied), AccessDenied},
		{fmt.Errorf("open pipe x: %w", smb.NewStatusError(types.CommandCreate, types.StatusObjectNameNotFound)), NotFound},
		{smb.NewStatusError(types.CommandCreate, types.StatusBadNetworkName), NotFound},
		{errors.New("boom"), Failed},
		{smb.ErrNotConnected, Failed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
}

func TestAvailabilityString(t *testing.T) {
	assert.Equal(t, "available", Available.String())
	assert.Equal(t, "access denied", AccessDenied.String())
	assert.Equal(t, "not found", NotFound.String())
	assert.Equal(t, "error", Failed.String())
}
