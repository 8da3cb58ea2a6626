package sandbox

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCategories(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		errString string
	}{
		{"ErrInvalidInput", ErrInvalidInput, "INVALID_INPUT"},
		{"ErrOutsideSandbox", ErrOutsideSandbox, "OUTSIDE_SANDBOX"},
		{"ErrSymlinkRejected", ErrSymlinkRejected, "SYMLINK_REJECTED"},
		{"ErrToolFailure", ErrToolFailure, "TOOL_FAILURE"},
		{"ErrOutputTooLarge", ErrOutputTooLarge, "OUTPUT_TOO_LARGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errString, tt.err.Error())
			assert.Equal(t, tt.err, Category(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestToolError(t *testing.T) {
	err := &ToolError{Tool: "mdls", Detail: "exit status 2"}
	assert.Equal(t, "TOOL_FAILURE: mdls: exit status 2", err.Error())
	assert.True(t, errors.Is(err, ErrToolFailure))
	assert.Equal(t, ErrToolFailure, Category(err))

	bare := &ToolError{Tool: "mdfind"}
	assert.Equal(t, "TOOL_FAILURE: mdfind", bare.Error())
}

func TestCategory_Unknown(t *testing.T) {
	assert.Nil(t, Category(errors.New("something else")))
	assert.Nil(t, Category(nil))
}
