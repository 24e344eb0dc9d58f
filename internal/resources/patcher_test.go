package resources

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspa-project/inspa/internal/config"
)

func TestNewPatcherNoIconIsNoop(t *testing.T) {
	p := NewPatcher()
	err := p.PatchIcon("/nonexistent/path", config.ResourcesConfig{}, nil)
	require.NoError(t, err, "no icon configured must never touch the executable")
}
