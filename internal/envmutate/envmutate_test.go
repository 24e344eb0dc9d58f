package envmutate

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspa-project/inspa/internal/config"
)

func TestApplyAddPathSkipsExistingCaseInsensitive(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.SetPath(false, `C:\Existing\Bin`))

	results := Apply(config.Environment{AddPath: []string{`c:\existing\bin`}}, `C:\Install`, store, nil)
	require.Len(t, results, 1)
	require.True(t, results[0].Applied)

	got, _ := store.GetPath(false)
	require.Equal(t, `C:\Existing\Bin`, got, "duplicate entry must not be appended")
}

func TestApplyAddPathAppendsNewEntry(t *testing.T) {
	store := NewMemStore()
	require.NoError(t, store.SetPath(false, `C:\Existing\Bin`))

	Apply(config.Environment{AddPath: []string{`%INSTALL_DIR%\bin`}}, `C:\App`, store, nil)

	got, _ := store.GetPath(false)
	require.Equal(t, `C:\Existing\Bin`+string(os.PathListSeparator)+`C:\App\bin`, got)
}

func TestApplySetSubstitutesInstallDir(t *testing.T) {
	store := NewMemStore()
	Apply(config.Environment{Set: map[string]string{"APP_HOME": "%INSTALL_DIR%"}}, `C:\App`, store, nil)

	v, ok := store.Var(false, "APP_HOME")
	require.True(t, ok)
	require.Equal(t, `C:\App`, v)
}

func TestApplyUsesSystemScope(t *testing.T) {
	store := NewMemStore()
	Apply(config.Environment{AddPath: []string{`C:\Sys\Bin`}, SystemScope: true}, `C:\App`, store, nil)

	userPath, _ := store.GetPath(false)
	sysPath, _ := store.GetPath(true)
	require.Empty(t, userPath)
	require.Equal(t, `C:\Sys\Bin`, sysPath)
}
