package env

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	in := `
# comment
export HARVEST_PORT=9000
HARVEST_ENV = prod   # trailing
HARVEST_JWT_SECRET="a # not a comment"
HARVEST_CURRENCY='INR'
broken line
=novalue
`
	vars, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, [][2]string{
		{"HARVEST_PORT", "9000"},
		{"HARVEST_ENV", "prod"},
		{"HARVEST_JWT_SECRET", "a # not a comment"},
		{"HARVEST_CURRENCY", "INR"},
	}, vars)
}

func TestLoadProcessEnvWins(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	base := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(local, []byte("HH_TEST_A=local\n"), 0o600))
	require.NoError(t, os.WriteFile(base, []byte("HH_TEST_A=base\nHH_TEST_B=base\nHH_TEST_C=base\n"), 0o600))
	t.Setenv("HH_TEST_C", "process")
	os.Unsetenv("HH_TEST_A")
	os.Unsetenv("HH_TEST_B")
	t.Cleanup(func() {
		os.Unsetenv("HH_TEST_A")
		os.Unsetenv("HH_TEST_B")
	})

	loaded := Load(local, base, filepath.Join(dir, "missing"))
	assert.Equal(t, []string{local, base}, loaded)
	assert.Equal(t, "local", os.Getenv("HH_TEST_A"))
	assert.Equal(t, "base", os.Getenv("HH_TEST_B"))
	assert.Equal(t, "process", os.Getenv("HH_TEST_C"))
}
