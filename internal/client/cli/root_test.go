package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootCmd_CommandTree(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "scan")
	assert.Contains(t, names, "sync")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "stats")

	for _, f := range []string{"config", "remote", "database", "media-dir", "interval", "verbose"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(f), "missing persistent flag %q", f)
	}
}

func TestScanCmd_RequiresExactlyOneArg(t *testing.T) {
	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	root.SetArgs([]string{"scan"})
	require.Error(t, root.Execute())

	root = NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"scan", "CODE-001", "CODE-002"})
	require.Error(t, root.Execute())
}

func TestHelpDoesNotStartTheApp(t *testing.T) {
	root := NewRootCmd()
	out := &bytes.Buffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "scan")
}
