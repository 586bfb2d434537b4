package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vente/apiserver/internal/auth"
)

func TestHashPasswordCommand(t *testing.T) {
	t.Cleanup(func() { hashCost = 0 })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("from-stdin\n"))
	rootCmd.SetArgs([]string{"hash-password", "--cost", "4"})
	require.NoError(t, rootCmd.Execute())

	hash := strings.TrimSpace(out.String())
	hasher := auth.NewPasswordHasher(4)
	assert.True(t, hasher.Verify("from-stdin", hash))
	assert.False(t, hasher.Verify("from-stdin\n", hash))
}

func TestReadLine(t *testing.T) {
	line, err := readLine(strings.NewReader("secret\r\nignored"))
	require.NoError(t, err)
	assert.Equal(t, "secret", line)

	line, err = readLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", line)
}
