package prompter

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompts(t *testing.T) {
	SetInput(strings.NewReader("alice@example.com\nhunter22\nYES\nno"))
	t.Cleanup(func() { SetInput(os.Stdin) })

	email, err := PromptString("Email: ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	pw, err := PromptPassword("Password: ")
	require.NoError(t, err)
	assert.Equal(t, "hunter22", pw)

	ok, err := PromptConfirm("Continue?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = PromptConfirm("Again?")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = PromptString("Nothing left: ")
	assert.Error(t, err)
}
