package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeedFile(t *testing.T) {
	cmd, err := readSeedFile(strings.NewReader(`
categories:
  - code: ACCOUNTS_RECEIVABLE
    name: Accounts receivable
  - code: OUTPUT_VAT
`))
	require.NoError(t, err)
	require.Len(t, cmd.Categories, 2)
	assert.Equal(t, "ACCOUNTS_RECEIVABLE", cmd.Categories[0].Code)
	assert.Equal(t, "Accounts receivable", cmd.Categories[0].Name)
	assert.Equal(t, "OUTPUT_VAT", cmd.Categories[1].Code)
	assert.Empty(t, cmd.Categories[1].Name)
}

func TestReadSeedFile_UnknownField(t *testing.T) {
	_, err := readSeedFile(strings.NewReader(`
categories:
  - code: RENT
    nmae: Rent
`))
	require.Error(t, err)
	assert.Equal(t, exitInvalidInput, exitCode(err))
}

func TestReadSeedFile_Empty(t *testing.T) {
	cmd, err := readSeedFile(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, cmd.Categories)
}
