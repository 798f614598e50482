package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contactsync/internal/platform/config"
)

func TestAuthority(t *testing.T) {
	got := authority(config.Contacts{BaseURL: "https://contacts.example.org/api/v2/", Slug: "hmis"})
	assert.Equal(t, "https://contacts.example.org/api/v2", got.CodingScheme)
	assert.Equal(t, "https://contacts.example.org/api/v2/hmis", got.AssigningAuthority)

	got = authority(config.Contacts{BaseURL: "https://contacts.example.org"})
	assert.Equal(t, got.CodingScheme, got.AssigningAuthority)
}

func TestRootRejectsUnknownUpsertMode(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--upsert-mode", "parallel", "run"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid upsert mode "parallel"`)
}

func TestLoadConfigAppliesFlagOverrides(t *testing.T) {
	t.Setenv("CONTACTSYNC_UPSERT_MODE", "sequential")

	opts := &rootOptions{upsertMode: config.UpsertConcurrent}
	assert.Equal(t, config.UpsertConcurrent, opts.loadConfig().Sync.UpsertMode)

	opts = &rootOptions{}
	assert.Equal(t, config.UpsertSequential, opts.loadConfig().Sync.UpsertMode)
}

func TestExitError(t *testing.T) {
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
}
