package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument([]byte(`
channels:
  - Studio A
  - name: Main Stage
    slug: stage
  - name: Backstage
secret: s3cret
message_queue: redis://localhost:6379/0
`))
	require.NoError(t, err)

	assert.Equal(t, []ChannelEntry{
		{Name: "Studio A"},
		{Name: "Main Stage", Slug: "stage"},
		{Name: "Backstage"},
	}, doc.Channels)
	assert.Equal(t, "s3cret", doc.Secret)
	assert.Equal(t, "redis://localhost:6379/0", doc.MessageQueue)
}

func TestParseDocument_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		wantMsg string
	}{
		{name: "empty", input: "", wantErr: ErrEmptyDocument},
		{name: "whitespace", input: "  \n\n", wantErr: ErrEmptyDocument},
		{name: "null", input: "~\n", wantErr: ErrEmptyDocument},
		{name: "comment only", input: "# nothing here\n", wantErr: ErrEmptyDocument},
		{name: "list at top level", input: "- Studio A\n", wantErr: ErrInvalidDocument},
		{name: "no channels key", input: "secret: x\n", wantErr: ErrInvalidDocument},
		{name: "channels not a list", input: "channels: Studio A\n", wantErr: ErrInvalidDocument},
		{name: "zero channels", input: "channels: []\n", wantErr: ErrNoChannels},
		{name: "malformed yaml", input: "channels: [\n", wantErr: ErrInvalidDocument},
		{name: "nested list entry", input: "channels:\n  - [a, b]\n", wantErr: ErrInvalidDocument, wantMsg: "must be a name or a mapping"},
		{name: "mapping without name", input: "channels:\n  - slug: stage\n", wantErr: ErrInvalidDocument, wantMsg: "name must not be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.input))
			require.ErrorIs(t, err, tt.wantErr)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("channels:\n  - Studio A\n"), 0o600))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, []ChannelEntry{{Name: "Studio A"}}, doc.Channels)
	assert.Empty(t, doc.MessageQueue)
}

func TestLoadDocument_MissingFile(t *testing.T) {
	_, err := LoadDocument(filepath.Join(t.TempDir(), "missing.yml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDocument_ErrorNamesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("channels: []\n"), 0o600))

	_, err := LoadDocument(path)
	require.ErrorIs(t, err, ErrNoChannels)
	assert.Contains(t, err.Error(), path)
}
