package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kayf-project/retriever/internal/core/domain"
)

func TestFactoryCreatesKnownTypes(t *testing.T) {
	factory := NewFactory()

	adapter, err := factory.Create(context.Background(), domain.Provider{
		ID:       "fs",
		Type:     "filesystem",
		Settings: map[string]any{"root": t.TempDir()},
	})
	require.NoError(t, err)
	assert.Equal(t, "filesystem", adapter.Type())
	assert.NoError(t, adapter.Close())
}

func TestFactoryRejectsUnknownType(t *testing.T) {
	factory := NewFactory()

	_, err := factory.Create(context.Background(), domain.Provider{ID: "x", Type: "imap"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestFactoryTypesSorted(t *testing.T) {
	assert.Equal(t, []string{"filesystem", "github", "web"}, NewFactory().Types())
}
