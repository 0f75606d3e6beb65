package hashutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pysnip/internal/domain"
)

func TestFileSHA256(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tool.py")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	sum, err := FileSHA256(path)
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, err = FileSHA256(filepath.Join(t.TempDir(), "missing.py"))
	assert.Error(t, err)
}

func TestCatalogETag_Stable(t *testing.T) {
	catalog := domain.Catalog{RootPath: "/tools", ToolCount: 1}
	first := CatalogETag(zap.NewNop(), catalog)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, CatalogETag(nil, catalog))

	catalog.ToolCount = 2
	assert.NotEqual(t, first, CatalogETag(nil, catalog))
}
