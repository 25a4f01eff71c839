package service

import (
	"testing"

	"task-agent/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionCatalog_CoversEveryAction(t *testing.T) {
	catalog := NewActionCatalog()

	for _, name := range entity.AllActions {
		_, ok := catalog.Get(name)
		assert.True(t, ok, "catalog is missing %s", name)
	}
	assert.Len(t, catalog.All(), len(entity.AllActions))
}

func TestActionSpec_Signature(t *testing.T) {
	catalog := NewActionCatalog()

	spec, ok := catalog.Get(entity.ActionWriteFile)
	require.True(t, ok)
	assert.Equal(t, "write_file(path, content)", spec.Signature())

	spec, ok = catalog.Get(entity.ActionWebScrape)
	require.True(t, ok)
	assert.Equal(t, "web_scrape(url, selector?)", spec.Signature())
}

func TestActionCatalog_ValidateMissingArguments(t *testing.T) {
	catalog := NewActionCatalog()

	err := catalog.Validate(entity.Action{
		Name:      entity.ActionWriteFile,
		Arguments: entity.Arguments{"path": "a.py"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content")

	err = catalog.Validate(entity.Action{
		Name:      entity.ActionWriteFile,
		Arguments: entity.Arguments{"path": "a.py", "content": ""},
	})
	assert.NoError(t, err)

	assert.NoError(t, catalog.Validate(entity.Action{Name: entity.ActionStop}))
}

func TestActionCatalog_AllReturnsCopy(t *testing.T) {
	catalog := NewActionCatalog()

	specs := catalog.All()
	specs[0].Description = "changed"

	spec, _ := catalog.Get(specs[0].Name)
	assert.NotEqual(t, "changed", spec.Description)
}
