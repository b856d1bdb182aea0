package status

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskflow/server/internal/domain/errs"
)

type stubRepo struct {
	entries []Entry
}

func (s *stubRepo) List(ctx context.Context) ([]Entry, error) { return s.entries, nil }
func (s *stubRepo) Seed(ctx context.Context, entries []Entry) error {
	s.entries = entries
	return nil
}

func TestCatalogLookup(t *testing.T) {
	c := NewCatalog(Defaults())

	id, err := c.ID(WaitingApproval)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), id)

	code, err := c.Code(5)
	require.NoError(t, err)
	assert.Equal(t, Done, code)
	assert.True(t, c.IsTerminal(Done))
	assert.True(t, c.IsTerminal(Archived))
	assert.False(t, c.IsTerminal(InProgress))
}

func TestCatalogMissingCodeIsConfigurationError(t *testing.T) {
	c := NewCatalog(Defaults()[:2])

	_, err := c.ID(Done)
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindConfiguration))

	_, err = c.Entry(42)
	assert.True(t, errs.IsKind(err, errs.KindConfiguration))
	assert.Panics(t, func() { c.MustID(Archived) })
}

func TestLoadCatalogRequiresAllCodes(t *testing.T) {
	_, err := LoadCatalog(context.Background(), &stubRepo{entries: Defaults()[:5]})
	require.Error(t, err)

	c, err := LoadCatalog(context.Background(), &stubRepo{entries: Defaults()})
	require.NoError(t, err)
	assert.Equal(t, uint64(6), c.MustID(Archived))
}
