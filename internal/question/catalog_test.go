package question

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/permit-prep/internal/storage"
)

func newTestCatalog() (*Catalog, *storage.Memory) {
	kv := storage.NewMemory()
	return NewCatalog(kv, NewValidator(), zerolog.Nop()), kv
}

func validQuestion() Question {
	return Question{
		Text:         "What does a flashing yellow light mean?",
		Options:      []string{"Stop", "Proceed with caution", "Speed up", "Turn only"},
		CorrectIndex: 1,
		Category:     "Road Rules",
	}
}

func TestCatalogListSearch(t *testing.T) {
	cat, _ := newTestCatalog()
	ctx := context.Background()

	all, err := cat.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 25)

	signs, err := cat.List(ctx, "ROAD SIGNS")
	require.NoError(t, err)
	assert.NotEmpty(t, signs)
	for _, q := range signs {
		assert.Equal(t, "Road Signs", q.Category)
	}

	byText, err := cat.List(ctx, "hydroplaning")
	require.NoError(t, err)
	require.Len(t, byText, 1)
	assert.Equal(t, 20, byText[0].ID)
}

func TestCatalogSaveAssignsIDAndPersists(t *testing.T) {
	cat, kv := newTestCatalog()
	ctx := context.Background()

	saved, err := cat.Save(ctx, validQuestion())
	require.NoError(t, err)
	assert.Equal(t, 26, saved.ID)

	got, err := cat.Get(ctx, 26)
	require.NoError(t, err)
	assert.Equal(t, saved, got)

	active := NewSource(kv, zerolog.Nop()).Active(ctx)
	assert.Len(t, active, 26)
}

func TestCatalogSaveReplaces(t *testing.T) {
	cat, _ := newTestCatalog()
	ctx := context.Background()

	q := validQuestion()
	q.ID = 1
	_, err := cat.Save(ctx, q)
	require.NoError(t, err)

	all, err := cat.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 25)

	got, err := cat.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, q.Text, got.Text)
}

func TestCatalogSaveValidation(t *testing.T) {
	cat, _ := newTestCatalog()

	q := validQuestion()
	q.Text = ""
	q.Options = []string{"a", "", "c", "d"}
	q.CorrectIndex = 4

	_, err := cat.Save(context.Background(), q)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "text")
	assert.Contains(t, ve.Fields, "options[1]")
	assert.Contains(t, ve.Fields, "correctIndex")
}

func TestCatalogDelete(t *testing.T) {
	cat, _ := newTestCatalog()
	ctx := context.Background()

	require.NoError(t, cat.Delete(ctx, 17))
	_, err := cat.Get(ctx, 17)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, cat.Delete(ctx, 17), ErrNotFound)

	all, err := cat.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 24)
}
