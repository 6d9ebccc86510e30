package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMockEmbedder(t *testing.T) {
	ctx := context.Background()

	e := NewMockEmbedder(2)
	assert.Equal(t, 2, e.GetDimension())

	emb, err := e.EmbedDocument(ctx, "test")
	assert.NoError(t, err)
	assert.Len(t, emb, 2)

	again, _ := e.EmbedDocument(ctx, "test")
	assert.Equal(t, emb, again)

	embs, err := e.EmbedDocuments(ctx, []string{"test1", "test2"})
	assert.NoError(t, err)
	assert.Len(t, embs, 2)
	assert.NotEqual(t, embs[0], embs[1])
}
