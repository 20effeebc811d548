package orgcontext

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParishIDFromContext(t *testing.T) {
	id := uuid.NewString()
	ctx := WithParishID(context.Background(), " "+id+" ")

	got, ok := ParishIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestParishIDFromContextRejectsMalformed(t *testing.T) {
	_, ok := ParishIDFromContext(WithParishID(context.Background(), "parish-1"))
	assert.False(t, ok)

	_, ok = ParishIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestActorFromContext(t *testing.T) {
	ctx := WithActor(context.Background(), "sexton")
	assert.Equal(t, "sexton", ActorFromContext(ctx))
	assert.Empty(t, ActorFromContext(context.Background()))
}
