package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	assert.Equal(t, "", Token(context.Background()))

	ctx := WithSession(context.Background(), &Session{ID: "s1", Token: "abc", Username: "21CS001"})
	assert.Equal(t, "abc", Token(ctx))
	assert.Equal(t, "21CS001", FromContext(ctx).Actor())
}

func TestWithToken(t *testing.T) {
	ctx := WithToken(context.Background(), "tok")
	assert.Equal(t, "tok", Token(ctx))
	assert.Equal(t, "0", FromContext(ctx).Actor())
}
