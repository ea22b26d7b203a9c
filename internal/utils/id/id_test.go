package id

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixedIdentifiers(t *testing.T) {
	sub := NewSubmissionID()
	assert.True(t, strings.HasPrefix(sub, "sub-"), sub)
	assert.NotEqual(t, sub, NewSubmissionID())
	assert.True(t, strings.HasPrefix(NewAdminID(), "adm-"))
}

func TestUUIDv7Strategy(t *testing.T) {
	g := &Generator{strategy: StrategyUUIDv7}
	value := g.New("log")
	assert.True(t, strings.HasPrefix(value, "log-"))
	assert.Len(t, strings.TrimPrefix(value, "log-"), 36)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	assert.NoError(t, err)
	assert.Equal(t, StrategyKSUID, s)

	s, err = ParseStrategy(" UUIDv7 ")
	assert.NoError(t, err)
	assert.Equal(t, StrategyUUIDv7, s)

	_, err = ParseStrategy("snowflake")
	assert.Error(t, err)
}

func TestLogIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, LogIDFromContext(ctx))

	ctx, generated := EnsureLogID(ctx)
	assert.NotEmpty(t, generated)
	assert.Equal(t, generated, LogIDFromContext(ctx))

	again, same := EnsureLogID(ctx)
	assert.Equal(t, generated, same)
	assert.Equal(t, ctx, again)

	assert.Equal(t, ctx, WithLogID(ctx, ""))
}

func TestAdminContext(t *testing.T) {
	ctx := WithAdmin(context.Background(), "admin")
	assert.Equal(t, "admin", AdminFromContext(ctx))
	assert.Empty(t, AdminFromContext(context.Background()))
}
