package obs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestID(t *testing.T) {
	assert.Equal(t, "", RequestID(context.Background()))
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestID(ctx))
}

func TestTime(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core).Sugar()
	ctx := WithRequestID(context.Background(), "req-1")

	var err error
	Time(ctx, logger, "ok.op")(&err)

	err = errors.New("boom")
	Time(ctx, logger, "bad.op")(&err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "operation done", entries[0].Message)
	assert.Equal(t, "ok.op", entries[0].ContextMap()["op"])
	assert.Equal(t, "req-1", entries[0].ContextMap()["req_id"])
	assert.Equal(t, "operation failed", entries[1].Message)
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}
