package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-group-todo/internal/config"
	"go-group-todo/internal/repositories"
	"go-group-todo/testutil"
)

func TestNewSessionRepository_SQL(t *testing.T) {
	db, cfg := testutil.OpenTestDB(t)

	repo, closeFn, err := newSessionRepository(context.Background(), cfg, db)
	require.NoError(t, err)
	assert.IsType(t, &repositories.SQLSessionRepo{}, repo)
	assert.NoError(t, closeFn())
}

func TestNewSessionRepository_RedisUnreachable(t *testing.T) {
	db, cfg := testutil.OpenTestDB(t)
	cfg.SessionBackend = config.SessionBackendRedis
	cfg.RedisAddr = "127.0.0.1:1"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, _, err := newSessionRepository(ctx, cfg, db)
	assert.Error(t, err)
}
