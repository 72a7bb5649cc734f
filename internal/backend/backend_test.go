package backend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-service-backend/config"
	"machine-service-backend/internal/model"
	"machine-service-backend/internal/remote"
	"machine-service-backend/internal/store"
)

func TestOpenFile(t *testing.T) {
	cfg := &config.StoreConfig{Backend: config.BackendFile, FilePath: filepath.Join(t.TempDir(), "db.json")}
	s, closeFn, err := Open(cfg, nil)
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &store.FileStore{}, s)
	ctx := context.Background()
	require.NoError(t, s.SaveAll(ctx, map[string]*model.MachineJourney{"BC1": {BarcodeID: "BC1", CompletedWorkstations: []int{}}}))
	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Contains(t, all, "BC1")
}

func TestOpenBadger(t *testing.T) {
	cfg := &config.StoreConfig{Backend: config.BackendBadger, BadgerDir: t.TempDir()}
	s, closeFn, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &store.BadgerStore{}, s)
	assert.NoError(t, closeFn())
}

func TestOpenRemote(t *testing.T) {
	cfg := &config.StoreConfig{Backend: config.BackendRemote, RemoteURL: "http://example.com:8080", PageSize: 10, TimeoutSec: 1}
	s, _, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &remote.Client{}, s)

	cfg.RemoteURL = "not a url"
	_, _, err = Open(cfg, nil)
	assert.Error(t, err)
}

func TestOpenSQLNeedsDatabase(t *testing.T) {
	_, _, err := Open(&config.StoreConfig{Backend: config.BackendSQL}, nil)
	assert.Error(t, err)

	_, _, err = Open(&config.StoreConfig{Backend: "etcd"}, nil)
	assert.ErrorContains(t, err, "etcd")
}
