package service

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/config"
	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResolver_CachesInBolt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, "<html><head><title>Greatsword - Aion Codex</title></head></html>")
	}))
	defer srv.Close()

	cfg := &config.Config{
		LookupURL:     srv.URL + "/item/%s",
		TitleSuffix:   " - Aion Codex",
		LookupTimeout: time.Second,
		LinkCachePath: filepath.Join(t.TempDir(), "links.db"),
	}

	res, err := BuildResolver(cfg, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		name, err := res.Resolve(context.Background(), domain.LinkItem, "5")
		require.NoError(t, err)
		assert.Equal(t, "Greatsword", name)
	}
	require.NoError(t, res.Close())
	assert.Equal(t, int32(1), hits.Load())

	// a fresh process reads the persisted name without a request
	res, err = BuildResolver(cfg, nil)
	require.NoError(t, err)
	defer res.Close()

	name, err := res.Resolve(context.Background(), domain.LinkItem, "5")
	require.NoError(t, err)
	assert.Equal(t, "Greatsword", name)
	assert.Equal(t, int32(1), hits.Load())
}

func TestBuildResolver_InvalidTemplate(t *testing.T) {
	_, err := BuildResolver(&config.Config{LookupURL: "https://example.com"}, nil)
	assert.Error(t, err)
}

func TestBuildSinks(t *testing.T) {
	var console bytes.Buffer

	sinks, closers, err := BuildSinks(&config.Config{NoColor: true}, &console)
	require.NoError(t, err)
	assert.Empty(t, closers)
	require.Len(t, sinks, 1)

	dir := t.TempDir()
	sinks, closers, err = BuildSinks(&config.Config{NoColor: true, OutputDir: dir}, &console)
	require.NoError(t, err)
	require.Len(t, sinks, 3)
	require.Len(t, closers, 3)

	sinks[domain.ChannelAll].WriteOutput("hello\n", domain.ColorDarkGray)
	sinks[domain.ChannelPM].WriteOutput("psst\n", domain.ColorLightGreen)
	for _, c := range closers {
		require.NoError(t, c.Close())
	}

	assert.Equal(t, "hello\n", console.String())

	data, err := os.ReadFile(filepath.Join(dir, "all.log"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "pm.log"))
	require.NoError(t, err)
	assert.Equal(t, "psst\n", string(data))
}
