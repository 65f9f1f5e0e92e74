package service

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/chatlog"
	"github.com/SteelMorgan/chatlog-notifier/internal/config"
	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/SteelMorgan/chatlog-notifier/internal/links"
	"github.com/SteelMorgan/chatlog-notifier/internal/mapping"
	"github.com/SteelMorgan/chatlog-notifier/internal/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type write struct {
	Text  string
	Color domain.Color
}

type recordingSink struct {
	mu     sync.Mutex
	writes []write
	clears int
}

func (s *recordingSink) WriteOutput(text string, color domain.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, write{text, color})
}

func (s *recordingSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clears++
	s.writes = nil
}

func (s *recordingSink) Ready() bool { return true }

func (s *recordingSink) snapshot() []write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]write(nil), s.writes...)
}

func (s *recordingSink) clearCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func testConfig(path string) *config.Config {
	return &config.Config{
		ChatLogPath:     path,
		ChatLogEncoding: "utf-8",
		PollInterval:    20 * time.Millisecond,
	}
}

func TestNew_MissingFile(t *testing.T) {
	_, err := New(testConfig(filepath.Join(t.TempDir(), "Chat.log")), Deps{Rules: mapping.DefaultRules()})
	var nf *chatlog.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestService_EndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	require.NoError(t, os.WriteFile(path, []byte("2024.01.01 10:00:00 : old history line\n"), 0o644))

	resolver := links.ResolverFunc(func(_ context.Context, kind domain.LinkKind, id string) (string, error) {
		if id == "100000001" {
			return "Sword of Dawn", nil
		}
		return "", &links.LookupError{Kind: kind, ID: id, Err: links.ErrNotFound}
	})

	all, lfg, pm := &recordingSink{}, &recordingSink{}, &recordingSink{}
	svc, err := New(testConfig(path), Deps{
		Rules:    mapping.DefaultRules(),
		Resolver: resolver,
		Sinks: map[domain.Channel]router.Sink{
			domain.ChannelAll: all,
			domain.ChannelLFG: lfg,
			domain.ChannelPM:  pm,
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	appendFile(t, path, "2024.01.01 14:22:10 : [3.LFG] [charname:Bob;1.0]: needs healer for [item:100000001;x]\n")
	appendFile(t, path, "2024.01.01 14:22:11 : [charname:Ann;1.0] Whispers: hi [item:999;y]\r\n")
	appendFile(t, path, "no timestamp here")

	assert.Eventually(t, func() bool {
		return len(all.snapshot()) == 4
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, []write{
		{"(14:22:10) ", domain.ColorDimGray},
		{"[3.LFG] Bob: needs healer for <Sword of Dawn>\n", domain.ColorLightRed},
		{"(14:22:11) ", domain.ColorDimGray},
		{"Ann Whispers: hi [item:999;y]\n", domain.ColorLightGreen},
	}, all.snapshot())
	assert.Equal(t, all.snapshot()[:2], lfg.snapshot())
	assert.Equal(t, all.snapshot()[2:], pm.snapshot())

	// completing the partial line releases it
	appendFile(t, path, ", just text\n")
	assert.Eventually(t, func() bool {
		return len(all.snapshot()) == 5
	}, 3*time.Second, 10*time.Millisecond)
	assert.Equal(t, write{"no timestamp here, just text\n", domain.ColorDarkGray}, all.snapshot()[4])

	svc.Clear()
	assert.Eventually(t, func() bool {
		return all.clearCount() == 1 && lfg.clearCount() == 1 && pm.clearCount() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestService_FatalErrorStopsRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Chat.log")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	svc, err := New(testConfig(path), Deps{Rules: mapping.DefaultRules()})
	require.NoError(t, err)

	// replace the file with a directory so reopening fails
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o755))

	select {
	case err := <-runAsync(svc):
		var ae *chatlog.AccessError
		assert.ErrorAs(t, err, &ae)
	case <-time.After(3 * time.Second):
		t.Fatal("service did not stop on fatal error")
	}
}

func runAsync(svc *Service) <-chan error {
	done := make(chan error, 1)
	go func() { done <- svc.Run(context.Background()) }()
	return done
}
