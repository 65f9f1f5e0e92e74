package chatlog

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu    sync.Mutex
	lines []string
}

func (c *collector) handle(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *collector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func appendFile(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func openTailer(t *testing.T, path string, c *collector, opts ...Option) *Tailer {
	t.Helper()
	tl, err := Open(path, append([]Option{WithHandler(c.handle)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { tl.Close() })
	return tl
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.log"))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, IsFatal(err))

	_, err = Open(dir)
	var ae *AccessError
	require.ErrorAs(t, err, &ae)

	_, err = Open(filepath.Join(dir, "x.log"), WithEncoding("klingon"))
	assert.Error(t, err)
}

func TestLookupEncoding(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{name: "utf-8"},
		{name: "windows-1252"},
		{name: "iso-8859-1"},
		{name: "utf-16le", wantErr: true},
		{name: "utf-16be", wantErr: true},
		{name: "klingon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LookupEncoding(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTailer_SkipsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "old line 1\nold line 2\n")

	c := &collector{}
	tl := openTailer(t, path, c)
	assert.Equal(t, int64(22), tl.Offset())

	require.NoError(t, tl.OnChange())
	assert.Empty(t, c.get())

	appendFile(t, path, "new line\n")
	require.NoError(t, tl.OnChange())
	assert.Equal(t, []string{"new line"}, c.get())
}

func TestTailer_PartialLineHeldBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "")

	c := &collector{}
	tl := openTailer(t, path, c)

	appendFile(t, path, "first\nsec")
	require.NoError(t, tl.OnChange())
	assert.Equal(t, []string{"first"}, c.get())
	assert.Equal(t, int64(6), tl.Offset())

	appendFile(t, path, "ond\r\n\nthird\n")
	require.NoError(t, tl.OnChange())
	assert.Equal(t, []string{"first", "second", "third"}, c.get())
	assert.Equal(t, int64(21), tl.Offset())

	// spurious notification
	require.NoError(t, tl.OnChange())
	assert.Len(t, c.get(), 3)
}

func TestTailer_ArbitraryWritePartitions(t *testing.T) {
	var want []string
	var content strings.Builder
	for i := 0; i < 200; i++ {
		line := strings.Repeat(string(rune('a'+i%26)), 1+i%37)
		want = append(want, line)
		content.WriteString(line + "\n")
	}
	data := content.String()

	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		path := filepath.Join(t.TempDir(), "Chat.log")
		writeFile(t, path, "")
		c := &collector{}
		tl := openTailer(t, path, c)

		for pos := 0; pos < len(data); {
			n := 1 + rng.Intn(64)
			if pos+n > len(data) {
				n = len(data) - pos
			}
			appendFile(t, path, data[pos:pos+n])
			pos += n
			if rng.Intn(3) > 0 {
				require.NoError(t, tl.OnChange())
			}
		}
		require.NoError(t, tl.OnChange())

		assert.Equal(t, want, c.get(), "round %d", round)
		assert.Equal(t, int64(len(data)), tl.Offset())
	}
}

func TestTailer_TruncationRestartsFromZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "some long history line\n")

	c := &collector{}
	tl := openTailer(t, path, c)

	writeFile(t, path, "fresh\n")
	require.NoError(t, tl.OnChange())
	assert.Equal(t, []string{"fresh"}, c.get())
	assert.Equal(t, int64(6), tl.Offset())
}

func TestTailer_RecreatedFileIsReopened(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Chat.log")
	writeFile(t, path, "")

	c := &collector{}
	tl := openTailer(t, path, c)

	appendFile(t, path, "before\n")
	require.NoError(t, tl.OnChange())

	require.NoError(t, os.Rename(path, filepath.Join(dir, "Chat.log.1")))
	writeFile(t, path, "after rotation\n")
	require.NoError(t, tl.OnChange())

	assert.Equal(t, []string{"before", "after rotation"}, c.get())
}

func TestTailer_RotationKeepsLinesWrittenBeforeRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Chat.log")
	writeFile(t, path, "")

	c := &collector{}
	tl := openTailer(t, path, c)

	appendFile(t, path, "a\n")
	require.NoError(t, tl.OnChange())

	appendFile(t, path, "written before rotation\n")
	require.NoError(t, os.Rename(path, filepath.Join(dir, "Chat.log.1")))
	writeFile(t, path, "new\n")
	require.NoError(t, tl.OnChange())

	assert.Equal(t, []string{"a", "written before rotation", "new"}, c.get())
	assert.Equal(t, int64(4), tl.Offset())
}

func TestTailer_ConcurrentOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "")

	c := &collector{}
	tl := openTailer(t, path, c)

	var want []string
	for i := 0; i < 100; i++ {
		want = append(want, fmt.Sprintf("line %03d", i))
	}

	for _, line := range want {
		// write each line in two pieces so some callers see a partial tail
		half := len(line) / 2
		appendFile(t, path, line[:half])

		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, tl.OnChange())
			}()
		}
		appendFile(t, path, line[half:]+"\n")
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, tl.OnChange())
			}()
		}
		wg.Wait()
	}

	assert.Equal(t, want, c.get())
}

func TestTailer_DecodesLegacyCharset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "")

	c := &collector{}
	tl := openTailer(t, path, c, WithEncoding("windows-1252"))

	appendFile(t, path, "caf\xe9\n")
	require.NoError(t, tl.OnChange())
	assert.Equal(t, []string{"café"}, c.get())
}

func TestTailer_CloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "")

	tl, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, tl.Close())
	require.NoError(t, tl.Close())
	assert.ErrorIs(t, tl.OnChange(), ErrClosed)
}

func TestWatcher_DeliversAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "history\n")

	c := &collector{}
	tl := openTailer(t, path, c)
	w := NewWatcher(tl, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	appendFile(t, path, "hello\nworld\n")
	assert.Eventually(t, func() bool {
		return len(c.get()) == 2
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"hello", "world"}, c.get())

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestWatcher_StopsOnFatalError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Chat.log")
	writeFile(t, path, "")

	tl, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, tl.Close())

	err = NewWatcher(tl, 10*time.Millisecond).Run(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_FIFOAndClose(t *testing.T) {
	q := NewQueue()
	q.Push("a")
	q.Push("b")
	assert.Equal(t, 2, q.Len())

	ctx := context.Background()
	line, ok := q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", line)

	q.Close()
	q.Push("dropped")

	line, ok = q.Pop(ctx)
	require.True(t, ok)
	assert.Equal(t, "b", line)

	_, ok = q.Pop(ctx)
	assert.False(t, ok)
}

func TestQueue_PopWaitsForPush(t *testing.T) {
	q := NewQueue()
	got := make(chan string, 1)
	go func() {
		line, _ := q.Pop(context.Background())
		got <- line
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("late")

	select {
	case line := <-got:
		assert.Equal(t, "late", line)
	case <-time.After(time.Second):
		t.Fatal("Pop did not return after Push")
	}
}

func TestQueue_PopCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, ok := NewQueue().Pop(ctx)
	assert.False(t, ok)
}
