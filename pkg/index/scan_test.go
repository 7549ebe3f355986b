package index

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tstromberg/camroll/pkg/camroll"
)

type memSink struct {
	mu      sync.Mutex
	records map[string]camroll.Record
	scans   int
}

func newMemSink() *memSink {
	return &memSink{records: map[string]camroll.Record{}}
}

func (m *memSink) Upsert(_ context.Context, r camroll.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.Path] = r
	return nil
}

func (m *memSink) Prune(_ context.Context, keep map[string]bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans++
	n := 0
	for p := range m.records {
		if !keep[p] {
			delete(m.records, p)
			n++
		}
	}
	return n, nil
}

func (m *memSink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "top.png"), 4, 2)
	writePNG(t, filepath.Join(root, "Trips", "2024", "beach.png"), 3, 3)
	writePNG(t, filepath.Join(root, ".camroll", "cache.png"), 1, 1)
	writePNG(t, filepath.Join(root, "Trips", ".hidden.png"), 1, 1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Trips", "notes.txt"), []byte("hello there"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Trips", "empty.jpg"), nil, 0o644))

	sink := newMemSink()
	s, err := NewScanner(root, sink, nil)
	require.NoError(t, err)

	n, err := s.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Equal(t, 2, sink.len())

	top := sink.records[filepath.Join(root, "top.png")]
	assert.Equal(t, "", top.Album)
	assert.Equal(t, "image/png", top.MimeType)
	assert.Equal(t, camroll.PhotoTypeImage, top.PhotoType)
	assert.Equal(t, camroll.FileURI(top.Path), top.URI)
	assert.Equal(t, int64(4), *top.Width)
	assert.Equal(t, int64(2), *top.Height)
	assert.NotEmpty(t, top.ID)
	assert.Nil(t, top.DateTaken)

	beach := sink.records[filepath.Join(root, "Trips", "2024", "beach.png")]
	assert.Equal(t, "Trips/2024", beach.Album)
	assert.Equal(t, "beach.png", beach.DisplayName)

	require.NoError(t, os.Remove(filepath.Join(root, "top.png")))
	require.NoError(t, s.Refresh(context.Background()))
	assert.Equal(t, 1, sink.len())
	assert.Equal(t, 2, sink.scans)
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writePNG(t, filepath.Join(root, "a.png"), 1, 1)

	s, err := NewScanner(root, newMemSink(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBasicReader(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.png")
	writePNG(t, p, 7, 5)

	m, err := BasicReader{}.Read(p)
	require.NoError(t, err)
	assert.Equal(t, int64(7), *m.Width)
	assert.Equal(t, int64(5), *m.Height)

	txt := filepath.Join(t.TempDir(), "a.mov")
	require.NoError(t, os.WriteFile(txt, []byte("not an image"), 0o644))
	m, err = BasicReader{}.Read(txt)
	require.NoError(t, err)
	assert.Nil(t, m.Width)

	_, err = BasicReader{}.Read(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestAltitude(t *testing.T) {
	v, ok := altitude("12.5 m Above Sea Level")
	assert.True(t, ok)
	assert.Equal(t, 12.5, v)

	v, ok = altitude("3 m Below Sea Level")
	assert.True(t, ok)
	assert.Equal(t, -3.0, v)

	_, ok = altitude("")
	assert.False(t, ok)
	_, ok = altitude("high")
	assert.False(t, ok)
}

func TestWatch(t *testing.T) {
	old := settle
	settle = 50 * time.Millisecond
	t.Cleanup(func() { settle = old })

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Trips"), 0o755))
	sink := newMemSink()
	s, err := NewScanner(root, sink, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, s) }()

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	writePNG(t, filepath.Join(root, "Trips", "new.png"), 2, 2)

	assert.Eventually(t, func() bool { return sink.len() == 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestSchedule(t *testing.T) {
	s, err := NewScanner(t.TempDir(), newMemSink(), nil)
	require.NoError(t, err)

	_, err = Schedule(context.Background(), "whenever", s)
	assert.Error(t, err)

	c, err := Schedule(context.Background(), "@every 1h", s)
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
	<-c.Stop().Done()
}
