package setup

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/term"

	"github.com/tstromberg/camroll/pkg/camroll"
	"github.com/tstromberg/camroll/pkg/grants"
)

func TestTerminalConfirmer(t *testing.T) {
	var out bytes.Buffer
	confirm := TerminalConfirmer(strings.NewReader("y\nno\n YES \n"), &out)
	req := camroll.CreationRequest{Title: "a", Extension: "jpg", Album: "Camera"}
	ctx := context.Background()

	for _, want := range []bool{true, false, true, false} {
		got, err := confirm(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Contains(t, out.String(), `Save "a" (jpg) to album "Camera"?`)
}

func TestTerminalPrompter(t *testing.T) {
	prompt := TerminalPrompter(strings.NewReader("yes\nl\n\n"), &bytes.Buffer{})
	ctx := context.Background()

	for _, want := range []string{grants.Granted, grants.Limited, grants.Denied, grants.Denied} {
		got, err := prompt(ctx, camroll.PermissionWrite)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestOpen(t *testing.T) {
	_, err := Open(context.Background(), &camroll.Config{})
	assert.Error(t, err)

	lib := t.TempDir()
	src := filepath.Join(t.TempDir(), "a.gif")
	require.NoError(t, os.WriteFile(src, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), 0o644))

	e, err := Open(context.Background(), &camroll.Config{LibraryDir: lib, AutoApprove: true})
	require.NoError(t, err)
	defer e.Close()

	assert.FileExists(t, filepath.Join(lib, ".camroll", "library.db"))
	assert.Equal(t, lib, e.Scanner.Root())

	id, err := e.Library.Save(context.Background(), src, camroll.SaveOptions{Album: "Inbox"})
	require.NoError(t, err)
	assert.Equal(t, "Inbox", id.Node.GroupName)

	st, err := e.Library.RequestPermission(context.Background(), camroll.AccessReadWrite)
	require.NoError(t, err)
	assert.Equal(t, camroll.StatusGranted, st)
}

func TestOpenNonInteractiveDeclines(t *testing.T) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		t.Skip("stdin is a terminal")
	}
	lib := t.TempDir()
	src := filepath.Join(t.TempDir(), "a.gif")
	require.NoError(t, os.WriteFile(src, []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;"), 0o644))

	e, err := Open(context.Background(), &camroll.Config{LibraryDir: lib})
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Library.Save(context.Background(), src, camroll.SaveOptions{})
	assert.ErrorIs(t, err, camroll.ErrUserCancelled)

	st, err := e.Library.RequestPermission(context.Background(), camroll.AccessAddOnly)
	require.NoError(t, err)
	assert.Equal(t, camroll.StatusNotDetermined, st)
}

func TestTerminalSharedInput(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("y\nl\n"))
	confirm := TerminalConfirmer(in, &bytes.Buffer{})
	prompt := TerminalPrompter(in, &bytes.Buffer{})
	ctx := context.Background()

	ok, err := confirm(ctx, camroll.CreationRequest{Title: "a"})
	require.NoError(t, err)
	assert.True(t, ok)

	d, err := prompt(ctx, camroll.PermissionWrite)
	require.NoError(t, err)
	assert.Equal(t, grants.Limited, d)
}
