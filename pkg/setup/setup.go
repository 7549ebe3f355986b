// Package setup wires a Library from a Config.
package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"golang.org/x/term"
	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/camroll"
	"github.com/tstromberg/camroll/pkg/fetch"
	"github.com/tstromberg/camroll/pkg/grants"
	"github.com/tstromberg/camroll/pkg/index"
	"github.com/tstromberg/camroll/pkg/store"
)

// Env is a wired library with the parts callers may need directly.
type Env struct {
	Library *camroll.Library
	Store   *store.Store
	Scanner *index.Scanner
	Grants  *grants.Manager

	closers []io.Closer
}

// Close releases the store and helper processes.
func (e *Env) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i].Close())
	}
	return errors.Join(errs...)
}

// Open wires a Library for c. Interactive confirmation and permission prompts
// are used when stdin is a terminal and c.AutoApprove is off.
func Open(ctx context.Context, c *camroll.Config) (*Env, error) {
	if c.LibraryDir == "" {
		return nil, errors.New("library dir is required")
	}
	c.SetDefaults()
	if err := os.MkdirAll(c.LibraryDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}

	e := &Env{}
	interactive := !c.AutoApprove && term.IsTerminal(int(os.Stdin.Fd()))

	confirm := store.Confirmer(store.AutoApprove)
	prompt := grants.Policy(grants.Granted)
	switch {
	case interactive:
		// One reader for both, so neither buffers away the other's answers.
		in := bufio.NewReader(os.Stdin)
		confirm = TerminalConfirmer(in, os.Stderr)
		prompt = TerminalPrompter(in, os.Stderr)
	case !c.AutoApprove:
		confirm = decline
		prompt = nil
	}

	st, err := store.New(c.DataDir, c.LibraryDir, store.WithConfirmer(confirm), store.WithImportAlbum(c.DefaultAlbum))
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	e.Store = st
	e.closers = append(e.closers, st)

	var reader index.Reader = index.BasicReader{}
	if er, err := index.NewExifReader(); err == nil {
		reader = er
		e.closers = append(e.closers, er)
	} else {
		klog.Warningf("exiftool unavailable, indexing dimensions only: %v", err)
	}

	sc, err := index.NewScanner(c.LibraryDir, st, reader)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("scanner: %w", err)
	}
	e.Scanner = sc

	g, err := grants.Open(c.GrantsFile, prompt)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("grants: %w", err)
	}
	e.Grants = g

	h := &fetch.HTTP{Client: &http.Client{}}
	opts := []camroll.Option{
		camroll.WithFetcher("http", h),
		camroll.WithFetcher("https", h),
		camroll.WithAccessManager(g),
		camroll.WithRefresher(sc),
	}
	if gf, err := fetch.NewGCS(ctx, c.GCSCredentials); err == nil {
		opts = append(opts, camroll.WithFetcher("gs", gf))
		e.closers = append(e.closers, gf)
	} else {
		klog.V(1).Infof("gs:// sources disabled: %v", err)
	}

	e.Library = camroll.New(c, st, st, opts...)
	return e, nil
}

func decline(_ context.Context, req camroll.CreationRequest) (bool, error) {
	klog.Warningf("declining creation of %q: not interactive and auto-approve is off", req.Title)
	return false, nil
}

// TerminalConfirmer asks on out and reads y/N from in. A *bufio.Reader is
// used as is, so it can be shared with TerminalPrompter.
func TerminalConfirmer(in io.Reader, out io.Writer) store.Confirmer {
	br := bufio.NewReader(in)
	return func(_ context.Context, req camroll.CreationRequest) (bool, error) {
		fmt.Fprintf(out, "Save %q (%s) to album %q? [y/N] ", req.Title, req.Extension, req.Album)
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, err
		}
		a := strings.ToLower(strings.TrimSpace(line))
		return a == "y" || a == "yes", nil
	}
}

// TerminalPrompter asks on out for a permission decision.
func TerminalPrompter(in io.Reader, out io.Writer) grants.Prompter {
	br := bufio.NewReader(in)
	return func(_ context.Context, p string) (string, error) {
		fmt.Fprintf(out, "Allow %s? [y]es / [l]imited / [N]o: ", p)
		line, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return grants.Granted, nil
		case "l", "limited":
			return grants.Limited, nil
		default:
			return grants.Denied, nil
		}
	}
}
