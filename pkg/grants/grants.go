// Package grants records photo library permission decisions in a TOML file.
package grants

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"k8s.io/klog/v2"

	"github.com/tstromberg/camroll/pkg/camroll"
)

// Decisions recorded in the grants file.
const (
	Granted = "granted"
	Limited = "limited"
	Denied  = "denied"
	Blocked = "blocked"
)

// ErrNoPrompt is returned by Request when a decision is needed and nobody can be asked.
var ErrNoPrompt = errors.New("no prompt available")

// Prompter asks the user to decide on a permission.
type Prompter func(ctx context.Context, permission string) (string, error)

type file struct {
	Permissions map[string]string `toml:"permissions"`
}

// Manager implements camroll.AccessManager.
type Manager struct {
	mu     sync.Mutex
	path   string
	data   file
	prompt Prompter
}

var _ camroll.AccessManager = (*Manager)(nil)

// Open loads the grants file at path; a missing file starts empty. prompt may be nil.
func Open(path string, prompt Prompter) (*Manager, error) {
	m := &Manager{
		path:   path,
		data:   file{Permissions: map[string]string{}},
		prompt: prompt,
	}

	bs, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read: %w", err)
	}
	if err == nil {
		if err := toml.Unmarshal(bs, &m.data); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		if m.data.Permissions == nil {
			m.data.Permissions = map[string]string{}
		}
	}
	return m, nil
}

// Check implements camroll.AccessManager. Undecided permissions are denied.
func (m *Manager) Check(_ context.Context, permission string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return code(m.data.Permissions[permission]), nil
}

// Request implements camroll.AccessManager. Recorded decisions other than
// "denied" are returned as is; anything else is put to the prompter and saved.
func (m *Manager) Request(ctx context.Context, permissions []string) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	codes := make([]int, 0, len(permissions))
	changed := false
	for _, p := range permissions {
		d, ok := m.data.Permissions[p]
		if !ok || d == Denied {
			if m.prompt == nil {
				return nil, fmt.Errorf("%s: %w", p, ErrNoPrompt)
			}
			nd, err := m.prompt(ctx, p)
			if err != nil {
				return nil, fmt.Errorf("prompt %s: %w", p, err)
			}
			d = nd
			m.data.Permissions[p] = d
			changed = true
			klog.Infof("permission %s: %s", p, d)
		}
		codes = append(codes, code(d))
	}

	if changed {
		if err := m.save(); err != nil {
			return nil, err
		}
	}
	return codes, nil
}

// Set records a decision without prompting.
func (m *Manager) Set(permission string, decision string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.Permissions[permission] = decision
	return m.save()
}

func (m *Manager) save() error {
	bs, err := toml.Marshal(m.data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(m.path, bs, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// code maps a recorded decision to a result code. Unknown decisions pass
// through as an out-of-range code.
func code(decision string) int {
	switch decision {
	case Granted:
		return camroll.CodeGranted
	case Limited:
		return camroll.CodeLimited
	case Blocked:
		return camroll.CodeBlocked
	case Denied, "":
		return camroll.CodeDenied
	default:
		return 1
	}
}

// Policy returns a prompter that always answers with decision.
func Policy(decision string) Prompter {
	return func(context.Context, string) (string, error) {
		return decision, nil
	}
}
