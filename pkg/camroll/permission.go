package camroll

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// AccessLevel is the photo library access an app asks for.
type AccessLevel string

const (
	AccessAddOnly   AccessLevel = "addOnly"
	AccessReadWrite AccessLevel = "readWrite"
)

// Status is an authorization status.
type Status string

const (
	StatusGranted       Status = "granted"
	StatusLimited       Status = "limited"
	StatusDenied        Status = "denied"
	StatusBlocked       Status = "blocked"
	StatusNotDetermined Status = "not-determined"
	StatusUnavailable   Status = "unavailable"
)

// Permission identifiers understood by the access manager.
const (
	PermissionWrite     = "media.write"
	PermissionReadWrite = "media.readwrite"
)

// Grant result codes reported by an AccessManager.
const (
	CodeBlocked = -2
	CodeDenied  = -1
	CodeGranted = 0
	CodeLimited = 2
)

// AccessManager checks and requests permissions.
type AccessManager interface {
	Check(ctx context.Context, permission string) (int, error)
	Request(ctx context.Context, permissions []string) ([]int, error)
}

// PermissionFor maps an access level to its permission identifier.
func PermissionFor(level AccessLevel) (string, error) {
	switch level {
	case AccessAddOnly:
		return PermissionWrite, nil
	case AccessReadWrite:
		return PermissionReadWrite, nil
	default:
		return "", fmt.Errorf("%w: unknown access level %q", ErrInvalidRequest, level)
	}
}

// CheckPermission reports the current status for level without asking the user.
func (l *Library) CheckPermission(ctx context.Context, level AccessLevel) (Status, error) {
	p, err := PermissionFor(level)
	if err != nil {
		return "", err
	}
	if l.access == nil {
		return StatusUnavailable, nil
	}

	code, err := l.access.Check(ctx, p)
	if err != nil {
		klog.Warningf("check %s: %v", p, err)
		return StatusNotDetermined, nil
	}

	switch code {
	case CodeGranted:
		return StatusGranted, nil
	case CodeLimited:
		return StatusLimited, nil
	case CodeBlocked:
		return StatusBlocked, nil
	default:
		return StatusDenied, nil
	}
}

// RequestPermission asks for level. It always returns a status: failures and
// unrecognized result codes become StatusNotDetermined.
func (l *Library) RequestPermission(ctx context.Context, level AccessLevel) (Status, error) {
	p, err := PermissionFor(level)
	if err != nil {
		return "", err
	}
	if l.access == nil {
		return StatusUnavailable, nil
	}

	codes, err := l.access.Request(ctx, []string{p})
	if err != nil {
		klog.Warningf("request %s: %v", p, err)
		return StatusNotDetermined, nil
	}
	if len(codes) == 0 {
		klog.Warningf("request %s: no result", p)
		return StatusNotDetermined, nil
	}

	klog.V(1).Infof("request %s: code %d", p, codes[0])
	switch codes[0] {
	case CodeDenied:
		return StatusDenied, nil
	case CodeGranted:
		return StatusGranted, nil
	case CodeLimited:
		return StatusLimited, nil
	default:
		klog.Warningf("request %s: unexpected result code %d", p, codes[0])
		return StatusNotDetermined, nil
	}
}

// RefreshSelection rescans the library, reporting whether a rescan ran.
func (l *Library) RefreshSelection(ctx context.Context) (bool, error) {
	if l.refresher == nil {
		return false, nil
	}
	if err := l.refresher.Refresh(ctx); err != nil {
		return false, fmt.Errorf("refresh: %w", err)
	}
	return true, nil
}
