package taskutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/opst/eoflow/pkg/domain"
	taskdb "github.com/opst/eoflow/pkg/domain/task/db"
	"github.com/sirupsen/logrus"
)

var ErrOutsideSandbox = errors.New("path is outside of sandbox")

// Mount maps a host directory into containers.
type Mount struct {
	Host      string
	Container string
}

func (m Mount) IsZero() bool {
	return m.Host == "" && m.Container == ""
}

// rel returns the path relative to root, when p is root or under root.
func rel(root, p string) (string, bool) {
	if root == "" {
		return "", false
	}
	r, err := filepath.Rel(root, p)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return r, true
}

// Sandbox translates paths between hosts and containers running tasks.
//
// Workspace is the general working area. Store is the shared read-only data store.
// When StoreMounted is false, containers cannot see the store,
// and symlinks into the store are materialized while tasks are reading them.
type Sandbox struct {
	Workspace    Mount
	Store        Mount
	StoreMounted bool

	holds  taskdb.MaterializationInterface
	logger logrus.FieldLogger
}

// NewSandbox creates a Sandbox.
//
// holds records materialized symlinks. Without it, symlinks into the unmounted store are refused.
func NewSandbox(
	workspace Mount, store Mount, storeMounted bool,
	holds taskdb.MaterializationInterface, logger logrus.FieldLogger,
) *Sandbox {
	return &Sandbox{
		Workspace:    workspace,
		Store:        store,
		StoreMounted: storeMounted,
		holds:        holds,
		logger:       logger,
	}
}

// Relativize returns the path in containers corresponding to hostPath.
//
// Symlinks are resolved. Paths in the store are rewritten under the store mount,
// and paths in the workspace under the workspace mount.
//
// When the store is not mounted, the task holds workspace paths it reads.
// A workspace symlink into the store is replaced with a copy of its target
// while any task holds it. Release gives it back.
//
// # Returns
//
// - string: path in containers. When hostPath is in neither mount, it is hostPath as is.
//
// - error: ErrOutsideSandbox when hostPath is in neither mount.
// Or, errors caused while materializing symlinks.
func (s *Sandbox) Relativize(ctx context.Context, hostPath string, taskId string) (string, error) {
	hostPath = filepath.Clean(hostPath)
	resolved, err := filepath.EvalSymlinks(hostPath)
	if err != nil {
		// not yet existing. take it as is.
		resolved = hostPath
	}

	if r, ok := rel(s.Store.Host, resolved); ok && s.StoreMounted {
		return filepath.Join(s.Store.Container, r), nil
	}

	if wr, ok := rel(s.Workspace.Host, hostPath); ok {
		if !s.StoreMounted {
			if err := s.hold(ctx, hostPath, taskId); err != nil {
				return "", err
			}
		}
		if r, ok := rel(s.Workspace.Host, resolved); ok {
			return filepath.Join(s.Workspace.Container, r), nil
		}
		// materialized, or a symlink pointing out of the sandbox. containers see the path itself.
		return filepath.Join(s.Workspace.Container, wr), nil
	}

	if _, ok := rel(s.Store.Host, resolved); ok {
		return hostPath, fmt.Errorf("%w: %s is in the store, which is not mounted", ErrOutsideSandbox, hostPath)
	}
	if r, ok := rel(s.Workspace.Host, resolved); ok {
		return filepath.Join(s.Workspace.Container, r), nil
	}
	return hostPath, fmt.Errorf("%w: %s", ErrOutsideSandbox, hostPath)
}

// Release gives back symlinks held by the task, unless other tasks still hold them.
//
// This is a Hook.
func (s *Sandbox) Release(ctx context.Context, taskId string, status domain.ExecutionStatus) error {
	if s.holds == nil {
		return nil
	}
	return s.holds.Release(ctx, taskId, func(link string, target string) error {
		if err := restoreSymlink(link, target); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"task": taskId, "path": link,
			}).Error("failed to restore symlink")
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"task": taskId, "path": link, "status": status,
		}).Info("symlink is restored")
		return nil
	})
}

// HostPath returns the path on hosts corresponding to containerPath.
//
// # Returns
//
// - error: ErrOutsideSandbox when containerPath is in neither mount.
func (s *Sandbox) HostPath(containerPath string) (string, error) {
	containerPath = filepath.Clean(containerPath)
	if r, ok := rel(s.Store.Container, containerPath); ok && s.StoreMounted {
		return filepath.Join(s.Store.Host, r), nil
	}
	if r, ok := rel(s.Workspace.Container, containerPath); ok {
		return filepath.Join(s.Workspace.Host, r), nil
	}
	return containerPath, fmt.Errorf("%w: %s", ErrOutsideSandbox, containerPath)
}

func (s *Sandbox) hold(ctx context.Context, link string, taskId string) error {
	if s.holds == nil {
		linked, err := s.storeLink(link)
		if err != nil {
			return err
		}
		if linked {
			return fmt.Errorf("%w: %s is in the store, which is not mounted", ErrOutsideSandbox, link)
		}
		return nil
	}
	_, err := s.holds.Hold(ctx, taskId, link, func() (string, error) {
		return s.materialize(link, taskId)
	})
	return err
}

// storeLink tells whether link is a workspace symlink into the store.
func (s *Sandbox) storeLink(link string) (bool, error) {
	info, err := os.Lstat(link)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	resolved, err := filepath.EvalSymlinks(link)
	if err != nil {
		// dangling. containers see it as it is.
		return false, nil
	}
	if _, ok := rel(s.Store.Host, resolved); !ok {
		return false, nil
	}

	workspace, err := filepath.EvalSymlinks(s.Workspace.Host)
	if err != nil {
		return false, err
	}
	parent, err := filepath.EvalSymlinks(filepath.Dir(link))
	if err != nil {
		return false, err
	}
	if _, ok := rel(workspace, parent); !ok || info.Mode()&fs.ModeSymlink == 0 {
		// containers cannot follow it, and the store must not be touched.
		return false, fmt.Errorf("%w: %s is under a symlinked directory", ErrOutsideSandbox, link)
	}
	return true, nil
}

// materialize replaces link with a copy of its target, when it is a symlink into the store.
//
// # Returns
//
// - string: the original target of link. "" when link is not replaced.
func (s *Sandbox) materialize(link string, taskId string) (string, error) {
	linked, err := s.storeLink(link)
	if err != nil || !linked {
		return "", err
	}
	dest, err := os.Readlink(link)
	if err != nil {
		return "", err
	}
	target, err := filepath.EvalSymlinks(link)
	if err != nil {
		return "", err
	}

	if err := os.Remove(link); err != nil {
		return "", err
	}
	if err := copyTree(target, link); err != nil {
		if rerr := restoreSymlink(link, dest); rerr != nil {
			return "", errors.Join(err, rerr)
		}
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"task": taskId, "path": link, "target": target,
	}).Info("symlink is materialized")
	return dest, nil
}

func restoreSymlink(link string, dest string) error {
	if err := os.RemoveAll(link); err != nil {
		return err
	}
	return os.Symlink(dest, link)
}

func copyTree(src string, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.CopyFS(dst, os.DirFS(src))
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
