// SPDX-License-Identifier: MPL-2.0

package environment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/botvelocity/bv/internal/fsutil"
	"github.com/botvelocity/bv/internal/logging"
	"github.com/botvelocity/bv/internal/txn"
	"github.com/botvelocity/bv/pkg/platform"

	"github.com/charmbracelet/log"
)

const (
	// DefaultBaseToolchain is used when no interpreter is configured.
	DefaultBaseToolchain = "go"

	binDir      = "bin"
	srcDir      = "src"
	modCacheDir = "pkg/mod"
	goEnvFile   = "go.env"

	latestVersion = "latest"
)

var (
	// ErrEnvironmentMissing is returned when an operation needs an environment that does not exist.
	ErrEnvironmentMissing = errors.New("environment not found")
)

type (
	// Manager owns one environment rooted at Dir.
	Manager struct {
		Dir    string
		Exec   Executor
		Logger *log.Logger
	}

	// EnvironmentError reports a failed environment operation.
	//
	//nolint:revive // EnvironmentError reads better than Error at call sites
	EnvironmentError struct {
		Op  string
		Dir string
		Err error
	}

	// InstallOptions selects what Install resolves.
	InstallOptions struct {
		// Packages are "module/path[@version]" specs. When empty, ManifestPath is read.
		Packages []string
		// ManifestPath is the dependency manifest consulted when Packages is empty.
		ManifestPath string
		// Progress receives subprocess stderr while downloading.
		Progress io.Writer
	}

	// moduleInfo is the subset of `go mod download -json` output the manager reads.
	moduleInfo struct {
		Path    string
		Version string
		Dir     string
		Sum     string
		Error   string
	}
)

// Error implements the error interface.
func (e *EnvironmentError) Error() string {
	return fmt.Sprintf("failed to %s environment at %s: %v", e.Op, e.Dir, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EnvironmentError) Unwrap() error { return e.Err }

// NewManager creates a manager for the environment at dir. A nil executor
// uses os/exec; a nil logger discards diagnostics.
func NewManager(dir string, exec Executor, logger *log.Logger) *Manager {
	if exec == nil {
		exec = ExecExecutor{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{Dir: dir, Exec: exec, Logger: logger}
}

// DriverName returns the toolchain driver's file name for the running platform.
func DriverName() string {
	if runtime.GOOS == platform.Windows {
		return "go.exe"
	}
	return "go"
}

// DriverPath is the environment's own toolchain driver.
func (m *Manager) DriverPath() string {
	return filepath.Join(m.Dir, binDir, DriverName())
}

// GoPath is the GOPATH-layout root that entrypoint imports resolve from.
func (m *Manager) GoPath() string { return m.Dir }

func (m *Manager) statePath() string { return filepath.Join(m.Dir, StateFile) }

// Exists reports whether the environment's driver is present.
func (m *Manager) Exists() bool {
	return fsutil.IsFile(m.DriverPath())
}

// Ensure returns the environment path, creating the environment when it is
// missing and createIfMissing is set.
func (m *Manager) Ensure(ctx context.Context, createIfMissing bool, baseToolchain string) (string, error) {
	if m.Exists() {
		return m.Dir, nil
	}
	if !createIfMissing {
		return "", &EnvironmentError{Op: "locate", Dir: m.Dir, Err: ErrEnvironmentMissing}
	}
	if err := m.Create(ctx, baseToolchain); err != nil {
		return "", err
	}
	return m.Dir, nil
}

// Create materializes a bare environment from the base toolchain, then
// bootstraps and configures the environment's own driver. A directory the
// call created is removed again if any step fails.
func (m *Manager) Create(ctx context.Context, baseToolchain string) error {
	if baseToolchain == "" {
		baseToolchain = DefaultBaseToolchain
	}
	preexisting := fsutil.Exists(m.Dir)

	err := txn.Run(m.Logger, func(s *txn.Scope) error {
		if !preexisting {
			s.Defer("remove environment directory", func() error { return os.RemoveAll(m.Dir) })
		}

		tc, err := m.probeToolchain(ctx, baseToolchain)
		if err != nil {
			return err
		}
		m.Logger.Debug("probed base toolchain", "base", baseToolchain, "goroot", tc.GoRoot, "version", tc.GoVersion)

		for _, dir := range []string{binDir, srcDir, modCacheDir} {
			if err := os.MkdirAll(filepath.Join(m.Dir, dir), 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
		}

		st := &State{Toolchain: *tc}
		if existing, readErr := readState(m.statePath()); readErr == nil {
			st.Packages = existing.Packages
		}
		if err := writeState(m.statePath(), st); err != nil {
			return err
		}

		if err := m.linkDriver(tc.GoRoot); err != nil {
			return err
		}
		s.Defer("remove driver", func() error { return os.Remove(m.DriverPath()) })

		return m.configure(ctx, st)
	})
	if err != nil {
		return &EnvironmentError{Op: "create", Dir: m.Dir, Err: err}
	}

	m.Logger.Debug("environment ready", "dir", m.Dir)
	return nil
}

// probeToolchain asks the base toolchain for its GOROOT and version.
func (m *Manager) probeToolchain(ctx context.Context, base string) (*Toolchain, error) {
	out, err := m.Exec.Run(ctx, Command{Name: base, Args: []string{"env", "-json", "GOROOT", "GOVERSION"}})
	if err != nil {
		return nil, fmt.Errorf("probing base toolchain %q: %w", base, err)
	}
	var vars map[string]string
	if err := json.Unmarshal(out, &vars); err != nil {
		return nil, fmt.Errorf("decoding %q env output: %w", base, err)
	}
	if vars["GOROOT"] == "" {
		return nil, fmt.Errorf("base toolchain %q reported an empty GOROOT", base)
	}
	return &Toolchain{Base: base, GoRoot: vars["GOROOT"], GoVersion: vars["GOVERSION"]}, nil
}

// linkDriver places the base toolchain's driver into bin/, falling back to a
// copy where symlinks are unavailable.
func (m *Manager) linkDriver(goroot string) error {
	src := filepath.Join(goroot, binDir, DriverName())
	dst := m.DriverPath()
	_ = os.Remove(dst)
	if err := os.Symlink(src, dst); err == nil {
		return nil
	}
	if err := fsutil.CopyFileAtomic(src, dst); err != nil {
		return fmt.Errorf("installing toolchain driver: %w", err)
	}
	return nil
}

// configure writes the environment-scoped go.env through the environment's own driver.
func (m *Manager) configure(ctx context.Context, st *State) error {
	args := []string{
		"env", "-w",
		"GOPATH=" + m.Dir,
		"GOMODCACHE=" + filepath.Join(m.Dir, filepath.FromSlash(modCacheDir)),
		"GOBIN=" + filepath.Join(m.Dir, binDir),
		"GOFLAGS=-modcacherw",
	}
	if _, err := m.Exec.Run(ctx, Command{Name: m.DriverPath(), Args: args, Env: m.commandEnv(st)}); err != nil {
		return fmt.Errorf("configuring environment driver: %w", err)
	}
	return nil
}

// commandEnv pins every driver invocation to this environment's toolchain and go.env.
func (m *Manager) commandEnv(st *State) []string {
	return []string{
		"GOROOT=" + st.Toolchain.GoRoot,
		"GOENV=" + filepath.Join(m.Dir, goEnvFile),
		"GOTOOLCHAIN=local",
	}
}

func (m *Manager) requireExisting(op string) (*State, error) {
	if !m.Exists() {
		return nil, &EnvironmentError{Op: op, Dir: m.Dir, Err: ErrEnvironmentMissing}
	}
	st, err := readState(m.statePath())
	if err != nil {
		return nil, &EnvironmentError{Op: op, Dir: m.Dir, Err: err}
	}
	return st, nil
}

// Install downloads modules with the environment's driver and places their
// sources under src/ where entrypoint imports resolve them.
func (m *Manager) Install(ctx context.Context, opts InstallOptions) ([]Package, error) {
	st, err := m.requireExisting("install into")
	if err != nil {
		return nil, err
	}

	specs := opts.Packages
	if len(specs) == 0 && opts.ManifestPath != "" {
		manifest, err := ReadManifest(opts.ManifestPath)
		if err != nil {
			return nil, &EnvironmentError{Op: "install into", Dir: m.Dir, Err: err}
		}
		specs = manifest.Dependencies
	}
	if len(specs) == 0 {
		m.Logger.Debug("nothing to install", "dir", m.Dir)
		return nil, nil
	}

	installed := make([]Package, 0, len(specs))
	for _, spec := range specs {
		info, err := m.download(ctx, st, spec, opts.Progress)
		if err != nil {
			return installed, &EnvironmentError{Op: "install into", Dir: m.Dir, Err: err}
		}
		dest := filepath.Join(m.Dir, srcDir, filepath.FromSlash(info.Path))
		if err := replaceTree(info.Dir, dest); err != nil {
			return installed, &EnvironmentError{Op: "install into", Dir: m.Dir, Err: err}
		}
		pkg := Package{Path: info.Path, Version: info.Version, Sum: info.Sum}
		st.Upsert(pkg)
		installed = append(installed, pkg)
		m.Logger.Debug("installed module", "path", info.Path, "version", info.Version)
	}

	if err := writeState(m.statePath(), st); err != nil {
		return installed, &EnvironmentError{Op: "install into", Dir: m.Dir, Err: err}
	}
	return installed, nil
}

// Lock resolves every recorded package again and renders the lock listing,
// one "path version sum" line per package, sorted by path.
func (m *Manager) Lock(ctx context.Context) ([]byte, error) {
	st, err := m.requireExisting("lock")
	if err != nil {
		return nil, err
	}

	lines := make([]string, 0, len(st.Packages))
	for _, pkg := range st.Packages {
		info, err := m.download(ctx, st, pkg.Path+"@"+pkg.Version, nil)
		if err != nil {
			return nil, &EnvironmentError{Op: "lock", Dir: m.Dir, Err: err}
		}
		lines = append(lines, strings.Join([]string{info.Path, info.Version, info.Sum}, " "))
	}
	slices.Sort(lines)

	var b strings.Builder
	b.WriteString("# go " + st.Toolchain.GoVersion + "\n")
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// Freeze writes the lock listing to output, or returns it when output is "".
func (m *Manager) Freeze(ctx context.Context, output string) ([]byte, error) {
	data, err := m.Lock(ctx)
	if err != nil {
		return nil, err
	}
	if output != "" {
		if err := fsutil.WriteFileAtomic(output, data, 0o644); err != nil {
			return nil, &EnvironmentError{Op: "freeze", Dir: m.Dir, Err: err}
		}
	}
	return data, nil
}

func (m *Manager) download(ctx context.Context, st *State, spec string, progress io.Writer) (*moduleInfo, error) {
	path, version, _ := strings.Cut(spec, "@")
	if path == "" {
		return nil, fmt.Errorf("invalid package spec %q", spec)
	}
	if version == "" {
		version = latestVersion
	}

	out, err := m.Exec.Run(ctx, Command{
		Name:   m.DriverPath(),
		Args:   []string{"mod", "download", "-json", path + "@" + version},
		Env:    m.commandEnv(st),
		Dir:    m.Dir,
		Stderr: progress,
	})
	// go mod download reports resolution failures in the JSON Error field
	// as well as through its exit status.
	var info moduleInfo
	if decodeErr := json.Unmarshal(out, &info); decodeErr != nil {
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", spec, err)
		}
		return nil, fmt.Errorf("decoding download result for %s: %w", spec, decodeErr)
	}
	if info.Error != "" {
		return nil, fmt.Errorf("downloading %s: %s", spec, info.Error)
	}
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", spec, err)
	}
	return &info, nil
}

// replaceTree copies the directory src over dst, removing dst first. Module
// cache trees are read-only, so copied files get fresh writable modes.
func replaceTree(src, dst string) error {
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("clearing %s: %w", dst, err)
	}
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
