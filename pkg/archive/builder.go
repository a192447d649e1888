// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/botvelocity/bv/internal/logging"
	"github.com/botvelocity/bv/pkg/entrypoint"
	"github.com/botvelocity/bv/pkg/project"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
)

const (
	// Extension is the archive file suffix.
	Extension = ".bvpackage"
	// ManifestName is the generated package manifest member.
	ManifestName = "manifest.json"
	// EntryPointsName is the generated entrypoint index member.
	EntryPointsName = "entry-points.json"
	// LockName is the environment lock member.
	LockName = "environment.lock"

	digestPrefix = "blake3:"
	entryType    = "agent"
)

// memberTime is stamped on every member so identical inputs produce identical bytes.
var memberTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrSourceNotFound is returned when a requested source path does not exist.
var ErrSourceNotFound = errors.New("source not found")

type (
	// Locker produces the environment lock listing embedded in the archive.
	Locker interface {
		Lock(ctx context.Context) ([]byte, error)
	}

	// Request describes one archive build.
	Request struct {
		// Root is the project root all Sources are relative to.
		Root string
		// Config is the validated project configuration being packaged.
		Config *project.Config
		// Target is the archive path; Extension is appended when missing.
		Target string
		// Sources are project-relative files or directories.
		Sources []string
		// Exclude are project-relative directories skipped while walking.
		Exclude []string
		// Locker, when set, contributes the environment lock member.
		Locker Locker
		// DryRun resolves the target path and member list without writing.
		DryRun bool
	}

	// Result describes a built (or planned) archive.
	Result struct {
		Path  string
		Files []string
		Size  int64
	}

	// Builder writes project archives.
	Builder struct {
		// Generator is recorded in the manifest.
		Generator string
		Logger    *log.Logger
	}

	// Manifest is the content of manifest.json.
	Manifest struct {
		Name        string            `json:"name"`
		Version     string            `json:"version"`
		Generator   string            `json:"generator"`
		Default     string            `json:"default"`
		Entrypoints []string          `json:"entrypoints"`
		Files       map[string]string `json:"files"`
	}

	// EntryPointsIndex is the content of entry-points.json.
	EntryPointsIndex struct {
		EntryPoints []EntryPointRecord `json:"entryPoints"`
	}

	// EntryPointRecord is one entry of entry-points.json.
	EntryPointRecord struct {
		Name     string `json:"name"`
		FilePath string `json:"filePath"`
		Function string `json:"function"`
		Type     string `json:"type"`
		Default  bool   `json:"default"`
	}

	// member is one file scheduled for the archive.
	member struct {
		name string // slash-separated archive path
		path string // source path on disk, empty for generated members
		data []byte // content of generated members
	}
)

// NewBuilder creates a builder. A nil logger discards diagnostics.
func NewBuilder(generator string, logger *log.Logger) *Builder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{Generator: generator, Logger: logger}
}

// TargetPath appends Extension to target when it is missing.
func TargetPath(target string) string {
	if strings.HasSuffix(target, Extension) {
		return target
	}
	return target + Extension
}

// NewEntryPointsIndex derives entry-points.json content from cfg.
func NewEntryPointsIndex(cfg *project.Config) (*EntryPointsIndex, error) {
	idx := &EntryPointsIndex{EntryPoints: make([]EntryPointRecord, 0, len(cfg.Entrypoints))}
	for _, ep := range cfg.Entrypoints {
		target, err := entrypoint.ParseCommand(ep.Command)
		if err != nil {
			return nil, &entrypoint.EntrypointError{Name: ep.Name, Err: err}
		}
		idx.EntryPoints = append(idx.EntryPoints, EntryPointRecord{
			Name:     ep.Name,
			FilePath: target.File(),
			Function: target.Function,
			Type:     entryType,
			Default:  ep.Default,
		})
	}
	return idx, nil
}

// Build resolves the source set and writes the archive through a temporary
// sibling of the target. The returned member list is sorted.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	target, err := filepath.Abs(TargetPath(req.Target))
	if err != nil {
		return nil, fmt.Errorf("resolving archive path: %w", err)
	}

	members, err := b.collect(req, target)
	if err != nil {
		return nil, err
	}

	idx, err := NewEntryPointsIndex(req.Config)
	if err != nil {
		return nil, err
	}
	idxData, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", EntryPointsName, err)
	}
	members = append(members, member{name: EntryPointsName, data: idxData})

	if req.Locker != nil && !req.DryRun {
		lock, err := req.Locker.Lock(ctx)
		if err != nil {
			return nil, fmt.Errorf("locking environment: %w", err)
		}
		members = append(members, member{name: LockName, data: lock})
	} else if req.Locker != nil {
		members = append(members, member{name: LockName})
	}

	slices.SortFunc(members, func(a, b member) int { return strings.Compare(a.name, b.name) })

	names := make([]string, 0, len(members)+1)
	names = append(names, ManifestName)
	for _, m := range members {
		names = append(names, m.name)
	}
	slices.Sort(names)

	if req.DryRun {
		b.Logger.Debug("dry run: archive not written", "path", target, "members", len(names))
		return &Result{Path: target, Files: names}, nil
	}

	size, err := b.write(ctx, target, req.Config, members)
	if err != nil {
		return nil, err
	}
	b.Logger.Debug("archive written", "path", target, "members", len(names), "bytes", size)
	return &Result{Path: target, Files: names, Size: size}, nil
}

// collect expands Sources into a deduplicated member set. Generated member
// names shadow project files of the same name.
func (b *Builder) collect(req Request, target string) ([]member, error) {
	root, err := filepath.Abs(req.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving project root: %w", err)
	}

	excluded := make(map[string]bool, len(req.Exclude))
	for _, ex := range req.Exclude {
		excluded[filepath.Join(root, filepath.FromSlash(ex))] = true
	}
	reserved := map[string]bool{ManifestName: true, EntryPointsName: true, LockName: true}

	seen := make(map[string]bool)
	var members []member
	add := func(abs string) error {
		if abs == target || strings.HasPrefix(filepath.Base(abs), ".bv-tmp-") {
			return nil
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return fmt.Errorf("source %s is outside the project root", abs)
		}
		name := filepath.ToSlash(rel)
		if seen[name] || reserved[name] {
			return nil
		}
		seen[name] = true
		members = append(members, member{name: name, path: abs})
		return nil
	}

	sources := slices.Clone(req.Sources)
	slices.Sort(sources)
	sources = slices.Compact(sources)

	for _, src := range sources {
		abs := src
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, filepath.FromSlash(src))
		}
		info, err := os.Stat(abs)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
			}
			return nil, fmt.Errorf("stat %s: %w", src, err)
		}
		if !info.IsDir() {
			if err := add(abs); err != nil {
				return nil, err
			}
			continue
		}
		walkErr := filepath.WalkDir(abs, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				if excluded[p] {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}
			return add(p)
		})
		if walkErr != nil {
			return nil, fmt.Errorf("walking %s: %w", src, walkErr)
		}
	}
	return members, nil
}

func (b *Builder) write(ctx context.Context, target string, cfg *project.Config, members []member) (size int64, err error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".bv-tmp-*"+Extension)
	if err != nil {
		return 0, fmt.Errorf("creating temp archive: %w", err)
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			_ = os.Remove(tmpPath)
		}
	}()

	if writeErr := func() (writeErr error) {
		defer func() {
			if closeErr := tmp.Close(); closeErr != nil && writeErr == nil {
				writeErr = closeErr
			}
		}()

		zw := zip.NewWriter(tmp)
		digests := make(map[string]string, len(members))
		for _, m := range members {
			if err := ctx.Err(); err != nil {
				return err
			}
			sum, err := writeMember(zw, m)
			if err != nil {
				return fmt.Errorf("adding %s: %w", m.name, err)
			}
			digests[m.name] = digestPrefix + sum
		}

		manifest := b.manifest(cfg, digests)
		data, err := json.MarshalIndent(manifest, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %s: %w", ManifestName, err)
		}
		if _, err := writeMember(zw, member{name: ManifestName, data: data}); err != nil {
			return fmt.Errorf("adding %s: %w", ManifestName, err)
		}
		if err := zw.Close(); err != nil {
			return err
		}
		return tmp.Sync()
	}(); writeErr != nil {
		return 0, fmt.Errorf("writing archive %s: %w", target, writeErr)
	}

	info, err := os.Stat(tmpPath)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return 0, fmt.Errorf("placing archive %s: %w", target, err)
	}
	renamed = true
	return info.Size(), nil
}

func (b *Builder) manifest(cfg *project.Config, digests map[string]string) *Manifest {
	m := &Manifest{
		Name:      cfg.Name,
		Version:   cfg.Version,
		Generator: b.Generator,
		Files:     digests,
	}
	for _, ep := range cfg.Entrypoints {
		m.Entrypoints = append(m.Entrypoints, ep.Name)
		if ep.Default {
			m.Default = ep.Name
		}
	}
	return m
}

// writeMember stores one member with a fixed timestamp and returns the hex
// blake3 digest of its content.
func writeMember(zw *zip.Writer, m member) (string, error) {
	hdr := &zip.FileHeader{
		Name:     m.name,
		Method:   zip.Deflate,
		Modified: memberTime,
	}
	hdr.SetMode(0o644)

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return "", err
	}

	hasher := blake3.New()
	dst := io.MultiWriter(w, hasher)

	if m.path == "" {
		if _, err := dst.Write(m.data); err != nil {
			return "", err
		}
		return hex.EncodeToString(hasher.Sum(nil)), nil
	}

	f, err := os.Open(m.path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(dst, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
