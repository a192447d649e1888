// SPDX-License-Identifier: MPL-2.0

package archive

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
)

// maxMetadataBytes bounds the generated JSON members read during verification.
const maxMetadataBytes = 4 << 20

// ErrIntegrity is the sentinel error wrapped by IntegrityError.
var ErrIntegrity = errors.New("package integrity check failed")

// IntegrityError reports an archive that does not match the expected
// project identity or is structurally unusable.
type IntegrityError struct {
	Path   string
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap returns ErrIntegrity and the underlying cause, if any.
func (e *IntegrityError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrIntegrity, e.Err}
	}
	return []error{ErrIntegrity}
}

// Verify checks that the archive at path belongs to project name at version,
// that its entrypoint index is usable, and that every member listed in the
// manifest matches its recorded digest.
func Verify(path, name, version string) error {
	fail := func(reason string, err error) error {
		return &IntegrityError{Path: path, Reason: reason, Err: err}
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return fail("unable to open package "+path, err)
	}
	defer func() { _ = r.Close() }()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		files[f.Name] = f
	}

	manifestFile, ok := files[ManifestName]
	if !ok {
		return fail("Package manifest.json missing", nil)
	}
	var manifest map[string]any
	if err := readJSONMember(manifestFile, &manifest); err != nil {
		return fail("Package manifest.json is not a valid JSON object", err)
	}

	if found, _ := manifest["name"].(string); found != name {
		return fail(fmt.Sprintf("Package name mismatch: expected '%s', found '%s'", name, found), nil)
	}
	if found, _ := manifest["version"].(string); found != version {
		return fail(fmt.Sprintf("Package version mismatch: expected '%s', found '%s'", version, found), nil)
	}

	if err := verifyEntryPoints(files[EntryPointsName], fail); err != nil {
		return err
	}

	return verifyDigests(manifest["files"], files, fail)
}

func verifyEntryPoints(f *zip.File, fail func(string, error) error) error {
	const missing = "Package entry-points.json missing or empty"
	if f == nil {
		return fail(missing, nil)
	}
	var index map[string]any
	if err := readJSONMember(f, &index); err != nil {
		return fail("Package entry-points.json is not a valid JSON object", err)
	}
	entries, _ := index["entryPoints"].([]any)
	if len(entries) == 0 {
		return fail(missing, nil)
	}
	for i, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			return fail(fmt.Sprintf("Entrypoint at index %d is not an object", i), nil)
		}
		entryName, _ := entry["name"].(string)
		function, _ := entry["function"].(string)
		if entryName == "" || function == "" {
			return fail(fmt.Sprintf("Entrypoint at index %d missing name or function", i), nil)
		}
	}
	return nil
}

func verifyDigests(raw any, files map[string]*zip.File, fail func(string, error) error) error {
	if raw == nil {
		return nil
	}
	listed, ok := raw.(map[string]any)
	if !ok {
		return fail("Package manifest.json files must be an object", nil)
	}

	names := make([]string, 0, len(listed))
	for n := range listed {
		names = append(names, n)
	}
	slices.Sort(names)

	for _, n := range names {
		want, _ := listed[n].(string)
		hexWant, ok := strings.CutPrefix(want, digestPrefix)
		if !ok {
			return fail(fmt.Sprintf("Package member '%s' has an unsupported digest %q", n, want), nil)
		}
		f, ok := files[n]
		if !ok {
			return fail(fmt.Sprintf("Package member '%s' listed in manifest is missing", n), nil)
		}
		got, err := memberDigest(f)
		if err != nil {
			return fail(fmt.Sprintf("Package member '%s' could not be read", n), err)
		}
		if got != hexWant {
			return fail(fmt.Sprintf("Package member '%s' digest mismatch", n), nil)
		}
	}
	return nil
}

func readJSONMember(f *zip.File, v any) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, maxMetadataBytes+1))
	if err != nil {
		return err
	}
	if len(data) > maxMetadataBytes {
		return fmt.Errorf("%s exceeds %d bytes", f.Name, maxMetadataBytes)
	}
	return json.Unmarshal(data, v)
}

func memberDigest(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	h := blake3.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
