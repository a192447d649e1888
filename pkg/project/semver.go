// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

const (
	// BumpMajor increments MAJOR and resets MINOR and PATCH.
	BumpMajor BumpPart = "major"
	// BumpMinor increments MINOR and resets PATCH.
	BumpMinor BumpPart = "minor"
	// BumpPatch increments PATCH.
	BumpPatch BumpPart = "patch"
)

var (
	// ErrInvalidSemVer is the sentinel error wrapped by InvalidSemVerError.
	ErrInvalidSemVer = errors.New("invalid semver")
	// ErrInvalidBumpPart is the sentinel error wrapped by InvalidBumpPartError.
	ErrInvalidBumpPart = errors.New("invalid bump part")

	// semverRegex is the strict MAJOR.MINOR.PATCH[-prerelease][+build] grammar.
	// Leading zeros are rejected in the numeric components.
	semverRegex = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(?:-([0-9A-Za-z\-.]+))?(?:\+([0-9A-Za-z\-.]+))?$`)
)

type (
	// BumpPart names the version component a publish increments.
	BumpPart string

	// Version is a parsed semantic version.
	Version struct {
		Major      uint64
		Minor      uint64
		Patch      uint64
		Prerelease string
		Build      string
	}

	// InvalidSemVerError is returned when a string does not match the strict grammar.
	InvalidSemVerError struct {
		Value string
	}

	// InvalidBumpPartError is returned for a part outside major/minor/patch.
	InvalidBumpPartError struct {
		Value string
	}
)

// Error implements the error interface.
func (e *InvalidSemVerError) Error() string {
	return fmt.Sprintf("Invalid SemVer: %q", e.Value)
}

// Unwrap returns ErrInvalidSemVer for errors.Is() compatibility.
func (e *InvalidSemVerError) Unwrap() error { return ErrInvalidSemVer }

// Error implements the error interface.
func (e *InvalidBumpPartError) Error() string {
	return fmt.Sprintf("invalid bump part %q: part must be one of: major, minor, patch", e.Value)
}

// Unwrap returns ErrInvalidBumpPart for errors.Is() compatibility.
func (e *InvalidBumpPartError) Unwrap() error { return ErrInvalidBumpPart }

// ParseBumpPart converts a user-supplied part name into a BumpPart.
func ParseBumpPart(s string) (BumpPart, error) {
	p := BumpPart(s)
	if !p.IsValid() {
		return "", &InvalidBumpPartError{Value: s}
	}
	return p, nil
}

// IsValid reports whether p is one of the three bumpable parts.
func (p BumpPart) IsValid() bool {
	switch p {
	case BumpMajor, BumpMinor, BumpPatch:
		return true
	default:
		return false
	}
}

// String returns the part name.
func (p BumpPart) String() string { return string(p) }

// IsValidSemVer reports whether s matches the strict grammar.
func IsValidSemVer(s string) bool {
	return semverRegex.MatchString(s)
}

// ParseVersion parses s with the strict grammar.
func ParseVersion(s string) (Version, error) {
	m := semverRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, &InvalidSemVerError{Value: s}
	}

	var (
		v    Version
		errs [3]error
	)
	v.Major, errs[0] = strconv.ParseUint(m[1], 10, 64)
	v.Minor, errs[1] = strconv.ParseUint(m[2], 10, 64)
	v.Patch, errs[2] = strconv.ParseUint(m[3], 10, 64)
	if err := errors.Join(errs[:]...); err != nil {
		// Components beyond uint64 are syntactically valid but not bumpable.
		return Version{}, fmt.Errorf("%w: %w", &InvalidSemVerError{Value: s}, err)
	}
	v.Prerelease = m[4]
	v.Build = m[5]
	return v, nil
}

// String renders the version in canonical form.
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	if v.Build != "" {
		s += "+" + v.Build
	}
	return s
}

// Bump returns the next release for part. Prerelease and build metadata are dropped.
func (v Version) Bump(part BumpPart) (Version, error) {
	switch part {
	case BumpMajor:
		return Version{Major: v.Major + 1}, nil
	case BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}, nil
	case BumpPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}, nil
	default:
		return Version{}, &InvalidBumpPartError{Value: string(part)}
	}
}

// BumpSemVer parses version, increments part and returns the canonical result.
//
//	BumpSemVer("1.2.3", BumpPatch)         // "1.2.4"
//	BumpSemVer("1.2.3-alpha.1", BumpPatch) // "1.2.4"
//	BumpSemVer("1.2.3", BumpMajor)         // "2.0.0"
func BumpSemVer(version string, part BumpPart) (string, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return "", err
	}
	next, err := v.Bump(part)
	if err != nil {
		return "", err
	}
	return next.String(), nil
}
