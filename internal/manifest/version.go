package manifest

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// maxVersionParts is the most dot-separated components a version may have.
	maxVersionParts = 4
	// maxVersionPart is the largest value of a single component.
	maxVersionPart = 65535
)

var (
	// ErrInvalidVersion is returned for strings that are not extension versions.
	ErrInvalidVersion = errors.New("invalid extension version")

	errVersionOverflow = errors.New("version component overflow")
)

// Version is a parsed extension version: one to four integers.
type Version []int

// ParseVersion parses a version such as "1.2.3.4".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) > maxVersionParts {
		return nil, fmt.Errorf("%w %q: more than %d parts", ErrInvalidVersion, s, maxVersionParts)
	}

	version := make(Version, 0, len(parts))

	for _, part := range parts {
		value, err := strconv.Atoi(part)
		if err != nil || value < 0 || value > maxVersionPart || part != strconv.Itoa(value) {
			return nil, fmt.Errorf("%w %q: bad component %q", ErrInvalidVersion, s, part)
		}

		version = append(version, value)
	}

	return version, nil
}

// String joins the components with dots.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, value := range v {
		parts[i] = strconv.Itoa(value)
	}

	return strings.Join(parts, ".")
}

// Compare returns -1, 0 or 1. Missing trailing components count as zero.
func (v Version) Compare(other Version) int {
	for i := range max(len(v), len(other)) {
		a, b := v.at(i), other.at(i)

		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}

	return 0
}

// Next returns a copy with the last component incremented.
func (v Version) Next() (Version, error) {
	next := append(Version(nil), v...)
	last := len(next) - 1

	if next[last] == maxVersionPart {
		return nil, fmt.Errorf("%w: %s", errVersionOverflow, v)
	}

	next[last]++

	return next, nil
}

func (v Version) at(i int) int {
	if i < len(v) {
		return v[i]
	}

	return 0
}

// CompareVersions parses and compares two version strings.
func CompareVersions(a, b string) (int, error) {
	left, err := ParseVersion(a)
	if err != nil {
		return 0, err
	}

	right, err := ParseVersion(b)
	if err != nil {
		return 0, err
	}

	return left.Compare(right), nil
}

// IncrementVersion bumps the last component: "1.2.3" becomes "1.2.4".
func IncrementVersion(s string) (string, error) {
	version, err := ParseVersion(s)
	if err != nil {
		return "", err
	}

	next, err := version.Next()
	if err != nil {
		return "", err
	}

	return next.String(), nil
}
