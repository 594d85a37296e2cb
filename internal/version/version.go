package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version represents a semantic version
type Version struct {
	Major int
	Minor int
	Patch int
	Pre   string // Pre-release identifier (e.g., "alpha", "beta.1")
	Build string // Build metadata (e.g., "20230101.abcd123")
}

// Parse parses a semantic version string into a Version struct
func Parse(versionStr string) (*Version, error) {
	if versionStr == "" {
		return nil, fmt.Errorf("version cannot be empty")
	}

	// Handle build metadata (+)
	var buildMeta string
	if idx := strings.Index(versionStr, "+"); idx != -1 {
		buildMeta = versionStr[idx+1:]
		versionStr = versionStr[:idx]
	}

	// Handle pre-release (-)
	var preRelease string
	if idx := strings.Index(versionStr, "-"); idx != -1 {
		preRelease = versionStr[idx+1:]
		versionStr = versionStr[:idx]
	}

	// Parse major.minor.patch
	parts := strings.Split(versionStr, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid version format: expected x.y.z, got %s", versionStr)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return nil, fmt.Errorf("invalid major version: %s", parts[0])
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return nil, fmt.Errorf("invalid minor version: %s", parts[1])
	}

	patch, err := strconv.Atoi(parts[2])
	if err != nil || patch < 0 {
		return nil, fmt.Errorf("invalid patch version: %s", parts[2])
	}

	return &Version{
		Major: major,
		Minor: minor,
		Patch: patch,
		Pre:   preRelease,
		Build: buildMeta,
	}, nil
}

// String returns the string representation of the version
func (v *Version) String() string {
	result := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)

	if v.Pre != "" {
		result += "-" + v.Pre
	}

	if v.Build != "" {
		result += "+" + v.Build
	}

	return result
}

// Compare compares two versions and returns:
// -1 if v < other
//
//	0 if v == other
//	1 if v > other
func (v *Version) Compare(other *Version) int {
	if v.Major != other.Major {
		if v.Major > other.Major {
			return 1
		}
		return -1
	}

	if v.Minor != other.Minor {
		if v.Minor > other.Minor {
			return 1
		}
		return -1
	}

	if v.Patch != other.Patch {
		if v.Patch > other.Patch {
			return 1
		}
		return -1
	}

	// Per semver: 1.0.0-alpha < 1.0.0
	if v.Pre == "" && other.Pre != "" {
		return 1
	}
	if v.Pre != "" && other.Pre == "" {
		return -1
	}
	if v.Pre != "" && other.Pre != "" {
		if v.Pre > other.Pre {
			return 1
		} else if v.Pre < other.Pre {
			return -1
		}
	}

	// Build metadata is ignored in precedence comparison
	return 0
}

// IsGreaterThan returns true if v > other
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// IsLessThan returns true if v < other
func (v *Version) IsLessThan(other *Version) bool {
	return v.Compare(other) < 0
}

// IsEqual returns true if v == other (ignoring build metadata)
func (v *Version) IsEqual(other *Version) bool {
	return v.Compare(other) == 0
}

// Highest returns the highest parseable version among candidates, or nil
// if none of them parse. Candidates that are not valid semantic versions
// are skipped.
func Highest(candidates []string) *Version {
	var best *Version
	for _, c := range candidates {
		v, err := Parse(c)
		if err != nil {
			continue
		}
		if best == nil || v.IsGreaterThan(best) {
			best = v
		}
	}
	return best
}
