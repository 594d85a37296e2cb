package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingChecksum marks an artifact whose sibling digest object is
	// absent. Distinct from a digest mismatch.
	ErrMissingChecksum = errors.New("missing checksum object")

	// ErrConcurrentUpdate is returned when the control document keeps
	// changing under a read-modify-write cycle.
	ErrConcurrentUpdate = errors.New("registry metadata was modified concurrently")
)

// NotFoundError reports an absent package, lock record or backup record.
type NotFoundError struct {
	Kind      string // "package", "lock" or "backup"
	Name      string
	Version   string
	Timestamp string
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case "lock":
		return fmt.Sprintf("package %s@%s is not locked", e.Name, e.Version)
	case "backup":
		if e.Timestamp != "" {
			return fmt.Sprintf("no backup of %s@%s found with timestamp %s", e.Name, e.Version, e.Timestamp)
		}
		return fmt.Sprintf("no backups found for package %s@%s", e.Name, e.Version)
	default:
		return fmt.Sprintf("package %s@%s does not exist", e.Name, e.Version)
	}
}

// VersionExistsError reports a non-forced push of a version that is already
// stored.
type VersionExistsError struct {
	Name    string
	Version string
}

func (e *VersionExistsError) Error() string {
	return fmt.Sprintf("package %s@%s already exists; use --force to overwrite or choose a different version", e.Name, e.Version)
}

// HigherVersionError reports a non-forced push of a version below the
// highest one already stored.
type HigherVersionError struct {
	Name      string
	Requested string
	Existing  string
}

func (e *HigherVersionError) Error() string {
	return fmt.Sprintf("a higher version (%s) of package %s already exists; current version: %s; use --force to ignore or choose a higher version",
		e.Existing, e.Name, e.Requested)
}

// LockedError reports a push that would overwrite a locked package.
type LockedError struct {
	Name    string
	Version string
	Reason  string
}

func (e *LockedError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "unknown"
	}
	return fmt.Sprintf("package %s@%s is locked and cannot be modified; reason: %s", e.Name, e.Version, reason)
}

// AlreadyLockedError reports a lock attempt on a package that already has a
// lock record.
type AlreadyLockedError struct {
	Name    string
	Version string
}

func (e *AlreadyLockedError) Error() string {
	return fmt.Sprintf("package %s@%s is already locked", e.Name, e.Version)
}

// ChecksumMismatchError reports a digest verification failure on pull.
type ChecksumMismatchError struct {
	Name     string
	Version  string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum verification failed for %s@%s: expected %s, got %s",
		e.Name, e.Version, e.Expected, e.Actual)
}
