package models

import (
	"fmt"
	"strings"
)

// ErrorType identifies the category of error that occurred.
type ErrorType string

const (
	// Catalog phase
	ErrCatalogUnavailable  ErrorType = "catalog_unavailable"
	ErrDescriptorFetch     ErrorType = "descriptor_fetch_failed"
	ErrMalformedDescriptor ErrorType = "malformed_descriptor"

	// Resolution phase
	ErrUnknownVersion    ErrorType = "unknown_version"
	ErrCyclicInheritance ErrorType = "cyclic_inheritance"

	// Download phase
	ErrIntegrityMismatch ErrorType = "integrity_mismatch"
	ErrSizeMismatch      ErrorType = "size_mismatch"
	ErrTransientNetwork  ErrorType = "transient_network"
	ErrHTTPClient        ErrorType = "http_4xx"
	ErrCancelled         ErrorType = "cancelled"
	ErrFilesystem        ErrorType = "filesystem"
	ErrInvalidRequest    ErrorType = "invalid_request"
	ErrUnsupportedDigest ErrorType = "unsupported_digest"

	// Materialize phase
	ErrIncompleteInstall ErrorType = "incomplete_install"
	ErrInstanceConflict  ErrorType = "instance_conflict"
)

// CatalogUnavailableError means neither the remote manifest nor a
// cached copy could be read.
type CatalogUnavailableError struct {
	URL string
	Err error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("catalog %s unavailable and no cached copy: %v", e.URL, e.Err)
}

func (e *CatalogUnavailableError) Unwrap() error { return e.Err }

// DescriptorFetchError is a non-2xx response for a version descriptor.
type DescriptorFetchError struct {
	Status   int
	Location string
	Err      error
}

func (e *DescriptorFetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("fetching descriptor %s: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("fetching descriptor %s: HTTP %d", e.Location, e.Status)
}

func (e *DescriptorFetchError) Unwrap() error { return e.Err }

// MalformedDescriptorError is a descriptor that violates the schema.
type MalformedDescriptorError struct {
	Location string
	Reason   string
	Err      error
}

func (e *MalformedDescriptorError) Error() string {
	msg := fmt.Sprintf("malformed descriptor %s: %s", e.Location, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedDescriptorError) Unwrap() error { return e.Err }

// UnknownVersionError is a version ID with no catalog entry. Chain is
// set when the missing ID is a parent.
type UnknownVersionError struct {
	VersionID string
	Chain     []string
}

func (e *UnknownVersionError) Error() string {
	if len(e.Chain) > 0 {
		return fmt.Sprintf("unknown version %q (inherited via %s)", e.VersionID, strings.Join(e.Chain, " -> "))
	}
	return fmt.Sprintf("unknown version %q", e.VersionID)
}

// CyclicInheritanceError is a parent chain that revisits a version.
type CyclicInheritanceError struct {
	Chain []string
}

func (e *CyclicInheritanceError) Error() string {
	return "cyclic inheritance: " + strings.Join(e.Chain, " -> ")
}

// DownloadError is the failure of one artifact after any retries.
type DownloadError struct {
	Type       ErrorType
	Key        string
	URL        string
	StatusCode int
	Expected   string
	Actual     string
	Attempts   int
	Err        error
}

func (e *DownloadError) Error() string {
	switch e.Type {
	case ErrIntegrityMismatch:
		return fmt.Sprintf("artifact %s: integrity mismatch: expected %s, got %s", e.Key, e.Expected, e.Actual)
	case ErrSizeMismatch:
		return fmt.Sprintf("artifact %s: size mismatch: expected %s bytes, got %s", e.Key, e.Expected, e.Actual)
	case ErrHTTPClient:
		return fmt.Sprintf("artifact %s: HTTP %d from %s", e.Key, e.StatusCode, e.URL)
	case ErrTransientNetwork:
		return fmt.Sprintf("artifact %s: giving up after %d attempts: %v", e.Key, e.Attempts, e.Err)
	default:
		return fmt.Sprintf("artifact %s: %s: %v", e.Key, e.Type, e.Err)
	}
}

func (e *DownloadError) Unwrap() error { return e.Err }

// IncompleteInstallError lists the artifacts that failed, in input order.
type IncompleteInstallError struct {
	InstanceID string
	FailedKeys []string
	Errs       []error
}

func (e *IncompleteInstallError) Error() string {
	return fmt.Sprintf("instance %s incomplete: %d artifact(s) failed: %s",
		e.InstanceID, len(e.FailedKeys), strings.Join(e.FailedKeys, ", "))
}

// InstanceConflictError means the instance ID already holds another version.
type InstanceConflictError struct {
	InstanceID       string
	InstalledVersion string
	RequestedVersion string
}

func (e *InstanceConflictError) Error() string {
	return fmt.Sprintf("instance %s already holds version %s, refusing to install %s",
		e.InstanceID, e.InstalledVersion, e.RequestedVersion)
}
