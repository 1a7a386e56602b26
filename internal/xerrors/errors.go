// Package xerrors provides the structured error taxonomy used across devctl.
package xerrors

import (
	"errors"
	"fmt"
	"strings"
)

// Category is the broad classification of an error, per the core's error
// taxonomy (Configuration, NotFound, Authentication, Download, Parse,
// Validation, DependencyCycle, InvalidDependency, Extraction, Installation,
// Runtime, Internal).
type Category string

const (
	CategoryConfiguration     Category = "configuration"
	CategoryNotFound          Category = "not_found"
	CategoryAuthentication    Category = "authentication"
	CategoryDownload          Category = "download"
	CategoryParse             Category = "parse"
	CategoryValidation        Category = "validation"
	CategoryDependencyCycle   Category = "dependency_cycle"
	CategoryInvalidDependency Category = "invalid_dependency"
	CategoryExtraction        Category = "extraction"
	CategoryInstallation      Category = "installation"
	CategoryRuntime           Category = "runtime"
	CategoryInternal          Category = "internal"
)

// Retryable reports whether errors in this category are, by default,
// transient and worth retrying. The retry engine's classifier (see
// internal/retry) consults this, but callers may override per-operation.
func (c Category) Retryable() bool {
	switch c {
	case CategoryDownload:
		return true
	default:
		return false
	}
}

// Error is a structured error carrying category, code, an optional cause,
// a user-facing hint, and free-form context used for redaction-safe
// structured output.
type Error struct {
	Category Category
	Code     string
	Message  string
	Cause    error
	Hint     string
	Context  map[string]string
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s/%s] %s", e.Category, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Description renders the user-visible (message, description) pair used by
// the top-level outcome object (spec §6.8).
func (e *Error) Description() string {
	var sb strings.Builder
	if e.Cause != nil {
		sb.WriteString(e.Cause.Error())
	}
	if e.Hint != "" {
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(e.Hint)
	}
	return sb.String()
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

func (e *Error) WithContext(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func New(category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message}
}

func Newf(category Category, code, format string, args ...interface{}) *Error {
	return &Error{Category: category, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, category Category, code, message string) *Error {
	return &Error{Category: category, Code: code, Message: message, Cause: err}
}

func Wrapf(err error, category Category, code, format string, args ...interface{}) *Error {
	return &Error{Category: category, Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// As attempts to extract *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CategoryOf returns the category of err if it is (or wraps) an *Error.
func CategoryOf(err error) Category {
	if e, ok := As(err); ok {
		return e.Category
	}
	return ""
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// Error codes, grouped by category. These are stable strings used in
// structured JSON output and in tests asserting on failure scenarios.
const (
	CodeConfigNotFound   = "CONFIG_NOT_FOUND"
	CodeConfigParse      = "CONFIG_PARSE"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeConfigValidation = "CONFIG_VALIDATION"

	CodeContainerNotFound  = "CONTAINER_NOT_FOUND"
	CodeContainerAmbiguous = "CONTAINER_AMBIGUOUS"

	CodeAuthFailed = "AUTH_FAILED"

	CodeDownloadFailed = "DOWNLOAD_FAILED"

	CodeManifestParse = "MANIFEST_PARSE"
	CodeFeatureParse  = "FEATURE_PARSE"

	CodeOptionsValidation = "OPTIONS_VALIDATION"
	CodeLockfileMismatch  = "LOCKFILE_MISMATCH"
	CodeOverrideOrder     = "OVERRIDE_ORDER_INVALID"

	CodeDependencyCycle = "DEPENDENCY_CYCLE"

	CodeInvalidDependency = "INVALID_DEPENDENCY"

	CodeExtractionFailed = "EXTRACTION_FAILED"

	CodeInstallationFailed = "INSTALLATION_FAILED"

	CodeRuntimeFailed = "RUNTIME_FAILED"

	CodeLifecycleFailed = "LIFECYCLE_FAILED"

	CodeInternal = "INTERNAL"
)

// Constructors for the most frequently raised errors. These mirror the
// teacher's per-kind constructor functions (internal/errors/errors.go in
// dcx) generalized to the taxonomy above.

func ConfigNotFound(path string) *Error {
	return New(CategoryNotFound, CodeConfigNotFound, "devcontainer configuration not found").
		WithContext("path", path).
		WithHint("create a devcontainer.json in .devcontainer/ or pass --config")
}

func ConfigParse(path string, line, col int, cause error) *Error {
	return Wrapf(cause, CategoryParse, CodeConfigParse, "failed to parse %s", path).
		WithContext("path", path).
		WithContext("line", fmt.Sprintf("%d", line)).
		WithContext("column", fmt.Sprintf("%d", col))
}

func ConfigValidation(message string) *Error {
	return New(CategoryValidation, CodeConfigValidation, message)
}

func ContainerNotFound(selector string) *Error {
	return New(CategoryNotFound, CodeContainerNotFound, "no container matches the identity selector").
		WithContext("selector", selector)
}

func ContainerAmbiguous(ids []string) *Error {
	return New(CategoryValidation, CodeContainerAmbiguous, "multiple containers match the identity selector").
		WithContext("candidates", strings.Join(ids, ","))
}

func AuthFailed(registry string, cause error) *Error {
	return Wrapf(cause, CategoryAuthentication, CodeAuthFailed, "authentication failed for %s", registry).
		WithContext("registry", registry).
		WithHint("check registry credentials (env vars or injected credential provider)")
}

func DownloadFailed(ref string, cause error) *Error {
	return Wrapf(cause, CategoryDownload, CodeDownloadFailed, "failed to download %s", ref).
		WithContext("ref", ref)
}

func FeatureParse(ref string, cause error) *Error {
	return Wrapf(cause, CategoryParse, CodeFeatureParse, "failed to parse feature metadata for %s", ref).
		WithContext("ref", ref)
}

func OptionsValidation(featureID, message string) *Error {
	return Newf(CategoryValidation, CodeOptionsValidation, "feature %s: %s", featureID, message).
		WithContext("feature", featureID)
}

func DependencyCycle(participants []string) *Error {
	return Newf(CategoryDependencyCycle, CodeDependencyCycle, "cycle involving: %s", strings.Join(participants, " -> ")).
		WithContext("cycle", strings.Join(participants, ","))
}

func InvalidDependency(feature, dependency string) *Error {
	return Newf(CategoryInvalidDependency, CodeInvalidDependency, "feature %s depends on unknown feature %s", feature, dependency).
		WithContext("feature", feature).
		WithContext("dependency", dependency)
}

func ExtractionFailed(path string, cause error) *Error {
	return Wrapf(cause, CategoryExtraction, CodeExtractionFailed, "failed to extract %s", path).
		WithContext("path", path)
}

func InstallationFailed(featureID string, exitCode int, cause error) *Error {
	return Wrapf(cause, CategoryInstallation, CodeInstallationFailed, "feature %s install script exited with code %d", featureID, exitCode).
		WithContext("feature", featureID).
		WithContext("exit_code", fmt.Sprintf("%d", exitCode))
}

func RuntimeFailed(operation string, cause error) *Error {
	return Wrapf(cause, CategoryRuntime, CodeRuntimeFailed, "container runtime error during %s", operation).
		WithContext("operation", operation)
}

// LifecycleFailed reports a lifecycle command or group failure. command
// is the failing command's display string, or the group label when the
// failure can't be pinned to a single command. exitCode is -1 when the
// command never produced one (it was cancelled or failed to start).
func LifecycleFailed(phase, command string, exitCode int, cause error) *Error {
	return Wrapf(cause, CategoryRuntime, CodeLifecycleFailed, "%s failed: %s", phase, command).
		WithContext("phase", phase).
		WithContext("command", command).
		WithContext("exit_code", fmt.Sprintf("%d", exitCode))
}

func Internal(message string, cause error) *Error {
	return Wrap(cause, CategoryInternal, CodeInternal, message)
}
