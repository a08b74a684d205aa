// Package pgerrors provides structured error types for pgbranch.
package pgerrors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Code identifies a pgbranch error kind, used as the `kind` field of the
// --json error envelope.
type Code string

const (
	CodeConfigInvalid      Code = "ConfigInvalid"
	CodeConfigMissing      Code = "ConfigMissing"
	CodeStateIncompatible  Code = "StateIncompatible"
	CodeNameCollision      Code = "NameCollision"
	CodeParentMissing      Code = "ParentMissing"
	CodeBackendUnavailable Code = "BackendUnavailable"
	CodeTemplateBusy       Code = "TemplateBusy"
	CodeStorageUnavailable Code = "StorageUnavailable"
	CodeSourceBusy         Code = "SourceBusy"
	CodeContainerFailed    Code = "ContainerFailed"
	CodeReadinessTimeout   Code = "ReadinessTimeout"
	CodePermissionDenied   Code = "PermissionDenied"
	CodePolicyBlocked      Code = "PolicyBlocked"
	CodeTimeout            Code = "Timeout"
	CodeUserAborted        Code = "UserAborted"
	CodeIoError            Code = "IoError"
	CodeRemoteApiError     Code = "RemoteApiError"
	CodeBranchNotFound     Code = "BranchNotFound"
	CodeInvalidBranchName  Code = "InvalidBranchName"
	CodeUnknown            Code = "Unknown"
)

// Category groups error codes for process exit-code mapping.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNotFound
	CategoryBadRequest
	CategoryConflict
	CategoryUnavailable
	CategoryTimeout
	CategoryPolicy
	CategoryAborted
	CategoryInternal
)

var codeCategories = map[Code]Category{
	CodeConfigInvalid:      CategoryBadRequest,
	CodeConfigMissing:      CategoryBadRequest,
	CodeStateIncompatible:  CategoryConflict,
	CodeNameCollision:      CategoryConflict,
	CodeParentMissing:      CategoryNotFound,
	CodeBackendUnavailable: CategoryUnavailable,
	CodeTemplateBusy:       CategoryConflict,
	CodeStorageUnavailable: CategoryUnavailable,
	CodeSourceBusy:         CategoryConflict,
	CodeContainerFailed:    CategoryInternal,
	CodeReadinessTimeout:   CategoryTimeout,
	CodePermissionDenied:   CategoryBadRequest,
	CodePolicyBlocked:      CategoryPolicy,
	CodeTimeout:            CategoryTimeout,
	CodeUserAborted:        CategoryAborted,
	CodeIoError:            CategoryInternal,
	CodeRemoteApiError:     CategoryUnavailable,
	CodeBranchNotFound:     CategoryNotFound,
	CodeInvalidBranchName:  CategoryBadRequest,
}

// ExitCode returns the process exit status for a category: 2 through 7
// for the specific categories, 130 (the shell's interrupt status) for
// an aborted operation, and 1 otherwise.
func (c Category) ExitCode() int {
	switch c {
	case CategoryNotFound:
		return 2
	case CategoryBadRequest:
		return 3
	case CategoryConflict:
		return 4
	case CategoryUnavailable:
		return 5
	case CategoryTimeout:
		return 6
	case CategoryPolicy:
		return 7
	case CategoryAborted:
		return 130
	default:
		return 1
	}
}

// BranchError is the structured error type for pgbranch. It carries a
// stable Code, a short What (cause), an optional Why (context) and Fix
// (hint), and free-form operation Context (project/branch/phase).
type BranchError struct {
	Code    Code              `json:"kind"`
	What    string            `json:"message"`
	Why     string            `json:"why,omitempty"`
	Fix     string            `json:"fix,omitempty"`
	Context map[string]string `json:"context,omitempty"`
	Cause   error             `json:"-"`
}

func (e *BranchError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause, if any.
func (e *BranchError) Unwrap() error { return e.Cause }

// Is reports whether target is a *BranchError with the same Code.
func (e *BranchError) Is(target error) bool {
	t, ok := target.(*BranchError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Category returns the error category used for exit-code mapping.
func (e *BranchError) Category() Category {
	if cat, ok := codeCategories[e.Code]; ok {
		return cat
	}
	return CategoryUnknown
}

// ExitCode returns the process exit status for this error.
func (e *BranchError) ExitCode() int {
	return e.Category().ExitCode()
}

// WithContext returns a copy of e with the given operation context key set.
func (e *BranchError) WithContext(key, value string) *BranchError {
	cp := *e
	ctx := make(map[string]string, len(e.Context)+1)
	for k, v := range e.Context {
		ctx[k] = v
	}
	ctx[key] = value
	cp.Context = ctx
	return &cp
}

// WithCause returns a copy of e with Cause set.
func (e *BranchError) WithCause(err error) *BranchError {
	cp := *e
	cp.Cause = err
	return &cp
}

// UserMessage renders a single-line cause plus a hint, for interactive CLI output.
func (e *BranchError) UserMessage() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(" (")
		b.WriteString(e.Why)
		b.WriteString(")")
	}
	if e.Fix != "" {
		b.WriteString("\nhint: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// Envelope is the {ok:false, error:{...}} document emitted on stdout in
// --json mode.
type Envelope struct {
	OK    bool         `json:"ok"`
	Error *BranchError `json:"error"`
}

// MarshalJSON implements json.Marshaler, including the cause's message.
func (e *BranchError) MarshalJSON() ([]byte, error) {
	type alias BranchError
	aux := struct {
		*alias
		Cause string `json:"cause,omitempty"`
	}{alias: (*alias)(e)}
	if e.Cause != nil {
		aux.Cause = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// JSONEnvelope renders err (wrapping it if it is not already a *BranchError)
// as the --json error document.
func JSONEnvelope(err error) Envelope {
	if be, ok := err.(*BranchError); ok {
		return Envelope{OK: false, Error: be}
	}
	return Envelope{OK: false, Error: &BranchError{Code: CodeUnknown, What: err.Error()}}
}

// As reports whether err (or anything it wraps) is a *BranchError, storing
// it in target.
func As(err error, target **BranchError) bool {
	for err != nil {
		if be, ok := err.(*BranchError); ok {
			*target = be
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// --- constructors for the taxonomy in § Error Handling Design ---

func ConfigInvalid(field, reason string) *BranchError {
	return &BranchError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "check .pgbranch.yml and fix the invalid field",
	}
}

func ConfigMissing(field string) *BranchError {
	return &BranchError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required configuration: %s", field),
		Fix:  fmt.Sprintf("add %q to .pgbranch.yml", field),
	}
}

func StateIncompatible(found, want int) *BranchError {
	return &BranchError{
		Code: CodeStateIncompatible,
		What: fmt.Sprintf("local state schema version %d is not supported (expected %d)", found, want),
		Fix:  "upgrade pgbranch, or remove the local state file to reset it",
	}
}

func NameCollision(name string) *BranchError {
	return &BranchError{
		Code: CodeNameCollision,
		What: fmt.Sprintf("database name for branch %q is already in use", name),
		Why:  "derived database names must be unique within the backend scope",
		Fix:  "choose a different branch name or delete the conflicting branch",
	}
}

func ParentMissing(parent string) *BranchError {
	return &BranchError{
		Code: CodeParentMissing,
		What: fmt.Sprintf("parent branch %q does not exist", parent),
		Fix:  "create the parent branch first, or omit --from to branch from the project root",
	}
}

func BackendUnavailable(kind, reason string) *BranchError {
	return &BranchError{
		Code: CodeBackendUnavailable,
		What: fmt.Sprintf("backend %q is unavailable", kind),
		Why:  reason,
		Fix:  "run 'pgbranch doctor' to diagnose backend connectivity",
	}
}

func TemplateBusy(template string) *BranchError {
	return &BranchError{
		Code: CodeTemplateBusy,
		What: fmt.Sprintf("template database %q has active connections", template),
		Why:  "CREATE DATABASE ... WITH TEMPLATE requires no other sessions on the template",
		Fix:  "close open sessions on the template database and retry",
	}
}

func StorageUnavailable(strategy string) *BranchError {
	return &BranchError{
		Code: CodeStorageUnavailable,
		What: fmt.Sprintf("storage strategy %q is no longer available", strategy),
		Fix:  "run 'pgbranch doctor' to re-detect the copy-on-write strategy",
	}
}

func SourceBusy(dir string) *BranchError {
	return &BranchError{
		Code: CodeSourceBusy,
		What: fmt.Sprintf("source data directory %q is not quiesced", dir),
		Why:  "a clone was attempted while PostgreSQL was still writing to the source",
	}
}

func ContainerFailed(name, reason string) *BranchError {
	return &BranchError{
		Code: CodeContainerFailed,
		What: fmt.Sprintf("container for branch %q failed", name),
		Why:  reason,
	}
}

func ReadinessTimeout(name string, last error) *BranchError {
	e := &BranchError{
		Code: CodeReadinessTimeout,
		What: fmt.Sprintf("branch %q did not become ready within the deadline", name),
	}
	if last != nil {
		e.Why = last.Error()
	}
	return e
}

func PermissionDenied(what string) *BranchError {
	return &BranchError{
		Code: CodePermissionDenied,
		What: fmt.Sprintf("permission denied: %s", what),
	}
}

func PolicyBlocked(reason string) *BranchError {
	return &BranchError{
		Code: CodePolicyBlocked,
		What: "blocked by policy",
		Why:  reason,
	}
}

func Timeout(op string) *BranchError {
	return &BranchError{
		Code: CodeTimeout,
		What: fmt.Sprintf("operation %q exceeded its deadline", op),
	}
}

func UserAborted() *BranchError {
	return &BranchError{
		Code: CodeUserAborted,
		What: "aborted by user",
	}
}

func IoError(what string, cause error) *BranchError {
	return &BranchError{
		Code:  CodeIoError,
		What:  what,
		Cause: cause,
	}
}

func RemoteApiError(backend string, cause error) *BranchError {
	return &BranchError{
		Code:  CodeRemoteApiError,
		What:  fmt.Sprintf("%s API request failed", backend),
		Cause: cause,
	}
}

func BranchNotFound(name string) *BranchError {
	return &BranchError{
		Code: CodeBranchNotFound,
		What: fmt.Sprintf("branch %q not found", name),
		Fix:  "run 'pgbranch list' to see available branches",
	}
}

func InvalidBranchName(name, reason string) *BranchError {
	return &BranchError{
		Code: CodeInvalidBranchName,
		What: fmt.Sprintf("invalid branch name %q", name),
		Why:  reason,
	}
}

// Wrap wraps a generic error into a BranchError under the given code.
func Wrap(code Code, what string, err error) *BranchError {
	return &BranchError{Code: code, What: what, Cause: err}
}
