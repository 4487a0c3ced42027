package installer

import (
	"errors"
	"fmt"
)

// Stage names a step of the install pipeline.
type Stage string

const (
	StageResolving   Stage = "resolving"
	StageDownloading Stage = "downloading"
	StageExtracting  Stage = "extracting"
	StageValidating  Stage = "validating"
	StagePlacing     Stage = "placing"
	StageDone        Stage = "done"
	StageRemoving    Stage = "removing"
	StagePackaging   Stage = "packaging"
)

// Kind classifies a failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindNetwork    Kind = "network"
	KindFilesystem Kind = "filesystem"
)

// ErrConflict is wrapped by errors for installs whose target already exists.
var ErrConflict = errors.New("already installed")

// Error describes a failed installer operation.
type Error struct {
	Stage   Stage
	Kind    Kind
	Package string // may be empty before the manifest is read
	Err     error
}

func (e *Error) Error() string {
	subject := e.Package
	if subject == "" {
		subject = "package"
	}
	return fmt.Sprintf("%s failed while %s (%s): %v", subject, e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}

func fail(stage Stage, kind Kind, pkg string, err error) *Error {
	return &Error{Stage: stage, Kind: kind, Package: pkg, Err: err}
}
