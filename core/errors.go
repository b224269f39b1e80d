package core

import (
	"errors"
	"io/fs"
)

// Kind classifies what went wrong in a split or join.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindNotRegularFile
	KindNotDirectory
	KindOpen
	KindClose
	KindLock
	KindRead
	KindWrite
	KindPermission
	KindCreateDir
	KindCreateTemp
	KindDelete
	KindRename
	KindTimestamp
	KindInvalidBounds
	KindFileEmpty
	KindFileTooLong
	KindNameCollision
	KindPartTooShort
	KindNoFileParts
	KindNoSetsOfFileParts
	KindInconsistent
	KindSelectionCancelled
	KindCancelled
	KindCrypto
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown error",
	KindNotFound:           "file not found",
	KindNotRegularFile:     "not a regular file",
	KindNotDirectory:       "not a directory",
	KindOpen:               "can't open file",
	KindClose:              "can't close file",
	KindLock:               "can't lock file",
	KindRead:               "read error",
	KindWrite:              "write error",
	KindPermission:         "permission denied",
	KindCreateDir:          "can't create directory",
	KindCreateTemp:         "can't create temporary file",
	KindDelete:             "can't delete file",
	KindRename:             "can't rename file",
	KindTimestamp:          "can't set file timestamp",
	KindInvalidBounds:      "invalid part length bounds",
	KindFileEmpty:          "file is empty",
	KindFileTooLong:        "file is too long",
	KindNameCollision:      "no collision-free part names found",
	KindPartTooShort:       "file part is too short",
	KindNoFileParts:        "no file parts found",
	KindNoSetsOfFileParts:  "no sets of file parts found",
	KindInconsistent:       "inconsistent file parts",
	KindSelectionCancelled: "selection cancelled",
	KindCancelled:          "task cancelled",
	KindCrypto:             "encryption error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[KindUnknown]
}

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrNotRegularFile     = &Error{Kind: KindNotRegularFile}
	ErrNotDirectory       = &Error{Kind: KindNotDirectory}
	ErrLock               = &Error{Kind: KindLock}
	ErrRead               = &Error{Kind: KindRead}
	ErrWrite              = &Error{Kind: KindWrite}
	ErrPermission         = &Error{Kind: KindPermission}
	ErrRename             = &Error{Kind: KindRename}
	ErrTimestamp          = &Error{Kind: KindTimestamp}
	ErrInvalidBounds      = &Error{Kind: KindInvalidBounds}
	ErrFileEmpty          = &Error{Kind: KindFileEmpty}
	ErrFileTooLong        = &Error{Kind: KindFileTooLong}
	ErrNameCollision      = &Error{Kind: KindNameCollision}
	ErrPartTooShort       = &Error{Kind: KindPartTooShort}
	ErrNoFileParts        = &Error{Kind: KindNoFileParts}
	ErrNoSetsOfFileParts  = &Error{Kind: KindNoSetsOfFileParts}
	ErrInconsistent       = &Error{Kind: KindInconsistent}
	ErrSelectionCancelled = &Error{Kind: KindSelectionCancelled}
	ErrCancelled          = &Error{Kind: KindCancelled}
	ErrCrypto             = &Error{Kind: KindCrypto}
)

// Error is the only error type returned by Split, Join and Scan.
type Error struct {
	Kind Kind
	// Path is the file or directory the failed step worked on.
	Path string
	// TempPath is set when a failed join had to keep its temporary output
	// (the old output file was already removed).
	TempPath string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Path != "" {
		msg += ": '" + e.Path + "'"
	}
	if e.TempPath != "" {
		msg += " (temporary file '" + e.TempPath + "')"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of err, or KindUnknown if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// newError builds an *Error. Missing files and permission problems get their own kind,
// whatever step they happened in.
func newError(kind Kind, path string, err error) *Error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		kind = KindPermission
	case errors.Is(err, fs.ErrNotExist) && (kind == KindOpen || kind == KindRead):
		kind = KindNotFound
	}
	return &Error{Kind: kind, Path: path, Err: err}
}
