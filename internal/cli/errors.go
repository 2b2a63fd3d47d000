package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/blobvault/internal/config"
	"github.com/dmitrijs2005/blobvault/internal/cryptox"
	"github.com/dmitrijs2005/blobvault/internal/generator"
	"github.com/dmitrijs2005/blobvault/internal/storage"
)

const (
	ExitCodeSuccess    = 0
	ExitCodeGeneric    = 1
	ExitCodeUsage      = 2
	ExitCodeNotFound   = 3
	ExitCodeConfig     = 4
	ExitCodeConnection = 5
	ExitCodeIntegrity  = 6
	ExitCodeIO         = 7
)

type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ExitError) ExitCode() int {
	if e == nil {
		return ExitCodeGeneric
	}
	return e.Code
}

func asExitError(code int, err error) error {
	if err == nil {
		return nil
	}
	var withExit interface{ ExitCode() int }
	if errors.As(err, &withExit) {
		return err
	}
	return &ExitError{Code: code, Err: err}
}

// errUsage marks command-line mistakes.
var errUsage = errors.New("usage error")

func usageErrorf(format string, args ...any) error {
	return &ExitError{
		Code: ExitCodeUsage,
		Err:  fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...),
	}
}

func mapCommandError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, errUsage), errors.Is(err, generator.ErrInvalidSize):
		return asExitError(ExitCodeUsage, err)
	case errors.Is(err, config.ErrConfiguration):
		return asExitError(ExitCodeConfig, err)
	case errors.Is(err, storage.ErrNotFound):
		return asExitError(ExitCodeNotFound, err)
	case errors.Is(err, storage.ErrConnection), errors.Is(err, storage.ErrSchema):
		return asExitError(ExitCodeConnection, err)
	case errors.Is(err, cryptox.ErrIntegrity):
		return asExitError(ExitCodeIntegrity, err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) || errors.Is(err, os.ErrNotExist) {
		return asExitError(ExitCodeIO, err)
	}
	return asExitError(ExitCodeGeneric, err)
}

// errorKinds is ordered from most to least specific.
var errorKinds = []error{
	errUsage,
	generator.ErrInvalidSize,
	config.ErrConfiguration,
	cryptox.ErrIntegrity,
	storage.ErrNotFound,
	storage.ErrSchema,
	storage.ErrWrite,
	storage.ErrConnection,
}

// Render formats err as "<kind>: <message>".
func Render(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, kind := range errorKinds {
		if !errors.Is(err, kind) {
			continue
		}
		if strings.HasPrefix(msg, kind.Error()) {
			return msg
		}
		return kind.Error() + ": " + msg
	}
	return "error: " + msg
}
