package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/graphledger/internal/descriptor"
)

// requestSchema closes the envelope so a misspelled top-level field fails
// at load time instead of reaching the engine as an empty payload.
const requestSchema = `
#Request: {
	function: string & !=""
	query?:   _
	GUID?:    string
}
`

// LoadError represents an error that occurred while loading a request file.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadRequest reads a request envelope from a .cue or .json file. JSON is
// valid CUE, so both go through the same evaluator; CUE files may use
// comments, references and defaults as long as the result is concrete.
func LoadRequest(path string) (descriptor.Request, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return descriptor.Request{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("request file not found: %s", path)}
	}
	if err != nil {
		return descriptor.Request{}, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("reading request file: %v", err)}
	}

	switch ext := filepath.Ext(path); ext {
	case ".cue", ".json":
	default:
		return descriptor.Request{}, &LoadError{Code: ErrCodeUnsupportedFile, Message: fmt.Sprintf("unsupported request file extension %q (want .cue or .json)", ext)}
	}
	return ParseRequest(filepath.Base(path), data)
}

// ParseRequest evaluates data as CUE and decodes the result into a request.
func ParseRequest(name string, data []byte) (descriptor.Request, error) {
	ctx := cuecontext.New()

	value := ctx.CompileBytes(data, cue.Filename(name))
	if err := value.Err(); err != nil {
		return descriptor.Request{}, cueLoadError(ErrCodeLoadFailed, err)
	}

	schema := ctx.CompileString(requestSchema).LookupPath(cue.ParsePath("#Request"))
	if err := schema.Err(); err != nil {
		return descriptor.Request{}, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("request schema: %v", err)}
	}

	value = schema.Unify(value)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return descriptor.Request{}, cueLoadError(ErrCodeInvalidRequest, err)
	}

	out, err := value.MarshalJSON()
	if err != nil {
		return descriptor.Request{}, cueLoadError(ErrCodeBuildFailed, err)
	}

	req, err := descriptor.DecodeRequest(out)
	if err != nil {
		return descriptor.Request{}, &LoadError{Code: ErrCodeInvalidRequest, Message: err.Error()}
	}
	return req, nil
}

// cueLoadError keeps the position of the first CUE error.
func cueLoadError(code string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: err.Error()}
	if errs := cueerrors.Errors(err); len(errs) > 0 {
		loadErr.Message = errs[0].Error()
		loadErr.Pos = errs[0].Position()
	}
	return loadErr
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric         = "E001" // Generic/unknown error
	ErrCodeUnsupportedFile = "E002" // Request file is neither .cue nor .json
	ErrCodeStoreOpen       = "E003" // Graph store, journal or sequence could not be opened
	ErrCodeLoadFailed      = "E004" // CUE parse/evaluation failed
	ErrCodeNotFound        = "E005" // Path not found
	ErrCodeBuildFailed     = "E006" // CUE value could not be exported
	ErrCodeWriteFailed     = "E007" // File write error

	ErrCodeInvalidRequest = "E101" // Envelope does not match #Request
	ErrCodeInvalidFlag    = "E102" // Flag value out of range
)
