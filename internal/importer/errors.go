package importer

import "errors"

var (
	// ErrSpecFormat means the input is neither valid JSON nor valid YAML.
	ErrSpecFormat = errors.New("document is neither valid JSON nor valid YAML")
	// ErrUnsupportedVersion means the format was recognized but its version is not.
	ErrUnsupportedVersion = errors.New("unsupported document version")
	// ErrSchema means a required object is missing or has the wrong shape.
	ErrSchema = errors.New("malformed document")
)
