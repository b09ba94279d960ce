package roster

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	delimitedFileExtension          = ".csv"
	structuredFileExtension         = ".json"
	unsupportedExtensionErrorFormat = "unsupported file format %q: use a .csv or .json export"
)

// NormalizeFile dispatches on the file extension and normalizes the raw
// contents with the matching normalizer. Unsupported extensions are rejected
// with a FormatError before any parsing happens.
func NormalizeFile(fileName string, contents []byte, role Role) ([]UserRecord, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case delimitedFileExtension:
		return NormalizeDelimited(string(contents))
	case structuredFileExtension:
		return NormalizeStructured(contents, role)
	default:
		return nil, newFormatError(fmt.Sprintf(unsupportedExtensionErrorFormat, filepath.Ext(fileName)))
	}
}
