package source

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrUnsupportedExtension is returned by NewFile for anything that is not a
// recognized spreadsheet file. Validation happens at selection time, before
// any decode attempt.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// acceptedExtensions is the set of spreadsheet formats accepted for upload.
var acceptedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

// File is a local source file: a declared name plus its binary payload.
type File struct {
	name string
	size int64
	data []byte
}

// NewFile validates the declared name and wraps the payload. The payload is
// owned by the File from here on.
func NewFile(name string, data []byte) (*File, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if !acceptedExtensions[ext] {
		return nil, errors.Wrap(ErrUnsupportedExtension, name)
	}
	return &File{name: name, size: int64(len(data)), data: data}, nil
}

// Name returns the declared file name.
func (f *File) Name() string { return f.name }

// Size returns the payload size in bytes. It keeps reporting the original
// size after the payload has been taken.
func (f *File) Size() int64 { return f.size }

// Title is the file name without its extension, used to namespace task names
// when multiple files are merged.
func (f *File) Title() string {
	return strings.TrimSuffix(f.name, filepath.Ext(f.name))
}

// Take transfers ownership of the payload to the caller. The second and
// later calls return nil: once handed to a decode worker the buffer must not
// be reachable from the sender anymore.
func (f *File) Take() []byte {
	data := f.data
	f.data = nil
	return data
}
