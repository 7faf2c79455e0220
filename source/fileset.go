package source

// FileSet is the user's current upload selection. Files are identified by
// their (name, size) pair: re-adding a file that is already present is a
// no-op, mirroring how a file picker behaves when the same file is chosen
// twice. The set is only mutated by explicit Add/Remove calls.
type FileSet struct {
	files []*File
}

// Add inserts f unless an identical (name, size) entry already exists.
// It reports whether the set changed.
func (s *FileSet) Add(f *File) bool {
	for _, existing := range s.files {
		if existing.name == f.name && existing.size == f.size {
			return false
		}
	}
	s.files = append(s.files, f)
	return true
}

// Remove deletes the entry matching name and size, reporting whether an
// entry was removed.
func (s *FileSet) Remove(name string, size int64) bool {
	for i, f := range s.files {
		if f.name == name && f.size == size {
			s.files = append(s.files[:i], s.files[i+1:]...)
			return true
		}
	}
	return false
}

// Files returns the selection in insertion order.
func (s *FileSet) Files() []*File { return s.files }

// Len returns the number of selected files.
func (s *FileSet) Len() int { return len(s.files) }
