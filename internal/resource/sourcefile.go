package resource

import "sort"

// SourceFile is an original file that produced (part of) a resource.
type SourceFile struct {
	FileName     string           `json:"file_name"`
	FileType     string           `json:"file_type"`
	Data         []byte           `json:"file_content"`
	Distribution DistributionInfo `json:"distribution_info"`
}

// SourceFileMap links paths inside a resource to the files they came from.
// Paths are keyed by their string form.
type SourceFileMap struct {
	Files map[string]SourceFile `json:"map"`
}

// NewSourceFileMap returns an empty map.
func NewSourceFileMap() *SourceFileMap {
	return &SourceFileMap{Files: make(map[string]SourceFile)}
}

// Insert records f at p, replacing any previous file.
func (m *SourceFileMap) Insert(p Path, f SourceFile) {
	if m.Files == nil {
		m.Files = make(map[string]SourceFile)
	}
	m.Files[p.String()] = f
}

// Get returns the file recorded at p.
func (m *SourceFileMap) Get(p Path) (SourceFile, bool) {
	f, ok := m.Files[p.String()]
	return f, ok
}

// Paths returns every recorded path, sorted by string form.
func (m *SourceFileMap) Paths() []Path {
	keys := make([]string, 0, len(m.Files))
	for k := range m.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Path, 0, len(keys))
	for _, k := range keys {
		if p, err := ParsePath(k); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Len returns the number of files.
func (m *SourceFileMap) Len() int {
	return len(m.Files)
}

// Size is the total number of raw file bytes held.
func (m *SourceFileMap) Size() int {
	total := 0
	for _, f := range m.Files {
		total += len(f.Data)
	}
	return total
}
