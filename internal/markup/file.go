package markup

import (
	"fmt"
	"os"
)

// FileSource reads the Index-th canvas element of a markup file. The file is
// re-read and re-parsed on every call so edits show up on the next rebuild.
type FileSource struct {
	Path  string
	Index int
}

func (s FileSource) Content() (Content, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return Content{}, fmt.Errorf("open markup: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return Content{}, fmt.Errorf("%s: %w", s.Path, err)
	}
	els := doc.Elements(TagName)
	switch {
	case len(els) == 0 && s.Index == 0:
		return doc.Root().Content()
	case s.Index < 0 || s.Index >= len(els):
		return Content{}, fmt.Errorf("%s: no <%s> element #%d", s.Path, TagName, s.Index)
	}
	c, err := els[s.Index].Content()
	if err != nil {
		return Content{}, fmt.Errorf("%s: %w", s.Path, err)
	}
	return c, nil
}

// Count returns the number of canvas elements in the markup file, or 1 when
// the file holds bare canvas children.
func Count(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open markup: %w", err)
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if n := len(doc.Elements(TagName)); n > 0 {
		return n, nil
	}
	return 1, nil
}
