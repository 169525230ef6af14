// Package sample bundles the CommonMark document shown when no file is given.
package sample

import _ "embed"

//go:embed sample.md
var document []byte

// Name is the file name the bundled document is reported under.
const Name = "sample.md"

// Document returns a copy of the bundled markdown source.
func Document() []byte {
	out := make([]byte, len(document))
	copy(out, document)
	return out
}
