// Package textutil derives human-readable titles from file names.
//
// Library files are usually named after their content with separators and
// release tags mixed in ("frank_herbert-dune.(1965).epub"). The helpers here
// strip that noise, split an "Author - Title" convention, and title-case the
// result using golang.org/x/text so non-ASCII names case correctly.
package textutil
