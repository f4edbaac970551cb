package entity

import "fmt"

// Bundle is the raw, loosely typed view of one app bundle directory. All
// duck-typing of source metadata stops at this boundary: the validator and
// normalizer work from a Bundle without touching the filesystem again.
type Bundle struct {
	// Path names the bundle in reports, relative to the source root
	// (developer/group/bundle).
	Path string
	// Dir is the bundle directory as addressable on the source filesystem.
	Dir string

	// Meta is the decoded metadata file. MetaErr is set instead when the
	// file does not decode; such a bundle still flows through validation so
	// the problem lands in the report.
	Meta    map[string]any
	MetaErr error

	// Icons holds the discovered icon candidates in configuration
	// preference order.
	Icons []IconFile
	// Package points at the bundle's artifact file, nil when the bundle is
	// a metadata-only listing.
	Package *PackageFile
	// ScreenshotFiles lists image file names found in the screenshots
	// directory, sorted alphabetically.
	ScreenshotFiles []string
	// Description is the long-description file body with any frontmatter
	// block already stripped, nil when the file is absent.
	Description []byte
}

// IconFile is one discovered icon, pre-hashed so deriving the
// content-addressed image id never re-reads the source.
type IconFile struct {
	Name   string
	Path   string
	Ext    string
	SHA256 string
	Size   int64
}

type PackageFile struct {
	Name string
	Path string
	Size int64
}

// ValidationError describes one field-level problem found in bundle metadata.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
