package entity

// SplitManifest describes how one oversized file was cut into parts and what
// an exact reconstruction must hash to.
type SplitManifest struct {
	OriginalFile   string         `json:"originalFile"`
	OriginalSHA256 string         `json:"originalSha256"`
	OriginalSize   int64          `json:"originalSize"`
	Parts          []ManifestPart `json:"parts"`
}

type ManifestPart struct {
	File   string `json:"file"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// UpdateManifest is the release descriptor shipped next to a binary-update
// tarball. When the tarball gets split, the split fields are patched in so
// update clients know to fetch and concatenate parts.
type UpdateManifest struct {
	Build     int64  `json:"build"`
	Channel   string `json:"channel"`
	Tarball   string `json:"tarball"`
	SHA256    string `json:"sha256"`
	Size      int64  `json:"size"`
	Timestamp int64  `json:"timestamp"`

	Split         bool           `json:"split,omitempty"`
	PartsManifest string         `json:"partsManifest,omitempty"`
	Parts         []ManifestPart `json:"parts,omitempty"`
}
