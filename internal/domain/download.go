package domain

import "strings"

// ArtifactKind identifies what a download source hands back.
type ArtifactKind string

const (
	// KindPackage is a plain installable package (.apk).
	KindPackage ArtifactKind = "apk"
	// KindSplitContainer is a zip container holding a base package plus
	// split/auxiliary shards (.xapk).
	KindSplitContainer ArtifactKind = "xapk"
	// KindContainerAlt is the alternate container format (.apks).
	KindContainerAlt ArtifactKind = "apks"
)

// IsContainer reports whether the artifact needs to be opened and inspected
// before delivery.
func (k ArtifactKind) IsContainer() bool {
	return k == KindSplitContainer || k == KindContainerAlt
}

// Ext returns the file extension used for temp files of this kind.
func (k ArtifactKind) Ext() string { return string(k) }

// MimeType returns the MIME type sent alongside the delivered document.
func (k ArtifactKind) MimeType() string {
	switch k {
	case KindPackage:
		return "application/vnd.android.package-archive"
	case KindSplitContainer, KindContainerAlt:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// DownloadSource is one entry of the static, priority-ordered mirror list.
type DownloadSource struct {
	Name        string
	URLTemplate string // contains a {package} placeholder
	Kind        ArtifactKind
}

// URLFor expands the source template for a catalog identifier.
func (s DownloadSource) URLFor(identifier string) string {
	return strings.ReplaceAll(s.URLTemplate, "{package}", identifier)
}

// ResolvedDownload is the outcome of probing the mirror list: the first
// viable source, with redirects already followed. It is consumed by the
// in-flight delivery immediately and never persisted.
type ResolvedDownload struct {
	FinalURL   string
	Kind       ArtifactKind
	SizeHint   int64 // bytes, 0 when the source did not declare one
	SourceName string
}
