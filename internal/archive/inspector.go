package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/appcourier/appcourier/internal/domain"
)

// DefaultAuxSizeLimit is the hard ceiling above which an auxiliary entry is
// reported instead of extracted into memory.
const DefaultAuxSizeLimit = 100 * 1024 * 1024

// Class tags one container entry.
type Class string

const (
	ClassPrimary   Class = "primary-package"
	ClassSplit     Class = "split-package"
	ClassAuxiliary Class = "auxiliary-data"
	ClassOther     Class = "other"
)

// Entry is one classified member of a container archive. Data is only read
// through Extract, never during inspection.
type Entry struct {
	Name            string
	Size            int64
	Class           Class
	TooLargeToRelay bool

	archivePath string
}

// BaseName is the entry's filename without its directory path.
func (e Entry) BaseName() string { return path.Base(e.Name) }

// Inspection is the classified view of a container: at most one primary
// package (first match by scan order), plus split and auxiliary shards.
type Inspection struct {
	Primary   *Entry
	Splits    []Entry
	Auxiliary []Entry
}

// Inspector opens container archives and decides what is worth relaying.
type Inspector struct {
	auxSizeLimit int64
}

func NewInspector(auxSizeLimit int64) *Inspector {
	if auxSizeLimit <= 0 {
		auxSizeLimit = DefaultAuxSizeLimit
	}
	return &Inspector{auxSizeLimit: auxSizeLimit}
}

// Inspect enumerates and classifies the archive's entries without extracting
// anything. It returns domain.ErrNoPrimaryEntry when no installable base
// package was found; the caller then delivers the raw container unmodified.
func (i *Inspector) Inspect(localPath string) (*Inspection, error) {
	r, err := zip.OpenReader(localPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open container: %w", err)
	}
	defer r.Close()

	insp := &Inspection{}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		entry := Entry{
			Name:        f.Name,
			Size:        int64(f.UncompressedSize64),
			archivePath: localPath,
		}

		switch classify(f.Name) {
		case ClassPrimary:
			// first match by scan order wins
			if insp.Primary == nil {
				entry.Class = ClassPrimary
				insp.Primary = &entry
			} else {
				entry.Class = ClassSplit
				insp.Splits = append(insp.Splits, entry)
			}
		case ClassSplit:
			entry.Class = ClassSplit
			insp.Splits = append(insp.Splits, entry)
		case ClassAuxiliary:
			entry.Class = ClassAuxiliary
			entry.TooLargeToRelay = entry.Size > i.auxSizeLimit
			insp.Auxiliary = append(insp.Auxiliary, entry)
		default:
			// uninteresting manifest/icon noise, skip
		}
	}

	if insp.Primary == nil {
		return insp, domain.ErrNoPrimaryEntry
	}

	return insp, nil
}

// Extract reads a classified entry fully into memory. The caller is expected
// to respect TooLargeToRelay before asking.
func (i *Inspector) Extract(e Entry) ([]byte, error) {
	if e.archivePath == "" {
		return nil, fmt.Errorf("entry %s was not produced by Inspect", e.Name)
	}

	r, err := zip.OpenReader(e.archivePath)
	if err != nil {
		return nil, fmt.Errorf("cannot reopen container: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != e.Name {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("cannot open entry %s: %w", e.Name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("cannot read entry %s: %w", e.Name, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("entry %s disappeared from %s", e.Name, e.archivePath)
}

// classify tags an entry by name. A package entry is primary unless its name
// marks it as a configuration/locale/device shard; .obb blobs are auxiliary.
func classify(name string) Class {
	base := strings.ToLower(path.Base(name))

	switch {
	case strings.HasSuffix(base, ".obb"):
		return ClassAuxiliary
	case strings.HasSuffix(base, ".apk"):
		if strings.HasPrefix(base, "split_") ||
			strings.HasPrefix(base, "config.") ||
			strings.Contains(base, "split_config.") {
			return ClassSplit
		}
		return ClassPrimary
	default:
		return ClassOther
	}
}
