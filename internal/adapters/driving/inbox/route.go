package inbox

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
)

// Top-level inbox directories.
const (
	UsersDir     = "users"
	GlobalDir    = "global"
	processedDir = ".processed"
	failedDir    = ".failed"
)

// Target is where a dropped file is ingested.
type Target struct {
	// UserID is set for personal records.
	UserID string

	// DiseaseName is set for global reference documents.
	DiseaseName string
}

// IsGlobal returns true for reference documents.
func (t Target) IsGlobal() bool {
	return t.DiseaseName != ""
}

// Route maps a path inside root to its ingestion target. Only files
// exactly two levels below users/ or global/ are routed.
func Route(root, path string) (Target, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return Target{}, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 3 {
		return Target{}, false
	}
	for _, p := range parts {
		if p == "" || isHidden(p) {
			return Target{}, false
		}
	}

	switch parts[0] {
	case UsersDir:
		if !domain.ValidUserID(parts[1]) {
			return Target{}, false
		}
		return Target{UserID: parts[1]}, true
	case GlobalDir:
		return Target{DiseaseName: parts[1]}, true
	default:
		return Target{}, false
	}
}

// isHidden reports dotfiles and editor temporaries.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}

// eventKind classifies a watcher event.
type eventKind int

const (
	eventIgnored eventKind = iota
	eventFile
	eventDir
)

// classify decides whether an event names a file ready for ingestion or
// a new directory that needs watching. Removals and permission changes
// are ignored.
func classify(event fsnotify.Event, isDir bool) eventKind {
	if isHidden(filepath.Base(event.Name)) {
		return eventIgnored
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return eventIgnored
	}
	if isDir {
		if event.Has(fsnotify.Create) {
			return eventDir
		}
		return eventIgnored
	}
	return eventFile
}
