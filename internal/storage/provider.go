// Package storage defines the media-root file-system abstraction.
package storage

import "github.com/starford/ehwaz/internal/models"

// StagedFile describes one file copied into the input root.
type StagedFile struct {
	Name      string
	Subfolder string
	AbsPath   string
}

// Provider is the interface for media file operations across scope roots.
type Provider interface {
	// List returns metadata for every media file under the given scope
	// root (rootID selects a custom root, empty otherwise).
	List(scope models.Scope, rootID string) ([]models.AssetMetadata, error)
	// Read returns the raw bytes of the file at rel within the scope root.
	Read(scope models.Scope, rootID, rel string) ([]byte, error)
	// Abs resolves rel within the scope root to an absolute path,
	// rejecting traversal.
	Abs(scope models.Scope, rootID, rel string) (string, error)
	// Stage copies the file at rel in the source scope into the input
	// root under destSubfolder, uniquifying the name on content conflict.
	Stage(srcScope models.Scope, srcRootID, rel, destSubfolder string) (*StagedFile, error)
	// Delete removes the file at rel within the scope root.
	Delete(scope models.Scope, rootID, rel string) error
}
