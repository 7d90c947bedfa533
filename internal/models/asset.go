// Package models defines the domain types for Ehwaz.
package models

import (
	"path"
	"strings"
	"time"
)

// Scope identifies which media root an asset lives under.
type Scope string

const (
	ScopeInput  Scope = "input"
	ScopeOutput Scope = "output"
	ScopeCustom Scope = "custom"
)

// ValidScope reports whether s is one of the three known scopes.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeInput, ScopeOutput, ScopeCustom:
		return true
	}
	return false
}

// Kind classifies an asset by its media type.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
	KindImage Kind = "image"
)

var extKinds = map[string]Kind{
	"mp4": KindVideo, "webm": KindVideo, "mkv": KindVideo, "mov": KindVideo,
	"avi": KindVideo, "m4v": KindVideo, "gif": KindVideo,
	"mp3": KindAudio, "wav": KindAudio, "ogg": KindAudio, "flac": KindAudio,
	"aac": KindAudio, "m4a": KindAudio, "opus": KindAudio,
	"png": KindImage, "jpg": KindImage, "jpeg": KindImage, "webp": KindImage,
	"bmp": KindImage, "tiff": KindImage, "svg": KindImage,
}

// KindForExtension maps a lower-cased extension (no leading dot) to a Kind.
// The second return is false for unrecognized extensions.
func KindForExtension(ext string) (Kind, bool) {
	k, ok := extKinds[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return k, ok
}

// KindForName classifies a filename by its extension.
func KindForName(name string) (Kind, bool) {
	return KindForExtension(strings.TrimPrefix(path.Ext(name), "."))
}

// Extension returns the lower-cased extension of name without the leading dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// Asset represents one media file under a scope root.
type Asset struct {
	Filename  string    `json:"filename"`
	Subfolder string    `json:"subfolder"`
	Scope     Scope     `json:"type"`
	RootID    string    `json:"root_id,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RelPath returns the asset's path relative to its scope root.
func (a Asset) RelPath() string {
	if a.Subfolder != "" {
		return a.Subfolder + "/" + a.Filename
	}
	return a.Filename
}

// AssetMetadata is a lightweight representation returned by list operations.
type AssetMetadata struct {
	Filename  string    `json:"filename"`
	Subfolder string    `json:"subfolder"`
	Scope     Scope     `json:"type"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RelPath returns the metadata's path relative to its scope root.
func (m AssetMetadata) RelPath() string {
	if m.Subfolder != "" {
		return m.Subfolder + "/" + m.Filename
	}
	return m.Filename
}
