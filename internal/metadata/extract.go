// Package metadata extracts embedded workflow documents from media files.
//
// Generated images carry their producing graph as a PNG text chunk keyed
// "workflow" (or "prompt" for older producers). Videos and audio cannot
// embed chunks, so a JSON sidecar next to the media file is consulted
// instead. Raw .json files are returned as-is.
package metadata

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/storage"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// workflowKeys are PNG text chunk keywords checked in priority order.
var workflowKeys = []string{"workflow", "prompt"}

// ExtractWorkflow returns the embedded workflow JSON for the asset at
// scope/rootID/rel, or apperr.ErrNotFound when the asset carries none.
func ExtractWorkflow(store storage.Provider, scope models.Scope, rootID, rel string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(rel), ".json") {
		data, err := store.Read(scope, rootID, rel)
		if err != nil {
			return nil, err
		}
		if !json.Valid(data) {
			return nil, fmt.Errorf("metadata: %s: %w", rel, apperr.ErrNotFound)
		}
		return data, nil
	}

	if kind, ok := models.KindForName(rel); ok && kind == models.KindImage {
		data, err := store.Read(scope, rootID, rel)
		if err != nil {
			return nil, err
		}
		if wf := fromPNG(data); wf != nil {
			return wf, nil
		}
	}

	// Sidecar fallback: <file>.json next to the media file.
	if data, err := store.Read(scope, rootID, rel+".json"); err == nil && json.Valid(data) {
		return data, nil
	}

	return nil, fmt.Errorf("metadata: %s: %w", rel, apperr.ErrNotFound)
}

// fromPNG walks the chunk stream looking for a tEXt or iTXt chunk whose
// keyword matches a workflow key. Compressed iTXt payloads are skipped.
func fromPNG(data []byte) []byte {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil
	}
	found := map[string][]byte{}
	r := data[len(pngSignature):]
	for len(r) >= 8 {
		length := binary.BigEndian.Uint32(r[:4])
		typ := string(r[4:8])
		if uint32(len(r)-8) < length {
			break
		}
		body := r[8 : 8+length]
		switch typ {
		case "tEXt":
			if key, val, ok := splitText(body); ok {
				found[key] = val
			}
		case "iTXt":
			if key, val, ok := splitInternational(body); ok {
				found[key] = val
			}
		case "IDAT", "IEND":
			// Text chunks precede image data in every producer we
			// care about; stop before decoding megabytes of pixels.
			r = nil
			continue
		}
		// 8 byte header + payload + 4 byte CRC. CRCs are not verified,
		// but a truncated one still ends the walk.
		rest := r[8+length:]
		if len(rest) < 4 {
			break
		}
		r = rest[4:]
	}
	for _, key := range workflowKeys {
		if val, ok := found[key]; ok && json.Valid(val) {
			return val
		}
	}
	return nil
}

func splitText(body []byte) (string, []byte, bool) {
	i := bytes.IndexByte(body, 0)
	if i < 0 {
		return "", nil, false
	}
	return string(body[:i]), body[i+1:], true
}

func splitInternational(body []byte) (string, []byte, bool) {
	i := bytes.IndexByte(body, 0)
	if i < 0 || len(body) < i+3 {
		return "", nil, false
	}
	key := string(body[:i])
	compressed := body[i+1]
	if compressed != 0 {
		return "", nil, false
	}
	// Skip compression method, then the language tag and translated
	// keyword, each NUL terminated.
	rest := body[i+3:]
	for range 2 {
		j := bytes.IndexByte(rest, 0)
		if j < 0 {
			return "", nil, false
		}
		rest = rest[j+1:]
	}
	return key, rest, true
}
