// Package scoring ranks a node's editable fields by how likely each one is
// the file-path field the user meant to fill with a dropped asset.
//
// The scorer is a pure function over field metadata: no canvas access, no
// network, no mutation. Rules are tabulated so individual weights can be
// table-tested against literal fixtures.
package scoring

import (
	"strings"

	"github.com/starford/ehwaz/internal/canvas"
	"github.com/starford/ehwaz/internal/models"
)

// MinScore is the confidence threshold; a top candidate below it is
// discarded. "No confident target" is a common, valid outcome.
const MinScore = 20

// Candidate is one scored field on a node. Candidates are ephemeral and
// recomputed on every drag-over tick.
type Candidate struct {
	Node    *canvas.Node
	Field   *canvas.Field
	Score   int
	IsEmpty bool
	IsCombo bool
}

// fieldContext carries everything a rule may inspect.
type fieldContext struct {
	node  *canvas.Node
	field *canvas.Field
	name  string // lower-cased field name
	value string // current string value ("" when non-string)
	ext   string // dropped extension, lower-cased, no dot
	kind  models.Kind
}

// rule is one scoring entry: points awarded when match returns true.
type rule struct {
	name  string
	point int
	match func(fc fieldContext) bool
}

// Reserved field names that identify a kind-specific path input outright.
var reservedNames = map[models.Kind][]string{
	models.KindVideo: {"video", "video_path", "input_video", "video_file"},
	models.KindAudio: {"audio", "audio_path", "input_audio", "audio_file"},
	models.KindImage: {"image", "image_path", "input_image", "image_file"},
}

// Domain synonyms that suggest a media input beyond the generic file/path
// hints.
var kindSynonyms = map[models.Kind][]string{
	models.KindVideo: {"clip", "footage"},
	models.KindAudio: {"track", "sound"},
	models.KindImage: {"picture", "img"},
}

var pathHints = []string{"path", "file", "input", "source", "src"}

var outputHints = []string{"output", "save", "export", "folder", "dir"}

var rules = []rule{
	{"reserved name", 100, func(fc fieldContext) bool {
		for _, n := range reservedNames[fc.kind] {
			if fc.name == n {
				return true
			}
		}
		return false
	}},
	{"kind keyword with path hint", 80, func(fc fieldContext) bool {
		if fc.kind == "" || !strings.Contains(fc.name, string(fc.kind)) {
			return false
		}
		return containsAny(fc.name, pathHints)
	}},
	{"generic file/path hint", 35, func(fc fieldContext) bool {
		return strings.Contains(fc.name, "file") || strings.Contains(fc.name, "path")
	}},
	{"media synonym", 45, func(fc fieldContext) bool {
		if strings.Contains(fc.name, "media") {
			return true
		}
		return containsAny(fc.name, kindSynonyms[fc.kind])
	}},
	{"output field penalty", -90, func(fc fieldContext) bool {
		return containsAny(fc.name, outputHints)
	}},
	{"bare kind name, compatible", 25, func(fc fieldContext) bool {
		return fc.kind != "" && fc.name == string(fc.kind) && bareKindCompatible(fc)
	}},
	{"bare kind name, other kind held", -50, func(fc fieldContext) bool {
		if fc.kind == "" || fc.name != string(fc.kind) || bareKindCompatible(fc) {
			return false
		}
		held, ok := models.KindForName(fc.value)
		return ok && held != fc.kind
	}},
	{"bare kind name, unknown value", -10, func(fc fieldContext) bool {
		if fc.kind == "" || fc.name != string(fc.kind) || bareKindCompatible(fc) {
			return false
		}
		_, ok := models.KindForName(fc.value)
		return !ok
	}},
	{"loader node", 15, func(fc fieldContext) bool {
		if fc.kind == "" {
			return false
		}
		typ := strings.ToLower(fc.node.Type)
		return strings.Contains(typ, "load") && strings.Contains(typ, string(fc.kind))
	}},
	{"empty value", 3, func(fc fieldContext) bool {
		return fc.field.IsEmpty()
	}},
	{"combo holds kind option", 12, func(fc fieldContext) bool {
		if fc.kind == "" || fc.field.Type != "combo" {
			return false
		}
		for _, opt := range fc.field.Options {
			if k, ok := models.KindForName(opt); ok && k == fc.kind {
				return true
			}
		}
		return false
	}},
}

// bareKindCompatible applies to a field whose bare name is the kind word
// itself: empty values and values whose extension already matches the
// dropped kind are compatible.
func bareKindCompatible(fc fieldContext) bool {
	if fc.field.IsEmpty() {
		return true
	}
	held, ok := models.KindForName(fc.value)
	return ok && held == fc.kind
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// numeric field types can never hold a file path.
var rejectedTypes = map[string]bool{
	"number": true, "int": true, "float": true,
	"toggle": true, "boolean": true, "bool": true,
}

// eligible reports whether a field can receive an injected path at all:
// free-text, combo, or a callback paired with a string value.
func eligible(f *canvas.Field) bool {
	if rejectedTypes[strings.ToLower(f.Type)] {
		return false
	}
	switch f.Value.(type) {
	case int, int64, float64, bool:
		return false
	}
	switch strings.ToLower(f.Type) {
	case "text", "string", "":
		return true
	case "combo":
		return true
	}
	if f.OnChange != nil {
		_, isString := f.Value.(string)
		return isString || f.Value == nil
	}
	return false
}

// ScoreFields returns the best candidate field on node for a dropped file
// with the given extension and kind, or nil when no field clears MinScore.
// ext must be lower-cased without a leading dot; kind may be empty when the
// asset's kind is unknown.
func ScoreFields(node *canvas.Node, ext string, kind models.Kind) *Candidate {
	if node == nil {
		return nil
	}
	var best *Candidate
	for _, f := range node.Fields {
		if f == nil || !eligible(f) {
			continue
		}
		fc := fieldContext{
			node:  node,
			field: f,
			name:  strings.ToLower(f.Name),
			ext:   ext,
			kind:  kind,
		}
		if s, ok := f.Value.(string); ok {
			fc.value = s
		}
		score := 0
		for _, r := range rules {
			if r.match(fc) {
				score += r.point
			}
		}
		c := &Candidate{
			Node:    node,
			Field:   f,
			Score:   score,
			IsEmpty: f.IsEmpty(),
			IsCombo: strings.ToLower(f.Type) == "combo",
		}
		if better(c, best) {
			best = c
		}
	}
	if best == nil || best.Score < MinScore {
		return nil
	}
	return best
}

// better orders candidates: score descending, then empty-valued fields,
// then enumerated-choice fields. Earlier fields win remaining ties.
func better(c, cur *Candidate) bool {
	if cur == nil {
		return true
	}
	if c.Score != cur.Score {
		return c.Score > cur.Score
	}
	if c.IsEmpty != cur.IsEmpty {
		return c.IsEmpty
	}
	if c.IsCombo != cur.IsCombo {
		return c.IsCombo
	}
	return false
}
