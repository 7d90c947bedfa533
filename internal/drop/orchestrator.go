// Package drop wires payload decoding, target resolution, field scoring,
// highlight feedback, staging, and workflow recovery into the
// dragover/drop/dragleave event flow.
package drop

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/starford/ehwaz/internal/apperr"
	"github.com/starford/ehwaz/internal/canvas"
	"github.com/starford/ehwaz/internal/events"
	"github.com/starford/ehwaz/internal/models"
	"github.com/starford/ehwaz/internal/scoring"
	"github.com/starford/ehwaz/internal/staging"
	"github.com/starford/ehwaz/internal/transfer"
	"github.com/starford/ehwaz/internal/workflow"
)

// Stager copies an asset into the host's input directory.
type Stager interface {
	Stage(ctx context.Context, p transfer.Payload, opts staging.Options) (*staging.Result, error)
}

// GraphResolver recovers an asset's embedded graph, nil when absent.
type GraphResolver interface {
	Resolve(ctx context.Context, p transfer.Payload) (*workflow.Document, error)
}

// Sink receives drop event log entries.
type Sink interface {
	Publish(ev events.Event)
}

// Event is one pointer event delivered to the orchestrator.
type Event struct {
	ClientX float64
	ClientY float64
	// Payload is the raw transfer string carried under transfer.MimeAsset.
	Payload string
	// BackgroundTarget is true when the pointer is over a surface that
	// accepts canvas-level drops.
	BackgroundTarget bool
}

// Reaction tells the caller how to respond to a dragover.
type Reaction struct {
	// Accept means the caller should suppress the default handling.
	Accept bool
	// DropEffect is "copy" when a drop would land somewhere useful.
	DropEffect string
	Node       *canvas.Node
	Field      *canvas.Field
}

// Outcome describes what a drop did.
type Outcome struct {
	FieldInjected  bool
	InjectedPath   string
	Node           *canvas.Node
	Field          *canvas.Field
	WorkflowLoaded bool
	StagedPath     string
	// Stale means a newer drag gesture started while this drop's async
	// work was in flight; the result was discarded.
	Stale bool
}

// Orchestrator coordinates the drop subsystem for any number of hosts.
type Orchestrator struct {
	highlighter *canvas.Highlighter
	stager      Stager
	graphs      GraphResolver
	sink        Sink

	// generation stamps drag gestures so a superseded drop can discard
	// its late results instead of applying them after the fact.
	generation atomic.Uint64
}

// New creates an Orchestrator. sink may be nil.
func New(stager Stager, graphs GraphResolver, sink Sink) *Orchestrator {
	return &Orchestrator{
		highlighter: canvas.NewHighlighter(),
		stager:      stager,
		graphs:      graphs,
		sink:        sink,
	}
}

// Highlighter exposes the per-host highlight state (for canvas teardown).
func (o *Orchestrator) Highlighter() *canvas.Highlighter { return o.highlighter }

// DragOver handles one dragover tick: resolve the node under the pointer,
// score its fields, and drive highlight feedback. Invalid payloads are
// ignored entirely.
func (o *Orchestrator) DragOver(h canvas.Host, ev Event) Reaction {
	p := transfer.Decode(ev.Payload)
	if p == nil {
		return Reaction{}
	}
	o.generation.Add(1)

	node := canvas.ResolveNodeAt(h, ev.ClientX, ev.ClientY)
	if node != nil {
		if c := o.score(node, *p); c != nil {
			o.highlighter.Apply(h, node)
			return Reaction{Accept: true, DropEffect: "copy", Node: node, Field: c.Field}
		}
	}
	o.highlighter.Clear(h)
	if ev.BackgroundTarget {
		// Still allow the drop for canvas-level staging.
		return Reaction{Accept: true, DropEffect: "copy"}
	}
	return Reaction{}
}

// DragLeave clears highlight feedback; nothing else.
func (o *Orchestrator) DragLeave(h canvas.Host) {
	o.highlighter.Clear(h)
}

// Drop handles pointer release. With a scored field under the pointer the
// asset's relative path is injected into that field and no network calls
// are made; otherwise staging and workflow recovery run concurrently and
// a recovered graph wins over the staged path.
func (o *Orchestrator) Drop(ctx context.Context, h canvas.Host, ev Event) (*Outcome, error) {
	p := transfer.Decode(ev.Payload)
	if p == nil {
		return nil, nil
	}
	o.highlighter.Clear(h)

	node := canvas.ResolveNodeAt(h, ev.ClientX, ev.ClientY)
	if node != nil {
		if c := o.score(node, *p); c != nil {
			return o.injectField(h, node, c.Field, *p), nil
		}
	}
	if !ev.BackgroundTarget {
		return nil, nil
	}
	return o.backgroundDrop(ctx, h, *p)
}

func (o *Orchestrator) score(node *canvas.Node, p transfer.Payload) *scoring.Candidate {
	ext := models.Extension(p.Filename)
	kind := p.Kind
	if kind == "" {
		kind, _ = models.KindForName(p.Filename)
	}
	return scoring.ScoreFields(node, ext, kind)
}

// injectField writes the asset's relative path into field. Enumerated
// fields gain the value as an option when absent. A targeted field
// injection always wins; no workflow load is attempted.
func (o *Orchestrator) injectField(h canvas.Host, node *canvas.Node, field *canvas.Field, p transfer.Payload) *Outcome {
	rel := p.RelPath()
	if field.Type == "combo" && !containsOption(field.Options, rel) {
		field.Options = append(field.Options, rel)
	}
	field.Value = rel
	if field.OnChange != nil {
		field.OnChange(rel)
	}
	h.MarkDirty()
	slog.Debug("drop: injected field",
		slog.String("node", node.Type),
		slog.String("field", field.Name),
		slog.String("value", rel))
	return &Outcome{FieldInjected: true, InjectedPath: rel, Node: node, Field: field}
}

// backgroundDrop fans out the staging call and the workflow lookup and
// joins on both; staging must happen regardless of whether a workflow is
// found, so this is a join, not a race.
func (o *Orchestrator) backgroundDrop(ctx context.Context, h canvas.Host, p transfer.Payload) (*Outcome, error) {
	myGen := o.generation.Add(1)

	var (
		staged *staging.Result
		doc    *workflow.Document
	)
	var stageErr, lookupErr error

	var g errgroup.Group
	g.Go(func() error {
		staged, stageErr = o.stager.Stage(ctx, p, staging.Options{Index: true})
		return nil
	})
	g.Go(func() error {
		doc, lookupErr = o.graphs.Resolve(ctx, p)
		return nil
	})
	_ = g.Wait()

	if o.generation.Load() != myGen {
		slog.Debug("drop: discarding stale result", slog.String("filename", p.Filename))
		return &Outcome{Stale: true}, nil
	}

	if lookupErr == nil && doc != nil {
		if err := h.LoadGraph(doc.Raw); err != nil {
			return nil, fmt.Errorf("drop: load graph: %w", err)
		}
		o.publish(events.Event{Type: events.TypeWorkflowLoaded, Data: map[string]string{
			"filename": p.Filename,
		}})
		// The file is still staged on disk as a side effect; the staging
		// result is discarded for UI purposes.
		return &Outcome{WorkflowLoaded: true}, nil
	}

	if stageErr != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrStagingFailed, stageErr)
	}
	o.publish(events.Event{Type: events.TypeAssetStaged, Data: map[string]string{
		"path": staged.RelativePath,
	}})
	return &Outcome{StagedPath: staged.RelativePath}, nil
}

func (o *Orchestrator) publish(ev events.Event) {
	if o.sink != nil {
		o.sink.Publish(ev)
	}
}

func containsOption(opts []string, v string) bool {
	for _, o := range opts {
		if o == v {
			return true
		}
	}
	return false
}
