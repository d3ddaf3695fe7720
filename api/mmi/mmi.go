// Package mmi models Man-Machine-Interface prompts issued by the PTS
// conformance tool and dispatches them to registered profile handlers.
package mmi

import (
	"context"
	"regexp"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fctx"
	"github.com/Southclaws/fault/fmsg"
	"github.com/bt-conformance/ptsproxy/api/bluetooth"
	"github.com/bt-conformance/ptsproxy/api/errorkinds"
)

// ReplyOK is the fixed acknowledgement returned by every handler on success.
const ReplyOK = "OK"

// Request is a single MMI prompt plus the context the conformance-test
// driver supplies with it.
type Request struct {
	// Name is the MMI identifier, e.g. "MMI_TESTER_ENABLE_LE_CONNECTION".
	Name string

	// Description is the full human-readable prompt text.
	Description string

	// Test is the PTS test identifier currently running,
	// e.g. "L2CAP/LE/CFC/BV-02-C".
	Test string

	// PeerAddress is the address of the PTS tester.
	PeerAddress bluetooth.Address

	args map[string]string
}

// Arg returns a parameter captured from the prompt text by a pattern
// handler, or the empty string.
func (r *Request) Arg(name string) string {
	return r.args[name]
}

// Func handles one MMI prompt.
type Func func(ctx context.Context, req *Request) (string, error)

// ProfileProxy is implemented by each profile adapter.
type ProfileProxy interface {
	// TestStarted is invoked by the driver before the first prompt of a test.
	TestStarted(ctx context.Context, test string) error

	// Interact dispatches one prompt to its handler.
	Interact(ctx context.Context, req *Request) (string, error)
}

type entry struct {
	description string
	pattern     *regexp.Regexp
	fn          Func
}

// Registry maps MMI identifiers to handlers and validates prompt text
// before dispatch. PTS wraps prompt lines arbitrarily, so all text is
// whitespace-normalized before comparison or matching.
type Registry struct {
	handlers map[string]*entry
}

// NewRegistry returns an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]*entry)}
}

// Register binds a handler to an MMI name with an exact reference
// description. The incoming prompt must equal the reference after
// whitespace normalization.
func (r *Registry) Register(name, description string, fn Func) {
	r.handlers[name] = &entry{description: Normalize(description), fn: fn}
}

// RegisterPattern binds a handler to an MMI name with a regular expression
// matched against the normalized prompt. Named capture groups become
// request arguments.
func (r *Registry) RegisterPattern(name, pattern string, fn Func) {
	r.handlers[name] = &entry{
		pattern: regexp.MustCompile("^" + pattern + "$"),
		fn:      fn,
	}
}

// RegisterAny binds a handler whose prompt text embeds values that vary
// between runs; the description is not validated.
func (r *Registry) RegisterAny(name string, fn Func) {
	r.handlers[name] = &entry{fn: fn}
}

// Alias registers a second MMI name for an already registered handler.
// PTS raises some prompts under both a symbolic and a numeric identifier.
func (r *Registry) Alias(alias, name string) {
	if e, ok := r.handlers[name]; ok {
		r.handlers[alias] = e
	}
}

// Interact looks up the handler for the prompt, validates or matches its
// description, and invokes it.
func (r *Registry) Interact(ctx context.Context, req *Request) (string, error) {
	e, ok := r.handlers[req.Name]
	if !ok {
		return "", fault.Wrap(errorkinds.ErrUnknownPrompt,
			fctx.With(ctx, "mmi", req.Name, "test", req.Test),
			fmsg.With("Unhandled MMI "+req.Name),
		)
	}

	description := Normalize(req.Description)

	if e.pattern != nil {
		m := e.pattern.FindStringSubmatch(description)
		if m == nil {
			return "", fault.Wrap(errorkinds.ErrPromptMismatch,
				fctx.With(ctx, "mmi", req.Name, "prompt", description),
				fmsg.With("Prompt does not match the pattern registered for "+req.Name),
			)
		}

		req.args = make(map[string]string)
		for i, group := range e.pattern.SubexpNames() {
			if group != "" {
				req.args[group] = m[i]
			}
		}
	} else if e.description != "" && description != e.description {
		return "", fault.Wrap(errorkinds.ErrPromptMismatch,
			fctx.With(ctx, "mmi", req.Name, "prompt", description, "reference", e.description),
			fmsg.With("Prompt text differs from the reference description of "+req.Name),
		)
	}

	return e.fn(ctx, req)
}

var whitespace = regexp.MustCompile(`\s+`)

// Normalize collapses runs of whitespace to single spaces and trims the
// result, undoing PTS's arbitrary prompt line wrapping.
func Normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
