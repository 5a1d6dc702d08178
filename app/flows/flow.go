package flows

import (
	"context"

	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/messaging"
	"github.com/Yanlebed/htode-sub000/app/models"
)

// Handler runs one conversation turn in a given state.
type Handler func(*Context) error

// GlobalHandler runs before the state handler on every turn. A true
// result short-circuits the turn.
type GlobalHandler func(*Context) (bool, error)

// Predicate guards a transition. Nil means "always fires".
type Predicate func(*Context) bool

// ErrorHandler receives any error a handler or predicate produced.
type ErrorHandler func(*Context, error)

// Context is the single argument every handler receives: who is
// talking, what they said, the flow's scratch data, and the outbound
// surfaces. FlowData mutations are persisted after the turn.
type Context struct {
	Ctx        context.Context
	Platform   models.Platform
	UserID     string // platform-native id
	DBUserID   int64
	Message    string
	StateName  string
	FlowData   map[string]any
	Sender     *messaging.Sender
	Store      postgres.Store
	endFlow    bool
}

// Set stores a value in the flow's scratch data.
func (c *Context) Set(key string, value any) {
	if c.FlowData == nil {
		c.FlowData = map[string]any{}
	}
	c.FlowData[key] = value
}

// GetString reads a scratch value, "" when absent or not a string.
func (c *Context) GetString(key string) string {
	if value, ok := c.FlowData[key].(string); ok {
		return value
	}
	return ""
}

// End marks the flow finished; the engine resets the conversation
// after the turn completes.
func (c *Context) End() {
	c.endFlow = true
}

// Reply sends a text back to the current user.
func (c *Context) Reply(text string) bool {
	return c.Sender.SafeSendMessage(c.Ctx, c.UserID, c.Platform, text)
}

// ReplyMenu sends a menu back to the current user.
func (c *Context) ReplyMenu(text string, options []models.MenuOption) bool {
	return c.Sender.SafeSendMenu(c.Ctx, c.UserID, c.Platform, text, options)
}

type transition struct {
	from      string
	to        string
	predicate Predicate
}

// Flow is a named conversation state machine. States and transitions
// are registered once at process start and immutable afterwards.
type Flow struct {
	Name           string
	InitialState   string
	states         map[string]Handler
	transitions    []transition
	globalHandlers []GlobalHandler
	errorHandler   ErrorHandler
}

func NewFlow(name, initialState string) *Flow {
	return &Flow{
		Name:         name,
		InitialState: initialState,
		states:       make(map[string]Handler),
	}
}

// State registers a state handler.
func (f *Flow) State(name string, handler Handler) *Flow {
	f.states[name] = handler
	return f
}

// Transition registers a guarded edge. Evaluation order is
// registration order, first match wins.
func (f *Flow) Transition(from, to string, predicate Predicate) *Flow {
	f.transitions = append(f.transitions, transition{from: from, to: to, predicate: predicate})
	return f
}

// Global registers a handler checked before the state handler on
// every message.
func (f *Flow) Global(handler GlobalHandler) *Flow {
	f.globalHandlers = append(f.globalHandlers, handler)
	return f
}

// OnError sets the flow's error handler.
func (f *Flow) OnError(handler ErrorHandler) *Flow {
	f.errorHandler = handler
	return f
}

func (f *Flow) handlerFor(stateName string) Handler {
	return f.states[stateName]
}

// firstTransition returns the first registered edge out of the state
// whose predicate passes.
func (f *Flow) firstTransition(fromState string, fctx *Context) (string, bool) {
	for _, t := range f.transitions {
		if t.from != fromState {
			continue
		}
		if t.predicate == nil || t.predicate(fctx) {
			return t.to, true
		}
	}
	return "", false
}
