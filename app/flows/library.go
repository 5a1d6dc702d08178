package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/Yanlebed/htode-sub000/app/db/postgres"
	"github.com/Yanlebed/htode-sub000/app/messaging"
	"github.com/Yanlebed/htode-sub000/app/models"
	"github.com/Yanlebed/htode-sub000/app/state"

	"github.com/sirupsen/logrus"
)

// Library maps flow names to flows and dispatches conversation turns
// to the active one. Constructed once at startup and passed down.
type Library struct {
	States  *state.Manager
	Sender  *messaging.Sender
	Store   postgres.Store
	flows   map[string]*Flow
	aliases map[string]string
}

func NewLibrary(states *state.Manager, sender *messaging.Sender, store postgres.Store) *Library {
	return &Library{
		States:  states,
		Sender:  sender,
		Store:   store,
		flows:   make(map[string]*Flow),
		aliases: make(map[string]string),
	}
}

// Register adds a flow and its free-text aliases.
func (l *Library) Register(flow *Flow, aliases ...string) {
	l.flows[flow.Name] = flow
	for _, alias := range aliases {
		l.aliases[strings.ToLower(alias)] = flow.Name
	}
}

// Flows lists registered flow names.
func (l *Library) Flows() []string {
	names := make([]string, 0, len(l.flows))
	for name := range l.flows {
		names = append(names, name)
	}
	return names
}

// ResolveFlowName matches free text against the alias table,
// case-insensitive substring match. "" when nothing matches.
func (l *Library) ResolveFlowName(text string) string {
	lowered := strings.ToLower(text)
	for alias, name := range l.aliases {
		if strings.Contains(lowered, alias) {
			return name
		}
	}
	return ""
}

func (l *Library) newContext(ctx context.Context, platform models.Platform, userID string, dbUserID int64, message string, doc *models.StateDocument) *Context {
	return &Context{
		Ctx:       ctx,
		Platform:  platform,
		UserID:    userID,
		DBUserID:  dbUserID,
		Message:   message,
		StateName: doc.State,
		FlowData:  doc.FlowData,
		Sender:    l.Sender,
		Store:     l.Store,
	}
}

// StartFlow begins a named flow: writes the initial state document
// and invokes the initial state's handler.
func (l *Library) StartFlow(ctx context.Context, name string, platform models.Platform, userID string, dbUserID int64, initialData map[string]any) error {
	flow, ok := l.flows[name]
	if !ok {
		return fmt.Errorf("unknown flow %q", name)
	}
	if initialData == nil {
		initialData = map[string]any{}
	}
	doc := &models.StateDocument{
		State:      flow.InitialState,
		ActiveFlow: flow.Name,
		FlowData:   initialData,
	}
	if err := l.States.Set(ctx, platform, userID, doc); err != nil {
		return err
	}

	fctx := l.newContext(ctx, platform, userID, dbUserID, "", doc)
	l.runHandler(flow, fctx, flow.InitialState)
	return l.persist(ctx, flow, fctx, doc)
}

// ProcessMessage feeds a message to the user's active flow. The bool
// result tells the caller whether any flow consumed the message.
func (l *Library) ProcessMessage(ctx context.Context, platform models.Platform, userID string, dbUserID int64, message string) (bool, error) {
	doc, err := l.States.Get(ctx, platform, userID)
	if err != nil {
		return false, err
	}
	if doc == nil || doc.ActiveFlow == "" {
		return false, nil
	}
	flow, ok := l.flows[doc.ActiveFlow]
	if !ok {
		logrus.Warnf("state for %s:%s references unknown flow %q, clearing", platform, userID, doc.ActiveFlow)
		return false, l.States.Clear(ctx, platform, userID)
	}
	if doc.State == "" {
		doc.State = flow.InitialState
	}

	fctx := l.newContext(ctx, platform, userID, dbUserID, message, doc)

	// global handlers run first, in order, first truthy short-circuits
	for _, global := range flow.globalHandlers {
		handled, err := l.runGlobal(flow, fctx, global)
		if handled || err != nil {
			return true, l.persist(ctx, flow, fctx, doc)
		}
	}

	l.runHandler(flow, fctx, fctx.StateName)

	// first matching edge fires, its target handler sees the same message
	if !fctx.endFlow {
		var target string
		var matched bool
		err := l.capture(fctx, func() error {
			target, matched = flow.firstTransition(fctx.StateName, fctx)
			return nil
		})
		if err != nil {
			l.handleError(flow, fctx, err)
		} else if matched {
			fctx.StateName = target
			l.runHandler(flow, fctx, target)
		}
	}

	return true, l.persist(ctx, flow, fctx, doc)
}

// TransitionActiveFlow forces a jump to a target state, invoking its
// handler with no incoming message.
func (l *Library) TransitionActiveFlow(ctx context.Context, platform models.Platform, userID string, dbUserID int64, targetState string) error {
	doc, err := l.States.Get(ctx, platform, userID)
	if err != nil || doc == nil || doc.ActiveFlow == "" {
		return fmt.Errorf("no active flow for %s:%s", platform, userID)
	}
	flow, ok := l.flows[doc.ActiveFlow]
	if !ok {
		return fmt.Errorf("unknown flow %q", doc.ActiveFlow)
	}
	fctx := l.newContext(ctx, platform, userID, dbUserID, "", doc)
	fctx.StateName = targetState
	l.runHandler(flow, fctx, targetState)
	return l.persist(ctx, flow, fctx, doc)
}

// EndActiveFlow resets the conversation to the active flow's initial
// marker with no active flow.
func (l *Library) EndActiveFlow(ctx context.Context, platform models.Platform, userID string) error {
	doc, err := l.States.Get(ctx, platform, userID)
	if err != nil || doc == nil || doc.ActiveFlow == "" {
		return nil
	}
	flow, ok := l.flows[doc.ActiveFlow]
	if !ok {
		return l.States.Clear(ctx, platform, userID)
	}
	return l.States.Set(ctx, platform, userID, &models.StateDocument{
		State:    flow.InitialState,
		FlowData: map[string]any{},
	})
}

// runHandler invokes one state handler, routing any failure to the
// flow's error handler. A turn's failure never crashes the caller.
func (l *Library) runHandler(flow *Flow, fctx *Context, stateName string) {
	handler := flow.handlerFor(stateName)
	if handler == nil {
		return
	}
	if err := l.capture(fctx, func() error { return handler(fctx) }); err != nil {
		l.handleError(flow, fctx, err)
	}
}

func (l *Library) runGlobal(flow *Flow, fctx *Context, global GlobalHandler) (bool, error) {
	var handled bool
	err := l.capture(fctx, func() error {
		var err error
		handled, err = global(fctx)
		return err
	})
	if err != nil {
		l.handleError(flow, fctx, err)
		return false, nil
	}
	return handled, nil
}

// capture converts a panic in a handler or predicate into an error so
// one conversation cannot take down the process.
func (l *Library) capture(fctx *Context, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func (l *Library) handleError(flow *Flow, fctx *Context, err error) {
	if flow.errorHandler != nil {
		flow.errorHandler(fctx, err)
		return
	}
	logrus.Errorf("flow %q state %q for %s:%s failed: %v", flow.Name, fctx.StateName, fctx.Platform, fctx.UserID, err)
}

// persist writes the turn's outcome back to the state manager.
func (l *Library) persist(ctx context.Context, flow *Flow, fctx *Context, doc *models.StateDocument) error {
	if fctx.endFlow {
		return l.States.Set(ctx, fctx.Platform, fctx.UserID, &models.StateDocument{
			State:    flow.InitialState,
			FlowData: map[string]any{},
		})
	}
	doc.State = fctx.StateName
	doc.FlowData = fctx.FlowData
	return l.States.Set(ctx, fctx.Platform, fctx.UserID, doc)
}
