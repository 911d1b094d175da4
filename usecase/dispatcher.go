package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/fastygo/questlog/domain"
)

// Intent names an action or read submitted by the presentation layer.
type Intent string

const (
	IntentAddTask      Intent = "task.add"
	IntentCompleteTask Intent = "task.complete"
	IntentRemoveTask   Intent = "task.remove"
	IntentClearAll     Intent = "data.clear"

	QuerySnapshot Intent = "state.snapshot"
	QueryGroups   Intent = "tasks.groups"
)

type CommandHandler func(ctx context.Context, payload interface{}) (interface{}, error)
type QueryHandler func(ctx context.Context, params interface{}) (interface{}, error)

type route struct {
	handle   func(ctx context.Context, arg interface{}) (interface{}, error)
	mutating bool
}

// Dispatcher routes intents to handlers. Commands run one at a time and to
// completion, so no mutation observes a half-applied predecessor. Queries
// wait for a running command but not for each other.
type Dispatcher struct {
	routesMu sync.RWMutex
	routes   map[Intent]route

	execMu sync.RWMutex
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{routes: make(map[Intent]route)}
}

func (d *Dispatcher) RegisterCommand(name Intent, handler CommandHandler) {
	d.register(name, route{handle: handler, mutating: true})
}

func (d *Dispatcher) RegisterQuery(name Intent, handler QueryHandler) {
	d.register(name, route{handle: handler})
}

func (d *Dispatcher) ExecuteCommand(ctx context.Context, name Intent, payload interface{}) (interface{}, error) {
	r, err := d.lookup(name, true)
	if err != nil {
		return nil, err
	}
	d.execMu.Lock()
	defer d.execMu.Unlock()
	return r.handle(ctx, payload)
}

func (d *Dispatcher) ExecuteQuery(ctx context.Context, name Intent, params interface{}) (interface{}, error) {
	r, err := d.lookup(name, false)
	if err != nil {
		return nil, err
	}
	d.execMu.RLock()
	defer d.execMu.RUnlock()
	return r.handle(ctx, params)
}

func (d *Dispatcher) register(name Intent, r route) {
	if r.handle == nil {
		return
	}
	d.routesMu.Lock()
	defer d.routesMu.Unlock()
	d.routes[name] = r
}

func (d *Dispatcher) lookup(name Intent, mutating bool) (route, error) {
	d.routesMu.RLock()
	r, ok := d.routes[name]
	d.routesMu.RUnlock()
	if !ok || r.mutating != mutating {
		return route{}, domain.NewError(domain.ErrCodeNotFound, fmt.Sprintf("no handler for intent %q", name))
	}
	return r, nil
}
