// Package bus dispatches commands and queries to the single handler registered for them.
//
// Handlers are registered explicitly, keyed by the name the message declares. Dispatching a
// message nobody registered is a wiring bug: the bus panics with an error wrapping ErrNoHandler.
package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	log "github.com/sirupsen/logrus"
)

// ErrNoHandler is wrapped by the value the bus panics with when a message has no handler.
var ErrNoHandler = errors.New("no handler registered")

// Command is an intent to change state.
type Command interface {
	// CommandName identifies the command. It must be unique and constant per type.
	CommandName() string
}

// Query is an intent to read state.
type Query interface {
	// QueryName identifies the query. It must be unique and constant per type.
	QueryName() string
}

// HandlerFunc handles one message and returns its result.
type HandlerFunc func(ctx context.Context, msg any) (any, error)

type registry struct {
	kind     string
	handlers map[string]HandlerFunc
}

func newRegistry(kind string) registry {
	return registry{kind: kind, handlers: map[string]HandlerFunc{}}
}

func (r registry) register(name string, h HandlerFunc) {
	if h == nil {
		panic(fmt.Sprintf("bus: nil handler for %s %q", r.kind, name))
	}
	if _, ok := r.handlers[name]; ok {
		panic(fmt.Sprintf("bus: %s %q registered twice", r.kind, name))
	}
	r.handlers[name] = h
}

func (r registry) dispatch(ctx context.Context, name string, msg any) (any, error) {
	h, ok := r.handlers[name]
	if !ok {
		panic(fmt.Errorf("bus: %s %q: %w", r.kind, name, ErrNoHandler))
	}
	log.WithField(r.kind, name).Debug("dispatching")
	return h(ctx, msg)
}

// CommandBus routes commands to their handler. Register everything before the first Dispatch.
type CommandBus struct {
	registry registry
}

// NewCommandBus creates an empty CommandBus.
func NewCommandBus() *CommandBus {
	return &CommandBus{registry: newRegistry("command")}
}

// Register binds a handler to a command name. It panics if the name is already bound.
func (b *CommandBus) Register(name string, h HandlerFunc) {
	b.registry.register(name, h)
}

// Dispatch invokes the handler registered for cmd and returns its result unchanged.
func (b *CommandBus) Dispatch(ctx context.Context, cmd Command) (any, error) {
	return b.registry.dispatch(ctx, cmd.CommandName(), cmd)
}

// QueryBus routes queries to their handler. Register everything before the first Dispatch.
type QueryBus struct {
	registry registry
}

// NewQueryBus creates an empty QueryBus.
func NewQueryBus() *QueryBus {
	return &QueryBus{registry: newRegistry("query")}
}

// Register binds a handler to a query name. It panics if the name is already bound.
func (b *QueryBus) Register(name string, h HandlerFunc) {
	b.registry.register(name, h)
}

// Dispatch invokes the handler registered for q and returns its result unchanged.
func (b *QueryBus) Dispatch(ctx context.Context, q Query) (any, error) {
	return b.registry.dispatch(ctx, q.QueryName(), q)
}

// HandleCommand registers a typed handler for commands of type C.
// A message sharing the name but not the type of C fails like an unregistered one.
func HandleCommand[C Command, R any](b *CommandBus, h func(ctx context.Context, cmd C) (R, error)) {
	name := sample[C]().CommandName()
	b.Register(name, func(ctx context.Context, msg any) (any, error) {
		return h(ctx, as[C]("command", name, msg))
	})
}

// HandleQuery registers a typed handler for queries of type Q.
// A message sharing the name but not the type of Q fails like an unregistered one.
func HandleQuery[Q Query, R any](b *QueryBus, h func(ctx context.Context, q Q) (R, error)) {
	name := sample[Q]().QueryName()
	b.Register(name, func(ctx context.Context, msg any) (any, error) {
		return h(ctx, as[Q]("query", name, msg))
	})
}

// sample returns a usable value of T to read its name from. Pointer types get a fresh pointee.
func sample[T any]() T {
	var zero T
	if t := reflect.TypeOf(&zero).Elem(); t.Kind() == reflect.Pointer {
		return reflect.New(t.Elem()).Interface().(T)
	}
	return zero
}

func as[T any](kind, name string, msg any) T {
	m, ok := msg.(T)
	if !ok {
		panic(fmt.Errorf("bus: %s %q got %T: %w", kind, name, msg, ErrNoHandler))
	}
	return m
}
