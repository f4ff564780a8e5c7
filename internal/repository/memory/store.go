// Package memory is an in-process implementation of the repository contracts.
// It backs the service and router tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/popupmarket/proxybuy/internal/domain"
	"github.com/popupmarket/proxybuy/internal/repository"
)

type tables struct {
	users     map[uuid.UUID]domain.User
	admins    map[uuid.UUID]bool
	events    map[uuid.UUID]domain.Event
	products  map[uuid.UUID]domain.Product
	options   map[uuid.UUID]domain.ProductOption
	agents    map[uuid.UUID]domain.Agent
	requests  map[uuid.UUID]domain.ProxyRequest
	items     map[uuid.UUID]domain.ProxyRequestItem
	reqEvents map[uuid.UUID]domain.RequestEvent
	rooms     map[uuid.UUID]domain.ChatRoom
	messages  map[uuid.UUID]domain.ChatMessage
	forms     map[uuid.UUID]domain.AgentEventForm
	terms     map[uuid.UUID]domain.AgentProductTerm
	idem      map[string]domain.IdempotencyKey
}

func newTables() *tables {
	return &tables{
		users:     map[uuid.UUID]domain.User{},
		admins:    map[uuid.UUID]bool{},
		events:    map[uuid.UUID]domain.Event{},
		products:  map[uuid.UUID]domain.Product{},
		options:   map[uuid.UUID]domain.ProductOption{},
		agents:    map[uuid.UUID]domain.Agent{},
		requests:  map[uuid.UUID]domain.ProxyRequest{},
		items:     map[uuid.UUID]domain.ProxyRequestItem{},
		reqEvents: map[uuid.UUID]domain.RequestEvent{},
		rooms:     map[uuid.UUID]domain.ChatRoom{},
		messages:  map[uuid.UUID]domain.ChatMessage{},
		forms:     map[uuid.UUID]domain.AgentEventForm{},
		terms:     map[uuid.UUID]domain.AgentProductTerm{},
		idem:      map[string]domain.IdempotencyKey{},
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t *tables) clone() *tables {
	return &tables{
		users:     copyMap(t.users),
		admins:    copyMap(t.admins),
		events:    copyMap(t.events),
		products:  copyMap(t.products),
		options:   copyMap(t.options),
		agents:    copyMap(t.agents),
		requests:  copyMap(t.requests),
		items:     copyMap(t.items),
		reqEvents: copyMap(t.reqEvents),
		rooms:     copyMap(t.rooms),
		messages:  copyMap(t.messages),
		forms:     copyMap(t.forms),
		terms:     copyMap(t.terms),
		idem:      copyMap(t.idem),
	}
}

// Store holds every table in memory. Transactions are serialized and restore
// a snapshot when the callback fails.
type Store struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	data   *tables
	last   time.Time
	faults map[string]error
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		data:   newTables(),
		faults: map[string]error{},
	}
}

// FailOn makes the named operation (for example "ChatMessage.Create") return err
// until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// begin locks the store for op and returns the unlock func along with any
// fault injected for op.
func (s *Store) begin(op string) (func(), error) {
	s.mu.Lock()
	return s.mu.Unlock, s.faults[op]
}

// now returns strictly increasing timestamps so created_at orderings are total
func (s *Store) now() time.Time {
	t := time.Now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// Repositories returns every repository bound to the store
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{
		User:           &userRepository{s},
		Admin:          &adminRepository{s},
		Event:          &eventRepository{s},
		Product:        &productRepository{s},
		Option:         &optionRepository{s},
		Agent:          &agentRepository{s},
		Request:        &requestRepository{s},
		RequestItem:    &requestItemRepository{s},
		RequestEvent:   &requestEventRepository{s},
		ChatRoom:       &chatRoomRepository{s},
		ChatMessage:    &chatMessageRepository{s},
		AgentForm:      &agentFormRepository{s},
		AgentTerm:      &agentTermRepository{s},
		IdempotencyKey: &idempotencyKeyRepository{s},
		Tx:             &transactor{store: s},
	}
}

type transactor struct {
	store *Store
}

func (t *transactor) WithinTx(_ context.Context, fn func(repos *repository.Repositories) error) error {
	s := t.store
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	repos := s.Repositories()
	repos.Tx = joinedTx{repos: repos}

	if err := fn(repos); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

type joinedTx struct {
	repos *repository.Repositories
}

func (j joinedTx) WithinTx(_ context.Context, fn func(repos *repository.Repositories) error) error {
	return fn(j.repos)
}
