package mocks

import (
	"context"
	"sync"

	"github.com/smarta/server/internal/auth"
	"github.com/smarta/server/internal/model"
)

// MockChannel is a mock implementation of auth.AuthChannel for testing.
type MockChannel struct {
	mu            sync.Mutex
	Current       *model.Session
	VerifyResult  *model.Session
	SignInErr     error
	VerifyErr     error
	GetSessionErr error
	SignOutErr    error
	SignInPhones  []string
	VerifyCalls   int
	SignOutCalls  int
	Closed        bool
	handlers      map[int]func(auth.AuthEvent)
	nextHandler   int
}

func (m *MockChannel) SignInWithOTP(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignInPhones = append(m.SignInPhones, phone)
	return m.SignInErr
}

func (m *MockChannel) VerifyOTP(ctx context.Context, phone, code string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VerifyCalls++
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	m.Current = m.VerifyResult
	return m.VerifyResult, nil
}

func (m *MockChannel) GetSession(ctx context.Context) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetSessionErr != nil {
		return nil, m.GetSessionErr
	}
	return m.Current, nil
}

func (m *MockChannel) SignOut(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignOutCalls++
	if m.SignOutErr != nil {
		return m.SignOutErr
	}
	m.Current = nil
	return nil
}

func (m *MockChannel) OnAuthStateChange(handler func(auth.AuthEvent)) auth.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.handlers == nil {
		m.handlers = make(map[int]func(auth.AuthEvent))
	}
	id := m.nextHandler
	m.nextHandler++
	m.handlers[id] = handler
	return auth.SubscriptionFunc(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.handlers, id)
	})
}

func (m *MockChannel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Emit delivers evt to every subscribed handler, as the backend would on a
// token refresh or external expiry.
func (m *MockChannel) Emit(evt auth.AuthEvent) {
	m.mu.Lock()
	handlers := make([]func(auth.AuthEvent), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

// Subscribers returns the number of live subscriptions
func (m *MockChannel) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.handlers)
}
