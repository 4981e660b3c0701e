package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const MockName = "mock"

// Mock is a deterministic offline provider. It echoes the decoded prompt back
// under "input" together with the role that handled it.
type Mock struct {
	name      string
	delay     time.Duration
	failRoles map[string]string
}

type MockOption func(*Mock)

// WithFailingRole makes every call for role fail with msg.
func WithFailingRole(role, msg string) MockOption {
	return func(m *Mock) {
		m.failRoles[role] = msg
	}
}

func WithDelay(d time.Duration) MockOption {
	return func(m *Mock) {
		m.delay = d
	}
}

func WithMockName(name string) MockOption {
	return func(m *Mock) {
		m.name = name
	}
}

func NewMock(opts ...MockOption) *Mock {
	m := &Mock{name: MockName, failRoles: map[string]string{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mock) Name() string { return m.name }

func (m *Mock) Call(ctx context.Context, prompt, role string, _ Options) (Response, error) {
	start := time.Now()

	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}

	if msg, ok := m.failRoles[role]; ok {
		if msg == "" {
			msg = "mock failure"
		}
		return Response{}, errors.New(msg)
	}

	var input any
	if err := json.Unmarshal([]byte(prompt), &input); err != nil {
		input = prompt
	}

	return Response{
		Data: map[string]any{
			"role":  role,
			"input": input,
			"text":  fmt.Sprintf("%s handled %d bytes", role, len(prompt)),
		},
		Metadata: Metadata{
			Provider: m.name,
			Latency:  float64(time.Since(start).Microseconds()) / 1000.0,
		},
	}, nil
}
