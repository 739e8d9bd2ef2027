// Package identity resolves the calling agent from out-of-band request
// metadata and carries it through a context. Request bodies are never
// consulted.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/AltairaLabs/portalops/internal/types"
)

// Identity headers set by the upstream authenticating proxy
const (
	HeaderUserID   = "x-user-id"
	HeaderUserRole = "x-user-role"
)

type contextKey struct{}

// FromHeader reads the agent from identity headers. A missing user id is
// an error wrapping types.ErrUnauthenticated. The role is upper-cased and
// not checked here; authorization belongs to the task service.
func FromHeader(h http.Header) (types.Agent, error) {
	id := strings.TrimSpace(h.Get(HeaderUserID))
	if id == "" {
		return types.Agent{}, fmt.Errorf("%w: missing %s header", types.ErrUnauthenticated, HeaderUserID)
	}
	return types.Agent{
		ID:   id,
		Role: strings.ToUpper(strings.TrimSpace(h.Get(HeaderUserRole))),
	}, nil
}

// WithAgent returns a copy of ctx carrying agent
func WithAgent(ctx context.Context, agent types.Agent) context.Context {
	return context.WithValue(ctx, contextKey{}, agent)
}

// FromContext returns the agent stored by WithAgent
func FromContext(ctx context.Context) (types.Agent, bool) {
	agent, ok := ctx.Value(contextKey{}).(types.Agent)
	return agent, ok
}

// Require returns the agent in ctx or an error wrapping
// types.ErrUnauthenticated
func Require(ctx context.Context) (types.Agent, error) {
	agent, ok := FromContext(ctx)
	if !ok || agent.ID == "" {
		return types.Agent{}, fmt.Errorf("%w: no agent identity on request", types.ErrUnauthenticated)
	}
	return agent, nil
}

// HeaderContextFunc stores the header identity in ctx when present. It fits
// the context hooks of HTTP-based transports.
func HeaderContextFunc(ctx context.Context, r *http.Request) context.Context {
	agent, err := FromHeader(r.Header)
	if err != nil {
		return ctx
	}
	return WithAgent(ctx, agent)
}
