package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterDispatch(t *testing.T) {
	r := NewRouter()

	type greetReq struct {
		Name string `json:"name"`
	}
	var got greetReq
	Register(r, "greet", func(ctx context.Context, c *ConnContext, req greetReq) error {
		got = req
		return nil
	})

	err := r.dispatch(context.Background(), nil, Envelope{
		Event: "greet",
		Body:  json.RawMessage(`{"name":"alice"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
}

func TestRouterDispatchEmptyBody(t *testing.T) {
	r := NewRouter()

	type req struct {
		N int `json:"n"`
	}
	var got req
	Register(r, "noop", func(ctx context.Context, c *ConnContext, rq req) error {
		got = rq
		return nil
	})

	require.NoError(t, r.dispatch(context.Background(), nil, Envelope{Event: "noop"}))
	assert.Zero(t, got.N)
}

func TestRouterUnknownEvent(t *testing.T) {
	r := NewRouter()
	err := r.dispatch(context.Background(), nil, Envelope{Event: "nope"})
	assert.EqualError(t, err, "unknown_event")
}

func TestRouterMalformedBody(t *testing.T) {
	r := NewRouter()
	Register(r, "strict", func(ctx context.Context, c *ConnContext, req struct {
		N int `json:"n"`
	}) error {
		return nil
	})

	err := r.dispatch(context.Background(), nil, Envelope{
		Event: "strict",
		Body:  json.RawMessage(`{"n":"not a number"}`),
	})
	assert.Error(t, err)
}

func TestRegisterEmptyEventPanics(t *testing.T) {
	r := NewRouter()
	assert.Panics(t, func() {
		Register(r, "", func(ctx context.Context, c *ConnContext, req struct{}) error {
			return nil
		})
	})
}
