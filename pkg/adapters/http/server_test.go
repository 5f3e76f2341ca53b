package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/actorflow/pkg/actor"
	adapter "github.com/aretw0/actorflow/pkg/adapters/http"
	"github.com/aretw0/actorflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n int }

func newServer(t *testing.T, opts ...adapter.Option) (*adapter.Server, *httptest.Server) {
	t.Helper()
	sys := actor.NewSystem()
	t.Cleanup(func() { _ = sys.Terminate(context.Background()) })

	parent, err := actor.Create(sys, "parent", &counter{})
	require.NoError(t, err)
	parent.Attributes().Set("interpreter/state", "3")
	_, err = actor.Create(sys, "child", &counter{}, actor.WithParent("parent"))
	require.NoError(t, err)

	srv := adapter.NewServer(sys, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestServer_Actors(t *testing.T) {
	_, ts := newServer(t)

	code, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"status":"ok"`)

	code, body = get(t, ts.URL+"/actors")
	require.Equal(t, http.StatusOK, code)
	var list []adapter.ActorView
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "parent", list[0].Name)
	assert.Equal(t, []string{"child"}, list[0].Children)
	assert.Equal(t, "parent", list[1].Parent)
	assert.Nil(t, list[0].Attributes)

	code, body = get(t, ts.URL+"/actors/parent")
	require.Equal(t, http.StatusOK, code)
	var one adapter.ActorView
	require.NoError(t, json.Unmarshal([]byte(body), &one))
	assert.True(t, one.Alive)
	assert.Equal(t, map[string]any{"interpreter": map[string]any{"state": "3"}}, one.Attributes)

	code, _ = get(t, ts.URL+"/actors/ghost")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "probe_total", Help: "probe"})
	reg.MustRegister(c)
	c.Inc()

	_, ts := newServer(t, adapter.WithGatherer(reg))
	code, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "probe_total 1")
}

func TestServer_EventsStream(t *testing.T) {
	srv, ts := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/events?interpreter=main", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if line := lines.Text(); strings.HasPrefix(line, "data: ") {
				return strings.TrimPrefix(line, "data: ")
			}
		}
		return ""
	}
	require.Equal(t, "connected", next())

	hooks := srv.Hooks()
	hooks.OnTransition(ctx, &domain.TransitionEvent{EventBase: domain.EventBase{Interpreter: "other"}, From: "0", To: "9"})
	hooks.OnTransition(ctx, &domain.TransitionEvent{EventBase: domain.EventBase{Interpreter: "main", Type: domain.EventTransition}, From: "0", To: "1"})

	var evt domain.TransitionEvent
	require.NoError(t, json.Unmarshal([]byte(next()), &evt))
	assert.Equal(t, "main", evt.Interpreter)
	assert.Equal(t, "1", evt.To)
}

func TestStreamManager_DropsWhenFull(t *testing.T) {
	sm := adapter.NewStreamManager(slogDiscard())
	ch, unsubscribe := sm.Subscribe(adapter.AllTopics)
	for n := 0; n < 100; n++ {
		sm.Broadcast("any", "msg")
	}
	assert.Len(t, ch, cap(ch))
	assert.Equal(t, 1, sm.Subscribers(adapter.AllTopics))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, sm.Subscribers(adapter.AllTopics))
}

func slogDiscard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
