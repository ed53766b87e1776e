package http

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

func newSession() *scenario.Session {
	return scenario.NewSession("test", rand.New(rand.NewSource(1)))
}

func TestClient_Execute_AcceptedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" {
			t.Errorf("Expected path /api/login, got %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got %s", r.Header.Get("Content-Type"))
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["username"] != "alice" {
			t.Errorf("Expected username alice, got %s", body["username"])
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"bad credentials"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(5*time.Second))
	p := scenario.LoginServerUser()
	task, _ := p.Task("login")
	s := newSession()
	s.Username = "alice"
	s.Password = "pw"

	out := client.Execute(context.Background(), task, s)

	assert.True(t, out.Success(), "401 is an accepted login outcome: %v", out.Err)
	assert.Equal(t, http.StatusUnauthorized, out.StatusCode)
	assert.Equal(t, http.MethodPost, out.Method)
	assert.Equal(t, "/api/login", out.Name)
	assert.Equal(t, int64(len(`{"error":"bad credentials"}`)), out.Length)
	assert.True(t, out.Duration > 0)
}

func TestClient_Execute_RejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	task, _ := scenario.GameServerUser().Task("get_game_status")

	out := client.Execute(context.Background(), task, newSession())

	require.Error(t, out.Err)
	assert.Equal(t, "Status check failed: 503", out.Err.Error())
	assert.True(t, IsStatusError(out.Err))
	assert.False(t, out.Transport)
}

func TestClient_Execute_AnyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	task, _ := scenario.GameServerUser().Task("get_version")

	out := client.Execute(context.Background(), task, newSession())
	assert.True(t, out.Success())
	assert.Equal(t, http.StatusInternalServerError, out.StatusCode)
}

func TestClient_Execute_HandlerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("created"))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	task, _ := scenario.HallServerUser().Task("create_room")

	out := client.Execute(context.Background(), task, newSession())
	require.Error(t, out.Err)
	assert.Equal(t, "Failed to parse response", out.Err.Error())
	assert.False(t, IsStatusError(out.Err))
}

func TestClient_Execute_StoresRoomID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"room_id": 314}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	task, _ := scenario.HallServerUser().Task("create_room")
	s := newSession()

	out := client.Execute(context.Background(), task, s)
	require.NoError(t, out.Err)
	assert.Equal(t, "314", s.RoomID)
}

func TestClient_Execute_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, WithTimeout(time.Second))
	task, _ := scenario.StressTestUser().Task("rapid_pings")

	out := client.Execute(context.Background(), task, newSession())
	require.Error(t, out.Err)
	assert.True(t, out.Transport)
	assert.False(t, out.Canceled)
}

func TestClient_Execute_Canceled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL)
	task, _ := scenario.GameServerUser().Task("ping")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	out := client.Execute(ctx, task, newSession())
	assert.True(t, out.Canceled)
}

func TestClient_JoinRoomUsesConcretePath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	task, _ := scenario.HallServerUser().Task("join_room")
	s := newSession()
	s.RoomID = "12"

	out := client.Execute(context.Background(), task, s)
	assert.True(t, out.Success())
	assert.Equal(t, "/api/rooms/12/join", gotPath)
	assert.Equal(t, scenario.JoinRoomName, out.Name)
}

func TestClient_Execute_TransportErrorUsesFailFormat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, WithTimeout(time.Second))
	task, _ := scenario.LoginServerUser().Task("health_check")

	out := client.Execute(context.Background(), task, newSession())
	require.Error(t, out.Err)
	assert.Equal(t, "Health check failed: 0", out.Err.Error())
	assert.True(t, out.Transport)
	assert.Zero(t, out.StatusCode)

	var se *StatusError
	require.True(t, errors.As(out.Err, &se))
	assert.Equal(t, 0, se.Code)
	assert.Error(t, errors.Unwrap(out.Err))
}
