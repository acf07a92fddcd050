package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gridd/internal/grid"
	"gridd/internal/sessionmap"
	"gridd/pkg/types"
)

// mockService scripts responses per method.
type mockService struct {
	newSession  func(ctx context.Context, caps types.Capabilities) (types.Session, error)
	session     func(ctx context.Context, id types.SessionID) (types.Session, error)
	stopSession func(ctx context.Context, id types.SessionID) error
	sessions    func(ctx context.Context) ([]types.Session, error)
	drainNode   func(id types.NodeID) error
	status      func() types.GridStatus
	ready       bool
}

func (m *mockService) NewSession(ctx context.Context, caps types.Capabilities) (types.Session, error) {
	if m.newSession == nil {
		return types.Session{}, grid.ErrNoMatchingSlot(caps)
	}
	return m.newSession(ctx, caps)
}

func (m *mockService) Session(ctx context.Context, id types.SessionID) (types.Session, error) {
	if m.session == nil {
		return types.Session{}, sessionmap.ErrNotFound(id)
	}
	return m.session(ctx, id)
}

func (m *mockService) StopSession(ctx context.Context, id types.SessionID) error {
	if m.stopSession == nil {
		return sessionmap.ErrNotFound(id)
	}
	return m.stopSession(ctx, id)
}

func (m *mockService) Sessions(ctx context.Context) ([]types.Session, error) {
	if m.sessions == nil {
		return nil, nil
	}
	return m.sessions(ctx)
}

func (m *mockService) DrainNode(id types.NodeID) error {
	if m.drainNode == nil {
		return grid.ErrNodeNotFound(id)
	}
	return m.drainNode(id)
}

func (m *mockService) Status() types.GridStatus {
	if m.status == nil {
		return types.GridStatus{}
	}
	return m.status()
}

func (m *mockService) Ready() bool { return m.ready }

func postSession(t *testing.T, h http.Handler, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPostSession_OK(t *testing.T) {
	want := types.Session{ID: "sess-1", NodeURI: "http://n1:5555", StartedAt: time.Now()}
	svc := &mockService{
		newSession: func(_ context.Context, caps types.Capabilities) (types.Session, error) {
			if caps[types.CapBrowserName] != "chrome" {
				t.Fatalf("capabilities not forwarded: %v", caps)
			}
			return want, nil
		},
	}
	rec := postSession(t, NewMux(svc), `{"capabilities":{"browserName":"chrome"}}`, "application/json")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var got types.Session
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != want.ID || got.NodeURI != want.NodeURI {
		t.Fatalf("got %+v", got)
	}
}

func TestPostSession_BadRequests(t *testing.T) {
	h := NewMux(&mockService{})

	if rec := postSession(t, h, `{"capabilities":{}}`, "text/plain"); rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("wrong content type: status %d", rec.Code)
	}
	if rec := postSession(t, h, `not json`, "application/json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status %d", rec.Code)
	}
	if rec := postSession(t, h, `{"capabilities":{}}`, "application/json"); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty capabilities: status %d", rec.Code)
	}
	var resp types.ErrorResponse
	rec := postSession(t, h, `{}`, "application/json")
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || resp.Error == "" {
		t.Fatalf("error body not structured: %s (%v)", rec.Body.String(), err)
	}
}

func TestPostSession_CapacityMapsTo429(t *testing.T) {
	svc := &mockService{
		newSession: func(context.Context, types.Capabilities) (types.Session, error) {
			return types.Session{}, grid.ErrCapacityExhausted("session queue full")
		},
	}
	rec := postSession(t, NewMux(svc), `{"capabilities":{"browserName":"chrome"}}`, "application/json")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d, want 429", rec.Code)
	}
}

func TestPostSession_NoMatchMapsTo500(t *testing.T) {
	svc := &mockService{
		newSession: func(_ context.Context, caps types.Capabilities) (types.Session, error) {
			return types.Session{}, grid.ErrNoMatchingSlot(caps)
		},
	}
	rec := postSession(t, NewMux(svc), `{"capabilities":{"browserName":"edge"}}`, "application/json")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", rec.Code)
	}
}

func TestGetSession(t *testing.T) {
	svc := &mockService{
		session: func(_ context.Context, id types.SessionID) (types.Session, error) {
			if id == "sess-1" {
				return types.Session{ID: id, NodeURI: "http://n1:5555"}, nil
			}
			return types.Session{}, sessionmap.ErrNotFound(id)
		},
	}
	h := NewMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/session/sess-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got types.Session
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil || got.ID != "sess-1" {
		t.Fatalf("got %+v (%v)", got, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/session/ghost", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d", rec.Code)
	}
}

func TestDeleteSession(t *testing.T) {
	svc := &mockService{
		stopSession: func(_ context.Context, id types.SessionID) error {
			if id == "sess-1" {
				return nil
			}
			return sessionmap.ErrNotFound(id)
		},
	}
	h := NewMux(svc)

	req := httptest.NewRequest(http.MethodDelete, "/session/sess-1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d, want 204", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/session/ghost", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: status %d", rec.Code)
	}
}

func TestListSessions(t *testing.T) {
	svc := &mockService{
		sessions: func(context.Context) ([]types.Session, error) {
			return []types.Session{{ID: "a"}, {ID: "b"}}, nil
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	rec := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp types.SessionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil || len(resp.Sessions) != 2 {
		t.Fatalf("got %+v (%v)", resp, err)
	}
}

func TestDrainNode(t *testing.T) {
	svc := &mockService{
		drainNode: func(id types.NodeID) error {
			if id == "n1" {
				return nil
			}
			return grid.ErrNodeNotFound(id)
		},
	}
	h := NewMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/node/n1/drain", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status %d, want 202", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/node/ghost/drain", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown node: status %d", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	svc := &mockService{
		status: func() types.GridStatus {
			return types.GridStatus{
				Ready:         true,
				QueueDepth:    3,
				MaxQueueDepth: 64,
				Nodes: []types.NodeReport{
					{NodeID: "n1", URI: "http://n1:5555", Availability: types.Up},
				},
			}
		},
	}
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var got types.GridStatus
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Ready || got.QueueDepth != 3 || len(got.Nodes) != 1 || got.Nodes[0].NodeID != "n1" {
		t.Fatalf("got %+v", got)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	svc := &mockService{ready: false}
	h := NewMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz with no nodes: status %d", rec.Code)
	}

	svc.ready = true
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("/readyz ready: status %d", rec.Code)
	}
}

func TestBodyLimit(t *testing.T) {
	var big bytes.Buffer
	big.WriteString(`{"capabilities":{"blob":"`)
	big.WriteString(strings.Repeat("x", int(maxBodyBytes)+1024))
	big.WriteString(`"}}`)
	rec := postSession(t, NewMux(&mockService{}), big.String(), "application/json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("oversized body: status %d", rec.Code)
	}
}
