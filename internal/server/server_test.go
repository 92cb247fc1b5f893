package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/danmuck/tamactl/internal/config"
	"github.com/danmuck/tamactl/internal/observability"
	"github.com/danmuck/tamactl/internal/protocol/frame"
	"github.com/danmuck/tamactl/internal/protocol/wire"
	"github.com/danmuck/tamactl/internal/testutil/testlog"
	"github.com/danmuck/tamactl/internal/world"
)

func newServer(t *testing.T, opts world.Options) (*Server, *world.World) {
	t.Helper()
	w, err := world.Open(context.Background(), config.DefaultWorldConfig(), opts)
	if err != nil {
		t.Fatalf("open world: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return New(w, Options{ID: "test"}), w
}

func do(t *testing.T, s *Server, method, path string, body []byte, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func handleFrame(t *testing.T, req wire.Request, auth []byte) []byte {
	t.Helper()
	b, err := frame.Marshal(frame.Frame{
		Header:  frame.Header{MessageID: 7, MessageType: frame.TypeHandle},
		Auth:    auth,
		Payload: req.MustEncode(),
	})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return b
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return body
}

func TestHealthAndPrograms(t *testing.T) {
	testlog.Start(t)
	s, _ := newServer(t, world.Options{})

	rr := do(t, s, http.MethodGet, "/health", nil, nil)
	if rr.Code != http.StatusOK || decodeJSON(t, rr)["status"] != "ok" {
		t.Fatalf("health: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, s, http.MethodGet, "/programs", nil, nil)
	programs, ok := decodeJSON(t, rr)["programs"].([]any)
	if !ok || len(programs) != 3 {
		t.Fatalf("expected three programs, got %s", rr.Body.String())
	}
	if rr := do(t, s, http.MethodGet, "/metrics", nil, nil); rr.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rr.Code)
	}
}

func TestPetStateFormats(t *testing.T) {
	testlog.Start(t)
	s, w := newServer(t, world.Options{})

	rr := do(t, s, http.MethodGet, "/pet/state", nil, nil)
	body := decodeJSON(t, rr)
	st, ok := body["state"].(map[string]any)
	if !ok || st["name"] != "Rex" {
		t.Fatalf("unexpected state body %s", rr.Body.String())
	}
	if _, ok := body["levels"].(map[string]any); !ok {
		t.Fatalf("missing levels")
	}

	rr = do(t, s, http.MethodGet, "/pet/state?format=scale", nil, nil)
	decoded, err := wire.DecodeState(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("decode scale state: %v", err)
	}
	if decoded.TokenActor != w.TokenID {
		t.Fatalf("token actor mismatch")
	}
}

func TestHandleFrameWithAuth(t *testing.T) {
	testlog.Start(t)
	s, w := newServer(t, world.Options{})

	rr := do(t, s, http.MethodPost, "/pet/handle", handleFrame(t, wire.Request{Kind: wire.RequestFeed}, w.Owner[:]), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("feed: %d %s", rr.Code, rr.Body.String())
	}
	out, err := frame.Unmarshal(rr.Body.Bytes())
	if err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if out.Header.MessageType != frame.TypeReply || out.Header.MessageID != 7 || out.Header.Flags&frame.FlagIsReply == 0 {
		t.Fatalf("unexpected reply header %+v", out.Header)
	}
	ev, err := wire.DecodeEvent(out.Payload)
	if err != nil || ev.Kind != wire.EventFed {
		t.Fatalf("expected Fed, got %+v err=%v", ev, err)
	}
}

func TestHandleFrameHeaderSource(t *testing.T) {
	testlog.Start(t)
	s, _ := newServer(t, world.Options{})

	rr := do(t, s, http.MethodPost, "/pet/handle", handleFrame(t, wire.Request{Kind: wire.RequestFeed}, nil),
		map[string]string{observability.HeaderActorID: "owner"})
	if rr.Code != http.StatusOK {
		t.Fatalf("owner by header: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, s, http.MethodPost, "/pet/handle", handleFrame(t, wire.Request{Kind: wire.RequestFeed}, nil),
		map[string]string{observability.HeaderActorID: "mallory"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
	out, err := frame.Unmarshal(rr.Body.Bytes())
	if err != nil || out.Header.Flags&frame.FlagIsError == 0 {
		t.Fatalf("expected error frame, err=%v flags=%d", err, out.Header.Flags)
	}

	rr = do(t, s, http.MethodPost, "/pet/handle", handleFrame(t, wire.Request{Kind: wire.RequestFeed}, nil), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without source, got %d", rr.Code)
	}
}

func TestHandleRejectsMalformed(t *testing.T) {
	testlog.Start(t)
	s, w := newServer(t, world.Options{})

	if rr := do(t, s, http.MethodPost, "/pet/handle", []byte("nope"), nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for garbage, got %d", rr.Code)
	}
	b, _ := frame.Marshal(frame.Frame{
		Header:  frame.Header{MessageType: frame.TypeHandle},
		Auth:    w.Owner[:],
		Payload: []byte{0xff},
	})
	if rr := do(t, s, http.MethodPost, "/pet/handle", b, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown request kind, got %d", rr.Code)
	}
	b, _ = frame.Marshal(frame.Frame{Header: frame.Header{MessageType: frame.TypeState}, Auth: w.Owner[:]})
	if rr := do(t, s, http.MethodPost, "/pet/handle", b, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for state frame, got %d", rr.Code)
	}
}

func TestAdvanceDeliversSelfPing(t *testing.T) {
	testlog.Start(t)
	s, w := newServer(t, world.Options{})
	start := w.Runtime.Now()

	rr := do(t, s, http.MethodPost, "/blocks/advance?n=60", nil, nil)
	body := decodeJSON(t, rr)
	if rr.Code != http.StatusOK || body["delivered"].(float64) < 1 {
		t.Fatalf("advance: %d %s", rr.Code, rr.Body.String())
	}
	if w.Runtime.Now() != start+60 {
		t.Fatalf("clock %d", w.Runtime.Now())
	}
	if rr := do(t, s, http.MethodPost, "/blocks/advance?n=x", nil, nil); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestJournalRoute(t *testing.T) {
	testlog.Start(t)
	s, _ := newServer(t, world.Options{})
	if rr := do(t, s, http.MethodGet, "/journal", nil, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without journal, got %d", rr.Code)
	}

	s, _ = newServer(t, world.Options{JournalPath: filepath.Join(t.TempDir(), "j.db")})
	rr := do(t, s, http.MethodGet, "/journal?limit=5", nil, nil)
	entries, ok := decodeJSON(t, rr)["entries"].([]any)
	if rr.Code != http.StatusOK || !ok || len(entries) == 0 || len(entries) > 5 {
		t.Fatalf("journal: %d %s", rr.Code, rr.Body.String())
	}
}

func TestAdvanceRequiresAdminToken(t *testing.T) {
	testlog.Start(t)
	w, err := world.Open(context.Background(), config.DefaultWorldConfig(), world.Options{})
	if err != nil {
		t.Fatalf("open world: %v", err)
	}
	defer w.Close()
	s := New(w, Options{AdminToken: "tick"})

	if rr := do(t, s, http.MethodPost, "/blocks/advance?n=1", nil, nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	rr := do(t, s, http.MethodPost, "/blocks/advance?n=1", nil, map[string]string{"Authorization": "Bearer tick"})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rr.Code, rr.Body.String())
	}
}
