package lens

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AleutianAI/AleutianLens/services/lens/analysis"
)

func TestHandleStream_PushesSummaries(t *testing.T) {
	ts := setupTestRouter(t, false, 0)
	first := ts.analyze(t, "first.js", `function one() {}`)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/lens/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var got analysis.Summary
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read current summary: %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("expected current result %s first, got %s", first.ID, got.ID)
	}

	second := ts.analyze(t, "second.js", listenerSource)
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read pushed summary: %v", err)
	}
	if got.ID != second.ID || got.Quality.Total != 84 {
		t.Errorf("unexpected pushed summary: %+v", got)
	}
}

func TestHandleStream_RejectsPlainHTTP(t *testing.T) {
	ts := setupTestRouter(t, false, 0)
	w := ts.do(t, http.MethodGet, "/v1/lens/stream", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-upgrade request, got %d", w.Code)
	}
}
