package channel

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"crisis-sim/client/internal/engine"
	"crisis-sim/client/internal/model"
)

type capturingDispatcher struct {
	events chan engine.Event
}

func (d *capturingDispatcher) Dispatch(evt engine.Event) error {
	d.events <- evt
	return nil
}

// pushServer 起一个只会回放给定帧序列的 WebSocket 端点。
func pushServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/ws/simulations/") {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		for _, frame := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				return
			}
		}
		// 留着连接让客户端先关。
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func recvEvent(t *testing.T, d *capturingDispatcher) engine.Event {
	t.Helper()
	select {
	case evt := <-d.events:
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for dispatched event")
		return nil
	}
}

// TestAdapterDecodesFramesInOrder 验证推送帧按到达顺序解码派发。
// 场景：进度帧与快照帧交替到达，派发顺序必须与线上顺序一致，
// 且每个事件都被盖上 EventID。
func TestAdapterDecodesFramesInOrder(t *testing.T) {
	srv := pushServer(t, []string{
		`{"type":"simulation_state","simulation":{"simulation_id":"sim_a","current_turn_number":1}}`,
		`{"type":"progress_update","step":"scenario_generated"}`,
		`{"type":"simulation_updated","simulation":{"simulation_id":"sim_a","current_turn_number":2}}`,
	})
	defer srv.Close()

	d := &capturingDispatcher{events: make(chan engine.Event, 8)}
	a := New(wsURL(srv), d, nil)
	if err := a.Open("sim_a"); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	first, ok := recvEvent(t, d).(engine.EventStatePushed)
	if !ok || first.Simulation.CurrentTurnNumber != 1 {
		t.Fatalf("expected state push for turn 1, got %+v", first)
	}
	if first.EventID == "" {
		t.Fatalf("state push must carry an event id")
	}

	progress, ok := recvEvent(t, d).(engine.EventProgressPushed)
	if !ok || progress.Step != model.StepScenarioGenerated {
		t.Fatalf("expected progress push, got %+v", progress)
	}

	second, ok := recvEvent(t, d).(engine.EventStatePushed)
	if !ok || second.Simulation.CurrentTurnNumber != 2 {
		t.Fatalf("expected state push for turn 2, got %+v", second)
	}
	if second.EventID == first.EventID {
		t.Fatalf("event ids must be distinct per frame")
	}
}

// TestAdapterDropsMalformedFrames 验证坏帧只丢弃不致命。
// 场景：非 JSON、未知类型的帧被记日志后丢弃，后续帧照常派发。
func TestAdapterDropsMalformedFrames(t *testing.T) {
	srv := pushServer(t, []string{
		`not json at all`,
		`{"type":"mystery_frame"}`,
		`{"type":"progress_update","step":"clips_generated"}`,
	})
	defer srv.Close()

	d := &capturingDispatcher{events: make(chan engine.Event, 8)}
	a := New(wsURL(srv), d, nil)
	if err := a.Open("sim_a"); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	evt := recvEvent(t, d)
	progress, ok := evt.(engine.EventProgressPushed)
	if !ok || progress.Step != model.StepClipsGenerated {
		t.Fatalf("expected surviving progress frame, got %+v", evt)
	}
}

// TestAdapterDeliberateCloseIsSilent 验证主动关闭不派发断开事件。
func TestAdapterDeliberateCloseIsSilent(t *testing.T) {
	srv := pushServer(t, nil)
	defer srv.Close()

	d := &capturingDispatcher{events: make(chan engine.Event, 8)}
	a := New(wsURL(srv), d, nil)
	if err := a.Open("sim_a"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// 再关一次：幂等。
	if err := a.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	select {
	case evt := <-d.events:
		t.Fatalf("deliberate close must not dispatch, got %+v", evt)
	case <-time.After(200 * time.Millisecond):
	}
}

// TestAdapterServerCloseDispatches 验证服务端断开会派发断开事件。
func TestAdapterServerCloseDispatches(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	d := &capturingDispatcher{events: make(chan engine.Event, 8)}
	a := New(wsURL(srv), d, nil)
	if err := a.Open("sim_a"); err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()

	evt := recvEvent(t, d)
	if _, ok := evt.(engine.EventChannelClosed); !ok {
		t.Fatalf("expected channel closed event, got %+v", evt)
	}
}
