package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"crisis-sim/client/internal/model"
)

// TestCreateSimulation 验证创建请求的编解码。
// 场景：请求体携带 initial_prompt 与 developer_mode，201 响应
// 解码出初始快照。
func TestCreateSimulation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/simulations" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req model.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.InitialPrompt != "flood" || !req.DeveloperMode {
			t.Errorf("unexpected request body: %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.Simulation{
			SimulationID:      "sim_a",
			CurrentTurnNumber: 1,
			MaxTurns:          3,
		})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	sim, err := c.CreateSimulation(context.Background(), model.CreateRequest{
		InitialPrompt: "flood",
		DeveloperMode: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sim.SimulationID != "sim_a" || sim.MaxTurns != 3 {
		t.Fatalf("unexpected snapshot: %+v", sim)
	}
}

// TestSubmitResponseAckOnly 验证提交只拿确认不拿快照。
// 场景：202 Accepted 即成功，响应体不参与状态更新。
func TestSubmitResponseAckOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/simulations/sim_a/respond" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req model.RespondRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ResponseText != "evacuate" {
			t.Errorf("unexpected text: %q", req.ResponseText)
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	if err := c.SubmitResponse(context.Background(), "sim_a", "evacuate"); err != nil {
		t.Fatalf("submit: %v", err)
	}
}

// TestTransportErrorOnBadStatus 验证非 2xx 包装为传输错误。
func TestTransportErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	err := c.SubmitResponse(context.Background(), "sim_a", "late")
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if te.Status != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", te.Status)
	}
}

// TestRequestAbortedByContext 验证中止计时生效。
// 场景：后端迟迟不响应时，context 超时后放弃等待并报传输错误，
// 绝不无限挂起。
func TestRequestAbortedByContext(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := New(srv.URL, nil)
	_, err := c.CreateSimulation(ctx, model.CreateRequest{})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected transport error on timeout, got %v", err)
	}
}

// TestFetchSimulation 验证快照拉取。
func TestFetchSimulation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/simulations/sim_a" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(model.Simulation{SimulationID: "sim_a", CurrentTurnNumber: 2})
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	sim, err := c.FetchSimulation(context.Background(), "sim_a")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if sim.CurrentTurnNumber != 2 {
		t.Fatalf("unexpected snapshot: %+v", sim)
	}
}
