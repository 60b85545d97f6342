package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"crisis-sim/client/internal/model"
)

// TransportError 表示与后端的传输层失败（超时、连接失败、非 2xx）。
// 这类错误直接呈现给用户、不自动重试，由用户重新触发动作。
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client 是外部模拟后端的 HTTP 客户端。
// 出站请求由调用方传入的 context 控制中止计时（分钟量级，
// 对齐最坏情况的生成时延）；超时后放弃等待并报错，绝不无限挂起。
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// New 创建后端客户端。baseURL 形如 "http://127.0.0.1:8000"。
func New(baseURL string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		baseURL: baseURL,
		// 连接与握手的基础超时；整体时限由请求 context 决定。
		http:   &http.Client{Timeout: 0},
		logger: logger,
	}
}

// CreateSimulation 创建新的模拟会话，返回初始快照。
func (c *Client) CreateSimulation(ctx context.Context, req model.CreateRequest) (*model.Simulation, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal create request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/simulations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "create simulation", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Op: "create simulation", Status: resp.StatusCode}
	}

	var sim model.Simulation
	if err := json.NewDecoder(resp.Body).Decode(&sim); err != nil {
		return nil, fmt.Errorf("decode create response: %w", err)
	}

	c.logger.Printf("[Backend] simulation created: %s", sim.SimulationID)
	return &sim, nil
}

// SubmitResponse 提交用户回复。
// 响应只是确认：生成在服务端随后进行，新快照经推送通道送达。
func (c *Client) SubmitResponse(ctx context.Context, simulationID, text string) error {
	body, err := json.Marshal(model.RespondRequest{ResponseText: text})
	if err != nil {
		return fmt.Errorf("marshal respond request: %w", err)
	}

	url := fmt.Sprintf("%s/api/simulations/%s/respond", c.baseURL, simulationID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build respond request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return &TransportError{Op: "submit response", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return &TransportError{Op: "submit response", Status: resp.StatusCode}
	}

	c.logger.Printf("[Backend] response acked in %v", time.Since(start))
	return nil
}

// FetchSimulation 拉取指定会话的当前快照（调试/恢复用）。
func (c *Client) FetchSimulation(ctx context.Context, simulationID string) (*model.Simulation, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/simulations/"+simulationID, nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "fetch simulation", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Op: "fetch simulation", Status: resp.StatusCode}
	}

	var sim model.Simulation
	if err := json.NewDecoder(resp.Body).Decode(&sim); err != nil {
		return nil, fmt.Errorf("decode fetch response: %w", err)
	}
	return &sim, nil
}
