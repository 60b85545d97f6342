package channel

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crisis-sim/client/internal/engine"
	"crisis-sim/client/internal/model"
)

// ErrMalformedFrame 标记无法解码的推送帧。
// 这类帧只记日志后丢弃，绝不允许打挂状态机。
var ErrMalformedFrame = errors.New("malformed push frame")

// Dispatcher 接收解码后的类型化事件（由会话引擎实现）。
type Dispatcher interface {
	Dispatch(evt engine.Event) error
}

const defaultPingInterval = 30 * time.Second

// Adapter 是推送通道适配器。
//
// 契约：
// - 每个活跃会话 id 至多持有一条推送连接；会话 id 变化或组件
//   销毁时必须拆除旧连接（底层连接一并关闭）。
// - 入站帧严格按到达顺序解码、派发。
// - 通道断开不自动重连：需要用户显式重新开始会话。
type Adapter struct {
	wsBaseURL string
	dispatch  Dispatcher
	logger    *log.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	closing bool
	done    chan struct{}
}

// New 创建通道适配器。wsBaseURL 形如 "ws://127.0.0.1:8000"。
func New(wsBaseURL string, dispatch Dispatcher, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.Default()
	}
	return &Adapter{
		wsBaseURL: wsBaseURL,
		dispatch:  dispatch,
		logger:    logger,
	}
}

// Open 为给定会话打开推送通道。
// 已有连接会先被拆除（一个适配器同一时刻只服务一个会话）。
func (a *Adapter) Open(simulationID string) error {
	a.Close()

	url := fmt.Sprintf("%s/ws/simulations/%s", a.wsBaseURL, simulationID)
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial push channel: status=%d err=%w", resp.StatusCode, err)
		}
		return fmt.Errorf("dial push channel: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.closing = false
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	a.logger.Printf("[Channel] opened for simulation %s", simulationID)

	go a.readLoop(conn, done)
	go a.pingLoop(conn, done)
	return nil
}

// Close 拆除当前连接（幂等）。
func (a *Adapter) Close() error {
	a.mu.Lock()
	conn := a.conn
	done := a.done
	if conn == nil {
		a.mu.Unlock()
		return nil
	}
	a.closing = true
	a.conn = nil
	a.done = nil
	a.mu.Unlock()

	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := conn.Close()
	if done != nil {
		close(done)
	}
	return err
}

// readLoop 顺序读取并派发推送帧。
func (a *Adapter) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			a.mu.Lock()
			deliberate := a.closing
			a.mu.Unlock()
			if deliberate {
				return
			}
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.logger.Printf("[Channel] read error: %v", err)
			}
			a.dispatch.Dispatch(engine.EventChannelClosed{Err: err})
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := a.handleFrame(data); err != nil {
			// 坏帧丢弃，通道继续活着。
			a.logger.Printf("[Channel] dropping frame: %v", err)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

// handleFrame 把一帧解码成类型化事件并派发。
func (a *Adapter) handleFrame(data []byte) error {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &base); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch base.Type {
	case model.MessageTypeState, model.MessageTypeUpdated:
		var msg model.StateMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return a.dispatch.Dispatch(engine.EventStatePushed{
			EventID:    uuid.NewString(),
			Simulation: msg.Simulation,
		})

	case model.MessageTypeProgress:
		var msg model.ProgressMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		return a.dispatch.Dispatch(engine.EventProgressPushed{
			EventID: uuid.NewString(),
			Step:    msg.Step,
		})

	default:
		// 未知类型按协议错误处理：记一条告警，不影响可见状态。
		return fmt.Errorf("%w: unknown type %q", ErrMalformedFrame, base.Type)
	}
}

// pingLoop 定期发 ping 保活。
func (a *Adapter) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(defaultPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(5*time.Second))
		}
	}
}
