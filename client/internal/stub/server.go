package stub

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"crisis-sim/client/internal/model"
)

// Options 是桩后端的行为参数。
type Options struct {
	// MaxTurns 是每个会话的回合上限。
	MaxTurns int
	// ClipCount 是每回合生成的片段数。
	ClipCount int
	// GenerationDelay 模拟服务端生成耗时（developer_mode 会话减半再减半）。
	GenerationDelay time.Duration
	Logger          *log.Logger
}

// Server 是本地桩后端：用预置脚本实现与真实后端相同的协议面，
// 供客户端联调与集成测试使用。
//
// 协议面：
//   - POST   /api/simulations           创建会话，同步返回初始快照
//   - GET    /api/simulations/:id       读取当前快照
//   - DELETE /api/simulations/:id       删除会话
//   - POST   /api/simulations/:id/respond 提交回复（仅确认，快照走推送）
//   - GET    /ws/simulations/:id        推送通道（simulation_state /
//     progress_update / simulation_updated）
type Server struct {
	store  Store
	script *Script
	opts   Options
	logger *log.Logger

	upgrader websocket.Upgrader

	connsMu sync.Mutex
	conns   map[string][]*wsConn
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// NewServer 创建桩后端。
func NewServer(store Store, opts Options) *Server {
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = 3
	}
	if opts.ClipCount <= 0 {
		opts.ClipCount = 3
	}
	if opts.GenerationDelay <= 0 {
		opts.GenerationDelay = 300 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Server{
		store:  store,
		script: NewScript(),
		opts:   opts,
		logger: logger,
		upgrader: websocket.Upgrader{
			// 桩只在本地跑，放开跨域检查。
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string][]*wsConn),
	}
}

// Routes 装配路由。
func (s *Server) Routes() http.Handler {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.POST("/api/simulations", s.handleCreate)
	engine.GET("/api/simulations/:id", s.handleGet)
	engine.DELETE("/api/simulations/:id", s.handleDelete)
	engine.POST("/api/simulations/:id/respond", s.handleRespond)
	engine.GET("/ws/simulations/:id", s.handleStream)
	return engine
}

func (s *Server) handleCreate(c *gin.Context) {
	var req model.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	id := "sim_" + uuid.NewString()[:8]
	seed := seedFor(id)
	clips, audio := s.script.MediaFor(id, 1, s.opts.ClipCount)

	sim := &model.Simulation{
		SimulationID:      id,
		CurrentTurnNumber: 1,
		SubmissionCount:   0,
		MaxTurns:          s.opts.MaxTurns,
		DeveloperMode:     req.DeveloperMode,
		Turns: []model.Turn{{
			TurnNumber:       1,
			SelectedScenario: s.script.Opening(req.InitialPrompt, seed),
			VideoURLs:        clips,
			AudioURL:         audio,
		}},
	}

	if err := s.store.Save(sim); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save simulation failed"})
		return
	}

	s.logger.Printf("[Stub] simulation created: %s (max_turns=%d)", id, sim.MaxTurns)
	c.JSON(http.StatusCreated, sim)
}

func (s *Server) handleGet(c *gin.Context) {
	sim, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "simulation not found"})
		return
	}
	c.JSON(http.StatusOK, sim)
}

func (s *Server) handleDelete(c *gin.Context) {
	if !s.store.Delete(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "simulation not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleRespond(c *gin.Context) {
	var req model.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	id := c.Param("id")
	sim, err := s.store.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "simulation not found"})
		return
	}
	if sim.IsComplete {
		c.JSON(http.StatusConflict, gin.H{"error": "simulation already complete"})
		return
	}

	sim.SubmissionCount++
	if err := s.store.Save(sim); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save simulation failed"})
		return
	}

	// 先确认，再异步“生成”：快照不随本响应返回，走推送通道。
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	go s.generateNextTurn(id)
}

// generateNextTurn 模拟服务端生成流程：按步推送进度，最后广播新快照。
// 协议怪癖（与真实后端保持一致）：最后一回合提交后 is_complete 置位，
// current_turn_number 不再前进，结局载荷写在 current_turn_number+1 的
// 回合上——比最后一个常规回合多一个下标。
func (s *Server) generateNextTurn(id string) {
	sim, err := s.store.Get(id)
	if err != nil {
		return
	}

	delay := s.opts.GenerationDelay
	if sim.DeveloperMode {
		delay /= 4
	}

	time.Sleep(delay)
	s.broadcast(id, model.ProgressMessage{Type: model.MessageTypeProgress, Step: model.StepScenarioGenerated})

	var turn model.Turn
	if sim.SubmissionCount >= sim.MaxTurns {
		sim.IsComplete = true
		turn = model.Turn{
			TurnNumber:       sim.CurrentTurnNumber + 1,
			SelectedScenario: s.script.Conclusion(seedFor(id)),
		}
	} else {
		sim.CurrentTurnNumber++
		turn = model.Turn{
			TurnNumber:       sim.CurrentTurnNumber,
			SelectedScenario: s.script.FollowUp(sim.CurrentTurnNumber),
		}
	}

	time.Sleep(delay)
	clips, audio := s.script.MediaFor(id, turn.TurnNumber, s.opts.ClipCount)
	turn.VideoURLs = clips
	s.broadcast(id, model.ProgressMessage{Type: model.MessageTypeProgress, Step: model.StepClipsGenerated})

	time.Sleep(delay)
	turn.AudioURL = audio
	s.broadcast(id, model.ProgressMessage{Type: model.MessageTypeProgress, Step: model.StepAudioGenerated})

	sim.Turns = append(sim.Turns, turn)
	if err := s.store.Save(sim); err != nil {
		s.logger.Printf("[Stub] save after generation failed: %v", err)
		return
	}

	s.broadcast(id, model.StateMessage{Type: model.MessageTypeUpdated, Simulation: *sim})
	s.logger.Printf("[Stub] pushed turn %d (complete=%t) for %s", turn.TurnNumber, sim.IsComplete, id)
}

func (s *Server) handleStream(c *gin.Context) {
	id := c.Param("id")
	sim, err := s.store.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "simulation not found"})
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Printf("[Stub] upgrade failed: %v", err)
		return
	}

	wc := &wsConn{conn: conn}
	s.connsMu.Lock()
	s.conns[id] = append(s.conns[id], wc)
	s.connsMu.Unlock()

	// 订阅成功先推全量快照。
	wc.writeJSON(model.StateMessage{Type: model.MessageTypeState, Simulation: *sim})

	// 读循环只为感知断开；客户端不在通道上发业务帧。
	go func() {
		defer s.unregister(id, wc)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) broadcast(id string, payload any) {
	s.connsMu.Lock()
	conns := make([]*wsConn, len(s.conns[id]))
	copy(conns, s.conns[id])
	s.connsMu.Unlock()

	for _, wc := range conns {
		if err := wc.writeJSON(payload); err != nil {
			s.logger.Printf("[Stub] push failed: %v", err)
		}
	}
}

func (s *Server) unregister(id string, wc *wsConn) {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()

	conns := s.conns[id]
	for i, cand := range conns {
		if cand == wc {
			s.conns[id] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(s.conns[id]) == 0 {
		delete(s.conns, id)
	}
	wc.conn.Close()
}

// seedFor 从会话 id 派生稳定种子，让脚本输出可复现。
func seedFor(id string) int {
	sum := 0
	for _, b := range []byte(id) {
		sum += int(b)
	}
	return sum
}
