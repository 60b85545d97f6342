package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"crisis-sim/client/internal/journal"
	"crisis-sim/client/internal/model"
)

// Backend 是外部后端的请求/响应契约。
// 注意 SubmitResponse 只返回确认：新快照不在响应里，
// 生成完成后经推送通道送达。
type Backend interface {
	CreateSimulation(ctx context.Context, req model.CreateRequest) (*model.Simulation, error)
	SubmitResponse(ctx context.Context, simulationID, text string) error
}

// ChannelOpener 管理推送通道的打开与关闭（由通道适配器实现）。
type ChannelOpener interface {
	Open(simulationID string) error
	Close() error
}

// PlaybackSink 接收引擎对播放/呈现侧的意图。
type PlaybackSink interface {
	LoadPlaylist(p model.Playlist)
	ShowConclusion(grade int, explanation string, p model.Playlist)
}

const (
	// 队列容量：超过即丢弃事件（背压控制）。
	defaultQueueCapacity = 100
	// 出站请求的中止计时，对齐最坏情况的服务端生成时延。
	defaultRequestTimeout = 3 * time.Minute
)

// Engine 为单个会话提供串行事件处理（Actor Model）。
//
// 职责与契约：
// - append-first：事件先写审计日志，再做 reduce，保证可回放。
// - 决策集中：所有状态变更都经过 Reduce，副作用由引擎统一执行。
// - 串行处理：单协程消费队列，事件严格按到达顺序归约，
//   陈旧/重复消息的幂等处理由归约器负责。
type Engine struct {
	logger  *log.Logger
	backend Backend
	opener  ChannelOpener
	sink    PlaybackSink
	journal journal.Store

	requestTimeout time.Duration

	queue  chan Event
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.RWMutex
	state State
}

// Options 是引擎的可选依赖与参数。
type Options struct {
	Logger         *log.Logger
	Journal        journal.Store
	RequestTimeout time.Duration
	QueueCapacity  int
}

// New 创建并启动会话引擎。
func New(backend Backend, opener ChannelOpener, sink PlaybackSink, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	capacity := opts.QueueCapacity
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		logger:         logger,
		backend:        backend,
		opener:         opener,
		sink:           sink,
		journal:        opts.Journal,
		requestTimeout: timeout,
		queue:          make(chan Event, capacity),
		ctx:            ctx,
		cancel:         cancel,
		state:          State{Phase: PhaseIdle},
	}

	e.wg.Add(1)
	go e.processLoop()
	return e
}

// Dispatch 把事件加入队列（异步，非阻塞）。
// 队列满时丢弃并记日志，宁可丢事件也不阻塞投递方的读循环。
func (e *Engine) Dispatch(evt Event) error {
	select {
	case <-e.ctx.Done():
		return fmt.Errorf("engine closed")
	default:
	}

	select {
	case e.queue <- evt:
		return nil
	default:
		e.logger.Printf("[Engine] queue full, dropping event: %s", evt.Kind())
		return fmt.Errorf("event queue full")
	}
}

// Snapshot 返回会话状态的只读副本。
func (e *Engine) Snapshot() State {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := e.state
	snap.History = make([]HistoryEntry, len(e.state.History))
	copy(snap.History, e.state.History)
	if e.state.Grade != nil {
		grade := *e.state.Grade
		snap.Grade = &grade
	}
	return snap
}

// Close 停止引擎：结束处理循环并关闭推送通道。
// 会话拆除必须取消在途请求、关通道、释放媒体资源；
// 前两者在这里完成，媒体由协调器的 Stop 负责。
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()
	if e.opener != nil {
		return e.opener.Close()
	}
	return nil
}

func (e *Engine) processLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case evt := <-e.queue:
			e.handle(evt)
		}
	}
}

func (e *Engine) handle(evt Event) {
	e.appendJournal(evt)

	e.mu.Lock()
	intents := Reduce(&e.state, evt)
	e.mu.Unlock()

	for _, intent := range intents {
		e.execute(intent)
	}
}

// execute 执行归约器产出的意图。
// 出站请求在独立协程里带超时执行，结果再以事件形式回到队列，
// 处理循环本身永不阻塞。
func (e *Engine) execute(intent Intent) {
	switch in := intent.(type) {
	case IntentCreateSimulation:
		go func() {
			ctx, cancel := context.WithTimeout(e.ctx, e.requestTimeout)
			defer cancel()
			sim, err := e.backend.CreateSimulation(ctx, model.CreateRequest{
				InitialPrompt: in.InitialPrompt,
				DeveloperMode: in.DeveloperMode,
			})
			if err != nil {
				e.Dispatch(EventCreateFailed{Err: err})
				return
			}
			e.Dispatch(EventSessionCreated{Simulation: *sim})
		}()

	case IntentSubmitResponse:
		go func() {
			ctx, cancel := context.WithTimeout(e.ctx, e.requestTimeout)
			defer cancel()
			if err := e.backend.SubmitResponse(ctx, in.SimulationID, in.Text); err != nil {
				e.Dispatch(EventSubmitFailed{Err: err})
				return
			}
			e.Dispatch(EventSubmitAcked{})
		}()

	case IntentOpenChannel:
		go func() {
			if e.opener == nil {
				return
			}
			if err := e.opener.Open(in.SimulationID); err != nil {
				e.logger.Printf("[Engine] open channel failed: %v", err)
				e.Dispatch(EventChannelClosed{Err: err})
			}
		}()

	case IntentLoadPlaylist:
		if e.sink != nil {
			e.sink.LoadPlaylist(in.Playlist)
		}

	case IntentShowConclusion:
		if e.sink != nil {
			e.sink.ShowConclusion(in.Grade, in.Explanation, in.Playlist)
		}
	}
}

// appendJournal 以 append-first 契约记录事件。
// 日志失败只记警告，不影响归约。
func (e *Engine) appendJournal(evt Event) {
	if e.journal == nil {
		return
	}

	entry := journal.Entry{Kind: evt.Kind()}
	switch ev := evt.(type) {
	case EventStatePushed:
		entry.EventID = ev.EventID
		entry.Detail = fmt.Sprintf("turn=%d complete=%t", ev.Simulation.CurrentTurnNumber, ev.Simulation.IsComplete)
	case EventProgressPushed:
		entry.EventID = ev.EventID
		entry.Detail = ev.Step
	case EventSubmit:
		entry.Detail = fmt.Sprintf("chars=%d", len(ev.Text))
	}

	e.mu.RLock()
	simID := e.state.SimulationID
	e.mu.RUnlock()
	if simID == "" {
		simID = "pending"
	}

	if _, err := e.journal.Append(e.ctx, simID, &entry); err != nil {
		e.logger.Printf("[Engine] journal append failed: %v", err)
	}
}
