package media

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// ErrSimLoadFailed 是合成元素对加载失败的统一报错。
var ErrSimLoadFailed = errors.New("simulated media load failure")

// SimElement 是一个计时器驱动的合成媒体元素，用于本地联调与集成测试：
// SetSource 之后等一段“加载延迟”触发 can_play，Play 之后按固定时长
// 走完并触发 ended。没有真实解码，但生命周期事件与真实元素一致。
type SimElement struct {
	id string

	mu        sync.Mutex
	source    string
	loading   *time.Timer
	playing   *time.Timer
	startedAt time.Time
	basePos   float64
	inPlay    bool

	loadDelay time.Duration
	duration  time.Duration
	emit      EventFunc
}

// NewSimElement 创建合成元素。
// loadDelay 模拟资源加载耗时，duration 模拟媒体时长。
func NewSimElement(id string, loadDelay, duration time.Duration, emit EventFunc) *SimElement {
	if emit == nil {
		emit = func(Event) {}
	}
	return &SimElement{
		id:        id,
		loadDelay: loadDelay,
		duration:  duration,
		emit:      emit,
	}
}

func (e *SimElement) ID() string { return e.id }

// SetSource 切换资源。URL 中带有 "broken" 的资源会在加载后报错，
// 方便联调失败路径（坏片段跳过、音频缺失降级）。
func (e *SimElement) SetSource(url string) {
	e.mu.Lock()
	e.stopTimersLocked()
	e.source = url
	e.basePos = 0
	e.inPlay = false
	if url == "" {
		e.mu.Unlock()
		return
	}

	failing := strings.Contains(url, "broken")
	e.loading = time.AfterFunc(e.loadDelay, func() {
		if failing {
			e.emit(Event{ElementID: e.id, Type: EventError, Err: ErrSimLoadFailed})
			return
		}
		e.emit(Event{ElementID: e.id, Type: EventCanPlay})
	})
	e.mu.Unlock()
}

func (e *SimElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.source
}

func (e *SimElement) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.source == "" || e.inPlay {
		return nil
	}
	e.inPlay = true
	e.startedAt = time.Now()

	remaining := e.duration - time.Duration(e.basePos*float64(time.Second))
	if remaining < 0 {
		remaining = 0
	}
	e.playing = time.AfterFunc(remaining, func() {
		e.mu.Lock()
		e.inPlay = false
		e.basePos = e.duration.Seconds()
		e.mu.Unlock()
		e.emit(Event{ElementID: e.id, Type: EventEnded, Position: e.duration.Seconds()})
	})
	return nil
}

func (e *SimElement) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inPlay {
		e.basePos += time.Since(e.startedAt).Seconds()
		e.inPlay = false
	}
	if e.playing != nil {
		e.playing.Stop()
		e.playing = nil
	}
}

func (e *SimElement) Seek(pos float64) {
	e.mu.Lock()
	e.basePos = pos
	if e.inPlay {
		e.startedAt = time.Now()
	}
	e.mu.Unlock()
	// 异步派发：Seek 常由协调器在持锁状态下发起，同步回调会自锁。
	go e.emit(Event{ElementID: e.id, Type: EventSeeked, Position: pos})
}

func (e *SimElement) Position() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inPlay {
		return e.basePos + time.Since(e.startedAt).Seconds()
	}
	return e.basePos
}

func (e *SimElement) stopTimersLocked() {
	if e.loading != nil {
		e.loading.Stop()
		e.loading = nil
	}
	if e.playing != nil {
		e.playing.Stop()
		e.playing = nil
	}
}
