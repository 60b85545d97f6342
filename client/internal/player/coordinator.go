package player

import (
	"errors"
	"log"
	"sync"
	"time"

	"crisis-sim/client/internal/media"
	"crisis-sim/client/internal/model"
)

// SlotState 是单个输出槽位的生命周期状态。
// 加载失败（errored）在排序意义上等同于播完：坏片段被直接跳过，
// 不允许让一个坏片段卡死整条序列。
type SlotState string

const (
	SlotEmpty   SlotState = "empty"
	SlotLoading SlotState = "loading"
	SlotReady   SlotState = "ready"
	SlotPlaying SlotState = "playing"
	SlotEnded   SlotState = "ended"
	SlotErrored SlotState = "errored"
)

const defaultPollInterval = 50 * time.Millisecond

// slot 是固定两元环形缓冲里的一个视频输出槽位。
type slot struct {
	elem      media.Element
	state     SlotState
	clipIndex int
}

// Status 是呈现层读取的播放快照。
type Status struct {
	Playing         bool
	AwaitingGesture bool
	AudioDone       bool
	ClipIndex       int
	ActiveSlot      int
	ClipCount       int
}

// Coordinator 是无缝双缓冲播放协调器。
//
// 结构：两个可互换的视频槽位组成定长为 2 的环，用显式 active 下标
// 标记当前可见的那一个；另一个作为 standby 静默预载下一个片段。
// 一路共享音频贯穿全部片段，是把序列缝起来的连续线索（槽位交换时
// 音频不动）；视频是计时主轴，活动片段每次被跳转都强制把音频对齐过去。
//
// 排序保证：交换严格串行，standby 在当前活动片段播完之前绝不可见；
// 任一时刻至多一个槽位处于播放状态。
type Coordinator struct {
	mu     sync.Mutex
	logger *log.Logger

	slots  [2]*slot
	active int
	audio  media.Element

	playlist model.Playlist
	ready    Readiness

	playing         bool
	awaitingGesture bool
	audioDone       bool
	// pendingAdvance 表示活动片段已结束但 standby 还没就绪，
	// 正在等事件或短轮询补上这一拍。
	pendingAdvance bool
	// suppressResync 吃掉下一次程序化 Seek 产生的 seeked 事件，
	// 避免单片段循环把音频也拽回 0。
	suppressResync bool

	pollInterval time.Duration
	retry        *time.Timer
	// generation 在每次 Load 时递增，用来作废旧清单遗留的定时器回调。
	generation uint64
}

// New 创建协调器。元素通过 Attach 绑定（元素构造时需要协调器的
// HandleMediaEvent 作为事件回调，所以分两步）。
func New(logger *log.Logger, pollInterval time.Duration) *Coordinator {
	if logger == nil {
		logger = log.Default()
	}
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Coordinator{
		logger:       logger,
		pollInterval: pollInterval,
	}
}

// Attach 绑定两个视频槽位元素和一路音频元素。
func (c *Coordinator) Attach(videoA, videoB, audio media.Element) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[0] = &slot{elem: videoA, state: SlotEmpty, clipIndex: -1}
	c.slots[1] = &slot{elem: videoB, state: SlotEmpty, clipIndex: -1}
	c.audio = audio
}

// Load 装载一份新的播放清单。
// 先整体卸载旧媒体（停止并置空两个槽位与音频），保证旧回合的
// 帧或音轨不会串进新回合，然后按“片段0进活动槽、片段1进预载槽”
// 的约定开始加载。
func (c *Coordinator) Load(p model.Playlist) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.stopRetryLocked()
	c.teardownLocked()

	c.playlist = p
	c.active = 0
	c.playing = false
	c.awaitingGesture = false
	c.audioDone = false
	c.pendingAdvance = false
	c.suppressResync = false
	c.ready.Reset(len(p.Clips), p.Audio != "")

	if len(p.Clips) > 0 {
		c.slots[0].state = SlotLoading
		c.slots[0].clipIndex = 0
		c.slots[0].elem.SetSource(p.Clips[0])
		if len(p.Clips) > 1 {
			c.slots[1].state = SlotLoading
			c.slots[1].clipIndex = 1
			c.slots[1].elem.SetSource(p.Clips[1])
		}
	}
	if p.Audio != "" {
		c.audio.SetSource(p.Audio)
	}
}

// Stop 停止并清空全部媒体（会话结束或导航离开时调用）。
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.stopRetryLocked()
	c.teardownLocked()
	c.playlist = model.Playlist{}
	c.playing = false
	c.pendingAdvance = false
}

// OnUserGesture 消费一次用户手势。
// 自动播放被策略拒绝后，协调器不自动重试，由这一次手势放行起播。
func (c *Coordinator) OnUserGesture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.awaitingGesture {
		return
	}
	c.awaitingGesture = false
	c.maybeStartLocked()
}

// Status 返回当前播放快照（只读副本）。
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	clipIndex := -1
	if s := c.slots[c.active]; s != nil {
		clipIndex = s.clipIndex
	}
	return Status{
		Playing:         c.playing,
		AwaitingGesture: c.awaitingGesture,
		AudioDone:       c.audioDone,
		ClipIndex:       clipIndex,
		ActiveSlot:      c.active,
		ClipCount:       len(c.playlist.Clips),
	}
}

// HandleMediaEvent 接收媒体生命周期事件。
// 所有播放决策都从这里串行进入，保证交换与起播的严格顺序。
func (c *Coordinator) HandleMediaEvent(ev media.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.audio != nil && ev.ElementID == c.audio.ID() {
		c.handleAudioEventLocked(ev)
		return
	}
	c.handleVideoEventLocked(ev)
}

func (c *Coordinator) handleAudioEventLocked(ev media.Event) {
	switch ev.Type {
	case media.EventCanPlay:
		c.ready.MarkAudioReady()
		c.maybeStartLocked()
	case media.EventError:
		// 音频失败不阻塞视频：当作没有旁白继续播。
		c.logger.Printf("[Player] audio load failed, continuing without narration: %v", ev.Err)
		c.ready.MarkAudioAbsent()
		c.maybeStartLocked()
	case media.EventEnded:
		// 一条旁白贯穿整个片段序列；旁白播完即本回合媒体结束。
		// 暂停而不是循环，也不再继续预载。
		c.audioDone = true
		c.playing = false
		c.pendingAdvance = false
		c.stopRetryLocked()
		for _, s := range c.slots {
			if s != nil {
				s.elem.Pause()
				if s.state == SlotPlaying {
					s.state = SlotEnded
				}
			}
		}
	}
}

func (c *Coordinator) handleVideoEventLocked(ev media.Event) {
	idx := c.slotIndexLocked(ev.ElementID)
	if idx < 0 {
		return
	}
	s := c.slots[idx]
	isActive := idx == c.active

	switch ev.Type {
	case media.EventCanPlay:
		if s.state == SlotLoading {
			s.state = SlotReady
		}
		if isActive {
			c.ready.MarkActiveClipReady()
			c.maybeStartLocked()
		} else {
			c.ready.MarkStandbyClipReady()
			if c.pendingAdvance {
				c.advanceLocked()
			}
		}
	case media.EventError:
		s.state = SlotErrored
		c.logger.Printf("[Player] clip %d failed to load, skipping: %v", s.clipIndex, ev.Err)
		if isActive {
			// 活动片段坏了等同于“播完了”，直接推进序列。
			c.advanceLocked()
		}
	case media.EventEnded:
		if isActive && s.state == SlotPlaying {
			s.state = SlotEnded
			c.advanceLocked()
		}
	case media.EventSeeked:
		if isActive {
			if c.suppressResync {
				c.suppressResync = false
				return
			}
			// 视频是计时主轴：活动片段被跳转后强制把音频对齐过去。
			if c.playlist.Audio != "" && !c.audioDone {
				c.audio.Seek(ev.Position)
			}
		}
	}
}

// maybeStartLocked 在就绪条件满足时起播。
// 起播条件（不变式）：活动片段就绪 ∧（音轨就绪 ∨ 无音轨）。
func (c *Coordinator) maybeStartLocked() {
	if c.playing || c.audioDone || c.awaitingGesture {
		return
	}
	if c.playlist.IsEmpty() {
		return
	}
	if !c.ready.CanStart() {
		return
	}

	if len(c.playlist.Clips) > 0 {
		s := c.slots[c.active]
		if err := s.elem.Play(); err != nil {
			if errors.Is(err, media.ErrAutoplayBlocked) {
				// 策略拒绝起播：呈现“点按播放”，不自动重试。
				c.awaitingGesture = true
				return
			}
			c.logger.Printf("[Player] start clip failed: %v", err)
			return
		}
		s.state = SlotPlaying
	}
	if c.playlist.Audio != "" {
		if err := c.audio.Play(); err != nil {
			if errors.Is(err, media.ErrAutoplayBlocked) {
				c.awaitingGesture = true
				if len(c.playlist.Clips) > 0 {
					c.slots[c.active].elem.Pause()
					c.slots[c.active].state = SlotReady
				}
				return
			}
			c.logger.Printf("[Player] start audio failed: %v", err)
		}
	}
	c.playing = true
}

// advanceLocked 推进到下一个片段。
// 活动片段结束（或加载失败）后：standby 就绪则立刻交换；
// 没就绪则挂起 pendingAdvance，靠 can_play 事件或短轮询补拍，
// 而不是留下黑场或静帧。
func (c *Coordinator) advanceLocked() {
	if c.audioDone || len(c.playlist.Clips) == 0 {
		return
	}

	// 单片段清单没有可交换的对象：原地回绕重播，音频不动。
	if len(c.playlist.Clips) == 1 {
		s := c.slots[c.active]
		c.suppressResync = true
		s.elem.Seek(0)
		if err := s.elem.Play(); err == nil {
			s.state = SlotPlaying
		}
		return
	}

	standby := c.slots[1-c.active]
	switch standby.state {
	case SlotReady:
		c.swapLocked()
	case SlotErrored:
		// 预载的片段坏了：当它瞬间播完，跳过去装它后面那个。
		next := (standby.clipIndex + 1) % len(c.playlist.Clips)
		standby.clipIndex = next
		standby.state = SlotLoading
		standby.elem.SetSource(c.playlist.Clips[next])
		c.ready.ClearStandby()
		c.pendingAdvance = true
		c.scheduleRetryLocked()
	default:
		// 预载还没完成：几十毫秒后重查，容忍慢加载。
		c.pendingAdvance = true
		c.scheduleRetryLocked()
	}
}

// swapLocked 执行角色交换：standby 变为活动并立即起播，
// 腾出来的槽位开始预载再往后一个片段。音频全程不动。
func (c *Coordinator) swapLocked() {
	c.pendingAdvance = false
	c.stopRetryLocked()

	c.active = 1 - c.active
	now := c.slots[c.active]
	freed := c.slots[1-c.active]

	if err := now.elem.Play(); err != nil {
		if errors.Is(err, media.ErrAutoplayBlocked) {
			c.awaitingGesture = true
			c.playing = false
			return
		}
		c.logger.Printf("[Player] play next clip failed: %v", err)
		now.state = SlotErrored
		c.advanceLocked()
		return
	}
	now.state = SlotPlaying
	c.ready.MarkActiveClipReady()

	next := (now.clipIndex + 1) % len(c.playlist.Clips)
	freed.clipIndex = next
	freed.state = SlotLoading
	freed.elem.SetSource(c.playlist.Clips[next])
	c.ready.ClearStandby()
}

func (c *Coordinator) scheduleRetryLocked() {
	if c.retry != nil {
		return
	}
	gen := c.generation
	c.retry = time.AfterFunc(c.pollInterval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.retry = nil
		if gen != c.generation || !c.pendingAdvance || c.audioDone {
			return
		}
		c.advanceLocked()
	})
}

func (c *Coordinator) stopRetryLocked() {
	if c.retry != nil {
		c.retry.Stop()
		c.retry = nil
	}
}

func (c *Coordinator) teardownLocked() {
	for _, s := range c.slots {
		if s == nil {
			continue
		}
		s.elem.Pause()
		s.elem.SetSource("")
		s.state = SlotEmpty
		s.clipIndex = -1
	}
	if c.audio != nil {
		c.audio.Pause()
		c.audio.SetSource("")
	}
}

func (c *Coordinator) slotIndexLocked(elementID string) int {
	for i, s := range c.slots {
		if s != nil && s.elem.ID() == elementID {
			return i
		}
	}
	return -1
}
