package media

import "errors"

// ErrAutoplayBlocked 表示运行时的自动播放策略拒绝了程序化起播。
// 协调器收到它后不应自动重试，而是呈现“点按播放”提示，等待一次用户手势。
var ErrAutoplayBlocked = errors.New("autoplay blocked by playback policy")

// EventType 标识媒体元素的生命周期事件。
type EventType string

const (
	EventCanPlay EventType = "can_play" // 资源可以无停顿地开始播放
	EventEnded   EventType = "ended"    // 播放到末尾
	EventError   EventType = "error"    // 加载或解码失败
	EventSeeked  EventType = "seeked"   // 播放位置被跳转
)

// Event 是一条类型化的媒体生命周期消息。
// 所有散落的回调都收敛成 Event 喂给协调器，这样整个引擎
// 可以用合成事件序列离线测试，不需要真实的播放运行时。
type Event struct {
	ElementID string
	Type      EventType
	// Position 是事件发生时的播放位置（秒），主要用于 seeked。
	Position float64
	Err      error
}

// EventFunc 接收媒体事件（由协调器注入）。
type EventFunc func(Event)

// Element 是一路媒体输出的最小契约。
// 两个视频槽位和一路音频各自持有一个 Element；实现可以是
// 真实播放器的桥接，也可以是测试里的合成实现。
type Element interface {
	// ID 是稳定标识（槽位交换只改角色，不改 ID）。
	ID() string
	// SetSource 切换资源并进入加载；空字符串表示清空置黑。
	SetSource(url string)
	Source() string
	// Play 启动播放；被自动播放策略拒绝时返回 ErrAutoplayBlocked。
	Play() error
	Pause()
	// Seek 跳转到指定位置（秒）。
	Seek(pos float64)
	// Position 返回当前播放位置（秒）。
	Position() float64
}
