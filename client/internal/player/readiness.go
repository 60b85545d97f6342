package player

// Readiness 跟踪一份播放清单的三路资源就绪状态：
// 活动片段、预载的下一片段、音轨。
// 清单身份一旦变化必须 Reset，所有布尔回到未就绪。
//
// 边界约定：
// - 清单没有片段时，activeClipReady / standbyClipReady 平凡为真（无可加载）。
// - 只有一个片段时，standbyClipReady 平凡为真。
// - 没有音轨时，audioReady 平凡为真。
type Readiness struct {
	clipCount int
	hasAudio  bool

	activeClipReady  bool
	standbyClipReady bool
	audioReady       bool
}

// Reset 绑定到一份新清单，清空全部就绪位。
func (r *Readiness) Reset(clipCount int, hasAudio bool) {
	r.clipCount = clipCount
	r.hasAudio = hasAudio
	r.activeClipReady = false
	r.standbyClipReady = false
	r.audioReady = false
}

func (r *Readiness) MarkActiveClipReady()  { r.activeClipReady = true }
func (r *Readiness) MarkStandbyClipReady() { r.standbyClipReady = true }
func (r *Readiness) MarkAudioReady()       { r.audioReady = true }

// MarkAudioAbsent 把音轨降级为“不存在”。
// 音轨加载失败不阻塞视频：没有旁白也要继续播。
func (r *Readiness) MarkAudioAbsent() {
	r.hasAudio = false
}

// ClearStandby 在预载槽换装新片段后清掉就绪位。
func (r *Readiness) ClearStandby() { r.standbyClipReady = false }

// ClearActive 在活动槽换装新片段后清掉就绪位。
func (r *Readiness) ClearActive() { r.activeClipReady = false }

func (r *Readiness) ActiveClipReady() bool {
	return r.clipCount == 0 || r.activeClipReady
}

func (r *Readiness) StandbyClipReady() bool {
	return r.clipCount <= 1 || r.standbyClipReady
}

func (r *Readiness) AudioReady() bool {
	return !r.hasAudio || r.audioReady
}

// CanStart 判断是否允许起播：活动片段就绪，且音轨就绪或根本没有音轨。
func (r *Readiness) CanStart() bool {
	return r.ActiveClipReady() && r.AudioReady()
}
