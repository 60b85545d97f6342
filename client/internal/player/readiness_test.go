package player

import "testing"

// TestReadinessFullPlaylist 验证常规清单（多片段 + 音轨）的就绪逻辑。
// 场景：起播只要求活动片段和音轨就绪，预载片段不在起播条件里。
func TestReadinessFullPlaylist(t *testing.T) {
	var r Readiness
	r.Reset(3, true)

	if r.CanStart() {
		t.Fatalf("must not start before anything is ready")
	}
	r.MarkActiveClipReady()
	if r.CanStart() {
		t.Fatalf("must not start before audio is ready")
	}
	r.MarkAudioReady()
	if !r.CanStart() {
		t.Fatalf("active clip + audio ready must allow start")
	}
	if r.StandbyClipReady() {
		t.Fatalf("standby not marked yet")
	}
	r.MarkStandbyClipReady()
	if !r.StandbyClipReady() {
		t.Fatalf("standby must be ready after mark")
	}
}

// TestReadinessTrivialCases 验证边界清单的平凡为真规则。
// 场景：无片段时两个片段位平凡为真；单片段时预载位平凡为真；
// 无音轨时音轨位平凡为真。
func TestReadinessTrivialCases(t *testing.T) {
	var r Readiness

	r.Reset(0, true)
	if !r.ActiveClipReady() || !r.StandbyClipReady() {
		t.Fatalf("no clips: both clip flags trivially true")
	}
	if r.CanStart() {
		t.Fatalf("audio still pending")
	}
	r.MarkAudioReady()
	if !r.CanStart() {
		t.Fatalf("audio-only playlist must start on audio ready")
	}

	r.Reset(1, false)
	if !r.StandbyClipReady() {
		t.Fatalf("single clip: standby trivially true")
	}
	if !r.AudioReady() {
		t.Fatalf("no audio: audio trivially true")
	}
	if r.CanStart() {
		t.Fatalf("active clip still pending")
	}
	r.MarkActiveClipReady()
	if !r.CanStart() {
		t.Fatalf("single muted clip must start on active ready")
	}
}

// TestReadinessAudioAbsentDegrade 验证音轨失败的降级。
// 场景：音轨加载失败后按“没有旁白”处理，不阻塞视频起播。
func TestReadinessAudioAbsentDegrade(t *testing.T) {
	var r Readiness
	r.Reset(2, true)
	r.MarkActiveClipReady()
	if r.CanStart() {
		t.Fatalf("audio pending, must not start")
	}
	r.MarkAudioAbsent()
	if !r.CanStart() {
		t.Fatalf("absent audio must unblock start")
	}
}

// TestReadinessResetClearsFlags 验证清单变化后全部就绪位归零。
func TestReadinessResetClearsFlags(t *testing.T) {
	var r Readiness
	r.Reset(2, true)
	r.MarkActiveClipReady()
	r.MarkStandbyClipReady()
	r.MarkAudioReady()

	r.Reset(2, true)
	if r.CanStart() || r.StandbyClipReady() {
		t.Fatalf("reset must clear all readiness flags")
	}
}

// TestReadinessClearOnReload 验证槽位换装后就绪位被清掉。
func TestReadinessClearOnReload(t *testing.T) {
	var r Readiness
	r.Reset(3, false)
	r.MarkActiveClipReady()
	r.MarkStandbyClipReady()

	r.ClearStandby()
	if r.StandbyClipReady() {
		t.Fatalf("standby flag must clear after reload")
	}
	r.ClearActive()
	if r.ActiveClipReady() {
		t.Fatalf("active flag must clear after reload")
	}
}
