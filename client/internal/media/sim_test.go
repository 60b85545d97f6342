package media

import (
	"errors"
	"testing"
	"time"
)

func collect(buf chan Event) EventFunc {
	return func(ev Event) { buf <- ev }
}

func waitEvent(t *testing.T, buf chan Event, want EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-buf:
			if ev.Type == want {
				return ev
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

// TestSimElementLifecycle 验证合成元素的生命周期事件序。
// 场景：SetSource 后延迟触发 can_play，Play 后按时长触发 ended。
func TestSimElementLifecycle(t *testing.T) {
	buf := make(chan Event, 8)
	e := NewSimElement("v", 5*time.Millisecond, 20*time.Millisecond, collect(buf))

	e.SetSource("/media/a.mp4")
	ev := waitEvent(t, buf, EventCanPlay)
	if ev.ElementID != "v" {
		t.Fatalf("unexpected element id: %s", ev.ElementID)
	}

	if err := e.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitEvent(t, buf, EventEnded)
	if pos := e.Position(); pos < 0.019 {
		t.Fatalf("position must reach duration, got %f", pos)
	}
}

// TestSimElementBrokenSourceFails 验证失败路径的模拟。
// 场景：URL 带 "broken" 的资源加载后报错而不是 can_play。
func TestSimElementBrokenSourceFails(t *testing.T) {
	buf := make(chan Event, 8)
	e := NewSimElement("v", 5*time.Millisecond, 20*time.Millisecond, collect(buf))

	e.SetSource("/media/broken_clip.mp4")
	ev := waitEvent(t, buf, EventError)
	if !errors.Is(ev.Err, ErrSimLoadFailed) {
		t.Fatalf("expected load failure, got %v", ev.Err)
	}
}

// TestSimElementPauseHoldsPosition 验证暂停冻结进度且取消 ended。
func TestSimElementPauseHoldsPosition(t *testing.T) {
	buf := make(chan Event, 8)
	e := NewSimElement("v", time.Millisecond, 50*time.Millisecond, collect(buf))

	e.SetSource("/media/a.mp4")
	waitEvent(t, buf, EventCanPlay)
	e.Play()
	time.Sleep(10 * time.Millisecond)
	e.Pause()

	pos := e.Position()
	if pos <= 0 {
		t.Fatalf("expected progress before pause, got %f", pos)
	}
	time.Sleep(20 * time.Millisecond)
	if e.Position() != pos {
		t.Fatalf("position must freeze while paused")
	}

	select {
	case ev := <-buf:
		if ev.Type == EventEnded {
			t.Fatalf("paused element must not end")
		}
	case <-time.After(80 * time.Millisecond):
	}
}

// TestSimElementSeekEmitsAsync 验证跳转异步派发 seeked。
func TestSimElementSeekEmitsAsync(t *testing.T) {
	buf := make(chan Event, 8)
	e := NewSimElement("v", time.Millisecond, time.Second, collect(buf))
	e.SetSource("/media/a.mp4")
	waitEvent(t, buf, EventCanPlay)

	e.Seek(1.5)
	ev := waitEvent(t, buf, EventSeeked)
	if ev.Position != 1.5 {
		t.Fatalf("expected seeked at 1.5, got %f", ev.Position)
	}
	if e.Position() != 1.5 {
		t.Fatalf("position must follow seek, got %f", e.Position())
	}
}

// TestSimElementSetSourceResets 验证换源打断旧生命周期。
// 场景：换源后旧的加载/播放计时作废，进度归零。
func TestSimElementSetSourceResets(t *testing.T) {
	buf := make(chan Event, 8)
	e := NewSimElement("v", time.Millisecond, 30*time.Millisecond, collect(buf))

	e.SetSource("/media/a.mp4")
	waitEvent(t, buf, EventCanPlay)
	e.Play()
	e.Seek(0.02)

	e.SetSource("/media/b.mp4")
	if e.Position() != 0 {
		t.Fatalf("new source must reset position, got %f", e.Position())
	}
	if e.Source() != "/media/b.mp4" {
		t.Fatalf("unexpected source: %q", e.Source())
	}
	waitEvent(t, buf, EventCanPlay)
}
