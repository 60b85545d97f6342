package shell

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"crisis-sim/client/internal/engine"
	"crisis-sim/client/internal/model"
	"crisis-sim/client/internal/player"
)

// Shell 是终端呈现层：渲染引擎与播放器的快照，把用户输入
// 转成事件派发出去。它只读快照、只发意图，不直接改引擎状态。
type Shell struct {
	out   io.Writer
	in    io.Reader
	coord *player.Coordinator

	mu      sync.Mutex
	eng     *engine.Engine
	seen    int // 已渲染的历史条数
	phase   engine.Phase
	gesture bool
}

// New 创建呈现层。
func New(in io.Reader, out io.Writer, coord *player.Coordinator) *Shell {
	return &Shell{in: in, out: out, coord: coord}
}

// Bind 绑定会话引擎（引擎构造时需要 Shell 作为 sink，所以分两步）。
func (s *Shell) Bind(eng *engine.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eng = eng
}

// LoadPlaylist 实现 engine.PlaybackSink：把清单交给播放协调器。
func (s *Shell) LoadPlaylist(p model.Playlist) {
	s.coord.Load(p)
	fmt.Fprintf(s.out, "▶ 开始载入 %d 个片段", len(p.Clips))
	if p.Audio != "" {
		fmt.Fprintf(s.out, "（含旁白音轨）")
	}
	fmt.Fprintln(s.out)
}

// ShowConclusion 实现 engine.PlaybackSink：展示结局浮层。
func (s *Shell) ShowConclusion(grade int, explanation string, _ model.Playlist) {
	fmt.Fprintln(s.out, strings.Repeat("=", 48))
	fmt.Fprintf(s.out, "SCORE: %d/100\n", grade)
	if explanation != "" {
		fmt.Fprintln(s.out, explanation)
	}
	fmt.Fprintln(s.out, strings.Repeat("=", 48))
}

// Run 进入交互循环：后台渲染快照，前台读取用户输入。
// 空行忽略；"play" 消费一次手势放行自动播放；"quit" 退出。
func (s *Shell) Run(initialPrompt string, developerMode bool) error {
	s.mu.Lock()
	eng := s.eng
	s.mu.Unlock()
	if eng == nil {
		return fmt.Errorf("shell not bound to engine")
	}

	eng.Dispatch(engine.EventBegin{
		InitialPrompt: initialPrompt,
		DeveloperMode: developerMode,
	})

	stop := make(chan struct{})
	go s.renderLoop(stop)
	defer close(stop)

	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "play":
			s.coord.OnUserGesture()
		default:
			snap := eng.Snapshot()
			if !snap.CanSubmit() {
				fmt.Fprintln(s.out, "（当前不能提交：等待新回合或会话已结束）")
				continue
			}
			eng.Dispatch(engine.EventSubmit{Text: line})
		}
	}
	return scanner.Err()
}

// renderLoop 周期性渲染增量状态。
func (s *Shell) renderLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.renderOnce()
		}
	}
}

func (s *Shell) renderOnce() {
	s.mu.Lock()
	eng := s.eng
	s.mu.Unlock()
	if eng == nil {
		return
	}

	snap := eng.Snapshot()

	s.mu.Lock()
	if snap.Phase != s.phase {
		s.phase = snap.Phase
		s.mu.Unlock()
		s.renderPhase(snap)
		s.mu.Lock()
	}
	for i := s.seen; i < len(snap.History); i++ {
		entry := snap.History[i]
		prefix := "情景"
		if entry.Role == "user" {
			prefix = "你"
		}
		fmt.Fprintf(s.out, "[%s] %s\n", prefix, entry.Text)
	}
	s.seen = len(snap.History)
	s.mu.Unlock()

	status := s.coord.Status()
	s.mu.Lock()
	if status.AwaitingGesture != s.gesture {
		s.gesture = status.AwaitingGesture
		if status.AwaitingGesture {
			fmt.Fprintln(s.out, "⏯ 自动播放被拦截，输入 play 开始播放")
		}
	}
	s.mu.Unlock()
}

func (s *Shell) renderPhase(snap engine.State) {
	switch snap.Phase {
	case engine.PhaseInitializing:
		fmt.Fprintln(s.out, "正在创建模拟…")
	case engine.PhaseAwaitingTurn:
		fmt.Fprintf(s.out, "等待下一回合生成… %s\n", checklist(snap.Progress))
	case engine.PhaseLoaded:
		fmt.Fprintf(s.out, "—— 第 %d 回合（已提交 %d/%d）——\n",
			snap.DisplayedTurn, snap.SubmissionCount, snap.MaxTurns)
		if snap.ShowUserRole && snap.Scenario != nil && snap.Scenario.UserRole != "" {
			fmt.Fprintf(s.out, "角色：%s\n", snap.Scenario.UserRole)
		}
		if snap.Scenario != nil && snap.Scenario.UserPrompt != "" {
			fmt.Fprintf(s.out, "提示：%s\n", snap.Scenario.UserPrompt)
		}
	case engine.PhaseConcluded:
		// 浮层由 ShowConclusion 负责，这里只提示输入已禁用。
		fmt.Fprintln(s.out, "（会话已结束，输入已禁用）")
	case engine.PhaseIdle:
		if snap.LastError != "" {
			fmt.Fprintf(s.out, "⚠ %s\n", snap.LastError)
		}
	}
	if snap.LastError != "" && snap.Phase != engine.PhaseIdle {
		fmt.Fprintf(s.out, "⚠ %s\n", snap.LastError)
	}
}

// checklist 渲染生成进度清单。
func checklist(p engine.Progress) string {
	mark := func(done bool) string {
		if done {
			return "✓"
		}
		return "·"
	}
	return fmt.Sprintf("[%s 情景 %s 片段 %s 旁白]",
		mark(p.ScenarioGenerated), mark(p.ClipsGenerated), mark(p.AudioGenerated))
}
