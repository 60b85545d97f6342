package engine

import (
	"strings"

	"crisis-sim/client/internal/model"
)

// Reduce 把一条事件归约进会话状态，返回需要执行的意图。
// 只做事实归约，不触发外部调用：请求、通道、播放器的副作用
// 全部以 Intent 形式交还给引擎执行，保证这里可以用合成事件
// 序列离线验证。
func Reduce(s *State, evt Event) []Intent {
	switch e := evt.(type) {
	case EventBegin:
		// 重新开始视作整个会话的重建：旧状态全部丢弃。
		*s = State{Phase: PhaseInitializing}
		return []Intent{IntentCreateSimulation{
			InitialPrompt: e.InitialPrompt,
			DeveloperMode: e.DeveloperMode,
		}}

	case EventCreateFailed:
		s.Phase = PhaseIdle
		s.LastError = "创建模拟失败：" + e.Err.Error()
		return nil

	case EventSessionCreated:
		intents := applySnapshot(s, e.Simulation, true)
		if s.SimulationID != "" {
			intents = append([]Intent{IntentOpenChannel{SimulationID: s.SimulationID}}, intents...)
		}
		return intents

	case EventStatePushed:
		return applySnapshot(s, e.Simulation, false)

	case EventProgressPushed:
		switch e.Step {
		case model.StepScenarioGenerated:
			s.Progress.ScenarioGenerated = true
		case model.StepClipsGenerated:
			s.Progress.ClipsGenerated = true
		case model.StepAudioGenerated:
			s.Progress.AudioGenerated = true
		}
		return nil

	case EventSubmit:
		text := strings.TrimSpace(e.Text)
		if text == "" || !s.CanSubmit() {
			return nil
		}
		// 乐观更新：先把用户发言记入历史并清空输入，再发请求。
		s.History = append(s.History, HistoryEntry{Role: "user", Text: text})
		s.Phase = PhaseSubmitting
		s.Progress = Progress{}
		s.LastError = ""
		return []Intent{IntentSubmitResponse{SimulationID: s.SimulationID, Text: text}}

	case EventSubmitAcked:
		// 确认只代表后端收到了请求；回合与媒体不在这里更新，
		// 等推送通道送达新快照。
		if s.Phase == PhaseSubmitting {
			s.Phase = PhaseAwaitingTurn
		}
		return nil

	case EventSubmitFailed:
		// 不自动重试：回到可提交状态并附上错误文案，由用户重发。
		if s.Phase == PhaseSubmitting || s.Phase == PhaseAwaitingTurn {
			s.Phase = PhaseLoaded
		}
		s.LastError = "提交失败：" + e.Err.Error()
		return nil

	case EventChannelClosed:
		if s.SimulationID == "" {
			s.Phase = PhaseIdle
		} else if s.Phase == PhaseSubmitting || s.Phase == PhaseAwaitingTurn {
			// 等待中的回合再也不会送达了：退回可提交状态让用户重试。
			s.Phase = PhaseLoaded
		}
		msg := "推送通道已断开，请重新开始会话"
		if e.Err != nil {
			msg += "：" + e.Err.Error()
		}
		s.LastError = msg
		return nil
	}

	return nil
}

// applySnapshot 把权威快照落进本地状态。
// initial 表示来自创建响应的首个快照（无条件接受）。
func applySnapshot(s *State, sim model.Simulation, initial bool) []Intent {
	// 其他会话的快照直接丢弃。
	if !initial && s.SimulationID != "" && sim.SimulationID != "" &&
		sim.SimulationID != s.SimulationID {
		return nil
	}

	// 陈旧快照防御：回合号不比已展示的新、也没有新出现的完结标记，
	// 一律按无操作处理（幂等容忍重复与乱序投递）。
	if !initial {
		newer := sim.CurrentTurnNumber > s.DisplayedTurn ||
			(sim.IsComplete && !s.IsComplete)
		if !newer {
			return nil
		}
	}

	if sim.SimulationID != "" {
		s.SimulationID = sim.SimulationID
	}
	if sim.MaxTurns > 0 {
		s.MaxTurns = sim.MaxTurns
	} else if s.MaxTurns == 0 {
		s.MaxTurns = defaultMaxTurns
	}
	s.SubmissionCount = sim.SubmissionCount
	s.IsComplete = sim.IsComplete
	s.LastError = ""

	turn := sim.ResolveTurn()
	if turn == nil || turn.SelectedScenario == nil {
		// 快照里还没有可展示的回合（比如创建响应先行、生成随后），
		// 停在等待状态，由后续推送补齐。
		s.Phase = PhaseAwaitingTurn
		s.DisplayedTurn = sim.CurrentTurnNumber
		return nil
	}

	scenario := turn.SelectedScenario
	s.DisplayedTurn = sim.CurrentTurnNumber

	// 历史去重：与最近一条助手发言内容相同的情景不重复入账，
	// 避免快照重放把同一段文本记两次。
	if scenario.SituationDescription != "" &&
		scenario.SituationDescription != s.lastAssistantText() {
		s.History = append(s.History, HistoryEntry{
			Role: "assistant",
			Text: scenario.SituationDescription,
		})
	}

	playlist := model.PlaylistFromTurn(turn)
	playlistChanged := !playlist.Equal(s.Playlist)
	s.Scenario = scenario
	s.ShowUserRole = sim.SubmissionCount == 0 && scenario.UserRole != ""

	var intents []Intent
	if playlistChanged {
		s.Playlist = playlist
		intents = append(intents, IntentLoadPlaylist{Playlist: playlist})
	}

	if scenario.IsConclusion() {
		// 结局情景终结交互循环：展示评分浮层，输入保持禁用。
		s.Phase = PhaseConcluded
		s.Grade = scenario.Grade
		s.GradeExplanation = scenario.GradeExplanation
		intents = append(intents, IntentShowConclusion{
			Grade:       *scenario.Grade,
			Explanation: scenario.GradeExplanation,
			Playlist:    playlist,
		})
		return intents
	}

	s.Phase = PhaseLoaded
	return intents
}
