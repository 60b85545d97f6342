package engine

import "crisis-sim/client/internal/model"

// Phase 是会话状态机的阶段。
// Idle → Initializing → AwaitingTurn ⇄ Loaded → Submitting → … → Concluded
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseInitializing Phase = "initializing"
	PhaseAwaitingTurn Phase = "awaiting_turn"
	PhaseLoaded       Phase = "loaded"
	PhaseSubmitting   Phase = "submitting"
	PhaseConcluded    Phase = "concluded"
)

// 服务端快照缺省 max_turns 时的兜底值；一旦快照带了值就以服务端为准。
const defaultMaxTurns = 5

// HistoryEntry 是历史记录里的一条发言。
type HistoryEntry struct {
	Role string // user | assistant
	Text string
}

// Progress 是生成进度清单。只作动画展示，对回合逻辑无影响。
type Progress struct {
	ScenarioGenerated bool
	ClipsGenerated    bool
	AudioGenerated    bool
}

// State 是会话引擎独占持有的全部会话状态。
// 其他组件只读快照、只派发事件，绝不直接改写。
type State struct {
	Phase        Phase
	SimulationID string

	// 服务端权威计数：快照到达时无条件覆盖本地值。
	MaxTurns        int
	SubmissionCount int
	IsComplete      bool

	// DisplayedTurn 是当前已展示回合的回合号，
	// 回合号不比它新的快照会被防御性忽略（容忍重复与乱序投递）。
	DisplayedTurn int

	Scenario *model.Scenario
	// ShowUserRole 只在还没提交过任何回复时为真（user_role 只展示一次）。
	ShowUserRole bool
	Playlist     model.Playlist

	History  []HistoryEntry
	Progress Progress

	Grade            *int
	GradeExplanation string

	// LastError 保存最近一次可恢复错误的展示文案；成功快照会清掉它。
	LastError string
}

// CanSubmit 判断当前是否允许提交。
// 规则：已进入 Loaded、未出结局、提交次数未到上限。
// 结局一旦展示，无论计数如何输入都保持禁用。
func (s *State) CanSubmit() bool {
	return s.Phase == PhaseLoaded && s.Grade == nil && s.SubmissionCount < s.MaxTurns
}

// IsConcluded 判断会话是否已进入结局。
func (s *State) IsConcluded() bool {
	return s.Phase == PhaseConcluded
}

// lastAssistantText 返回历史里最近一条助手发言，用于内容去重。
func (s *State) lastAssistantText() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == "assistant" {
			return s.History[i].Text
		}
	}
	return ""
}
