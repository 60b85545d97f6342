package model

// Scenario 表示一个回合中被选中的情景。
// Grade 非空即为“结局情景”（conclusion）：交互循环到此结束，
// 该情景携带的媒体是本次模拟展示的最后一组媒体。
type Scenario struct {
	SituationDescription string `json:"situation_description"`
	// UserRole 只在首个回合（尚未提交过任何回复时）展示。
	UserRole   string `json:"user_role,omitempty"`
	UserPrompt string `json:"user_prompt,omitempty"`
	// Grade 为 0–100 的评分，用指针区分“未评分”与“评了 0 分”。
	Grade            *int   `json:"grade,omitempty"`
	GradeExplanation string `json:"grade_explanation,omitempty"`
}

// IsConclusion 判断该情景是否是终局评分情景。
func (s *Scenario) IsConclusion() bool {
	return s != nil && s.Grade != nil
}

// Turn 表示模拟中的一个回合。
type Turn struct {
	TurnNumber       int       `json:"turn_number"`
	SelectedScenario *Scenario `json:"selected_scenario,omitempty"`
	// VideoURLs 是本回合按序播放的短片段列表，允许为空。
	VideoURLs []string `json:"video_urls,omitempty"`
	// AudioURL 是贯穿整个片段序列的单条旁白音轨，可缺省。
	AudioURL string `json:"audio_url,omitempty"`
}

// Simulation 是后端推送的权威会话快照。
// 本地任何乐观状态都会被快照覆盖（服务端为准）。
type Simulation struct {
	SimulationID      string `json:"simulation_id"`
	CurrentTurnNumber int    `json:"current_turn_number"`
	SubmissionCount   int    `json:"submission_count"`
	MaxTurns          int    `json:"max_turns"`
	IsComplete        bool   `json:"is_complete"`
	DeveloperMode     bool   `json:"developer_mode,omitempty"`
	Turns             []Turn `json:"turns,omitempty"`

	// 兼容旧版快照：没有 turns 列表时退回到顶层媒体字段。
	VideoURLs []string  `json:"video_urls,omitempty"`
	AudioURL  string    `json:"audio_url,omitempty"`
	Scenario  *Scenario `json:"scenario,omitempty"`
}

// FindTurn 按回合号查找回合记录。
func (s *Simulation) FindTurn(turnNumber int) *Turn {
	for i := range s.Turns {
		if s.Turns[i].TurnNumber == turnNumber {
			return &s.Turns[i]
		}
	}
	return nil
}

// ResolveTurn 解析快照中“当前应展示”的回合。
//
// 协议怪癖（刻意保留，不要“修正”）：is_complete 置位时，
// 结局载荷存放在 current_turn_number + 1 的回合上，
// 即最后一个常规回合之后的下一个下标。后端契约如此，客户端原样读取。
func (s *Simulation) ResolveTurn() *Turn {
	if s.IsComplete {
		if turn := s.FindTurn(s.CurrentTurnNumber + 1); turn != nil {
			return turn
		}
	}
	if turn := s.FindTurn(s.CurrentTurnNumber); turn != nil {
		return turn
	}

	// 旧版快照没有 turns 列表，用顶层字段拼一个回合出来。
	if s.Scenario != nil || len(s.VideoURLs) > 0 || s.AudioURL != "" {
		return &Turn{
			TurnNumber:       s.CurrentTurnNumber,
			SelectedScenario: s.Scenario,
			VideoURLs:        s.VideoURLs,
			AudioURL:         s.AudioURL,
		}
	}
	return nil
}

// 推送通道上的消息类型。
const (
	MessageTypeState    = "simulation_state"   // 初次订阅时的全量快照
	MessageTypeUpdated  = "simulation_updated" // 回合推进后的全量快照
	MessageTypeProgress = "progress_update"    // 生成进度（仅驱动清单动画）
)

// 生成进度步骤。progress_update 只用来播进度清单，对回合逻辑无影响。
const (
	StepScenarioGenerated = "scenario_generated"
	StepClipsGenerated    = "clips_generated"
	StepAudioGenerated    = "audio_generated"
)

// StateMessage 是承载全量快照的推送帧。
type StateMessage struct {
	Type       string     `json:"type"`
	Simulation Simulation `json:"simulation"`
}

// ProgressMessage 是生成进度推送帧。
type ProgressMessage struct {
	Type string `json:"type"`
	Step string `json:"step"`
}

// CreateRequest 是创建模拟的请求体。
type CreateRequest struct {
	InitialPrompt string `json:"initial_prompt,omitempty"`
	DeveloperMode bool   `json:"developer_mode,omitempty"`
}

// RespondRequest 是提交用户回复的请求体。
// 快照不会出现在该请求的响应里，而是稍后经推送通道送达。
type RespondRequest struct {
	ResponseText string `json:"response_text"`
}
