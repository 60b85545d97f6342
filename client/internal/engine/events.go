package engine

import "crisis-sim/client/internal/model"

// Event 是喂给会话归约器的一条类型化消息。
// 推送帧、HTTP 请求结果、用户动作都先变成 Event 再进入串行队列，
// 归约器之外不允许任何路径改会话状态。
type Event interface {
	Kind() string
}

// EventBegin 由呈现层发出的“开始模拟”意图。
type EventBegin struct {
	InitialPrompt string
	DeveloperMode bool
}

// EventSessionCreated 表示创建请求成功返回了初始快照。
type EventSessionCreated struct {
	Simulation model.Simulation
}

// EventCreateFailed 表示创建请求失败。
type EventCreateFailed struct {
	Err error
}

// EventStatePushed 是推送通道送达的权威快照。
// EventID 由通道适配器盖章，用于日志与审计去重。
type EventStatePushed struct {
	EventID    string
	Simulation model.Simulation
}

// EventProgressPushed 是生成进度帧，只驱动清单动画。
type EventProgressPushed struct {
	EventID string
	Step    string
}

// EventSubmit 是用户提交回复的意图。
type EventSubmit struct {
	Text string
}

// EventSubmitAcked 表示提交请求已被后端确认（HTTP 层成功）。
// 注意确认不携带新回合：生成在确认之后才在服务端发生，
// 新快照稍后经推送通道送达。
type EventSubmitAcked struct{}

// EventSubmitFailed 表示提交请求失败或超时。
type EventSubmitFailed struct {
	Err error
}

// EventChannelClosed 表示推送通道已断开。
// 通道不自动重连：需要用户显式重新开始会话。
type EventChannelClosed struct {
	Err error
}

func (EventBegin) Kind() string          { return "begin" }
func (EventSessionCreated) Kind() string { return "session_created" }
func (EventCreateFailed) Kind() string   { return "create_failed" }
func (EventStatePushed) Kind() string    { return "state_pushed" }
func (EventProgressPushed) Kind() string { return "progress_pushed" }
func (EventSubmit) Kind() string         { return "submit" }
func (EventSubmitAcked) Kind() string    { return "submit_acked" }
func (EventSubmitFailed) Kind() string   { return "submit_failed" }
func (EventChannelClosed) Kind() string  { return "channel_closed" }

// Intent 是归约器做出的决策，由引擎负责执行副作用。
// 归约本身保持纯函数：只改状态、只产出意图，不直接发请求。
type Intent interface {
	IntentKind() string
}

// IntentCreateSimulation 要求向后端发起创建请求。
type IntentCreateSimulation struct {
	InitialPrompt string
	DeveloperMode bool
}

// IntentOpenChannel 要求为该会话打开推送通道。
type IntentOpenChannel struct {
	SimulationID string
}

// IntentSubmitResponse 要求向后端提交用户回复。
type IntentSubmitResponse struct {
	SimulationID string
	Text         string
}

// IntentLoadPlaylist 要求播放协调器装载新的播放清单。
type IntentLoadPlaylist struct {
	Playlist model.Playlist
}

// IntentShowConclusion 要求呈现层展示结局浮层。
type IntentShowConclusion struct {
	Grade       int
	Explanation string
	Playlist    model.Playlist
}

func (IntentCreateSimulation) IntentKind() string { return "create_simulation" }
func (IntentOpenChannel) IntentKind() string      { return "open_channel" }
func (IntentSubmitResponse) IntentKind() string   { return "submit_response" }
func (IntentLoadPlaylist) IntentKind() string     { return "load_playlist" }
func (IntentShowConclusion) IntentKind() string   { return "show_conclusion" }
