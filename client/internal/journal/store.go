package journal

import "context"

// Entry 是一条审计记录：引擎处理过的事件或发出的意图。
type Entry struct {
	// Seq 由存储分配的单调序号，用于回放与幂等。
	Seq int64 `json:"seq,omitempty"`
	// EventID 用于去重：相同 EventID 的写入幂等返回同一 seq。
	EventID string `json:"event_id,omitempty"`
	// Kind 是事件/意图的类型名。
	Kind string `json:"kind"`
	// Detail 是人读的摘要（回合号、步骤名等）。
	Detail string `json:"detail,omitempty"`
}

// Store 以 append-first 契约记录会话事件流。
// 约定：同一 simulation 的 seq 单调递增；相同 EventID 幂等。
type Store interface {
	Append(ctx context.Context, simulationID string, entry *Entry) (int64, error)
	// List 返回该 simulation 的全量记录，用于回放与验收。
	List(ctx context.Context, simulationID string) ([]Entry, error)
}
