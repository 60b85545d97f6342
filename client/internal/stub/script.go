package stub

import (
	"fmt"

	"crisis-sim/client/internal/model"
)

// Script 是桩后端的情景脚本库：按回合推进一条固定的危机叙事，
// 最后给出带评分的结局情景。真实后端在这里是 LLM 与生成式媒体，
// 桩用预置文案走完同样的协议。
type Script struct {
	openings  []string
	followUps []string
	endings   []ending
}

type ending struct {
	grade       int
	explanation string
}

// NewScript 创建缺省脚本库。
func NewScript() *Script {
	return &Script{
		openings: []string{
			"市中心的供水系统在凌晨突然瘫痪，三家医院只剩不到六小时的储备用水。",
			"一艘货轮在港口倾覆，泄漏的化学品正随潮水漂向海滨浴场。",
			"连日暴雨后山体开始滑坡，通往山区小镇的唯一公路已经中断。",
		},
		followUps: []string{
			"你的处置暂时稳住了局面，但媒体开始质疑信息披露的速度，现场又出现了新的伤情报告。",
			"增援力量陆续抵达，可是通讯频道过载，各救援队之间的指挥开始混乱。",
			"形势出现转机，不过天气预报显示未来两小时会有强风，现有方案面临新的变数。",
			"民众的恐慌情绪在社交平台上蔓延，谣言比事实跑得更快。",
		},
		endings: []ending{
			{grade: 82, explanation: "处置展现了扎实的优先级判断，多数关键风险被及时化解，个别次生影响预估不足。"},
			{grade: 68, explanation: "核心问题得到回应，但部分决策缺少对长期后果的考虑，执行细节不够完整。"},
			{grade: 91, explanation: "各阶段响应兼顾了效率与安抚，资源调度有创造性，几乎没有留下隐患。"},
		},
	}
}

// Opening 生成首回合情景。initialPrompt 非空时优先采用用户给定的题面。
func (s *Script) Opening(initialPrompt string, seed int) *model.Scenario {
	situation := s.openings[seed%len(s.openings)]
	if initialPrompt != "" {
		situation = initialPrompt
	}
	return &model.Scenario{
		SituationDescription: situation,
		UserRole:             "你是本次事件的应急指挥官。",
		UserPrompt:           "下达你的第一道处置指令。",
	}
}

// FollowUp 根据回合号生成后续情景。
func (s *Script) FollowUp(turnNumber int) *model.Scenario {
	return &model.Scenario{
		SituationDescription: s.followUps[(turnNumber-2)%len(s.followUps)],
		UserPrompt:           "局势仍在变化，你的下一步是什么？",
	}
}

// Conclusion 生成结局情景：带 0–100 评分与讲评。
// seed 让同一会话的评分稳定可复现。
func (s *Script) Conclusion(seed int) *model.Scenario {
	e := s.endings[seed%len(s.endings)]
	grade := e.grade
	return &model.Scenario{
		SituationDescription: "危机终于告一段落，各方力量开始撤收，城市恢复了秩序。",
		Grade:                &grade,
		GradeExplanation:     e.explanation,
	}
}

// MediaFor 生成某回合的媒体 URL。
// 刻意返回站根相对路径（与真实后端的 /media 约定一致），
// 客户端负责归一化。
func (s *Script) MediaFor(simulationID string, turnNumber, clipCount int) ([]string, string) {
	clips := make([]string, 0, clipCount)
	for i := 0; i < clipCount; i++ {
		clips = append(clips, fmt.Sprintf("media/videos/%s_turn_%d_clip_%d.mp4", simulationID, turnNumber, i))
	}
	audio := fmt.Sprintf("media/audio/%s_turn_%d.mp3", simulationID, turnNumber)
	return clips, audio
}
