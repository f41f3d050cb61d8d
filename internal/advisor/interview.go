package advisor

import (
	"careercraft-go/internal/catalog"
	"careercraft-go/internal/session"
)

// simulatorFeedback 模拟面试的反馈，按题目序号轮换
var simulatorFeedback = []string{
	"Good structure and clear explanation",
	"Consider adding more technical details",
	"Great use of examples",
	"Could benefit from more specific metrics",
}

// Interview 面试题与准备资源
type Interview struct {
	catalog *catalog.Catalog
}

// NewInterview 创建面试助手
func NewInterview(c *catalog.Catalog) *Interview {
	return &Interview{catalog: c}
}

// Questions 角色的常见面试题，未知角色返回空列表
func (iv *Interview) Questions(role string) []string {
	r, ok := iv.catalog.Role(role)
	if !ok {
		return []string{}
	}
	return append([]string{}, r.InterviewQuestions...)
}

// PrepLinks 面试准备链接
func (iv *Interview) PrepLinks() []catalog.PrepLink {
	return iv.catalog.PrepLinks()
}

// SimulatorStep 模拟器当前状态
type SimulatorStep struct {
	Role     string `json:"role"`
	Number   int    `json:"number"`
	Total    int    `json:"total"`
	Question string `json:"question,omitempty"`
	Done     bool   `json:"done"`
}

// SummaryItem 单题总结
type SummaryItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Feedback string `json:"feedback"`
}

// InterviewSummary 模拟面试总结
type InterviewSummary struct {
	Role      string        `json:"role"`
	Completed bool          `json:"completed"`
	Items     []SummaryItem `json:"items"`
}

// Simulator 模拟面试。状态保存在 session.InterviewState 中，方法本身不持有状态。
type Simulator struct {
	catalog *catalog.Catalog
}

// NewSimulator 创建模拟器
func NewSimulator(c *catalog.Catalog) *Simulator {
	return &Simulator{catalog: c}
}

func (s *Simulator) role(name string) catalog.Role {
	if r, ok := s.catalog.Role(name); ok && len(r.SimulatorQuestions) > 0 {
		return r
	}
	return s.catalog.DefaultRole()
}

// Start 开始一轮新的模拟，没有题目的角色使用默认角色
func (s *Simulator) Start(role string) session.InterviewState {
	r := s.role(role)
	return session.InterviewState{Role: r.Name, Answers: []string{}}
}

// Current 返回当前题目
func (s *Simulator) Current(state session.InterviewState) SimulatorStep {
	questions := s.role(state.Role).SimulatorQuestions
	step := SimulatorStep{Role: state.Role, Total: len(questions)}
	if state.Index >= len(questions) {
		step.Number = len(questions)
		step.Done = true
		return step
	}
	step.Number = state.Index + 1
	step.Question = questions[state.Index]
	return step
}

// Answer 记录当前题的回答并前进一题，已结束时原样返回
func (s *Simulator) Answer(state session.InterviewState, answer string) session.InterviewState {
	questions := s.role(state.Role).SimulatorQuestions
	if state.Index >= len(questions) {
		return state
	}
	next := session.InterviewState{
		Role:    state.Role,
		Index:   state.Index + 1,
		Answers: append(append([]string{}, state.Answers...), answer),
	}
	return next
}

// Summary 汇总已回答的题目
func (s *Simulator) Summary(state session.InterviewState) InterviewSummary {
	questions := s.role(state.Role).SimulatorQuestions
	sum := InterviewSummary{
		Role:      state.Role,
		Completed: state.Index >= len(questions),
		Items:     []SummaryItem{},
	}
	for i, answer := range state.Answers {
		if i >= len(questions) {
			break
		}
		sum.Items = append(sum.Items, SummaryItem{
			Question: questions[i],
			Answer:   answer,
			Feedback: simulatorFeedback[i%len(simulatorFeedback)],
		})
	}
	return sum
}
