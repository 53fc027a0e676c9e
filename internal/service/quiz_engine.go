package service

import (
	"english_virtual_lab/internal/util"
	"fmt"
	"time"
)

type QuizState string

const (
	QuizAnswering  QuizState = "answering"
	QuizSubmitting QuizState = "submitting"
	QuizResults    QuizState = "results"
)

// Unanswered 答案数组中未作答的位置
const Unanswered = -1

type QuizQuestion struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"-"`
}

type Quiz struct {
	Title     string
	Questions []QuizQuestion
}

func (q *Quiz) Total() int {
	return len(q.Questions)
}

// EnglishQuiz 固定题库，单选，无部分得分
var EnglishQuiz = &Quiz{
	Title: "English Grammar & Vocabulary Quiz",
	Questions: []QuizQuestion{
		{
			ID:       1,
			Question: "Which sentence is grammatically correct?",
			Options: []string{
				"She don't like coffee.",
				"She doesn't likes coffee.",
				"She doesn't like coffee.",
				"She not like coffee.",
			},
			CorrectAnswer: 2,
		},
		{
			ID:            2,
			Question:      "What is the past tense of 'go'?",
			Options:       []string{"Goed", "Went", "Gone", "Going"},
			CorrectAnswer: 1,
		},
		{
			ID:            3,
			Question:      "Choose the correct word: 'I have ___ homework to do.'",
			Options:       []string{"many", "much", "a lot", "few"},
			CorrectAnswer: 1,
		},
		{
			ID:       4,
			Question: "What does the idiom 'break the ice' mean?",
			Options: []string{
				"To damage frozen water",
				"To start a conversation in a social situation",
				"To end a relationship",
				"To make someone cold",
			},
			CorrectAnswer: 1,
		},
		{
			ID:            5,
			Question:      "Which preposition completes this sentence? 'I'm interested ___ learning English.'",
			Options:       []string{"on", "at", "in", "for"},
			CorrectAnswer: 2,
		},
	},
}

// QuizSession 一次测验尝试的状态，可序列化后存入会话存储
type QuizSession struct {
	AttemptID     string    `json:"attemptId"`
	UserID        string    `json:"userId"`
	State         QuizState `json:"state"`
	QuestionIndex int       `json:"questionIndex"`
	Answers       []int     `json:"answers"`
	Score         int       `json:"score"`
	ResultID      uint      `json:"resultId,omitempty"`
	StartedAt     time.Time `json:"startedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Answered 已作答题数
func (s *QuizSession) Answered() int {
	n := 0
	for _, a := range s.Answers {
		if a != Unanswered {
			n++
		}
	}
	return n
}

// QuizEngine 固定题库上的状态机：answering -> submitting -> results，results 可 retake 回到 answering(0)
type QuizEngine struct {
	Quiz *Quiz
}

func NewQuizEngine(quiz *Quiz) *QuizEngine {
	return &QuizEngine{Quiz: quiz}
}

func (e *QuizEngine) Start(attemptID, userID string, now time.Time) *QuizSession {
	s := &QuizSession{
		AttemptID: attemptID,
		UserID:    userID,
		StartedAt: now,
		UpdatedAt: now,
	}
	e.reset(s)
	return s
}

func (e *QuizEngine) reset(s *QuizSession) {
	s.State = QuizAnswering
	s.QuestionIndex = 0
	s.Score = 0
	s.ResultID = 0
	s.Answers = make([]int, e.Quiz.Total())
	for i := range s.Answers {
		s.Answers[i] = Unanswered
	}
}

// SelectAnswer 记录第 index 题的选项，不移动当前题目
func (e *QuizEngine) SelectAnswer(s *QuizSession, index, option int) error {
	if s.State != QuizAnswering {
		return util.ErrInvalidTransition
	}
	if index < 0 || index >= e.Quiz.Total() {
		return util.ErrQuestionOutOfRange
	}
	if option < 0 || option >= len(e.Quiz.Questions[index].Options) {
		return util.ErrOptionOutOfRange
	}
	if len(s.Answers) != e.Quiz.Total() {
		// 存储中的旧数据长度不一致时补齐
		answers := make([]int, e.Quiz.Total())
		for i := range answers {
			answers[i] = Unanswered
			if i < len(s.Answers) {
				answers[i] = s.Answers[i]
			}
		}
		s.Answers = answers
	}
	s.Answers[index] = option
	return nil
}

// Next 最后一题不能再前进，应提交
func (e *QuizEngine) Next(s *QuizSession) error {
	if s.State != QuizAnswering || s.QuestionIndex >= e.Quiz.Total()-1 {
		return util.ErrInvalidTransition
	}
	s.QuestionIndex++
	return nil
}

// Previous 第一题时不变
func (e *QuizEngine) Previous(s *QuizSession) error {
	if s.State != QuizAnswering {
		return util.ErrInvalidTransition
	}
	if s.QuestionIndex > 0 {
		s.QuestionIndex--
	}
	return nil
}

// BeginSubmit 校验所有题目均已作答并计分，进入 submitting。
// 未答完返回 util.ErrQuizIncomplete，状态不变。
func (e *QuizEngine) BeginSubmit(s *QuizSession) (int, error) {
	if s.State != QuizAnswering {
		return 0, util.ErrInvalidTransition
	}
	if len(s.Answers) != e.Quiz.Total() || s.Answered() != e.Quiz.Total() {
		return 0, util.ErrQuizIncomplete
	}
	s.Score = e.Score(s.Answers)
	s.State = QuizSubmitting
	return s.Score, nil
}

// CompleteSubmit 结果已保存
func (e *QuizEngine) CompleteSubmit(s *QuizSession, resultID uint) error {
	if s.State != QuizSubmitting {
		return util.ErrInvalidTransition
	}
	s.State = QuizResults
	s.ResultID = resultID
	return nil
}

// AbortSubmit 保存失败，回到最后一题等待用户重新提交
func (e *QuizEngine) AbortSubmit(s *QuizSession) error {
	if s.State != QuizSubmitting {
		return util.ErrInvalidTransition
	}
	s.State = QuizAnswering
	s.QuestionIndex = e.Quiz.Total() - 1
	s.Score = 0
	return nil
}

func (e *QuizEngine) Retake(s *QuizSession) error {
	if s.State != QuizResults {
		return util.ErrInvalidTransition
	}
	e.reset(s)
	return nil
}

// Score 与正确答案下标完全相等的题数
func (e *QuizEngine) Score(answers []int) int {
	score := 0
	for i, q := range e.Quiz.Questions {
		if i < len(answers) && answers[i] == q.CorrectAnswer {
			score++
		}
	}
	return score
}

// Percentage round(100*score/total)，四舍五入到整数
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}

// ProgressPercent 100*(index+1)/total，保留一位小数，仅用于展示
func ProgressPercent(index, total int) float64 {
	if total <= 0 {
		return 0
	}
	tenths := (2000*(index+1) + total) / (2 * total)
	return float64(tenths) / 10
}

func FormatPercentage(p int) string {
	return fmt.Sprintf("%d%%", p)
}

func FormatProgress(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// ScoreSummary 例如 "You scored 4 out of 5"
func ScoreSummary(score, total int) string {
	return fmt.Sprintf("You scored %d out of %d", score, total)
}

type QuestionView struct {
	Index    int      `json:"index"`
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Selected int      `json:"selected"`
}

type ReviewItem struct {
	Question      string `json:"question"`
	YourAnswer    string `json:"yourAnswer"`
	CorrectAnswer string `json:"correctAnswer"`
	Correct       bool   `json:"correct"`
}

type QuizResultView struct {
	ResultID   uint         `json:"resultId"`
	Score      int          `json:"score"`
	Total      int          `json:"total"`
	Percentage string       `json:"percentage"`
	Summary    string       `json:"summary"`
	Review     []ReviewItem `json:"review"`
}

// QuizView 返回给前端的测验视图
type QuizView struct {
	AttemptID      string          `json:"attemptId"`
	Title          string          `json:"title"`
	State          QuizState       `json:"state"`
	QuestionIndex  int             `json:"questionIndex"`
	TotalQuestions int             `json:"totalQuestions"`
	Progress       string          `json:"progress"`
	Answered       int             `json:"answered"`
	Answers        []int           `json:"answers"`
	Current        *QuestionView   `json:"current,omitempty"`
	IsLast         bool            `json:"isLast"`
	Result         *QuizResultView `json:"result,omitempty"`
}

func (e *QuizEngine) View(s *QuizSession) *QuizView {
	total := e.Quiz.Total()
	v := &QuizView{
		AttemptID:      s.AttemptID,
		Title:          e.Quiz.Title,
		State:          s.State,
		QuestionIndex:  s.QuestionIndex,
		TotalQuestions: total,
		Progress:       FormatProgress(ProgressPercent(s.QuestionIndex, total)),
		Answered:       s.Answered(),
		Answers:        append([]int(nil), s.Answers...),
		IsLast:         s.QuestionIndex == total-1,
	}

	if s.State == QuizResults {
		v.Result = &QuizResultView{
			ResultID:   s.ResultID,
			Score:      s.Score,
			Total:      total,
			Percentage: FormatPercentage(Percentage(s.Score, total)),
			Summary:    ScoreSummary(s.Score, total),
			Review:     e.review(s.Answers),
		}
		return v
	}

	if s.QuestionIndex >= 0 && s.QuestionIndex < total {
		q := e.Quiz.Questions[s.QuestionIndex]
		selected := Unanswered
		if s.QuestionIndex < len(s.Answers) {
			selected = s.Answers[s.QuestionIndex]
		}
		v.Current = &QuestionView{
			Index:    s.QuestionIndex,
			ID:       q.ID,
			Question: q.Question,
			Options:  q.Options,
			Selected: selected,
		}
	}
	return v
}

func (e *QuizEngine) review(answers []int) []ReviewItem {
	items := make([]ReviewItem, len(e.Quiz.Questions))
	for i, q := range e.Quiz.Questions {
		item := ReviewItem{
			Question:      q.Question,
			CorrectAnswer: q.Options[q.CorrectAnswer],
		}
		if i < len(answers) && answers[i] >= 0 && answers[i] < len(q.Options) {
			item.YourAnswer = q.Options[answers[i]]
			item.Correct = answers[i] == q.CorrectAnswer
		}
		items[i] = item
	}
	return items
}
