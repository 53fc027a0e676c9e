package service

import (
	"english_virtual_lab/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answerAll(t *testing.T, e *QuizEngine, s *QuizSession, answers ...int) {
	t.Helper()
	for i, a := range answers {
		require.NoError(t, e.SelectAnswer(s, i, a))
	}
}

func TestQuizEngine_StartsAtFirstQuestion(t *testing.T) {
	e := NewQuizEngine(EnglishQuiz)
	s := e.Start("a1", "user-1", time.Now())

	assert.Equal(t, QuizAnswering, s.State)
	assert.Equal(t, 0, s.QuestionIndex)
	assert.Equal(t, []int{-1, -1, -1, -1, -1}, s.Answers)
	assert.Equal(t, 0, s.Answered())
}

func TestQuizEngine_Scoring(t *testing.T) {
	tests := []struct {
		name       string
		answers    []int
		score      int
		percentage string
	}{
		{"all correct", []int{2, 1, 1, 1, 2}, 5, "100%"},
		{"all first option", []int{0, 0, 0, 0, 0}, 0, "0%"},
		{"second wrong", []int{2, 0, 1, 1, 2}, 4, "80%"},
		{"two right", []int{2, 1, 0, 0, 0}, 2, "40%"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewQuizEngine(EnglishQuiz)
			s := e.Start("a1", "user-1", time.Now())
			answerAll(t, e, s, tt.answers...)

			score, err := e.BeginSubmit(s)
			require.NoError(t, err)
			assert.Equal(t, tt.score, score)
			assert.Equal(t, QuizSubmitting, s.State)

			require.NoError(t, e.CompleteSubmit(s, 7))
			v := e.View(s)
			require.NotNil(t, v.Result)
			assert.Equal(t, tt.percentage, v.Result.Percentage)
			assert.Equal(t, uint(7), v.Result.ResultID)
		})
	}
}

func TestQuizEngine_SubmitIncompleteKeepsState(t *testing.T) {
	e := NewQuizEngine(EnglishQuiz)
	s := e.Start("a1", "user-1", time.Now())
	answerAll(t, e, s, 2, 1, 1, 1)
	require.NoError(t, e.Next(s))
	require.NoError(t, e.Next(s))

	_, err := e.BeginSubmit(s)

	assert.ErrorIs(t, err, util.ErrQuizIncomplete)
	assert.Equal(t, QuizAnswering, s.State)
	assert.Equal(t, 2, s.QuestionIndex)
	assert.Equal(t, 4, s.Answered())
}

func TestQuizEngine_Navigation(t *testing.T) {
	e := NewQuizEngine(EnglishQuiz)
	s := e.Start("a1", "user-1", time.Now())

	require.NoError(t, e.Previous(s))
	assert.Equal(t, 0, s.QuestionIndex)

	for i := 0; i < 4; i++ {
		require.NoError(t, e.Next(s))
	}
	assert.Equal(t, 4, s.QuestionIndex)
	assert.True(t, e.View(s).IsLast)

	assert.ErrorIs(t, e.Next(s), util.ErrInvalidTransition)
	assert.Equal(t, 4, s.QuestionIndex)

	require.NoError(t, e.Previous(s))
	assert.Equal(t, 3, s.QuestionIndex)
}

func TestQuizEngine_SelectAnswerBounds(t *testing.T) {
	e := NewQuizEngine(EnglishQuiz)
	s := e.Start("a1", "user-1", time.Now())

	assert.ErrorIs(t, e.SelectAnswer(s, 5, 0), util.ErrQuestionOutOfRange)
	assert.ErrorIs(t, e.SelectAnswer(s, -1, 0), util.ErrQuestionOutOfRange)
	assert.ErrorIs(t, e.SelectAnswer(s, 0, 4), util.ErrOptionOutOfRange)

	require.NoError(t, e.SelectAnswer(s, 3, 1))
	require.NoError(t, e.SelectAnswer(s, 3, 2))
	assert.Equal(t, 2, s.Answers[3])
	assert.Equal(t, 0, s.QuestionIndex, "selecting does not advance")
}

func TestQuizEngine_AbortReturnsToLastQuestion(t *testing.T) {
	e := NewQuizEngine(EnglishQuiz)
	s := e.Start("a1", "user-1", time.Now())
	answerAll(t, e, s, 2, 1, 1, 1, 2)

	_, err := e.BeginSubmit(s)
	require.NoError(t, err)
	assert.ErrorIs(t, e.SelectAnswer(s, 0, 1), util.ErrInvalidTransition)

	require.NoError(t, e.AbortSubmit(s))
	assert.Equal(t, QuizAnswering, s.State)
	assert.Equal(t, 4, s.QuestionIndex)
	assert.Equal(t, []int{2, 1, 1, 1, 2}, s.Answers)

	score, err := e.BeginSubmit(s)
	require.NoError(t, err)
	assert.Equal(t, 5, score)
}

func TestQuizEngine_RetakeResets(t *testing.T) {
	e := NewQuizEngine(EnglishQuiz)
	s := e.Start("a1", "user-1", time.Now())
	assert.ErrorIs(t, e.Retake(s), util.ErrInvalidTransition)

	answerAll(t, e, s, 2, 0, 1, 1, 2)
	_, err := e.BeginSubmit(s)
	require.NoError(t, err)
	require.NoError(t, e.CompleteSubmit(s, 1))

	require.NoError(t, e.Retake(s))
	assert.Equal(t, QuizAnswering, s.State)
	assert.Equal(t, 0, s.QuestionIndex)
	assert.Equal(t, 0, s.Answered())
	assert.Equal(t, 0, s.Score)
	assert.Zero(t, s.ResultID)
}

func TestQuizEngine_ViewReview(t *testing.T) {
	e := NewQuizEngine(EnglishQuiz)
	s := e.Start("a1", "user-1", time.Now())
	answerAll(t, e, s, 2, 0, 1, 1, 2)
	_, err := e.BeginSubmit(s)
	require.NoError(t, err)
	require.NoError(t, e.CompleteSubmit(s, 3))

	v := e.View(s)
	assert.Nil(t, v.Current)
	assert.Equal(t, "You scored 4 out of 5", v.Result.Summary)
	require.Len(t, v.Result.Review, 5)
	assert.False(t, v.Result.Review[1].Correct)
	assert.Equal(t, "Goed", v.Result.Review[1].YourAnswer)
	assert.Equal(t, "Went", v.Result.Review[1].CorrectAnswer)
	assert.True(t, v.Result.Review[0].Correct)
}

func TestPercentageRounding(t *testing.T) {
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 50, Percentage(1, 2))
	assert.Equal(t, 13, Percentage(1, 8), "12.5 rounds half up")
	assert.Equal(t, 0, Percentage(0, 0))
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, "20.0%", FormatProgress(ProgressPercent(0, 5)))
	assert.Equal(t, "40.0%", FormatProgress(ProgressPercent(1, 5)))
	assert.Equal(t, "100.0%", FormatProgress(ProgressPercent(4, 5)))
	assert.Equal(t, "33.3%", FormatProgress(ProgressPercent(0, 3)))
	assert.Equal(t, "66.7%", FormatProgress(ProgressPercent(1, 3)))
	assert.Equal(t, "12.5%", FormatProgress(ProgressPercent(0, 8)))
}
