package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseContentType(t *testing.T) {
	ct, err := ParseContentType("article")
	assert.NoError(t, err)
	assert.Equal(t, ContentArticle, ct)

	ct, err = ParseContentType("video")
	assert.NoError(t, err)
	assert.Equal(t, ContentVideo, ct)

	_, err = ParseContentType("podcast")
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestProgressRecordValidate(t *testing.T) {
	rec := &ProgressRecord{UserID: "u1", ContentType: ContentArticle, ContentID: "3", Completed: true, LastAccessed: time.Now()}
	assert.NoError(t, rec.Validate())

	bad := *rec
	bad.ContentType = "podcast"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)

	bad = *rec
	bad.UserID = ""
	assert.ErrorIs(t, bad.Validate(), ErrInvalidRecord)
}

func TestQuizResultValidate(t *testing.T) {
	r := &QuizResult{UserID: "u1", QuizTitle: "Quiz", Score: 5, TotalQuestions: 5}
	assert.NoError(t, r.Validate())

	r.Score = 6
	assert.ErrorIs(t, r.Validate(), ErrInvalidRecord)

	r.Score = -1
	assert.ErrorIs(t, r.Validate(), ErrInvalidRecord)

	r.Score = 0
	r.TotalQuestions = 0
	assert.ErrorIs(t, r.Validate(), ErrInvalidRecord)
}

func TestQuizResultPercentage(t *testing.T) {
	cases := []struct {
		score, total, want int
	}{
		{5, 5, 100},
		{4, 5, 80},
		{0, 5, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
	}
	for _, c := range cases {
		r := QuizResult{Score: c.score, TotalQuestions: c.total}
		assert.Equal(t, c.want, r.Percentage(), "%d/%d", c.score, c.total)
	}
}

func TestViewer(t *testing.T) {
	assert.False(t, Anonymous.SignedIn())
	assert.True(t, NewViewer("u1", "a@b.c").SignedIn())
	assert.False(t, Viewer{UserID: "u1", Loading: true}.SignedIn())
}

func TestProfileDisplayName(t *testing.T) {
	var p *Profile
	assert.Equal(t, "Student", p.DisplayName())
	assert.Equal(t, "Student", (&Profile{}).DisplayName())
	assert.Equal(t, "Rina", (&Profile{FullName: "Rina"}).DisplayName())
}
