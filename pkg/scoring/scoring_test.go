package scoring

import (
	"testing"
	"time"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestScoreIncorrectSiempreCero(t *testing.T) {
	assert.Equal(t, 0.0, Score(false, 0))
	assert.Equal(t, 0.0, Score(false, 5000))
	assert.Equal(t, 0.0, Score(false, -100))
	assert.Equal(t, 0.0, Score(false, 999999))
}

func TestScoreCorrect(t *testing.T) {
	tests := []struct {
		name           string
		responseTimeMs float64
		expected       float64
	}{
		{"instantáneo", 0, 200},
		{"tiempo negativo recibe bono completo", -500, 200},
		{"un segundo", 1000, 190},
		{"cinco segundos", 5000, 150},
		{"diez segundos", 10000, 100},
		{"el bono nunca es negativo", 15000, 100},
		{"fracciones sin redondear", 250, 197.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Score(true, tt.responseTimeMs))
		})
	}
}

func TestIsCorrectNormalizacion(t *testing.T) {
	target := models.Target{
		Answer:     "France",
		Alternates: []string{"FR", "French Republic"},
	}

	tests := []struct {
		text     string
		expected bool
	}{
		{"France", true},
		{"FR", true},
		{"french republic", true},
		{" france ", true},
		{"FRANCE", true},
		{"Franc", false},
		{"", false},
		{"Francia", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCorrect(tt.text, target))
		})
	}
}

func TestEvaluateRound(t *testing.T) {
	start := time.Now()
	target := models.Target{Answer: "France", Alternates: []string{"FR"}}

	answers := []models.Answer{
		{PlayerID: "p1", Text: "France", ReceivedAt: start.Add(1 * time.Second)},
		{PlayerID: "p2", Text: "Germany", ReceivedAt: start.Add(2 * time.Second)},
		{PlayerID: "p3", Text: " fr ", ReceivedAt: start.Add(5 * time.Second)},
	}

	scores := EvaluateRound(answers, target, start)

	// Una entrada por respuesta enviada, en orden de llegada
	assert.Len(t, scores, 3)
	assert.Equal(t, "p1", scores[0].PlayerID)
	assert.Equal(t, "p2", scores[1].PlayerID)
	assert.Equal(t, "p3", scores[2].PlayerID)

	assert.True(t, scores[0].IsCorrect)
	assert.Equal(t, 190.0, scores[0].Score)

	assert.False(t, scores[1].IsCorrect)
	assert.Equal(t, 0.0, scores[1].Score)

	assert.True(t, scores[2].IsCorrect)
	assert.Equal(t, 150.0, scores[2].Score)
}

func TestEvaluateRoundSinRespuestas(t *testing.T) {
	scores := EvaluateRound(nil, models.Target{Answer: "x"}, time.Now())
	assert.Empty(t, scores)
}

func TestEvaluateRoundRelojDesfasado(t *testing.T) {
	start := time.Now()
	answers := []models.Answer{
		// Timestamp anterior al inicio de la ronda: bono completo
		{PlayerID: "p1", Text: "France", ReceivedAt: start.Add(-3 * time.Second)},
	}

	scores := EvaluateRound(answers, models.Target{Answer: "France"}, start)
	assert.Equal(t, 200.0, scores[0].Score)
}
