package scoring

import (
	"strings"
	"time"

	"github.com/backsoul/trivia/pkg/models"
)

// Score calcula el puntaje de una respuesta individual.
// Una respuesta incorrecta vale 0. Una correcta vale 100 puntos base
// más un bono por velocidad: 100 menos un punto por cada 100ms, sin
// bajar de 0. El cálculo es en aritmética real, sin redondeos; el que
// quiera mostrarlo bonito que lo formatee.
// Un tiempo negativo (reloj desfasado) se trata como 0: bono completo.
func Score(isCorrect bool, responseTimeMs float64) float64 {
	if !isCorrect {
		return 0
	}

	if responseTimeMs < 0 {
		responseTimeMs = 0
	}

	bonus := 100 - responseTimeMs/100
	if bonus < 0 {
		bonus = 0
	}

	return 100 + bonus
}

// IsCorrect compara el texto enviado contra la respuesta canónica y
// sus variantes aceptadas: se recortan espacios y se ignoran
// mayúsculas, pero la igualdad es exacta ("Franc" no vale por "France").
func IsCorrect(text string, target models.Target) bool {
	submitted := normalize(text)

	if submitted == normalize(target.Answer) {
		return true
	}
	for _, alt := range target.Alternates {
		if submitted == normalize(alt) {
			return true
		}
	}
	return false
}

// EvaluateRound evalúa todas las respuestas de una ronda y devuelve
// un PlayerScore por respuesta enviada, en el mismo orden de llegada.
// Los jugadores que no respondieron no producen entrada: su puntaje
// de ronda es implícitamente 0 y su total no cambia.
func EvaluateRound(answers []models.Answer, target models.Target, startTime time.Time) []models.PlayerScore {
	scores := make([]models.PlayerScore, 0, len(answers))

	for _, answer := range answers {
		correct := IsCorrect(answer.Text, target)
		responseTimeMs := float64(answer.ReceivedAt.Sub(startTime)) / float64(time.Millisecond)

		scores = append(scores, models.PlayerScore{
			PlayerID:  answer.PlayerID,
			Score:     Score(correct, responseTimeMs),
			IsCorrect: correct,
		})
	}

	return scores
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
