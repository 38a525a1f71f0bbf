package scoring

import (
	"fmt"
	"testing"
	"time"

	"github.com/backsoul/trivia/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makePlayers(totals ...float64) map[string]*models.Player {
	base := time.Now()
	players := make(map[string]*models.Player, len(totals))
	for i, total := range totals {
		id := fmt.Sprintf("p%d", i+1)
		players[id] = &models.Player{
			ID:         id,
			Name:       fmt.Sprintf("Jugador %d", i+1),
			TotalScore: total,
			JoinedAt:   base.Add(time.Duration(i) * time.Second),
		}
	}
	return players
}

func ranksOf(entries []models.LeaderboardEntry) []int {
	ranks := make([]int, len(entries))
	for i, e := range entries {
		ranks[i] = e.Rank
	}
	return ranks
}

func TestRankCompetitionRanking(t *testing.T) {
	tests := []struct {
		name     string
		totals   []float64
		expected []int
	}{
		{"sin empates", []float64{500, 300, 100}, []int{1, 2, 3}},
		{"empate en primer lugar", []float64{500, 500, 300}, []int{1, 1, 3}},
		{"empate triple en segundo", []float64{500, 400, 400, 400, 100}, []int{1, 2, 2, 2, 5}},
		{"todos empatados", []float64{200, 200, 200, 200}, []int{1, 1, 1, 1}},
		{"un solo jugador", []float64{0}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := Rank(makePlayers(tt.totals...))
			require.Len(t, entries, len(tt.totals))
			assert.Equal(t, tt.expected, ranksOf(entries))

			// El orden es por puntaje descendente
			for i := 1; i < len(entries); i++ {
				assert.GreaterOrEqual(t, entries[i-1].TotalScore, entries[i].TotalScore)
			}
		})
	}
}

func TestRankEmpatesConservanOrdenDeIngreso(t *testing.T) {
	players := makePlayers(300, 300, 300)

	entries := Rank(players)
	require.Len(t, entries, 3)

	// p1 entró primero, p3 último
	assert.Equal(t, "p1", entries[0].PlayerID)
	assert.Equal(t, "p2", entries[1].PlayerID)
	assert.Equal(t, "p3", entries[2].PlayerID)
}

func TestRankVacio(t *testing.T) {
	assert.Empty(t, Rank(map[string]*models.Player{}))
}
