package scoring

import (
	"sort"

	"github.com/backsoul/trivia/pkg/models"
)

// Rank construye la tabla de posiciones a partir del roster.
// Ordena por puntaje total descendente (empates conservan el orden de
// ingreso al lobby) y asigna rangos con "standard competition ranking":
// los empatados comparten rango y el siguiente puntaje distinto salta
// a su posición 1-based. Ejemplo: [500,400,400,400,100] → [1,2,2,2,5].
func Rank(players map[string]*models.Player) []models.LeaderboardEntry {
	ordered := make([]*models.Player, 0, len(players))
	for _, p := range players {
		ordered = append(ordered, p)
	}

	// Orden de ingreso primero, para que los empates sean estables
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].JoinedAt.Before(ordered[j].JoinedAt)
	})
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TotalScore > ordered[j].TotalScore
	})

	entries := make([]models.LeaderboardEntry, 0, len(ordered))
	for i, p := range ordered {
		rank := i + 1
		if i > 0 && p.TotalScore == ordered[i-1].TotalScore {
			rank = entries[i-1].Rank
		}

		entries = append(entries, models.LeaderboardEntry{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			TotalScore: p.TotalScore,
			Rank:       rank,
		})
	}

	return entries
}
