package game

// Player is owned by the session roster. Matches never hold a *Player;
// they carry the id and a display-name snapshot, and scores are mutated
// only through session and registry operations.
type Player struct {
	ID   int64
	Name string

	// MatchScore is the vote count from the most recent resolved match,
	// TotalScore the accumulated votes across the session.
	MatchScore int
	TotalScore int
}

func NewPlayer(id int64, name string) *Player {
	return &Player{ID: id, Name: name}
}
