package blackjack

// GameView is the table as every client sees it. The dealer hand is sent in
// full; hiding the hole card is left to the client.
type GameView struct {
	ID          string        `json:"id"`
	State       State         `json:"gameState"`
	Players     []PlayerView  `json:"players"`
	DealerHand  []Card        `json:"dealerHand"`
	DealerValue int           `json:"dealerValue"`
	Messages    []ChatMessage `json:"messages"`
}

type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Hand      []Card `json:"hand"`
	HandValue int    `json:"handValue"`
	Bet       int    `json:"bet"`
	Chips     int    `json:"chips"`
	Status    Status `json:"status"`
	IsReady   bool   `json:"isReady"`
}

// View snapshots the game. Hand values are recomputed from the cards on every
// call and slices are copied so the view can be serialized off the owning
// goroutine.
func (g *Game) View() GameView {
	players := make([]PlayerView, 0, len(g.players))
	for _, p := range g.players {
		players = append(players, PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Hand:      append([]Card{}, p.Hand...),
			HandValue: HandValue(p.Hand),
			Bet:       p.Bet,
			Chips:     p.Chips,
			Status:    p.Status,
			IsReady:   p.IsReady,
		})
	}

	return GameView{
		ID:          g.ID,
		State:       g.State,
		Players:     players,
		DealerHand:  append([]Card{}, g.DealerHand...),
		DealerValue: HandValue(g.DealerHand),
		Messages:    append([]ChatMessage{}, g.Messages...),
	}
}
