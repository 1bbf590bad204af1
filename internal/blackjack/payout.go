package blackjack

type Outcome string

const (
	OutcomeBust      Outcome = "bust"
	OutcomeBlackjack Outcome = "blackjack"
	OutcomeWin       Outcome = "win"
	OutcomePush      Outcome = "push"
	OutcomeLose      Outcome = "lose"
)

// PlayerResult is how one seat settled at the end of a round.
type PlayerResult struct {
	PlayerID    string  `json:"playerId"`
	Name        string  `json:"name"`
	HandValue   int     `json:"handValue"`
	Bet         int     `json:"bet"`
	Outcome     Outcome `json:"outcome"`
	ChipsDelta  int     `json:"chipsDelta"`
	ChipsAfter  int     `json:"chipsAfter"`
	FinalStatus Status  `json:"finalStatus"`
}

// Settle compares every player against the final dealer value and credits
// winnings. Bets are never debited: a loss or a bust leaves chips untouched.
func Settle(players []*Player, dealerValue int) []PlayerResult {
	results := make([]PlayerResult, 0, len(players))

	for _, p := range players {
		value := HandValue(p.Hand)
		outcome, delta := resolve(p.Status, value, dealerValue, p.Bet)
		p.Chips += delta

		results = append(results, PlayerResult{
			PlayerID:    p.ID,
			Name:        p.Name,
			HandValue:   value,
			Bet:         p.Bet,
			Outcome:     outcome,
			ChipsDelta:  delta,
			ChipsAfter:  p.Chips,
			FinalStatus: p.Status,
		})
	}

	return results
}

func resolve(status Status, playerValue, dealerValue, bet int) (Outcome, int) {
	switch {
	case status == StatusBust:
		return OutcomeBust, 0
	case status == StatusBlackjack && dealerValue != Blackjack:
		// floor(bet * 1.5)
		return OutcomeBlackjack, bet * 3 / 2
	case dealerValue > Blackjack || playerValue > dealerValue:
		return OutcomeWin, bet
	case playerValue == dealerValue:
		return OutcomePush, 0
	default:
		return OutcomeLose, 0
	}
}
