package blackjack

// Blackjack is the target total; anything above it is bust.
const Blackjack = 21

// HandValue totals a hand with every Ace provisionally at 11, then demotes
// Aces to 1 one at a time while the total is over 21.
func HandValue(hand []Card) int {
	total, _ := handTotal(hand)
	return total
}

// IsSoft reports whether at least one Ace in the hand still counts as 11.
func IsSoft(hand []Card) bool {
	_, softAces := handTotal(hand)
	return softAces > 0
}

func handTotal(hand []Card) (total, softAces int) {
	for _, card := range hand {
		total += card.Value()
		if card.Rank == Ace {
			softAces++
		}
	}

	for total > Blackjack && softAces > 0 {
		total -= 10
		softAces--
	}

	return total, softAces
}
