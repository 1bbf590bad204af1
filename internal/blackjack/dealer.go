package blackjack

// DealerStandsOn is the first total the dealer stops drawing at. Soft and
// hard totals are treated the same.
const DealerStandsOn = 17

// PlayDealer draws into the dealer hand one card at a time until its value
// reaches DealerStandsOn.
func PlayDealer(hand []Card, draw func() Card) []Card {
	for HandValue(hand) < DealerStandsOn {
		hand = append(hand, draw())
	}
	return hand
}
