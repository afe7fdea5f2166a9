package shipping

// SelectRate picks the rate to purchase. With a service-level token the first
// candidate carrying that exact token wins. Without one, the cheapest candidate
// wins and ties keep the earliest entry. ok is false when nothing qualifies.
func SelectRate(rates []Rate, serviceLevelToken string) (Rate, bool) {
	if serviceLevelToken != "" {
		for _, r := range rates {
			if r.ServiceLevelToken == serviceLevelToken {
				return r, true
			}
		}
		return Rate{}, false
	}

	if len(rates) == 0 {
		return Rate{}, false
	}
	best := rates[0]
	for _, r := range rates[1:] {
		if r.Amount.LessThan(best.Amount) {
			best = r
		}
	}
	return best, true
}
