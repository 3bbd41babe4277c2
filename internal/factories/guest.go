package factories

// GuestSegment shapes party size and how much each guest orders.
type GuestSegment struct {
	Name          string
	Ratio         float64
	PartyMin      int
	PartyMax      int
	ItemsPerGuest float64
}

var DefaultGuestSegments = []GuestSegment{
	{Name: "frequent", Ratio: 0.2, PartyMin: 2, PartyMax: 5, ItemsPerGuest: 1.8},
	{Name: "regular", Ratio: 0.5, PartyMin: 1, PartyMax: 4, ItemsPerGuest: 1.5},
	{Name: "occasional", Ratio: 0.3, PartyMin: 1, PartyMax: 3, ItemsPerGuest: 1.2},
}

func (f *Factory) assignGuestSegment() GuestSegment {
	weights := make([]float64, len(DefaultGuestSegments))
	for i, s := range DefaultGuestSegments {
		weights[i] = s.Ratio
	}
	return DefaultGuestSegments[f.selectWeighted(weights)]
}

func (f *Factory) partySize(s GuestSegment) int {
	return s.PartyMin + f.rng.Intn(s.PartyMax-s.PartyMin+1)
}
