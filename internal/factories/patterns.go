package factories

import (
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
)

const vatRate = 0.20

// HourlyDemand weights order arrivals by UTC hour. Hours not listed weigh 0.5.
var HourlyDemand = map[int]float64{
	11: 1.3,
	12: 2.0,
	13: 2.0,
	14: 1.5,
	17: 1.2,
	18: 1.8,
	19: 2.0,
	20: 1.7,
	21: 1.3,
	22: 0.8,
}

var WeekdayDemand = map[time.Weekday]float64{
	time.Monday:    0.85,
	time.Tuesday:   0.9,
	time.Wednesday: 0.95,
	time.Thursday:  1.0,
	time.Friday:    1.4,
	time.Saturday:  1.5,
	time.Sunday:    1.1,
}

type ChannelProfile struct {
	Channel    models.Channel
	Weight     float64
	Commission float64 // share of subtotal paid to the channel
	DineIn     bool
}

var ChannelProfiles = []ChannelProfile{
	{Channel: models.ChannelWalkIn, Weight: 0.35, DineIn: true},
	{Channel: models.ChannelBooking, Weight: 0.20, DineIn: true},
	{Channel: models.ChannelDirectDelivery, Weight: 0.10},
	{Channel: models.ChannelUberEats, Weight: 0.15, Commission: 0.30},
	{Channel: models.ChannelDeliveroo, Weight: 0.12, Commission: 0.25},
	{Channel: models.ChannelJustEat, Weight: 0.08, Commission: 0.14},
}

func hourWeight(hour int) float64 {
	if w, ok := HourlyDemand[hour]; ok {
		return w
	}
	return 0.5
}

// openHours lists the UTC hours a restaurant trades, wrapping past midnight.
func openHours(r *models.Restaurant) []int {
	hours := make([]int, 0, r.HoursOpen())
	for i := 0; i < r.HoursOpen(); i++ {
		hours = append(hours, (r.OpenHour+i)%24)
	}
	return hours
}
