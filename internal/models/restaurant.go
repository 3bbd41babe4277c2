package models

import "time"

type Restaurant struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name"`
	Currency  string    `json:"currency"`
	Town      string    `json:"town"`
	Capacity  int       `json:"capacity"` // seats
	OpenHour  int       `json:"open_hour"`
	CloseHour int       `json:"close_hour"`
	CreatedAt time.Time `json:"created_at"`
}

// HoursOpen returns the daily opening hours, wrapping past midnight.
func (r *Restaurant) HoursOpen() int {
	if r.CloseHour > r.OpenHour {
		return r.CloseHour - r.OpenHour
	}
	return 24 - r.OpenHour + r.CloseHour
}

type Server struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	RestaurantID string    `json:"restaurant_id" gorm:"index"`
	Name         string    `json:"name"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}
