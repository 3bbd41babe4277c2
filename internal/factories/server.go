package factories

import (
	"time"

	"github.com/chrisdamba/profitlens/internal/models"
	"github.com/lucsky/cuid"
)

func (f *Factory) CreateServer(restaurant *models.Restaurant, joined time.Time) *models.Server {
	return &models.Server{
		ID:           cuid.New(),
		RestaurantID: restaurant.ID,
		Name:         f.fake.Person().Name(),
		Active:       true,
		CreatedAt:    f.fake.Time().TimeBetween(joined.AddDate(-1, 0, 0), joined).UTC(),
	}
}

func (f *Factory) CreateServers(restaurant *models.Restaurant, n int, joined time.Time) []*models.Server {
	servers := make([]*models.Server, 0, n)
	for i := 0; i < n; i++ {
		servers = append(servers, f.CreateServer(restaurant, joined))
	}
	return servers
}
