package matching

import (
	"context"
	"errors"
	"log"
	"strings"

	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/modules/restaurant"
	"dispatchdesk/internal/types"
)

type RestaurantLookup interface {
	GetByName(ctx context.Context, name string) (restaurant.Restaurant, error)
}

// TargetResolver picks the point drivers are ranked against: the restaurant
// for food orders, the customer otherwise or when the restaurant has no
// usable coordinate.
type TargetResolver struct {
	restaurants RestaurantLookup
}

func NewTargetResolver(restaurants RestaurantLookup) *TargetResolver {
	return &TargetResolver{restaurants: restaurants}
}

func (r *TargetResolver) Target(ctx context.Context, o *order.Order) types.Point {
	if r.restaurants == nil || o.RestaurantName == nil {
		return o.Customer
	}
	name := strings.TrimSpace(*o.RestaurantName)
	if name == "" {
		return o.Customer
	}
	rest, err := r.restaurants.GetByName(ctx, name)
	if err != nil {
		if !errors.Is(err, restaurant.ErrNotFound) {
			log.Printf("matching: restaurant %q lookup: %v", name, err)
		}
		return o.Customer
	}
	if !rest.Position.Valid() {
		return o.Customer
	}
	return rest.Position
}
