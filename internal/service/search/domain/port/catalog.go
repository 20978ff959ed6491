package port

import (
	"context"

	"gereca/internal/service/search/domain"
)

// CatalogService is the outbound port to the catalog/inventory back end.
// Each list is an independent read; the gateway fetches them concurrently.
type CatalogService interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	ListRoomTypes(ctx context.Context) ([]domain.RoomType, error)
	ListAmenities(ctx context.Context) ([]domain.Amenity, error)
	ListRoomAmenities(ctx context.Context) ([]domain.RoomAmenityLink, error)
	ListRoomImages(ctx context.Context) ([]domain.RoomImage, error)
}
