package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"gereca/internal/pkg/logger"
	"gereca/internal/service/search/domain"
	"gereca/internal/service/search/domain/port"
)

// DefaultImageURL is served when a room has no catalog photo.
const DefaultImageURL = "/static/img/habitacion-default.png"

// PageCache stores rendered result pages. A nil value with a nil error means
// a miss.
type PageCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// AggregationGateway answers room searches by fetching the five catalog
// lists concurrently, joining them in memory, and paginating. The fan-out
// has no shared mutable state: each fetch writes its own slot, the join runs
// single-threaded after the barrier.
type AggregationGateway struct {
	catalog  port.CatalogService
	cache    PageCache
	pageSize int
	cacheTTL time.Duration
}

func NewAggregationGateway(catalog port.CatalogService, cache PageCache, pageSize int, cacheTTL time.Duration) *AggregationGateway {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &AggregationGateway{
		catalog:  catalog,
		cache:    cache,
		pageSize: pageSize,
		cacheTTL: cacheTTL,
	}
}

// SearchRooms returns one page of denormalized rooms, optionally filtered by
// city. Pages are cached briefly; a cache failure falls through to a live
// aggregation.
func (g *AggregationGateway) SearchRooms(ctx context.Context, city string, page int) (domain.RoomPage, error) {
	if page < 1 {
		page = 1
	}

	cacheKey := fmt.Sprintf("search:rooms:%s:%d", city, page)
	if g.cache != nil {
		if cached, err := g.cache.GetBytes(ctx, cacheKey); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Msg("page cache read failed, aggregating live")
		} else if cached != nil {
			var result domain.RoomPage
			if err := json.Unmarshal(cached, &result); err == nil {
				return result, nil
			}
		}
	}

	views, err := g.aggregate(ctx)
	if err != nil {
		return domain.RoomPage{}, err
	}

	if city != "" {
		filtered := views[:0]
		for _, v := range views {
			if v.City == city {
				filtered = append(filtered, v)
			}
		}
		views = filtered
	}

	total := len(views)
	start := (page - 1) * g.pageSize
	if start > total {
		start = total
	}
	end := start + g.pageSize
	if end > total {
		end = total
	}

	result := domain.RoomPage{
		Rooms:      views[start:end],
		Page:       page,
		PageSize:   g.pageSize,
		TotalRooms: total,
	}

	if g.cache != nil {
		if encoded, err := json.Marshal(result); err == nil {
			if err := g.cache.SetBytes(ctx, cacheKey, encoded, g.cacheTTL); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Msg("page cache write failed")
			}
		}
	}
	return result, nil
}

// aggregate runs the fan-out and the join.
func (g *AggregationGateway) aggregate(ctx context.Context) ([]domain.RoomView, error) {
	var (
		rooms     []domain.Room
		types     []domain.RoomType
		amenities []domain.Amenity
		links     []domain.RoomAmenityLink
		images    []domain.RoomImage
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		rooms, err = g.catalog.ListRooms(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		types, err = g.catalog.ListRoomTypes(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		amenities, err = g.catalog.ListAmenities(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		links, err = g.catalog.ListRoomAmenities(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		images, err = g.catalog.ListRoomImages(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, fmt.Errorf("aggregating catalog lists: %w", err)
	}

	// Hash indices so the join is linear instead of nested scans.
	typeByID := make(map[string]domain.RoomType, len(types))
	for _, t := range types {
		typeByID[t.RoomTypeID] = t
	}
	amenityByID := make(map[string]string, len(amenities))
	for _, a := range amenities {
		amenityByID[a.AmenityID] = a.Name
	}
	amenitiesByRoom := make(map[string][]string, len(rooms))
	for _, link := range links {
		if name, ok := amenityByID[link.AmenityID]; ok {
			amenitiesByRoom[link.RoomID] = append(amenitiesByRoom[link.RoomID], name)
		}
	}
	imageByRoom := make(map[string]string, len(images))
	for _, img := range images {
		if _, seen := imageByRoom[img.RoomID]; !seen {
			imageByRoom[img.RoomID] = img.URL
		}
	}

	views := make([]domain.RoomView, 0, len(rooms))
	for _, room := range rooms {
		view := domain.RoomView{
			RoomID:        room.RoomID,
			Number:        room.Number,
			City:          room.City,
			PricePerNight: room.PricePerNight,
			Amenities:     amenitiesByRoom[room.RoomID],
			ImageURL:      imageByRoom[room.RoomID],
		}
		if t, ok := typeByID[room.RoomTypeID]; ok {
			view.TypeName = t.Name
			view.Capacity = t.Capacity
		}
		if view.ImageURL == "" {
			view.ImageURL = DefaultImageURL
		}
		views = append(views, view)
	}
	// Stable order so pagination does not shuffle between requests.
	sort.Slice(views, func(i, j int) bool { return views[i].RoomID < views[j].RoomID })
	return views, nil
}
