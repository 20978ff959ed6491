package adapter

import (
	"context"

	"github.com/pkg/errors"

	"gereca/internal/pkg/httpclient"
	"gereca/internal/service/search/domain"
)

// CatalogHTTPAdapter implements port.CatalogService against the hotel
// inventory back end.
type CatalogHTTPAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewCatalogHTTPAdapter(client *httpclient.Client, baseURL string) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client, baseURL: baseURL}
}

type roomRecord struct {
	RoomID        string  `json:"idHabitacion"`
	RoomTypeID    string  `json:"idTipoHabitacion"`
	Number        string  `json:"numero"`
	City          string  `json:"ciudad"`
	PricePerNight float64 `json:"precioNoche"`
}

type roomTypeRecord struct {
	RoomTypeID string `json:"idTipoHabitacion"`
	Name       string `json:"nombre"`
	Capacity   int    `json:"capacidad"`
}

type amenityRecord struct {
	AmenityID string `json:"idComodidad"`
	Name      string `json:"nombre"`
}

type roomAmenityRecord struct {
	RoomID    string `json:"idHabitacion"`
	AmenityID string `json:"idComodidad"`
}

type roomImageRecord struct {
	RoomID string `json:"idHabitacion"`
	URL    string `json:"url"`
}

func (a *CatalogHTTPAdapter) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var records []roomRecord
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/gestion/habitacion", &records); err != nil {
		return nil, errors.Wrap(err, "listing rooms")
	}
	rooms := make([]domain.Room, 0, len(records))
	for _, r := range records {
		rooms = append(rooms, domain.Room{
			RoomID:        r.RoomID,
			RoomTypeID:    r.RoomTypeID,
			Number:        r.Number,
			City:          r.City,
			PricePerNight: r.PricePerNight,
		})
	}
	return rooms, nil
}

func (a *CatalogHTTPAdapter) ListRoomTypes(ctx context.Context) ([]domain.RoomType, error) {
	var records []roomTypeRecord
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/gestion/tipo-habitacion", &records); err != nil {
		return nil, errors.Wrap(err, "listing room types")
	}
	types := make([]domain.RoomType, 0, len(records))
	for _, r := range records {
		types = append(types, domain.RoomType{
			RoomTypeID: r.RoomTypeID,
			Name:       r.Name,
			Capacity:   r.Capacity,
		})
	}
	return types, nil
}

func (a *CatalogHTTPAdapter) ListAmenities(ctx context.Context) ([]domain.Amenity, error) {
	var records []amenityRecord
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/gestion/comodidad", &records); err != nil {
		return nil, errors.Wrap(err, "listing amenities")
	}
	amenities := make([]domain.Amenity, 0, len(records))
	for _, r := range records {
		amenities = append(amenities, domain.Amenity{AmenityID: r.AmenityID, Name: r.Name})
	}
	return amenities, nil
}

func (a *CatalogHTTPAdapter) ListRoomAmenities(ctx context.Context) ([]domain.RoomAmenityLink, error) {
	var records []roomAmenityRecord
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/gestion/comodidad-habitacion", &records); err != nil {
		return nil, errors.Wrap(err, "listing room amenities")
	}
	links := make([]domain.RoomAmenityLink, 0, len(records))
	for _, r := range records {
		links = append(links, domain.RoomAmenityLink{RoomID: r.RoomID, AmenityID: r.AmenityID})
	}
	return links, nil
}

func (a *CatalogHTTPAdapter) ListRoomImages(ctx context.Context) ([]domain.RoomImage, error) {
	var records []roomImageRecord
	if err := a.client.GetJSON(ctx, a.baseURL+"/api/gestion/imagen-habitacion", &records); err != nil {
		return nil, errors.Wrap(err, "listing room images")
	}
	images := make([]domain.RoomImage, 0, len(records))
	for _, r := range records {
		images = append(images, domain.RoomImage{RoomID: r.RoomID, URL: r.URL})
	}
	return images, nil
}
