package domain

// Room is a bookable unit as the catalog collaborator lists it.
type Room struct {
	RoomID        string
	RoomTypeID    string
	Number        string
	City          string
	PricePerNight float64
}

// RoomType groups rooms sharing capacity and naming.
type RoomType struct {
	RoomTypeID string
	Name       string
	Capacity   int
}

// Amenity is a bookable feature (wifi, parking, breakfast).
type Amenity struct {
	AmenityID string
	Name      string
}

// RoomAmenityLink ties one room to one amenity.
type RoomAmenityLink struct {
	RoomID    string
	AmenityID string
}

// RoomImage is a catalog photo; a room may have several, the first is shown.
type RoomImage struct {
	RoomID string
	URL    string
}

// RoomView is the denormalized record served to search clients, joined in
// memory from the five catalog lists.
type RoomView struct {
	RoomID        string   `json:"idHabitacion"`
	Number        string   `json:"numero"`
	City          string   `json:"ciudad"`
	PricePerNight float64  `json:"precioNoche"`
	TypeName      string   `json:"tipo"`
	Capacity      int      `json:"capacidad"`
	Amenities     []string `json:"comodidades"`
	ImageURL      string   `json:"imagenUrl"`
}

// RoomPage is one page of search results.
type RoomPage struct {
	Rooms      []RoomView `json:"habitaciones"`
	Page       int        `json:"pagina"`
	PageSize   int        `json:"tamanoPagina"`
	TotalRooms int        `json:"totalHabitaciones"`
}
