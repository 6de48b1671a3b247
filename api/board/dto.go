package board

// RoomResponse is one joinable room in the room listing.
type RoomResponse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	Capacity    int    `json:"capacity"`
}
