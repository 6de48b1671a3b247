package board

import (
	"net/http"

	"github.com/beka-birhanu/gridhunt-server/game"
	"github.com/beka-birhanu/gridhunt-server/service/i"
	"github.com/gin-gonic/gin"
)

const defaultTopPlayers int64 = 50

// BoardServer exposes read-only game state over HTTP: the open room list and
// the leaderboard. The authoritative interactions stay on the game protocol.
type BoardServer struct {
	registry    *game.Registry
	leaderboard i.Leaderboard
	topPlayers  int64
}

// NewBoardServer creates a new BoardServer.
func NewBoardServer(registry *game.Registry, leaderboard i.Leaderboard, topPlayers int64) *BoardServer {
	if topPlayers <= 0 {
		topPlayers = defaultTopPlayers
	}
	return &BoardServer{
		registry:    registry,
		leaderboard: leaderboard,
		topPlayers:  topPlayers,
	}
}

// RegisterPublic registers public routes.
func (c *BoardServer) RegisterPublic(route *gin.RouterGroup) {
	route.GET("/rooms", c.rooms)
	route.GET("/leaderboard", c.topRanked)
}

// RegisterProtected registers privileged routes.
func (c *BoardServer) RegisterProtected(route *gin.RouterGroup) {
}

// rooms lists rooms that are still accepting players.
func (c *BoardServer) rooms(ctx *gin.Context) {
	infos := c.registry.OpenRooms()

	response := make([]RoomResponse, 0, len(infos))
	for _, info := range infos {
		response = append(response, RoomResponse{
			ID:          info.ID,
			Name:        info.Name,
			PlayerCount: info.PlayerCount,
			Capacity:    4,
		})
	}
	ctx.JSON(http.StatusOK, response)
}

// topRanked serves the win leaderboard, highest first.
func (c *BoardServer) topRanked(ctx *gin.Context) {
	ranked, err := c.leaderboard.TopPlayers(ctx.Request.Context(), c.topPlayers)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}
	ctx.JSON(http.StatusOK, ranked)
}
