package httpserver

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/seibert-media/lower-thirds-tools/internal/channel"
	"github.com/seibert-media/lower-thirds-tools/internal/domain"
)

// channelStatusResponse is the channel_status snapshot plus what this process knows about the channel.
type channelStatusResponse struct {
	domain.ChannelStatus
	State        string `json:"state"`
	LocalMembers int    `json:"local_members"`
}

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api")
	api.GET("/channels", s.handleListChannels)
	api.GET("/channels/:slug", s.handleChannelStatus)
}

func (s *Server) handleListChannels(c echo.Context) error {
	data := domain.ChannelsData{Channels: s.channels.List()}
	if err := c.JSON(http.StatusOK, data); err != nil {
		return fmt.Errorf("failed to write channels response: %w", err)
	}
	return nil
}

func (s *Server) handleChannelStatus(c echo.Context) error {
	ch, err := s.channels.Get(c.Param("slug"))
	if err != nil {
		return err
	}
	status := ch.Status()
	response := channelStatusResponse{
		ChannelStatus: status,
		State:         channel.StateOf(status).String(),
		LocalMembers:  s.hub.GroupSize(ch.Slug()),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write status response: %w", err)
	}
	return nil
}
