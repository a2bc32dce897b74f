package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
)

func (s *Server) handleUserStatistics(c *gin.Context) {
	stats, err := s.services.Statistics.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.GetUserStatisticsResponse{Statistics: stats})
}

func (s *Server) handleUserCompletions(c *gin.Context) {
	limit, ok := queryInt(c, "pageSize")
	if !ok {
		return
	}
	recs, err := s.services.Tasks.Completions(c.Request.Context(), "", c.Param("id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.ListCompletionsResponse{Completions: recs})
}

func (s *Server) handleLeaderboard(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	board, err := s.services.Statistics.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.GetLeaderboardResponse{Entries: board})
}

func (s *Server) handleListNotifications(c *gin.Context) {
	limit, ok := queryInt(c, "pageSize")
	if !ok {
		return
	}
	list, err := s.services.Notifications.List(c.Request.Context(), actor(c).ID, c.Query("unread") == "true", limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.ListNotificationsResponse{Notifications: list})
}

func (s *Server) handleMarkRead(c *gin.Context) {
	if err := s.services.Notifications.MarkRead(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
