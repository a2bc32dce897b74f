package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	portalv1 "github.com/gurkanbulca/teamportal/api/portal/v1"
	"github.com/gurkanbulca/teamportal/internal/repository"
	"github.com/gurkanbulca/teamportal/internal/service"
)

func (s *Server) handleListTasks(c *gin.Context) {
	limit, ok := queryInt(c, "pageSize")
	if !ok {
		return
	}

	filter := repository.ListFilter{Limit: limit}
	for name, dst := range map[string]**string{
		"assigneeId": &filter.AssigneeID,
		"creatorId":  &filter.CreatorID,
		"clientId":   &filter.ClientID,
		"status":     &filter.Status,
		"priority":   &filter.Priority,
		"seriesId":   &filter.SeriesID,
	} {
		if v := c.Query(name); v != "" {
			*dst = &v
		}
	}

	tasks, err := s.services.Tasks.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.ListTasksResponse{Tasks: tasks})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req portalv1.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tasks, err := s.services.Tasks.Create(c.Request.Context(), service.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Priority:         req.Priority,
		AssigneeID:       req.AssigneeID,
		AssigneeName:     req.AssigneeName,
		ClientID:         req.ClientID,
		DueDate:          req.DueDate,
		IsRecurring:      req.IsRecurring,
		Cadence:          req.Cadence,
		RecurringEndDate: req.RecurringEndDate,
		Materialize:      req.Materialize,
	}, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, portalv1.CreateTaskResponse{Tasks: tasks})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.services.Tasks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.GetTaskResponse{Task: task})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var req portalv1.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.services.Tasks.Update(c.Request.Context(), c.Param("id"), service.UpdateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		Priority:         req.Priority,
		AssigneeID:       req.AssigneeID,
		AssigneeName:     req.AssigneeName,
		ClientID:         req.ClientID,
		DueDate:          req.DueDate,
		IsRecurring:      req.IsRecurring,
		Cadence:          req.Cadence,
		RecurringEndDate: req.RecurringEndDate,
	}, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.UpdateTaskResponse{Task: task})
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.services.Tasks.Delete(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleTransition(c *gin.Context) {
	var req portalv1.TransitionTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.services.Engine.Transition(c.Request.Context(), service.TransitionRequest{
		TaskID:             c.Param("id"),
		Status:             req.Status,
		Actor:              actor(c),
		ExpectedOccurrence: req.ExpectedOccurrence,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	resp := portalv1.TransitionTaskResponse{
		Task:              res.Task,
		Outcome:           res.Kind.String(),
		Completion:        res.Completion,
		SeriesEnded:       res.SeriesEnded,
		Replayed:          res.Replayed,
		StatisticsUpdated: res.StatisticsUpdated,
	}
	if res.Next != nil {
		due := res.Next.DueDate
		resp.NextDueDate = &due
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTaskCompletions(c *gin.Context) {
	limit, ok := queryInt(c, "pageSize")
	if !ok {
		return
	}
	recs, err := s.services.Tasks.Completions(c.Request.Context(), c.Param("id"), "", limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, portalv1.ListCompletionsResponse{Completions: recs})
}
