package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"graphspace/backend/internal/constants"
	"graphspace/backend/internal/graph"
	"graphspace/backend/internal/knowledge"
	"graphspace/backend/internal/mirror"
	"graphspace/backend/internal/services"
	apperrors "graphspace/backend/pkg/errors"
)

// graphMirror is the part of the Neo4j mirror the API triggers.
type graphMirror interface {
	Sync(ctx context.Context, g *graph.Graph) (mirror.Result, error)
}

// api holds the handlers' dependencies.
type api struct {
	kg     *knowledge.KnowledgeGraph
	notes  *services.NoteService
	tasks  *services.TaskService
	mirror graphMirror // nil when Neo4j is not configured
	log    *zap.Logger

	stats singleflight.Group
}

func newRouter(a *api) *gin.Engine {
	router := gin.New()
	router.Use(ginLogger(a.log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api")
	{
		for _, kind := range graph.Kinds {
			group := v1.Group("/" + kind.Collection())
			group.POST("", a.createEntity(kind))
			group.GET("", a.listEntities(kind))
			group.GET("/:id", a.getEntity(kind))
			group.PUT("/:id", a.updateEntity(kind))
			group.DELETE("/:id", a.deleteEntity(kind))
			group.POST("/:id/tags/:tag", a.addTag(kind))
			group.DELETE("/:id/tags/:tag", a.removeTag(kind))
		}

		// Note and task services
		v1.POST("/notes/compose", a.composeNote)
		v1.POST("/tasks/:id/complete", a.completeTask)
		v1.POST("/tasks/:id/start", a.startTask)
		v1.GET("/tasks/overdue", a.overdueTasks)
		v1.GET("/tasks/due-soon", a.tasksDueSoon)

		// Relationships
		v1.POST("/relationships", a.createRelationship)
		v1.PUT("/relationships", a.updateRelationship)
		v1.DELETE("/relationships", a.deleteRelationship)
		v1.GET("/relationships", a.getRelationship)
		v1.POST("/relationships/link", a.linkByID)
		v1.GET("/relationships/kind/:kind", a.relationshipsByKind)

		// Entity-centred queries
		v1.GET("/entities/:kind/:id/relationships", a.relationshipsByEntity)
		v1.GET("/entities/:kind/:id/related", a.related)
		v1.POST("/entities/:kind/:id/summary", a.summarize)
		v1.DELETE("/entities/:kind/:id/relationships", a.removeAllRelationships)

		// Graph-wide queries
		v1.GET("/search", a.textSearch)
		v1.GET("/search/tag/:tag", a.searchByTag)
		v1.GET("/path", a.findPath)
		v1.GET("/stats", a.statistics)
		v1.POST("/graph/mirror", a.mirrorGraph)
	}

	return router
}

// respondError maps engine errors onto status codes.
func (a *api) respondError(c *gin.Context, err error, msg string) {
	var unknownKind *apperrors.ErrUnknownKind
	var invalid *apperrors.ErrInvalidRecord
	switch {
	case apperrors.IsEntityNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &unknownKind), errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeProvider):
		a.log.Error(msg, zap.Error(err))
		c.JSON(upstreamStatus(err), gin.H{"error": msg})
	default:
		a.log.Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}

// upstreamStatus answers 503 for failures worth retrying and 502 otherwise.
func upstreamStatus(err error) int {
	if apperrors.IsRetryable(err) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func notFound(c *gin.Context, what string) {
	c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
}

// kindParam parses the :kind path parameter, answering 400 when invalid.
func kindParam(c *gin.Context, name string) (graph.Kind, bool) {
	kind, err := graph.ParseKind(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, false
	}
	return kind, true
}

// intQuery reads an integer query parameter, answering 400 when malformed.
func intQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return n, true
}

// ============================================================================
// Entities
// ============================================================================

func (a *api) createEntity(kind graph.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rec graph.Record
		if err := c.ShouldBindJSON(&rec); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var id string
		var err error
		switch kind {
		case graph.KindDocument:
			id, err = a.kg.AddDocument(rec)
		case graph.KindTask:
			id, err = a.tasks.CreateTask(c.Request.Context(), rec)
		default:
			id, err = a.kg.AddEntity(kind, rec)
		}
		if err != nil {
			a.respondError(c, err, "Failed to create "+kind.String())
			return
		}
		c.JSON(http.StatusCreated, gin.H{"id": id})
	}
}

func (a *api) listEntities(kind graph.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		if kind == graph.KindTask {
			if status := c.Query("status"); status != "" {
				c.JSON(http.StatusOK, a.tasks.TasksByStatus(status))
				return
			}
			if project := c.Query("project"); project != "" {
				c.JSON(http.StatusOK, a.tasks.TasksByProject(project))
				return
			}
			if tag := c.Query("tag"); tag != "" {
				c.JSON(http.StatusOK, a.tasks.TasksByTag(tag))
				return
			}
			if priority := c.Query("priority"); priority != "" {
				c.JSON(http.StatusOK, a.tasks.TasksByPriority(priority))
				return
			}
		}
		c.JSON(http.StatusOK, a.kg.ListEntities(kind))
	}
}

func (a *api) getEntity(kind graph.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := a.kg.GetEntity(kind, c.Param("id"))
		if !ok {
			notFound(c, kind.String())
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}

func (a *api) updateEntity(kind graph.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var patch map[string]any
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ok, err := a.kg.UpdateEntity(kind, c.Param("id"), patch)
		a.mutationResult(c, kind, ok, err, "updated")
	}
}

func (a *api) deleteEntity(kind graph.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := a.kg.DeleteEntity(kind, c.Param("id"))
		a.mutationResult(c, kind, ok, err, "deleted")
	}
}

func (a *api) addTag(kind graph.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := a.kg.AddTag(kind, c.Param("id"), c.Param("tag"))
		a.mutationResult(c, kind, ok, err, "updated")
	}
}

func (a *api) removeTag(kind graph.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := a.kg.RemoveTag(kind, c.Param("id"), c.Param("tag"))
		a.mutationResult(c, kind, ok, err, "updated")
	}
}

func (a *api) mutationResult(c *gin.Context, kind graph.Kind, ok bool, err error, status string) {
	if err != nil {
		a.respondError(c, err, "Failed to save "+kind.String())
		return
	}
	if !ok {
		notFound(c, kind.String())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (a *api) composeNote(c *gin.Context) {
	var req struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := a.notes.CreateNote(c.Request.Context(), req.Title, req.Content, req.Tags)
	if err != nil {
		a.respondError(c, err, "Failed to create note")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (a *api) completeTask(c *gin.Context) {
	ok, err := a.tasks.CompleteTask(c.Param("id"))
	a.mutationResult(c, graph.KindTask, ok, err, "completed")
}

func (a *api) startTask(c *gin.Context) {
	ok, err := a.tasks.MarkInProgress(c.Param("id"))
	a.mutationResult(c, graph.KindTask, ok, err, "in_progress")
}

func (a *api) overdueTasks(c *gin.Context) {
	c.JSON(http.StatusOK, a.tasks.OverdueTasks())
}

func (a *api) tasksDueSoon(c *gin.Context) {
	days, ok := intQuery(c, "days", constants.DefaultDueSoonDays)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.tasks.TasksDueSoon(days))
}

func (a *api) summarize(c *gin.Context) {
	kind, ok := kindParam(c, "kind")
	if !ok {
		return
	}
	summary, err := a.notes.Summarize(c.Request.Context(), kind, c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Failed to summarize")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

// ============================================================================
// Relationships
// ============================================================================

func (a *api) bindRelationship(c *gin.Context) (graph.Relationship, bool) {
	var rel graph.Relationship
	if err := c.ShouldBindJSON(&rel); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return rel, false
	}
	return rel, true
}

func (a *api) createRelationship(c *gin.Context) {
	rel, ok := a.bindRelationship(c)
	if !ok {
		return
	}
	if !a.kg.CreateRelationship(rel) {
		notFound(c, "endpoint")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

func (a *api) updateRelationship(c *gin.Context) {
	rel, ok := a.bindRelationship(c)
	if !ok {
		return
	}
	if !a.kg.UpdateRelationship(rel) {
		notFound(c, "relationship")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (a *api) deleteRelationship(c *gin.Context) {
	rel, ok := a.bindRelationship(c)
	if !ok {
		return
	}
	if !a.kg.DeleteRelationship(rel) {
		notFound(c, "relationship")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (a *api) getRelationship(c *gin.Context) {
	source, err := graph.ParseKind(c.Query("source_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, err := graph.ParseKind(c.Query("target_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rel, ok := a.kg.GetRelationship(source, c.Query("source_id"), target, c.Query("target_id"))
	if !ok {
		notFound(c, "relationship")
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (a *api) linkByID(c *gin.Context) {
	var req struct {
		SourceID     string         `json:"source_id" binding:"required"`
		TargetID     string         `json:"target_id" binding:"required"`
		Relationship string         `json:"relationship_type" binding:"required"`
		Properties   map[string]any `json:"properties"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !a.kg.AddRelationship(req.SourceID, req.TargetID, req.Relationship, req.Properties) {
		notFound(c, "endpoint")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "created"})
}

func (a *api) relationshipsByKind(c *gin.Context) {
	c.JSON(http.StatusOK, a.kg.RelationshipsByKind(c.Param("kind")))
}

func (a *api) relationshipsByEntity(c *gin.Context) {
	kind, ok := kindParam(c, "kind")
	if !ok {
		return
	}
	rels, err := a.kg.RelationshipsByEntity(kind, c.Param("id"))
	if err != nil {
		a.respondError(c, err, "Failed to list relationships")
		return
	}
	c.JSON(http.StatusOK, rels)
}

func (a *api) removeAllRelationships(c *gin.Context) {
	if _, ok := kindParam(c, "kind"); !ok {
		return
	}
	if !a.kg.RemoveAllRelationships(c.Param("id")) {
		notFound(c, "entity")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ============================================================================
// Queries
// ============================================================================

func (a *api) related(c *gin.Context) {
	kind, ok := kindParam(c, "kind")
	if !ok {
		return
	}
	related, err := a.kg.RelatedEntities(kind, c.Param("id"), c.Query("relationship"))
	if err != nil {
		a.respondError(c, err, "Failed to fetch related entities")
		return
	}
	c.JSON(http.StatusOK, related)
}

// textSearch serves GET /api/search?q=...&kinds=note,task&limit=5.
func (a *api) textSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	var kinds []graph.Kind
	if raw := c.Query("kinds"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			kind, err := graph.ParseKind(name)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			kinds = append(kinds, kind)
		}
	}
	limit, ok := intQuery(c, "limit", constants.DefaultSearchLimit)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, a.kg.TextSearch(query, kinds, limit))
}

func (a *api) searchByTag(c *gin.Context) {
	c.JSON(http.StatusOK, a.kg.SearchByTag(c.Param("tag")))
}

func (a *api) findPath(c *gin.Context) {
	from, err := graph.ParseKind(c.Query("from_kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to, err := graph.ParseKind(c.Query("to_kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	path, err := a.kg.FindPath(from, c.Query("from_id"), to, c.Query("to_id"))
	if err != nil {
		a.respondError(c, err, "Failed to find path")
		return
	}
	c.JSON(http.StatusOK, path)
}

// statistics collapses concurrent requests into one centrality computation.
func (a *api) statistics(c *gin.Context) {
	v, _, _ := a.stats.Do("stats", func() (any, error) {
		return a.kg.Statistics(), nil
	})
	c.JSON(http.StatusOK, v)
}

func (a *api) mirrorGraph(c *gin.Context) {
	if a.mirror == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Neo4j mirror is not configured"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Minute)
	defer cancel()

	res, err := a.mirror.Sync(ctx, a.kg.Graph())
	if err != nil {
		a.log.Error("Failed to mirror graph", zap.Error(err))
		c.JSON(upstreamStatus(err), gin.H{"error": "Failed to mirror graph"})
		return
	}
	c.JSON(http.StatusOK, res)
}
