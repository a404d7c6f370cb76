package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/chronicle/internal/core/episodes"
	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/core/retrieval"
)

// respondError maps the error kinds to HTTP statuses: absent rows are 404,
// caller mistakes 400, collaborator failures 502, a partial temporal update
// 500 with enough detail to repair by hand.
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *model.ValidationError
	var partialErr *model.PartialUpdateError
	var collabErr *model.CollaboratorError

	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &partialErr):
		s.Logger.Error("partial temporal update", "old_uuid", partialErr.OldUUID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "fact invalidated but replacement was not created",
			"old_uuid":       partialErr.OldUUID,
			"invalidated_at": partialErr.InvalidatedAt,
		})
	case errors.As(err, &collabErr):
		s.Logger.Error("collaborator failure", "collaborator", collabErr.Collaborator, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": collabErr.Error()})
	default:
		s.Logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "chronicle", "status": "ok"})
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

type AddEpisodeRequest struct {
	UUID              string `json:"uuid"`
	GroupID           string `json:"group_id"`
	Name              string `json:"name"`
	Content           string `json:"content" binding:"required"`
	Source            string `json:"source"`
	SourceDescription string `json:"source_description"`
	ReferenceTime     string `json:"reference_time"` // RFC3339, defaults to now
}

func (s *Server) AddEpisode(c *gin.Context) {
	var req AddEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	var refTime time.Time
	if req.ReferenceTime != "" {
		parsed, err := time.Parse(time.RFC3339, req.ReferenceTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "reference_time must be RFC3339"})
			return
		}
		refTime = parsed
	}

	result, err := s.Chronicle.Episodes.Ingest(c.Request.Context(), episodes.IngestRequest{
		EpisodeUUID:       req.UUID,
		Name:              req.Name,
		Content:           req.Content,
		Source:            req.Source,
		SourceDescription: req.SourceDescription,
		GroupID:           req.GroupID,
		ReferenceTime:     refTime,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type Message struct {
	Content           string `json:"content" binding:"required"`
	Role              string `json:"role"`
	RoleType          string `json:"role_type"`
	Name              string `json:"name"`
	SourceDescription string `json:"source_description"`
	Timestamp         string `json:"timestamp"`
}

type AddMessagesRequest struct {
	GroupID  string    `json:"group_id"`
	Messages []Message `json:"messages" binding:"required"`
}

// messageLine prefixes the content with the speaker so attribution survives
// extraction, and so retrieval queries built from a conversation match the
// form the messages were ingested in.
func messageLine(msg Message) string {
	if msg.Role == "" && msg.RoleType == "" {
		return msg.Content
	}
	return fmt.Sprintf("%s(%s): %s", msg.Role, msg.RoleType, msg.Content)
}

// AddMessages ingests each message as its own episode, with the content
// prefixed by the speaker so attribution survives extraction.
func (s *Server) AddMessages(c *gin.Context) {
	var req AddMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	results := make([]*episodes.IngestResult, 0, len(req.Messages))
	for _, msg := range req.Messages {
		var refTime time.Time
		if msg.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, msg.Timestamp)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "timestamp must be RFC3339"})
				return
			}
			refTime = parsed
		}

		content := messageLine(msg)
		sourceDescription := msg.SourceDescription
		if sourceDescription == "" {
			sourceDescription = "conversation message"
		}

		result, err := s.Chronicle.Episodes.Ingest(c.Request.Context(), episodes.IngestRequest{
			Name:              msg.Name,
			Content:           content,
			Source:            model.SourceMessage,
			SourceDescription: sourceDescription,
			GroupID:           req.GroupID,
			ReferenceTime:     refTime,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		results = append(results, result)
	}

	c.JSON(http.StatusCreated, gin.H{"episodes": results})
}

// Query is not required: empty text is a valid degenerate search that the
// engine embeds like any other.
type SearchRequest struct {
	Query    string   `json:"query"`
	GroupID  string   `json:"group_id"`
	GroupIDs []string `json:"group_ids"`
	MaxFacts int      `json:"max_facts"`
}

const defaultMaxFacts = 10

func (r *SearchRequest) toQuery() retrieval.Query {
	groups := r.GroupIDs
	if len(groups) == 0 && r.GroupID != "" {
		groups = []string{r.GroupID}
	}
	limit := r.MaxFacts
	if limit <= 0 {
		limit = defaultMaxFacts
	}
	return retrieval.Query{Text: r.Query, GroupIDs: groups, Limit: limit}
}

type factView struct {
	UUID         string     `json:"uuid"`
	Fact         string     `json:"fact"`
	SourceEntity string     `json:"source_entity"`
	TargetEntity string     `json:"target_entity"`
	GroupID      string     `json:"group_id"`
	CreatedAt    time.Time  `json:"created_at"`
	ValidAt      *time.Time `json:"valid_at,omitempty"`
	InvalidAt    *time.Time `json:"invalid_at,omitempty"`
}

func stripScores(results []model.ScoredFact) []factView {
	views := make([]factView, 0, len(results))
	for _, r := range results {
		views = append(views, factView{
			UUID:         r.UUID,
			Fact:         r.Fact,
			SourceEntity: r.SourceEntity,
			TargetEntity: r.TargetEntity,
			GroupID:      r.GroupID,
			CreatedAt:    r.CreatedAt,
			ValidAt:      r.ValidAt,
			InvalidAt:    r.InvalidAt,
		})
	}
	return views
}

func (s *Server) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	results, err := s.Chronicle.Retrieval.Search(c.Request.Context(), req.toQuery())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": stripScores(results)})
}

type scoredFactView struct {
	factView
	Score        float64 `json:"score"`
	ScorePercent float64 `json:"score_percent"`
}

func (s *Server) SearchWithScore(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	results, err := s.Chronicle.Retrieval.Search(c.Request.Context(), req.toQuery())
	if err != nil {
		s.respondError(c, err)
		return
	}

	views := stripScores(results)
	scored := make([]scoredFactView, 0, len(results))
	for i, r := range results {
		scored = append(scored, scoredFactView{
			factView:     views[i],
			Score:        r.Score,
			ScorePercent: r.Score * 100,
		})
	}
	c.JSON(http.StatusOK, gin.H{"facts": scored})
}

type GetMemoryRequest struct {
	GroupID        string    `json:"group_id"`
	MaxFacts       int       `json:"max_facts"`
	MinScore       float64   `json:"min_score"`
	CenterNodeUUID string    `json:"center_node_uuid"`
	Messages       []Message `json:"messages" binding:"required"`
}

// GetMemory searches with the recent conversation as the query text.
func (s *Server) GetMemory(c *gin.Context) {
	var req GetMemoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	var parts []string
	for _, msg := range req.Messages {
		parts = append(parts, messageLine(msg))
	}
	limit := req.MaxFacts
	if limit <= 0 {
		limit = defaultMaxFacts
	}

	var groups []string
	if req.GroupID != "" {
		groups = []string{req.GroupID}
	}
	results, err := s.Chronicle.Retrieval.Search(c.Request.Context(), retrieval.Query{
		Text:          strings.Join(parts, "\n"),
		GroupIDs:      groups,
		Limit:         limit,
		MinScore:      req.MinScore,
		FocalNodeUUID: req.CenterNodeUUID,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": stripScores(results)})
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := c.Query("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Server) ListNodes(c *gin.Context) {
	nodes, err := s.Chronicle.Nodes.List(c.Request.Context(), c.Query("group_id"), queryLimit(c, 50))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if nodes == nil {
		nodes = []*model.EntityNode{}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": nodes})
}

func (s *Server) ListFacts(c *gin.Context) {
	facts, err := s.Chronicle.Facts.List(c.Request.Context(), c.Query("group_id"), queryLimit(c, 50))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if facts == nil {
		facts = []*model.EntityEdge{}
	}
	c.JSON(http.StatusOK, gin.H{"facts": facts})
}

type UpdateFactRequest struct {
	UUID    string `json:"uuid" binding:"required"`
	Fact    string `json:"fact" binding:"required"`
	GroupID string `json:"group_id"`
}

// UpdateFact supersedes: it never rewrites the stored fact, it invalidates
// the old version and creates the new one.
func (s *Server) UpdateFact(c *gin.Context) {
	var req UpdateFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := s.Chronicle.Versioning.Supersede(c.Request.Context(), req.UUID, req.Fact, req.GroupID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type DeleteFactRequest struct {
	UUID string `json:"uuid" binding:"required"`
}

func (s *Server) DeleteFact(c *gin.Context) {
	var req DeleteFactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	result, err := s.Chronicle.Facts.Retire(c.Request.Context(), req.UUID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	resp := gin.H{"uuid": result.UUID, "mode": result.Mode}
	if result.InvalidAt != nil {
		resp["invalid_at"] = result.InvalidAt.UTC().Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetEpisode(c *gin.Context) {
	detail, err := s.Chronicle.Episodes.Get(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (s *Server) ListEpisodes(c *gin.Context) {
	lastN := 20
	if raw := c.Query("last_n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "last_n must be a non-negative integer"})
			return
		}
		lastN = n
	}

	eps, err := s.Chronicle.Episodes.ListByGroup(c.Request.Context(), c.Param("group_id"), lastN)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if eps == nil {
		eps = []*model.EpisodicNode{}
	}
	c.JSON(http.StatusOK, gin.H{"episodes": eps})
}

type DeleteEpisodeRequest struct {
	UUID string `json:"uuid" binding:"required"`
}

func (s *Server) DeleteEpisode(c *gin.Context) {
	var req DeleteEpisodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if err := s.Chronicle.Episodes.Remove(c.Request.Context(), req.UUID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"uuid": req.UUID, "status": "deleted"})
}

func (s *Server) ListCommunities(c *gin.Context) {
	groupID := c.Query("group_id")
	if groupID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group_id is required"})
		return
	}

	communities, err := s.Chronicle.Communities.DetectForGroup(c.Request.Context(), groupID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": communities})
}
