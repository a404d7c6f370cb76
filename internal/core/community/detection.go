package community

import (
	"context"
	"log/slog"

	"github.com/agenthands/chronicle/internal/core/model"
	"github.com/agenthands/chronicle/internal/core/nodes"
	"github.com/agenthands/chronicle/internal/core/summary"
	"github.com/agenthands/chronicle/internal/driver"
)

// Member is the entity view returned inside a community.
type Member struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type Community struct {
	Members []Member `json:"members"`
	Summary string   `json:"summary,omitempty"`
}

// Service detects communities over the live portion of a group's graph.
// Historical facts do not contribute edges.
type Service struct {
	Driver   driver.GraphDriver
	Nodes    *nodes.Registry
	Detector Detector

	// Optional. When set, each detected community gets a prose summary.
	Summarizer *summary.Summarizer

	Logger *slog.Logger
}

func NewService(d driver.GraphDriver, registry *nodes.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		Driver:   d,
		Nodes:    registry,
		Detector: NewLabelPropagationDetector(),
		Logger:   logger,
	}
}

func (s *Service) DetectForGroup(ctx context.Context, groupID string) ([]Community, error) {
	entityNodes, err := s.Nodes.List(ctx, groupID, 10000)
	if err != nil {
		return nil, err
	}
	if len(entityNodes) == 0 {
		return nil, nil
	}

	res, err := s.Driver.ExecuteQuery(ctx, driver.ListLiveGroupGraphQuery, map[string]interface{}{
		"group_id": groupID,
	})
	if err != nil {
		return nil, model.NewCollaboratorError("graph", err)
	}

	edges := make([]GraphEdge, 0, len(res.Records))
	for _, rec := range res.Records {
		edges = append(edges, GraphEdge{
			SourceUUID: driver.RecordString(rec, "source_uuid"),
			TargetUUID: driver.RecordString(rec, "target_uuid"),
		})
	}

	clusters, err := s.Detector.Detect(entityNodes, edges)
	if err != nil {
		return nil, err
	}

	communities := make([]Community, 0, len(clusters))
	for _, cluster := range clusters {
		c := Community{Members: make([]Member, 0, len(cluster))}
		for _, n := range cluster {
			c.Members = append(c.Members, Member{UUID: n.UUID, Name: n.Name, Type: n.Type})
		}
		if s.Summarizer != nil {
			text, err := s.Summarizer.SummarizeCommunity(ctx, cluster)
			if err != nil {
				s.Logger.Warn("community summary failed", "group_id", groupID, "error", err)
			} else {
				c.Summary = text
			}
		}
		communities = append(communities, c)
	}

	s.Logger.Info("community detection finished",
		"group_id", groupID, "nodes", len(entityNodes), "communities", len(communities))
	return communities, nil
}
