package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// IndexResourceURI addresses the dataset index status resource.
const IndexResourceURI = "census://index/datasets"

type indexStatus struct {
	Ready      bool   `json:"ready"`
	Documents  int    `json:"documents"`
	Source     string `json:"source,omitempty"`
	BuiltAt    string `json:"built_at,omitempty"`
	Location   string `json:"location"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// registerResources registers the index status resource when index stats are available.
func (s *Server) registerResources() {
	if s.ports.Index == nil {
		return
	}
	s.server.AddResource(&mcp.Resource{
		URI:         IndexResourceURI,
		Name:        "dataset-index",
		Description: "Status of the semantic dataset index: readiness, size, origin and embedding model",
		MIMEType:    "application/json",
	}, s.handleIndexResource)
}

func (s *Server) handleIndexResource(_ context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	st := s.ports.Index.Stats()
	status := indexStatus{
		Ready:      st.Ready,
		Documents:  st.Documents,
		Source:     st.Source,
		Location:   st.Location,
		Provider:   st.Identity.Provider,
		Model:      st.Identity.Model,
		Dimensions: st.Identity.Dimensions,
	}
	if !st.BuiltAt.IsZero() {
		status.BuiltAt = st.BuiltAt.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(status)
	if err != nil {
		return nil, fmt.Errorf("marshalling index status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
