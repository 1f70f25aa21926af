package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// PromptCensusWorkflow is the name of the guided workflow prompt.
const PromptCensusWorkflow = "census_question_workflow"

const censusWorkflow = "Follow this systematic workflow to answer Census questions:\n\n" +
	"**Step 1: Understand the Question**\n" +
	"   - Identify what data is needed (population, income, housing, etc.)\n" +
	"   - Determine the geographic scope (state, county, tract, etc.)\n" +
	"   - Note the time period of interest\n\n" +
	"**Step 2: Find Relevant Datasets**\n" +
	"   - Use `fetch_datasets` with a descriptive query\n" +
	"   - Include year filter if specific time period needed\n\n" +
	"**Step 3: Explore Variables**\n" +
	"   - Use `fetch_dataset_variables` to find specific data points\n" +
	"   - Use semantic query to filter thousands of variables\n\n" +
	"**Step 4: Check Geographic Availability**\n" +
	"   - Use `fetch_dataset_geographies` to see available levels\n" +
	"   - Use `fetch_dataset_required_parent_geographies` if needed\n\n" +
	"**Step 5: Handle Geographic Names**\n" +
	"   - Use `lookup_dataset_fips` to convert place names to FIPS codes\n" +
	"   - Use `fetch_dataset_fips` to explore available areas\n\n" +
	"**Step 6: Retrieve Data**\n" +
	"   - Use `fetch_dataset_data` with proper parameters\n" +
	"   - target_geographies: what areas you want data for\n" +
	"   - parent_geographies: required parent constraints, outermost first\n\n" +
	"**Need Help?** Use `fetch_dataset_examples` for usage patterns"

// registerPrompts registers the prompt handlers with the MCP server.
func (s *Server) registerPrompts() {
	s.server.AddPrompt(&mcp.Prompt{
		Name:        PromptCensusWorkflow,
		Description: "Guide systematic Census data analysis with step-by-step tool usage.",
		Arguments: []*mcp.PromptArgument{{
			Name:        "question",
			Description: "the question about Census data to answer",
			Required:    true,
		}},
	}, s.handleCensusWorkflow)
}

func (s *Server) handleCensusWorkflow(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	question := req.Params.Arguments["question"]
	if question == "" {
		return nil, fmt.Errorf("prompt %s: question is required", PromptCensusWorkflow)
	}

	return &mcp.GetPromptResult{
		Description: "Census question workflow",
		Messages: []*mcp.PromptMessage{
			{Role: "user", Content: &mcp.TextContent{Text: "A user has asked a question about census data:"}},
			{Role: "user", Content: &mcp.TextContent{Text: question}},
			{Role: "assistant", Content: &mcp.TextContent{Text: censusWorkflow}},
			{Role: "assistant", Content: &mcp.TextContent{Text: "Let's systematically work through your Census question."}},
		},
	}, nil
}
