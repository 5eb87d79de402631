package agent

import "fmt"

// Pinned definition versions. Bumping one causes provisioning to push the new
// definition to every user's agents on their next provision call.
const (
	SourcingAgentVersion = "1.2.1"
	MatchingAgentVersion = "1.2.1"
	ToolVersion          = "1.0.3"

	ToolSetName = "hr_sourcing_tools"
)

const sourcingInstructions = `You are an expert AI Talent Sourcer working for {{ user_name }}. Your goal is to help users find the best candidates for their job openings.

**Workflow:**
1. Analyze the user's request, which could be a simple query or a query combined with a Job Description.
2. Extract key criteria like job titles, skills, company names, and locations from the user's input.
3. Use the search_candidates tool to find profiles matching these criteria. Always pass the session_id: {{ session_id }}.
4. After the tool returns a list of candidate profiles, review them carefully.
5. Present the most promising candidates in a concise summary. Format each candidate's name as a Markdown link using their public_id as the URL.

**CRITICAL CONTEXT:**
- Use only the provided geographical locations and their IDs for the geo_codes parameter: {{ available_locations }}.
- Current date and time: {{ datetime }}.
- The user's name is: {{ user_name }}.`

const matchingInstructions = `You are an expert AI Hiring Manager working for {{ user_name }}. Your task is to analyze and rank candidates for a specific job role.

**Workflow:**
1. You will be provided with a Job Description and a list of candidate profiles.
2. Evaluate every candidate against the Job Description.
3. Present a ranked list, starting with the top candidate, stating each candidate's name, score and a short rationale.

**CRITICAL CONTEXT:**
- Current date and time: {{ datetime }}.
- The user's name is: {{ user_name }}.`

// SourcingAgentDefinition is the payload for creating or updating a user's
// sourcing agent, bound to that user's search_candidates tool.
func SourcingAgentDefinition(toolIDs []string) map[string]any {
	return map[string]any{
		"name":               "HR Sourcing Agent",
		"description":        "Understands natural language recruiting queries, searches for candidates and presents a summarized list of top profiles.",
		"agent_role":         "You are an Expert Technical Recruiter and Talent Sourcer.",
		"agent_instructions": sourcingInstructions,
		"agent_goal":         "Analyze user requirements and leverage the search tool until a satisfactory list of candidate profiles is found and presented.",
		"tools":              toolIDs,
		"tool_usage_description": fmt.Sprintf(`{%q: ["Use this tool whenever the user asks to find, search, or source candidates. Always supply the session_id from the conversation context."]}`,
			firstOr(toolIDs, "search_candidates")),
		"features": []map[string]any{
			{"type": "MEMORY", "config": map[string]any{"max_messages_context_count": 10}, "priority": 0},
		},
		"model":             "gemini/gemini-2.5-flash",
		"provider_id":       "Google",
		"llm_credential_id": "lyzr_google",
		"temperature":       0.5,
		"top_p":             0.9,
		"store_messages":    true,
	}
}

// MatchingAgentDefinition is the payload for the job-description matching
// agent. It carries no tools.
func MatchingAgentDefinition() map[string]any {
	return map[string]any{
		"name":               "Candidate Matching Agent",
		"description":        "Evaluates saved candidate profiles against a Job Description to rank them with a rationale for each match.",
		"agent_role":         "You are an Expert Hiring Manager.",
		"agent_instructions": matchingInstructions,
		"agent_goal":         "Produce a complete, justified, ranked list of candidates for the given job description.",
		"tools":              []string{},
		"features": []map[string]any{
			{"type": "MEMORY", "config": map[string]any{"max_messages_context_count": 10}, "priority": 0},
		},
		"model":             "gemini/gemini-2.5-flash",
		"provider_id":       "Google",
		"llm_credential_id": "lyzr_google",
		"temperature":       0.3,
		"top_p":             0.9,
		"store_messages":    true,
	}
}

// SearchToolSchema is the OpenAPI document registered with the platform so the
// sourcing agent can call back into this service.
func SearchToolSchema(serverURL, userID string) map[string]any {
	return map[string]any{
		"openapi": "3.0.0",
		"info": map[string]any{
			"title":   "HR Sourcing API - " + userID,
			"version": ToolVersion,
		},
		"servers": []map[string]any{
			{"url": serverURL, "description": "HR Sourcing API Server"},
		},
		"paths": map[string]any{
			"/api/tools/search_candidates": map[string]any{
				"post": map[string]any{
					"operationId": "search_candidates",
					"summary":     "Search for candidates matching hiring criteria",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"application/json": map[string]any{
								"schema": map[string]any{
									"type":     "object",
									"required": []string{"session_id", "keywords"},
									"properties": map[string]any{
										"session_id":            map[string]any{"type": "string", "description": "Conversation session id from the system prompt"},
										"keywords":              map[string]any{"type": "string", "description": "Free-text search keywords"},
										"title_keywords":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
										"current_company_names": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
										"past_company_names":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
										"geo_codes":             map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
										"limit":                 map[string]any{"type": "integer"},
									},
								},
							},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{"description": "Candidate search results"},
					},
				},
			},
		},
	}
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
