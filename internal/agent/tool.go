package agent

// SearchKnowledgeName is the function name the LLM calls.
const SearchKnowledgeName = "search_knowledge"

const searchKnowledgeDescription = "Search William's knowledge base for relevant information. " +
	"Use this when the user asks about William's writing, experiences, or opinions."

// Tool is a function the LLM may call, described with a JSON schema.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
	Method      string `json:"method,omitempty"`
	Endpoint    string `json:"endpoint,omitempty"`
}

// Schema is the subset of JSON schema used for tool parameters.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Property is one tool parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// SearchKnowledgeTool describes the retrieval tool served at endpoint.
func SearchKnowledgeTool(endpoint string) Tool {
	return Tool{
		Name:        SearchKnowledgeName,
		Description: searchKnowledgeDescription,
		Parameters: Schema{
			Type: "object",
			Properties: map[string]Property{
				"query": {Type: "string", Description: "What to look up, in the user's words"},
			},
			Required: []string{"query"},
		},
		Method:   "POST",
		Endpoint: endpoint,
	}
}
