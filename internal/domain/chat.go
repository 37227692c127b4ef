package domain

// ChatMessage is the provider-agnostic chat message shape used by the
// OpenAI-compatible integration.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LatLng biases grounded lookups toward a location.
type LatLng struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// Tools selects the grounding tools attached to a generation call.
type Tools struct {
	WebSearch bool
	Maps      bool
	Location  *LatLng
}

// GenerateRequest is a single prompt sent to the generation collaborator.
type GenerateRequest struct {
	Model  string
	Prompt string
	Tools  Tools
}

// Generation is the collaborator's answer: free text plus any grounding URIs.
type Generation struct {
	Text        string
	SourceLinks []string
}
