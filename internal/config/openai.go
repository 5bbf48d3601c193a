package config

// DefaultOpenAIBaseURL is the API root used when OPENAI_BASE_URL is unset
const DefaultOpenAIBaseURL = "https://api.openai.com/v1"

// Credentials identify the caller and the assistant to run
type Credentials struct {
	APIKey      string
	AssistantID string
}

// LoadCredentials reads API_KEY and ASSISTANT_ID from the environment.
// Missing values are returned as empty strings and left for the remote
// service to reject.
func LoadCredentials() Credentials {
	return Credentials{
		APIKey:      GetEnvOrDefault("API_KEY", ""),
		AssistantID: GetEnvOrDefault("ASSISTANT_ID", ""),
	}
}

// GetOpenAIBaseURL returns the assistant API root
func GetOpenAIBaseURL() string {
	return GetEnvOrDefault("OPENAI_BASE_URL", DefaultOpenAIBaseURL)
}
