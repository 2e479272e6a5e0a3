package portkey

// ChatModel names a model routed through the gateway. Any
// OpenAI-compatible model identifier is accepted; these are the ones the
// worker is deployed with.
type ChatModel string

const (
	GPT4o         ChatModel = "gpt-4o"
	GPT4oMini     ChatModel = "gpt-4o-mini"
	GPT41         ChatModel = "gpt-4.1"
	GPT41Mini     ChatModel = "gpt-4.1-mini"
	Claude4Sonnet ChatModel = "claude-sonnet-4-20250514"
	Gemini20Flash ChatModel = "gemini-2.0-flash"
)

// DefaultModel is used when the caller does not pick one.
const DefaultModel = GPT4o
