package model

import (
	"encoding/json"
)

type ResponseFormat struct {
	Type       string         `json:"type,omitempty"`
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}

type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// CacheControl is litegate's per-request response cache control, sent as the
// "cache" field of a completion request. It never reaches the provider.
type CacheControl struct {
	NoCache   bool     `json:"no-cache,omitempty"`
	NoStore   bool     `json:"no-store,omitempty"`
	UseCache  bool     `json:"use-cache,omitempty"`
	TTL       float64  `json:"ttl,omitempty"` // seconds
	SMaxAge   *float64 `json:"s-maxage,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
}

func (c *CacheControl) UnmarshalJSON(data []byte) error {
	type alias CacheControl
	var wire struct {
		alias
		SMaxAgeAlt *float64 `json:"s-max-age,omitempty"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*c = CacheControl(wire.alias)
	if c.SMaxAge == nil {
		c.SMaxAge = wire.SMaxAgeAlt
	}
	return nil
}

type GeneralOpenAIRequest struct {
	Messages         []Message       `json:"messages,omitempty"`
	Model            string          `json:"model,omitempty"`
	FrequencyPenalty float64         `json:"frequency_penalty,omitempty"`
	LogitBias        map[string]any  `json:"logit_bias,omitempty"`
	MaxTokens        int             `json:"max_tokens,omitempty"`
	N                int             `json:"n,omitempty"`
	PresencePenalty  float64         `json:"presence_penalty,omitempty"`
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
	Seed             *int64          `json:"seed,omitempty"`
	Stream           bool            `json:"stream,omitempty"`
	StreamOptions    *StreamOptions  `json:"stream_options,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	TopK             int             `json:"top_k,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	ToolChoice       any             `json:"tool_choice,omitempty"`
	User             string          `json:"user,omitempty"`
	Prompt           any             `json:"prompt,omitempty"`
	Input            any             `json:"input,omitempty"`
	EncodingFormat   string          `json:"encoding_format,omitempty"`
	Stop             any             `json:"stop,omitempty"`
	ReasoningEffort  string          `json:"reasoning_effort,omitempty"`

	// litegate only, stripped before the request reaches a provider.
	Cache    *CacheControl  `json:"cache,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IncludeUsage reports whether a streaming caller asked for the usage chunk.
func (r GeneralOpenAIRequest) IncludeUsage() bool {
	return r.StreamOptions != nil && r.StreamOptions.IncludeUsage
}

// MetadataString returns metadata[key] when it is a string.
func (r GeneralOpenAIRequest) MetadataString(key string) string {
	if r.Metadata == nil {
		return ""
	}
	if s, ok := r.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// MetadataGroups returns metadata[key] when it is a list of string lists,
// the shape of "caching_groups".
func (r GeneralOpenAIRequest) MetadataGroups(key string) [][]string {
	if r.Metadata == nil {
		return nil
	}
	switch v := r.Metadata[key].(type) {
	case [][]string:
		return v
	case []any:
		groups := make([][]string, 0, len(v))
		for _, item := range v {
			members, ok := item.([]any)
			if !ok {
				continue
			}
			group := make([]string, 0, len(members))
			for _, m := range members {
				if s, ok := m.(string); ok {
					group = append(group, s)
				}
			}
			groups = append(groups, group)
		}
		return groups
	}
	return nil
}

func (r GeneralOpenAIRequest) ParseInput() []string {
	if r.Input == nil {
		return nil
	}
	var input []string
	switch v := r.Input.(type) {
	case string:
		input = []string{v}
	case []any:
		input = make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				input = append(input, str)
			}
		}
	}
	return input
}

// StopSequences normalises "stop" which may be a string or a list.
func (r GeneralOpenAIRequest) StopSequences() []string {
	switch v := r.Stop.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		stops := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				stops = append(stops, s)
			}
		}
		return stops
	}
	return nil
}
