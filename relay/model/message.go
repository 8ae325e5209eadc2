package model

type Message struct {
	Role             string  `json:"role,omitempty"`
	Content          any     `json:"content,omitempty"`
	Name             *string `json:"name,omitempty"`
	ToolCalls        []Tool  `json:"tool_calls,omitempty"`
	ToolCallId       string  `json:"tool_call_id,omitempty"`
	ReasoningContent string  `json:"reasoning_content,omitempty"`
}

func (m Message) IsStringContent() bool {
	_, ok := m.Content.(string)
	return ok
}

func (m Message) StringContent() string {
	content, ok := m.Content.(string)
	if ok {
		return content
	}
	contentList, ok := m.Content.([]any)
	if ok {
		var contentStr string
		for _, contentItem := range contentList {
			contentMap, ok := contentItem.(map[string]any)
			if !ok {
				continue
			}
			if contentMap["type"] == ContentTypeText {
				if subStr, ok := contentMap["text"].(string); ok {
					contentStr += subStr
				}
			}
		}
		return contentStr
	}
	return ""
}

func (m Message) ParseContent() []MessageContent {
	var contentList []MessageContent
	content, ok := m.Content.(string)
	if ok {
		contentList = append(contentList, MessageContent{
			Type: ContentTypeText,
			Text: content,
		})
		return contentList
	}
	anyList, ok := m.Content.([]any)
	if !ok {
		return nil
	}
	for _, contentItem := range anyList {
		contentMap, ok := contentItem.(map[string]any)
		if !ok {
			continue
		}
		part := MessageContent{CacheControl: parseCacheControl(contentMap["cache_control"])}
		switch contentMap["type"] {
		case ContentTypeText:
			subStr, ok := contentMap["text"].(string)
			if !ok {
				continue
			}
			part.Type = ContentTypeText
			part.Text = subStr
		case ContentTypeImageURL:
			subObj, ok := contentMap["image_url"].(map[string]any)
			if !ok {
				continue
			}
			url, _ := subObj["url"].(string)
			detail, _ := subObj["detail"].(string)
			part.Type = ContentTypeImageURL
			part.ImageURL = &ImageURL{Url: url, Detail: detail}
		default:
			continue
		}
		contentList = append(contentList, part)
	}
	return contentList
}

func parseCacheControl(v any) *PromptCacheControl {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	cc := &PromptCacheControl{}
	cc.Type, _ = m["type"].(string)
	cc.TTL, _ = m["ttl"].(string)
	if cc.Type == "" {
		cc.Type = "ephemeral"
	}
	return cc
}

// StripPromptCacheControl removes Anthropic style cache_control markers from
// content parts, for providers that reject unknown fields.
func StripPromptCacheControl(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, message := range messages {
		out[i] = message
		parts, ok := message.Content.([]any)
		if !ok {
			continue
		}
		cleaned := make([]any, len(parts))
		for j, part := range parts {
			partMap, ok := part.(map[string]any)
			if !ok || partMap["cache_control"] == nil {
				cleaned[j] = part
				continue
			}
			copied := make(map[string]any, len(partMap))
			for k, v := range partMap {
				if k != "cache_control" {
					copied[k] = v
				}
			}
			cleaned[j] = copied
		}
		out[i].Content = cleaned
	}
	return out
}

type ImageURL struct {
	Url    string `json:"url,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// PromptCacheControl marks a prompt-cache breakpoint (Anthropic "cache_control").
type PromptCacheControl struct {
	Type string `json:"type"`
	TTL  string `json:"ttl,omitempty"` // "5m" or "1h"
}

type MessageContent struct {
	Type         string              `json:"type,omitempty"`
	Text         string              `json:"text"`
	ImageURL     *ImageURL           `json:"image_url,omitempty"`
	CacheControl *PromptCacheControl `json:"cache_control,omitempty"`
}
