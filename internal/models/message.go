package models

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// ImageRef points at an image held by the chat transport. The bytes are
// fetched only when an external call needs them.
type ImageRef struct {
	FileID string `json:"file_id,omitempty"`
	URL    string `json:"url,omitempty"`
}

// Ref is the value stored as the session's pending image reference.
func (r ImageRef) Ref() string {
	if r.URL != "" {
		return r.URL
	}
	return r.FileID
}

type InboundMessage struct {
	SessionKey string    `json:"chat_id"`
	Text       string    `json:"text,omitempty"`
	Image      *ImageRef `json:"image,omitempty"`
}

func (m InboundMessage) ContentType() ContentType {
	if m.Image != nil && m.Image.Ref() != "" {
		return ContentImage
	}
	return ContentText
}

// Reply is one outbound chat message; Options render as quick-reply buttons.
type Reply struct {
	Text    string   `json:"text"`
	Options []string `json:"options,omitempty"`
}
