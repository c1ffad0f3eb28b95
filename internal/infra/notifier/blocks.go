package notifier

import (
	"encoding/json"
	"fmt"
)

// Block Kit type names.
const (
	blockHeader  = "header"
	blockSection = "section"
	blockActions = "actions"
	blockContext = "context"

	textPlain    = "plain_text"
	textMarkdown = "mrkdwn"

	elementButton = "button"
	elementImage  = "image"
)

// Slack Block Kit limits
const (
	maxBlockTextLength  = 3000
	maxHeaderTextLength = 150
	maxFallbackLength   = 150
	maxButtonTextLength = 75
	maxAltTextLength    = 2000
)

// Message is the JSON body POSTed to an incoming webhook: {"blocks": [...], "text": "..."}.
// Text is the flat fallback shown in push notifications.
type Message struct {
	Blocks []Block `json:"blocks"`
	Text   string  `json:"text"`
}

// PayloadSize returns the byte size of the serialized message.
func (m Message) PayloadSize() (int, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return 0, fmt.Errorf("marshal message: %w", err)
	}
	return len(b), nil
}

// Block represents a Slack Block Kit block.
type Block struct {
	Type      string          `json:"type"`
	Text      *TextObject     `json:"text,omitempty"`
	Accessory *ImageAccessory `json:"accessory,omitempty"`
	Elements  []Element       `json:"elements,omitempty"`
}

// TextObject represents a text object in Slack Block Kit.
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// ImageAccessory is the thumbnail shown to the right of a section.
type ImageAccessory struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
	AltText  string `json:"alt_text"`
}

// Element is either a context text element or an actions button.
// Buttons carry URL and Style; context elements only Type and Text.
type Element struct {
	Type     string
	Text     string
	URL      string
	Style    string
	ActionID string
}

type buttonJSON struct {
	Type     string     `json:"type"`
	Text     TextObject `json:"text"`
	URL      string     `json:"url,omitempty"`
	Style    string     `json:"style,omitempty"`
	ActionID string     `json:"action_id,omitempty"`
}

// MarshalJSON renders buttons with a nested plain_text label.
func (e Element) MarshalJSON() ([]byte, error) {
	if e.Type == elementButton {
		return json.Marshal(buttonJSON{
			Type:     e.Type,
			Text:     TextObject{Type: textPlain, Text: e.Text, Emoji: true},
			URL:      e.URL,
			Style:    e.Style,
			ActionID: e.ActionID,
		})
	}
	return json.Marshal(TextObject{Type: e.Type, Text: e.Text})
}

func headerBlock(text string) Block {
	return Block{
		Type: blockHeader,
		Text: &TextObject{Type: textPlain, Text: TruncateText(text, maxHeaderTextLength), Emoji: true},
	}
}

func sectionBlock(text string) Block {
	return Block{
		Type: blockSection,
		Text: &TextObject{Type: textMarkdown, Text: TruncateText(text, maxBlockTextLength)},
	}
}

func contextBlock(texts ...string) Block {
	elements := make([]Element, 0, len(texts))
	for _, t := range texts {
		elements = append(elements, Element{Type: textMarkdown, Text: TruncateText(t, maxBlockTextLength)})
	}
	return Block{Type: blockContext, Elements: elements}
}

func button(label, url, actionID string, primary bool) Element {
	e := Element{
		Type:     elementButton,
		Text:     TruncateText(label, maxButtonTextLength),
		URL:      url,
		ActionID: actionID,
	}
	if primary {
		e.Style = "primary"
	}
	return e
}

func actionsBlock(buttons ...Element) Block {
	return Block{Type: blockActions, Elements: buttons}
}
