package notifier

import (
	"errors"
	"fmt"
	"strings"

	"publish-notifier/internal/domain/entity"
)

const (
	// maxTags is how many tags a context block lists.
	maxTags = 5

	// maxTitleLength keeps a linked title from swallowing the whole section.
	maxTitleLength = 250
)

// ErrUnsupportedCategory is returned when no formatter exists for a category.
var ErrUnsupportedCategory = errors.New("unsupported content category")

type formatFunc func(f *Formatter, action entity.Action, c *entity.Content) Message

// formatters maps each category to its Block Kit layout.
var formatters = map[entity.Category]formatFunc{
	entity.CategoryWorkflow: formatWorkflow,
	entity.CategoryPlugin:   formatPlugin,
	entity.CategoryArticle:  formatArticle,
	entity.CategoryNews:     formatNews,
}

// categoryStyle holds the presentation constants of a category.
type categoryStyle struct {
	emoji string
	noun  string
	path  string
}

var styles = map[entity.Category]categoryStyle{
	entity.CategoryWorkflow: {emoji: ":gear:", noun: "workflow", path: "workflows"},
	entity.CategoryPlugin:   {emoji: ":jigsaw:", noun: "plugin", path: "plugins"},
	entity.CategoryArticle:  {emoji: ":memo:", noun: "article", path: "articles"},
	entity.CategoryNews:     {emoji: ":newspaper:", noun: "news", path: "news"},
}

// Formatter turns content records into Slack messages.
// It only holds the public site URL and is safe for concurrent use.
type Formatter struct {
	baseURL string
}

// NewFormatter returns a Formatter that links to pages under siteBaseURL.
func NewFormatter(siteBaseURL string) *Formatter {
	return &Formatter{baseURL: strings.TrimRight(siteBaseURL, "/")}
}

// Format builds the message announcing action on c.
func (f *Formatter) Format(action entity.Action, c *entity.Content) (Message, error) {
	if c == nil {
		return Message{}, errors.New("format: content is nil")
	}
	fn, ok := formatters[c.Category]
	if !ok {
		return Message{}, fmt.Errorf("format %q: %w", c.Category, ErrUnsupportedCategory)
	}
	return fn(f, action, c), nil
}

// PublicURL returns the page URL of a record.
func (f *Formatter) PublicURL(category entity.Category, slug string) string {
	return f.baseURL + "/" + styles[category].path + "/" + slug
}

// NewsIndexURL is the "view all" page for aggregated news.
func (f *Formatter) NewsIndexURL() string {
	return f.baseURL + "/" + styles[entity.CategoryNews].path
}

func formatWorkflow(f *Formatter, action entity.Action, c *entity.Content) Message {
	url := f.PublicURL(c.Category, c.Slug)
	blocks := []Block{
		headerBlock(headerText(c.Category, action)),
		withImage(sectionBlock(titleSection(url, c)), c),
		actionsBlock(button("View workflow", url, "view_workflow", true)),
	}
	if tb, ok := tagsBlock(c.Tags); ok {
		blocks = append(blocks, tb)
	}
	return Message{Blocks: blocks, Text: fallbackText(c.Category, action, c.Title)}
}

func formatPlugin(f *Formatter, action entity.Action, c *entity.Content) Message {
	url := f.PublicURL(c.Category, c.Slug)
	buttons := []Element{button("View plugin", url, "view_plugin", true)}
	if c.SecondaryURL != "" {
		buttons = append(buttons, button("View repository", c.SecondaryURL, "view_repository", false))
	}
	blocks := []Block{
		headerBlock(headerText(c.Category, action)),
		withImage(sectionBlock(titleSection(url, c)), c),
		actionsBlock(buttons...),
	}
	if tb, ok := tagsBlock(c.Tags); ok {
		blocks = append(blocks, tb)
	}
	return Message{Blocks: blocks, Text: fallbackText(c.Category, action, c.Title)}
}

func formatArticle(f *Formatter, action entity.Action, c *entity.Content) Message {
	url := f.PublicURL(c.Category, c.Slug)
	blocks := []Block{
		headerBlock(headerText(c.Category, action)),
		withImage(sectionBlock(titleSection(url, c)), c),
		actionsBlock(button("Read article", url, "view_article", true)),
	}

	var footer []string
	if c.Author != "" {
		footer = append(footer, "by "+escapeMrkdwn(c.Author))
	}
	if tags := tagTokens(c.Tags); tags != "" {
		footer = append(footer, tags)
	}
	if len(footer) > 0 {
		blocks = append(blocks, contextBlock(footer...))
	}
	return Message{Blocks: blocks, Text: fallbackText(c.Category, action, c.Title)}
}

func formatNews(f *Formatter, action entity.Action, c *entity.Content) Message {
	url := f.PublicURL(c.Category, c.Slug)
	buttons := []Element{button("Read on site", url, "view_news", true)}
	if c.SecondaryURL != "" {
		buttons = append(buttons, button("Original source", c.SecondaryURL, "view_source", false))
	}
	blocks := []Block{
		headerBlock(headerText(c.Category, action)),
		withImage(sectionBlock(titleSection(url, c)), c),
		actionsBlock(buttons...),
	}
	if c.Author != "" {
		// news records carry the source name in Author
		blocks = append(blocks, contextBlock("_"+escapeMrkdwn(c.Author)+"_"))
	}
	return Message{Blocks: blocks, Text: fallbackText(c.Category, action, c.Title)}
}

func headerText(category entity.Category, action entity.Action) string {
	s := styles[category]
	noun := s.noun
	if category == entity.CategoryNews {
		noun = "news item"
	}
	switch action {
	case entity.ActionUpdated:
		return fmt.Sprintf("%s %s updated", s.emoji, capitalize(noun))
	case entity.ActionDeleted:
		return fmt.Sprintf("%s %s removed", s.emoji, capitalize(noun))
	default:
		return fmt.Sprintf("%s New %s published", s.emoji, noun)
	}
}

func fallbackText(category entity.Category, action entity.Action, title string) string {
	label := strings.TrimSpace(strings.TrimPrefix(headerText(category, action), styles[category].emoji))
	return TruncateText(label+": "+title, maxFallbackLength)
}

// titleSection renders "*<url|title>*" followed by the excerpt.
func titleSection(url string, c *entity.Content) string {
	text := "*" + link(url, TruncateText(c.Title, maxTitleLength)) + "*"
	if ex := excerpt(c.Summary, c.Body); ex != "" {
		text += "\n" + escapeMrkdwn(ex)
	}
	return text
}

func withImage(b Block, c *entity.Content) Block {
	if c.ImageURL == "" {
		return b
	}
	b.Accessory = &ImageAccessory{Type: elementImage, ImageURL: c.ImageURL, AltText: TruncateText(c.Title, maxAltTextLength)}
	return b
}

func tagsBlock(tags []string) (Block, bool) {
	tokens := tagTokens(tags)
	if tokens == "" {
		return Block{}, false
	}
	return contextBlock(tokens), true
}

// tagTokens renders the first five non-empty tags as inline code.
func tagTokens(tags []string) string {
	out := make([]string, 0, maxTags)
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, "`", ""))
		if t == "" {
			continue
		}
		out = append(out, "`"+escapeMrkdwn(t)+"`")
		if len(out) == maxTags {
			break
		}
	}
	return strings.Join(out, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
