package cards

import "strings"

// Kind distinguishes character cards from world cards.
type Kind string

const (
	KindCharacter Kind = "character"
	KindWorld     Kind = "world"
)

// Field is a single card attribute. Stars (0..5) express how strongly the
// author wants the field honored; highly starred world fields become hard
// constraints during research.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Stars int    `json:"stars"`
}

// Card is an authored knowledge card about a character or a world element.
type Card struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Kind      Kind     `json:"kind"`
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases,omitempty"`
	Fields    []Field  `json:"fields,omitempty"`
}

// Matches reports whether the given name refers to this card, by exact name
// or alias.
func (c *Card) Matches(name string) bool {
	if name == c.Name {
		return true
	}
	for _, alias := range c.Aliases {
		if name == alias {
			return true
		}
	}
	return false
}

// MentionedIn reports whether the card's name or any alias occurs in text.
func (c *Card) MentionedIn(text string) bool {
	if c.Name != "" && strings.Contains(text, c.Name) {
		return true
	}
	for _, alias := range c.Aliases {
		if alias != "" && strings.Contains(text, alias) {
			return true
		}
	}
	return false
}
