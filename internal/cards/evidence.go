package cards

import (
	"strconv"
	"strings"

	"github.com/plotforge/plotforge/internal/evidence"
)

// starWeightStep is how much each author star adds to a projected item's
// retrieval weight on top of the 1.0 baseline.
const starWeightStep = 0.5

// hardRuleMinStars is the star floor above which a world field counts as a
// binding rule rather than loose world color.
const hardRuleMinStars = 2

// EvidenceItems projects a card's fields into retrievable evidence. Each
// field becomes one item carrying the card and field names in its source and
// the author stars in its meta, weighted so starred fields outrank plain
// prose. Character fields project as character evidence; world fields
// project as world rules when starred enough to bind, world entities
// otherwise.
func EvidenceItems(card *Card) []evidence.Item {
	var items []evidence.Item
	for _, field := range card.Fields {
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		kind := evidence.KindCharacter
		if card.Kind == KindWorld {
			kind = evidence.KindWorldEntity
			if field.Stars >= hardRuleMinStars {
				kind = evidence.KindWorldRule
			}
		}

		text := card.Name + " " + strings.TrimSpace(field.Key) + ": " + value
		items = append(items, evidence.Item{
			ProjectID: card.ProjectID,
			Kind:      kind,
			Text:      text,
			Weight:    1.0 + starWeightStep*float64(field.Stars),
			Source: map[string]string{
				"origin": "card",
				"card":   card.Name,
				"field":  field.Key,
			},
			Meta: map[string]string{"stars": strconv.Itoa(field.Stars)},
		})
	}
	return items
}
