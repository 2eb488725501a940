package generation

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-ideas-backend/internal/sysutil"
)

var fallbackTitles = []string{
	"%d Things Nobody Tells You About %s",
	"The Beginner's Guide to %[2]s",
	"Stop Making These %[1]d %[2]s Mistakes",
	"What I Wish I Knew About %[2]s",
	"%[2]s in 60 Seconds",
	"The Truth About %[2]s",
	"How to Get Started With %[2]s Today",
}

// Fallback builds a schema-valid payload from templates. It is a pure
// function of p: no network, no randomness, and the outline always has at
// least three items.
func Fallback(p Params) Payload {
	caser := cases.Title(language.English)
	topic := strings.TrimSpace(sysutil.FirstNonEmpty(p.Focus, p.Subcategory, p.Pillar, p.Category, "your niche"))
	topicTitle := caser.String(topic)
	pillar := strings.TrimSpace(sysutil.FirstNonEmpty(p.Pillar, p.Category, "this topic"))

	idx := p.SlotIndex
	if idx < 0 {
		idx = -idx
	}
	count := 3 + idx%3
	title := fmt.Sprintf(fallbackTitles[idx%len(fallbackTitles)], count, topicTitle)

	return Payload{
		Title: title,
		Outline: []string{
			fmt.Sprintf("Hook: open with the most common misconception about %s.", topic),
			fmt.Sprintf("Context: explain why %s matters for your audience right now.", topic),
			fmt.Sprintf("Key points: walk through %d practical takeaways on %s.", count, pillar),
			"Example: show one concrete before/after.",
			"Wrap-up: summarize and invite viewers to try it.",
		},
		MidMention:          fmt.Sprintf("If %s is on your mind, follow for more on %s.", topic, pillar),
		EndMention:          "Save this for later and share it with someone who needs it.",
		ThumbnailIdea:       fmt.Sprintf("Bold text \"%s\" over a close-up reaction shot.", topicTitle),
		InteractionQuestion: fmt.Sprintf("What is your biggest question about %s?", topic),
		Category:            p.Category,
		Subcategory:         p.Subcategory,
		LengthBucket:        p.LengthBucket,
	}
}
