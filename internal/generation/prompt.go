package generation

import (
	"fmt"
	"strings"

	"github.com/tbourn/go-ideas-backend/internal/sysutil"
)

// TitleHints are the title templates offered to the model. The hint for a
// slot is TitleHints[SlotIndex % len(TitleHints)], so a batch walks through
// them in order and reruns of the same batch ask for the same shapes.
var TitleHints = []string{
	"How I <achieved result> in <timeframe>",
	"<Number> mistakes to avoid when <activity>",
	"The truth about <common belief>",
	"Stop doing <habit> if you want <outcome>",
	"What nobody tells you about <topic>",
	"<Topic>: beginner vs. expert",
	"I tried <thing> for <duration>, here is what happened",
	"The fastest way to <goal>",
}

const systemPrompt = `You write short-form video ideas. Reply with ONE JSON object and nothing else.
Schema:
{"title": string, "outline": [string, ...], "midMention": string, "endMention": string,
 "thumbnailIdea": string, "interactionQuestion": string,
 "category": string, "subcategory": string, "lengthBucket": string}
The outline must contain 3 to 7 short beats in order.`

// BuildPrompt returns the system and user messages for p.
func BuildPrompt(p Params) (system, user string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Create one content idea.\n")
	fmt.Fprintf(&b, "Category: %s\n", sysutil.FirstNonEmpty(p.Category, "general"))
	if p.Subcategory != "" {
		fmt.Fprintf(&b, "Subcategory: %s\n", p.Subcategory)
	}
	if p.Pillar != "" {
		fmt.Fprintf(&b, "Content pillar: %s\n", p.Pillar)
	}
	if p.Focus != "" {
		fmt.Fprintf(&b, "Focus: %s\n", p.Focus)
	}
	fmt.Fprintf(&b, "Length: %s\n", sysutil.FirstNonEmpty(p.LengthBucket, "short"))
	if p.Style != "" {
		fmt.Fprintf(&b, "Style: %s\n", p.Style)
	}
	if p.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", p.Tone)
	}
	if !p.Date.IsZero() {
		fmt.Fprintf(&b, "Publishing date: %s\n", p.Date.Format("Monday, 2 January 2006"))
	}
	fmt.Fprintf(&b, "Title template hint (adapt freely): %s\n", TitleHint(p.SlotIndex))
	fmt.Fprintf(&b, "Echo category, subcategory and lengthBucket exactly as given.")
	return systemPrompt, b.String()
}

// TitleHint returns the template hint for slot index i.
func TitleHint(i int) string {
	if i < 0 {
		i = -i
	}
	return TitleHints[i%len(TitleHints)]
}
