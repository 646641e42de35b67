// Package narrate turns a decision into a short trader's note.
package narrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"pivot-trader/internal/models"
	"pivot-trader/pkg/utils"
)

// Narrator renders a decision as text.
type Narrator interface {
	Narrate(ctx context.Context, symbol string, d *models.Decision) (string, error)
}

// Pick deterministically chooses one option for a key.
func Pick(key string, options []string) string {
	if len(options) == 0 {
		return ""
	}
	return options[xxhash.Sum64String(key)%uint64(len(options))]
}

var horizonNames = map[models.Horizon]string{
	models.HorizonShort: "short term",
	models.HorizonMid:   "mid term",
	models.HorizonLong:  "long term",
}

var intros = map[models.Horizon][]string{
	models.HorizonShort: {
		"At moments like this I only take trades from the edge, no rushing.",
		"Precision matters more than speed right now.",
		"When the market runs without a breather, it often ends in a sharp snap back.",
	},
	models.HorizonMid: {
		"The market is testing its strength. No hurry.",
		"I'd rather wait for a reset near the pivot zone.",
		"Patience and discipline win here.",
	},
	models.HorizonLong: {
		"I don't buy under the ceiling. I wait for the odds to be on our side.",
		"Let the market exhale and meet it lower, in a better range.",
		"The quality of the entry matters more than being early.",
	},
}

var tails = []string{
	"If the scenario confirms, we work it. If it breaks, we exit without hesitation.",
	"No rush: the market will offer a level, our job is to wait for it.",
	"The plan is set. Now we watch and act on facts.",
}

// TemplateNarrator renders decisions from fixed phrase lists.
type TemplateNarrator struct{}

// NewTemplateNarrator creates a template narrator.
func NewTemplateNarrator() *TemplateNarrator {
	return &TemplateNarrator{}
}

// Narrate never fails; the error is always nil.
func (TemplateNarrator) Narrate(_ context.Context, symbol string, d *models.Decision) (string, error) {
	return Render(symbol, d), nil
}

// Render builds the template narration for a decision. Phrase choice depends
// only on the symbol, horizon and price.
func Render(symbol string, d *models.Decision) string {
	hz := horizonNames[d.Horizon]
	if hz == "" {
		hz = strings.ToLower(string(d.Horizon))
	}
	price := utils.FormatPrice(d.Price)

	intro := Pick(symbol+hz+price, intros[d.Horizon])
	tail := Pick(hz+symbol, tails)

	var b strings.Builder
	fmt.Fprintf(&b, "%s | %s\n", symbol, hz)
	fmt.Fprintf(&b, "Current price: %s\n\n", price)
	if intro != "" {
		b.WriteString(intro + "\n")
	}
	if line := contextLine(d); line != "" {
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(planBlock("Plan", d.Base))
	b.WriteString("\n")
	b.WriteString(planBlock("Alternative", d.Alt))
	b.WriteString("\n\n")
	b.WriteString(tail)
	return b.String()
}

func planBlock(title string, p models.TradePlan) string {
	if p.Action == models.ActionWait || !p.IsActionable() {
		return title + ":\n-> WAIT"
	}
	parts := []string{
		fmt.Sprintf("%s: %s", title, p.Action),
		"entry: " + utils.FormatPrice(p.Entry),
		"target 1: " + utils.FormatPrice(p.TP1),
		"target 2: " + utils.FormatPrice(p.TP2),
		"stop: " + utils.FormatPrice(p.SL),
	}
	return strings.Join(parts, " | ")
}

func contextLine(d *models.Decision) string {
	ctx := d.Context
	if !ctx.Overheat {
		return ""
	}
	where := "stretched"
	if ctx.AtResistance {
		where = "stretched into resistance"
	}
	return fmt.Sprintf("Trend is %s (%d Heikin-Ashi bars, %d histogram bars); pullback zone %s-%s.",
		where, ctx.HAStreak, ctx.HistStreak,
		utils.FormatPrice(ctx.PullbackZone[0]), utils.FormatPrice(ctx.PullbackZone[1]))
}
