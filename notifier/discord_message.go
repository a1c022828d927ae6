package notifier

import (
	"fmt"
	"strings"
	"time"
)

const (
	buyColor  = 0x00ff88
	sellColor = 0xff4444
	spacer    = "\u200b"
)

type webhookMessage struct {
	Content string  `json:"content"`
	Embeds  []embed `json:"embeds,omitempty"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Color       int          `json:"color"`
	Thumbnail   *embedImage  `json:"thumbnail,omitempty"`
	Fields      []embedField `json:"fields"`
	Footer      *embedFooter `json:"footer,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedImage struct {
	URL string `json:"url"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func (d *Discord) mention() string {
	if d.roleID == "" {
		return ""
	}
	return "<@&" + d.roleID + "> "
}

func (d *Discord) buildMessage(a *Alert) webhookMessage {
	if d.useEmbeds {
		return webhookMessage{Content: d.mention(), Embeds: []embed{d.buildEmbed(a)}}
	}
	return webhookMessage{Content: truncate(d.mention()+plainText(a), maxContentLen)}
}

func title(a *Alert) string {
	if a.Direction == Buy {
		return "🟢 **BUY DETECTED**"
	}
	return "🔴 **SELL DETECTED**"
}

func (d *Discord) buildEmbed(a *Alert) embed {
	color := sellColor
	if a.Direction == Buy {
		color = buyColor
	}
	observed := a.ObservedAt
	if observed.IsZero() {
		observed = d.now()
	}

	e := embed{
		Title:       title(a),
		Description: fmt.Sprintf("**[nad.fun Trade Alert](%s)**\n> %s (`%s`)", a.TokenURL, a.TokenName, a.TokenSymbol),
		URL:         a.TxURL,
		Color:       color,
		Fields: []embedField{
			{Name: "👤 Trader", Value: fmt.Sprintf("**%s**\n[`%s`](%s)", a.TraderName, a.Trader, a.TraderURL)},
			{Name: spacer, Value: spacer},
			{Name: "📊 Quantity", Value: "```" + a.Quantity + "```", Inline: true},
			{Name: "💰 Price (MON)", Value: "```" + a.Price + "```", Inline: true},
			{Name: "💵 Amount (MON)", Value: "```" + a.Amount + "```", Inline: true},
			{Name: spacer, Value: spacer},
			{Name: "💧 Liquidity", Value: "**" + a.Liquidity + "** MON", Inline: true},
			{Name: "📈 Market Cap", Value: "**" + a.MarketCap + "** MON", Inline: true},
			{Name: "⏰ Age", Value: "`" + a.Age + "`", Inline: true},
		},
		Timestamp: observed.UTC().Format(time.RFC3339),
	}
	if a.TokenImage != "" {
		e.Thumbnail = &embedImage{URL: a.TokenImage}
	}
	footer := observed.Format("15:04:05")
	if d.footer != "" {
		footer = d.footer + " • " + footer
	}
	e.Footer = &embedFooter{Text: footer}
	return e
}

// plainText USE_EMBEDS=false iken gönderilen düz metin
func plainText(a *Alert) string {
	var b strings.Builder
	b.WriteString(title(a) + "\n")
	fmt.Fprintf(&b, "%s (%s) %s\n", a.TokenName, a.TokenSymbol, a.TokenURL)
	fmt.Fprintf(&b, "👤 Trader: %s (%s)\n", a.TraderName, a.Trader)
	fmt.Fprintf(&b, "📊 Quantity: %s\n", a.Quantity)
	fmt.Fprintf(&b, "💰 Price: %s MON\n", a.Price)
	fmt.Fprintf(&b, "💵 Amount: %s MON\n", a.Amount)
	fmt.Fprintf(&b, "💧 Liquidity: %s MON\n", a.Liquidity)
	fmt.Fprintf(&b, "📈 Market Cap: %s MON\n", a.MarketCap)
	fmt.Fprintf(&b, "⏰ Age: %s\n", a.Age)
	if a.TxURL != "" {
		b.WriteString("🔗 " + a.TxURL)
	}
	return b.String()
}
