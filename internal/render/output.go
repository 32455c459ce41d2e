package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/joss/ducky/internal/domain"
	"github.com/joss/ducky/internal/redirect"
)

// Renderer formats ducky data as tables or plain lines.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. Pretty output uses color and rules.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

func (r *Renderer) title(sb *strings.Builder, s string, width int) {
	if !r.pretty {
		return
	}
	sb.WriteString(color.CyanString(s) + "\n")
	sb.WriteString(strings.Repeat("─", width) + "\n")
}

// Decision formats the outcome of one query.
func (r *Renderer) Decision(d redirect.Decision) string {
	var sb strings.Builder
	if !r.pretty {
		fmt.Fprintf(&sb, "%s\t%s\t%s\n", d.Action, d.Kind, d.URL)
		return sb.String()
	}

	switch d.Action {
	case redirect.ActionRedirect:
		fmt.Fprintf(&sb, "%s %s\n", color.GreenString("→"), d.URL)
	case redirect.ActionRepeat:
		fmt.Fprintf(&sb, "%s repeat %q\n", color.YellowString("↺"), d.Query)
	default:
		fmt.Fprintf(&sb, "%s no redirect (home page)\n", color.HiBlackString("○"))
	}

	meta := []string{"kind=" + d.Kind}
	if d.Bang != "" {
		meta = append(meta, "bang=!"+d.Bang)
	}
	if d.Island != "" {
		meta = append(meta, "island="+d.Island)
	}
	if d.Cached {
		meta = append(meta, "cached")
	}
	fmt.Fprintf(&sb, "  %s\n", color.HiBlackString(strings.Join(meta, " ")))
	return sb.String()
}

// Bangs formats a bang list.
func (r *Renderer) Bangs(list []domain.Bang) string {
	if len(list) == 0 {
		return "No bangs found"
	}
	var sb strings.Builder
	r.title(&sb, fmt.Sprintf("Bangs (%d)", len(list)), 60)
	for _, b := range list {
		if r.pretty {
			fmt.Fprintf(&sb, "%-12s %-28s %s\n",
				color.YellowString("!"+b.Token), Truncate(b.ShortLabel, 28), color.HiBlackString(b.Domain))
		} else {
			fmt.Fprintf(&sb, "%s\t%s\t%s\n", b.Token, b.ShortLabel, b.URLTemplate)
		}
	}
	return sb.String()
}

// Ducklings formats a duckling list.
func (r *Renderer) Ducklings(list []domain.Duckling) string {
	if len(list) == 0 {
		return "No ducklings configured"
	}
	var sb strings.Builder
	r.title(&sb, fmt.Sprintf("Ducklings (%d)", len(list)), 60)
	for _, d := range list {
		if r.pretty {
			fmt.Fprintf(&sb, "%-16s %s %s",
				color.YellowString(d.Pattern), color.HiBlackString("!"+d.BangCommand), d.TargetValue)
			if d.Description != "" {
				fmt.Fprintf(&sb, "  %s", color.HiBlackString(Truncate(d.Description, 40)))
			}
			sb.WriteString("\n")
		} else {
			fmt.Fprintf(&sb, "%s\t%s\t%s\n", d.Pattern, d.BangCommand, d.TargetValue)
		}
	}
	return sb.String()
}

// Islands formats an island list.
func (r *Renderer) Islands(list []domain.Island) string {
	if len(list) == 0 {
		return "No islands configured"
	}
	var sb strings.Builder
	r.title(&sb, fmt.Sprintf("Islands (%d)", len(list)), 60)
	for _, is := range list {
		prompt := strings.Join(strings.Fields(is.Prompt), " ")
		if r.pretty {
			fmt.Fprintf(&sb, "%-6s %-28s %s\n",
				color.YellowString(is.Key), is.Name, color.HiBlackString(Truncate(prompt, 40)))
		} else {
			fmt.Fprintf(&sb, "%s\t%s\t%s\n", is.Key, is.Name, Truncate(prompt, 60))
		}
	}
	return sb.String()
}

// Recent formats the recently used bang tokens, newest first.
func (r *Renderer) Recent(tokens []string) string {
	if len(tokens) == 0 {
		return "No recent bangs"
	}
	var sb strings.Builder
	r.title(&sb, "Recent Bangs", 30)
	for i, t := range tokens {
		if r.pretty {
			fmt.Fprintf(&sb, "%s !%s\n", color.HiBlackString(fmt.Sprintf("%d.", i+1)), t)
		} else {
			fmt.Fprintf(&sb, "%s\n", t)
		}
	}
	return sb.String()
}

// SuperCache formats the persistent cache state and its entries, oldest
// first.
func (r *Renderer) SuperCache(on bool, entries []domain.CacheEntry, ttl time.Duration, now time.Time) string {
	var sb strings.Builder
	r.title(&sb, "Super cache", 40)

	state := "disabled"
	if on {
		state = "enabled"
	}
	if r.pretty {
		if on {
			state = color.GreenString(state)
		} else {
			state = color.HiBlackString(state)
		}
	}
	fmt.Fprintf(&sb, "  %s entries=%d ttl=%s\n", state, len(entries), FormatDuration(ttl))

	for _, e := range entries {
		age := FormatDuration(e.Age(now))
		if r.pretty {
			fmt.Fprintf(&sb, "  %s %s -> %s %s\n",
				color.YellowString("!"+e.DefaultBang), Truncate(e.Query, 30),
				Truncate(e.URL, 50), color.HiBlackString(age))
		} else {
			fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\n", e.DefaultBang, e.Query, e.URL, age)
		}
	}
	return sb.String()
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
}
