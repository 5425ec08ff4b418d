package broker

import (
	"fmt"
	"math"
	"strings"

	"github.com/appcourier/appcourier/internal/domain"
)

// Message rendering for the chat side. Everything here is presentation only;
// the load-bearing piece is that list numbering uses FormatOptionLabel, the
// same function the vote parser understands.

const progressBarCells = 20

func stars(score float64) string {
	n := int(math.Round(score))
	if n < 0 {
		n = 0
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("⭐", n)
}

func renderSearchList(candidates []domain.CatalogCandidate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📱 Found %d apps:\n\n", len(candidates))

	for i, c := range candidates {
		b.WriteString(FormatOptionLabel(i+1, c))
		b.WriteByte('\n')
		if c.InstallCount != "" {
			fmt.Fprintf(&b, "   ⬇️ %s\n", c.InstallCount)
		}
		if c.SizeHint != "" {
			fmt.Fprintf(&b, "   💾 %s\n", c.SizeHint)
		}
	}

	b.WriteString("\n✍️ Reply with the number of the app to download.\n")
	b.WriteString("⏱️ This list expires in 5 minutes.")
	return b.String()
}

func renderAppInfo(d *domain.AppDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📱 *%s*\n\n", d.Title)

	if d.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", d.Summary)
	}
	if d.RatingScore > 0 {
		fmt.Fprintf(&b, "⭐ Rating: %s %.1f/5\n", stars(d.RatingScore), d.RatingScore)
	}
	if d.InstallCount != "" {
		fmt.Fprintf(&b, "⬇️ Installs: %s\n", d.InstallCount)
	}
	if d.Developer != "" {
		fmt.Fprintf(&b, "🏢 Developer: %s\n", d.Developer)
	}
	if d.Version != "" {
		fmt.Fprintf(&b, "🔖 Version: %s\n", d.Version)
	}
	if d.SizeHint != "" {
		fmt.Fprintf(&b, "💾 Size: %s\n", d.SizeHint)
	}
	if d.Free {
		b.WriteString("💰 Price: free\n")
	} else if d.Price != "" {
		fmt.Fprintf(&b, "💰 Price: %s\n", d.Price)
	}

	b.WriteString("\n🔄 Preparing the download...")
	return b.String()
}

func renderProgress(pct int, kind domain.ArtifactKind) string {
	filled := pct / (100 / progressBarCells)
	if filled > progressBarCells {
		filled = progressBarCells
	}
	bar := strings.Repeat("▓", filled) + strings.Repeat("░", progressBarCells-filled)
	return fmt.Sprintf("⬇️ Downloading... %d%%\n\n%s\n\n📦 %s", pct, bar, strings.ToUpper(string(kind)))
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
