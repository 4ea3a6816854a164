package home

import (
	"charm.land/lipgloss/v2"

	"github.com/fundprep/examgen/internal/ui/theme"
)

const bannerArt = `
 ███████╗██╗  ██╗ █████╗ ███╗   ███╗ ██████╗ ███████╗███╗   ██╗
 ██╔════╝╚██╗██╔╝██╔══██╗████╗ ████║██╔════╝ ██╔════╝████╗  ██║
 █████╗   ╚███╔╝ ███████║██╔████╔██║██║  ███╗█████╗  ██╔██╗ ██║
 ██╔══╝   ██╔██╗ ██╔══██║██║╚██╔╝██║██║   ██║██╔══╝  ██║╚██╗██║
 ███████╗██╔╝ ██╗██║  ██║██║ ╚═╝ ██║╚██████╔╝███████╗██║ ╚████║
 ╚══════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚═╝ ╚═════╝ ╚══════╝╚═╝  ╚═══╝`

const bannerCompact = "E X A M G E N"

// bannerWidth is the widest row of bannerArt.
const bannerWidth = 63

// renderBanner returns the banner in the primary color, or the compact
// form when the terminal is narrower than the art.
func renderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < bannerWidth+2 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
