package layout

// CalculateScreenWidth computes the width of a centered screen box as a
// percentage of terminal width, clamped between MinWidth and MaxWidth and
// never wider than the terminal minus a margin.
func CalculateScreenWidth(terminalWidth int, cfg ScreenConfig) int {
	width := terminalWidth * cfg.WidthPercent / 100

	if width < cfg.MinWidth {
		width = cfg.MinWidth
	}
	if width > cfg.MaxWidth {
		width = cfg.MaxWidth
	}

	// Don't exceed terminal width
	if width > terminalWidth-4 {
		width = terminalWidth - 4
	}
	if width < 1 {
		return 1
	}

	return width
}
