package layout

// CalculateVisibleItems computes how many bookmarks fit in the list area.
// Returns at least MinItems.
func CalculateVisibleItems(terminalHeight int, cfg ListConfig) int {
	lines := terminalHeight - cfg.HeightReduction
	per := cfg.LinesPerItem
	if per < 1 {
		per = 1
	}
	items := lines / per
	if items < cfg.MinItems {
		return cfg.MinItems
	}
	return items
}

// CalculateItemWidth computes the width available for item content.
func CalculateItemWidth(terminalWidth int, cfg ListConfig) int {
	width := terminalWidth - cfg.ContentPadding
	if width < 1 {
		return 1
	}
	return width
}

// CalculateViewportOffset calculates the scroll offset needed to keep the
// selected item visible within the viewport.
func CalculateViewportOffset(selected, total, viewportHeight int) int {
	if total <= viewportHeight {
		return 0
	}

	// Keep selection roughly centered, but clamp to valid range
	offset := selected - viewportHeight/2
	if offset < 0 {
		offset = 0
	}

	maxOffset := total - viewportHeight
	if offset > maxOffset {
		offset = maxOffset
	}

	return offset
}
