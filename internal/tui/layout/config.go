package layout

// LayoutConfig holds all layout-related configuration values.
type LayoutConfig struct {
	List   ListConfig
	Screen ScreenConfig
	Input  InputConfig
	Text   TextConfig
}

// ListConfig holds bookmark list dimension configuration.
type ListConfig struct {
	// HeightReduction is subtracted from terminal height for list content.
	// Accounts for: app padding (1) + header (1) + blank (1) + form (2) +
	// notice (1) + list heading (1) + pagination bar (2) + help bar (2) = 11
	HeightReduction int

	// MinItems is the minimum number of bookmarks shown.
	MinItems int

	// LinesPerItem is the rendered height of one bookmark (title + url line).
	LinesPerItem int

	// ContentPadding is subtracted from terminal width for item rendering.
	// Accounts for app padding (2 each side) and the cursor gutter.
	ContentPadding int
}

// ScreenConfig holds sizing for the centered loading and sign-in screens.
type ScreenConfig struct {
	// WidthPercent is the box width as percentage of terminal width.
	WidthPercent int

	// MinWidth is the minimum box width in characters.
	MinWidth int

	// MaxWidth is the maximum box width in characters.
	MaxWidth int
}

// InputConfig holds text input configuration.
type InputConfig struct {
	// Character limits
	TitleCharLimit  int
	URLCharLimit    int
	FilterCharLimit int

	// Display widths
	FormWidth   int // Used for title and URL
	FilterWidth int
}

// TextConfig holds text truncation configuration.
type TextConfig struct {
	// Ellipsis is the string used to indicate truncation.
	Ellipsis string
}

// DefaultConfig returns the default layout configuration.
func DefaultConfig() LayoutConfig {
	return LayoutConfig{
		List: ListConfig{
			HeightReduction: 11,
			MinItems:        3,
			LinesPerItem:    2,
			ContentPadding:  6,
		},
		Screen: ScreenConfig{
			WidthPercent: 50,
			MinWidth:     40,
			MaxWidth:     64,
		},
		Input: InputConfig{
			TitleCharLimit:  100,
			URLCharLimit:    500,
			FilterCharLimit: 50,
			FormWidth:       50,
			FilterWidth:     30,
		},
		Text: TextConfig{
			Ellipsis: "...",
		},
	}
}
