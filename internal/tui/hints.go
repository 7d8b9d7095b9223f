package tui

import "strings"

// Hint represents a single keybind hint for display.
type Hint struct {
	Key  string // Display key (e.g., "j/k", "Enter")
	Desc string // Short description (e.g., "move", "save")
}

// renderHint renders a single hint as "key:desc" with styling.
func (a App) renderHint(h Hint) string {
	return a.styles.HintKey.Render(h.Key) + ":" + a.styles.HintDesc.Render(h.Desc)
}

// renderHints renders hints in horizontal format for bottom bar: "j/k:move h/l:page a:add"
func (a App) renderHints(hints HintSet) string {
	allHints := hints.All()
	if len(allHints) == 0 {
		return ""
	}

	parts := make([]string, len(allHints))
	for i, h := range allHints {
		parts[i] = a.renderHint(h)
	}
	return strings.Join(parts, " ")
}

// renderHintsInline renders hints in inline format for screens: "Enter sign in  q quit"
func (a App) renderHintsInline(hints []Hint) string {
	if len(hints) == 0 {
		return ""
	}

	parts := make([]string, len(hints))
	for i, h := range hints {
		parts[i] = a.styles.HintKey.Render(h.Key) + " " + a.styles.HintDesc.Render(h.Desc)
	}
	return strings.Join(parts, "  ")
}

// HintSet is an ordered collection of hints by group.
type HintSet struct {
	Nav    []Hint // Navigation hints (j/k, h/l)
	Edit   []Hint // Edit hints (a, d)
	Action []Hint // Action hints (y, o, /)
	System []Hint // System hints (S, q, Esc)
}

// All returns all hints flattened in display order: Nav + Action + Edit + System.
func (h HintSet) All() []Hint {
	result := make([]Hint, 0, len(h.Nav)+len(h.Action)+len(h.Edit)+len(h.System))
	result = append(result, h.Nav...)
	result = append(result, h.Action...)
	result = append(result, h.Edit...)
	result = append(result, h.System...)
	return result
}

// getContextualHints returns the appropriate hints for the current focus.
func (a App) getContextualHints() HintSet {
	switch a.focus {
	case focusTitle, focusURL:
		return HintSet{
			Action: []Hint{{Key: "Tab", Desc: "next field"}, {Key: "Enter", Desc: "save"}},
			System: []Hint{{Key: "Esc", Desc: "back"}},
		}
	case focusFilter:
		return HintSet{
			Action: []Hint{{Key: "Enter", Desc: "keep filter"}},
			System: []Hint{{Key: "Esc", Desc: "clear"}},
		}
	}

	hints := HintSet{
		Nav: []Hint{{Key: "j/k", Desc: "move"}},
		Edit: []Hint{
			{Key: "a", Desc: "add"},
		},
		System: []Hint{
			{Key: "S", Desc: "sign out"},
			{Key: "q", Desc: "quit"},
		},
	}
	if a.pages().TotalPages() > 1 {
		hints.Nav = append(hints.Nav, Hint{Key: "h/l", Desc: "page"})
	}
	if len(a.visible()) > 0 {
		hints.Action = []Hint{
			{Key: "o", Desc: "open"},
			{Key: "y", Desc: "copy"},
			{Key: "/", Desc: "filter"},
		}
		hints.Edit = append(hints.Edit, Hint{Key: "d", Desc: "delete"})
	}
	return hints
}

// signInHints are shown on the sign-in screen.
func (a App) signInHints() []Hint {
	if a.signingIn {
		return []Hint{
			{Key: "Esc", Desc: "cancel"},
			{Key: "q", Desc: "quit"},
		}
	}
	return []Hint{
		{Key: "Enter", Desc: "sign in"},
		{Key: "q", Desc: "quit"},
	}
}
