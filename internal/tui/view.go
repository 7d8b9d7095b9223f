package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/tui/layout"
)

// renderView picks the screen for the current session state.
func (a App) renderView() string {
	switch {
	case a.authLoading:
		return a.renderLoadingScreen()
	case a.user == nil:
		return a.renderSignInScreen()
	}

	content := a.styles.App.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			a.renderHeader(),
			"",
			a.renderForm(),
			a.renderNotice(),
			a.renderList(),
			a.renderPagination(),
			a.renderHelpBar(),
		),
	)

	// Use Place to ensure exact terminal dimensions and prevent overflow
	return lipgloss.Place(a.width, a.height, lipgloss.Left, lipgloss.Top, content)
}

// renderHeader renders the app name and the signed-in user.
func (a App) renderHeader() string {
	title := a.styles.Title.Render("bmsync")
	if a.user == nil {
		return title
	}

	user := a.renderUser(*a.user)
	gap := a.width - 4 - lipgloss.Width(title) - lipgloss.Width(user)
	if gap < 1 {
		gap = 1
	}
	return title + strings.Repeat(" ", gap) + user
}

// renderUser renders an initial badge in place of the avatar, then the
// display name and email.
func (a App) renderUser(u model.User) string {
	name := u.DisplayName()
	badge := "?"
	if r := []rune(strings.TrimSpace(name)); len(r) > 0 {
		badge = strings.ToUpper(string(r[0]))
	}

	line := "(" + badge + ") " + name
	if u.Name != "" && u.Email != "" {
		line += " <" + u.Email + ">"
	}
	return a.styles.User.Render(line)
}

// renderForm renders the add bookmark inputs.
func (a App) renderForm() string {
	title := a.styles.Label.Render("Title") + a.form.Title.View()
	url := a.styles.Label.Render("URL") + a.form.URL.View()
	if a.actionLoading {
		url += "  " + a.styles.Busy.Render("working...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, url)
}

// renderNotice renders the notification banner. The line is kept when empty
// so the list does not jump.
func (a App) renderNotice() string {
	switch a.notice.kind {
	case NoticeError:
		return a.styles.Error.Render("✗ " + a.notice.text)
	case NoticeSuccess:
		return a.styles.Success.Render("✓ " + a.notice.text)
	default:
		return ""
	}
}

// renderList renders the heading and the visible window of the page.
func (a App) renderList() string {
	var content strings.Builder

	heading := a.styles.Heading.Render(fmt.Sprintf("Bookmarks (%d)", a.cache.total))
	if a.focus == focusFilter || a.filter.Value() != "" {
		heading += "  " + a.filter.View()
	}
	content.WriteString(heading + "\n")

	visible := a.visible()
	switch {
	case len(a.cache.records) == 0 && a.fetching:
		content.WriteString(a.styles.Empty.Render("Loading bookmarks..."))
		return content.String()
	case len(a.cache.records) == 0:
		content.WriteString(a.styles.Empty.Render("No bookmarks yet"))
		return content.String()
	case len(visible) == 0:
		content.WriteString(a.styles.Empty.Render("No matches"))
		return content.String()
	}

	maxItems := layout.CalculateVisibleItems(a.height, a.layoutConfig.List)
	itemWidth := layout.CalculateItemWidth(a.width, a.layoutConfig.List)
	offset := layout.CalculateViewportOffset(a.cursor, len(visible), maxItems)

	lines := make([]string, 0, maxItems)
	for i, b := range visible {
		// Skip items before viewport
		if i < offset {
			continue
		}
		// Stop after viewport is filled
		if i >= offset+maxItems {
			break
		}
		lines = append(lines, a.renderItem(b, i == a.cursor && a.focus == focusList, itemWidth))
	}
	content.WriteString(strings.Join(lines, "\n"))
	return content.String()
}

// renderItem renders one bookmark as a title line and a url/date line.
func (a App) renderItem(b model.Bookmark, isSelected bool, width int) string {
	title, _ := layout.TruncateText(b.Title, width, a.layoutConfig.Text)

	prefix := " "
	style := a.styles.Item
	if isSelected {
		prefix = ">"
		style = a.styles.ItemSelected
	}

	date := b.CreatedAt.Local().Format("2006-01-02")
	urlWidth := width - len(date) - 3
	url := layout.ShortenURL(b.URL, urlWidth, a.layoutConfig.Text)

	return prefix + style.Render(title) + "\n" +
		"  " + a.styles.URL.Render(url) + " " + a.styles.Date.Render("· "+date)
}

// renderPagination renders "Page N of M" when there is more than one page.
func (a App) renderPagination() string {
	pages := a.pages()
	if pages.TotalPages() <= 1 {
		return ""
	}

	bar := fmt.Sprintf("Page %d of %d", pages.Page+1, pages.TotalPages())
	if pages.HasPrev() {
		bar = "‹ " + bar
	}
	if pages.HasNext() {
		bar += " ›"
	}
	if a.fetching {
		bar += "  " + a.styles.Busy.Render("loading...")
	}
	return a.styles.Pagination.Render(bar)
}

// renderHelpBar renders the contextual key hints.
func (a App) renderHelpBar() string {
	return a.styles.Pagination.Render(a.renderHints(a.getContextualHints()))
}

// renderLoadingScreen is shown while the session resolves.
func (a App) renderLoadingScreen() string {
	return a.renderScreen(a.styles.Busy.Render("Loading..."))
}

// renderSignInScreen offers the configured provider.
func (a App) renderSignInScreen() string {
	provider := a.auth.Name()
	action := "Sign in with " + providerLabel(provider)
	if a.signingIn {
		action = a.styles.Busy.Render("Waiting for " + providerLabel(provider) + "...")
	}

	parts := []string{
		a.styles.Title.Render("bmsync"),
		"",
		"Sign in to manage your bookmarks.",
		"",
		action,
	}
	if n := a.renderNotice(); n != "" {
		parts = append(parts, "", n)
	}
	parts = append(parts, "", a.renderHintsInline(a.signInHints()))

	return a.renderScreen(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderScreen centers body in a bordered box.
func (a App) renderScreen(body string) string {
	width := layout.CalculateScreenWidth(a.width, a.layoutConfig.Screen)
	box := a.styles.Screen.Width(width).Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, box)
}

// providerLabel capitalizes a provider name for display.
func providerLabel(name string) string {
	if name == "" {
		return "your account"
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
