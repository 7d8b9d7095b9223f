package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
	"github.com/nikbrunner/bmsync/internal/optimistic"
)

// submit validates the form and inserts the bookmark. The URL is checked
// before any backend call.
func (a App) submit() (App, tea.Cmd) {
	if a.actionLoading || a.user == nil {
		return a, nil
	}
	a.notice = notice{}

	rawURL := a.form.URL.Value()
	if err := model.ValidateURL(rawURL); err != nil {
		return a.showError(msgInvalidURL)
	}

	b := model.NewBookmark(model.NewBookmarkParams{
		UserID: a.user.ID,
		Title:  a.form.Title.Value(),
		URL:    rawURL,
	})
	a.actionLoading = true
	return a, insertCmd(a.ctx, a.data, b, a.session)
}

// handleInsertDone resets the form and jumps to page 0 where the new
// bookmark is first. On failure the form keeps its values.
func (a App) handleInsertDone(msg insertDoneMsg) (App, tea.Cmd) {
	if a.user == nil || msg.session != a.session {
		return a, nil
	}
	a.actionLoading = false

	if msg.err != nil {
		a.log.Warn("insert bookmark", logger.Error(msg.err))
		return a.showError(msg.err.Error())
	}

	a.form.Reset()
	a.form.Blur()
	a.focus = focusList
	a.filter.Reset()
	a.cursor = 0
	a.page = 0
	return a.fetchPage(0)
}

// deleteSelected removes the selected bookmark from the cache right away
// and deletes it in the background.
func (a App) deleteSelected() (App, tea.Cmd) {
	if a.actionLoading || a.user == nil {
		return a, nil
	}
	b, ok := a.selected()
	if !ok {
		return a, nil
	}
	idx := a.cache.indexOf(b.ID)
	if idx < 0 {
		return a, nil
	}
	onlyOnPage := len(a.cache.records) == 1

	next, tx := optimistic.Begin(a.cache,
		func(c pageCache) pageCache { return c.remove(idx) },
		func(current pageCache) pageCache { return current.restore(b, idx) },
	)
	a.cache = next
	a.clampCursor()
	a.actionLoading = true

	return a, deleteCmd(a.ctx, a.data, a.user.ID, b.ID, tx, onlyOnPage, a.session)
}

// handleDeleteDone commits or rolls back the optimistic removal. After a
// successful delete of the last bookmark on a later page the view steps
// back one page.
func (a App) handleDeleteDone(msg deleteDoneMsg) (App, tea.Cmd) {
	if a.user == nil || msg.session != a.session {
		return a, nil
	}
	a.actionLoading = false

	if msg.err != nil {
		a.log.Warn("delete bookmark", logger.Error(msg.err))
		a.cache = msg.tx.Rollback(a.cache)
		a.clampCursor()
		return a.showError(msg.err.Error())
	}
	msg.tx.Commit()

	var notify, fetch tea.Cmd
	a, notify = a.showSuccess(msgDeleted)
	if msg.onlyOnPage && a.page > 0 {
		a.page--
	}
	a, fetch = a.fetchPage(a.page)
	return a, tea.Batch(notify, fetch)
}

// lookupTitle fetches the page title when the URL is a web URL and the
// title field is still empty.
func (a App) lookupTitle() tea.Cmd {
	if a.titles == nil || strings.TrimSpace(a.form.Title.Value()) != "" {
		return nil
	}
	rawURL := strings.TrimSpace(a.form.URL.Value())
	if !model.IsWebURL(rawURL) {
		return nil
	}
	return fetchTitleCmd(a.ctx, a.titles, rawURL)
}

func (a App) handleTitleFetched(msg titleFetchedMsg) (App, tea.Cmd) {
	if msg.err != nil {
		a.log.Debug("title lookup", logger.String("url", msg.url), logger.Error(msg.err))
		return a, nil
	}
	if a.form.Title.Value() != "" || strings.TrimSpace(a.form.URL.Value()) != msg.url {
		return a, nil
	}
	a.form.Title.SetValue(msg.title)
	return a, nil
}
