package tui

import tea "github.com/charmbracelet/bubbletea"

const (
	msgInvalidURL = "Please enter a valid URL"
	msgDeleted    = "Bookmark deleted successfully!"
	msgCopied     = "URL copied to clipboard"

	msgSignInTimedOut = "Sign-in timed out. Press Enter to try again."
)

// showError replaces any notification with an error and starts its timer.
func (a App) showError(text string) (App, tea.Cmd) {
	return a.setNotice(NoticeError, text)
}

// showSuccess replaces any notification with a success message and starts
// its timer.
func (a App) showSuccess(text string) (App, tea.Cmd) {
	return a.setNotice(NoticeSuccess, text)
}

// setNotice fills one slot, which empties the other. Only the timer for the
// latest notice can clear it.
func (a App) setNotice(kind NoticeKind, text string) (App, tea.Cmd) {
	a.noticeSeq++
	a.notice = notice{kind: kind, text: text, seq: a.noticeSeq}
	return a, expireNoticeCmd(a.noticeTimeout, a.noticeSeq)
}
