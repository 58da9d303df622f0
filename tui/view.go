package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"pkt.systems/mavdeck/core"
	"pkt.systems/mavdeck/schema"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
	chromeLines   = 3 // tab bar, status line, footer
	maxSideWidth  = 34
	ellipsis      = "…"
)

var spinnerFrames = spinner.MiniDot.Frames

func (m Model) size() (int, int) {
	w, h := m.width, m.height
	if w <= 0 {
		w = defaultWidth
	}
	if h <= 0 {
		h = defaultHeight
	}
	return w, h
}

// outputHeight is the number of output lines visible in the output pane.
func (m Model) outputHeight() int {
	_, h := m.size()
	n := h - chromeLines - 3
	if n < 1 {
		return 1
	}
	return n
}

// View renders the dashboard.
func (m Model) View() string {
	w, h := m.size()
	s := m.manager.Active()
	if s == nil {
		return m.viewEmpty(w, h)
	}
	bodyH := h - chromeLines
	var body string
	if p := s.Popup(); p != nil {
		body = lipgloss.Place(w, bodyH, lipgloss.Center, lipgloss.Center, m.viewPopup(s, p, w, bodyH))
	} else {
		body = m.viewBody(s, w, bodyH)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewTabs(w),
		body,
		m.viewStatus(s, w),
		m.viewFooter(w),
	)
}

func (m Model) spinnerFrame() string {
	return spinnerFrames[(m.frame/2)%len(spinnerFrames)]
}

func (m Model) viewTabs(width int) string {
	active := m.manager.ActiveIndex()
	var tabs []string
	for i, s := range m.manager.Sessions() {
		label := s.Name()
		switch {
		case s.Running():
			label = m.spinnerFrame() + " " + label
		case s.LastOutcome() == schema.OutcomeSuccess:
			label = "✓ " + label
		case s.LastOutcome() != schema.OutcomeNone:
			label = "✗ " + label
		}
		if i == active {
			tabs = append(tabs, m.theme.tabActive.Render(label))
		} else {
			tabs = append(tabs, m.theme.tabInactive.Render(label))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.theme.tabBar.Width(width).Render(ansi.Truncate(bar, width, ellipsis))
}

func (m Model) viewBody(s *core.Session, width, height int) string {
	sideW := width / 3
	if sideW > maxSideWidth {
		sideW = maxSideWidth
	}
	outW := width - sideW

	paneH := height / 4
	lastH := height - paneH*3
	focus := s.Focus()

	var tabNames []string
	for _, other := range m.manager.Sessions() {
		name := other.Name()
		if branch := other.Project().Branch; branch != "" {
			name += " @" + branch
		}
		tabNames = append(tabNames, name)
	}
	var modules []string
	for _, mod := range s.Modules() {
		name := mod.Name
		if name == schema.RootModule {
			name = ". (all)"
		}
		if mod.FrameworkRun {
			name += " ▶"
		}
		modules = append(modules, name)
	}
	profiles := s.Profiles()
	profileItems := make([]string, 0, len(profiles))
	for _, p := range profiles {
		profileItems = append(profileItems, checkbox(s.ProfileEnabled(p))+" "+p)
	}
	flags := s.Flags()
	flagItems := make([]string, 0, len(flags))
	for _, f := range flags {
		flagItems = append(flagItems, checkbox(s.FlagEnabled(f.Name))+" "+f.Name)
	}

	side := lipgloss.JoinVertical(lipgloss.Left,
		m.viewList("Projects", tabNames, m.manager.ActiveIndex(), focus == core.FocusProjects, sideW, paneH),
		m.viewList("Modules", modules, s.ModuleCursor(), focus == core.FocusModules, sideW, paneH),
		m.viewList("Profiles", profileItems, s.ProfileCursor(), focus == core.FocusProfiles, sideW, paneH),
		m.viewList("Flags", flagItems, s.FlagCursor(), focus == core.FocusFlags, sideW, lastH),
	)
	return lipgloss.JoinHorizontal(lipgloss.Top, side, m.viewOutput(s, outW, height))
}

func checkbox(on bool) string {
	if on {
		return "[x]"
	}
	return "[ ]"
}

// viewList renders a bordered pane of height lines including the border.
func (m Model) viewList(title string, items []string, cursor int, focused bool, width, height int) string {
	innerW := width - 2
	innerH := height - 2
	if innerW < 1 || innerH < 1 {
		return ""
	}
	titleStyle, paneStyle := m.theme.title, m.theme.pane
	if focused {
		titleStyle, paneStyle = m.theme.titleFocus, m.theme.paneFocused
	}
	rows := []string{titleStyle.Render(ansi.Truncate(title, innerW, ellipsis))}
	visible := innerH - 1
	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	for i := start; i < len(items) && len(rows) <= visible; i++ {
		text := ansi.Truncate(items[i], innerW-2, ellipsis)
		if i == cursor {
			rows = append(rows, m.theme.cursor.Render("› "+text))
		} else {
			rows = append(rows, m.theme.text.Render("  "+text))
		}
	}
	if len(items) == 0 && visible > 0 {
		rows = append(rows, m.theme.muted.Render("  (none)"))
	}
	return paneStyle.Width(innerW).Height(innerH).Render(strings.Join(rows, "\n"))
}

func (m Model) viewOutput(s *core.Session, width, height int) string {
	innerW := width - 2
	innerH := height - 2
	if innerW < 1 || innerH < 1 {
		return ""
	}
	titleStyle, paneStyle := m.theme.title, m.theme.pane
	if s.Focus() == core.FocusOutput {
		titleStyle, paneStyle = m.theme.titleFocus, m.theme.paneFocused
	}
	title := "Output"
	if s.Running() {
		title += ": " + s.Current().Summary()
	} else if spec, ok := s.LastSpec(); ok {
		title += ": " + spec.Summary()
	}
	view := s.Output(max(innerH-1, 1))
	if !view.AtBottom {
		title += fmt.Sprintf(" (+%d below)", view.ScrollOffset)
	}
	rows := []string{titleStyle.Render(ansi.Truncate(title, innerW, ellipsis))}
	search := s.Search()
	for _, line := range view.Lines {
		rows = append(rows, m.renderLine(line, search, innerW))
	}
	return paneStyle.Width(innerW).Height(innerH).Render(strings.Join(rows, "\n"))
}

func (m Model) lineStyle(text string) lipgloss.Style {
	switch {
	case strings.Contains(text, "[ERROR]"), strings.Contains(text, "BUILD FAILURE"):
		return m.theme.danger
	case strings.Contains(text, "[WARNING]"), strings.Contains(text, "[WARN]"):
		return m.theme.warn
	case strings.Contains(text, "BUILD SUCCESS"):
		return m.theme.ok
	default:
		return m.theme.text
	}
}

func (m Model) renderLine(line core.OutputLine, search *core.SearchState, width int) string {
	base := m.lineStyle(line.Text)
	matches := search.LineMatches(line.Index)
	if len(matches) == 0 {
		return base.Render(ansi.Truncate(line.Text, width, ellipsis))
	}
	current, hasCurrent := search.Current()
	var b strings.Builder
	pos := 0
	for _, match := range matches {
		if match.Start > pos {
			b.WriteString(base.Render(line.Text[pos:match.Start]))
		}
		style := m.theme.match
		if hasCurrent && current == match {
			style = m.theme.matchActive
		}
		b.WriteString(style.Render(line.Text[match.Start:match.End]))
		pos = match.End
	}
	if pos < len(line.Text) {
		b.WriteString(base.Render(line.Text[pos:]))
	}
	return ansi.Truncate(b.String(), width, ellipsis)
}

func (m Model) viewStatus(s *core.Session, width int) string {
	var left string
	switch {
	case s.Running():
		left = m.theme.spinner.Render(m.spinnerFrame()) + " " + s.Status() +
			m.theme.muted.Render(fmt.Sprintf(" %s pid %d", s.Elapsed().Round(time.Second), s.Pid()))
	default:
		left = m.outcomeStyle(s.LastOutcome()).Render(s.Status())
	}
	var right []string
	if search := s.Search(); search != nil {
		right = append(right, search.Status())
	}
	if s.WatchEnabled() {
		right = append(right, "watch")
	}
	if pending, ok := s.Pending(); ok {
		right = append(right, "next: "+pending.Summary())
	}
	rightText := m.theme.muted.Render(strings.Join(right, "  "))
	gap := width - lipgloss.Width(left) - lipgloss.Width(rightText)
	if gap < 1 {
		return ansi.Truncate(left+" "+rightText, width, ellipsis)
	}
	return left + strings.Repeat(" ", gap) + rightText
}

func (m Model) outcomeStyle(outcome schema.Outcome) lipgloss.Style {
	switch outcome {
	case schema.OutcomeSuccess:
		return m.theme.ok
	case schema.OutcomeKilled:
		return m.theme.warn
	case schema.OutcomeFailure, schema.OutcomeError:
		return m.theme.danger
	default:
		return m.theme.muted
	}
}

func (m Model) viewFooter(width int) string {
	if m.searching {
		return ansi.Truncate(m.searchInput.View(), width, ellipsis)
	}
	return ansi.Truncate(m.help.View(m.keys), width, ellipsis)
}

func (m Model) viewEmpty(width, height int) string {
	title := m.theme.titleFocus.Render("mavdeck")
	var parts []string
	parts = append(parts, title, "")
	if m.opening > 0 {
		parts = append(parts, m.theme.spinner.Render(m.spinnerFrame())+" "+m.status)
	} else if m.status != "" {
		parts = append(parts, m.theme.danger.Render(m.status))
	}
	if m.picker != nil {
		parts = append(parts, "", m.viewPicker(m.picker, width))
	} else if m.opening == 0 {
		parts = append(parts, m.theme.muted.Render("press ctrl+t to open a project, q to quit"))
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m Model) viewPopup(s *core.Session, p core.Popup, width, height int) string {
	boxW := width * 2 / 3
	if boxW < 40 {
		boxW = width - 2
	}
	innerW := boxW - 4
	var rows []string
	switch p := p.(type) {
	case *core.HelpPopup:
		rows = append(rows, m.help.FullHelpView(m.keys.FullHelp()))
	case *core.HistoryPopup:
		items := make([]string, 0, len(p.Entries))
		for _, entry := range p.Entries {
			items = append(items, fmt.Sprintf("%s %s %s (%s)",
				outcomeMark(entry.Outcome),
				entry.At.Local().Format("Jan 02 15:04"),
				entry.Spec.Summary(),
				(time.Duration(entry.Duration) * time.Millisecond).Round(100*time.Millisecond)))
		}
		rows = append(rows, m.listRows(items, p.Cursor, innerW, height-6)...)
		rows = append(rows, "", m.theme.muted.Render("enter run · f favorite · esc close"))
	case *core.FavoritesPopup:
		favs := s.Favorites()
		items := make([]string, 0, len(favs))
		for _, fav := range favs {
			items = append(items, fav.Name+": "+fav.Spec.Summary())
		}
		rows = append(rows, m.listRows(items, p.Cursor, innerW, height-6)...)
		rows = append(rows, "", m.theme.muted.Render("enter run · d delete · esc close"))
	case *core.ProjectPickerPopup:
		rows = append(rows, m.viewPicker(p, innerW))
	case *core.StarterPickerPopup:
		saved := s.Starters()
		items := make([]string, 0, len(p.Candidates))
		for _, st := range p.Candidates {
			mark := " "
			for _, existing := range saved {
				if existing.Module == st.Module && existing.MainClass == st.MainClass {
					mark = "*"
				}
			}
			items = append(items, fmt.Sprintf("%s %s [%s]", mark, st.MainClass, st.Module))
		}
		rows = append(rows, m.listRows(items, p.Cursor, innerW, height-6)...)
		rows = append(rows, "", m.theme.muted.Render("enter run · s save · esc close"))
	case *core.StarterManagerPopup:
		starters := s.Starters()
		items := make([]string, 0, len(starters))
		for _, st := range starters {
			mark := " "
			if st.Default {
				mark = "*"
			}
			items = append(items, fmt.Sprintf("%s %s [%s]", mark, st.MainClass, st.Module))
		}
		rows = append(rows, m.listRows(items, p.Cursor, innerW, height-6)...)
		rows = append(rows, "", m.theme.muted.Render("enter set default · d delete · esc close"))
	case *core.CustomGoalPopup:
		items := make([]string, 0, len(p.Goals))
		for _, goal := range p.Goals {
			items = append(items, goal.Name+": "+strings.Join(goal.Goals, " "))
		}
		rows = append(rows, m.listRows(items, p.Cursor, innerW, height-6)...)
		rows = append(rows, "", m.theme.muted.Render("enter run · esc close"))
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		append([]string{m.theme.titleFocus.Render(p.Title()), ""}, rows...)...)
	return m.theme.popup.Width(innerW).Render(content)
}

func (m Model) viewPicker(p *core.ProjectPickerPopup, width int) string {
	var rows []string
	if len(p.Paths) == 0 {
		rows = append(rows, m.theme.muted.Render("no recent projects"))
	} else {
		rows = append(rows, m.listRows(p.Paths, p.Cursor, width, 12)...)
	}
	rows = append(rows, "")
	if m.pathEditing {
		rows = append(rows, m.pathInput.View(), m.theme.muted.Render("enter open · esc back"))
	} else {
		rows = append(rows, m.theme.muted.Render("enter new tab · o open here · tab type path · esc close"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) listRows(items []string, cursor, width, height int) []string {
	if len(items) == 0 {
		return []string{m.theme.muted.Render("(empty)")}
	}
	if height < 1 {
		height = 1
	}
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	var rows []string
	for i := start; i < len(items) && len(rows) < height; i++ {
		text := ansi.Truncate(items[i], width-2, ellipsis)
		if i == cursor {
			rows = append(rows, m.theme.cursor.Render("› "+text))
		} else {
			rows = append(rows, m.theme.text.Render("  "+text))
		}
	}
	return rows
}

func outcomeMark(outcome schema.Outcome) string {
	switch outcome {
	case schema.OutcomeSuccess:
		return "✓"
	case schema.OutcomeKilled:
		return "■"
	case schema.OutcomeFailure, schema.OutcomeError:
		return "✗"
	default:
		return "·"
	}
}
