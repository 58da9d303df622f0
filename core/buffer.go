package core

import "pkt.systems/mavdeck/schema"

// OutputLine is one normalized line of process output.
// Index is monotonic per session and never reused, even after trimming.
type OutputLine struct {
	Index uint64
	Text  string
}

// BufferView is a snapshot of a buffer's visible state.
type BufferView struct {
	Lines        []OutputLine
	TotalLines   int
	ScrollOffset int
	AtBottom     bool
}

const defaultMaxLines = schema.DefaultBufferMaxLines

// buffer stores output lines and scroll state.
// scrollOffset is the number of lines from the bottom; 0 means at bottom.
type buffer struct {
	lines        []OutputLine
	next         uint64
	scrollOffset int
	maxLines     int
}

// Append adds lines to the buffer and returns the stored lines plus the number
// of lines trimmed from the front. If the buffer is scrolled up, the scroll
// offset is increased to keep the view anchored.
func (b *buffer) Append(texts ...string) ([]OutputLine, int) {
	if len(texts) == 0 {
		return nil, 0
	}
	start := len(b.lines)
	for _, text := range texts {
		b.lines = append(b.lines, OutputLine{Index: b.next, Text: text})
		b.next++
	}
	added := b.lines[start:]
	if b.scrollOffset > 0 {
		b.scrollOffset += len(texts)
	}
	maxLines := b.maxLines
	if maxLines <= 0 {
		maxLines = defaultMaxLines
	}
	trimmed := 0
	if len(b.lines) > maxLines {
		trimmed = len(b.lines) - maxLines
		b.lines = append([]OutputLine(nil), b.lines[trimmed:]...)
		if b.scrollOffset > len(b.lines) {
			b.scrollOffset = len(b.lines)
		}
		if len(added) > len(b.lines) {
			added = b.lines
		} else {
			added = b.lines[len(b.lines)-len(added):]
		}
	}
	return added, trimmed
}

// Clear drops all lines but keeps the index counter running.
func (b *buffer) Clear() {
	b.lines = nil
	b.scrollOffset = 0
}

// Lines returns the stored lines. Callers must not mutate the result.
func (b *buffer) Lines() []OutputLine {
	return b.lines
}

// FirstIndex returns the index of the oldest stored line, or the next index when empty.
func (b *buffer) FirstIndex() uint64 {
	if len(b.lines) == 0 {
		return b.next
	}
	return b.lines[0].Index
}

// Position returns the slice position of a line index, if stored.
func (b *buffer) Position(index uint64) (int, bool) {
	if len(b.lines) == 0 {
		return 0, false
	}
	first := b.lines[0].Index
	if index < first {
		return 0, false
	}
	pos := int(index - first)
	if pos >= len(b.lines) {
		return 0, false
	}
	return pos, true
}

// ResetScroll returns the view to the bottom.
func (b *buffer) ResetScroll() {
	b.scrollOffset = 0
}

// Scroll adjusts the scroll offset by delta. Positive delta scrolls up (older lines),
// negative delta scrolls down. Limit is the viewport height.
func (b *buffer) Scroll(delta, limit int) {
	b.scrollOffset = clampScroll(b.scrollOffset+delta, len(b.lines), limit)
}

// ScrollTo positions the view so that the line at pos is visible.
func (b *buffer) ScrollTo(pos, limit int) {
	total := len(b.lines)
	if limit <= 0 || total <= limit {
		b.scrollOffset = 0
		return
	}
	end := total - b.scrollOffset
	start := end - limit
	if pos >= start && pos < end {
		return
	}
	offset := total - pos - limit/2 - 1
	b.scrollOffset = clampScroll(offset, total, limit)
}

// Snapshot returns a view of the buffer for the given viewport limit.
func (b *buffer) Snapshot(limit int) BufferView {
	total := len(b.lines)
	if limit <= 0 || limit > total {
		limit = total
	}

	maxScroll := maxScroll(total, limit)
	if b.scrollOffset > maxScroll {
		b.scrollOffset = maxScroll
	}

	end := total - b.scrollOffset
	if end < 0 {
		end = 0
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	lines := make([]OutputLine, end-start)
	copy(lines, b.lines[start:end])

	return BufferView{
		Lines:        lines,
		TotalLines:   total,
		ScrollOffset: b.scrollOffset,
		AtBottom:     b.scrollOffset == 0,
	}
}

func newBufferWithMaxLines(maxLines int) *buffer {
	buf := &buffer{maxLines: defaultMaxLines}
	if maxLines > 0 {
		buf.maxLines = maxLines
	}
	return buf
}

func maxScroll(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	if total <= limit {
		return 0
	}
	return total - limit
}

func clampScroll(offset, total, limit int) int {
	max := maxScroll(total, limit)
	if offset < 0 {
		return 0
	}
	if offset > max {
		return max
	}
	return offset
}
