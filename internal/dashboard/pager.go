package dashboard

import (
	"strconv"
	"strings"
)

// pagerWindow is how many page numbers the strip shows at once.
const pagerWindow = 5

// CanPrev reports whether a previous page exists.
func CanPrev(page int) bool { return page > 0 }

// CanNext reports whether a next page exists. With no pages there is none.
func CanNext(page, totalPages int) bool {
	return totalPages > 0 && page < totalPages-1
}

// pageWindow returns the first and last page index shown in the strip,
// centred on page where possible.
func pageWindow(page, totalPages int) (first, last int) {
	if totalPages <= 0 {
		return 0, -1
	}
	first = page - pagerWindow/2
	if first < 0 {
		first = 0
	}
	last = first + pagerWindow - 1
	if last > totalPages-1 {
		last = totalPages - 1
		first = max(0, last-pagerWindow+1)
	}
	return first, last
}

// renderPager draws "‹ Previous  1 2 [3] 4  Next ›". Unavailable directions
// are dimmed.
func renderPager(page, totalPages int) string {
	var b strings.Builder

	prev := "‹ Previous"
	if CanPrev(page) {
		b.WriteString(pagerActive.Render(prev))
	} else {
		b.WriteString(mutedText.Render(prev))
	}
	b.WriteString(" ")

	first, last := pageWindow(page, totalPages)
	for i := first; i <= last; i++ {
		b.WriteString(" ")
		n := strconv.Itoa(i + 1)
		if i == page {
			b.WriteString(pagerCurrent.Render("[" + n + "]"))
		} else {
			b.WriteString(n)
		}
	}

	b.WriteString("  ")
	next := "Next ›"
	if CanNext(page, totalPages) {
		b.WriteString(pagerActive.Render(next))
	} else {
		b.WriteString(mutedText.Render(next))
	}
	return b.String()
}
