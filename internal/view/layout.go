// Package view composes rendered documents into reader pages and keeps the
// per-reader session state that decides which document is on screen.
package view

// Layout is the arrangement of article, catalogue and document list.
type Layout string

const (
	// LayoutWide shows the document list, article and catalogue side by side.
	LayoutWide Layout = "wide"
	// LayoutNarrow moves the list and catalogue into overlay panels.
	LayoutNarrow Layout = "narrow"
)

// LayoutFor picks the layout for a viewport. Portrait viewports are narrow.
func LayoutFor(width, height float64) Layout {
	if width < height {
		return LayoutNarrow
	}
	return LayoutWide
}
