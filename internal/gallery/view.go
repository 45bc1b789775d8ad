package gallery

import "gallery/internal/models"

// PageSize is both the initial visible count and the "show more" step.
const PageSize = 6

// View is one visitor's reveal state. It is plain data owned by the caller;
// nothing here is shared between visitors.
type View struct {
	filter  Filter
	visible int
}

func NewView() *View {
	return &View{filter: All, visible: PageSize}
}

// RestoreView rebuilds a view from state the client echoed back. Visible
// counts below one page are raised to one page.
func RestoreView(f Filter, visible int) *View {
	return &View{filter: f, visible: max(visible, PageSize)}
}

func (v *View) Filter() Filter { return v.filter }

func (v *View) Visible() int { return v.visible }

// Select switches the active filter. Changing it starts over at one page.
func (v *View) Select(f Filter) {
	if f == v.filter {
		return
	}
	v.filter = f
	v.visible = PageSize
}

func (v *View) ShowMore() { v.visible += PageSize }

func (v *View) ShowLess() { v.visible = PageSize }

// Page is what a view shows of one listing.
type Page struct {
	Filter      string        `json:"filter"`
	Items       []DisplayItem `json:"items"`
	Total       int           `json:"total"`
	Visible     int           `json:"visible"`
	HasMore     bool          `json:"hasMore"`
	CanShowLess bool          `json:"canShowLess"`
}

// Page projects assets through the active filter and cuts the result at the
// visible count.
func (v *View) Page(assets []models.ImageAsset) Page {
	items := Project(assets, v.filter)
	total := len(items)
	if len(items) > v.visible {
		items = items[:v.visible]
	}
	return Page{
		Filter:      v.filter.String(),
		Items:       items,
		Total:       total,
		Visible:     v.visible,
		HasMore:     v.visible < total,
		CanShowLess: v.visible > PageSize,
	}
}
