package models

// SummaryCategory is a completion category reported by the device.
type SummaryCategory string

const (
	CategoryGreen  SummaryCategory = "Green"
	CategoryYellow SummaryCategory = "Yellow"
	CategoryRed    SummaryCategory = "Red"
	CategoryCustom SummaryCategory = "Custom"
)

// SummaryCategories lists the fixed set of categories in display order.
var SummaryCategories = []SummaryCategory{CategoryGreen, CategoryYellow, CategoryRed, CategoryCustom}

// SummaryCounters maps every category to the number of completions seen since start.
type SummaryCounters map[SummaryCategory]int

// Total returns the sum of all counters.
func (c SummaryCounters) Total() int {
	var total int
	for _, n := range c {
		total += n
	}
	return total
}
