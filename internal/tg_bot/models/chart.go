package models

import "fmt"

// ChartType is the first-level choice of the track progress flow.
type ChartType struct {
	Label string // Button text, e.g. "Time Taken"
	Index int    // Chart offset on the channel
}

// ChartMode is the second-level choice of the track progress flow.
type ChartMode struct {
	Label string
	Index int
}

// Selection is a completed two-step choice.
type Selection struct {
	Type ChartType
	Mode ChartMode
}

// ChartNumber returns the channel chart identifier for the selection.
func (s Selection) ChartNumber() int {
	return s.Type.Index + s.Mode.Index
}

// String renders the selection the way it is echoed back to the user.
func (s Selection) String() string {
	return fmt.Sprintf("[%s - %s]", s.Type.Label, s.Mode.Label)
}

var (
	TypeTimeTaken = ChartType{Label: "Time Taken", Index: 0}
	TypeCount     = ChartType{Label: "Count", Index: 4}

	ModeEasy   = ChartMode{Label: "Easy", Index: 1}
	ModeMedium = ChartMode{Label: "Medium", Index: 2}
	ModeHard   = ChartMode{Label: "Hard", Index: 3}
	ModeCustom = ChartMode{Label: "Custom", Index: 4}
)

// ChartTypes and ChartModes are the choices offered by the keyboards, in order.
var (
	ChartTypes = []ChartType{TypeTimeTaken, TypeCount}
	ChartModes = []ChartMode{ModeEasy, ModeMedium, ModeHard, ModeCustom}
)

// CallbackData encodes the type as "<Label>_<index>" for an inline button.
func (t ChartType) CallbackData() string {
	return fmt.Sprintf("%s_%d", t.Label, t.Index)
}

// CallbackData encodes the mode as "<Label>_<index>" for an inline button.
func (m ChartMode) CallbackData() string {
	return fmt.Sprintf("%s_%d", m.Label, m.Index)
}

// LookupChartType resolves callback data produced by ChartType.CallbackData.
func LookupChartType(data string) (ChartType, bool) {
	for _, t := range ChartTypes {
		if t.CallbackData() == data {
			return t, true
		}
	}
	return ChartType{}, false
}

// LookupChartMode resolves callback data produced by ChartMode.CallbackData.
func LookupChartMode(data string) (ChartMode, bool) {
	for _, m := range ChartModes {
		if m.CallbackData() == data {
			return m, true
		}
	}
	return ChartMode{}, false
}
