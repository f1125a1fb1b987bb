package types

import (
	"encoding/hex"
	"image"
	"time"

	"github.com/google/uuid"
)

// Frame is one timestamped raster image sampled from the source recording.
// Index is the position within the sampled sequence, not the raw video frame
// number. Frames are produced by the extractor and treated as read-only.
type Frame struct {
	Index     int
	Timestamp float64
	Width     int
	Height    int
	Image     image.Image
}

// Rect is an axis-aligned bounding box in frame pixel coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Contains reports whether the point (x, y) falls inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// ElementType classifies a detected UI element.
type ElementType string

const (
	ElementButton        ElementType = "button"
	ElementTextInput     ElementType = "text_input"
	ElementPasswordInput ElementType = "password_input"
	ElementTextArea      ElementType = "textarea"
	ElementDropdown      ElementType = "dropdown"
	ElementCombobox      ElementType = "combobox"
	ElementCheckbox      ElementType = "checkbox"
	ElementRadio         ElementType = "radio"
	ElementToggle        ElementType = "toggle"
	ElementLink          ElementType = "link"
	ElementTab           ElementType = "tab"
	ElementMenuItem      ElementType = "menu_item"
	ElementTable         ElementType = "table"
	ElementDatePicker    ElementType = "date_picker"
	ElementSlider        ElementType = "slider"
	ElementLabel         ElementType = "label"
	ElementHeading       ElementType = "heading"
	ElementIcon          ElementType = "icon"
	ElementImage         ElementType = "image"
	ElementModal         ElementType = "modal"
	ElementPanel         ElementType = "panel"
	ElementSidebar       ElementType = "sidebar"
	ElementToolbar       ElementType = "toolbar"
	ElementNavigation    ElementType = "navigation"
)

// ParseElementType maps a free-form detector label to a typed element kind.
// Unrecognized labels fall back to ElementLabel.
func ParseElementType(label string) ElementType {
	switch label {
	case "button":
		return ElementButton
	case "text_input", "textbox", "input":
		return ElementTextInput
	case "password_input", "password":
		return ElementPasswordInput
	case "textarea":
		return ElementTextArea
	case "dropdown", "select":
		return ElementDropdown
	case "combobox":
		return ElementCombobox
	case "checkbox":
		return ElementCheckbox
	case "radio":
		return ElementRadio
	case "toggle", "switch":
		return ElementToggle
	case "link":
		return ElementLink
	case "tab":
		return ElementTab
	case "menu_item", "menu":
		return ElementMenuItem
	case "table":
		return ElementTable
	case "date_picker", "datepicker":
		return ElementDatePicker
	case "slider":
		return ElementSlider
	case "label", "text":
		return ElementLabel
	case "heading", "title":
		return ElementHeading
	case "icon":
		return ElementIcon
	case "image":
		return ElementImage
	case "modal", "dialog":
		return ElementModal
	case "panel":
		return ElementPanel
	case "sidebar":
		return ElementSidebar
	case "toolbar":
		return ElementToolbar
	case "navigation", "navbar":
		return ElementNavigation
	default:
		return ElementLabel
	}
}

// IsTextual reports whether the element carries an editable text value,
// which makes it eligible for typing detection.
func (t ElementType) IsTextual() bool {
	return t == ElementTextInput || t == ElementPasswordInput || t == ElementTextArea
}

// UIElement is one detected UI element within a single frame.
type UIElement struct {
	ID          string      `json:"id" yaml:"id"`
	Type        ElementType `json:"type" yaml:"type"`
	Bounds      Rect        `json:"bounds" yaml:"bounds"`
	Confidence  float64     `json:"confidence" yaml:"confidence"`
	Text        string      `json:"text,omitempty" yaml:"text,omitempty"`
	Value       string      `json:"value,omitempty" yaml:"value,omitempty"`
	Placeholder string      `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// ElementAt returns the first element whose bounds contain the point, or nil.
func ElementAt(elements []UIElement, x, y int) *UIElement {
	for i := range elements {
		if elements[i].Bounds.Contains(x, y) {
			return &elements[i]
		}
	}
	return nil
}

// ActionType classifies a detected user action.
type ActionType string

const (
	ActionClick  ActionType = "click"
	ActionInput  ActionType = "type"
	ActionScroll ActionType = "scroll"
)

// ParseActionType maps a free-form label to a typed action kind.
// Unrecognized labels fall back to ActionClick.
func ParseActionType(label string) ActionType {
	switch label {
	case "click", "double_click", "doubleclick", "right_click", "rightclick":
		return ActionClick
	case "type", "typing", "input":
		return ActionInput
	case "scroll":
		return ActionScroll
	default:
		return ActionClick
	}
}

// CandidateAction is an unfiltered, heuristically-inferred user action tied
// to one frame. Candidates are transient: they exist between the action
// detector and the deduplicator.
type CandidateAction struct {
	Type            ActionType
	Timestamp       float64
	FrameIndex      int
	X               int
	Y               int
	HasPoint        bool
	Text            string
	ScrollDeltaY    int
	TargetElementID string
	Confidence      float64
}

// Screen is a cluster of visually-equivalent frames. The element snapshot is
// taken from the frame that created the screen and never updated afterwards.
type Screen struct {
	ID               string      `json:"id" yaml:"id"`
	Name             string      `json:"name" yaml:"name"`
	Width            int         `json:"width" yaml:"width"`
	Height           int         `json:"height" yaml:"height"`
	Elements         []UIElement `json:"elements" yaml:"elements"`
	SourceFrameIndex int         `json:"source_frame_index" yaml:"source_frame_index"`
	Timestamp        float64     `json:"timestamp" yaml:"timestamp"`
}

// Action is a finalized, screen-anchored user action in the output workflow.
// NextScreenID, when set, always differs from ScreenID.
type Action struct {
	ID           string     `json:"id" yaml:"id"`
	Type         ActionType `json:"type" yaml:"type"`
	ScreenID     string     `json:"screen_id" yaml:"screen_id"`
	ElementID    string     `json:"element_id,omitempty" yaml:"element_id,omitempty"`
	X            int        `json:"x,omitempty" yaml:"x,omitempty"`
	Y            int        `json:"y,omitempty" yaml:"y,omitempty"`
	Value        string     `json:"value,omitempty" yaml:"value,omitempty"`
	Timestamp    float64    `json:"timestamp" yaml:"timestamp"`
	Confidence   float64    `json:"confidence" yaml:"confidence"`
	DelayBefore  float64    `json:"delay_before" yaml:"delay_before"`
	NextScreenID string     `json:"next_screen_id,omitempty" yaml:"next_screen_id,omitempty"`
}

// WorkflowDefinition is the pipeline's output artifact: the screens the user
// visited and the chronological actions linking them.
type WorkflowDefinition struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description,omitempty" yaml:"description,omitempty"`
	SourceLabel   string    `json:"source_label,omitempty" yaml:"source_label,omitempty"`
	Screens       []Screen  `json:"screens" yaml:"screens"`
	Actions       []Action  `json:"actions" yaml:"actions"`
	StartScreenID string    `json:"start_screen_id,omitempty" yaml:"start_screen_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// NewID returns a short unique identifier with the given prefix,
// e.g. "screen_3fa4b21c".
func NewID(prefix string) string {
	u := uuid.New()
	return prefix + "_" + hex.EncodeToString(u[:])[:8]
}
