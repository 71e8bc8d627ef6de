// Package model defines the core data types for the angle studio.
// In Go, we use structs instead of classes. Struct tags (the `json:"..."` and
// `db:"..."` annotations) tell serialization libraries how to map fields.
package model

// AngleDefinition is a named camera-perspective template. The Name is the
// identity key; PromptHint is the synthesis instruction sent verbatim to the
// remote image service. Definitions are static — declared once at startup and
// never mutated.
type AngleDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PromptHint  string `json:"prompt_hint"`
}

// CameraAngles is the ordered static list of all renderable angles.
// Generation runs always follow this order regardless of selection order.
var CameraAngles = []AngleDefinition{
	{
		Name:        "front",
		Description: "Straight-on front view of the product at eye level",
		PromptHint:  "a straight-on front view at eye level, product centered and fully visible",
	},
	{
		Name:        "back",
		Description: "Rear view showing the back of the product",
		PromptHint:  "a direct rear view showing the back of the product at eye level",
	},
	{
		Name:        "left-profile",
		Description: "Left side profile, perpendicular to the camera",
		PromptHint:  "a left side profile view, camera perpendicular to the product's left side",
	},
	{
		Name:        "right-profile",
		Description: "Right side profile, perpendicular to the camera",
		PromptHint:  "a right side profile view, camera perpendicular to the product's right side",
	},
	{
		Name:        "three-quarter",
		Description: "Classic 45-degree three-quarter view",
		PromptHint:  "a three-quarter view rotated 45 degrees, showing the front and one side together",
	},
	{
		Name:        "top-down",
		Description: "Bird's-eye view looking straight down",
		PromptHint:  "a top-down bird's-eye view looking straight down at the product",
	},
	{
		Name:        "low-hero",
		Description: "Low hero angle looking up at the product",
		PromptHint:  "a dramatic low hero angle, camera near ground level looking up at the product",
	},
	{
		Name:        "detail",
		Description: "Close-up on the most distinctive detail",
		PromptHint:  "an extreme close-up focused on the product's most distinctive detail or texture",
	},
}

// AngleByName looks up a static angle definition by its identity key.
func AngleByName(name string) (AngleDefinition, bool) {
	for _, a := range CameraAngles {
		if a.Name == name {
			return a, true
		}
	}
	return AngleDefinition{}, false
}

// FilterAngles narrows the static list to the selected subset, preserving the
// static list's order. Unknown names are ignored and selection order does not
// matter.
func FilterAngles(selected []string) []AngleDefinition {
	want := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		want[name] = struct{}{}
	}

	var out []AngleDefinition
	for _, a := range CameraAngles {
		if _, ok := want[a.Name]; ok {
			out = append(out, a)
		}
	}
	return out
}
