package domain

// ViewKind names one of the three mutually exclusive views.
type ViewKind string

const (
	ViewMap    ViewKind = "map"
	ViewList   ViewKind = "list"
	ViewDetail ViewKind = "detail"
)

// ViewState is the tagged variant mirrored into history entries.
type ViewState struct {
	Kind     ViewKind `json:"view"`
	ObjectID string   `json:"objectId,omitempty"`
}

var (
	MapView  = ViewState{Kind: ViewMap}
	ListView = ViewState{Kind: ViewList}
)

// DetailView returns the detail state for objectID.
func DetailView(objectID string) ViewState {
	return ViewState{Kind: ViewDetail, ObjectID: objectID}
}

// Normalize maps unknown or incomplete states to the map view.
func (s ViewState) Normalize() ViewState {
	switch s.Kind {
	case ViewMap, ViewList:
		return ViewState{Kind: s.Kind}
	case ViewDetail:
		if s.ObjectID != "" {
			return s
		}
	}
	return MapView
}

// Visibility reports which container is shown. Exactly one field is true.
type Visibility struct {
	Map    bool `json:"map"`
	List   bool `json:"list"`
	Detail bool `json:"detail"`
}

// Visibility derives container visibility from the state.
func (s ViewState) Visibility() Visibility {
	switch s.Normalize().Kind {
	case ViewList:
		return Visibility{List: true}
	case ViewDetail:
		return Visibility{Detail: true}
	default:
		return Visibility{Map: true}
	}
}
