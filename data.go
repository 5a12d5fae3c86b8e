package evalex

// Data holds the values of variables and constants for an expression.
type Data interface {
	// Get looks up a variable.
	Get(name string) (Value, bool)
	// Set sets a variable.
	Set(name string, v Value)
}

// MapData is a Data backed by a map. Names are case-insensitive.
type MapData map[string]Value

// NewMapData creates an empty MapData.
func NewMapData() Data {
	return MapData{}
}

func (m MapData) Get(name string) (Value, bool) {
	v, ok := m[key(name)]
	return v, ok
}

func (m MapData) Set(name string, v Value) {
	m[key(name)] = v
}
