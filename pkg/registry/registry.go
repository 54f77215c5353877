// Package registry holds the fixed list of known cities and their country
// assignment. Registry order is the canonical iteration order for ingestion,
// so merged blobs are deterministic regardless of fetch completion order.
package registry

// City is one known city on the reference server.
type City struct {
	ID      int    `json:"id" mapstructure:"id"`
	Name    string `json:"name" mapstructure:"name"`
	Country string `json:"country" mapstructure:"country"`
}

type Registry struct {
	cities []City
	byName map[string]City
}

func New(cities []City) *Registry {
	byName := make(map[string]City, len(cities))
	for _, c := range cities {
		byName[c.Name] = c
	}
	return &Registry{
		cities: append([]City(nil), cities...),
		byName: byName,
	}
}

// Cities returns the cities in registry order.
func (r *Registry) Cities() []City {
	return append([]City(nil), r.cities...)
}

func (r *Registry) Len() int {
	return len(r.cities)
}

// Lookup finds a city by name.
func (r *Registry) Lookup(name string) (City, bool) {
	c, ok := r.byName[name]
	return c, ok
}
