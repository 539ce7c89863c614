package drivers

// Registry maps sport keys to their driver sets
type Registry struct {
	bySport map[string][]Driver
}

// NewRegistry creates a registry with the built-in sport driver sets
func NewRegistry() *Registry {
	return &Registry{
		bySport: map[string][]Driver{
			"nhl": NHLDrivers(),
			"nba": NBADrivers(),
		},
	}
}

// ForSport returns the driver set for a sport, or nil when the sport has
// no model.
func (r *Registry) ForSport(sport string) []Driver {
	return r.bySport[sport]
}

// Register adds or replaces a sport's driver set
func (r *Registry) Register(sport string, drivers []Driver) {
	r.bySport[sport] = drivers
}

// Sports lists the sports that have a registered driver set
func (r *Registry) Sports() []string {
	sports := make([]string, 0, len(r.bySport))
	for sport := range r.bySport {
		sports = append(sports, sport)
	}
	return sports
}
