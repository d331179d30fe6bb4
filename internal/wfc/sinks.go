package wfc

// InstantiationSinks fans placements out to several sinks
type InstantiationSinks []InstantiationSink

// Place hands p to every sink and stops at the first error
func (s InstantiationSinks) Place(p Placement) error {
	for _, sink := range s {
		if err := sink.Place(p); err != nil {
			return err
		}
	}
	return nil
}

// ViewportSinks fans frame notifications out to several sinks
type ViewportSinks []ViewportSink

// Frame passes the grid size to every sink
func (s ViewportSinks) Frame(width, height int) {
	for _, sink := range s {
		sink.Frame(width, height)
	}
}
