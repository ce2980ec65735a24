package stats

// Filter selects which counters a dispatch pass reports.
type Filter map[Entity][]Statistic

// DefaultFilter selects every statistic of every entity.
func DefaultFilter() Filter {
	filter := make(Filter, len(Entities))
	for _, e := range Entities {
		filter[e] = append([]Statistic(nil), Statistics...)
	}
	return filter
}

// KillFilter is the filter reported after a kill: all three kill counters of
// the attacker, whichever subtype changed, and the victim's deaths.
// For a self-kill both lists are merged, so the entity reports all four
// counters rather than only its deaths.
func KillFilter(by, killed Entity) Filter {
	filter := Filter{
		by: {Kills, QueenKills, OtherKills},
	}
	filter[killed] = append(filter[killed], Deaths)
	return filter
}

// Dispatch calls every live subscriber once per counter selected by filter,
// reading values from store. Entities are visited in cabinet order and
// unknown entities or statistics are skipped. A nil filter means
// DefaultFilter.
//
// The subscriber list is captured when the pass starts. Subscriptions
// removed by a callback still receive the rest of the current pass.
func Dispatch(filter Filter, store *Store, registry *Registry) {
	subs := registry.live()
	if len(subs) == 0 {
		return
	}
	if filter == nil {
		filter = DefaultFilter()
	}

	for _, e := range Entities {
		stats, ok := filter[e]
		if !ok {
			continue
		}
		for _, stat := range stats {
			value, err := store.Value(e, stat)
			if err != nil {
				continue
			}
			change := Change{Entity: e, Statistic: stat, Value: value}
			for _, sub := range subs {
				sub.callback(change)
			}
		}
	}
}
