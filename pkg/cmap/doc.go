// Package cmap is a generic map split into independently locked shards.
//
//	m := cmap.New[string, *Entry]()
//	m.Set("events", e)
//	e, ok := m.Get("events")
//
// Iteration visits one shard at a time, so it never blocks writers to
// other shards and does not observe a single point in time.
package cmap
