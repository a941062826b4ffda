package events

// SceneChanged describes a committed store change.
type SceneChanged struct {
	Operation string
	Count     int
	Selected  int
	// Recorded is false for changes kept out of history, such as playback toggles.
	Recorded bool
}

// SelectionChanged describes a selection move. Index is -1 when cleared.
type SelectionChanged struct {
	Index int
	ID    string
}

// HistoryChanged describes a history cursor move.
type HistoryChanged struct {
	Description string
	Step        int
	Len         int
}

// HydrationPublished describes a published renderable view.
type HydrationPublished struct {
	Generation uint64
	Count      int
	Failed     int
}

// HydrationDiscarded describes a superseded pass.
type HydrationDiscarded struct {
	Generation uint64
	Latest     uint64
}

// PlaybackChanged describes a driver starting or stopping.
type PlaybackChanged struct {
	Index int
	Src   string
}

// ConfigReloaded describes a configuration reload.
type ConfigReloaded struct {
	Path string
}

// SnapshotStored describes a save or load.
type SnapshotStored struct {
	Key      string
	Elements int
	Revision string
}
