package events

import "github.com/dshills/stagecraft/internal/event"

// Scene topics.
const (
	// TopicSceneChanged is published after every committed store change.
	TopicSceneChanged event.Topic = "scene.changed"
	// TopicSelectionChanged is published when the selection moves.
	TopicSelectionChanged event.Topic = "scene.selection"
)

// History topics.
const (
	TopicHistoryRecorded event.Topic = "history.recorded"
	TopicHistoryUndo     event.Topic = "history.undo"
	TopicHistoryRedo     event.Topic = "history.redo"
)

// Hydration topics.
const (
	// TopicHydrationPublished is published when a pass becomes the renderable view.
	TopicHydrationPublished event.Topic = "hydration.published"
	// TopicHydrationDiscarded is published when a superseded pass is dropped.
	TopicHydrationDiscarded event.Topic = "hydration.discarded"
)

// Playback topics.
const (
	TopicPlaybackStarted event.Topic = "playback.started"
	TopicPlaybackStopped event.Topic = "playback.stopped"
)

// Application topics.
const (
	TopicConfigReloaded event.Topic = "config.reloaded"
	TopicSnapshotSaved  event.Topic = "snapshot.saved"
	TopicSnapshotLoaded event.Topic = "snapshot.loaded"
)
