// Package events defines the topics and payloads published on the editor's
// event bus.
package events
