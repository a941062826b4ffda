// Package event provides the topic-based notification bus that ties the
// editor components together.
//
// Publishers wrap payloads in a typed Event and publish them on a dotted
// topic such as "scene.changed" or "hydration.published". Subscribers
// register a pattern; "*" matches exactly one segment and "**" matches zero
// or more trailing segments:
//
//	bus := event.NewBus()
//	_ = bus.Start()
//	defer bus.Stop(ctx)
//
//	sub, _ := bus.SubscribeFunc("hydration.*", func(ctx context.Context, ev any) error {
//	    if pub, ok := ev.(event.Event[events.HydrationPublished]); ok {
//	        log.Printf("generation %d", pub.Payload.Generation)
//	    }
//	    return nil
//	})
//	defer bus.Unsubscribe(sub)
//
// # Delivery
//
// Publish delivers synchronously in the caller's goroutine, in subscription
// order. PublishAsync queues the event for a single worker goroutine so that
// slow subscribers never block the editing thread; events are dropped (and
// counted) when the queue is full. Handler panics are recovered and counted.
package event
