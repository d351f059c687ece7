/*
Package events provides an in-memory event broker for pub/sub messaging.

The events package implements a lightweight event bus for broadcasting
orchestrator events (asset transitions, task transitions, module lifecycle
changes) to interested subscribers. It supports asynchronous delivery with
buffered channels, enabling loose coupling between components and feeding
the API's event stream endpoint.

Publishing is non-blocking: the broker buffers up to 100 events and each
subscriber carries its own buffer of 50. A subscriber that falls behind
misses events rather than stalling publishers.

Note that blocked-task promotion does not ride on this broker: the
execution engine invokes the task orchestrator's OnAssetAvailable
directly after finalisation, so correctness never depends on event
delivery. The broker is observational.

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Type:    events.EventTaskCompleted,
		Message: "task finished",
		Metadata: map[string]string{"task_id": taskID},
	})

# See Also

  - pkg/api for the /events stream that consumes broker events
  - pkg/engine and pkg/registry for the publishers
*/
package events
