package order

import (
	"encoding/json"
	"fmt"

	"github.com/get-eventually/logistics/event"
	"github.com/get-eventually/logistics/serde"
)

// EventSerde maps Order Domain Events to and from their storage
// representation, a JSON payload tagged with the Domain Event name.
var EventSerde serde.Serde[event.Event, event.Raw] = serde.Fuse[event.Event, event.Raw](
	serde.SerializerFunc[event.Event, event.Raw](serializeEvent),
	serde.DeserializerFunc[event.Event, event.Raw](deserializeEvent),
)

func serializeEvent(evt event.Event) (event.Raw, error) {
	switch evt.(type) {
	case WasPlaced, WasPacked, WasShipped, AddressWasChanged, DeliveryHasFailed, WasDelivered:
		data, err := json.Marshal(evt)
		if err != nil {
			return event.Raw{}, fmt.Errorf("order.EventSerde: failed to serialize domain event, %w", err)
		}

		return event.Raw{
			EventType: evt.Name(),
			Data:      data,
		}, nil

	default:
		return event.Raw{}, fmt.Errorf("order.EventSerde: unexpected domain event type, %T", evt)
	}
}

func deserializeEvent(raw event.Raw) (event.Event, error) {
	switch raw.EventType {
	case WasPlaced{}.Name():
		return unmarshalAs[WasPlaced](raw.Data)
	case WasPacked{}.Name():
		return unmarshalAs[WasPacked](raw.Data)
	case WasShipped{}.Name():
		return unmarshalAs[WasShipped](raw.Data)
	case AddressWasChanged{}.Name():
		return unmarshalAs[AddressWasChanged](raw.Data)
	case DeliveryHasFailed{}.Name():
		return unmarshalAs[DeliveryHasFailed](raw.Data)
	case WasDelivered{}.Name():
		return unmarshalAs[WasDelivered](raw.Data)
	default:
		return nil, fmt.Errorf("order.EventSerde: unknown event type, %s", raw.EventType)
	}
}

func unmarshalAs[T event.Event](data []byte) (event.Event, error) {
	var evt T
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, fmt.Errorf("order.EventSerde: failed to deserialize domain event, %w", err)
	}

	return evt, nil
}
