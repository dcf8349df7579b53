package record

import (
	"fmt"

	"github.com/danmuck/tramdash/internal/protocol/segment"
)

// Field keys from the feed contract.
const (
	KeyMsgType        = "MSGTYPE"
	KeyTramID         = "TRAM_ID"
	KeyValue          = "VALUE"
	KeyPassengerCount = "PASSENGER_COUNT"
)

// MSGTYPE values from the feed contract.
const (
	TypeLocation       = "LOCATION"
	TypePassengerCount = "PASSENGER_COUNT"
)

// Kind classifies a finalized record.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindLocation
	KindPassengerCount
)

func (k Kind) String() string {
	switch k {
	case KindLocation:
		return "location"
	case KindPassengerCount:
		return "passenger_count"
	default:
		return "unknown"
	}
}

// KindOf maps a MSGTYPE value to its Kind.
func KindOf(msgType string) Kind {
	switch msgType {
	case TypeLocation:
		return KindLocation
	case TypePassengerCount:
		return KindPassengerCount
	default:
		return KindUnknown
	}
}

// Field is one decoded key/value pair.
type Field struct {
	Key   string
	Value string
}

// Message is one logical update for one tram.
type Message struct {
	Kind       Kind
	Type       string
	TramID     string
	PayloadKey string
	Payload    string
}

func Location(tramID, location string) Message {
	return Message{
		Kind:       KindLocation,
		Type:       TypeLocation,
		TramID:     tramID,
		PayloadKey: KeyValue,
		Payload:    location,
	}
}

func PassengerCount(tramID, count string) Message {
	return Message{
		Kind:       KindPassengerCount,
		Type:       TypePassengerCount,
		TramID:     tramID,
		PayloadKey: KeyPassengerCount,
		Payload:    count,
	}
}

// Fields returns the record in wire order.
func (m Message) Fields() []Field {
	return []Field{
		{Key: KeyMsgType, Value: m.Type},
		{Key: KeyTramID, Value: m.TramID},
		{Key: m.PayloadKey, Value: m.Payload},
	}
}

// Encode renders m as its three wire tokens. Type and PayloadKey default from
// Kind when empty.
func Encode(m Message) ([]byte, error) {
	return AppendMessage(nil, m)
}

func AppendMessage(dst []byte, m Message) ([]byte, error) {
	if m.Type == "" {
		switch m.Kind {
		case KindLocation:
			m.Type = TypeLocation
		case KindPassengerCount:
			m.Type = TypePassengerCount
		default:
			return dst, fmt.Errorf("record: encode unknown kind requires MSGTYPE value")
		}
	}
	if m.PayloadKey == "" {
		key, ok := payloadKeys[m.Type]
		if !ok {
			return dst, fmt.Errorf("record: encode %q requires payload key", m.Type)
		}
		m.PayloadKey = key
	}
	var err error
	for _, f := range m.Fields() {
		if dst, err = segment.AppendString(dst, f.Key); err != nil {
			return dst, fmt.Errorf("record: encode key %q: %w", f.Key, err)
		}
		if dst, err = segment.AppendString(dst, f.Value); err != nil {
			return dst, fmt.Errorf("record: encode %s value: %w", f.Key, err)
		}
	}
	return dst, nil
}
