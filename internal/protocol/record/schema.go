package record

import (
	"fmt"
	"strings"

	"github.com/danmuck/tramdash/internal/protocol"
	"github.com/rs/zerolog/log"
)

// FieldCount is the number of fields in every well-formed record.
const FieldCount = 3

// payloadKeys maps each known MSGTYPE to the only payload key it accepts.
// MSGTYPE values absent here finalize as KindUnknown with any payload key.
var payloadKeys = map[string]string{
	TypeLocation:       KeyValue,
	TypePassengerCount: KeyPassengerCount,
}

// ValidationError describes a record whose field list matches no schema.
type ValidationError struct {
	MsgType string
	Key     string
	Fields  int
	Reason  string
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("record:")
	if e.MsgType != "" {
		fmt.Fprintf(&b, " msgtype=%s", e.MsgType)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " key=%s", e.Key)
	}
	fmt.Fprintf(&b, " fields=%d: %s", e.Fields, e.Reason)
	return b.String()
}

func (e ValidationError) Unwrap() error {
	return protocol.ErrMalformedMessage
}

// Finalize validates a closed field list and converts it into a Message.
// Field order within the record is not significant.
func Finalize(fields []Field) (Message, error) {
	log.Trace().Msgf("record.Finalize fields=%d", len(fields))
	if len(fields) != FieldCount {
		return Message{}, ValidationError{
			MsgType: firstValue(fields, KeyMsgType),
			Fields:  len(fields),
			Reason:  fmt.Sprintf("expected %d fields", FieldCount),
		}
	}

	var msgType, tramID, payload *Field
	for i := range fields {
		f := &fields[i]
		switch f.Key {
		case KeyMsgType:
			if msgType != nil {
				return Message{}, ValidationError{MsgType: f.Value, Key: f.Key, Fields: len(fields), Reason: "duplicate field"}
			}
			msgType = f
		case KeyTramID:
			if tramID != nil {
				return Message{}, ValidationError{MsgType: firstValue(fields, KeyMsgType), Key: f.Key, Fields: len(fields), Reason: "duplicate field"}
			}
			tramID = f
		default:
			if payload != nil {
				return Message{}, ValidationError{MsgType: firstValue(fields, KeyMsgType), Key: f.Key, Fields: len(fields), Reason: "unexpected field"}
			}
			payload = f
		}
	}

	if msgType == nil {
		return Message{}, ValidationError{Key: KeyMsgType, Fields: len(fields), Reason: "missing required field"}
	}
	if tramID == nil {
		return Message{}, ValidationError{MsgType: msgType.Value, Key: KeyTramID, Fields: len(fields), Reason: "missing required field"}
	}
	if strings.TrimSpace(tramID.Value) == "" {
		return Message{}, ValidationError{MsgType: msgType.Value, Key: KeyTramID, Fields: len(fields), Reason: "empty tram id"}
	}
	if want, ok := payloadKeys[msgType.Value]; ok && payload.Key != want {
		return Message{}, ValidationError{
			MsgType: msgType.Value,
			Key:     payload.Key,
			Fields:  len(fields),
			Reason:  fmt.Sprintf("payload key must be %s", want),
		}
	}

	return Message{
		Kind:       KindOf(msgType.Value),
		Type:       msgType.Value,
		TramID:     tramID.Value,
		PayloadKey: payload.Key,
		Payload:    payload.Value,
	}, nil
}

func firstValue(fields []Field, key string) string {
	for _, f := range fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}
