package record

import (
	"github.com/danmuck/tramdash/internal/protocol/segment"
)

// Assembler folds segments into fields and fields into records. A record
// closes when the next MSGTYPE field arrives, or at Flush. Not safe for
// concurrent use.
type Assembler struct {
	fields   []Field
	overflow int

	pendingKey string
	hasKey     bool
}

func NewAssembler() *Assembler {
	return &Assembler{fields: make([]Field, 0, FieldCount)}
}

// Push consumes one segment. It returns a Message when the segment completes
// a MSGTYPE field that closes a well-formed record. A record that matches no
// schema is dropped and reported as a ValidationError; assembly continues
// with the MSGTYPE field that closed it.
func (a *Assembler) Push(seg segment.Segment) (Message, bool, error) {
	if !a.hasKey {
		a.pendingKey = seg.Text()
		a.hasKey = true
		return Message{}, false, nil
	}
	f := Field{Key: a.pendingKey, Value: seg.Text()}
	a.pendingKey = ""
	a.hasKey = false
	return a.PushField(f)
}

// PushField is Push for an already paired field.
func (a *Assembler) PushField(f Field) (Message, bool, error) {
	if f.Key != KeyMsgType || a.Pending() == 0 {
		a.appendField(f)
		return Message{}, false, nil
	}
	msg, err := a.closeRecord()
	a.appendField(f)
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// Flush closes the in-progress record at end-of-stream. The last record of a
// stream has no following MSGTYPE, so without Flush it would never be
// emitted.
func (a *Assembler) Flush() (Message, bool, error) {
	defer a.Reset()
	if a.hasKey {
		return Message{}, false, ValidationError{
			MsgType: firstValue(a.fields, KeyMsgType),
			Key:     a.pendingKey,
			Fields:  a.Pending(),
			Reason:  "key without value at end of stream",
		}
	}
	if a.Pending() == 0 {
		return Message{}, false, nil
	}
	msg, err := a.closeRecord()
	if err != nil {
		return Message{}, false, err
	}
	return msg, true, nil
}

// Pending reports the number of fields accumulated for the open record.
func (a *Assembler) Pending() int {
	return len(a.fields) + a.overflow
}

// AwaitingValue reports whether a key segment is waiting for its value.
func (a *Assembler) AwaitingValue() bool {
	return a.hasKey
}

func (a *Assembler) Reset() {
	a.fields = a.fields[:0]
	a.overflow = 0
	a.pendingKey = ""
	a.hasKey = false
}

// appendField keeps at most FieldCount fields; anything beyond is only
// counted since the record can no longer be well formed.
func (a *Assembler) appendField(f Field) {
	if len(a.fields) >= FieldCount {
		a.overflow++
		return
	}
	a.fields = append(a.fields, f)
}

func (a *Assembler) closeRecord() (Message, error) {
	var (
		msg Message
		err error
	)
	if a.overflow > 0 {
		err = ValidationError{
			MsgType: firstValue(a.fields, KeyMsgType),
			Fields:  a.Pending(),
			Reason:  "too many fields",
		}
	} else {
		msg, err = Finalize(a.fields)
	}
	a.fields = a.fields[:0]
	a.overflow = 0
	return msg, err
}
