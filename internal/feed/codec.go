package feed

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Keys sent by the cabinet stream.
const (
	KeyPlayerNames = "playernames"
	KeyPlayerKill  = "playerKill"
	KeyAlive       = "alive"
	KeyImAlive     = "im alive"
)

// ErrMalformedMessage is returned for frames that do not follow the
// ![k[key],v[value]]! layout.
var ErrMalformedMessage = errors.New("malformed feed message")

// Message is one raw key/value frame of the cabinet stream.
type Message struct {
	Key   string
	Value string
}

// Encode renders the message in wire form.
func (m Message) Encode() string {
	return "![k[" + m.Key + "],v[" + m.Value + "]]!"
}

// ParseMessage decodes a single wire frame.
func ParseMessage(raw string) (Message, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "![k[") || !strings.HasSuffix(s, "]]!") {
		return Message{}, fmt.Errorf("%q: %w", raw, ErrMalformedMessage)
	}
	body := s[len("![k[") : len(s)-len("]]!")]
	sep := strings.Index(body, "],v[")
	if sep < 0 {
		return Message{}, fmt.Errorf("%q: %w", raw, ErrMalformedMessage)
	}
	return Message{Key: body[:sep], Value: body[sep+len("],v["):]}, nil
}

// Decode converts a frame into a feed event. ok is false for keys the
// statistics pipeline does not consume.
func Decode(msg Message) (event Event, ok bool, err error) {
	switch msg.Key {
	case KeyPlayerNames:
		event = NewResetEvent()
	case KeyPlayerKill:
		kill, err := parseKill(msg.Value)
		if err != nil {
			return Event{}, false, err
		}
		event = Event{Type: EventKill, Kill: kill}
	default:
		return Event{}, false, nil
	}
	event.Raw = msg.Encode()
	return event, true, nil
}

// parseKill reads "x,y,by,killed" with an optional trailing victim type.
func parseKill(value string) (Kill, error) {
	parts := strings.Split(value, ",")
	if len(parts) < 4 {
		return Kill{}, fmt.Errorf("player kill %q: expected at least 4 fields: %w", value, ErrMalformedMessage)
	}
	nums := make([]int, 4)
	for i := range nums {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return Kill{}, fmt.Errorf("player kill %q field %d: %w", value, i, ErrMalformedMessage)
		}
		nums[i] = n
	}
	kill := Kill{X: nums[0], Y: nums[1], By: nums[2], Killed: nums[3]}
	if len(parts) > 4 {
		kill.VictimType = strings.TrimSpace(parts[4])
	}
	return kill, nil
}
