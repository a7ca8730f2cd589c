package idl

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

const programDataLogPrefix = "Program data:"

// Encode serializes an event payload with its discriminator.
func (e *Event) Encode(payload interface{}, opts ...CodecOption) ([]byte, error) {
	body, err := Encode(e.Content, payload, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode event %s", e.Name)
	}
	return append(append([]byte{}, e.Discriminator...), body...), nil
}

// Decode checks the discriminator and decodes the event payload.
func (e *Event) Decode(data []byte, opts ...CodecOption) (interface{}, error) {
	if !bytes.HasPrefix(data, e.Discriminator) {
		return nil, errors.Wrapf(ErrDiscriminator, "event %s", e.Name)
	}
	payload, _, err := Decode(e.Content, data[len(e.Discriminator):], opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode event %s", e.Name)
	}
	return payload, nil
}

// DecodeEvent guesses the event of data and decodes it. Data emitted through
// a self-CPI carries an extra tag ahead of the discriminator, which is
// stripped.
func (p *Program) DecodeEvent(data []byte, opts ...CodecOption) (*Event, interface{}, error) {
	data = bytes.TrimPrefix(data, eventIxTag)

	event, err := p.GuessEvent(data)
	if err != nil {
		return nil, nil, err
	}
	payload, err := event.Decode(data, opts...)
	if err != nil {
		return nil, nil, err
	}
	return event, payload, nil
}

// DecodeEventLog decodes the base64 payload of a "Program data:" log line.
// The log prefix itself is optional.
func (p *Program) DecodeEventLog(line string, opts ...CodecOption) (*Event, interface{}, error) {
	encoded := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), programDataLogPrefix))
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, errors.Wrap(err, "invalid event log payload")
	}
	return p.DecodeEvent(data, opts...)
}
