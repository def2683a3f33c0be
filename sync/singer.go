package sync

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// maxMessageSize bounds a single line of Singer input.
const maxMessageSize = 10 * 1024 * 1024

type MessageType string

const (
	RecordMessage MessageType = "RECORD"
	SchemaMessage MessageType = "SCHEMA"
	StateMessage  MessageType = "STATE"
)

// Message is one line of Singer output from an extraction pipeline.
type Message struct {
	Type   MessageType
	Stream string
	Record *Record
	// Value is the raw JSON of a STATE message's value.
	Value string
}

// ParseMessage parses a single Singer JSON line.
func ParseMessage(line string) (Message, error) {
	var result Message
	if !gjson.Valid(line) {
		return result, errors.New("invalid json message")
	}
	msg := gjson.Parse(line)
	result.Type = MessageType(msg.Get("type").String())
	result.Stream = msg.Get("stream").String()

	switch result.Type {
	case RecordMessage:
		record, err := recordFromResult(msg.Get("record"))
		if err != nil {
			return result, fmt.Errorf("invalid RECORD message for stream %q: %w", result.Stream, err)
		}
		result.Record = record
	case StateMessage:
		value := msg.Get("value")
		if !value.Exists() {
			return result, errors.New("STATE message is missing value")
		}
		result.Value = value.Raw
	case SchemaMessage:
	case "":
		return result, errors.New("message is missing type")
	}
	return result, nil
}

// MessageReader reads Singer messages line by line.
type MessageReader struct {
	scanner *bufio.Scanner
	line    int
}

func NewMessageReader(r io.Reader) *MessageReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	return &MessageReader{scanner: scanner}
}

// Next returns the next message, skipping blank lines. It returns io.EOF at the end of input.
func (m *MessageReader) Next() (Message, error) {
	for m.scanner.Scan() {
		m.line++
		line := strings.TrimSpace(m.scanner.Text())
		if line == "" {
			continue
		}
		msg, err := ParseMessage(line)
		if err != nil {
			return msg, fmt.Errorf("line %d: %w", m.line, err)
		}
		return msg, nil
	}
	if err := m.scanner.Err(); err != nil {
		return Message{}, err
	}
	return Message{}, io.EOF
}

// StateLine renders a STATE message carrying value, ready to be echoed downstream.
func StateLine(value string) (string, error) {
	return sjson.SetRaw(`{"type":"STATE"}`, "value", value)
}
