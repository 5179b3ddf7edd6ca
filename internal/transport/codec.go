package transport

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Engine.IO v4 packet types. Each WebSocket text frame carries exactly one packet.
const (
	engineOpen    byte = '0'
	engineClose   byte = '1'
	enginePing    byte = '2'
	enginePong    byte = '3'
	engineMessage byte = '4'
	engineNoop    byte = '6'
)

// Socket.IO v5 packet types, carried inside Engine.IO message packets.
const (
	socketConnect      byte = '0'
	socketDisconnect   byte = '1'
	socketEvent        byte = '2'
	socketAck          byte = '3'
	socketConnectError byte = '4'
	socketBinaryEvent  byte = '5'
	socketBinaryAck    byte = '6'
)

// handshake is the payload of the Engine.IO open packet. Intervals are in milliseconds.
type handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload"`
}

type enginePacket struct {
	kind byte
	data string
}

type socketPacket struct {
	kind      byte
	namespace string
	ackID     int // -1 when absent
	data      json.RawMessage
}

func decodeEnginePacket(frame []byte) (enginePacket, error) {
	if len(frame) == 0 {
		return enginePacket{}, fmt.Errorf("empty engine packet")
	}
	switch frame[0] {
	case engineOpen, engineClose, enginePing, enginePong, engineMessage, engineNoop:
		return enginePacket{kind: frame[0], data: string(frame[1:])}, nil
	default:
		return enginePacket{}, fmt.Errorf("unknown engine packet type %q", frame[0])
	}
}

func decodeHandshake(data string) (handshake, error) {
	var h handshake
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return h, fmt.Errorf("invalid open packet: %w", err)
	}
	if h.SID == "" {
		return h, fmt.Errorf("invalid open packet: missing sid")
	}
	return h, nil
}

// decodeSocketPacket parses `<type>[<attachments>-][<namespace>,][<ack id>][<json>]`.
func decodeSocketPacket(s string) (socketPacket, error) {
	if s == "" {
		return socketPacket{}, fmt.Errorf("empty socket packet")
	}

	p := socketPacket{kind: s[0], namespace: "/", ackID: -1}
	if p.kind < socketConnect || p.kind > socketBinaryAck {
		return p, fmt.Errorf("unknown socket packet type %q", p.kind)
	}
	rest := s[1:]

	if p.kind == socketBinaryEvent || p.kind == socketBinaryAck {
		i := strings.IndexByte(rest, '-')
		if i < 0 {
			return p, fmt.Errorf("binary packet without attachment count")
		}
		rest = rest[i+1:]
	}

	if strings.HasPrefix(rest, "/") {
		i := strings.IndexByte(rest, ',')
		if i < 0 {
			p.namespace, rest = rest, ""
		} else {
			p.namespace, rest = rest[:i], rest[i+1:]
		}
	}

	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	if i > 0 {
		id, err := strconv.Atoi(rest[:i])
		if err != nil {
			return p, fmt.Errorf("invalid ack id: %w", err)
		}
		p.ackID = id
		rest = rest[i:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return p, fmt.Errorf("invalid packet payload")
		}
		p.data = json.RawMessage(rest)
	}
	return p, nil
}

// decodeEvent splits an event payload `["name", arg...]` into its name and arguments.
func decodeEvent(data json.RawMessage) (string, []json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", nil, fmt.Errorf("invalid event payload: %w", err)
	}
	if len(parts) == 0 {
		return "", nil, fmt.Errorf("event payload without name")
	}

	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("invalid event name: %w", err)
	}
	return name, parts[1:], nil
}

func namespacePrefix(namespace string) string {
	if namespace == "" || namespace == "/" {
		return ""
	}
	return namespace + ","
}

func encodeConnect(namespace string) []byte {
	return []byte(string(engineMessage) + string(socketConnect) + namespacePrefix(namespace))
}

func encodeDisconnect(namespace string) []byte {
	return []byte(string(engineMessage) + string(socketDisconnect) + namespacePrefix(namespace))
}

func encodeEvent(namespace, name string, payload any) ([]byte, error) {
	body, err := json.Marshal([]any{name, payload})
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", name, err)
	}
	head := string(engineMessage) + string(socketEvent) + namespacePrefix(namespace)
	return append([]byte(head), body...), nil
}

func encodePong() []byte {
	return []byte{enginePong}
}

// connectErrorMessage extracts the reason from a CONNECT_ERROR payload,
// which is either {"message": "..."} or a bare string.
func connectErrorMessage(data json.RawMessage) string {
	if len(data) == 0 {
		return "namespace connection refused"
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil && s != "" {
		return s
	}
	return string(data)
}

// decodeArg decodes the first event argument into v.
func decodeArg(args []json.RawMessage, v any) error {
	if len(args) == 0 {
		return fmt.Errorf("event without arguments")
	}
	if err := json.Unmarshal(args[0], v); err != nil {
		return fmt.Errorf("invalid event argument: %w", err)
	}
	return nil
}
