package cloudsync

import (
	"encoding/json"
	"fmt"
	"time"
)

// Inbound message types pushed by the Cloud.
const (
	MessageTypeHeartbeatAck          = "heartbeat_ack"
	MessageTypeInstallModule         = "install_module"
	MessageTypeUpdateModule          = "update_module"
	MessageTypeRemoveModule          = "remove_module"
	MessageTypePluginUpdateAvailable = "plugin_update_available"
	MessageTypeUserRevoked           = "user_revoked"
	MessageTypeBackupRequest         = "backup_request"
	MessageTypeSyncConfig            = "sync_config"
)

// Outbound message types sent by the Hub.
const (
	MessageTypeHeartbeat       = "heartbeat"
	MessageTypeUserSync        = "user_sync"
	MessageTypePluginInstalled = "plugin_installed"
)

// Envelope is the wire message shape used in both directions: a JSON object
// with a required "type" member and type-specific fields alongside it at the
// top level, e.g. {"type":"user_revoked","user_id":"42"}.
//
// Envelopes are immutable once constructed; Fields must not be mutated after
// the envelope has been handed to Send or to a handler.
type Envelope struct {
	Type   string
	Fields map[string]any
}

// NewEnvelope creates an envelope of the given type with the given fields.
// The fields map is used as-is, not copied.
func NewEnvelope(msgType string, fields map[string]any) *Envelope {
	return &Envelope{Type: msgType, Fields: fields}
}

// NewHeartbeat creates a heartbeat envelope stamped with the given time.
func NewHeartbeat(now time.Time) *Envelope {
	return &Envelope{
		Type:   MessageTypeHeartbeat,
		Fields: map[string]any{"timestamp": now.UTC().Format(time.RFC3339)},
	}
}

// NewUserSync creates a user directory sync envelope.
func NewUserSync(data map[string]any) *Envelope {
	return &Envelope{
		Type:   MessageTypeUserSync,
		Fields: map[string]any{"data": data},
	}
}

// NewPluginInstalled creates a plugin installation notification envelope.
func NewPluginInstalled(pluginID, version string) *Envelope {
	return &Envelope{
		Type:   MessageTypePluginInstalled,
		Fields: map[string]any{"plugin_id": pluginID, "version": version},
	}
}

// StringField returns the named field as a string. The second return value
// is false if the field is absent or not a string.
func (e *Envelope) StringField(key string) (string, bool) {
	v, ok := e.Fields[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Encode serializes the envelope to its flat JSON wire form.
func (e *Envelope) Encode() ([]byte, error) {
	if e.Type == "" {
		return nil, ErrMissingType
	}
	obj := make(map[string]any, len(e.Fields)+1)
	for k, v := range e.Fields {
		obj[k] = v
	}
	obj["type"] = e.Type
	return json.Marshal(obj)
}

// DecodeEnvelope deserializes a flat JSON wire message into an envelope.
// A payload that is not a JSON object or lacks a string "type" member is
// rejected.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	rawType, ok := obj["type"]
	if !ok {
		return nil, ErrMissingType
	}
	msgType, ok := rawType.(string)
	if !ok || msgType == "" {
		return nil, ErrMissingType
	}
	delete(obj, "type")
	return &Envelope{Type: msgType, Fields: obj}, nil
}

// ModuleCommand is the payload of install_module, update_module and
// remove_module messages.
type ModuleCommand struct {
	ModuleID string
	Version  string // optional
}

// DecodeModuleCommand extracts a module lifecycle command from an envelope.
func DecodeModuleCommand(env *Envelope) (*ModuleCommand, error) {
	id, ok := env.StringField("module_id")
	if !ok {
		return nil, fmt.Errorf("%s message missing module_id", env.Type)
	}
	version, _ := env.StringField("version")
	return &ModuleCommand{ModuleID: id, Version: version}, nil
}

// PluginUpdate is the payload of a plugin_update_available message.
type PluginUpdate struct {
	PluginID string
	Version  string
}

// DecodePluginUpdate extracts a plugin update notice from an envelope.
func DecodePluginUpdate(env *Envelope) (*PluginUpdate, error) {
	id, ok := env.StringField("plugin_id")
	if !ok {
		return nil, fmt.Errorf("%s message missing plugin_id", env.Type)
	}
	version, ok := env.StringField("version")
	if !ok {
		return nil, fmt.Errorf("%s message missing version", env.Type)
	}
	return &PluginUpdate{PluginID: id, Version: version}, nil
}

// UserRevocation is the payload of a user_revoked message.
type UserRevocation struct {
	UserID string
}

// DecodeUserRevocation extracts a user revocation from an envelope.
func DecodeUserRevocation(env *Envelope) (*UserRevocation, error) {
	id, ok := env.StringField("user_id")
	if !ok {
		return nil, fmt.Errorf("%s message missing user_id", env.Type)
	}
	return &UserRevocation{UserID: id}, nil
}

// BackupRequest is the payload of a backup_request message.
type BackupRequest struct {
	RequestID string
}

// DecodeBackupRequest extracts a backup request from an envelope.
func DecodeBackupRequest(env *Envelope) (*BackupRequest, error) {
	id, ok := env.StringField("request_id")
	if !ok {
		return nil, fmt.Errorf("%s message missing request_id", env.Type)
	}
	return &BackupRequest{RequestID: id}, nil
}
