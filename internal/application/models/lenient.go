package models

import (
	"bytes"
	"encoding/json"
)

// formFields reads a form section member by member, so one oddly typed answer
// never costs the rest of the section. Anything but a JSON object reads as
// an empty section.
type formFields map[string]json.RawMessage

func readFormFields(data []byte) formFields {
	var f formFields
	if !isJSONObject(data) || json.Unmarshal(data, &f) != nil {
		return nil
	}
	return f
}

// text returns a member as text: strings as-is, numbers and booleans in
// their JSON spelling, anything else as "".
func (f formFields) text(key string) string {
	return scalarText(f[key])
}

func (f formFields) raw(key string) json.RawMessage {
	if IsNullJSON(f[key]) {
		return nil
	}
	return f[key]
}

// texts returns the scalar items of an array member; other items are skipped.
func (f formFields) texts(key string) []string {
	var items []json.RawMessage
	if json.Unmarshal(f[key], &items) != nil || items == nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := scalarText(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	default:
		return string(raw)
	}
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// IsFalseJSON reports whether raw is exactly the JSON literal false.
func IsFalseJSON(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("false"))
}
