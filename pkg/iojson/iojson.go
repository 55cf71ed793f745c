// Package iojson reads and writes JSON for the command line surface.
package iojson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Error is the JSON shape written for failures that happen before a tool
// produces a result, such as unreadable argument input.
type Error struct {
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func jsonError(msg string, jsonErr error) string {
	// json.Marshal escapes the strings.
	msgBytes, _ := json.Marshal(msg)
	errBytes, _ := json.Marshal(jsonErr.Error())
	return fmt.Sprintf(`{"message":%s,"data":{"json_error":%s}}`, msgBytes, errBytes)
}

// MarshalError renders msg and data as an indented Error. If data cannot be
// marshaled the result is a hand-built blob carrying the marshal error, which
// indicates a bug.
func MarshalError(msg string, data map[string]any) string {
	resp := Error{Message: msg, Data: data}

	bits, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return jsonError(msg, err)
	}

	return string(bits)
}

// WriteError writes an Error to w.
func WriteError(w io.Writer, msg string, data map[string]any) error {
	_, err := fmt.Fprintln(w, MarshalError(msg, data))
	return err
}

// WriteWith writes obj to w as indented JSON. Task names are user text, so
// HTML characters are left unescaped. Marshal failures go to ew.
func WriteWith(w io.Writer, ew io.Writer, obj any) error {
	bits, err := marshal(obj)
	if err != nil {
		_, err = fmt.Fprintln(ew, jsonError("error marshaling in iojson.WriteWith", err))
		return err
	}

	_, err = w.Write(bits)
	return err
}

func marshal(obj any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(obj); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
