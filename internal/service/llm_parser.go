package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var errLLMNoJSON = errors.New("llm response has no json object")

var (
	fenceStartRe = regexp.MustCompile("(?is)^\\s*```(?:json)?\\s*")
	fenceEndRe   = regexp.MustCompile("(?is)\\s*```\\s*$")
)

// decodeLLMJSON parsea la respuesta del modelo en out. Prueba primero el texto
// sin fences y despues el primer objeto JSON embebido en prosa.
func decodeLLMJSON(raw string, out any) error {
	if out == nil {
		return errors.New("decode llm json: nil output")
	}
	cleaned := stripLLMFences(raw)
	if cleaned == "" {
		return errLLMNoJSON
	}
	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	candidate := firstJSONObject(cleaned)
	if candidate == nil {
		return errLLMNoJSON
	}
	if err := json.Unmarshal(candidate, out); err != nil {
		return fmt.Errorf("parse llm response: %w", err)
	}
	return nil
}

// stripLLMFences quita BOM y fences ```json ... ```.
func stripLLMFences(raw string) string {
	s := strings.TrimPrefix(strings.TrimSpace(raw), "\uFEFF")
	s = fenceStartRe.ReplaceAllString(s, "")
	s = fenceEndRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// firstJSONObject devuelve el primer objeto JSON valido que aparece en s.
func firstJSONObject(s string) json.RawMessage {
	data := []byte(s)
	for offset := 0; offset < len(data); {
		idx := bytes.IndexByte(data[offset:], '{')
		if idx < 0 {
			return nil
		}
		start := offset + idx
		var obj json.RawMessage
		if err := json.NewDecoder(bytes.NewReader(data[start:])).Decode(&obj); err == nil {
			return obj
		}
		offset = start + 1
	}
	return nil
}
