package importer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// FlexAmount accepts an amount written as a JSON number or a JSON string.
type FlexAmount string

// UnmarshalJSON implements json.Unmarshaler.
func (a *FlexAmount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = FlexAmount(s)
		return nil
	}
	*a = FlexAmount(b)
	return nil
}

// ChatTransaction is one transaction extracted by the chat assistant.
type ChatTransaction struct {
	Date        string     `json:"date"`
	Description string     `json:"description"`
	Amount      FlexAmount `json:"amount"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
}

// ChatPayload is the structured object produced by the chat import.
type ChatPayload struct {
	Transactions []ChatTransaction `json:"transactions"`
}

// ParseChat decodes either {"transactions": [...]} or a bare array.
func ParseChat(data []byte, opts Options) ([]Row, error) {
	var payload ChatPayload
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &payload.Transactions); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
		}
	} else if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFile, err)
	}
	return ChatRows(payload, opts), nil
}

// ChatRows converts an already-decoded chat payload into rows.
func ChatRows(payload ChatPayload, opts Options) []Row {
	progress := newProgressTracker(len(payload.Transactions), opts.OnProgress)
	out := make([]Row, 0, len(payload.Transactions))
	for i, tx := range payload.Transactions {
		row := Row{
			Line:         i + 1,
			Date:         strings.TrimSpace(tx.Date),
			Description:  strings.TrimSpace(tx.Description),
			Amount:       strings.TrimSpace(string(tx.Amount)),
			TypeHint:     strings.TrimSpace(tx.Type),
			CategoryHint: strings.TrimSpace(tx.Category),
			TagsHint:     tx.Tags,
		}
		if acceptRow(FormatJSON, row) {
			out = append(out, row)
		}
		progress.step(i + 1)
	}
	return out
}
