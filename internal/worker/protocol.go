// Package worker runs file parsing off the request path. A Worker is a
// single-job actor that talks only through messages; a Pool hands requests
// to idle workers.
package worker

import (
	"moneta/internal/importer"
)

// RequestType selects the parser for a job.
type RequestType string

const (
	RequestProcessXLSX RequestType = "process-xlsx"
	RequestProcessOFX  RequestType = "process-ofx"
	RequestProcessChat RequestType = "process-chat"
)

// RequestTypeFor returns the request type that parses format.
func RequestTypeFor(f importer.Format) (RequestType, bool) {
	switch f {
	case importer.FormatXLSX:
		return RequestProcessXLSX, true
	case importer.FormatOFX:
		return RequestProcessOFX, true
	case importer.FormatJSON:
		return RequestProcessChat, true
	}
	return "", false
}

// Format is the inverse of RequestTypeFor.
func (t RequestType) Format() (importer.Format, bool) {
	switch t {
	case RequestProcessXLSX:
		return importer.FormatXLSX, true
	case RequestProcessOFX:
		return importer.FormatOFX, true
	case RequestProcessChat:
		return importer.FormatJSON, true
	}
	return "", false
}

// Request is one parse job.
type Request struct {
	ID   string      `json:"id"`
	Type RequestType `json:"type"`
	Data []byte      `json:"data"`
}

// MessageType tags outbound messages.
type MessageType string

const (
	MessageReady    MessageType = "ready"
	MessageProgress MessageType = "progress"
	MessageResult   MessageType = "result"
	MessageError    MessageType = "error"
)

// Message is sent from a worker to its owner. Data holds a ProgressData,
// ResultData or ErrorData according to Type; it is nil for ready.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
}

type ProgressData struct {
	ID        string `json:"id"`
	Progress  int    `json:"progress"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

type ResultData struct {
	ID           string         `json:"id"`
	Transactions []importer.Row `json:"transactions"`
}

// ErrorData carries the failure text on the wire and the original error for
// in-process callers.
type ErrorData struct {
	ID    string `json:"id"`
	Error string `json:"error"`
	Err   error  `json:"-"`
}

// jobID extracts the job a message belongs to.
func (m Message) jobID() string {
	switch d := m.Data.(type) {
	case ProgressData:
		return d.ID
	case ResultData:
		return d.ID
	case ErrorData:
		return d.ID
	}
	return ""
}
