package relay

import (
	"encoding/json"
	"fmt"
)

// PushInfo is the call-delivery information parsed from a push payload.
// Identifier, CallID and SIPServer are required; a payload missing any of
// them is unusable and discarded by ParsePushPayload.
type PushInfo struct {
	Identifier  string
	CallID      string
	SIPServer   string
	DisplayName string
	PhoneNumber string
	IsShared    bool
	UserAgent   string
}

// PayloadError describes a push payload that could not be used.
type PayloadError struct {
	Field string
	Cause error
}

func (e *PayloadError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("push payload missing required field %q", e.Field)
	}
	return fmt.Sprintf("push payload unreadable: %v", e.Cause)
}

func (e *PayloadError) Unwrap() error { return e.Cause }

// ParsePushPayload decodes a push payload into PushInfo. A payload that
// does not decode, or that lacks a required field, yields a PayloadError.
func ParsePushPayload(data []byte) (*PushInfo, error) {
	var raw struct {
		ENSIdentifier  string `json:"ENSIdentifier"`
		CallID         string `json:"CallID"`
		SIPServerIP    string `json:"SIPServerIP"`
		DisplayName    string `json:"DisplayName"`
		PhoneNumber    string `json:"PhoneNumber"`
		IsSharedNumber bool   `json:"IsSharedNumber"`
		UserAgent      string `json:"UserAgent"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &PayloadError{Cause: err}
	}
	switch {
	case raw.ENSIdentifier == "":
		return nil, &PayloadError{Field: "ENSIdentifier"}
	case raw.CallID == "":
		return nil, &PayloadError{Field: "CallID"}
	case raw.SIPServerIP == "":
		return nil, &PayloadError{Field: "SIPServerIP"}
	}
	return &PushInfo{
		Identifier:  raw.ENSIdentifier,
		CallID:      raw.CallID,
		SIPServer:   raw.SIPServerIP,
		DisplayName: raw.DisplayName,
		PhoneNumber: raw.PhoneNumber,
		IsShared:    raw.IsSharedNumber,
		UserAgent:   raw.UserAgent,
	}, nil
}
