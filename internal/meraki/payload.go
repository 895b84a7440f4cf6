// Package meraki parses Meraki webhook payloads and turns them into
// analysis prompts.
package meraki

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var ErrInvalidPayload = errors.New("invalid webhook payload")

type Payload struct {
	Version          string         `json:"version"`
	SharedSecret     string         `json:"sharedSecret"`
	SentAt           string         `json:"sentAt"`
	OrganizationID   string         `json:"organizationId"`
	OrganizationName string         `json:"organizationName"`
	OrganizationURL  string         `json:"organizationUrl"`
	NetworkID        string         `json:"networkId"`
	NetworkName      string         `json:"networkName"`
	NetworkURL       string         `json:"networkUrl"`
	NetworkTags      []string       `json:"networkTags"`
	DeviceSerial     string         `json:"deviceSerial"`
	DeviceMac        string         `json:"deviceMac"`
	DeviceName       string         `json:"deviceName"`
	DeviceURL        string         `json:"deviceUrl"`
	DeviceModel      string         `json:"deviceModel"`
	AlertID          string         `json:"alertId"`
	AlertType        string         `json:"alertType"`
	AlertTypeID      string         `json:"alertTypeId"`
	AlertLevel       string         `json:"alertLevel"`
	OccurredAt       string         `json:"occurredAt"`
	AlertData        map[string]any `json:"alertData"`
}

// AlertInfo is the subset of a payload shown in notifications.
type AlertInfo struct {
	AlertType        string `json:"alert_type"`
	OrganizationName string `json:"organization_name"`
	OrganizationURL  string `json:"organization_url"`
	NetworkName      string `json:"network_name"`
	NetworkURL       string `json:"network_url"`
}

// ParsePayload accepts either the webhook body itself or an API Gateway
// style envelope whose "body" field holds the payload as a string or object.
func ParsePayload(raw []byte) (Payload, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Payload{}, fmt.Errorf("%w: invalid JSON in request body: %v", ErrInvalidPayload, err)
	}
	if envelope == nil {
		return Payload{}, fmt.Errorf("%w: empty request body", ErrInvalidPayload)
	}

	body := raw
	if inner, ok := envelope["body"]; ok {
		var s string
		if err := json.Unmarshal(inner, &s); err == nil {
			body = []byte(s)
		} else {
			body = inner
		}
	}

	var payload Payload
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&payload); err != nil {
		return Payload{}, fmt.Errorf("%w: invalid JSON in request body: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}

func (p Payload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.AlertType, validation.Required),
	)
}

// VerifySecret reports whether the payload carries the expected shared
// secret. An empty expected value disables the check.
func (p Payload) VerifySecret(expected string) bool {
	if expected == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(p.SharedSecret), []byte(expected)) == 1
}

func (p Payload) Info() AlertInfo {
	return AlertInfo{
		AlertType:        orUnknown(p.AlertType),
		OrganizationName: orUnknown(p.OrganizationName),
		OrganizationURL:  p.OrganizationURL,
		NetworkName:      orUnknown(p.NetworkName),
		NetworkURL:       p.NetworkURL,
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}
