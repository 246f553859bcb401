// Package model defines the SDK domain entities exchanged with the
// LinkForty API and cached in durable storage.
package model

import "time"

// UTMParameters holds the five recognized campaign attribution keys.
type UTMParameters struct {
	Source   string `json:"source,omitempty"`
	Medium   string `json:"medium,omitempty"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
	Content  string `json:"content,omitempty"`
}

// IsZero reports whether no UTM key is set.
func (u UTMParameters) IsZero() bool {
	return u == UTMParameters{}
}

// LinkData describes a tracked link: its short code, per-platform targets
// and any campaign or custom parameters attached at creation time.
type LinkData struct {
	ShortCode        string            `json:"shortCode"`
	IOSURL           string            `json:"iosUrl,omitempty"`
	AndroidURL       string            `json:"androidUrl,omitempty"`
	FallbackURL      string            `json:"fallbackUrl,omitempty"`
	UTMParameters    *UTMParameters    `json:"utmParameters,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`

	// LegacyCustomData is the pre-v2 wire name for custom parameters.
	// Normalize folds it into CustomParameters; it is never persisted.
	LegacyCustomData map[string]string `json:"customData,omitempty"`
}

// Normalize returns a copy with the legacy customData field folded into
// CustomParameters. The legacy value wins when both are present.
func (l *LinkData) Normalize() *LinkData {
	if l == nil {
		return nil
	}
	out := *l
	if out.LegacyCustomData != nil {
		out.CustomParameters = out.LegacyCustomData
	}
	out.LegacyCustomData = nil
	return &out
}

// AttributionResult is the outcome of install reporting, produced once
// per process lifetime.
type AttributionResult struct {
	InstallID       string    `json:"installId"`
	Attributed      bool      `json:"attributed"`
	ConfidenceScore float64   `json:"confidenceScore"`
	MatchedFactors  []string  `json:"matchedFactors"`
	LinkData        *LinkData `json:"linkData"`
}

// EventRecord is a single tracked usage or revenue event. Records survive
// process restarts in the offline queue until delivered or cleared.
type EventRecord struct {
	InstallID string         `json:"installId"`
	EventName string         `json:"eventName"`
	EventData map[string]any `json:"eventData,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NewEventRecord builds an EventRecord stamped with the current UTC time.
func NewEventRecord(installID, eventName string, eventData map[string]any, now time.Time) EventRecord {
	return EventRecord{
		InstallID: installID,
		EventName: eventName,
		EventData: eventData,
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// FingerprintRecord is the device snapshot sent with install reports and
// click resolution. Built fresh per attempt, never persisted.
type FingerprintRecord struct {
	UserAgent              string  `json:"userAgent"`
	Timezone               string  `json:"timezone"`
	Language               string  `json:"language"`
	ScreenWidth            int     `json:"screenWidth"`
	ScreenHeight           int     `json:"screenHeight"`
	Platform               string  `json:"platform"`
	PlatformVersion        string  `json:"platformVersion"`
	AppVersion             string  `json:"appVersion"`
	DeviceID               string  `json:"deviceId,omitempty"`
	AttributionWindowHours float64 `json:"attributionWindowHours"`
}

// CreateLinkInput is the request body for link creation.
type CreateLinkInput struct {
	TargetURL        string            `json:"targetUrl"`
	Alias            string            `json:"alias,omitempty"`
	TemplateID       string            `json:"templateId,omitempty"`
	UTMParameters    *UTMParameters    `json:"utmParameters,omitempty"`
	CustomParameters map[string]string `json:"customParameters,omitempty"`
}

// CreatedLink is the server response to link creation.
type CreatedLink struct {
	ShortCode string `json:"shortCode"`
	ShortURL  string `json:"shortUrl"`
	TargetURL string `json:"targetUrl"`
}
