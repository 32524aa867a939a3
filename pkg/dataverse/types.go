package dataverse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gridlink-io/gridlink-engine/pkg/jsonutil"
	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// odataList is the standard envelope for Web API collection responses.
type odataList[T any] struct {
	Value []T `json:"value"`
}

// LocalizedLabel is one localized display label.
type LocalizedLabel struct {
	Label        string `json:"Label"`
	LanguageCode int    `json:"LanguageCode"`
}

// DisplayNameLabel is the label envelope the metadata API wraps display names
// in. UserLocalizedLabel may be null for entities without a label in the
// caller's locale.
type DisplayNameLabel struct {
	UserLocalizedLabel *LocalizedLabel `json:"UserLocalizedLabel"`
}

// Text returns the user-localized label, or empty when absent.
func (l DisplayNameLabel) Text() string {
	if l.UserLocalizedLabel == nil {
		return ""
	}
	return l.UserLocalizedLabel.Label
}

// EntityDefinition mirrors the $select projection used against
// /EntityDefinitions(LogicalName='<name>').
type EntityDefinition struct {
	LogicalName          string           `json:"LogicalName"`
	DisplayName          DisplayNameLabel `json:"DisplayName"`
	EntitySetName        string           `json:"EntitySetName"`
	PrimaryIDAttribute   string           `json:"PrimaryIdAttribute"`
	PrimaryNameAttribute string           `json:"PrimaryNameAttribute"`
}

// AttributeDefinition is one attribute row from the /Attributes listing.
type AttributeDefinition struct {
	LogicalName string           `json:"LogicalName"`
	DisplayName DisplayNameLabel `json:"DisplayName"`
}

// lookupTargets is the projection of a LookupAttributeMetadata cast.
type lookupTargets struct {
	Targets []string `json:"Targets"`
}

// RelationshipDescriptor is one row from the OneToManyRelationships or
// ManyToOneRelationships collections.
type RelationshipDescriptor struct {
	SchemaName           string `json:"SchemaName"`
	ReferencingEntity    string `json:"ReferencingEntity"`
	ReferencingAttribute string `json:"ReferencingAttribute"`
	ReferencedEntity     string `json:"ReferencedEntity"`
	ReferencedAttribute  string `json:"ReferencedAttribute"`
}

// RecordPage is one page of a record list query.
type RecordPage struct {
	Records  []models.Record
	NextLink string
}

// RequestError carries a failed (non-2xx) response for downstream analysis.
// The body is retained verbatim so the error analyzer can classify it.
type RequestError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("web api request failed: %s", e.Status)
}

// IsRetryable implements retry.RetryableError: only service-protection and
// gateway statuses are transient.
func (e *RequestError) IsRetryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ErrorMessage extracts the error message from the response body, tolerating
// the message arriving as a non-string value. Empty when the body does not
// parse.
func (e *RequestError) ErrorMessage() string {
	var envelope struct {
		Error struct {
			Message json.RawMessage `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(e.Body, &envelope); err != nil {
		return ""
	}
	return jsonutil.FlexibleStringValue(envelope.Error.Message)
}
