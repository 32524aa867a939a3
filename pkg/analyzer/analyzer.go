// Package analyzer classifies failed Web API responses into a small error
// taxonomy and produces ordered, human-actionable suggestions. Classification
// is a pure function of status code plus parsed body; no history is needed.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/jsonutil"
	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// ErrorKind is the classification taxonomy.
type ErrorKind string

const (
	KindField        ErrorKind = "field"
	KindEntity       ErrorKind = "entity"
	KindRelationship ErrorKind = "relationship"
	KindPermission   ErrorKind = "permission"
	KindNetwork      ErrorKind = "network"
	KindUnclassified ErrorKind = "unclassified"
)

// Response is the failed HTTP response under analysis.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Analysis is the classification outcome. Every analysis carries at least one
// suggestion; an empty suggestion list would mean the analysis reached a
// human with nothing actionable, which this package treats as a bug.
type Analysis struct {
	StatusCode int       `json:"status_code"`
	Status     string    `json:"status"`
	Kind       ErrorKind `json:"kind"`

	IsFieldError        bool `json:"is_field_error"`
	IsEntityError       bool `json:"is_entity_error"`
	IsRelationshipError bool `json:"is_relationship_error"`
	IsPermissionError   bool `json:"is_permission_error"`

	Message     string   `json:"message,omitempty"`
	FieldName   string   `json:"field_name,omitempty"`
	SegmentName string   `json:"segment_name,omitempty"`
	Suggestions []string `json:"suggestions"`

	CorrelationID string `json:"correlation_id,omitempty"`
	RequestID     string `json:"request_id,omitempty"`
}

var (
	fieldPattern   = regexp.MustCompile(`(?i)could not find a (?:property|column) named '([^']+)'`)
	segmentPattern = regexp.MustCompile(`(?i)resource not found for the segment '([^']+)'`)

	// Lookup fields that keep coming back in support escalations; a message
	// naming one of these is a relationship problem whatever else matched.
	knownLookupFields = []string{
		"_parentcustomerid_value",
		"_customerid_value",
		"_parentaccountid_value",
		"_regardingobjectid_value",
	}

	correlationHeaders = []string{"X-Ms-Correlation-Request-Id", "Mise-Correlation-Id"}
	requestIDHeaders   = []string{"X-Ms-Service-Request-Id", "Req_id", "X-Ms-Request-Id"}
)

// Analyzer classifies responses. The discoverer is optional and only used by
// AnalyzeWithDiscovery.
type Analyzer struct {
	discoverer RelationshipDiscoverer
	logger     *zap.Logger
}

// RelationshipDiscoverer is the slice of the discovery engine the analyzer
// calls reactively when a relationship error carries entity hints.
type RelationshipDiscoverer interface {
	Discover(ctx context.Context, parentEntity, childEntity string) (*models.DiscoveredRelationship, error)
}

// New creates an Analyzer. discoverer may be nil, disabling the
// discovery-augmented variant.
func New(discoverer RelationshipDiscoverer, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		discoverer: discoverer,
		logger:     logger.Named("analyzer"),
	}
}

// Analyze classifies one failed response. Pure: no network, no state.
func Analyze(resp Response) *Analysis {
	a := &Analysis{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Kind:       KindUnclassified,
	}

	extractIDs(a, resp.Header)

	// Permission problems are status-driven, independent of body content.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		a.Kind = KindPermission
		a.IsPermissionError = true
		a.Message = parseMessage(resp.Body)
		a.Suggestions = append(a.Suggestions,
			"The request was rejected for missing or insufficient credentials. Verify the access token is current and the user has read privileges on the entity.",
		)
		return withEscalation(a)
	}

	message := parseMessage(resp.Body)
	if message == "" {
		// Unparseable body: report status only.
		a.Suggestions = append(a.Suggestions,
			fmt.Sprintf("The response body could not be parsed; only %s is known. Inspect the raw response for details.", resp.Status),
		)
		return withEscalation(a)
	}
	a.Message = message

	if m := fieldPattern.FindStringSubmatch(message); m != nil {
		a.Kind = KindField
		a.IsFieldError = true
		a.FieldName = m[1]
		a.Suggestions = append(a.Suggestions,
			fmt.Sprintf("The query referenced a field named '%s' that the entity does not have. Check the spelling against the entity's attribute metadata.", m[1]),
		)
	}

	if m := segmentPattern.FindStringSubmatch(message); m != nil {
		a.Kind = KindEntity
		a.IsEntityError = true
		a.SegmentName = m[1]
		a.Suggestions = append(a.Suggestions,
			fmt.Sprintf("The collection segment '%s' does not exist. List queries address the plural collection name (entity set name), not the logical name.", m[1]),
		)
	}

	// A field that looks like a lookup column flags a relationship problem
	// regardless of which specific pattern matched.
	if looksLikeRelationship(a, message) {
		a.Kind = KindRelationship
		a.IsRelationshipError = true
		a.Suggestions = append(a.Suggestions,
			"The failing field appears to be a relationship lookup column. The relationship between the two entities may use a different attribute; re-run relationship discovery for the pair.",
		)
	}

	if len(a.Suggestions) == 0 {
		a.Suggestions = append(a.Suggestions,
			fmt.Sprintf("The error did not match a known pattern: %s", message),
		)
	}

	return withEscalation(a)
}

// AnalyzeTransportError classifies a transport-level failure (the request
// never produced a response).
func AnalyzeTransportError(err error) *Analysis {
	return &Analysis{
		Kind: KindNetwork,
		Message: func() string {
			if err == nil {
				return ""
			}
			return err.Error()
		}(),
		Suggestions: []string{
			"The request never reached the data API. Check connectivity to the environment URL and any VPN or proxy in between.",
		},
	}
}

// AnalyzeWithDiscovery augments a relationship-flagged analysis by invoking
// the discoverer with explicit entity hints and prepending its verdict to the
// suggestion list. This is the one place the discoverer is called reactively
// rather than proactively.
func (an *Analyzer) AnalyzeWithDiscovery(ctx context.Context, resp Response, parentEntity, childEntity string) *Analysis {
	a := Analyze(resp)

	if !a.IsRelationshipError || an.discoverer == nil {
		return a
	}
	if !models.IsValidEntityName(parentEntity) || !models.IsValidEntityName(childEntity) {
		return a
	}

	rel, err := an.discoverer.Discover(ctx, parentEntity, childEntity)
	switch {
	case err != nil:
		an.logger.Debug("reactive discovery failed", zap.Error(err))
		a.Suggestions = append([]string{
			fmt.Sprintf("Relationship discovery for %s -> %s failed; the original error stands on its own.", parentEntity, childEntity),
		}, a.Suggestions...)
	case rel == nil:
		a.Suggestions = append([]string{
			fmt.Sprintf("No relationship between %s and %s could be discovered; the entities may not be linked at all.", parentEntity, childEntity),
		}, a.Suggestions...)
	default:
		a.Suggestions = append([]string{
			fmt.Sprintf("Discovery suggests the lookup column linking %s to %s is '%s' (confidence: %s). Rebuild the filter with that column.",
				childEntity, parentEntity, rel.LookupColumn, rel.Confidence),
		}, a.Suggestions...)
	}

	return a
}

func parseMessage(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Error struct {
			Message json.RawMessage `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ""
	}
	return jsonutil.FlexibleStringValue(envelope.Error.Message)
}

func looksLikeRelationship(a *Analysis, message string) bool {
	if a.FieldName != "" && models.IsLookupValueField(a.FieldName) {
		return true
	}
	lower := strings.ToLower(message)
	for _, known := range knownLookupFields {
		if strings.Contains(lower, known) {
			return true
		}
	}
	return false
}

func extractIDs(a *Analysis, header http.Header) {
	if header == nil {
		return
	}
	for _, h := range correlationHeaders {
		if v := header.Get(h); v != "" {
			a.CorrelationID = v
			break
		}
	}
	for _, h := range requestIDHeaders {
		if v := header.Get(h); v != "" {
			a.RequestID = v
			break
		}
	}
}

// withEscalation appends the support-escalation hint when the response
// carried tracing ids, independent of classification outcome.
func withEscalation(a *Analysis) *Analysis {
	if a.CorrelationID != "" || a.RequestID != "" {
		a.Suggestions = append(a.Suggestions,
			fmt.Sprintf("For support escalation quote correlation id %q / request id %q.", a.CorrelationID, a.RequestID),
		)
	}
	return a
}
