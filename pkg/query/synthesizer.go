// Package query builds safe, minimal OData-style list queries from a
// discovered or named relationship and a parent record id.
package query

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/inflection"
	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/models"
)

// Options shape a list query. Zero values mean "omit the clause": Top == 0 is
// semantically "no limit", not "default limit".
type Options struct {
	Select  []string
	Filter  string
	OrderBy []string
	Top     int
	ViewID  string
}

// Synthesizer builds list queries. It carries the execution environment
// because saved-view ids are rejected outright in a local context, where such
// ids are known not to exist.
type Synthesizer struct {
	localEnv bool
	logger   *zap.Logger
}

// NewSynthesizer creates a Synthesizer. localEnv marks a local/sandbox
// execution context.
func NewSynthesizer(localEnv bool, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{
		localEnv: localEnv,
		logger:   logger.Named("query"),
	}
}

// BuildFilter emits the relationship filter clause. The record id is NOT
// quoted: the target API takes GUID literals bare, and quoting one is a
// correctness bug, not a style choice.
func BuildFilter(lookupColumn, parentRecordID string) string {
	return fmt.Sprintf("%s eq %s", lookupColumn, parentRecordID)
}

// Collection pluralizes an entity logical name into its collection endpoint,
// leaving names that are already plural untouched.
func Collection(entityName string) string {
	return inflection.Plural(entityName)
}

// BuildListQuery assembles the query path for a list call: pluralized
// collection, optional $select/$filter/$orderby, $top only when an explicit
// page size was supplied, and a saved-view reference only when the view id
// passes validation.
func (s *Synthesizer) BuildListQuery(entityName string, opts Options) (string, error) {
	if !models.IsValidEntityName(entityName) {
		return "", fmt.Errorf("cannot build list query: invalid entity name %q", entityName)
	}

	var params []string
	if len(opts.Select) > 0 {
		params = append(params, "$select="+strings.Join(opts.Select, ","))
	}
	if opts.Filter != "" {
		params = append(params, "$filter="+opts.Filter)
	}
	if len(opts.OrderBy) > 0 {
		params = append(params, "$orderby="+strings.Join(opts.OrderBy, ","))
	}
	if opts.Top > 0 {
		params = append(params, "$top="+strconv.Itoa(opts.Top))
	}
	if opts.ViewID != "" {
		if s.IsValidViewID(opts.ViewID) {
			params = append(params, "savedQuery="+opts.ViewID)
		} else {
			s.logger.Debug("dropping saved-view reference",
				zap.String("view_id", opts.ViewID),
				zap.Bool("local_env", s.localEnv))
		}
	}

	path := "/" + Collection(strings.TrimSpace(entityName))
	if len(params) > 0 {
		path += "?" + strings.Join(params, "&")
	}
	return path, nil
}

// IsValidViewID is the validation predicate for saved-view references: the id
// must parse as a GUID, must not be the all-zero GUID, and is never valid in
// a local execution context.
func (s *Synthesizer) IsValidViewID(viewID string) bool {
	if s.localEnv {
		return false
	}
	id, err := uuid.Parse(viewID)
	if err != nil {
		return false
	}
	return id != uuid.Nil
}

// ValidationResult is the outcome of ValidateQuery.
type ValidationResult struct {
	IsValid bool
	Errors  []string
}

var quotedGUIDPattern = regexp.MustCompile(`(?i)eq\s+'[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}'`)

// ValidateQuery checks a query path before execution. It is pure and never
// panics; callers are responsible for checking the result before issuing the
// query.
func ValidateQuery(queryPath string) ValidationResult {
	var errs []string

	if strings.TrimSpace(queryPath) == "" {
		return ValidationResult{Errors: []string{"query is empty"}}
	}
	if !strings.HasPrefix(queryPath, "/") {
		errs = append(errs, "query must start with '/'")
	}

	pathPart := queryPath
	queryPart := ""
	if idx := strings.Index(queryPath, "?"); idx >= 0 {
		pathPart = queryPath[:idx]
		queryPart = queryPath[idx+1:]
	}

	if strings.Trim(pathPart, "/") == "" {
		errs = append(errs, "collection name is missing")
	}
	if strings.ContainsAny(pathPart, " \t") {
		errs = append(errs, "collection path must not contain whitespace")
	}

	if queryPart != "" {
		values, err := url.ParseQuery(queryPart)
		if err != nil {
			errs = append(errs, fmt.Sprintf("query string does not parse: %v", err))
		} else {
			if top := values.Get("$top"); top != "" {
				if n, convErr := strconv.Atoi(top); convErr != nil || n <= 0 {
					errs = append(errs, fmt.Sprintf("$top must be a positive integer, got %q", top))
				}
			}
			if view := values.Get("savedQuery"); view != "" {
				if id, parseErr := uuid.Parse(view); parseErr != nil || id == uuid.Nil {
					errs = append(errs, fmt.Sprintf("savedQuery is not a usable view id: %q", view))
				}
			}
			if filter := values.Get("$filter"); quotedGUIDPattern.MatchString(filter) {
				errs = append(errs, "GUID literals in $filter must not be quoted")
			}
		}
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
