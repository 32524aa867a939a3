// Package dataverse is a read-only client for the Web API surface this
// engine consumes: entity/attribute metadata, relationship descriptors, and
// record list queries. All calls flow through the shared rate limiter, and
// transient failures are retried with backoff.
package dataverse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/gridlink-io/gridlink-engine/pkg/logging"
	"github.com/gridlink-io/gridlink-engine/pkg/models"
	"github.com/gridlink-io/gridlink-engine/pkg/ratelimit"
	"github.com/gridlink-io/gridlink-engine/pkg/retry"
)

// Client talks to one Web API endpoint. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	limiter    *ratelimit.Limiter
	retryCfg   *retry.Config
	logger     *zap.Logger
}

// NewClient creates a Web API client. baseURL is the API root (including the
// version segment); token is forwarded as a bearer token on every request.
func NewClient(baseURL, token string, timeout time.Duration, limiter *ratelimit.Limiter, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
		limiter:    limiter,
		retryCfg:   retry.DefaultConfig(),
		logger:     logger.Named("dataverse"),
	}
}

// get issues one throttled, retried GET and decodes a 200 response into out.
// A 404 returns apperrors-style absence to the caller via the notFound flag;
// other non-2xx statuses surface as *RequestError.
func (c *Client) get(ctx context.Context, path string, out any) (notFound bool, err error) {
	parsed, err := url.Parse(c.baseURL + path)
	if err != nil {
		return false, fmt.Errorf("parse request url: %w", err)
	}
	// Queries are built human-readable (bare spaces in $filter); encode them
	// before they hit the wire.
	parsed.RawQuery = parsed.Query().Encode()
	fullURL := parsed.String()

	err = c.limiter.Do(ctx, func() error {
		return retry.DoIfRetryable(ctx, c.retryCfg, func() error {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
			if reqErr != nil {
				return fmt.Errorf("create request: %w", reqErr)
			}
			req.Header.Set("Accept", "application/json")
			req.Header.Set("OData-MaxVersion", "4.0")
			req.Header.Set("OData-Version", "4.0")
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}

			c.logger.Debug("GET", zap.String("url", logging.SanitizeURL(fullURL)))

			resp, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return fmt.Errorf("request failed: %w", doErr)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				notFound = true
				io.Copy(io.Discard, resp.Body)
				return nil
			}

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
				return &RequestError{
					StatusCode: resp.StatusCode,
					Status:     resp.Status,
					Header:     resp.Header.Clone(),
					Body:       body,
				}
			}

			if out == nil {
				io.Copy(io.Discard, resp.Body)
				return nil
			}
			if decErr := json.NewDecoder(resp.Body).Decode(out); decErr != nil {
				return fmt.Errorf("decode response: %w", decErr)
			}
			return nil
		})
	})
	return notFound, err
}

// GetEntityDefinition fetches one entity definition. Returns (nil, nil) when
// the entity does not exist; absence is not an error.
func (c *Client) GetEntityDefinition(ctx context.Context, logicalName string) (*EntityDefinition, error) {
	path := fmt.Sprintf(
		"/EntityDefinitions(LogicalName='%s')?$select=LogicalName,DisplayName,EntitySetName,PrimaryIdAttribute,PrimaryNameAttribute",
		url.PathEscape(logicalName),
	)

	var def EntityDefinition
	notFound, err := c.get(ctx, path, &def)
	if err != nil {
		return nil, fmt.Errorf("get entity definition %q: %w", logicalName, err)
	}
	if notFound {
		return nil, nil
	}
	return &def, nil
}

// GetLookupAttributes lists the lookup-typed attributes of an entity.
func (c *Client) GetLookupAttributes(ctx context.Context, logicalName string) ([]AttributeDefinition, error) {
	path := fmt.Sprintf(
		"/EntityDefinitions(LogicalName='%s')/Attributes?$filter=AttributeType eq 'Lookup'&$select=LogicalName,DisplayName",
		url.PathEscape(logicalName),
	)

	var list odataList[AttributeDefinition]
	notFound, err := c.get(ctx, path, &list)
	if err != nil {
		return nil, fmt.Errorf("get lookup attributes for %q: %w", logicalName, err)
	}
	if notFound {
		return nil, nil
	}
	return list.Value, nil
}

// GetLookupTargets resolves the target entities of one lookup attribute.
// Returns (nil, nil) when the attribute cast does not exist; an empty target
// list is a valid state, not an error.
func (c *Client) GetLookupTargets(ctx context.Context, entityName, attributeName string) ([]string, error) {
	path := fmt.Sprintf(
		"/EntityDefinitions(LogicalName='%s')/Attributes(LogicalName='%s')/Microsoft.Dynamics.CRM.LookupAttributeMetadata?$select=Targets",
		url.PathEscape(entityName), url.PathEscape(attributeName),
	)

	var targets lookupTargets
	notFound, err := c.get(ctx, path, &targets)
	if err != nil {
		return nil, fmt.Errorf("get lookup targets for %s.%s: %w", entityName, attributeName, err)
	}
	if notFound {
		return nil, nil
	}
	return targets.Targets, nil
}

// GetOneToManyRelationships lists 1:N relationship descriptors for an entity.
func (c *Client) GetOneToManyRelationships(ctx context.Context, logicalName string) ([]RelationshipDescriptor, error) {
	return c.getRelationships(ctx, logicalName, "OneToManyRelationships")
}

// GetManyToOneRelationships lists N:1 relationship descriptors for an entity.
func (c *Client) GetManyToOneRelationships(ctx context.Context, logicalName string) ([]RelationshipDescriptor, error) {
	return c.getRelationships(ctx, logicalName, "ManyToOneRelationships")
}

func (c *Client) getRelationships(ctx context.Context, logicalName, collection string) ([]RelationshipDescriptor, error) {
	path := fmt.Sprintf("/EntityDefinitions(LogicalName='%s')/%s", url.PathEscape(logicalName), collection)

	var list odataList[RelationshipDescriptor]
	notFound, err := c.get(ctx, path, &list)
	if err != nil {
		return nil, fmt.Errorf("get %s for %q: %w", collection, logicalName, err)
	}
	if notFound {
		return nil, nil
	}
	return list.Value, nil
}

// ListRecords executes a list query built by the query synthesizer. The
// queryPath must start with "/". Non-2xx responses surface as *RequestError
// for the error analyzer to classify.
func (c *Client) ListRecords(ctx context.Context, queryPath string) (*RecordPage, error) {
	var page struct {
		Value    []models.Record `json:"value"`
		NextLink string          `json:"@odata.nextLink"`
	}
	notFound, err := c.get(ctx, queryPath, &page)
	if err != nil {
		return nil, err
	}
	if notFound {
		return nil, &RequestError{StatusCode: http.StatusNotFound, Status: "404 Not Found"}
	}

	return &RecordPage{Records: page.Value, NextLink: page.NextLink}, nil
}
