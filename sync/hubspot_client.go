package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/carlmjohnson/requests"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	opRefreshToken          = "token refresh"
	opBatchUpdateObjects    = "batch update objects"
	opBatchCreateProperties = "batch create properties"
	opCreatePropertyGroup   = "create property group"
)

// HubspotAPI is the subset of HubSpot operations the sink depends on.
type HubspotAPI interface {
	CreatePropertyGroup(ctx context.Context, objectType ObjectType, name, label string) error
	BatchCreateProperties(ctx context.Context, objectType ObjectType, properties []PropertyDefinition) error
	BatchUpdateObjects(ctx context.Context, objectType ObjectType, inputs []ObjectUpdate) error
}

// HubspotClient handles all HubSpot API operations.
// It embeds *SyncContext for shared sync configuration.
type HubspotClient struct {
	*SyncContext
	dispatcher *Dispatcher
	auth       *AuthenticationHandler
}

var _ HubspotAPI = (*HubspotClient)(nil)

// NewHubspotClient creates a client whose calls are authenticated by its own
// AuthenticationHandler and retried by dispatcher.
func NewHubspotClient(sc *SyncContext, dispatcher *Dispatcher) *HubspotClient {
	if dispatcher == nil {
		dispatcher = NewDispatcher(sc.Logger)
	}
	c := &HubspotClient{SyncContext: sc, dispatcher: dispatcher}
	c.auth = NewAuthenticationHandler(sc, c)
	return c
}

// Auth returns the handler that owns the client's access token.
func (c *HubspotClient) Auth() *AuthenticationHandler {
	return c.auth
}

// HubspotAPIBuilder returns a new requests.Builder configured for the HubSpot API.
func (c *HubspotClient) HubspotAPIBuilder() *requests.Builder {
	endpoint := c.Config.API.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	result := requests.
		URL(endpoint).
		Client(&http.Client{Timeout: HTTPRequestTimeout})
	if c.Config.API.UserAgent != "" {
		result = result.UserAgent(c.Config.API.UserAgent)
	}
	if c.RecordRequests {
		result = result.Transport(requests.Record(nil, path.Join(c.RecordingPath, string(c.Config.ObjectType))))
	}
	return result
}

// RefreshToken exchanges the configured refresh token for a new access token.
// The returned token carries ExpiresIn; the caller turns that into an expiry.
func (c *HubspotClient) RefreshToken(ctx context.Context, credentials Credentials) (*oauth2.Token, error) {
	var token *oauth2.Token
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", credentials.ClientID)
	form.Set("client_secret", credentials.ClientSecret)
	form.Set("refresh_token", credentials.RefreshToken)

	err := c.dispatcher.Do(ctx, opRefreshToken, func(ctx context.Context) Outcome {
		ex, err := fetch(ctx, c.HubspotAPIBuilder().
			Path("/oauth/v1/token").
			Post().
			BodyForm(form))
		if out, done := transientOutcome(ctx, opRefreshToken, ex, err); done {
			return out
		}
		if ex.StatusCode >= http.StatusBadRequest {
			// the form holds the client secret so it is not attached
			return Fatal(&APIError{Operation: opRefreshToken, StatusCode: ex.StatusCode, Body: string(ex.Body)})
		}

		body := string(ex.Body)
		if !gjson.Valid(body) {
			return Fatal(fmt.Errorf("%s: invalid json response", opRefreshToken))
		}
		res := gjson.Parse(body)
		accessToken := res.Get("access_token")
		if !accessToken.Exists() || accessToken.String() == "" {
			return Fatal(fmt.Errorf("%s: response is missing access_token", opRefreshToken))
		}
		token = &oauth2.Token{
			AccessToken:  accessToken.String(),
			TokenType:    "Bearer",
			RefreshToken: res.Get("refresh_token").String(),
			ExpiresIn:    res.Get("expires_in").Int(),
		}
		return Success()
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// BatchUpdateObjects writes properties to existing objects of the given type.
// HubSpot answers 409 when the update is already satisfied; that counts as success.
func (c *HubspotClient) BatchUpdateObjects(ctx context.Context, objectType ObjectType, inputs []ObjectUpdate) error {
	collection, err := objectType.Collection()
	if err != nil {
		return err
	}
	req := BatchUpdateRequest{Inputs: inputs}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid %s request: %w", opBatchUpdateObjects, err)
	}
	payload, err := json.Marshal(&req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", opBatchUpdateObjects, err)
	}
	return c.postAuthenticated(ctx, opBatchUpdateObjects, fmt.Sprintf("/crm/v3/objects/%s/batch/update", collection), payload)
}

// BatchCreateProperties provisions custom properties on the given object type.
func (c *HubspotClient) BatchCreateProperties(ctx context.Context, objectType ObjectType, properties []PropertyDefinition) error {
	collection, err := objectType.Collection()
	if err != nil {
		return err
	}
	req := BatchCreatePropertiesRequest{Inputs: properties}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid %s request: %w", opBatchCreateProperties, err)
	}
	payload, err := json.Marshal(&req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", opBatchCreateProperties, err)
	}
	return c.postAuthenticated(ctx, opBatchCreateProperties, fmt.Sprintf("/crm/v3/properties/%s/batch/create", collection), payload)
}

// CreatePropertyGroup provisions the property group owned properties live in.
func (c *HubspotClient) CreatePropertyGroup(ctx context.Context, objectType ObjectType, name, label string) error {
	collection, err := objectType.Collection()
	if err != nil {
		return err
	}
	req := CreatePropertyGroupRequest{Name: name, Label: label}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid %s request: %w", opCreatePropertyGroup, err)
	}
	payload, err := json.Marshal(&req)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", opCreatePropertyGroup, err)
	}
	return c.postAuthenticated(ctx, opCreatePropertyGroup, fmt.Sprintf("/crm/v3/properties/%s/groups", collection), payload)
}

// postAuthenticated POSTs payload through the dispatcher. Headers are fetched on
// every attempt so a retry that outlives the token picks up a fresh one.
// A 409 is success: updates are upserts and provisioning is idempotent.
func (c *HubspotClient) postAuthenticated(ctx context.Context, operation string, p string, payload []byte) error {
	return c.dispatcher.Do(ctx, operation, func(ctx context.Context) Outcome {
		headers, err := c.auth.AuthHeaders(ctx)
		if err != nil {
			return Fatal(err)
		}
		rb := c.HubspotAPIBuilder().
			Path(p).
			Post().
			BodyBytes(payload)
		for k, v := range headers {
			rb = rb.Header(k, v...)
		}

		ex, err := fetch(ctx, rb)
		if out, done := transientOutcome(ctx, operation, ex, err); done {
			return out
		}
		switch {
		case ex.StatusCode == http.StatusConflict:
			c.Logger.Info("HubSpot reported conflict, treating as already applied",
				zap.String("operation", operation),
				zap.String("body", truncate(string(ex.Body), maxLoggedPayload)),
			)
			return Success()
		case ex.StatusCode >= http.StatusBadRequest:
			return Fatal(&APIError{
				Operation:  operation,
				StatusCode: ex.StatusCode,
				Body:       string(ex.Body),
				Payload:    payload,
			})
		}
		return Success()
	})
}
