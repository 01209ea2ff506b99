package backend

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/me/partnerportal/pkg/model"
)

// Action names understood by the record service.
const (
	ActionRequestOTP           = "requestOtp"
	ActionVerifyOTP            = "verifyOtp"
	ActionListOnboardings      = "listOnboardings"
	ActionGetOnboarding        = "getOnboarding"
	ActionGetMirror            = "getMirror"
	ActionUpdateField          = "updateField"
	ActionListNotes            = "listNotes"
	ActionAddNote              = "addNote"
	ActionListIONOrders        = "listIonOrders"
	ActionListIONSubscriptions = "listIonSubscriptions"
)

// Client is a typed wrapper over a Caller. A Client carries at most one
// backend token; use WithToken to derive a per-session client.
type Client struct {
	caller Caller
	token  string
	logger *slog.Logger
}

// NewClient creates an unauthenticated client.
func NewClient(caller Caller, logger *slog.Logger) *Client {
	return &Client{caller: caller, logger: logger.With("component", "backend-client")}
}

// WithToken returns a copy of c that sends token with every call.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) call(ctx context.Context, action string, params map[string]any) (stdjson.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	if c.token != "" {
		params["token"] = c.token
	}
	return c.caller.Call(ctx, action, params)
}

// identityWire is the verifyOtp payload.
type identityWire struct {
	Email       string   `json:"email"`
	Token       string   `json:"token"`
	Role        string   `json:"role"`
	CompanyName string   `json:"companyName"`
	ClientIDs   []string `json:"clientIds"`
	ExpiresAt   int64    `json:"expiresAt"`
}

// RequestOTP asks the backend to email a one-time code to email.
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	_, err := c.call(ctx, ActionRequestOTP, map[string]any{"email": email})
	return err
}

// VerifyOTP exchanges an emailed code for a backend identity.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*model.Identity, error) {
	raw, err := c.call(ctx, ActionVerifyOTP, map[string]any{"email": email, "code": code})
	if err != nil {
		return nil, err
	}
	var w identityWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if w.Token == "" {
		return nil, fmt.Errorf("decode identity: empty token")
	}
	role := model.RolePartner
	if strings.EqualFold(w.Role, string(model.RoleAdmin)) {
		role = model.RoleAdmin
	}
	if w.Email == "" {
		w.Email = email
	}
	return &model.Identity{
		Email:       strings.ToLower(w.Email),
		Token:       w.Token,
		Role:        role,
		CompanyName: w.CompanyName,
		ClientIDs:   w.ClientIDs,
		ExpiresAt:   w.ExpiresAt,
	}, nil
}

// ListOnboardings returns every record visible to the token.
func (c *Client) ListOnboardings(ctx context.Context) ([]model.Onboarding, error) {
	raw, err := c.call(ctx, ActionListOnboardings, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Onboarding](raw)
}

// GetOnboarding returns one record.
func (c *Client) GetOnboarding(ctx context.Context, clientID string) (*model.Onboarding, error) {
	raw, err := c.call(ctx, ActionGetOnboarding, map[string]any{"clientId": clientID})
	if err != nil {
		return nil, err
	}
	var o model.Onboarding
	if err := decodeRow(raw, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetMirror fetches the full checklist field snapshot for clientID.
func (c *Client) GetMirror(ctx context.Context, clientID string) (model.FieldSnapshot, error) {
	raw, err := c.call(ctx, ActionGetMirror, map[string]any{"clientId": clientID})
	if err != nil {
		return nil, err
	}
	snap := model.FieldSnapshot{}
	if len(raw) == 0 || string(raw) == "null" {
		return snap, nil
	}
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode mirror: %w", err)
	}
	return snap, nil
}

// UpdateField writes one checklist field. Boolean values are sent as JSON
// true/false.
func (c *Client) UpdateField(ctx context.Context, clientID, fieldKey string, value any) error {
	_, err := c.call(ctx, ActionUpdateField, map[string]any{
		"clientId": clientID,
		"field":    fieldKey,
		"value":    value,
	})
	return err
}

// ListNotes returns the notes of clientID, oldest first as stored.
func (c *Client) ListNotes(ctx context.Context, clientID string) ([]model.Note, error) {
	raw, err := c.call(ctx, ActionListNotes, map[string]any{"clientId": clientID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.Note](raw)
}

// AddNote appends a note and returns it as stored by the backend.
func (c *Client) AddNote(ctx context.Context, clientID, author, text string) (*model.Note, error) {
	raw, err := c.call(ctx, ActionAddNote, map[string]any{
		"clientId": clientID,
		"author":   author,
		"text":     text,
	})
	if err != nil {
		return nil, err
	}
	n := model.Note{ClientID: clientID, Author: author, Text: text}
	if len(raw) > 0 && string(raw) != "null" {
		if err := decodeRow(raw, &n); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

// ListIONOrders returns ION orders for clientID.
func (c *Client) ListIONOrders(ctx context.Context, clientID string) ([]model.IONOrder, error) {
	raw, err := c.call(ctx, ActionListIONOrders, map[string]any{"clientId": clientID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.IONOrder](raw)
}

// ListIONSubscriptions returns ION subscriptions for clientID.
func (c *Client) ListIONSubscriptions(ctx context.Context, clientID string) ([]model.IONSubscription, error) {
	raw, err := c.call(ctx, ActionListIONSubscriptions, map[string]any{"clientId": clientID})
	if err != nil {
		return nil, err
	}
	return decodeRows[model.IONSubscription](raw)
}

// decodeRows decodes a JSON array of spreadsheet rows into typed values.
func decodeRows[T any](raw stdjson.RawMessage) ([]T, error) {
	var rows []map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
	}
	out := make([]T, 0, len(rows))
	for i, row := range rows {
		var v T
		if err := decodeMap(row, &v); err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeRow(raw stdjson.RawMessage, out any) error {
	var row map[string]any
	if err := json.Unmarshal(raw, &row); err != nil {
		return fmt.Errorf("decode row: %w", err)
	}
	return decodeMap(row, out)
}

func decodeMap(row map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			blankTimeHook,
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(row)
}

var timeType = reflect.TypeOf(time.Time{})

// blankTimeHook maps empty spreadsheet cells to the zero time.
func blankTimeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	if strings.TrimSpace(data.(string)) == "" {
		return time.Time{}, nil
	}
	return data, nil
}
