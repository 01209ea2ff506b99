// Package backendtest provides an in-memory record service for tests.
package backendtest

import (
	"context"
	stdjson "encoding/json"
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cast"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/pkg/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// User is an account known to the fake service.
type User struct {
	Code        string
	Token       string
	Role        string
	CompanyName string
	ClientIDs   []string
	ExpiresAt   int64
}

// Fake implements backend.Caller over in-memory tables. Rows use the same
// spreadsheet column names as the real service.
type Fake struct {
	mu sync.Mutex

	Users         map[string]User // keyed by lowercase email
	Records       map[string]map[string]any
	Mirrors       map[string]model.FieldSnapshot
	Notes         map[string][]map[string]any
	Orders        map[string][]map[string]any
	Subscriptions map[string][]map[string]any

	// Fail forces an error for the named action.
	Fail map[string]error

	calls []string
	nextN int
}

var _ backend.Caller = (*Fake)(nil)

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		Users:         map[string]User{},
		Records:       map[string]map[string]any{},
		Mirrors:       map[string]model.FieldSnapshot{},
		Notes:         map[string][]map[string]any{},
		Orders:        map[string][]map[string]any{},
		Subscriptions: map[string][]map[string]any{},
		Fail:          map[string]error{},
	}
}

// AddRecord registers an onboarding record with an initial snapshot.
func (f *Fake) AddRecord(clientID, company, manufacturer string, snap model.FieldSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Records[clientID] = map[string]any{
		"Client ID":    clientID,
		"Company":      company,
		"Manufacturer": manufacturer,
		"Status":       "active",
		"Created At":   "2024-01-02T10:00:00Z",
		"Updated At":   "",
	}
	if snap == nil {
		snap = model.FieldSnapshot{}
	}
	f.Mirrors[clientID] = snap
}

// Calls returns the actions received so far.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how often action was received.
func (f *Fake) CallCount(action string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == action {
			n++
		}
	}
	return n
}

// Mirror returns a copy of clientID's current snapshot.
func (f *Fake) Mirror(clientID string) model.FieldSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := model.FieldSnapshot{}
	for k, v := range f.Mirrors[clientID] {
		out[k] = v
	}
	return out
}

// Call implements backend.Caller.
func (f *Fake) Call(ctx context.Context, action string, params map[string]any) (stdjson.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, action)

	if err := f.Fail[action]; err != nil {
		return nil, err
	}

	switch action {
	case backend.ActionRequestOTP:
		if _, ok := f.Users[strings.ToLower(cast.ToString(params["email"]))]; !ok {
			return nil, remote(action, backend.CodeNotFound, "unknown email")
		}
		return encode(map[string]any{"sent": true})
	case backend.ActionVerifyOTP:
		email := strings.ToLower(cast.ToString(params["email"]))
		u, ok := f.Users[email]
		if !ok || u.Code != cast.ToString(params["code"]) {
			return nil, remote(action, backend.CodeInvalidOTP, "invalid code")
		}
		return encode(map[string]any{
			"email":       email,
			"token":       u.Token,
			"role":        u.Role,
			"companyName": u.CompanyName,
			"clientIds":   u.ClientIDs,
			"expiresAt":   u.ExpiresAt,
		})
	}

	user, ok := f.userByToken(cast.ToString(params["token"]))
	if !ok {
		return nil, remote(action, backend.CodeUnauthorized, "invalid token")
	}

	if action == backend.ActionListOnboardings {
		rows := []map[string]any{}
		for id, row := range f.Records {
			if f.allowed(user, id) {
				rows = append(rows, row)
			}
		}
		return encode(rows)
	}

	clientID := cast.ToString(params["clientId"])
	if _, ok := f.Records[clientID]; !ok {
		return nil, remote(action, backend.CodeNotFound, "no record "+clientID)
	}
	if !f.allowed(user, clientID) {
		return nil, remote(action, backend.CodeForbidden, "forbidden")
	}

	switch action {
	case backend.ActionGetOnboarding:
		return encode(f.Records[clientID])
	case backend.ActionGetMirror:
		return encode(f.Mirrors[clientID])
	case backend.ActionUpdateField:
		field := cast.ToString(params["field"])
		if field == "" {
			return nil, remote(action, backend.CodeInvalidInput, "missing field")
		}
		if f.Mirrors[clientID] == nil {
			f.Mirrors[clientID] = model.FieldSnapshot{}
		}
		f.Mirrors[clientID][field] = params["value"]
		return encode(map[string]any{"updated": true})
	case backend.ActionListNotes:
		return encode(nonNil(f.Notes[clientID]))
	case backend.ActionAddNote:
		f.nextN++
		row := map[string]any{
			"Note ID":    fmt.Sprintf("N%d", f.nextN),
			"Client ID":  clientID,
			"Author":     params["author"],
			"Text":       params["text"],
			"Created At": "2024-03-01T09:30:00Z",
		}
		f.Notes[clientID] = append(f.Notes[clientID], row)
		return encode(row)
	case backend.ActionListIONOrders:
		return encode(nonNil(f.Orders[clientID]))
	case backend.ActionListIONSubscriptions:
		return encode(nonNil(f.Subscriptions[clientID]))
	}
	return nil, remote(action, backend.CodeInvalidInput, "unknown action")
}

func (f *Fake) userByToken(token string) (User, bool) {
	if token == "" {
		return User{}, false
	}
	for _, u := range f.Users {
		if u.Token == token {
			return u, true
		}
	}
	return User{}, false
}

func (f *Fake) allowed(u User, clientID string) bool {
	if strings.EqualFold(u.Role, "admin") {
		return true
	}
	for _, id := range u.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

func nonNil(rows []map[string]any) []map[string]any {
	if rows == nil {
		return []map[string]any{}
	}
	return rows
}

func remote(action, code, msg string) error {
	return &backend.RemoteError{Action: action, Code: code, Message: msg}
}

func encode(v any) (stdjson.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return stdjson.RawMessage(b), nil
}

// Fixture accounts and records created by NewSeeded.
const (
	PartnerEmail = "partner@acme.example"
	PartnerCode  = "123456"
	PartnerToken = "tok-partner"
	AdminEmail   = "ops@portal.example"
	AdminCode    = "654321"
	AdminToken   = "tok-admin"
)

// NewSeeded returns a Fake with one partner owning C1 (AWS, step 1 done)
// and an admin. C2 (Microsoft, untouched) belongs to nobody.
func NewSeeded() *Fake {
	f := New()
	f.Users[PartnerEmail] = User{
		Code:        PartnerCode,
		Token:       PartnerToken,
		Role:        "partner",
		CompanyName: "Acme GmbH",
		ClientIDs:   []string{"C1"},
	}
	f.Users[AdminEmail] = User{
		Code:  AdminCode,
		Token: AdminToken,
		Role:  "admin",
	}
	f.AddRecord("C1", "Acme GmbH", "Amazon Web Services", model.FieldSnapshot{
		"Kickoff Call Done":         true,
		"Company Legal Name":        "Acme GmbH",
		"VAT ID":                    "DE123",
		"Billing Address Confirmed": "true",
		"Reseller Agreement Signed": "true",
		"ION Customer ID":           "ION-42",
	})
	f.AddRecord("C2", "Globex", "Microsoft CSP", nil)
	f.Orders["C1"] = []map[string]any{{
		"Order ID": "O-1", "Client ID": "C1", "Product": "EC2 Reserved", "Quantity": "3",
		"Status": "open", "Total": "1200.50", "Currency": "EUR", "Ordered At": "2024-02-10T08:00:00Z",
	}}
	f.Subscriptions["C1"] = []map[string]any{{
		"Subscription ID": "S-1", "Client ID": "C1", "Product": "Support Business", "Seats": 10,
		"Status": "active", "Billing Cycle": "monthly", "Renews At": "2025-02-10T00:00:00Z",
	}}
	return f
}
