package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/backend/backendtest"
	"github.com/me/partnerportal/internal/cache"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/internal/progress"
	"github.com/me/partnerportal/internal/store"
	"github.com/me/partnerportal/pkg/model"
)

type fixture struct {
	svc   *Service
	fake  *backendtest.Fake
	store *store.SQLiteStore
	cache *cache.MemoryCache
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	logger := logging.Discard()
	st, err := store.NewSQLiteStore(":memory:", logger)
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	c := cache.NewMemoryCache(ctx, time.Minute, time.Minute)

	fake := backendtest.NewSeeded()
	opts = append([]Option{WithCache(c)}, opts...)
	svc := New(backend.NewClient(fake, logger), st, logger, opts...)
	return &fixture{svc: svc, fake: fake, store: st, cache: c}
}

func partnerSession() *model.Session {
	return &model.Session{
		ID:        "sess_p",
		Email:     backendtest.PartnerEmail,
		Role:      model.RolePartner,
		ClientIDs: []string{"C1"},
		Token:     backendtest.PartnerToken,
	}
}

func adminSession() *model.Session {
	return &model.Session{
		ID:    "sess_a",
		Email: backendtest.AdminEmail,
		Role:  model.RoleAdmin,
		Token: backendtest.AdminToken,
	}
}

func TestRequestOTP_InvalidEmail(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RequestOTP(context.Background(), "not-an-email")

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "email", ve.Fields[0].Field)
	assert.Zero(t, f.fake.CallCount(backend.ActionRequestOTP))
}

func TestRequestOTP_NormalizesEmail(t *testing.T) {
	f := newFixture(t)
	email, err := f.svc.RequestOTP(context.Background(), "  Partner@ACME.example ")
	require.NoError(t, err)
	assert.Equal(t, backendtest.PartnerEmail, email)
}

func TestRequestOTP_Throttled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OTPMaxRequests = 2
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.RequestOTP(ctx, backendtest.PartnerEmail)
		require.NoError(t, err)
	}
	_, err := f.svc.RequestOTP(ctx, backendtest.PartnerEmail)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 2, f.fake.CallCount(backend.ActionRequestOTP))

	// Requests outside the window no longer count.
	f.svc.now = func() time.Time { return time.Now().Add(cfg.OTPWindow + time.Minute) }
	_, err = f.svc.RequestOTP(ctx, backendtest.PartnerEmail)
	assert.NoError(t, err)
}

func TestVerifyOTP_Partner(t *testing.T) {
	f := newFixture(t)
	ident, err := f.svc.VerifyOTP(context.Background(), backendtest.PartnerEmail, backendtest.PartnerCode)
	require.NoError(t, err)
	assert.Equal(t, model.RolePartner, ident.Role)
	assert.Equal(t, []string{"C1"}, ident.ClientIDs)
	assert.Equal(t, backendtest.PartnerToken, ident.Token)
}

func TestVerifyOTP_ConfiguredAdmin(t *testing.T) {
	f := newFixture(t, WithAdmins(NewAdminConfig("PORTAL_TEST_UNSET_ADMINS", []string{"Partner@Acme.example"})))
	ident, err := f.svc.VerifyOTP(context.Background(), backendtest.PartnerEmail, backendtest.PartnerCode)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, ident.Role)
}

func TestVerifyOTP_CodeFormat(t *testing.T) {
	f := newFixture(t)
	for _, code := range []string{"", "12", "123456789", "12ab56"} {
		_, err := f.svc.VerifyOTP(context.Background(), backendtest.PartnerEmail, code)
		var ve *ValidationError
		assert.ErrorAs(t, err, &ve, "code %q", code)
	}
	assert.Zero(t, f.fake.CallCount(backend.ActionVerifyOTP))
}

func TestVerifyOTP_WrongCodeLocksOut(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxVerifyAttempts = 3
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err := f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, backendtest.PartnerCode)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, f.fake.CallCount(backend.ActionVerifyOTP))
}

func TestVerifyOTP_SuccessClearsFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, "000000")
	require.ErrorIs(t, err, ErrInvalidCode)
	_, err = f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, backendtest.PartnerCode)
	require.NoError(t, err)

	n, err := f.store.OTPFailures(ctx, backendtest.PartnerEmail, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestVerifyOTP_NewCodeKeepsLockout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxVerifyAttempts = 3
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()

	_, err := f.svc.RequestOTP(ctx, backendtest.PartnerEmail)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)
	}

	_, err = f.svc.RequestOTP(ctx, backendtest.PartnerEmail)
	require.NoError(t, err)
	_, err = f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, "000000")
	assert.ErrorIs(t, err, ErrRateLimited)
	_, err = f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, backendtest.PartnerCode)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, f.fake.CallCount(backend.ActionVerifyOTP))
}

func TestVerifyOTP_FailuresSpreadAcrossCodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxVerifyAttempts = 4
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.RequestOTP(ctx, backendtest.PartnerEmail)
		require.NoError(t, err)
		for j := 0; j < 2; j++ {
			_, err = f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, "000000")
			require.ErrorIs(t, err, ErrInvalidCode)
		}
	}
	_, err := f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, backendtest.PartnerCode)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestVerifyOTP_LockoutEndsWithWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxVerifyAttempts = 2
	f := newFixture(t, WithConfig(cfg))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, "000000")
		require.ErrorIs(t, err, ErrInvalidCode)
	}
	_, err := f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, backendtest.PartnerCode)
	require.ErrorIs(t, err, ErrRateLimited)

	f.svc.now = func() time.Time { return time.Now().Add(cfg.OTPWindow + time.Minute) }
	_, err = f.svc.VerifyOTP(ctx, backendtest.PartnerEmail, backendtest.PartnerCode)
	assert.NoError(t, err)
}

func TestOnboardings_Partner(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.Onboardings(context.Background(), partnerSession())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "C1", list[0].Onboarding.ClientID)
	assert.Equal(t, model.ManufacturerAWS, list[0].Manufacturer)
	assert.Equal(t, 36, list[0].OverallPercent) // 4 of 11
}

func TestOnboardings_AdminCached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	list, err := f.svc.Onboardings(ctx, adminSession())
	require.NoError(t, err)
	require.Len(t, list, 2)
	byID := map[string]Summary{}
	for _, s := range list {
		byID[s.Onboarding.ClientID] = s
	}
	assert.Equal(t, model.ManufacturerMicrosoft, byID["C2"].Manufacturer)
	assert.Zero(t, byID["C2"].OverallPercent)

	_, err = f.svc.Onboardings(ctx, adminSession())
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.CallCount(backend.ActionListOnboardings))
	assert.Equal(t, 4, f.fake.CallCount(backend.ActionGetMirror))
}

func TestDetail_Forbidden(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Detail(context.Background(), partnerSession(), "C2")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, f.fake.Calls())
}

func TestDetail_NotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Detail(context.Background(), adminSession(), "C404")
	assert.True(t, backend.IsNotFound(err), "err = %v", err)
}

func TestDetail(t *testing.T) {
	f := newFixture(t)
	d, err := f.svc.Detail(context.Background(), partnerSession(), "C1")
	require.NoError(t, err)

	assert.Equal(t, "Acme GmbH", d.Onboarding.CompanyName)
	assert.Equal(t, model.ManufacturerAWS, d.Progress.Manufacturer)
	require.Len(t, d.Progress.Steps, 3)
	assert.Equal(t, 100, d.Progress.Steps[0].Percent)
	assert.Equal(t, "step2_aws", d.Progress.Steps[1].Key)
	assert.True(t, d.Progress.Steps[2].Locked)

	var current string
	for _, e := range d.Timeline {
		if e.Current {
			current = e.SubstepKey
		}
	}
	assert.Equal(t, "aws_account", current)
}

func TestUpdateField(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.UpdateField(context.Background(), partnerSession(), "C1", "AWS Account ID", "123456789012")
	require.NoError(t, err)
	assert.Equal(t, 45, p.OverallPercent)
	assert.Equal(t, "123456789012", f.fake.Mirror("C1")["AWS Account ID"])
}

func TestUpdateField_BooleanCoerced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.UpdateField(ctx, partnerSession(), "C1", "AWS Account ID", "1")
	require.NoError(t, err)
	_, err = f.svc.UpdateField(ctx, partnerSession(), "C1", "APN Registration Complete", "true")
	require.NoError(t, err)
	assert.Equal(t, true, f.fake.Mirror("C1")["APN Registration Complete"])
}

func TestUpdateField_Refused(t *testing.T) {
	tests := []struct {
		name   string
		field  string
		value  any
		reason string
	}{
		{"step locked", "Go-Live Approved", true, progress.ReasonStepLocked},
		{"substep disabled", "Billing Transfer & Payer Setup", "true", progress.ReasonSubstepDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.svc.UpdateField(context.Background(), partnerSession(), "C1", tt.field, tt.value)

			var ge *progress.GateError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tt.reason, ge.Reason)
			assert.Zero(t, f.fake.CallCount(backend.ActionUpdateField))
		})
	}
}

func TestUpdateField_ClearingAlwaysAllowed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateField(context.Background(), partnerSession(), "C1", "Go-Live Approved", false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fake.CallCount(backend.ActionUpdateField))
}

func TestUpdateField_BadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.UpdateField(ctx, partnerSession(), "C1", "MPN ID", "x")
	var ue *progress.UnknownFieldError
	assert.ErrorAs(t, err, &ue)

	_, err = f.svc.UpdateField(ctx, partnerSession(), "C1", "APN Registration Complete", "yes")
	var ie *progress.InvalidValueError
	assert.ErrorAs(t, err, &ie)

	_, err = f.svc.UpdateField(ctx, partnerSession(), "C2", "Kickoff Call Done", true)
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Zero(t, f.fake.CallCount(backend.ActionUpdateField))
}

func TestUpdateField_InvalidatesClientCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.IONOrders(ctx, partnerSession(), "C1")
	require.NoError(t, err)
	_, err = f.svc.IONOrders(ctx, partnerSession(), "C1")
	require.NoError(t, err)
	require.Equal(t, 1, f.fake.CallCount(backend.ActionListIONOrders))

	_, err = f.svc.UpdateField(ctx, partnerSession(), "C1", "AWS Account ID", "1")
	require.NoError(t, err)

	_, err = f.svc.IONOrders(ctx, partnerSession(), "C1")
	require.NoError(t, err)
	assert.Equal(t, 2, f.fake.CallCount(backend.ActionListIONOrders))
}

func TestNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddNote(ctx, partnerSession(), "C1", "   ")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	note, err := f.svc.AddNote(ctx, partnerSession(), "C1", " Contract sent to legal ")
	require.NoError(t, err)
	assert.Equal(t, backendtest.PartnerEmail, note.Author)
	assert.Equal(t, "Contract sent to legal", note.Text)

	notes, err := f.svc.Notes(ctx, partnerSession(), "C1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "N1", notes[0].ID)
	assert.False(t, notes[0].CreatedAt.IsZero())
}

func TestION(t *testing.T) {
	f := newFixture(t)
	ion, err := f.svc.ION(context.Background(), partnerSession(), "C1")
	require.NoError(t, err)
	require.Len(t, ion.Orders, 1)
	assert.Equal(t, 3, ion.Orders[0].Quantity)
	assert.InDelta(t, 1200.50, ion.Orders[0].TotalAmount, 0.001)
	require.Len(t, ion.Subscriptions, 1)
	assert.Equal(t, 10, ion.Subscriptions[0].Seats)
}

func TestION_BackendFailure(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("quota exceeded")
	f.fake.Fail[backend.ActionListIONSubscriptions] = boom

	_, err := f.svc.ION(context.Background(), partnerSession(), "C1")
	assert.ErrorIs(t, err, boom)
}

func TestClientLock_OnePerClient(t *testing.T) {
	f := newFixture(t)
	a := f.svc.clientLock("C1")
	assert.Same(t, a, f.svc.clientLock("C1"))
	assert.NotSame(t, a, f.svc.clientLock("C2"))
	assert.Len(t, f.svc.locks, 2)
}
