package portal

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/cache"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/internal/progress"
	"github.com/me/partnerportal/pkg/model"
)

// mirrorFetchLimit bounds concurrent mirror fetches when listing.
const mirrorFetchLimit = 4

// Summary is one row of the onboarding list.
type Summary struct {
	Onboarding     model.Onboarding      `json:"onboarding"`
	Manufacturer   model.ManufacturerKey `json:"manufacturer"`
	OverallPercent int                   `json:"overall_percent"`
}

// Detail is everything needed to render one onboarding record.
type Detail struct {
	Onboarding model.Onboarding         `json:"onboarding"`
	Progress   progress.Progress        `json:"progress"`
	Timeline   []progress.TimelineEntry `json:"timeline"`
}

// ION groups the provisioning data of one client.
type ION struct {
	Orders        []model.IONOrder        `json:"orders"`
	Subscriptions []model.IONSubscription `json:"subscriptions"`
}

func (s *Service) clientFor(sess *model.Session) *backend.Client {
	return s.backend.WithToken(sess.Token)
}

func authorize(sess *model.Session, clientID string) error {
	if sess == nil || !sess.CanAccess(clientID) {
		return ErrForbidden
	}
	return nil
}

// Onboardings lists the records visible to sess with their overall progress.
// The admin list is cached; mirrors are always fetched fresh.
func (s *Service) Onboardings(ctx context.Context, sess *model.Session) ([]Summary, error) {
	if sess == nil {
		return nil, ErrForbidden
	}
	client := s.clientFor(sess)

	var (
		records []model.Onboarding
		err     error
	)
	if sess.IsAdmin() {
		records, err = cache.GetOrLoad(ctx, s.cache, cache.KeyOnboardings, client.ListOnboardings)
	} else {
		records, err = client.ListOnboardings(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("list onboardings: %w", err)
	}

	visible := make([]model.Onboarding, 0, len(records))
	for _, o := range records {
		if sess.CanAccess(o.ClientID) {
			visible = append(visible, o)
		}
	}

	out := make([]Summary, len(visible))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mirrorFetchLimit)
	for i, o := range visible {
		g.Go(func() error {
			snap, err := client.GetMirror(gctx, o.ClientID)
			if err != nil {
				return fmt.Errorf("mirror %s: %w", o.ClientID, err)
			}
			key := s.normalizer.Normalize(o.Manufacturer)
			out[i] = Summary{
				Onboarding:     o,
				Manufacturer:   key,
				OverallPercent: progress.ForManufacturer(key, snap).OverallPercent,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// load fetches the record and its field snapshot concurrently.
func (s *Service) load(ctx context.Context, client *backend.Client, clientID string) (*model.Onboarding, progress.Progress, error) {
	var (
		rec  *model.Onboarding
		snap model.FieldSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rec, err = client.GetOnboarding(gctx, clientID)
		if err != nil {
			return fmt.Errorf("get onboarding: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		snap, err = client.GetMirror(gctx, clientID)
		if err != nil {
			return fmt.Errorf("get mirror: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, progress.Progress{}, err
	}
	return rec, progress.ForManufacturer(s.normalizer.Normalize(rec.Manufacturer), snap), nil
}

// Detail returns the record, its evaluated progress and timeline.
func (s *Service) Detail(ctx context.Context, sess *model.Session, clientID string) (*Detail, error) {
	if err := authorize(sess, clientID); err != nil {
		return nil, err
	}
	rec, p, err := s.load(ctx, s.clientFor(sess), clientID)
	if err != nil {
		return nil, err
	}
	return &Detail{Onboarding: *rec, Progress: p, Timeline: p.Timeline()}, nil
}

// UpdateField writes one field after checking its type and the gating rules
// against a freshly fetched snapshot. Writes for one client are serialized.
// It returns the progress evaluated from the snapshot after the write.
func (s *Service) UpdateField(ctx context.Context, sess *model.Session, clientID, fieldKey string, raw any) (progress.Progress, error) {
	if err := authorize(sess, clientID); err != nil {
		return progress.Progress{}, err
	}
	fieldKey = strings.TrimSpace(fieldKey)

	mu := s.clientLock(clientID)
	mu.Lock()
	defer mu.Unlock()

	client := s.clientFor(sess)
	rec, p, err := s.load(ctx, client, clientID)
	if err != nil {
		return progress.Progress{}, err
	}

	t, ok := p.FieldType(fieldKey)
	if !ok {
		return progress.Progress{}, &progress.UnknownFieldError{FieldKey: fieldKey}
	}
	value, ok := progress.CoerceValue(t, raw)
	if !ok {
		return progress.Progress{}, &progress.InvalidValueError{FieldKey: fieldKey, Type: t}
	}
	if err := progress.CheckMutation(p, fieldKey, value); err != nil {
		s.logger.Info("field update refused",
			"client_id", clientID, "field", fieldKey, "error", err)
		return progress.Progress{}, err
	}

	if err := client.UpdateField(ctx, clientID, fieldKey, value); err != nil {
		return progress.Progress{}, fmt.Errorf("update field: %w", err)
	}
	s.invalidate(clientID)
	s.logger.Info("field updated",
		"client_id", clientID, "field", fieldKey, "by", logging.MaskEmail(sess.Email))

	snap, err := client.GetMirror(ctx, clientID)
	if err != nil {
		return progress.Progress{}, fmt.Errorf("get mirror: %w", err)
	}
	return progress.ForManufacturer(s.normalizer.Normalize(rec.Manufacturer), snap), nil
}

func (s *Service) invalidate(clientID string) {
	if s.cache == nil {
		return
	}
	s.cache.DeletePrefix(cache.ClientPrefix(clientID))
	s.cache.Delete(cache.KeyOnboardings)
}

// Notes lists the notes of a record.
func (s *Service) Notes(ctx context.Context, sess *model.Session, clientID string) ([]model.Note, error) {
	if err := authorize(sess, clientID); err != nil {
		return nil, err
	}
	notes, err := s.clientFor(sess).ListNotes(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// AddNote appends a note authored by the session user.
func (s *Service) AddNote(ctx context.Context, sess *model.Session, clientID, text string) (*model.Note, error) {
	if err := authorize(sess, clientID); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if err := validateVar(s.validate, "text", text, "required,max=2000"); err != nil {
		return nil, err
	}
	note, err := s.clientFor(sess).AddNote(ctx, clientID, sess.Email, text)
	if err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	return note, nil
}

// IONOrders returns the cached ION orders of a record.
func (s *Service) IONOrders(ctx context.Context, sess *model.Session, clientID string) ([]model.IONOrder, error) {
	if err := authorize(sess, clientID); err != nil {
		return nil, err
	}
	client := s.clientFor(sess)
	orders, err := cache.GetOrLoad(ctx, s.cache, cache.KeyIONOrders(clientID), func(ctx context.Context) ([]model.IONOrder, error) {
		return client.ListIONOrders(ctx, clientID)
	})
	if err != nil {
		return nil, fmt.Errorf("list ion orders: %w", err)
	}
	return orders, nil
}

// IONSubscriptions returns the cached ION subscriptions of a record.
func (s *Service) IONSubscriptions(ctx context.Context, sess *model.Session, clientID string) ([]model.IONSubscription, error) {
	if err := authorize(sess, clientID); err != nil {
		return nil, err
	}
	client := s.clientFor(sess)
	subs, err := cache.GetOrLoad(ctx, s.cache, cache.KeyIONSubscriptions(clientID), func(ctx context.Context) ([]model.IONSubscription, error) {
		return client.ListIONSubscriptions(ctx, clientID)
	})
	if err != nil {
		return nil, fmt.Errorf("list ion subscriptions: %w", err)
	}
	return subs, nil
}

// ION fetches orders and subscriptions concurrently.
func (s *Service) ION(ctx context.Context, sess *model.Session, clientID string) (*ION, error) {
	if err := authorize(sess, clientID); err != nil {
		return nil, err
	}
	out := &ION{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Orders, err = s.IONOrders(gctx, sess, clientID)
		return err
	})
	g.Go(func() error {
		var err error
		out.Subscriptions, err = s.IONSubscriptions(gctx, sess, clientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
