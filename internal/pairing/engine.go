// Package pairing implements the pairing engine: admission, FIFO matchmaking,
// unpairing and the administrative overrides. Every operation runs as one
// database transaction; correctness under concurrency comes from row locks and
// compare-and-swap status updates in the store, never from in-process state.
package pairing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/owen-ho/enroot-qr-pairing/internal/database"
	"github.com/owen-ho/enroot-qr-pairing/internal/events"
	"github.com/owen-ho/enroot-qr-pairing/internal/metrics"
	"github.com/owen-ho/enroot-qr-pairing/internal/models"
	"github.com/owen-ho/enroot-qr-pairing/internal/repositories"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const tracerName = "github.com/owen-ho/enroot-qr-pairing/internal/pairing"

const (
	DefaultHandleAttempts = 10
	defaultMatchAttempts  = 5
)

// Actor tells Unpair who asked for it.
type Actor string

const (
	ActorSelf  Actor = "self"
	ActorAdmin Actor = "admin"
)

// HandleSource produces candidate display handles.
type HandleSource interface {
	Next() string
}

// CredentialSigner turns a stored participant into its bearer credential.
type CredentialSigner interface {
	IssueParticipant(p *models.Participant) (string, error)
}

// Match is an active pairing seen from one participant.
type Match struct {
	Pairing *models.Pairing
	Partner *models.Participant
}

type Admission struct {
	Participant *models.Participant
	Credential  string
	Match       *Match // nil while waiting
}

type Unpairing struct {
	Broken  *models.Pairing
	Rematch *Match
}

type Standing struct {
	Participant *models.Participant
	Match       *Match
}

type Stats struct {
	Total          int64 `json:"total"`
	Paired         int64 `json:"paired"`
	Waiting        int64 `json:"waiting"`
	ActivePairings int64 `json:"activePairings"`
	Left           int64 `json:"-"`
}

type Engine struct {
	db           *gorm.DB
	participants *repositories.ParticipantRepository
	pairings     *repositories.PairingRepository

	handles HandleSource
	signer  CredentialSigner
	events  events.Publisher
	logger  *zap.Logger
	tracer  trace.Tracer
	txOpts  *sql.TxOptions

	maxHandleAttempts int
	maxMatchAttempts  int
	now               func() time.Time
	newCredentialID   func() string
}

type Option func(*Engine)

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.events = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithIsolation sets the isolation level of every engine transaction.
// sql.LevelDefault keeps the driver default.
func WithIsolation(level sql.IsolationLevel) Option {
	return func(e *Engine) {
		if level == sql.LevelDefault {
			e.txOpts = nil
			return
		}
		e.txOpts = &sql.TxOptions{Isolation: level}
	}
}

func WithHandleAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxHandleAttempts = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(db *gorm.DB, handles HandleSource, signer CredentialSigner, opts ...Option) *Engine {
	e := &Engine{
		db:                db,
		participants:      &repositories.ParticipantRepository{DB: db},
		pairings:          &repositories.PairingRepository{DB: db},
		handles:           handles,
		signer:            signer,
		logger:            zap.NewNop(),
		tracer:            otel.Tracer(tracerName),
		maxHandleAttempts: DefaultHandleAttempts,
		maxMatchAttempts:  defaultMatchAttempts,
		now:               func() time.Time { return time.Now().UTC() },
		newCredentialID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Admit creates a waiting participant with a fresh handle and credential, then
// tries to match it. A failed match attempt leaves the participant waiting.
func (e *Engine) Admit(ctx context.Context) (adm *Admission, err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.Admit")
	defer func() { endSpan(span, err) }()

	p, credential, err := e.admit(ctx)
	if err != nil {
		return nil, err
	}
	metrics.Admitted()
	span.SetAttributes(attribute.Int64("participant.id", int64(p.ID)))
	e.logger.Info("participant admitted", zap.Uint("participant_id", p.ID), zap.String("handle", p.Handle))

	adm = &Admission{Participant: p, Credential: credential}
	match, err := e.TryMatch(ctx, p.ID)
	if err != nil {
		e.logger.Warn("match after admission failed, participant stays waiting",
			zap.Uint("participant_id", p.ID), zap.Error(err))
		return adm, nil
	}
	if match != nil {
		p.Status = models.StatusPaired
		adm.Match = match
	}
	return adm, nil
}

func (e *Engine) admit(ctx context.Context) (*models.Participant, string, error) {
	for attempt := 1; attempt <= e.maxHandleAttempts; attempt++ {
		handle := e.handles.Next()
		taken, err := e.participants.HandleExists(ctx, handle)
		if err != nil {
			return nil, "", err
		}
		if taken {
			continue
		}

		var p *models.Participant
		var credential string
		err = e.transact(ctx, func(people *repositories.ParticipantRepository, _ *repositories.PairingRepository) error {
			now := e.now()
			p = &models.Participant{
				Handle:       handle,
				CredentialID: e.newCredentialID(),
				JoinedAt:     now,
				WaitingSince: now,
				Status:       models.StatusWaiting,
				Version:      1,
			}
			if err := people.Create(ctx, p); err != nil {
				return err
			}
			signed, err := e.signer.IssueParticipant(p)
			if err != nil {
				return fmt.Errorf("sign credential: %w", err)
			}
			credential = signed
			return nil
		})
		if errors.Is(err, repositories.ErrHandleTaken) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return p, credential, nil
	}
	return nil, "", fmt.Errorf("%w after %d attempts", ErrHandleGenerationExhausted, e.maxHandleAttempts)
}

// TryMatch pairs the participant with the longest-waiting other participant.
// It returns nil when nobody else is waiting and the participant's current
// match when it is already paired.
func (e *Engine) TryMatch(ctx context.Context, id uint) (*Match, error) {
	return e.tryMatch(ctx, id, nil)
}

func (e *Engine) tryMatch(ctx context.Context, id uint, exclude []uint) (match *Match, err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.TryMatch",
		trace.WithAttributes(attribute.Int64("participant.id", int64(id))))
	defer func() { endSpan(span, err) }()

	var self *models.Participant
	created := false
	err = e.transact(ctx, func(people *repositories.ParticipantRepository, ledger *repositories.PairingRepository) error {
		skip := append([]uint{id}, exclude...)
		for attempt := 0; attempt < e.maxMatchAttempts; attempt++ {
			candidate, err := people.OldestWaiting(ctx, skip...)
			if err != nil {
				return err
			}

			ids := []uint{id}
			if candidate != nil {
				ids = append(ids, candidate.ID)
			}
			locked, err := people.LockForUpdate(ctx, ids...)
			if err != nil {
				return err
			}

			self = locked[id]
			switch {
			case self == nil:
				return participantNotFound(id)
			case !self.Active():
				return fmt.Errorf("participant %d: %w: status %s", id, ErrInvalidState, self.Status)
			case self.Status == models.StatusPaired:
				match, err = currentMatch(ctx, people, ledger, id)
				return err
			}
			if candidate == nil {
				return nil
			}

			partner := locked[candidate.ID]
			if partner == nil || partner.Status != models.StatusWaiting {
				// Claimed by a concurrent matcher between select and lock.
				skip = append(skip, candidate.ID)
				continue
			}

			pairing, err := claimPair(ctx, people, ledger, self, partner, e.now())
			if err != nil {
				return err
			}
			match = &Match{Pairing: pairing, Partner: partner}
			created = true
			return nil
		}
		return fmt.Errorf("%w: waiting candidates kept being claimed", ErrConflict)
	})
	if err != nil {
		return nil, err
	}

	if created {
		span.SetAttributes(attribute.Int64("pairing.id", int64(match.Pairing.ID)))
		metrics.PairingCreated("match")
		e.logger.Info("participants paired",
			zap.Uint("pairing_id", match.Pairing.ID),
			zap.Uint("participant_id", id),
			zap.Uint("partner_id", match.Partner.ID))
		e.publish(ctx, pairedEvent(match.Pairing, self, match.Partner, "match"))
	}
	return match, nil
}

// Unpair breaks the participant's active pairing and returns both sides to
// the waiting pool. A participant unpairing itself is immediately offered a
// new partner, other than the one it just left.
func (e *Engine) Unpair(ctx context.Context, id uint, actor Actor) (res *Unpairing, err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.Unpair", trace.WithAttributes(
		attribute.Int64("participant.id", int64(id)),
		attribute.String("actor", string(actor)),
	))
	defer func() { endSpan(span, err) }()

	var broken *models.Pairing
	var members []*models.Participant
	err = e.transact(ctx, func(people *repositories.ParticipantRepository, ledger *repositories.PairingRepository) error {
		if _, err := people.GetByID(ctx, id); err != nil {
			if errors.Is(err, repositories.ErrParticipantNotFound) {
				return participantNotFound(id)
			}
			return err
		}
		active, err := ledger.FindActiveFor(ctx, id)
		if err != nil {
			return err
		}
		if active == nil {
			return fmt.Errorf("participant %d: %w", id, ErrNoActivePairing)
		}
		broken, members, err = e.breakPairing(ctx, people, ledger, active)
		if errors.Is(err, errAlreadyBroken) {
			return staleUnpair(ctx, ledger, id)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	e.afterBreak(ctx, broken, members, string(actor))

	res = &Unpairing{Broken: broken}
	if actor != ActorSelf {
		return res, nil
	}
	rematch, err := e.tryMatch(ctx, id, []uint{broken.PartnerOf(id)})
	if err != nil {
		e.logger.Warn("rematch after unpair failed, participant stays waiting",
			zap.Uint("participant_id", id), zap.Error(err))
		return res, nil
	}
	res.Rematch = rematch
	return res, nil
}

// AdminUnpair breaks a pairing by id. Nobody is rematched.
func (e *Engine) AdminUnpair(ctx context.Context, pairingID uint) (broken *models.Pairing, err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.AdminUnpair",
		trace.WithAttributes(attribute.Int64("pairing.id", int64(pairingID))))
	defer func() { endSpan(span, err) }()

	var members []*models.Participant
	err = e.transact(ctx, func(people *repositories.ParticipantRepository, ledger *repositories.PairingRepository) error {
		current, err := ledger.GetByID(ctx, pairingID)
		if errors.Is(err, repositories.ErrPairingNotFound) {
			return pairingNotFound(pairingID)
		}
		if err != nil {
			return err
		}
		broken, members, err = e.breakPairing(ctx, people, ledger, current)
		if errors.Is(err, errAlreadyBroken) {
			return fmt.Errorf("pairing %d: %w: already broken", pairingID, ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	e.afterBreak(ctx, broken, members, string(ActorAdmin))
	return broken, nil
}

// AdminPair pairs two administrator-chosen waiting participants.
func (e *Engine) AdminPair(ctx context.Context, idA, idB uint) (pairing *models.Pairing, err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.AdminPair", trace.WithAttributes(
		attribute.Int64("participant.a", int64(idA)),
		attribute.Int64("participant.b", int64(idB)),
	))
	defer func() { endSpan(span, err) }()

	if idA == 0 || idB == 0 {
		return nil, fmt.Errorf("%w: both participant ids are required", ErrInvalidInput)
	}
	if idA == idB {
		return nil, fmt.Errorf("%w: cannot pair participant %d with itself", ErrInvalidInput, idA)
	}

	err = e.transact(ctx, func(people *repositories.ParticipantRepository, ledger *repositories.PairingRepository) error {
		locked, err := people.LockForUpdate(ctx, idA, idB)
		if err != nil {
			return err
		}
		for _, id := range []uint{idA, idB} {
			if p := locked[id]; p == nil || !p.Active() {
				return participantNotFound(id)
			}
		}
		for _, id := range []uint{idA, idB} {
			if p := locked[id]; p.Status != models.StatusWaiting {
				return fmt.Errorf("participant %d: %w: status %s", id, ErrInvalidState, p.Status)
			}
		}

		pairing, err = claimPair(ctx, people, ledger, locked[idA], locked[idB], e.now())
		if err != nil {
			return err
		}
		pairing.ParticipantA = locked[idA]
		pairing.ParticipantB = locked[idB]
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.PairingCreated("admin")
	e.logger.Info("participants paired by admin", zap.Uint("pairing_id", pairing.ID),
		zap.Uint("participant_a", idA), zap.Uint("participant_b", idB))
	e.publish(ctx, pairedEvent(pairing, pairing.ParticipantA, pairing.ParticipantB, string(ActorAdmin)))
	return pairing, nil
}

// Reset deletes every pairing and then every participant.
func (e *Engine) Reset(ctx context.Context) (err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.Reset")
	defer func() { endSpan(span, err) }()

	err = e.transact(ctx, func(people *repositories.ParticipantRepository, ledger *repositories.PairingRepository) error {
		if err := ledger.DeleteAll(ctx); err != nil {
			return err
		}
		return people.DeleteAll(ctx)
	})
	if err != nil {
		return err
	}

	metrics.Reset()
	e.logger.Warn("pairing store reset")
	e.publish(ctx, events.Event{Kind: events.KindReset, Actor: string(ActorAdmin), At: e.now()})
	return nil
}

// Remove marks a participant as left. Its active pairing, if any, is broken
// and the partner goes back to waiting without a rematch. Its credential stops
// working. Removing a participant that already left is a no-op.
func (e *Engine) Remove(ctx context.Context, id uint) (err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.Remove",
		trace.WithAttributes(attribute.Int64("participant.id", int64(id))))
	defer func() { endSpan(span, err) }()

	var removed *models.Participant
	var broken *models.Pairing
	var members []*models.Participant
	err = e.transact(ctx, func(people *repositories.ParticipantRepository, ledger *repositories.PairingRepository) error {
		active, err := ledger.FindActiveFor(ctx, id)
		if err != nil {
			return err
		}
		ids := []uint{id}
		if active != nil {
			ids = []uint{active.ParticipantAID, active.ParticipantBID}
		}
		locked, err := people.LockForUpdate(ctx, ids...)
		if err != nil {
			return err
		}

		self := locked[id]
		switch {
		case self == nil:
			return participantNotFound(id)
		case !self.Active():
			return nil
		case active == nil && self.Status == models.StatusPaired:
			return fmt.Errorf("participant %d: %w: paired concurrently", id, ErrConflict)
		}

		if active != nil {
			broken, members, err = e.breakPairing(ctx, people, ledger, active)
			if errors.Is(err, errAlreadyBroken) {
				return fmt.Errorf("participant %d: %w: pairing changed concurrently", id, ErrConflict)
			}
			if err != nil {
				return err
			}
		}
		if err := people.SetStatus(ctx, id, models.StatusLeft); err != nil {
			return err
		}
		if err := people.RevokeCredential(ctx, id); err != nil {
			return err
		}
		self.Status = models.StatusLeft
		self.CredentialID = ""
		removed = self
		return nil
	})
	if err != nil {
		return err
	}
	if removed == nil {
		return nil
	}

	if broken != nil {
		e.afterBreak(ctx, broken, members, "remove")
	}
	e.logger.Info("participant removed", zap.Uint("participant_id", id))
	e.publish(ctx, events.Event{
		Kind:    events.KindRemoved,
		Members: []events.Member{{ID: removed.ID, Handle: removed.Handle}},
		Actor:   string(ActorAdmin),
		At:      e.now(),
	})
	return nil
}

// RevokeCredential invalidates every bearer token issued to the participant.
func (e *Engine) RevokeCredential(ctx context.Context, id uint) (err error) {
	ctx, span := e.tracer.Start(ctx, "pairing.RevokeCredential",
		trace.WithAttributes(attribute.Int64("participant.id", int64(id))))
	defer func() { endSpan(span, err) }()

	err = e.participants.RevokeCredential(ctx, id)
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return participantNotFound(id)
	}
	if err == nil {
		e.logger.Info("participant credential revoked", zap.Uint("participant_id", id))
	}
	return err
}

// Status returns the participant together with its current match, if any. It
// is read in one statement; a participant caught between the two halves of an
// unpair is reported as waiting.
func (e *Engine) Status(ctx context.Context, id uint) (*Standing, error) {
	row, err := e.pairings.StandingFor(ctx, id)
	if errors.Is(err, repositories.ErrParticipantNotFound) {
		return nil, participantNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	standing := &Standing{Participant: &models.Participant{
		ID:       row.ID,
		Handle:   row.Handle,
		Status:   row.Status,
		JoinedAt: row.JoinedAt,
	}}
	if row.PairingID == nil || row.PartnerID == nil || row.PairingAID == nil || row.PairingBID == nil {
		if standing.Participant.Status == models.StatusPaired {
			standing.Participant.Status = models.StatusWaiting
		}
		return standing, nil
	}

	partner := *row.PartnerID
	pairing := &models.Pairing{
		ID:             *row.PairingID,
		ParticipantAID: *row.PairingAID,
		ParticipantBID: *row.PairingBID,
		State:          models.PairingActive,
	}
	if row.PairedAt != nil {
		pairing.CreatedAt = *row.PairedAt
	}
	standing.Match = &Match{
		Pairing: pairing,
		Partner: &models.Participant{ID: partner, Handle: stringOr(row.PartnerHandle), Status: models.StatusPaired},
	}
	return standing, nil
}

func stringOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Roster lists every participant that has not left with its partner, newest first.
func (e *Engine) Roster(ctx context.Context) ([]repositories.RosterEntry, error) {
	return e.pairings.ListWithPartnerNames(ctx)
}

// Stats counts participants and active pairings straight from the store.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	counts, err := e.participants.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	active, err := e.pairings.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		Paired:         counts[models.StatusPaired],
		Waiting:        counts[models.StatusWaiting],
		Left:           counts[models.StatusLeft],
		ActivePairings: active,
	}
	s.Total = s.Paired + s.Waiting
	return s, nil
}

var errAlreadyBroken = errors.New("pairing already broken")

// breakPairing locks both members and the pairing row, then breaks it and
// returns both members to the waiting pool. Participants are always locked
// before pairings so lock order matches TryMatch.
func (e *Engine) breakPairing(ctx context.Context, people *repositories.ParticipantRepository, ledger *repositories.PairingRepository, pairing *models.Pairing) (*models.Pairing, []*models.Participant, error) {
	locked, err := people.LockForUpdate(ctx, pairing.ParticipantAID, pairing.ParticipantBID)
	if err != nil {
		return nil, nil, err
	}
	current, err := ledger.LockForUpdate(ctx, pairing.ID)
	if errors.Is(err, repositories.ErrPairingNotFound) {
		return nil, nil, pairingNotFound(pairing.ID)
	}
	if err != nil {
		return nil, nil, err
	}
	if current.State != models.PairingActive {
		return nil, nil, errAlreadyBroken
	}

	at := e.now()
	if err := ledger.Break(ctx, current.ID, at); err != nil {
		return nil, nil, err
	}
	if err := people.ReturnToWaiting(ctx, at, current.ParticipantAID, current.ParticipantBID); err != nil {
		return nil, nil, err
	}
	current.State = models.PairingBroken
	current.BrokenAt = &at

	members := make([]*models.Participant, 0, 2)
	for _, id := range []uint{current.ParticipantAID, current.ParticipantBID} {
		p := locked[id]
		if p == nil {
			continue
		}
		if p.Active() {
			p.Status = models.StatusWaiting
			p.WaitingSince = at
		}
		members = append(members, p)
	}
	return current, members, nil
}

// staleUnpair explains a pairing that was broken between lookup and lock.
// breakPairing holds the participant's row by now, so the second lookup is
// authoritative.
func staleUnpair(ctx context.Context, ledger *repositories.PairingRepository, id uint) error {
	again, err := ledger.FindActiveFor(ctx, id)
	if err != nil {
		return err
	}
	if again == nil {
		return fmt.Errorf("participant %d: %w", id, ErrNoActivePairing)
	}
	return fmt.Errorf("participant %d: %w: paired again as pairing %d", id, ErrConflict, again.ID)
}

func (e *Engine) afterBreak(ctx context.Context, broken *models.Pairing, members []*models.Participant, actor string) {
	metrics.PairingBroken(actor)
	e.logger.Info("pairing broken", zap.Uint("pairing_id", broken.ID), zap.String("actor", actor))

	ev := events.Event{Kind: events.KindUnpaired, PairingID: broken.ID, Actor: actor, At: e.now()}
	if broken.BrokenAt != nil {
		ev.At = *broken.BrokenAt
	}
	for _, m := range members {
		ev.Members = append(ev.Members, events.Member{ID: m.ID, Handle: m.Handle})
	}
	e.publish(ctx, ev)
}

// claimPair moves both participants from waiting to paired and records the
// pairing. Both rows must already be locked by the caller.
func claimPair(ctx context.Context, people *repositories.ParticipantRepository, ledger *repositories.PairingRepository, a, b *models.Participant, at time.Time) (*models.Pairing, error) {
	for _, p := range []*models.Participant{a, b} {
		ok, err := people.Claim(ctx, p.ID, models.StatusWaiting, models.StatusPaired)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("participant %d: %w: claimed concurrently", p.ID, ErrConflict)
		}
		p.Status = models.StatusPaired
		p.Version++
	}
	return ledger.CreateActive(ctx, a.ID, b.ID, at)
}

func currentMatch(ctx context.Context, people *repositories.ParticipantRepository, ledger *repositories.PairingRepository, id uint) (*Match, error) {
	pairing, err := ledger.FindActiveFor(ctx, id)
	if err != nil {
		return nil, err
	}
	if pairing == nil {
		return nil, fmt.Errorf("participant %d: %w: paired without an active pairing", id, ErrInvalidState)
	}
	partner, err := people.GetByID(ctx, pairing.PartnerOf(id))
	if err != nil {
		return nil, err
	}
	return &Match{Pairing: pairing, Partner: partner}, nil
}

func pairedEvent(p *models.Pairing, a, b *models.Participant, actor string) events.Event {
	return events.Event{
		Kind:      events.KindPaired,
		PairingID: p.ID,
		Members:   []events.Member{{ID: a.ID, Handle: a.Handle}, {ID: b.ID, Handle: b.Handle}},
		Actor:     actor,
		At:        p.CreatedAt,
	}
}

// transact runs fn in one transaction with repositories bound to it. Lock and
// serialization failures come back as ErrConflict.
func (e *Engine) transact(ctx context.Context, fn func(*repositories.ParticipantRepository, *repositories.PairingRepository) error) error {
	var opts []*sql.TxOptions
	if e.txOpts != nil {
		opts = append(opts, e.txOpts)
	}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(e.participants.WithTx(tx), e.pairings.WithTx(tx))
	}, opts...)
	if err == nil {
		return nil
	}
	if database.IsConflict(err) {
		err = fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if errors.Is(err, ErrConflict) {
		metrics.Conflict()
	}
	return err
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.events == nil {
		return
	}
	if err := e.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		e.logger.Warn("failed to publish pairing event", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
