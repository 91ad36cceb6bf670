package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"card-alerts-go/internal/metrics"
	"card-alerts-go/internal/models"
)

// Store is the persistence collaborator. It is the single source of
// truth and is expected to serialize conflicting writes to the same
// alert; the service never does its own locking.
type Store interface {
	ListAlerts(ctx context.Context, f Filter) ([]models.Alert, error)
	GetAlert(ctx context.Context, id int) (models.Alert, error) // ErrNotFound when absent
	CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error)
	UpdateAlert(ctx context.Context, a models.Alert) (models.Alert, error)
	DeleteAlert(ctx context.Context, id int) error
	RemoveRecipient(ctx context.Context, alertID, userID int) error
}

// Filter narrows a ListAlerts call. Zero values mean no constraint:
// ViewerID 0 lists every alert (superuser), CardID 0 lists all cards.
type Filter struct {
	CardID   int
	ViewerID int
}

// Directory resolves user ids to user records (email addresses for
// notification, superuser flag for listings).
type Directory interface {
	GetUser(ctx context.Context, id int) (models.User, error)
}

// CardAccess answers whether an actor may read the monitored question.
type CardAccess interface {
	CanReadCard(ctx context.Context, actor models.Actor, cardID int) (bool, error)
}

// Notifier is the outbound transport. Every send is best-effort: a
// failure is logged and never rolls back the committed mutation. When
// IsConfigured reports false all sends are skipped silently.
type Notifier interface {
	IsConfigured() bool
	AlertCreated(ctx context.Context, a models.Alert, creator models.User) error
	AdminUnsubscribed(ctx context.Context, a models.Alert, removed models.Recipient, admin models.Actor) error
	RecipientAdded(ctx context.Context, a models.Alert, added models.Recipient, admin models.Actor) error
	SelfUnsubscribed(ctx context.Context, a models.Alert, user models.Recipient) error
}

// Auditor records alert mutations. Best-effort, like the notifier.
type Auditor interface {
	Record(ctx context.Context, actorID int, action string, alertID int, metadata string) error
}

// Event is published to the mutation feed after every durable change.
type Event struct {
	Action  string    `json:"action"`
	AlertID int       `json:"alert_id"`
	CardID  int       `json:"card_id"`
	ActorID int       `json:"actor_id"`
	At      time.Time `json:"at"`
}

// EventSink receives mutation events. Publishing is best-effort.
type EventSink interface {
	Publish(ctx context.Context, e Event)
}

// AlertView is an alert annotated for a particular viewer.
type AlertView struct {
	models.Alert
	ReadOnly bool `json:"read_only"`
}

// AlertSpec is the validated request shape for create and update.
type AlertSpec struct {
	CardID        int              `json:"card_id"`
	Condition     models.Condition `json:"condition"`
	FirstRunOnly  bool             `json:"first_run_only"`
	AboveGoalOnly *bool            `json:"above_goal_only,omitempty"`
	Channels      []models.Channel `json:"channels"`
}

func (spec AlertSpec) validate() error {
	if spec.CardID <= 0 {
		return invalid("card_id", "must reference a card")
	}
	switch spec.Condition {
	case models.ConditionRows, models.ConditionGoal:
	default:
		return invalid("condition", "must be one of rows, goal")
	}
	if spec.AboveGoalOnly != nil && spec.Condition != models.ConditionGoal {
		return invalid("above_goal_only", "only meaningful for goal alerts")
	}
	if len(spec.Channels) == 0 {
		return invalid("channels", "at least one channel is required")
	}
	seen := make(map[models.ChannelKind]bool)
	for _, ch := range spec.Channels {
		if seen[ch.Kind] {
			return invalid("channels", "duplicate channel kind "+string(ch.Kind))
		}
		seen[ch.Kind] = true
		switch ch.Kind {
		case models.ChannelEmail:
			if len(ch.Recipients) == 0 {
				return invalid("channels", "email channel needs at least one recipient")
			}
			for _, r := range ch.Recipients {
				if r.UserID <= 0 {
					return invalid("channels", "recipient without user id")
				}
			}
		case models.ChannelChat:
			if ch.Destination == "" {
				return invalid("channels", "chat channel needs a destination")
			}
			if len(ch.Recipients) != 0 {
				return invalid("channels", "chat channel does not take recipients")
			}
		default:
			return invalid("channels", "unknown channel kind "+string(ch.Kind))
		}
	}
	return nil
}

// Service orchestrates alert subscriptions against its collaborators.
type Service struct {
	store    Store
	users    Directory
	cards    CardAccess
	notifier Notifier
	audit    Auditor
	events   EventSink
	logger   *zap.Logger
}

func NewService(store Store, users Directory, cards CardAccess, notifier Notifier, audit Auditor, events EventSink, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		users:    users,
		cards:    cards,
		notifier: notifier,
		audit:    audit,
		events:   events,
		logger:   logger,
	}
}

// List returns every alert the actor may read, each annotated with
// read_only for viewers without write access.
func (s *Service) List(ctx context.Context, actor models.Actor) ([]AlertView, error) {
	views, err := s.list(ctx, actor, 0)
	metrics.Operations.WithLabelValues("list", outcome(err)).Inc()
	return views, err
}

// ListByCard is the per-question variant: superusers see every alert on
// the card, anyone else only alerts they created or receive.
func (s *Service) ListByCard(ctx context.Context, actor models.Actor, cardID int) ([]AlertView, error) {
	views, err := s.list(ctx, actor, cardID)
	metrics.Operations.WithLabelValues("list_by_card", outcome(err)).Inc()
	return views, err
}

func (s *Service) list(ctx context.Context, actor models.Actor, cardID int) ([]AlertView, error) {
	f := Filter{CardID: cardID}
	if !actor.IsSuperuser {
		f.ViewerID = actor.UserID
	}
	found, err := s.store.ListAlerts(ctx, f)
	if err != nil {
		return nil, err
	}
	views := make([]AlertView, 0, len(found))
	for _, a := range found {
		if !CanRead(actor, a) && !CanWrite(actor, a) {
			continue
		}
		views = append(views, AlertView{Alert: a, ReadOnly: !CanWrite(actor, a)})
	}
	return views, nil
}

// Create validates the submitted definition, checks card access, persists the alert and
// notifies the creator once the record is durable.
func (s *Service) Create(ctx context.Context, actor models.Actor, spec AlertSpec) (models.Alert, error) {
	created, err := s.create(ctx, actor, spec)
	metrics.Operations.WithLabelValues("create", outcome(err)).Inc()
	return created, err
}

func (s *Service) create(ctx context.Context, actor models.Actor, spec AlertSpec) (models.Alert, error) {
	if err := spec.validate(); err != nil {
		return models.Alert{}, err
	}
	ok, err := s.cards.CanReadCard(ctx, actor, spec.CardID)
	if err != nil {
		return models.Alert{}, err
	}
	if !ok {
		return models.Alert{}, ErrCardAccess
	}

	created, err := s.store.CreateAlert(ctx, models.Alert{
		CreatorID:     actor.UserID,
		CardID:        spec.CardID,
		Condition:     spec.Condition,
		FirstRunOnly:  spec.FirstRunOnly,
		AboveGoalOnly: spec.AboveGoalOnly,
		Channels:      spec.Channels,
	})
	if err != nil {
		return models.Alert{}, err
	}

	s.record(ctx, actor, "create_alert", created, map[string]any{"card_id": created.CardID})
	if s.notifier.IsConfigured() {
		creator, err := s.users.GetUser(ctx, actor.UserID)
		if err != nil {
			s.logger.Warn("creator lookup failed, skipping creation notice",
				zap.Int("alert_id", created.ID), zap.Error(err))
		} else if err := s.notifier.AlertCreated(ctx, created, creator); err != nil {
			s.logger.Warn("creation notice failed",
				zap.Int("alert_id", created.ID), zap.Error(err))
		}
	}
	return created, nil
}

// Update loads the alert, gates on write permission, persists the new
// shape and, for superuser edits, informs every recipient the diff
// added or removed.
func (s *Service) Update(ctx context.Context, actor models.Actor, id int, spec AlertSpec) (models.Alert, error) {
	updated, err := s.update(ctx, actor, id, spec)
	metrics.Operations.WithLabelValues("update", outcome(err)).Inc()
	return updated, err
}

func (s *Service) update(ctx context.Context, actor models.Actor, id int, spec AlertSpec) (models.Alert, error) {
	existing, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return models.Alert{}, err
	}
	if !CanWrite(actor, existing) {
		if actor.UserID != existing.CreatorID {
			return models.Alert{}, ErrNotOwner
		}
		return models.Alert{}, ErrNotRecipient
	}
	if err := spec.validate(); err != nil {
		return models.Alert{}, err
	}

	next := existing
	next.CardID = spec.CardID
	next.Condition = spec.Condition
	next.FirstRunOnly = spec.FirstRunOnly
	next.AboveGoalOnly = spec.AboveGoalOnly
	next.Channels = spec.Channels

	updated, err := s.store.UpdateAlert(ctx, next)
	if err != nil {
		return models.Alert{}, err
	}

	s.record(ctx, actor, "update_alert", updated, map[string]any{"card_id": updated.CardID})

	// Only an admin editing someone's alert notifies the affected
	// recipients; a self-edit stays silent because the actor already
	// knows what changed.
	if actor.IsSuperuser && s.notifier.IsConfigured() {
		removed, added := DiffRecipients(existing, updated)
		for _, r := range removed {
			if err := s.notifier.AdminUnsubscribed(ctx, updated, r, actor); err != nil {
				s.logger.Warn("removal notice failed",
					zap.Int("alert_id", updated.ID), zap.Int("user_id", r.UserID), zap.Error(err))
			}
		}
		for _, r := range added {
			if err := s.notifier.RecipientAdded(ctx, updated, r, actor); err != nil {
				s.logger.Warn("addition notice failed",
					zap.Int("alert_id", updated.ID), zap.Int("user_id", r.UserID), zap.Error(err))
			}
		}
	}
	return updated, nil
}

// Unsubscribe removes the actor from the alert's email channel, or
// deletes the alert outright when that would leave it with nowhere to
// deliver.
func (s *Service) Unsubscribe(ctx context.Context, actor models.Actor, id int) error {
	err := s.unsubscribe(ctx, actor, id)
	metrics.Operations.WithLabelValues("unsubscribe", outcome(err)).Inc()
	return err
}

func (s *Service) unsubscribe(ctx context.Context, actor models.Actor, id int) error {
	if actor.IsSuperuser {
		return ErrSuperuserUnsubscribe
	}
	a, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if !CanUnsubscribe(actor, a) {
		return ErrNotRecipient
	}

	// A creator who already removed themselves can still reach this
	// point through read access; their "unsubscribe" changes nothing and
	// warrants no confirmation.
	var self models.Recipient
	subscribed := false
	for _, r := range a.EmailRecipients() {
		if r.UserID == actor.UserID {
			self = r
			subscribed = true
			break
		}
	}

	if ShouldDeleteOnUnsubscribe(a, actor.UserID) {
		if err := s.store.DeleteAlert(ctx, id); err != nil {
			return err
		}
		s.record(ctx, actor, "unsubscribe_deleted_alert", a, nil)
	} else {
		if err := s.store.RemoveRecipient(ctx, id, actor.UserID); err != nil {
			return err
		}
		s.record(ctx, actor, "unsubscribe", a, nil)
	}

	if subscribed && s.notifier.IsConfigured() {
		if err := s.notifier.SelfUnsubscribed(ctx, a, self); err != nil {
			s.logger.Warn("unsubscribe confirmation failed",
				zap.Int("alert_id", a.ID), zap.Int("user_id", actor.UserID), zap.Error(err))
		}
	}
	return nil
}

// Delete destroys the alert. Creator or superuser only; no notification.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id int) error {
	err := s.delete(ctx, actor, id)
	metrics.Operations.WithLabelValues("delete", outcome(err)).Inc()
	return err
}

func (s *Service) delete(ctx context.Context, actor models.Actor, id int) error {
	a, err := s.store.GetAlert(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(actor, a) {
		return ErrNotOwner
	}
	if err := s.store.DeleteAlert(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "delete_alert", a, nil)
	return nil
}

// record writes the audit row and publishes the mutation event. Both are
// best-effort and happen only after the mutation is durable.
func (s *Service) record(ctx context.Context, actor models.Actor, action string, a models.Alert, meta map[string]any) {
	metadata := ""
	if meta != nil {
		if b, err := json.Marshal(meta); err == nil {
			metadata = string(b)
		}
	}
	if err := s.audit.Record(ctx, actor.UserID, action, a.ID, metadata); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", action), zap.Error(err))
	}
	s.events.Publish(ctx, Event{
		Action:  action,
		AlertID: a.ID,
		CardID:  a.CardID,
		ActorID: actor.UserID,
		At:      time.Now().UTC(),
	})
}

func outcome(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.As(err, &verr):
		return "invalid"
	default:
		return "error"
	}
}
