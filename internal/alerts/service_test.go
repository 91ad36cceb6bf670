package alerts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"card-alerts-go/internal/models"
)

type fakeStore struct {
	alerts      map[int]models.Alert
	nextID      int
	createCalls int
	updateCalls int
	deleted     []int
	removed     [][2]int // alertID, userID
}

func newFakeStore(seed ...models.Alert) *fakeStore {
	s := &fakeStore{alerts: make(map[int]models.Alert), nextID: 100}
	for _, a := range seed {
		s.alerts[a.ID] = a
	}
	return s
}

func (s *fakeStore) ListAlerts(_ context.Context, f Filter) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range s.alerts {
		if f.CardID != 0 && a.CardID != f.CardID {
			continue
		}
		if f.ViewerID != 0 && a.CreatorID != f.ViewerID && !a.IsRecipient(f.ViewerID) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) GetAlert(_ context.Context, id int) (models.Alert, error) {
	a, ok := s.alerts[id]
	if !ok {
		return models.Alert{}, ErrNotFound
	}
	return a, nil
}

func (s *fakeStore) CreateAlert(_ context.Context, a models.Alert) (models.Alert, error) {
	s.createCalls++
	s.nextID++
	a.ID = s.nextID
	s.alerts[a.ID] = a
	return a, nil
}

func (s *fakeStore) UpdateAlert(_ context.Context, a models.Alert) (models.Alert, error) {
	s.updateCalls++
	if _, ok := s.alerts[a.ID]; !ok {
		return models.Alert{}, ErrNotFound
	}
	s.alerts[a.ID] = a
	return a, nil
}

func (s *fakeStore) DeleteAlert(_ context.Context, id int) error {
	if _, ok := s.alerts[id]; !ok {
		return ErrNotFound
	}
	delete(s.alerts, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) RemoveRecipient(_ context.Context, alertID, userID int) error {
	s.removed = append(s.removed, [2]int{alertID, userID})
	a, ok := s.alerts[alertID]
	if !ok {
		return nil
	}
	for i, ch := range a.Channels {
		if ch.Kind != models.ChannelEmail {
			continue
		}
		kept := ch.Recipients[:0:0]
		for _, r := range ch.Recipients {
			if r.UserID != userID {
				kept = append(kept, r)
			}
		}
		a.Channels[i].Recipients = kept
	}
	s.alerts[alertID] = a
	return nil
}

type fakeDirectory struct{}

func (fakeDirectory) GetUser(_ context.Context, id int) (models.User, error) {
	return models.User{ID: id, Username: "user", Email: "user@example.com"}, nil
}

type fakeCards struct{ allow bool }

func (c fakeCards) CanReadCard(context.Context, models.Actor, int) (bool, error) {
	return c.allow, nil
}

type notice struct {
	alertID int
	userID  int
}

type fakeNotifier struct {
	configured     bool
	created        []int
	adminRemoved   []notice
	recipientAdded []notice
	selfUnsub      []notice
}

func (n *fakeNotifier) IsConfigured() bool { return n.configured }

func (n *fakeNotifier) AlertCreated(_ context.Context, a models.Alert, _ models.User) error {
	n.created = append(n.created, a.ID)
	return nil
}

func (n *fakeNotifier) AdminUnsubscribed(_ context.Context, a models.Alert, r models.Recipient, _ models.Actor) error {
	n.adminRemoved = append(n.adminRemoved, notice{a.ID, r.UserID})
	return nil
}

func (n *fakeNotifier) RecipientAdded(_ context.Context, a models.Alert, r models.Recipient, _ models.Actor) error {
	n.recipientAdded = append(n.recipientAdded, notice{a.ID, r.UserID})
	return nil
}

func (n *fakeNotifier) SelfUnsubscribed(_ context.Context, a models.Alert, r models.Recipient) error {
	n.selfUnsub = append(n.selfUnsub, notice{a.ID, r.UserID})
	return nil
}

type fakeAuditor struct{ actions []string }

func (a *fakeAuditor) Record(_ context.Context, _ int, action string, _ int, _ string) error {
	a.actions = append(a.actions, action)
	return nil
}

type fakeEvents struct{ events []Event }

func (e *fakeEvents) Publish(_ context.Context, ev Event) {
	e.events = append(e.events, ev)
}

func setupService(t *testing.T, store *fakeStore, configured bool) (*Service, *fakeNotifier, *fakeAuditor, *fakeEvents) {
	t.Helper()
	notifier := &fakeNotifier{configured: configured}
	audit := &fakeAuditor{}
	events := &fakeEvents{}
	svc := NewService(store, fakeDirectory{}, fakeCards{allow: true}, notifier, audit, events, zap.NewNop())
	return svc, notifier, audit, events
}

func validSpec() AlertSpec {
	return AlertSpec{
		CardID:    10,
		Condition: models.ConditionRows,
		Channels: []models.Channel{{
			Kind:       models.ChannelEmail,
			Recipients: []models.Recipient{{UserID: 1, Email: "one@example.com"}},
		}},
	}
}

func TestCreate_PersistsAndNotifiesCreator(t *testing.T) {
	store := newFakeStore()
	svc, notifier, audit, events := setupService(t, store, true)

	created, err := svc.Create(context.Background(), models.Actor{UserID: 1}, validSpec())
	require.NoError(t, err)

	assert.Equal(t, 1, created.CreatorID)
	assert.Equal(t, 10, created.CardID)
	assert.Equal(t, []int{created.ID}, notifier.created)
	assert.Equal(t, []string{"create_alert"}, audit.actions)
	require.Len(t, events.events, 1)
	assert.Equal(t, "create_alert", events.events[0].Action)
}

func TestCreate_NoTransportNoNotice(t *testing.T) {
	store := newFakeStore()
	svc, notifier, _, _ := setupService(t, store, false)

	_, err := svc.Create(context.Background(), models.Actor{UserID: 1}, validSpec())
	require.NoError(t, err)
	assert.Empty(t, notifier.created)
}

func TestCreate_ValidationRejectsBeforePersistence(t *testing.T) {
	store := newFakeStore()
	svc, notifier, audit, _ := setupService(t, store, true)

	cases := []AlertSpec{
		{CardID: 10, Condition: "sometimes", Channels: validSpec().Channels},
		{CardID: 10, Condition: models.ConditionRows},
		{CardID: 0, Condition: models.ConditionRows, Channels: validSpec().Channels},
		{CardID: 10, Condition: models.ConditionRows, Channels: []models.Channel{
			{Kind: models.ChannelEmail, Recipients: []models.Recipient{{UserID: 1}}},
			{Kind: models.ChannelEmail, Recipients: []models.Recipient{{UserID: 2}}},
		}},
		{CardID: 10, Condition: models.ConditionRows, Channels: []models.Channel{
			{Kind: models.ChannelChat},
		}},
	}

	for _, spec := range cases {
		_, err := svc.Create(context.Background(), models.Actor{UserID: 1}, spec)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	}
	assert.Zero(t, store.createCalls, "rejected requests must not touch the store")
	assert.Empty(t, notifier.created)
	assert.Empty(t, audit.actions)
}

func TestCreate_CardAccessDenied(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{configured: true}
	svc := NewService(store, fakeDirectory{}, fakeCards{allow: false}, notifier, &fakeAuditor{}, &fakeEvents{}, zap.NewNop())

	_, err := svc.Create(context.Background(), models.Actor{UserID: 1}, validSpec())
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, store.createCalls)
}

// Superuser update with changed recipients notifies exactly the diffed
// users.
func TestUpdate_SuperuserEditNotifiesDiff(t *testing.T) {
	existing := models.Alert{
		ID:        1,
		CreatorID: 1,
		CardID:    10,
		Condition: models.ConditionRows,
		Channels: []models.Channel{{
			Kind: models.ChannelEmail,
			Recipients: []models.Recipient{
				{UserID: 1, Email: "one@example.com"},
				{UserID: 2, Email: "two@example.com"},
			},
		}},
	}
	store := newFakeStore(existing)
	svc, notifier, _, _ := setupService(t, store, true)

	spec := AlertSpec{
		CardID:    10,
		Condition: models.ConditionRows,
		Channels: []models.Channel{{
			Kind: models.ChannelEmail,
			Recipients: []models.Recipient{
				{UserID: 2, Email: "two@example.com"},
				{UserID: 3, Email: "three@example.com"},
			},
		}},
	}

	_, err := svc.Update(context.Background(), models.Actor{UserID: 9, IsSuperuser: true}, 1, spec)
	require.NoError(t, err)

	assert.Equal(t, []notice{{1, 1}}, notifier.adminRemoved, "U1 was removed by an admin")
	assert.Equal(t, []notice{{1, 3}}, notifier.recipientAdded, "U3 was added")
}

func TestUpdate_SelfEditStaysSilent(t *testing.T) {
	existing := models.Alert{
		ID:        1,
		CreatorID: 1,
		CardID:    10,
		Condition: models.ConditionRows,
		Channels: []models.Channel{{
			Kind: models.ChannelEmail,
			Recipients: []models.Recipient{
				{UserID: 1, Email: "one@example.com"},
				{UserID: 2, Email: "two@example.com"},
			},
		}},
	}
	store := newFakeStore(existing)
	svc, notifier, _, _ := setupService(t, store, true)

	spec := AlertSpec{
		CardID:    10,
		Condition: models.ConditionRows,
		Channels: []models.Channel{{
			Kind:       models.ChannelEmail,
			Recipients: []models.Recipient{{UserID: 1, Email: "one@example.com"}},
		}},
	}

	_, err := svc.Update(context.Background(), models.Actor{UserID: 1}, 1, spec)
	require.NoError(t, err)

	assert.Empty(t, notifier.adminRemoved)
	assert.Empty(t, notifier.recipientAdded)
}

func TestUpdate_StrangerForbiddenBeforePersistence(t *testing.T) {
	store := newFakeStore(alertWithRecipients(1, 1, 2))
	svc, _, _, _ := setupService(t, store, true)

	_, err := svc.Update(context.Background(), models.Actor{UserID: 7}, 1, validSpec())
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Zero(t, store.updateCalls)
}

func TestUpdate_GhostOwnerForbidden(t *testing.T) {
	store := newFakeStore(alertWithRecipients(1, 2))
	svc, _, _, _ := setupService(t, store, true)

	_, err := svc.Update(context.Background(), models.Actor{UserID: 1}, 1, validSpec())
	assert.ErrorIs(t, err, ErrNotRecipient)
	assert.Zero(t, store.updateCalls)
}

func TestUpdate_NotFound(t *testing.T) {
	store := newFakeStore()
	svc, _, _, _ := setupService(t, store, true)

	_, err := svc.Update(context.Background(), models.Actor{UserID: 1}, 404, validSpec())
	assert.ErrorIs(t, err, ErrNotFound)
}

// Sole creator-recipient without a chat channel: unsubscribe deletes the
// whole alert, never a plain recipient removal.
func TestUnsubscribe_DeletesOrphanedAlert(t *testing.T) {
	a := models.Alert{
		ID:        1,
		CreatorID: 1,
		CardID:    10,
		Condition: models.ConditionRows,
		Channels: []models.Channel{{
			Kind:       models.ChannelEmail,
			Recipients: []models.Recipient{{UserID: 1, Email: "one@example.com"}},
		}},
	}
	store := newFakeStore(a)
	svc, notifier, _, _ := setupService(t, store, true)

	err := svc.Unsubscribe(context.Background(), models.Actor{UserID: 1}, 1)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, store.deleted)
	assert.Empty(t, store.removed, "no recipient removal on the delete path")
	assert.Equal(t, []notice{{1, 1}}, notifier.selfUnsub)
}

func TestUnsubscribe_ChatChannelKeepsAlert(t *testing.T) {
	a := models.Alert{
		ID:        1,
		CreatorID: 1,
		CardID:    10,
		Condition: models.ConditionRows,
		Channels: []models.Channel{
			{Kind: models.ChannelEmail, Recipients: []models.Recipient{{UserID: 1, Email: "one@example.com"}}},
			{Kind: models.ChannelChat, Destination: "#ops"},
		},
	}
	store := newFakeStore(a)
	svc, _, _, _ := setupService(t, store, true)

	err := svc.Unsubscribe(context.Background(), models.Actor{UserID: 1}, 1)
	require.NoError(t, err)

	assert.Empty(t, store.deleted)
	assert.Equal(t, [][2]int{{1, 1}}, store.removed)

	kept, err := store.GetAlert(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, kept.EmailRecipients())
	_, hasChat := kept.Channel(models.ChannelChat)
	assert.True(t, hasChat, "chat channel untouched")
}

func TestUnsubscribe_SuperuserForbiddenWithoutStateChange(t *testing.T) {
	store := newFakeStore(alertWithRecipients(1, 1, 2))
	svc, notifier, _, events := setupService(t, store, true)

	err := svc.Unsubscribe(context.Background(), models.Actor{UserID: 9, IsSuperuser: true}, 1)
	assert.ErrorIs(t, err, ErrSuperuserUnsubscribe)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, store.deleted)
	assert.Empty(t, store.removed)
	assert.Empty(t, notifier.selfUnsub)
	assert.Empty(t, events.events)
}

// A creator who is no longer on the distribution list may still call
// unsubscribe (read access via creatorship), but nothing changes and no
// confirmation goes out.
func TestUnsubscribe_CreatorOffListGetsNoConfirmation(t *testing.T) {
	store := newFakeStore(alertWithRecipients(1, 2))
	svc, notifier, _, _ := setupService(t, store, true)

	err := svc.Unsubscribe(context.Background(), models.Actor{UserID: 1}, 1)
	require.NoError(t, err)

	assert.Empty(t, store.deleted)
	assert.Empty(t, notifier.selfUnsub, "no confirmation for a no-op removal")

	kept, err := store.GetAlert(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, recipientIDs(kept.EmailRecipients()))
}

func TestUnsubscribe_StrangerForbidden(t *testing.T) {
	store := newFakeStore(alertWithRecipients(1, 1, 2))
	svc, _, _, _ := setupService(t, store, true)

	err := svc.Unsubscribe(context.Background(), models.Actor{UserID: 7}, 1)
	assert.ErrorIs(t, err, ErrNotRecipient)
	assert.Empty(t, store.removed)
}

func TestDelete(t *testing.T) {
	store := newFakeStore(alertWithRecipients(1, 1, 2))
	svc, notifier, audit, _ := setupService(t, store, true)

	err := svc.Delete(context.Background(), models.Actor{UserID: 2}, 1)
	assert.ErrorIs(t, err, ErrForbidden, "recipient cannot delete")

	err = svc.Delete(context.Background(), models.Actor{UserID: 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, store.deleted)
	assert.Contains(t, audit.actions, "delete_alert")
	assert.Empty(t, notifier.selfUnsub, "delete sends no notification")

	err = svc.Delete(context.Background(), models.Actor{UserID: 1}, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList_AnnotatesReadOnly(t *testing.T) {
	mine := alertWithRecipients(1, 1, 2)
	mine.ID = 1
	theirs := alertWithRecipients(3, 3, 1)
	theirs.ID = 2
	store := newFakeStore(mine, theirs)
	svc, _, _, _ := setupService(t, store, true)

	views, err := svc.List(context.Background(), models.Actor{UserID: 1})
	require.NoError(t, err)
	require.Len(t, views, 2)

	byID := map[int]AlertView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.False(t, byID[1].ReadOnly, "creator and recipient")
	assert.True(t, byID[2].ReadOnly, "mere recipient")
}

func TestListByCard_SuperuserSeesAll(t *testing.T) {
	a := alertWithRecipients(1, 1)
	a.ID = 1
	a.CardID = 10
	b := alertWithRecipients(2, 2)
	b.ID = 2
	b.CardID = 20
	store := newFakeStore(a, b)
	svc, _, _, _ := setupService(t, store, true)

	views, err := svc.ListByCard(context.Background(), models.Actor{UserID: 9, IsSuperuser: true}, 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 1, views[0].ID)
	assert.False(t, views[0].ReadOnly, "superusers always have write access")

	views, err = svc.ListByCard(context.Background(), models.Actor{UserID: 3}, 10)
	require.NoError(t, err)
	assert.Empty(t, views, "non-superuser sees only own or received alerts")
}
