package expirationscan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"assettrack-notifier/internal/common/logger"
	"assettrack-notifier/internal/models"
	"assettrack-notifier/internal/notify"
	"assettrack-notifier/internal/store"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeAssets struct {
	expiring map[string][]models.Asset // keyed by guard column
	expired  []models.Asset
	marked   []string
	markErr  error
	queryErr error
}

func (f *fakeAssets) key(kind models.AssetKind, guard store.GuardColumn) string {
	return string(kind) + "/" + string(guard)
}

func (f *fakeAssets) ExpiringBetween(_ context.Context, kind models.AssetKind, _, _ time.Time, guard store.GuardColumn) ([]models.Asset, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.expiring[f.key(kind, guard)], nil
}

func (f *fakeAssets) ExpiredUnnotified(_ context.Context, kind models.AssetKind, _ time.Time) ([]models.Asset, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if kind != models.AssetLicense {
		return nil, nil
	}
	return f.expired, nil
}

func (f *fakeAssets) MarkNotified(_ context.Context, _ models.AssetKind, assetID string, guard store.GuardColumn, _ time.Time) (bool, error) {
	if f.markErr != nil {
		return false, f.markErr
	}
	f.marked = append(f.marked, assetID+"/"+string(guard))
	return true, nil
}

type fakeRecipients struct {
	admins    map[string][]models.Recipient
	auxiliary map[string][]string
	adminErr  error
	auxErr    error
}

func (f *fakeRecipients) AdminsOf(_ context.Context, organizationID string) ([]models.Recipient, error) {
	if f.adminErr != nil {
		return nil, f.adminErr
	}
	return f.admins[organizationID], nil
}

func (f *fakeRecipients) AuxiliaryOf(_ context.Context, recipientID string) ([]string, error) {
	if f.auxErr != nil {
		return nil, f.auxErr
	}
	return f.auxiliary[recipientID], nil
}

type fakeGate struct {
	disabled map[string]map[models.NotificationKind]bool // recipientID -> kind -> opted out
	err      error
}

func (f *fakeGate) Enabled(_ context.Context, recipientID string, kind models.NotificationKind) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.disabled[recipientID][kind] {
		return false, nil
	}
	return true, nil
}

type sentMail struct {
	To   string
	CC   []string
	Kind models.NotificationKind
	Data map[string]interface{}
}

type fakeSender struct {
	sent    []sentMail
	failFor map[string]error // recipient email -> error
}

func (f *fakeSender) Dispatch(_ context.Context, req *notify.Request) (*notify.Result, error) {
	if err, ok := f.failFor[req.To]; ok {
		return nil, err
	}
	f.sent = append(f.sent, sentMail{To: req.To, CC: req.CC, Kind: req.Kind, Data: req.Data})
	return &notify.Result{ProviderID: "msg-" + req.To, SentAt: time.Now()}, nil
}

func testClock() func() time.Time {
	// A fixed afternoon, so the day boundary math is exercised.
	fixed := time.Date(2024, 6, 8, 15, 30, 0, 0, time.UTC)
	return func() time.Time { return fixed }
}

func daysFromToday(n int) *time.Time {
	t := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
	return &t
}

func licenseAsset(id, orgID string, expiration *time.Time) models.Asset {
	return models.Asset{
		ID:             id,
		OrganizationID: orgID,
		Kind:           models.AssetLicense,
		Name:           "Photoshop",
		Vendor:         "Adobe",
		ExpirationDate: expiration,
	}
}

func newTestService(assets AssetSource, recipients *fakeRecipients, gate *fakeGate, sender *fakeSender, t *testing.T) *Service {
	cfg := &Config{AppURL: "https://app.example.test"}
	log := logger.NewZapAdapter(zaptest.NewLogger(t))
	return NewService(cfg, assets, recipients, gate, sender, log).WithClock(testClock())
}

func singleAdminRecipients() *fakeRecipients {
	return &fakeRecipients{
		admins: map[string][]models.Recipient{
			"org-1": {{ID: "p-1", OrganizationID: "org-1", Email: "alice@acme.test", Role: models.RoleAdmin}},
		},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestService_Run_ThirtyDayLicense(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{}}
	assets.expiring["license/notification_30_sent"] = []models.Asset{
		licenseAsset("asset-1", "org-1", daysFromToday(20)),
	}
	recipients := singleAdminRecipients()
	recipients.auxiliary = map[string][]string{"p-1": {"ops@acme.test"}}
	sender := &fakeSender{}

	svc := newTestService(assets, recipients, &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, 1, result.Processed.Expiring30Licenses)
	assert.Empty(t, result.Errors)

	require.Len(t, sender.sent, 1)
	mail := sender.sent[0]
	assert.Equal(t, "alice@acme.test", mail.To)
	assert.Equal(t, []string{"ops@acme.test"}, mail.CC)
	assert.Equal(t, models.KindLicenseExpiring30, mail.Kind)
	assert.Equal(t, "Photoshop", mail.Data["assetName"])
	assert.Equal(t, 20, mail.Data["daysLeft"])
	assert.Equal(t, "June 28, 2024", mail.Data["expirationDateFormatted"])
	assert.Equal(t, "https://app.example.test", mail.Data["appUrl"])

	assert.Equal(t, []string{"asset-1/notification_30_sent"}, assets.marked)
}

func TestService_Run_SevenDayAndExpiredKinds(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{}}
	assets.expiring["license/notification_7_sent"] = []models.Asset{
		licenseAsset("asset-7", "org-1", daysFromToday(3)),
	}
	assets.expired = []models.Asset{
		licenseAsset("asset-x", "org-1", daysFromToday(-2)),
	}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.Processed.Expiring7Licenses)
	assert.Equal(t, 1, result.Processed.ExpiredLicenses)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, models.KindLicenseExpiring7, sender.sent[0].Kind)
	assert.Equal(t, models.KindLicenseExpired, sender.sent[1].Kind)
	assert.Equal(t, -2, sender.sent[1].Data["daysLeft"])
	assert.ElementsMatch(t, []string{
		"asset-7/notification_7_sent",
		"asset-x/notification_expired_sent",
	}, assets.marked)
}

func TestService_Run_HardwareAndContractKinds(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{}}
	hw := licenseAsset("hw-1", "org-1", daysFromToday(15))
	hw.Kind = models.AssetHardware
	hw.Name = "ThinkPad"
	hw.Vendor = "Lenovo"
	contract := licenseAsset("ct-1", "org-1", daysFromToday(25))
	contract.Kind = models.AssetContract
	assets.expiring["hardware/notification_30_sent"] = []models.Asset{hw}
	assets.expiring["contract/notification_30_sent"] = []models.Asset{contract}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Processed.Expiring30Hardware)
	assert.Equal(t, 1, result.Processed.Expiring30Contracts)
	require.Len(t, sender.sent, 2)
	assert.Equal(t, models.KindHardwareWarrantyExpiring, sender.sent[0].Kind)
	assert.Equal(t, "Lenovo", sender.sent[0].Data["vendorOrBrand"])
	assert.Equal(t, models.KindContractExpiring, sender.sent[1].Kind)
}

func TestService_Run_FansOutToAllAdmins(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
	}}
	recipients := &fakeRecipients{
		admins: map[string][]models.Recipient{
			"org-1": {
				{ID: "p-1", Email: "alice@acme.test", Role: models.RoleAdmin},
				{ID: "p-2", Email: "bob@acme.test", Role: models.RoleSuperAdmin},
			},
		},
	}
	sender := &fakeSender{}

	svc := newTestService(assets, recipients, &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.Equal(t, 2, result.SentCount)
	require.Len(t, sender.sent, 2)
	// One guard update per asset, not per recipient.
	assert.Equal(t, []string{"asset-1/notification_30_sent"}, assets.marked)
}

// ==========================
// Preference Gating Tests
// ==========================

func TestService_Run_OptedOutRecipientSkipped(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
	}}
	gate := &fakeGate{disabled: map[string]map[models.NotificationKind]bool{
		"p-1": {models.KindLicenseExpiring30: true},
	}}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), gate, sender, t)
	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.SentCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Empty(t, sender.sent)
	// Suppression is a considered outcome, not a failure. The guard flips
	// so the asset is not re-fetched on every run; opting back in later
	// does not resurrect an already-handled window.
	assert.Equal(t, []string{"asset-1/notification_30_sent"}, assets.marked)
}

func TestService_Run_PreferenceLookupErrorIsolated(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
	}}
	gate := &fakeGate{err: errors.New("preferences table unavailable")}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), gate, sender, t)
	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.FailedCount)
	assert.Len(t, result.Errors, 1)
	assert.Empty(t, assets.marked)
}

// ==========================
// Failure Isolation Tests
// ==========================

func TestService_Run_DeliveryFailureDoesNotBlockOtherRecipients(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
	}}
	recipients := &fakeRecipients{
		admins: map[string][]models.Recipient{
			"org-1": {
				{ID: "p-1", Email: "alice@acme.test", Role: models.RoleAdmin},
				{ID: "p-2", Email: "bob@acme.test", Role: models.RoleAdmin},
			},
		},
	}
	sender := &fakeSender{failFor: map[string]error{
		"alice@acme.test": errors.New("mailbox rejected"),
	}}

	svc := newTestService(assets, recipients, &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "bob@acme.test", sender.sent[0].To)
	// The errored recipient keeps the guard down so the candidate is
	// retried on the next run.
	assert.Empty(t, assets.marked)
}

func TestService_Run_AllDeliveriesFailedKeepsGuardDown(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
	}}
	sender := &fakeSender{failFor: map[string]error{
		"alice@acme.test": errors.New("provider outage"),
	}}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	assert.Empty(t, assets.marked)
}

func TestService_Run_WindowQueryFailureContinues(t *testing.T) {
	assets := &fakeAssets{queryErr: errors.New("connection reset")}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	// Every window reported its failure instead of aborting the run.
	assert.Len(t, result.Errors, len(scanWindows))
	assert.Empty(t, sender.sent)
}

func TestService_Run_RecipientLookupFailureIsolatedPerCandidate(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
	}}
	recipients := &fakeRecipients{adminErr: errors.New("profiles unavailable")}
	sender := &fakeSender{}

	svc := newTestService(assets, recipients, &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.False(t, result.Success)
	assert.Len(t, result.Errors, 1)
	assert.Empty(t, assets.marked)
}

func TestService_Run_AuxiliaryLookupFailureStillDelivers(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
	}}
	recipients := singleAdminRecipients()
	recipients.auxErr = errors.New("auxiliary table unavailable")
	sender := &fakeSender{}

	svc := newTestService(assets, recipients, &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SentCount)
	require.Len(t, sender.sent, 1)
	assert.Empty(t, sender.sent[0].CC)
}

func TestService_Run_GuardUpdateFailureReported(t *testing.T) {
	assets := &fakeAssets{
		expiring: map[string][]models.Asset{
			"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
		},
		markErr: errors.New("deadlock detected"),
	}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	// The mail went out; only the guard write is reported as an error.
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.SentCount)
	assert.Len(t, result.Errors, 1)
}

func TestService_Run_NoAdminsStillMarksGuard(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{
		"license/notification_30_sent": {licenseAsset("asset-1", "org-orphan", daysFromToday(10))},
	}}
	recipients := &fakeRecipients{admins: map[string][]models.Recipient{}}
	sender := &fakeSender{}

	svc := newTestService(assets, recipients, &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.SentCount)
	// A tenant with no admins has nobody left to consider; the guard
	// flips so the asset is not re-processed every run.
	assert.Equal(t, []string{"asset-1/notification_30_sent"}, assets.marked)
}

// ==========================
// Idempotency Tests
// ==========================

// guardedAssets honors guard flags across runs: once MarkNotified
// records an asset for a guard column, the window queries stop
// returning it, the way the real store's guard filter behaves.
type guardedAssets struct {
	expiring map[string][]models.Asset
	guards   map[string]bool
}

func (f *guardedAssets) ExpiringBetween(_ context.Context, kind models.AssetKind, _, _ time.Time, guard store.GuardColumn) ([]models.Asset, error) {
	var out []models.Asset
	for _, a := range f.expiring[string(kind)+"/"+string(guard)] {
		if !f.guards[a.ID+"/"+string(guard)] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *guardedAssets) ExpiredUnnotified(_ context.Context, _ models.AssetKind, _ time.Time) ([]models.Asset, error) {
	return nil, nil
}

func (f *guardedAssets) MarkNotified(_ context.Context, _ models.AssetKind, assetID string, guard store.GuardColumn, _ time.Time) (bool, error) {
	key := assetID + "/" + string(guard)
	if f.guards[key] {
		return false, nil
	}
	f.guards[key] = true
	return true, nil
}

func TestService_Run_SecondRunSendsNothing(t *testing.T) {
	assets := &guardedAssets{
		expiring: map[string][]models.Asset{
			"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
		},
		guards: map[string]bool{},
	}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)

	first := svc.Run(context.Background())
	assert.True(t, first.Success)
	assert.Equal(t, 1, first.SentCount)
	assert.Equal(t, 1, first.Processed.Expiring30Licenses)

	second := svc.Run(context.Background())
	assert.True(t, second.Success)
	assert.Equal(t, 0, second.SentCount)
	assert.Equal(t, 0, second.Processed.Expiring30Licenses)
	assert.Len(t, sender.sent, 1)
}

func TestService_Run_SuppressedCandidateNotRefetched(t *testing.T) {
	assets := &guardedAssets{
		expiring: map[string][]models.Asset{
			"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
		},
		guards: map[string]bool{},
	}
	gate := &fakeGate{disabled: map[string]map[models.NotificationKind]bool{
		"p-1": {models.KindLicenseExpiring30: true},
	}}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), gate, sender, t)

	first := svc.Run(context.Background())
	assert.True(t, first.Success)
	assert.Equal(t, 1, first.Processed.Expiring30Licenses)
	assert.Empty(t, sender.sent)

	// The window was handled even though everyone was suppressed, so a
	// later opt-in does not trigger a send for it.
	gate.disabled = nil
	second := svc.Run(context.Background())
	assert.Equal(t, 0, second.Processed.Expiring30Licenses)
	assert.Empty(t, sender.sent)
}

func TestService_Run_FailedCandidateRetriedNextRun(t *testing.T) {
	assets := &guardedAssets{
		expiring: map[string][]models.Asset{
			"license/notification_30_sent": {licenseAsset("asset-1", "org-1", daysFromToday(10))},
		},
		guards: map[string]bool{},
	}
	sender := &fakeSender{failFor: map[string]error{
		"alice@acme.test": errors.New("provider outage"),
	}}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)

	first := svc.Run(context.Background())
	assert.False(t, first.Success)
	assert.Equal(t, 0, first.SentCount)

	// Provider recovers; the next run picks the candidate up again.
	sender.failFor = nil
	second := svc.Run(context.Background())
	assert.True(t, second.Success)
	assert.Equal(t, 1, second.SentCount)

	// Now handled; a third run is quiet.
	third := svc.Run(context.Background())
	assert.Equal(t, 0, third.SentCount)
	assert.Equal(t, 0, third.Processed.Expiring30Licenses)
}

func TestService_Run_EmptyWindows(t *testing.T) {
	assets := &fakeAssets{expiring: map[string][]models.Asset{}}
	sender := &fakeSender{}

	svc := newTestService(assets, singleAdminRecipients(), &fakeGate{}, sender, t)
	result := svc.Run(context.Background())

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.SentCount)
	assert.Equal(t, Processed{}, result.Processed)
	assert.Empty(t, result.Errors)
}
