package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/goalline/clubpay/internal/clock"
	gatewaydomain "github.com/goalline/clubpay/internal/gateway/domain"
	ledgerdomain "github.com/goalline/clubpay/internal/ledger/domain"
	ledgerrepo "github.com/goalline/clubpay/internal/ledger/repository"
	memberdomain "github.com/goalline/clubpay/internal/paymentmember/domain"
	memberrepo "github.com/goalline/clubpay/internal/paymentmember/repository"
	memberservice "github.com/goalline/clubpay/internal/paymentmember/service"
	requestrepo "github.com/goalline/clubpay/internal/paymentrequest/repository"
	teamdomain "github.com/goalline/clubpay/internal/teamaccount/domain"
	teamrepo "github.com/goalline/clubpay/internal/teamaccount/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fakeGateway struct {
	mu       sync.Mutex
	created  []gatewaydomain.Intent
	canceled []string
	statuses map[string]string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: make(map[string]string)}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, params gatewaydomain.CreateIntentParams) (gatewaydomain.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent := gatewaydomain.Intent{
		ID:           fmt.Sprintf("pi_%d", len(g.created)+1),
		ClientSecret: fmt.Sprintf("pi_%d_secret", len(g.created)+1),
		Status:       gatewaydomain.IntentStatusRequiresPaymentMethod,
		Amount:       params.Amount,
		Currency:     params.Currency,
	}
	g.created = append(g.created, intent)
	g.statuses[intent.ID] = intent.Status
	return intent, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, accountID, intentID string) (gatewaydomain.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	status, ok := g.statuses[intentID]
	if !ok {
		return gatewaydomain.Intent{}, errors.New("intent_not_found")
	}
	return gatewaydomain.Intent{ID: intentID, Status: status}, nil
}

func (g *fakeGateway) CancelIntent(ctx context.Context, accountID, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.canceled = append(g.canceled, intentID)
	g.statuses[intentID] = gatewaydomain.IntentStatusCanceled
	return nil
}

func (g *fakeGateway) createdCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

type failingLedger struct{}

func (failingLedger) Insert(ctx context.Context, db *gorm.DB, record *ledgerdomain.Record) error {
	return errors.New("ledger_unavailable")
}

func (failingLedger) MarkStatusByIntent(ctx context.Context, db *gorm.DB, intentID string, status ledgerdomain.RecordStatus, now time.Time) error {
	return nil
}

func TestApplySuccessIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, _ := newService(t, db, ledgerrepo.Provide())

	requestID := seedRequest(t, db, node, 2)
	memberID := seedMember(t, db, node, requestID, node.Generate(), 2567, memberdomain.StatusUnpaid)

	apply := memberdomain.ApplySuccessRequest{
		IntentID:         "pi_1",
		ChargeID:         "ch_1",
		MemberID:         memberID,
		AmountMinorUnits: 2567,
	}
	if err := svc.ApplySuccess(ctx, apply); err != nil {
		t.Fatalf("apply success: %v", err)
	}
	if err := svc.ApplySuccess(ctx, apply); err != nil {
		t.Fatalf("apply success replay: %v", err)
	}

	paid, collected := requestAggregates(t, db, requestID)
	if paid != 1 {
		t.Fatalf("expected paid_members 1, got %d", paid)
	}
	if collected != 2567 {
		t.Fatalf("expected total_collected 2567, got %d", collected)
	}

	var status string
	if err := db.Raw("SELECT payment_status FROM payment_request_members WHERE id = ?", memberID).Scan(&status).Error; err != nil {
		t.Fatalf("scan status: %v", err)
	}
	if status != string(memberdomain.StatusPaid) {
		t.Fatalf("expected status paid, got %s", status)
	}
}

func TestOutOfOrderEventsNeverRegressPaid(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, _ := newService(t, db, ledgerrepo.Provide())

	requestID := seedRequest(t, db, node, 1)
	memberID := seedMember(t, db, node, requestID, node.Generate(), 1000, memberdomain.StatusUnpaid)

	if err := svc.ApplySuccess(ctx, memberdomain.ApplySuccessRequest{
		IntentID: "pi_1",
		ChargeID: "ch_1",
		MemberID: memberID,
	}); err != nil {
		t.Fatalf("apply success: %v", err)
	}

	if err := svc.ApplyFailure(ctx, memberdomain.ApplyFailureRequest{
		IntentID: "pi_1",
		MemberID: memberID,
		Reason:   "card_declined",
	}); err != nil {
		t.Fatalf("apply failure: %v", err)
	}
	if err := svc.ApplyCancellation(ctx, memberdomain.ApplyCancellationRequest{
		IntentID: "pi_1",
		MemberID: memberID,
	}); err != nil {
		t.Fatalf("apply cancellation: %v", err)
	}

	var status, reason string
	row := db.Raw("SELECT payment_status, failure_reason FROM payment_request_members WHERE id = ?", memberID).Row()
	if err := row.Scan(&status, &reason); err != nil {
		t.Fatalf("scan member: %v", err)
	}
	if status != string(memberdomain.StatusPaid) {
		t.Fatalf("expected status paid, got %s", status)
	}
	if reason != "" {
		t.Fatalf("expected empty failure_reason, got %s", reason)
	}

	paid, collected := requestAggregates(t, db, requestID)
	if paid != 1 || collected != 1000 {
		t.Fatalf("expected aggregates 1/1000, got %d/%d", paid, collected)
	}
}

func TestConcurrentApplySuccessNoLostUpdates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, _ := newService(t, db, ledgerrepo.Provide())

	const n = 16
	requestID := seedRequest(t, db, node, n)

	memberIDs := make([]snowflake.ID, 0, n)
	var want int64
	for i := 0; i < n; i++ {
		amount := int64(1000 + i)
		want += amount
		memberIDs = append(memberIDs, seedMember(t, db, node, requestID, node.Generate(), amount, memberdomain.StatusUnpaid))
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i, memberID := range memberIDs {
		wg.Add(1)
		go func(i int, memberID snowflake.ID) {
			defer wg.Done()
			errs <- svc.ApplySuccess(ctx, memberdomain.ApplySuccessRequest{
				IntentID: fmt.Sprintf("pi_%d", i),
				ChargeID: fmt.Sprintf("ch_%d", i),
				MemberID: memberID,
			})
		}(i, memberID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("apply success: %v", err)
		}
	}

	paid, collected := requestAggregates(t, db, requestID)
	if paid != n {
		t.Fatalf("expected paid_members %d, got %d", n, paid)
	}
	if collected != want {
		t.Fatalf("expected total_collected %d, got %d", want, collected)
	}

	var status string
	if err := db.Raw("SELECT status FROM payment_requests WHERE id = ?", requestID).Scan(&status).Error; err != nil {
		t.Fatalf("scan request status: %v", err)
	}
	if status != "completed" {
		t.Fatalf("expected request completed once fully paid, got %s", status)
	}
}

func TestBindChargeIntentReusesRetryableIntent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, gateway := newService(t, db, ledgerrepo.Provide())

	requestID := seedRequest(t, db, node, 1)
	teamID := seedTeamAccount(t, db, node)
	setRequestTeam(t, db, requestID, teamID)
	memberID := seedMember(t, db, node, requestID, node.Generate(), 2567, memberdomain.StatusUnpaid)

	first, err := svc.BindChargeIntent(ctx, memberdomain.BindIntentRequest{MemberID: memberID, PaymentMethod: "card"})
	if err != nil {
		t.Fatalf("first bind: %v", err)
	}
	if first.Reused {
		t.Fatalf("first bind must create an intent")
	}

	second, err := svc.BindChargeIntent(ctx, memberdomain.BindIntentRequest{MemberID: memberID, PaymentMethod: "card"})
	if err != nil {
		t.Fatalf("second bind: %v", err)
	}
	if !second.Reused {
		t.Fatalf("second bind must reuse the retryable intent")
	}
	if first.Intent.ID != second.Intent.ID {
		t.Fatalf("expected same intent id, got %s and %s", first.Intent.ID, second.Intent.ID)
	}
	if gateway.createdCount() != 1 {
		t.Fatalf("expected 1 created intent, got %d", gateway.createdCount())
	}
	assertCount(t, db, "SELECT COUNT(1) FROM payment_ledger_records", 1)
}

func TestBindChargeIntentRejectsPaidMember(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, gateway := newService(t, db, ledgerrepo.Provide())

	requestID := seedRequest(t, db, node, 1)
	teamID := seedTeamAccount(t, db, node)
	setRequestTeam(t, db, requestID, teamID)
	memberID := seedMember(t, db, node, requestID, node.Generate(), 2567, memberdomain.StatusPaid)

	_, err := svc.BindChargeIntent(ctx, memberdomain.BindIntentRequest{MemberID: memberID, PaymentMethod: "card"})
	if !errors.Is(err, memberdomain.ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got %v", err)
	}
	if gateway.createdCount() != 0 {
		t.Fatalf("expected no created intents, got %d", gateway.createdCount())
	}
	assertCount(t, db, "SELECT COUNT(1) FROM payment_ledger_records", 0)
}

func TestBindChargeIntentMissingGatewayAccount(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, _ := newService(t, db, ledgerrepo.Provide())

	requestID := seedRequest(t, db, node, 1)
	memberID := seedMember(t, db, node, requestID, node.Generate(), 2567, memberdomain.StatusUnpaid)

	_, err := svc.BindChargeIntent(ctx, memberdomain.BindIntentRequest{MemberID: memberID, PaymentMethod: "card"})
	if !errors.Is(err, teamdomain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestBindChargeIntentCancelsIntentOnLedgerFailure(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, gateway := newService(t, db, failingLedger{})

	requestID := seedRequest(t, db, node, 1)
	teamID := seedTeamAccount(t, db, node)
	setRequestTeam(t, db, requestID, teamID)
	memberID := seedMember(t, db, node, requestID, node.Generate(), 2567, memberdomain.StatusUnpaid)

	_, err := svc.BindChargeIntent(ctx, memberdomain.BindIntentRequest{MemberID: memberID, PaymentMethod: "card"})
	if err == nil || err.Error() != "ledger_unavailable" {
		t.Fatalf("expected ledger_unavailable, got %v", err)
	}

	gateway.mu.Lock()
	canceled := len(gateway.canceled)
	gateway.mu.Unlock()
	if canceled != 1 {
		t.Fatalf("expected 1 canceled intent, got %d", canceled)
	}
	assertCount(t, db, "SELECT COUNT(1) FROM payment_ledger_records", 0)

	var intentID string
	if err := db.Raw("SELECT intent_id FROM payment_request_members WHERE id = ?", memberID).Scan(&intentID).Error; err != nil {
		t.Fatalf("scan intent_id: %v", err)
	}
	if intentID != "" {
		t.Fatalf("expected no bound intent, got %s", intentID)
	}
}

func TestApplyCancellationClearsIntentForRebind(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, gateway := newService(t, db, ledgerrepo.Provide())

	requestID := seedRequest(t, db, node, 1)
	teamID := seedTeamAccount(t, db, node)
	setRequestTeam(t, db, requestID, teamID)
	memberID := seedMember(t, db, node, requestID, node.Generate(), 2567, memberdomain.StatusUnpaid)

	first, err := svc.BindChargeIntent(ctx, memberdomain.BindIntentRequest{MemberID: memberID, PaymentMethod: "card"})
	if err != nil {
		t.Fatalf("first bind: %v", err)
	}

	if err := svc.ApplyCancellation(ctx, memberdomain.ApplyCancellationRequest{
		IntentID: first.Intent.ID,
		MemberID: memberID,
	}); err != nil {
		t.Fatalf("apply cancellation: %v", err)
	}

	second, err := svc.BindChargeIntent(ctx, memberdomain.BindIntentRequest{MemberID: memberID, PaymentMethod: "card"})
	if err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if second.Reused {
		t.Fatalf("rebind after cancellation must create a fresh intent")
	}
	if second.Intent.ID == first.Intent.ID {
		t.Fatalf("expected a new intent id after cancellation")
	}
	if gateway.createdCount() != 2 {
		t.Fatalf("expected 2 created intents, got %d", gateway.createdCount())
	}
}

func TestCreateMembersAllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc, node, _ := newService(t, db, ledgerrepo.Provide())

	requestID := seedRequest(t, db, node, 2)
	userID := node.Generate()

	err := svc.CreateMembers(ctx, memberdomain.CreateMembersRequest{
		PaymentRequestID: requestID,
		UserIDs:          []snowflake.ID{userID, userID},
		AmountMinorUnits: 2567,
		Currency:         "GBP",
	})
	if !errors.Is(err, memberdomain.ErrInvalidMembers) {
		t.Fatalf("expected ErrInvalidMembers, got %v", err)
	}
	assertCount(t, db, "SELECT COUNT(1) FROM payment_request_members", 0)

	err = svc.CreateMembers(ctx, memberdomain.CreateMembersRequest{
		PaymentRequestID: requestID,
		UserIDs:          []snowflake.ID{userID, node.Generate()},
		AmountMinorUnits: 2567,
		Currency:         "GBP",
	})
	if err != nil {
		t.Fatalf("create members: %v", err)
	}
	assertCount(t, db, "SELECT COUNT(1) FROM payment_request_members WHERE payment_status = 'unpaid'", 2)
}

func newService(t *testing.T, db *gorm.DB, ledger ledgerdomain.Repository) (memberdomain.Service, *snowflake.Node, *fakeGateway) {
	t.Helper()

	node, err := snowflake.NewNode(21)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	gateway := newFakeGateway()
	svc := memberservice.New(memberservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:     memberrepo.Provide(),
		Requests: requestrepo.Provide(),
		Ledger:   ledger,
		Accounts: teamrepo.Provide(),
		Gateway:  gateway,
	})
	return svc, node, gateway
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	schema := []string{
		`CREATE TABLE payment_requests (
			id BIGINT PRIMARY KEY,
			team_id BIGINT NOT NULL,
			created_by BIGINT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			amount_minor_units BIGINT NOT NULL,
			currency TEXT NOT NULL,
			due_date TIMESTAMPTZ NOT NULL,
			payment_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			total_members INTEGER NOT NULL DEFAULT 0,
			paid_members INTEGER NOT NULL DEFAULT 0,
			total_collected_minor_units BIGINT NOT NULL DEFAULT 0,
			cancel_reason TEXT,
			cancelled_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE payment_request_members (
			id BIGINT PRIMARY KEY,
			payment_request_id BIGINT NOT NULL,
			user_id BIGINT NOT NULL,
			amount_minor_units BIGINT NOT NULL,
			currency TEXT NOT NULL,
			payment_status TEXT NOT NULL,
			paid_at TIMESTAMPTZ,
			payment_method TEXT NOT NULL DEFAULT '',
			intent_id TEXT NOT NULL DEFAULT '',
			charge_id TEXT NOT NULL DEFAULT '',
			ledger_record_id BIGINT NOT NULL DEFAULT 0,
			failure_reason TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_payment_request_members_request_user ON payment_request_members(payment_request_id, user_id)`,
		`CREATE TABLE payment_ledger_records (
			id BIGINT PRIMARY KEY,
			user_id BIGINT NOT NULL,
			payment_request_id BIGINT NOT NULL,
			amount_minor_units BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			intent_id TEXT NOT NULL,
			payment_method TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE team_gateway_accounts (
			id BIGINT PRIMARY KEY,
			team_id BIGINT NOT NULL,
			provider TEXT NOT NULL,
			account_id TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_team_gateway_accounts_team ON team_gateway_accounts(team_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}
	return db
}

func seedRequest(t *testing.T, db *gorm.DB, node *snowflake.Node, totalMembers int) snowflake.ID {
	t.Helper()

	id := node.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO payment_requests (
			id, team_id, created_by, title, amount_minor_units, currency,
			due_date, status, total_members, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, node.Generate(), node.Generate(), "Match fees", 2500, "GBP",
		now.Add(14*24*time.Hour), "active", totalMembers, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed request: %v", err)
	}
	return id
}

func setRequestTeam(t *testing.T, db *gorm.DB, requestID, teamID snowflake.ID) {
	t.Helper()

	if err := db.Exec("UPDATE payment_requests SET team_id = ? WHERE id = ?", teamID, requestID).Error; err != nil {
		t.Fatalf("set request team: %v", err)
	}
}

func seedTeamAccount(t *testing.T, db *gorm.DB, node *snowflake.Node) snowflake.ID {
	t.Helper()

	teamID := node.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO team_gateway_accounts (id, team_id, provider, account_id, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		node.Generate(), teamID, "stripe", "acct_123", true, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed team account: %v", err)
	}
	return teamID
}

func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, requestID, userID snowflake.ID, amount int64, status memberdomain.Status) snowflake.ID {
	t.Helper()

	id := node.Generate()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO payment_request_members (
			id, payment_request_id, user_id, amount_minor_units, currency,
			payment_status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, requestID, userID, amount, "GBP", status, now, now,
	).Error
	if err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return id
}

func requestAggregates(t *testing.T, db *gorm.DB, requestID snowflake.ID) (int, int64) {
	t.Helper()

	var row struct {
		PaidMembers              int
		TotalCollectedMinorUnits int64
	}
	err := db.Raw(
		"SELECT paid_members, total_collected_minor_units FROM payment_requests WHERE id = ?",
		requestID,
	).Scan(&row).Error
	if err != nil {
		t.Fatalf("scan aggregates: %v", err)
	}
	return row.PaidMembers, row.TotalCollectedMinorUnits
}

func assertCount(t *testing.T, db *gorm.DB, query string, expected int64) {
	t.Helper()

	var count int64
	if err := db.Raw(query).Scan(&count).Error; err != nil {
		t.Fatalf("query count: %v", err)
	}
	if count != expected {
		t.Fatalf("expected %d, got %d", expected, count)
	}
}
