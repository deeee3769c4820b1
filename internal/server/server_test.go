package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"credit-service/internal/biz"
	"credit-service/internal/conf"
	creditErrors "credit-service/internal/errors"
	"credit-service/internal/service"

	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = log.NewStdLogger(io.Discard)

type snapshotLedger struct {
	biz.LedgerRepo
	snaps map[string]*biz.BalanceSnapshot
}

func (l *snapshotLedger) GetBalanceSnapshot(_ context.Context, id string) (*biz.BalanceSnapshot, error) {
	if s, ok := l.snaps[id]; ok {
		return s, nil
	}
	return nil, creditErrors.UnknownAccount(id)
}

type stubEvents struct {
	processed bool
	fail      error
}

func (e *stubEvents) IsProcessed(context.Context, string, string) (bool, error) {
	return e.processed, e.fail
}

func (e *stubEvents) MarkProcessed(context.Context, *biz.BillingEventRecord) error { return nil }

func newTestStack(events biz.BillingEventRepo) (*biz.CreditUseCase, *biz.Reconciler) {
	cfg := biz.DefaultCreditConfig()
	resolver := biz.NewEntitlementResolver(cfg)
	ledger := &snapshotLedger{snaps: map[string]*biz.BalanceSnapshot{
		"acc_1": {AccountID: "acc_1", Balance: 700, Tier: biz.TierFree},
	}}
	uc := biz.NewCreditUseCase(ledger, resolver, testLogger)
	return uc, biz.NewReconciler(uc, ledger, events, nil, resolver, cfg, testLogger)
}

func newTestHTTPServer(t *testing.T) nethttp.Handler {
	t.Helper()
	uc, rec := newTestStack(&stubEvents{processed: true})
	cfg := biz.DefaultCreditConfig()
	gate := biz.NewActionGate(uc, biz.NewCostTable(cfg), testLogger)
	bc := &conf.Bootstrap{Stripe: &conf.Stripe{WebhookSecret: "whsec_test"}}
	return NewHTTPServer(bc,
		service.NewCreditService(uc, gate, testLogger),
		service.NewAdminService(uc, nil, nil, testLogger),
		service.NewWebhookService(bc, rec, nil, testLogger),
		testLogger,
	)
}

func TestHTTPCheckBalance(t *testing.T) {
	h := newTestHTTPServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(nethttp.MethodGet, "/v1/accounts/acc_1/balance?required=1000", nil))
	require.Equal(t, nethttp.StatusOK, rr.Code)

	var body struct {
		Sufficient     bool  `json:"sufficient"`
		CurrentBalance int64 `json:"current_balance"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.False(t, body.Sufficient)
	assert.Equal(t, int64(700), body.CurrentBalance)
}

func TestHTTPErrorStatus(t *testing.T) {
	h := newTestHTTPServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(nethttp.MethodGet, "/v1/accounts/ghost/balance", nil))
	assert.Equal(t, nethttp.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), creditErrors.ReasonUnknownAccount)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(nethttp.MethodPost, "/v1/accounts/acc_1/quote", strings.NewReader(`{"action":"image-generate","count":2}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rr, req)
	assert.Equal(t, nethttp.StatusPaymentRequired, rr.Code)
}

func TestHTTPWebhookNeedsSignature(t *testing.T) {
	h := newTestHTTPServer(t)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(nethttp.MethodPost, "/v1/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=00")
	h.ServeHTTP(rr, req)
	assert.Equal(t, nethttp.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), creditErrors.ReasonInvalidSignature)
}

func TestHTTPMetrics(t *testing.T) {
	h := newTestHTTPServer(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	assert.Equal(t, nethttp.StatusOK, rr.Code)
}

func message(body string) *primitive.MessageExt {
	return &primitive.MessageExt{Message: primitive.Message{Body: []byte(body)}}
}

func TestConsumerAcknowledgesReconciledEvents(t *testing.T) {
	_, rec := newTestStack(&stubEvents{processed: true})
	s := &MQConsumerServer{reconciler: rec, log: log.NewHelper(testLogger), enabled: true}

	res, err := s.handler(context.Background(),
		message(`{"id":"evt_1","provider":"stripe","type":"checkout_completed"}`),
		message(`not json`),
		message(`{"id":"evt_2","provider":"stripe","type":"bogus"}`),
	)
	require.NoError(t, err)
	assert.Equal(t, consumer.ConsumeSuccess, res)
}

func TestConsumerRetriesInfrastructureFailures(t *testing.T) {
	_, rec := newTestStack(&stubEvents{fail: creditErrors.LedgerUnavailable(stderrors.New("db down"))})
	s := &MQConsumerServer{reconciler: rec, log: log.NewHelper(testLogger), enabled: true}

	res, err := s.handler(context.Background(), message(`{"id":"evt_1","provider":"stripe","type":"payment_failed"}`))
	require.NoError(t, err)
	assert.Equal(t, consumer.ConsumeRetryLater, res)
}

func TestDisabledConsumerIsNoop(t *testing.T) {
	s := NewMQConsumerServer(&conf.Bootstrap{}, nil, testLogger)
	assert.NoError(t, s.Start(context.Background()))
	assert.NoError(t, s.Stop(context.Background()))
}
