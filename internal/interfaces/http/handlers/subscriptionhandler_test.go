package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingdto "github.com/orris-inc/paybridge/internal/application/billing/dto"
	billing "github.com/orris-inc/paybridge/internal/application/billing/usecases"
	"github.com/orris-inc/paybridge/internal/interfaces/http/handlers/testutil"
	"github.com/orris-inc/paybridge/internal/shared/errors"
	"github.com/orris-inc/paybridge/internal/shared/logger"
)

type mockRegisterSubscriptionUC struct {
	result *billingdto.SubscriptionDTO
	err    error
	got    billing.RegisterSubscriptionCommand
}

func (m *mockRegisterSubscriptionUC) Execute(ctx context.Context, cmd billing.RegisterSubscriptionCommand) (*billingdto.SubscriptionDTO, error) {
	m.got = cmd
	return m.result, m.err
}

type mockGetSubscriptionUC struct {
	result *billingdto.SubscriptionDTO
	err    error
	got    billing.GetSubscriptionQuery
}

func (m *mockGetSubscriptionUC) Execute(ctx context.Context, query billing.GetSubscriptionQuery) (*billingdto.SubscriptionDTO, error) {
	m.got = query
	return m.result, m.err
}

type mockListSubscriptionsUC struct {
	result *billing.ListSubscriptionsResult
	err    error
	got    billing.ListSubscriptionsQuery
}

func (m *mockListSubscriptionsUC) Execute(ctx context.Context, query billing.ListSubscriptionsQuery) (*billing.ListSubscriptionsResult, error) {
	m.got = query
	return m.result, m.err
}

type mockChargeNowUC struct {
	result *billing.ChargeAttemptResult
	err    error
}

func (m *mockChargeNowUC) Execute(ctx context.Context, cmd billing.ChargeNowCommand) (*billing.ChargeAttemptResult, error) {
	return m.result, m.err
}

func testSubscriptionDTO() *billingdto.SubscriptionDTO {
	return &billingdto.SubscriptionDTO{
		ID:            "sub_xK9mP2vL3nQ",
		TenantID:      "tenant-a",
		Gateway:       "mercadopago",
		ExternalID:    "pre-1",
		Status:        "pending",
		Price:         2990,
		Currency:      "BRL",
		BillingPeriod: "monthly",
		AmountDue:     2990,
	}
}

func TestSubscriptionHandler_Register(t *testing.T) {
	register := &mockRegisterSubscriptionUC{result: testSubscriptionDTO()}
	h := NewSubscriptionHandler(register, &mockGetSubscriptionUC{}, &mockListSubscriptionsUC{}, &mockChargeNowUC{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodPost, "/admin/tenants/tenant-a/subscriptions", map[string]interface{}{
		"gateway":         "mercadopago",
		"external_id":     "pre-1",
		"price":           2990,
		"currency":        "BRL",
		"discount_kind":   "n_months",
		"discount_amount": 990,
		"discount_months": 3,
		"auto_charge":     true,
	})
	testutil.SetURLParam(c, "tenantId", "tenant-a")

	h.Register(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "tenant-a", register.got.TenantID)
	assert.Equal(t, int64(990), register.got.DiscountAmount)
	assert.Equal(t, 3, register.got.DiscountMonths)
	assert.True(t, register.got.AutoCharge)
}

func TestSubscriptionHandler_Register_Invalid(t *testing.T) {
	register := &mockRegisterSubscriptionUC{}
	h := NewSubscriptionHandler(register, &mockGetSubscriptionUC{}, &mockListSubscriptionsUC{}, &mockChargeNowUC{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodPost, "/admin/tenants/tenant-a/subscriptions", map[string]interface{}{
		"gateway":     "mercadopago",
		"external_id": "pre-1",
		"price":       -5,
		"currency":    "BRL",
	})
	testutil.SetURLParam(c, "tenantId", "tenant-a")

	h.Register(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, register.got.TenantID)
}

func TestSubscriptionHandler_Register_Duplicate(t *testing.T) {
	register := &mockRegisterSubscriptionUC{err: errors.NewConflictError("subscription already registered")}
	h := NewSubscriptionHandler(register, &mockGetSubscriptionUC{}, &mockListSubscriptionsUC{}, &mockChargeNowUC{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodPost, "/admin/tenants/tenant-a/subscriptions", map[string]interface{}{
		"gateway":     "stripe",
		"external_id": "sub_1",
		"currency":    "USD",
	})
	testutil.SetURLParam(c, "tenantId", "tenant-a")

	h.Register(c)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubscriptionHandler_List_ParsesFilters(t *testing.T) {
	list := &mockListSubscriptionsUC{result: &billing.ListSubscriptionsResult{
		Subscriptions: []*billingdto.SubscriptionDTO{testSubscriptionDTO()},
		Total:         1,
		Page:          2,
		PageSize:      10,
	}}
	h := NewSubscriptionHandler(&mockRegisterSubscriptionUC{}, &mockGetSubscriptionUC{}, list, &mockChargeNowUC{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/admin/tenants/tenant-a/subscriptions", nil)
	testutil.SetURLParam(c, "tenantId", "tenant-a")
	testutil.SetQueryParams(c, map[string]string{"status": "suspended", "gateway": "stripe", "page": "2", "page_size": "10", "sort_by": "next_charge_at", "sort_order": "asc"})

	h.List(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "suspended", list.got.Status)
	assert.Equal(t, "stripe", list.got.Gateway)
	assert.Equal(t, 2, list.got.Page)
	assert.Equal(t, 10, list.got.PageSize)
	assert.Equal(t, "next_charge_at", list.got.SortBy)
	assert.Equal(t, "asc", list.got.SortOrder)
}

func TestSubscriptionHandler_Get(t *testing.T) {
	get := &mockGetSubscriptionUC{result: testSubscriptionDTO()}
	h := NewSubscriptionHandler(&mockRegisterSubscriptionUC{}, get, &mockListSubscriptionsUC{}, &mockChargeNowUC{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/admin/tenants/tenant-a/subscriptions/sub_xK9mP2vL3nQ", nil)
	testutil.SetURLParam(c, "tenantId", "tenant-a")
	testutil.SetURLParam(c, "id", "sub_xK9mP2vL3nQ")

	h.Get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sub_xK9mP2vL3nQ", get.got.SubscriptionSID)

	var resp testutil.APIResponse
	require.NoError(t, testutil.ParseResponse(w, &resp))
	var got billingdto.SubscriptionDTO
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Equal(t, "pre-1", got.ExternalID)
}

func TestSubscriptionHandler_Get_BadID(t *testing.T) {
	get := &mockGetSubscriptionUC{}
	h := NewSubscriptionHandler(&mockRegisterSubscriptionUC{}, get, &mockListSubscriptionsUC{}, &mockChargeNowUC{}, logger.NewNopLogger())

	c, w := testutil.NewTestContext(http.MethodGet, "/admin/tenants/tenant-a/subscriptions/42", nil)
	testutil.SetURLParam(c, "tenantId", "tenant-a")
	testutil.SetURLParam(c, "id", "42")

	h.Get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, get.got.SubscriptionSID)
}

func TestSubscriptionHandler_ChargeNow(t *testing.T) {
	tests := []struct {
		name   string
		result *billing.ChargeAttemptResult
		err    error
		code   int
	}{
		{"approved", &billing.ChargeAttemptResult{Success: true, PaymentID: "pay_abc"}, nil, http.StatusOK},
		{"declined", &billing.ChargeAttemptResult{Error: "cc_rejected_insufficient_amount"}, nil, http.StatusOK},
		{"in progress", nil, errors.NewConflictError("charge already in progress"), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charge := &mockChargeNowUC{result: tt.result, err: tt.err}
			h := NewSubscriptionHandler(&mockRegisterSubscriptionUC{}, &mockGetSubscriptionUC{}, &mockListSubscriptionsUC{}, charge, logger.NewNopLogger())

			c, w := testutil.NewTestContext(http.MethodPost, "/admin/tenants/tenant-a/subscriptions/sub_xK9mP2vL3nQ/charge", nil)
			testutil.SetURLParam(c, "tenantId", "tenant-a")
			testutil.SetURLParam(c, "id", "sub_xK9mP2vL3nQ")

			h.ChargeNow(c)

			assert.Equal(t, tt.code, w.Code)
		})
	}
}
