package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	jwtpkg "github.com/piresc/trackwash/internal/pkg/jwt"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/services/booking"
	"github.com/piresc/trackwash/services/payment"
	"github.com/piresc/trackwash/services/payment/mocks"
	"github.com/piresc/trackwash/services/payment/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	request := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	request.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	recorder := httptest.NewRecorder()
	c := e.NewContext(request, recorder)
	// operators may act on any booking
	c.Set("user_id", uuid.New())
	c.Set("user_role", jwtpkg.RoleOperator)
	return c, recorder
}

func asCustomer(c echo.Context, userID uuid.UUID) {
	c.Set("user_id", userID)
	c.Set("user_role", jwtpkg.RoleCustomer)
}

func withCheckout(c echo.Context, id string) {
	c.SetParamNames("checkoutRequestID")
	c.SetParamValues(id)
}

func newHandler(t *testing.T) (*PaymentHandler, *mocks.MockPaymentUC) {
	handler, mockUC, _ := newHandlerWithBookings(t)
	return handler, mockUC
}

func newHandlerWithBookings(t *testing.T) (*PaymentHandler, *mocks.MockPaymentUC, *mocks.MockBookingGW) {
	ctrl := gomock.NewController(t)
	mockUC := mocks.NewMockPaymentUC(ctrl)
	mockBookings := mocks.NewMockBookingGW(ctrl)
	p := poller.New(mockUC, models.PaymentConfig{PollAttempts: 3, PollInterval: time.Millisecond}, nil)
	return NewPaymentHandler(mockUC, mockBookings, p), mockUC, mockBookings
}

const darajaSuccess = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1450.00},
          {"Name": "MpesaReceiptNumber", "Value": "QK43HS7612"},
          {"Name": "Balance"},
          {"Name": "TransactionDate", "Value": 20191219102115},
          {"Name": "PhoneNumber", "Value": 254708374149}
        ]
      }
    }
  }
}`

func TestParseCallback(t *testing.T) {
	t.Run("daraja envelope", func(t *testing.T) {
		cb, err := parseCallback([]byte(darajaSuccess))

		require.NoError(t, err)
		assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
		assert.Equal(t, "29115-34620561-1", cb.MerchantRequestID)
		assert.Equal(t, 0, cb.ResultCode)
		require.Len(t, cb.Metadata, 5)
		assert.Equal(t, "MpesaReceiptNumber", cb.Metadata[1].Name)
		assert.Equal(t, "QK43HS7612", cb.Metadata[1].Value)
		assert.Nil(t, cb.Metadata[2].Value)
	})

	t.Run("daraja failure without metadata", func(t *testing.T) {
		cb, err := parseCallback([]byte(`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_2","ResultCode":1032,"ResultDesc":"Request cancelled by user"}}}`))

		require.NoError(t, err)
		assert.Equal(t, 1032, cb.ResultCode)
		assert.Empty(t, cb.Metadata)
	})

	t.Run("flat shape", func(t *testing.T) {
		cb, err := parseCallback([]byte(`{
			"merchantRequestId": "29115-1",
			"checkoutRequestId": "ws_CO_3",
			"resultCode": 0,
			"resultDesc": "ok",
			"callbackMetadata": [{"name": "MpesaReceiptNumber", "value": "QK43HS7612"}]
		}`))

		require.NoError(t, err)
		assert.Equal(t, "ws_CO_3", cb.CheckoutRequestID)
		assert.Equal(t, 0, cb.ResultCode)
		require.Len(t, cb.Metadata, 1)
		assert.Equal(t, "QK43HS7612", cb.Metadata[0].Value)
	})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `ResultCode=0`},
		{"empty object", `{}`},
		{"flat without result code", `{"checkoutRequestId":"ws_CO_4"}`},
		{"flat without checkout id", `{"resultCode":0}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCallback([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}

func TestPaymentHandler_MpesaCallback(t *testing.T) {
	t.Run("forwards the normalised callback", func(t *testing.T) {
		// Arrange
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().HandleCallback(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cb models.MpesaCallback) error {
				assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)
				assert.Len(t, cb.Metadata, 5)
				return nil
			})
		c, rec := newContext(http.MethodPost, "/webhooks/mpesa/callback", darajaSuccess)

		// Act
		err := handler.MpesaCallback(c)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, rec.Body.String())
	})

	t.Run("acknowledges processing failures", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().HandleCallback(gomock.Any(), gomock.Any()).Return(errors.New("database unavailable"))
		c, rec := newContext(http.MethodPost, "/webhooks/mpesa/callback", darajaSuccess)

		err := handler.MpesaCallback(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, rec.Body.String())
	})

	t.Run("acknowledges malformed payloads without processing", func(t *testing.T) {
		handler, _ := newHandler(t)
		c, rec := newContext(http.MethodPost, "/webhooks/mpesa/callback", `{"hello":"world"}`)

		err := handler.MpesaCallback(c)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"ResultCode":0,"ResultDesc":"Accepted"}`, rec.Body.String())
	})
}

func TestPaymentHandler_InitiatePayment(t *testing.T) {
	bookingID := uuid.New()
	body := fmt.Sprintf(`{"bookingId":%q,"phone":"0712345678","amountKes":1450}`, bookingID)

	t.Run("success", func(t *testing.T) {
		// Arrange
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().InitiatePayment(gomock.Any(), models.InitiatePaymentRequest{
			BookingID: bookingID, Phone: "0712345678", AmountKES: 1450,
		}).Return(&models.InitiatePaymentResponse{
			Success:           true,
			CheckoutRequestID: "ws_CO_1",
			MerchantRequestID: "29115-1",
		}, nil)
		c, rec := newContext(http.MethodPost, "/api/v1/payments/mpesa", body)

		// Act
		err := handler.InitiatePayment(c)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		var resp models.InitiatePaymentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		assert.Equal(t, "ws_CO_1", resp.CheckoutRequestID)
	})

	tests := []struct {
		name      string
		err       error
		status    int
		alternate string
	}{
		{"invalid phone", payment.ErrInvalidPhone, http.StatusBadRequest, ""},
		{"invalid amount", payment.ErrInvalidAmount, http.StatusBadRequest, ""},
		{"booking not found", booking.ErrBookingNotFound, http.StatusNotFound, ""},
		{"in progress", payment.ErrPaymentInProgress, http.StatusConflict, ""},
		{"not payable", payment.ErrBookingNotPayable, http.StatusConflict, ""},
		{"provider rejected", &payment.GatewayError{Kind: payment.GatewayRejected, Code: "1", Message: "Insufficient balance"}, http.StatusPaymentRequired, "crypto"},
		{"provider auth", &payment.GatewayError{Kind: payment.GatewayAuth, Message: "bad credentials"}, http.StatusBadGateway, "crypto"},
		{"provider unreachable", &payment.GatewayError{Kind: payment.GatewayNetwork, Message: "timeout"}, http.StatusBadGateway, "crypto"},
		{"store failure", errors.New("failed to record payment"), http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockUC := newHandler(t)
			mockUC.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).Return(nil, tt.err)
			c, rec := newContext(http.MethodPost, "/api/v1/payments/mpesa", body)

			err := handler.InitiatePayment(c)

			require.NoError(t, err)
			assert.Equal(t, tt.status, rec.Code)
			var resp models.InitiatePaymentResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
			assert.Equal(t, tt.alternate, resp.AlternateMethod)
		})
	}

	t.Run("internal errors are not leaked", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).Return(nil, errors.New("pq: connection refused"))
		c, rec := newContext(http.MethodPost, "/api/v1/payments/mpesa", body)

		require.NoError(t, handler.InitiatePayment(c))
		assert.NotContains(t, rec.Body.String(), "pq:")
	})

	t.Run("invalid body", func(t *testing.T) {
		handler, _ := newHandler(t)
		c, rec := newContext(http.MethodPost, "/api/v1/payments/mpesa", `{"bookingId":`)

		require.NoError(t, handler.InitiatePayment(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPaymentHandler_GetPaymentStatus(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_1").
			Return(&models.PaymentStatusResponse{CheckoutRequestID: "ws_CO_1", Status: models.PaymentStatusCompleted, Receipt: "QK43HS7612"}, nil)
		c, rec := newContext(http.MethodGet, "/api/v1/payments/mpesa/status?checkoutRequestId=ws_CO_1", "")

		require.NoError(t, handler.GetPaymentStatus(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"receipt":"QK43HS7612"`)
	})

	t.Run("missing id", func(t *testing.T) {
		handler, _ := newHandler(t)
		c, rec := newContext(http.MethodGet, "/api/v1/payments/mpesa/status", "")

		require.NoError(t, handler.GetPaymentStatus(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_X").Return(nil, payment.ErrPaymentNotFound)
		c, rec := newContext(http.MethodGet, "/api/v1/payments/mpesa/status?checkoutRequestId=ws_CO_X", "")

		require.NoError(t, handler.GetPaymentStatus(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPaymentHandler_AwaitPayment(t *testing.T) {
	t.Run("returns once terminal", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		gomock.InOrder(
			mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_1").
				Return(&models.PaymentStatusResponse{CheckoutRequestID: "ws_CO_1", Status: models.PaymentStatusProcessing}, nil).Times(2),
			mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_1").
				Return(&models.PaymentStatusResponse{CheckoutRequestID: "ws_CO_1", Status: models.PaymentStatusCompleted}, nil),
		)
		c, rec := newContext(http.MethodGet, "/", "")
		withCheckout(c, "ws_CO_1")

		require.NoError(t, handler.AwaitPayment(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"completed"`)
	})

	t.Run("synthetic timeout after exhaustion", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_2").
			Return(&models.PaymentStatusResponse{CheckoutRequestID: "ws_CO_2", Status: models.PaymentStatusProcessing}, nil).Times(4)
		c, rec := newContext(http.MethodGet, "/", "")
		withCheckout(c, "ws_CO_2")

		require.NoError(t, handler.AwaitPayment(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"timeout"`)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_X").Return(nil, payment.ErrPaymentNotFound)
		c, rec := newContext(http.MethodGet, "/", "")
		withCheckout(c, "ws_CO_X")

		require.NoError(t, handler.AwaitPayment(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestPaymentHandler_ConfirmCryptoPayment(t *testing.T) {
	body := fmt.Sprintf(`{"bookingId":%q,"txHash":"0xabc","walletAddress":"0xdef","chainId":8453,"tokenSymbol":"USDC","amountUsd":11.5}`, uuid.New())

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"success", nil, http.StatusOK},
		{"invalid", payment.ErrInvalidCryptoPayment, http.StatusBadRequest},
		{"hash reused", payment.ErrDuplicateCorrelationID, http.StatusConflict},
		{"not payable", payment.ErrBookingNotPayable, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockUC := newHandler(t)
			var result *models.Payment
			if tt.err == nil {
				result = &models.Payment{CorrelationID: "0xabc", Method: models.PaymentMethodCrypto, Status: models.PaymentStatusCompleted}
			}
			mockUC.EXPECT().ConfirmCryptoPayment(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, req models.CryptoPaymentRequest) (*models.Payment, error) {
					assert.Equal(t, int64(8453), req.ChainID)
					assert.Equal(t, "USDC", req.TokenSymbol)
					return result, tt.err
				})
			c, rec := newContext(http.MethodPost, "/api/v1/payments/crypto", body)

			require.NoError(t, handler.ConfirmCryptoPayment(c))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestPaymentHandler_ReconcilePayment(t *testing.T) {
	handler, mockUC := newHandler(t)
	mockUC.EXPECT().ReconcilePayment(gomock.Any(), "ws_CO_1").
		Return(&models.PaymentStatusResponse{CheckoutRequestID: "ws_CO_1", Status: models.PaymentStatusProcessing}, nil)
	c, rec := newContext(http.MethodPost, "/", "")
	withCheckout(c, "ws_CO_1")

	require.NoError(t, handler.ReconcilePayment(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"processing"`)
}

func TestPaymentHandler_ListStalePayments(t *testing.T) {
	t.Run("parses filters", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().ListStalePayments(gomock.Any(), 3*time.Minute, 10).
			Return([]models.Payment{{CorrelationID: "ws_CO_1", Status: models.PaymentStatusProcessing}}, nil)
		c, rec := newContext(http.MethodGet, "/internal/payments/mpesa/stale?olderThan=3m&limit=10", "")

		require.NoError(t, handler.ListStalePayments(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "ws_CO_1")
	})

	t.Run("defaults left to the usecase", func(t *testing.T) {
		handler, mockUC := newHandler(t)
		mockUC.EXPECT().ListStalePayments(gomock.Any(), time.Duration(0), 0).Return(nil, nil)
		c, rec := newContext(http.MethodGet, "/internal/payments/mpesa/stale", "")

		require.NoError(t, handler.ListStalePayments(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	for _, query := range []string{"olderThan=soon", "olderThan=-1m", "limit=abc", "limit=0"} {
		t.Run("rejects "+query, func(t *testing.T) {
			handler, _ := newHandler(t)
			c, rec := newContext(http.MethodGet, "/internal/payments/mpesa/stale?"+query, "")

			require.NoError(t, handler.ListStalePayments(c))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestPaymentHandler_BookingOwnership(t *testing.T) {
	owner := uuid.New()
	bookingID := uuid.New()
	owned := &models.Booking{ID: bookingID, CustomerID: owner, Status: models.BookingStatusPendingPayment}
	initiateBody := fmt.Sprintf(`{"bookingId":%q,"phone":"0712345678","amountKes":1450}`, bookingID)
	cryptoBody := fmt.Sprintf(`{"bookingId":%q,"txHash":"0xabc","walletAddress":"0xdef","chainId":8453,"tokenSymbol":"USDC","amountUsd":11.5}`, bookingID)
	settled := &models.PaymentStatusResponse{
		CheckoutRequestID: "ws_CO_1", BookingID: &bookingID,
		Status: models.PaymentStatusCompleted, Receipt: "QK43HS7612",
	}

	t.Run("owner may initiate", func(t *testing.T) {
		handler, mockUC, mockBookings := newHandlerWithBookings(t)
		mockBookings.EXPECT().GetBooking(gomock.Any(), bookingID).Return(owned, nil)
		mockUC.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).
			Return(&models.InitiatePaymentResponse{Success: true, CheckoutRequestID: "ws_CO_1"}, nil)
		c, rec := newContext(http.MethodPost, "/api/v1/payments/mpesa", initiateBody)
		asCustomer(c, owner)

		require.NoError(t, handler.InitiatePayment(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other customer cannot initiate", func(t *testing.T) {
		handler, mockUC, mockBookings := newHandlerWithBookings(t)
		mockBookings.EXPECT().GetBooking(gomock.Any(), bookingID).Return(owned, nil)
		mockUC.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).Times(0)
		c, rec := newContext(http.MethodPost, "/api/v1/payments/mpesa", initiateBody)
		asCustomer(c, uuid.New())

		require.NoError(t, handler.InitiatePayment(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		var resp models.InitiatePaymentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Empty(t, resp.AlternateMethod)
	})

	t.Run("unknown booking is reported before initiation", func(t *testing.T) {
		handler, mockUC, mockBookings := newHandlerWithBookings(t)
		mockBookings.EXPECT().GetBooking(gomock.Any(), bookingID).Return(nil, booking.ErrBookingNotFound)
		mockUC.EXPECT().InitiatePayment(gomock.Any(), gomock.Any()).Times(0)
		c, rec := newContext(http.MethodPost, "/api/v1/payments/mpesa", initiateBody)
		asCustomer(c, owner)

		require.NoError(t, handler.InitiatePayment(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("other customer cannot confirm crypto", func(t *testing.T) {
		handler, mockUC, mockBookings := newHandlerWithBookings(t)
		mockBookings.EXPECT().GetBooking(gomock.Any(), bookingID).Return(owned, nil)
		mockUC.EXPECT().ConfirmCryptoPayment(gomock.Any(), gomock.Any()).Times(0)
		c, rec := newContext(http.MethodPost, "/api/v1/payments/crypto", cryptoBody)
		asCustomer(c, uuid.New())

		require.NoError(t, handler.ConfirmCryptoPayment(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("owner reads status", func(t *testing.T) {
		handler, mockUC, mockBookings := newHandlerWithBookings(t)
		mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_1").Return(settled, nil)
		mockBookings.EXPECT().GetBooking(gomock.Any(), bookingID).Return(owned, nil)
		c, rec := newContext(http.MethodGet, "/api/v1/payments/mpesa/status?checkoutRequestId=ws_CO_1", "")
		asCustomer(c, owner)

		require.NoError(t, handler.GetPaymentStatus(c))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "QK43HS7612")
	})

	t.Run("other customer cannot read status", func(t *testing.T) {
		handler, mockUC, mockBookings := newHandlerWithBookings(t)
		mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_1").Return(settled, nil)
		mockBookings.EXPECT().GetBooking(gomock.Any(), bookingID).Return(owned, nil)
		c, rec := newContext(http.MethodGet, "/api/v1/payments/mpesa/status?checkoutRequestId=ws_CO_1", "")
		asCustomer(c, uuid.New())

		require.NoError(t, handler.GetPaymentStatus(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NotContains(t, rec.Body.String(), "QK43HS7612")
	})

	t.Run("other customer cannot await", func(t *testing.T) {
		handler, mockUC, mockBookings := newHandlerWithBookings(t)
		mockUC.EXPECT().GetPaymentStatus(gomock.Any(), "ws_CO_1").Return(settled, nil).Times(1)
		mockBookings.EXPECT().GetBooking(gomock.Any(), bookingID).Return(owned, nil)
		c, rec := newContext(http.MethodGet, "/", "")
		withCheckout(c, "ws_CO_1")
		asCustomer(c, uuid.New())

		require.NoError(t, handler.AwaitPayment(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("missing identity is rejected", func(t *testing.T) {
		handler, mockUC, _ := newHandlerWithBookings(t)
		mockUC.EXPECT().ConfirmCryptoPayment(gomock.Any(), gomock.Any()).Times(0)
		c, rec := newContext(http.MethodPost, "/api/v1/payments/crypto", cryptoBody)
		c.Set("user_id", nil)
		c.Set("user_role", nil)

		require.NoError(t, handler.ConfirmCryptoPayment(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
