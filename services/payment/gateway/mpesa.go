package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	nethttp "net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/piresc/trackwash/internal/pkg/circuitbreaker"
	"github.com/piresc/trackwash/internal/pkg/constants"
	pkghttp "github.com/piresc/trackwash/internal/pkg/http"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/payment"
)

const (
	SandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	ProductionBaseURL = "https://api.safaricom.co.ke"

	oauthPath    = "/oauth/v1/generate?grant_type=client_credentials"
	stkPushPath  = "/mpesa/stkpush/v1/processrequest"
	stkQueryPath = "/mpesa/stkpushquery/v1/query"

	// errorCode returned by the query API while the customer has not answered
	codeStillProcessing = "500.001.1001"

	tokenRefreshMargin = 60 * time.Second
)

// ResolveBaseURL picks the Daraja host. Without an explicit URL or
// environment, sandbox keys are recognised by their length.
func ResolveBaseURL(cfg models.MPesaConfig) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	switch strings.ToLower(cfg.Environment) {
	case "production":
		return ProductionBaseURL
	case "sandbox":
		return SandboxBaseURL
	}
	if len(cfg.ConsumerKey) < 50 {
		return SandboxBaseURL
	}
	return ProductionBaseURL
}

// flexInt decodes Daraja numbers that are sometimes sent as strings
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid numeric value %s: %w", b, err)
	}
	*f = flexInt(n)
	return nil
}

type tokenResponse struct {
	AccessToken string  `json:"access_token"`
	ExpiresIn   flexInt `json:"expires_in"`
}

type stkPushPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	TransactionType   string `json:"TransactionType"`
	Amount            int64  `json:"Amount"`
	PartyA            string `json:"PartyA"`
	PartyB            string `json:"PartyB"`
	PhoneNumber       string `json:"PhoneNumber"`
	CallBackURL       string `json:"CallBackURL"`
	AccountReference  string `json:"AccountReference"`
	TransactionDesc   string `json:"TransactionDesc"`
}

type stkQueryPayload struct {
	BusinessShortCode string `json:"BusinessShortCode"`
	Password          string `json:"Password"`
	Timestamp         string `json:"Timestamp"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
}

// darajaResponse covers both success and error bodies of the STK endpoints
type darajaResponse struct {
	MerchantRequestID   string   `json:"MerchantRequestID"`
	CheckoutRequestID   string   `json:"CheckoutRequestID"`
	ResponseCode        string   `json:"ResponseCode"`
	ResponseDescription string   `json:"ResponseDescription"`
	CustomerMessage     string   `json:"CustomerMessage"`
	ResultCode          *flexInt `json:"ResultCode"`
	ResultDesc          string   `json:"ResultDesc"`
	RequestID           string   `json:"requestId"`
	ErrorCode           string   `json:"errorCode"`
	ErrorMessage        string   `json:"errorMessage"`
}

// mpesaGW is the Daraja client. Tokens are shared through Redis when a
// client is configured, otherwise cached in memory.
type mpesaGW struct {
	cfg     models.MPesaConfig
	client  *pkghttp.Client
	redis   *redis.Client
	breaker *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	now     func() time.Time

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// NewMpesaGW creates the M-Pesa gateway. redisClient and m may be nil.
func NewMpesaGW(cfg models.MPesaConfig, redisClient *redis.Client, m *metrics.Metrics) payment.MpesaGW {
	timeout := pkghttp.DefaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	breakerCfg := circuitbreaker.DefaultConfig("mpesa")
	breakerCfg.Timeout = 30 * time.Second
	// provider rejections are answers, not outages
	breakerCfg.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, payment.ErrGatewayRejected)
	}
	breakerCfg.OnStateChange = func(name string, _, to circuitbreaker.State) {
		m.SetBreakerState(name, int(to))
	}

	return &mpesaGW{
		cfg: cfg,
		client: pkghttp.NewClient(pkghttp.Config{
			BaseURL: ResolveBaseURL(cfg),
			Timeout: timeout,
		}),
		redis:   redisClient,
		breaker: circuitbreaker.New(breakerCfg, logger.GetGlobalLogger()),
		metrics: m,
		now:     models.Now,
	}
}

// Breaker exposes the Daraja circuit breaker for health reporting
func (g *mpesaGW) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}

func (g *mpesaGW) tokenKey() string {
	return fmt.Sprintf(constants.KeyMpesaAccessToken, g.cfg.ShortCode)
}

func (g *mpesaGW) cachedToken(ctx context.Context) string {
	if g.redis != nil {
		token, err := g.redis.Get(ctx, g.tokenKey()).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			logger.WarnCtx(ctx, "Failed to read cached M-Pesa token", logger.Err(err))
		}
		return token
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.token != "" && g.now().Before(g.tokenExpiry) {
		return g.token
	}
	return ""
}

func (g *mpesaGW) storeToken(ctx context.Context, token string, ttl time.Duration) {
	if g.redis != nil {
		if err := g.redis.Set(ctx, g.tokenKey(), token, ttl).Err(); err != nil {
			logger.WarnCtx(ctx, "Failed to cache M-Pesa token", logger.Err(err))
		}
		return
	}

	g.mu.Lock()
	g.token = token
	g.tokenExpiry = g.now().Add(ttl)
	g.mu.Unlock()
}

func (g *mpesaGW) invalidateToken(ctx context.Context) {
	if g.redis != nil {
		_ = g.redis.Del(ctx, g.tokenKey()).Err()
		return
	}
	g.mu.Lock()
	g.token = ""
	g.mu.Unlock()
}

// accessToken returns a cached token or requests a new one
func (g *mpesaGW) accessToken(ctx context.Context) (string, error) {
	if token := g.cachedToken(ctx); token != "" {
		return token, nil
	}

	start := time.Now()
	var tr tokenResponse
	err := g.client.GetJSON(ctx, oauthPath, &tr, pkghttp.WithBasicAuth(g.cfg.ConsumerKey, g.cfg.ConsumerSecret))
	if err == nil && tr.AccessToken == "" {
		err = errors.New("empty access token")
	}
	g.metrics.ObserveGateway("oauth", err, time.Since(start))
	if err != nil {
		return "", &payment.GatewayError{Kind: payment.GatewayAuth, Message: "failed to obtain access token", Err: err}
	}

	expires := time.Duration(tr.ExpiresIn) * time.Second
	if expires <= 0 {
		expires = time.Hour
	}
	ttl := expires - tokenRefreshMargin
	if ttl <= 0 {
		ttl = expires / 2
	}
	g.storeToken(ctx, tr.AccessToken, ttl)
	return tr.AccessToken, nil
}

func (g *mpesaGW) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.cfg.ShortCode + g.cfg.Passkey + timestamp))
}

// call posts an authenticated request and decodes the Daraja body
func (g *mpesaGW) call(ctx context.Context, path string, body interface{}) (*darajaResponse, error) {
	token, err := g.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Post(ctx, path, body, pkghttp.WithBearerToken(token))
	if err != nil {
		return nil, &payment.GatewayError{Kind: payment.GatewayNetwork, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, &payment.GatewayError{Kind: payment.GatewayNetwork, Err: err}
	}

	if resp.StatusCode == nethttp.StatusUnauthorized {
		g.invalidateToken(ctx)
		return nil, &payment.GatewayError{
			Kind:    payment.GatewayAuth,
			Message: "access token rejected",
			Err:     &pkghttp.HTTPError{StatusCode: resp.StatusCode, Body: raw},
		}
	}

	var dr darajaResponse
	if err := json.Unmarshal(raw, &dr); err != nil {
		kind := payment.GatewayRejected
		if resp.StatusCode >= 500 {
			kind = payment.GatewayNetwork
		}
		return nil, &payment.GatewayError{
			Kind:    kind,
			Message: fmt.Sprintf("unexpected response (HTTP %d)", resp.StatusCode),
			Err:     &pkghttp.HTTPError{StatusCode: resp.StatusCode, Body: raw},
		}
	}
	return &dr, nil
}

// InitiatePushPayment sends an STK push prompt to the customer's phone.
// It never retries: a second push could charge twice.
func (g *mpesaGW) InitiatePushPayment(ctx context.Context, req models.STKPushRequest) (*models.STKPushResult, error) {
	phone, err := utils.ValidateKenyanMSISDN(req.Phone)
	if err != nil {
		return nil, payment.ErrInvalidPhone
	}
	amount := math.Round(req.Amount)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 1 {
		return nil, payment.ErrInvalidAmount
	}

	ref := utils.ShortRef(req.BookingID.String(), 8)
	accountRef := req.AccountReference
	if accountRef == "" {
		accountRef = "TW-" + ref
	}
	desc := req.Description
	if desc == "" {
		desc = "TrackWash Booking " + ref
	}

	timestamp := models.DarajaTimestamp(g.now())
	payload := stkPushPayload{
		BusinessShortCode: g.cfg.ShortCode,
		Password:          g.password(timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            int64(amount),
		PartyA:            phone,
		PartyB:            g.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       g.cfg.CallbackURL,
		AccountReference:  accountRef,
		TransactionDesc:   desc,
	}

	start := time.Now()
	var result *models.STKPushResult
	err = g.breaker.Execute(ctx, func(ctx context.Context) error {
		dr, err := g.call(ctx, stkPushPath, payload)
		if err != nil {
			return err
		}
		if dr.ErrorCode != "" {
			return &payment.GatewayError{Kind: payment.GatewayRejected, Code: dr.ErrorCode, Message: dr.ErrorMessage}
		}
		if dr.ResponseCode != "0" {
			msg := dr.ResponseDescription
			if msg == "" {
				msg = "STK push failed"
			}
			return &payment.GatewayError{Kind: payment.GatewayRejected, Code: dr.ResponseCode, Message: msg}
		}

		result = &models.STKPushResult{
			CheckoutRequestID:   dr.CheckoutRequestID,
			MerchantRequestID:   dr.MerchantRequestID,
			ResponseDescription: dr.ResponseDescription,
			CustomerMessage:     dr.CustomerMessage,
			NormalizedPhone:     phone,
		}
		return nil
	})
	err = breakerError(err)
	g.metrics.ObserveGateway("stk_push", err, time.Since(start))
	if err != nil {
		logger.WarnCtx(ctx, "M-Pesa STK push failed",
			logger.Stringer("booking_id", req.BookingID),
			logger.String("phone", utils.MaskPhoneNumber(phone)),
			logger.Err(err))
		return nil, err
	}

	logger.InfoCtx(ctx, "M-Pesa STK push accepted",
		logger.Stringer("booking_id", req.BookingID),
		logger.String("checkout_request_id", result.CheckoutRequestID))
	return result, nil
}

// QueryPushPayment asks the provider for the result of a push request.
// A nil ResultCode means the customer has not answered yet.
func (g *mpesaGW) QueryPushPayment(ctx context.Context, checkoutRequestID string) (*models.STKQueryResult, error) {
	timestamp := models.DarajaTimestamp(g.now())
	payload := stkQueryPayload{
		BusinessShortCode: g.cfg.ShortCode,
		Password:          g.password(timestamp),
		Timestamp:         timestamp,
		CheckoutRequestID: checkoutRequestID,
	}

	start := time.Now()
	var result *models.STKQueryResult
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		dr, err := g.call(ctx, stkQueryPath, payload)
		if err != nil {
			return err
		}

		switch {
		case dr.ErrorCode == codeStillProcessing:
			result = &models.STKQueryResult{CheckoutRequestID: checkoutRequestID, ResultDesc: dr.ErrorMessage}
			return nil
		case dr.ErrorCode != "":
			return &payment.GatewayError{Kind: payment.GatewayRejected, Code: dr.ErrorCode, Message: dr.ErrorMessage}
		case dr.ResultCode == nil:
			result = &models.STKQueryResult{CheckoutRequestID: checkoutRequestID, ResultDesc: dr.ResponseDescription}
			return nil
		}

		code := int(*dr.ResultCode)
		result = &models.STKQueryResult{
			CheckoutRequestID: checkoutRequestID,
			ResultCode:        &code,
			ResultDesc:        dr.ResultDesc,
		}
		return nil
	})
	err = breakerError(err)
	g.metrics.ObserveGateway("stk_query", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func breakerError(err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return &payment.GatewayError{Kind: payment.GatewayNetwork, Message: "M-Pesa temporarily unavailable", Err: err}
	}
	return err
}
