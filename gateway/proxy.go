package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pavitra93/food-ordering-admin/shared/middleware"
	"github.com/pavitra93/food-ordering-admin/shared/utils"
)

// Identity headers the gateway sets from the verified token. Incoming copies
// are dropped; services use them to label request logs.
const (
	HeaderUserID    = middleware.HeaderUserID
	HeaderUserEmail = middleware.HeaderUserEmail
	HeaderUserRole  = middleware.HeaderUserRole
	HeaderCompanyID = middleware.HeaderCompanyID
)

// ServiceClient handles HTTP communication with one backend service
type ServiceClient struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *utils.CircuitBreaker
}

// ServiceClients holds all service clients
type ServiceClients struct {
	AuthService     *ServiceClient
	CompanyService  *ServiceClient
	TerminalService *ServiceClient
	OrderService    *ServiceClient
	AuditService    *ServiceClient
}

// NewServiceClient creates a client for the service at baseURL. Redirects
// are handed back to the caller untouched since guard refusals are redirects.
func NewServiceClient(name, baseURL string) *ServiceClient {
	return &ServiceClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		breaker: utils.NewCircuitBreaker(name, 5, 30*time.Second),
	}
}

// ProxyRequest forwards the request to the service and copies back its response
func (sc *ServiceClient) ProxyRequest(c *gin.Context) {
	log := middleware.Logger(c).WithField("upstream", sc.name)

	// Build target URL
	targetURL := sc.baseURL + c.Request.URL.Path
	if c.Request.URL.RawQuery != "" {
		targetURL += "?" + c.Request.URL.RawQuery
	}

	var body io.Reader
	if c.Request.Body != nil {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.BadRequestResponse(c, "Failed to read request body")
			return
		}
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
	if err != nil {
		utils.InternalServerErrorResponse(c, "Failed to create request")
		return
	}

	// Copy headers
	for key, values := range c.Request.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	setIdentityHeaders(c, req.Header)

	var resp *http.Response
	err = sc.breaker.Call(func() error {
		r, err := sc.httpClient.Do(req)
		if err != nil {
			return err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s returned status %d", sc.name, r.StatusCode)
		}
		return nil
	})
	if errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests) {
		log.WithError(err).Warn("Upstream circuit open")
		utils.ServiceUnavailableResponse(c, sc.name+" service is unavailable")
		return
	}
	if resp == nil {
		log.WithError(err).Error("Failed to reach upstream")
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to communicate with service")
		return
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		log.WithError(err).Error("Failed to read upstream response")
		utils.ErrorResponse(c, http.StatusBadGateway, "Failed to read response")
		return
	}

	// Copy response headers
	for key, values := range resp.Header {
		if key == "Content-Length" || key == middleware.RequestIDHeader {
			continue
		}
		for _, value := range values {
			c.Writer.Header().Add(key, value)
		}
	}

	c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), responseBody)
}

// setIdentityHeaders replaces any caller-supplied identity headers with the
// verified actor's, when there is one
func setIdentityHeaders(c *gin.Context, header http.Header) {
	for _, key := range middleware.IdentityHeaders {
		header.Del(key)
	}

	actor := middleware.GetActorFromContext(c)
	if actor == nil {
		return
	}
	header.Set(HeaderUserID, actor.UserID.String())
	header.Set(HeaderUserEmail, actor.Email)
	header.Set(HeaderUserRole, string(actor.Role))
	if actor.CompanyID != nil {
		header.Set(HeaderCompanyID, actor.CompanyID.String())
	}
}

// HealthCheck checks if a service is healthy
func (sc *ServiceClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sc.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := sc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}

	return nil
}

// ServiceStatus is the health of one backend service
type ServiceStatus struct {
	Healthy bool   `json:"healthy"`
	Circuit string `json:"circuit"`
	Error   string `json:"error,omitempty"`
}

func (scs *ServiceClients) all() []*ServiceClient {
	return []*ServiceClient{scs.AuthService, scs.CompanyService, scs.TerminalService, scs.OrderService, scs.AuditService}
}

// GetServiceStatus checks every service concurrently
func (scs *ServiceClients) GetServiceStatus(ctx context.Context) map[string]ServiceStatus {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		status = make(map[string]ServiceStatus)
	)
	for _, client := range scs.all() {
		wg.Add(1)
		go func(sc *ServiceClient) {
			defer wg.Done()

			s := ServiceStatus{Healthy: true, Circuit: string(sc.breaker.GetState())}
			if err := sc.HealthCheck(ctx); err != nil {
				s.Healthy = false
				s.Error = err.Error()
			}

			mu.Lock()
			status[sc.name+"_service"] = s
			mu.Unlock()
		}(client)
	}
	wg.Wait()

	return status
}
