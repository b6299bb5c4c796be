package accountapi

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/bankportal/onboarding/internal/account"
	"github.com/bankportal/onboarding/internal/logging"
)

const defaultFailureMessage = "Erreur API"

// Client implements account.Service over the REST backend.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *fasthttp.Client
	logger  *slog.Logger
}

var _ account.Service = (*Client)(nil)

// New builds a REST client rooted at baseURL. Each call is bounded by timeout
// or the context deadline, whichever comes first.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http: &fasthttp.Client{
			Name:                "onboarding-bff",
			MaxIdleConnDuration: time.Minute,
		},
		logger: logger,
	}
}

type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
}

type createAccountResponse struct {
	account.AccountInfo
	Nested *account.AccountInfo `json:"accountInfo"`
}

type otpRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type activateRequest struct {
	AccountNumber  string `json:"accountNumber"`
	ActivationCode string `json:"activationCode"`
}

type uploadResponse struct {
	FilePath string `json:"filePath"`
}

// CreateAccount posts the holder data and returns the issued credentials.
func (c *Client) CreateAccount(ctx context.Context, req account.CreateAccountRequest) (account.AccountInfo, error) {
	var resp createAccountResponse
	if err := c.postJSON(ctx, "/accounts/create", req, &resp); err != nil {
		return account.AccountInfo{}, err
	}
	info := resp.AccountInfo
	if resp.Nested != nil && resp.Nested.Complete() {
		info = *resp.Nested
	}
	if !info.Complete() {
		return account.AccountInfo{}, fmt.Errorf("%w: incomplete account info", account.ErrUnavailable)
	}
	return info, nil
}

// Login authenticates a holder.
func (c *Client) Login(ctx context.Context, req account.LoginRequest) (account.Profile, error) {
	var profile account.Profile
	if err := c.postJSON(ctx, "/accounts/login", req, &profile); err != nil {
		return account.Profile{}, err
	}
	return profile, nil
}

// SendOTP asks the backend to text a verification code.
func (c *Client) SendOTP(ctx context.Context, phoneNumber string) (account.OTPDispatch, error) {
	var dispatch account.OTPDispatch
	if err := c.postJSON(ctx, "/accounts/send-otp", otpRequest{PhoneNumber: phoneNumber}, &dispatch); err != nil {
		return account.OTPDispatch{}, err
	}
	return dispatch, nil
}

// Activate submits the activation code.
func (c *Client) Activate(ctx context.Context, accountNumber, activationCode string) (account.Result, error) {
	var result account.Result
	err := c.postJSON(ctx, "/accounts/activate", activateRequest{AccountNumber: accountNumber, ActivationCode: activationCode}, &result)
	if err != nil {
		return account.Result{}, err
	}
	return withDefaultMessage(result), nil
}

// ChangePassword replaces the holder password.
func (c *Client) ChangePassword(ctx context.Context, req account.ChangePasswordRequest) (account.Result, error) {
	var result account.Result
	if err := c.postJSON(ctx, "/accounts/change-password", req, &result); err != nil {
		return account.Result{}, err
	}
	return withDefaultMessage(result), nil
}

// UserInfo fetches the dashboard profile.
func (c *Client) UserInfo(ctx context.Context, accountNumber string) (account.UserInfo, error) {
	var info account.UserInfo
	path := "/accounts/user-info/" + url.PathEscape(accountNumber)
	if err := c.do(ctx, fasthttp.MethodGet, path, "", nil, &info); err != nil {
		return account.UserInfo{}, err
	}
	return info, nil
}

// UploadFile sends a multipart form with a single "file" field.
func (c *Client) UploadFile(ctx context.Context, category string, file account.Upload) (string, error) {
	if !account.ValidCategory(category) {
		return "", account.Reject("Type de fichier inconnu")
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Filename))
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("multipart part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return "", fmt.Errorf("multipart write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("multipart close: %w", err)
	}

	var resp uploadResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/files/upload/"+category, w.FormDataContentType(), body.Bytes(), &resp); err != nil {
		return "", err
	}
	if resp.FilePath == "" {
		return "", fmt.Errorf("%w: upload response without filePath", account.ErrUnavailable)
	}
	return resp.FilePath, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return c.do(ctx, fasthttp.MethodPost, path, fiber.MIMEApplicationJSON, payload, out)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body []byte, out any) error {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %s %s: %v", account.ErrUnavailable, method, path, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("%w: %s %s: %v", account.ErrUnavailable, method, path, context.DeadlineExceeded)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, fiber.MIMEApplicationJSON)
	if contentType != "" {
		req.Header.SetContentType(contentType)
	}
	if body != nil {
		req.SetBody(body)
	}

	start := time.Now()
	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		c.log().Warn("account backend unreachable", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("%w: %s %s: %v", account.ErrUnavailable, method, path, err)
	}

	status := resp.StatusCode()
	raw := resp.Body()
	c.log().Debug("account backend call",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Duration("duration", time.Since(start)),
	)

	var env envelope
	envErr := json.Unmarshal(raw, &env)

	if status < 200 || status > 299 {
		message := env.Message
		if envErr != nil || message == "" {
			message = defaultFailureMessage
		}
		return account.Reject(message)
	}
	if envErr == nil && env.Success != nil && !*env.Success {
		message := env.Message
		if message == "" {
			message = defaultFailureMessage
		}
		return account.Reject(message)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", account.ErrUnavailable, path, err)
	}
	return nil
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return logging.Discard()
	}
	return c.logger
}

func withDefaultMessage(r account.Result) account.Result {
	if r.Message == "" {
		r.Message = "Succès"
	}
	return r
}
