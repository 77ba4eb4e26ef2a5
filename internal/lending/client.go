package lending

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/essy16/FL-BOT/internal/models"
)

const (
	defaultBaseURL = "https://api.coinrabbit.io"
	requestTimeout = 8 * time.Second
)

// Quote is a successful estimate: how much the user can borrow and at
// what interest. Figures stay as upstream-formatted strings.
type Quote struct {
	AmountTo      string `json:"amount_to"`
	InterestYear  string `json:"interest_year"`
	InterestMonth string `json:"interest_month"`
	InterestDay   string `json:"interest_day"`
}

// Client is the typed adapter over the partner lending API. It owns
// request construction, response parsing and failure classification;
// nothing above it sees raw HTTP.
type Client struct {
	baseURL      string
	apiKey       string
	referralCode string
	httpClient   *http.Client
}

// NewClient creates a lending API client for the given base URL and
// partner API key.
func NewClient(baseURL, apiKey, referralCode string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		referralCode: referralCode,
		httpClient:   &http.Client{Timeout: requestTimeout},
	}
}

// NewClientFromEnv creates a client from environment variables.
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("LENDING_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing LENDING_API_KEY in environment variables")
	}
	return NewClient(os.Getenv("LENDING_API_BASE_URL"), apiKey, os.Getenv("LENDING_REFERRAL_CODE")), nil
}

// Authenticate exchanges a stable external user id for a session token.
func (c *Client) Authenticate(externalID string) (string, error) {
	status, body, err := c.do(http.MethodPost, "/v2/auth/partner", "", nil, map[string]string{
		"externalId": externalID,
	})
	if err != nil {
		return "", err
	}
	if status/100 != 2 {
		return "", &Error{Kind: KindAuth, Message: "Authentication with the lending service failed.", Raw: string(body)}
	}
	var out struct {
		Token string `json:"token"`
	}
	if uerr := json.Unmarshal(unwrap(body), &out); uerr != nil || out.Token == "" {
		return "", &Error{Kind: KindAuth, Reason: "token_missing", Message: "Authentication with the lending service failed.", Raw: string(body)}
	}
	return out.Token, nil
}

// Estimate requests a non-binding quote for the given parameters. The
// call is idempotent and retried once on a 5xx or network failure. An
// upstream internal failure for the currency/network pair is classified
// as KindEstimateUnsupported so the caller can suggest a known-good pair.
func (c *Client) Estimate(p models.EstimateParams) (*Quote, error) {
	query := url.Values{}
	query.Set("fromCode", p.FromCode)
	query.Set("fromNetwork", p.FromNetwork)
	query.Set("toCode", p.ToCode)
	query.Set("toNetwork", p.ToNetwork)
	query.Set("amount", p.Amount)
	query.Set("ltvPercent", strconv.Itoa(p.LTVPercent))
	query.Set("exchangeMode", p.Exchange)

	var lastErr *Error
	for attempt := 0; attempt < 2; attempt++ {
		status, body, err := c.do(http.MethodGet, "/v2/loans/estimate", "", query, nil)
		if err != nil {
			lastErr = err
			continue
		}
		if status >= 500 {
			up := decodeUpstreamError(body)
			if up.Code != "" {
				// The pair itself is rejected; retrying cannot help.
				return nil, &Error{
					Kind:    KindEstimateUnsupported,
					Reason:  up.Code,
					Message: "This currency/network pair is not supported for estimates.",
					Raw:     string(body),
				}
			}
			lastErr = &Error{Kind: KindAPI, Message: "The lending service could not produce an estimate.", Raw: string(body)}
			continue
		}
		if status/100 != 2 {
			up := decodeUpstreamError(body)
			return nil, &Error{Kind: KindAPI, Reason: up.Code, Message: "The lending service rejected the estimate request.", Raw: string(body)}
		}
		return parseQuote(body)
	}
	return nil, lastErr
}

// CreateLoan creates a loan from a committed estimate. Never retried:
// a duplicate create risks a duplicate loan.
func (c *Client) CreateLoan(token string, p models.EstimateParams) (string, error) {
	payload := map[string]any{
		"deposit": map[string]any{
			"currencyCode":    p.FromCode,
			"currencyNetwork": p.FromNetwork,
			"expectedAmount":  p.Amount,
		},
		"loan": map[string]any{
			"currencyCode":    p.ToCode,
			"currencyNetwork": p.ToNetwork,
		},
		"ltvPercent":   p.LTVPercent,
		"referralCode": c.referralCode,
	}
	status, body, err := c.do(http.MethodPost, "/v2/loans", token, nil, payload)
	if err != nil {
		return "", err
	}
	if status/100 != 2 {
		up := decodeUpstreamError(body)
		return "", &Error{Kind: KindAPI, Reason: up.Code, Message: "The lending service could not create the loan.", Raw: string(body)}
	}
	var out struct {
		LoanID string `json:"loanId"`
	}
	if uerr := json.Unmarshal(unwrap(body), &out); uerr != nil || out.LoanID == "" {
		return "", &Error{Kind: KindAPI, Reason: "loan_id_missing", Message: "The lending service did not return a loan id.", Raw: string(body)}
	}
	return out.LoanID, nil
}

// ConfirmLoan agrees to the loan terms and registers the address the
// borrowed funds should be sent to. Never retried.
func (c *Client) ConfirmLoan(token, loanID, receiveAddress string) error {
	payload := map[string]any{
		"loan":          map[string]any{"receiveAddress": receiveAddress},
		"agreedToTerms": true,
	}
	status, body, err := c.do(http.MethodPost, "/v2/loans/"+url.PathEscape(loanID)+"/confirm", token, nil, payload)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		up := decodeUpstreamError(body)
		return &Error{Kind: KindAPI, Reason: up.Code, Message: "The lending service could not confirm the loan.", Raw: string(body)}
	}
	return nil
}

// PledgeCollateral registers the collateral-return address and returns
// the deposit address the collateral must be sent to. Never retried.
func (c *Client) PledgeCollateral(token, loanID, address string) (string, error) {
	payload := map[string]any{
		"address": address,
		"extraId": "",
	}
	status, body, err := c.do(http.MethodPost, "/v2/loans/"+url.PathEscape(loanID)+"/pledge", token, nil, payload)
	if err != nil {
		return "", err
	}
	if status/100 != 2 {
		up := decodeUpstreamError(body)
		return "", &Error{Kind: KindAPI, Reason: up.Code, Message: "The lending service could not pledge the collateral.", Raw: string(body)}
	}
	var out struct {
		DepositAddress string `json:"depositAddress"`
	}
	if uerr := json.Unmarshal(unwrap(body), &out); uerr != nil || out.DepositAddress == "" {
		return "", &Error{Kind: KindAPI, Reason: "deposit_address_missing", Message: "The lending service did not return a deposit address.", Raw: string(body)}
	}
	return out.DepositAddress, nil
}

// ListLoans returns the user's loans. An empty list is a normal result,
// not an error. Idempotent; retried once on a 5xx or network failure.
func (c *Client) ListLoans(token string) ([]models.LoanRecord, error) {
	var lastErr *Error
	for attempt := 0; attempt < 2; attempt++ {
		status, body, err := c.do(http.MethodGet, "/v2/loans", token, nil, nil)
		if err != nil {
			lastErr = err
			continue
		}
		if status >= 500 {
			lastErr = &Error{Kind: KindAPI, Message: "The lending service could not list your loans.", Raw: string(body)}
			continue
		}
		if status/100 != 2 {
			up := decodeUpstreamError(body)
			return nil, &Error{Kind: KindAPI, Reason: up.Code, Message: "The lending service could not list your loans.", Raw: string(body)}
		}
		return parseLoanList(body)
	}
	return nil, lastErr
}

// do performs one HTTP round trip. Every request carries the partner API
// key; token, when present, rides in the Authorization header. Transport
// failures (timeouts included) come back as KindNetwork with the session
// untouched upstream.
func (c *Client) do(method, path, token string, query url.Values, payload any) (int, []byte, *Error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &Error{Kind: KindAPI, Message: "Internal request encoding error.", Raw: err.Error()}
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, endpoint, reqBody)
	if err != nil {
		return 0, nil, &Error{Kind: KindAPI, Message: "Internal request construction error.", Raw: err.Error()}
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("Lending API %s %s failed: %v", method, path, err)
		return 0, nil, &Error{Kind: KindNetwork, Message: "Could not reach the lending service. Please try again.", Raw: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, &Error{Kind: KindNetwork, Message: "Could not read the lending service response.", Raw: err.Error()}
	}
	return resp.StatusCode, body, nil
}

// unwrap strips the optional {"response": ...} envelope some deployments
// of the partner API wrap payloads in.
func unwrap(body []byte) []byte {
	var env struct {
		Response json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(body, &env); err == nil && len(env.Response) > 0 {
		return env.Response
	}
	return body
}

type upstreamError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeUpstreamError(body []byte) upstreamError {
	var up upstreamError
	_ = json.Unmarshal(unwrap(body), &up)
	return up
}

func parseQuote(body []byte) (*Quote, error) {
	var out struct {
		AmountTo json.Number `json:"amountTo"`
		Interest struct {
			Year  json.Number `json:"year"`
			Month json.Number `json:"month"`
			Day   json.Number `json:"day"`
		} `json:"interest"`
	}
	if err := json.Unmarshal(unwrap(body), &out); err != nil || out.AmountTo.String() == "" {
		return nil, &Error{Kind: KindAPI, Reason: "amount_to_missing", Message: "The lending service returned an unreadable estimate.", Raw: string(body)}
	}
	if out.Interest.Year.String() == "" || out.Interest.Month.String() == "" || out.Interest.Day.String() == "" {
		return nil, &Error{Kind: KindAPI, Reason: "interest_missing", Message: "The lending service returned an unreadable estimate.", Raw: string(body)}
	}
	return &Quote{
		AmountTo:      out.AmountTo.String(),
		InterestYear:  out.Interest.Year.String(),
		InterestMonth: out.Interest.Month.String(),
		InterestDay:   out.Interest.Day.String(),
	}, nil
}

func parseLoanList(body []byte) ([]models.LoanRecord, error) {
	raw := unwrap(body)

	var items []struct {
		LoanID string `json:"loanId"`
		Loan   struct {
			ExpectedAmount json.Number `json:"expectedAmount"`
			CurrencyCode   string      `json:"currencyCode"`
		} `json:"loan"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		// Some responses nest the list under a "loans" field.
		var wrapped struct {
			Loans json.RawMessage `json:"loans"`
		}
		if werr := json.Unmarshal(raw, &wrapped); werr != nil || len(wrapped.Loans) == 0 {
			return nil, &Error{Kind: KindAPI, Reason: "loans_unreadable", Message: "The lending service returned an unreadable loan list.", Raw: string(body)}
		}
		if err := json.Unmarshal(wrapped.Loans, &items); err != nil {
			return nil, &Error{Kind: KindAPI, Reason: "loans_unreadable", Message: "The lending service returned an unreadable loan list.", Raw: string(body)}
		}
	}

	records := make([]models.LoanRecord, 0, len(items))
	for _, it := range items {
		records = append(records, models.LoanRecord{
			LoanID:         it.LoanID,
			ExpectedAmount: it.Loan.ExpectedAmount.String(),
			Currency:       it.Loan.CurrencyCode,
			Status:         it.Status,
		})
	}
	return records, nil
}
