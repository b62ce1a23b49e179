package dashboard

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "github.com/iliyamo/restaurant-reservation/internal/model"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
    Status  int
    Message string
}

func (e *APIError) Error() string {
    return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// Client calls the reservation API.  Token, when set, is sent as a bearer
// token.
type Client struct {
    BaseURL string
    Token   string
    HTTP    *http.Client
}

// NewClient returns a client for the API at baseURL.
func NewClient(baseURL, token string) *Client {
    return &Client{
        BaseURL: strings.TrimRight(baseURL, "/"),
        Token:   token,
        HTTP:    &http.Client{Timeout: 10 * time.Second},
    }
}

// ListReservations returns the open reservations of date.
func (c *Client) ListReservations(ctx context.Context, date string) ([]model.Reservation, error) {
    var out []model.Reservation
    err := c.do(ctx, http.MethodGet, "/reservations", url.Values{"date": {date}}, nil, &out)
    return out, err
}

// SearchReservations returns every reservation whose phone contains mobile.
func (c *Client) SearchReservations(ctx context.Context, mobile string) ([]model.Reservation, error) {
    var out []model.Reservation
    err := c.do(ctx, http.MethodGet, "/reservations", url.Values{"mobile_number": {mobile}}, nil, &out)
    return out, err
}

// ListTables returns every table.
func (c *Client) ListTables(ctx context.Context) ([]model.Table, error) {
    var out []model.Table
    err := c.do(ctx, http.MethodGet, "/tables", nil, nil, &out)
    return out, err
}

// UpdateStatus sets the status of reservation id and returns the stored
// value.
func (c *Client) UpdateStatus(ctx context.Context, id uint64, status string) (string, error) {
    var out struct {
        Status string `json:"status"`
    }
    path := "/reservations/" + strconv.FormatUint(id, 10) + "/status"
    err := c.do(ctx, http.MethodPut, path, nil, map[string]string{"status": status}, &out)
    return out.Status, err
}

// Seat seats reservation rid at table tableID.
func (c *Client) Seat(ctx context.Context, tableID, rid uint64) error {
    path := "/tables/" + strconv.FormatUint(tableID, 10) + "/seat"
    return c.do(ctx, http.MethodPut, path, nil, map[string]uint64{"reservation_id": rid}, nil)
}

// Finish frees table tableID.
func (c *Client) Finish(ctx context.Context, tableID uint64) error {
    path := "/tables/" + strconv.FormatUint(tableID, 10) + "/seat"
    return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do sends body wrapped in the {"data": ...} envelope and unwraps the
// answer's data member into out.
func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
    u := c.BaseURL + path
    if len(q) > 0 {
        u += "?" + q.Encode()
    }
    var rdr io.Reader
    if body != nil {
        b, err := json.Marshal(map[string]any{"data": body})
        if err != nil {
            return err
        }
        rdr = bytes.NewReader(b)
    }
    req, err := http.NewRequestWithContext(ctx, method, u, rdr)
    if err != nil {
        return err
    }
    req.Header.Set("Accept", "application/json")
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }
    if c.Token != "" {
        req.Header.Set("Authorization", "Bearer "+c.Token)
    }

    resp, err := c.HTTP.Do(req)
    if err != nil {
        return fmt.Errorf("%s %s: %w", method, path, err)
    }
    defer resp.Body.Close()
    raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
    if err != nil {
        return fmt.Errorf("%s %s: read body: %w", method, path, err)
    }

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        var e struct {
            Message string `json:"message"`
            Error   string `json:"error"`
        }
        _ = json.Unmarshal(raw, &e)
        msg := e.Message
        if msg == "" {
            msg = e.Error
        }
        if msg == "" {
            msg = http.StatusText(resp.StatusCode)
        }
        return &APIError{Status: resp.StatusCode, Message: msg}
    }
    if out == nil {
        return nil
    }
    var env struct {
        Data json.RawMessage `json:"data"`
    }
    if err := json.Unmarshal(raw, &env); err != nil {
        return fmt.Errorf("%s %s: decode: %w", method, path, err)
    }
    if err := json.Unmarshal(env.Data, out); err != nil {
        return fmt.Errorf("%s %s: decode data: %w", method, path, err)
    }
    return nil
}
