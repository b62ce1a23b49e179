package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-reservation/internal/datetime"
	"github.com/iliyamo/restaurant-reservation/internal/handler"
	"github.com/iliyamo/restaurant-reservation/internal/model"
	"github.com/iliyamo/restaurant-reservation/internal/queue"
	"github.com/iliyamo/restaurant-reservation/internal/repository"
	"github.com/iliyamo/restaurant-reservation/internal/router"
)

// Wednesday 2024-06-05, 12:00 UTC.
var testNow = time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)

type memStore struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]model.Reservation
}

func newMemStore() *memStore { return &memStore{rows: map[uint64]model.Reservation{}} }

func (m *memStore) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (m *memStore) ListByDate(_ context.Context, date string) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range m.rows {
		if r.ReservationDate == date && r.Status != model.StatusFinished && r.Status != model.StatusCancelled {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationTime < out[j].ReservationTime })
	return out, nil
}

func (m *memStore) SearchByMobile(_ context.Context, number string) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range m.rows {
		if strings.Contains(datetime.Digits(r.MobileNumber), datetime.Digits(number)) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Create(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	r.ID = m.nextID
	if r.Status == "" {
		r.Status = model.StatusBooked
	}
	m.rows[r.ID] = *r
	return nil
}

func (m *memStore) Update(_ context.Context, id uint64, r *model.Reservation) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	upd := *r
	upd.ID, upd.Status = id, cur.Status
	m.rows[id] = upd
	return &upd, nil
}

func (m *memStore) UpdateStatus(_ context.Context, id uint64, status string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[id]
	if !ok {
		return "", repository.ErrReservationNotFound
	}
	cur.Status = status
	m.rows[id] = cur
	return status, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

func newServer(store *memStore, pub *recordingPublisher) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Validator = handler.NewValidator()
	h := handler.NewReservationHandler(store, pub)
	router.RegisterReservations(e, h, router.Clock{
		Now:      func() time.Time { return testNow },
		Location: time.UTC,
	})
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	return body.Error
}

const adaBody = `{"data":{"first_name":"Ada","last_name":"Lovelace","mobile_number":"555-0100",
	"people":2,"reservation_date":"2024-06-10","reservation_time":"18:00"}}`

func TestCreateReservation(t *testing.T) {
	pub := &recordingPublisher{}
	e := newServer(newMemStore(), pub)

	rec := do(e, http.MethodPost, "/reservations", adaBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var out struct {
		Data model.Reservation `json:"data"`
	}
	decode(t, rec, &out)
	if out.Data.ID == 0 || out.Data.Status != model.StatusBooked || out.Data.FirstName != "Ada" {
		t.Fatalf("created %+v", out.Data)
	}
	if got := pub.types(); len(got) != 1 || got[0] != queue.EventCreated {
		t.Fatalf("events %v", got)
	}

	rec = do(e, http.MethodGet, "/reservations/"+strconv.FormatUint(out.Data.ID, 10), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("read status %d: %s", rec.Code, rec.Body)
	}
	var read struct {
		Data model.Reservation `json:"data"`
	}
	decode(t, rec, &read)
	want := model.Reservation{
		ID:              out.Data.ID,
		FirstName:       "Ada",
		LastName:        "Lovelace",
		MobileNumber:    "555-0100",
		People:          2,
		ReservationDate: "2024-06-10",
		ReservationTime: "18:00",
		Status:          model.StatusBooked,
	}
	got := read.Data
	got.CreatedAt, got.UpdatedAt = time.Time{}, time.Time{}
	if got != want {
		t.Fatalf("read back %+v, want %+v", got, want)
	}
	if !read.Data.CreatedAt.Equal(out.Data.CreatedAt) {
		t.Fatalf("created_at %v, want %v", read.Data.CreatedAt, out.Data.CreatedAt)
	}
}

func TestCreateSucceedsWhenBrokerFails(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	e := newServer(newMemStore(), pub)
	if rec := do(e, http.MethodPost, "/reservations", adaBody); rec.Code != http.StatusCreated {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestCreateValidationErrors(t *testing.T) {
	e := newServer(newMemStore(), &recordingPublisher{})
	cases := []struct {
		name, body, msg string
	}{
		{"no data", `{}`, "data is missing"},
		{"missing field", `{"data":{"first_name":"Ada"}}`, "last_name must exist"},
		{"tuesday", strings.Replace(adaBody, "2024-06-10", "2024-06-11", 1), "Restaurant is closed on Tuesdays"},
		{"hours", strings.Replace(adaBody, "18:00", "22:00", 1), "Reservation must be made for restaurant's operating hours"},
		{"people string", strings.Replace(adaBody, `"people":2`, `"people":"2"`, 1), "people must be a number"},
		{"seated", strings.Replace(adaBody, `"people":2`, `"people":2,"status":"seated"`, 1), "status cannot be set to seated"},
	}
	for _, tc := range cases {
		rec := do(e, http.MethodPost, "/reservations", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", tc.name, rec.Code)
			continue
		}
		if got := errorOf(t, rec); got != tc.msg {
			t.Errorf("%s: error %q, want %q", tc.name, got, tc.msg)
		}
	}
}

func TestReadUnknownReservation(t *testing.T) {
	e := newServer(newMemStore(), &recordingPublisher{})
	rec := do(e, http.MethodGet, "/reservations/42", "")
	if rec.Code != http.StatusNotFound || errorOf(t, rec) != "Reservation 42 cannot be found" {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
}

func TestStatusLifecycle(t *testing.T) {
	store := newMemStore()
	e := newServer(store, &recordingPublisher{})
	if rec := do(e, http.MethodPost, "/reservations", adaBody); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d", rec.Code)
	}

	for _, st := range []string{model.StatusSeated, model.StatusFinished} {
		rec := do(e, http.MethodPut, "/reservations/1/status", `{"data":{"status":"`+st+`"}}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d %s", st, rec.Code, rec.Body)
		}
		var out struct {
			Data struct {
				Status string `json:"status"`
			} `json:"data"`
		}
		decode(t, rec, &out)
		if out.Data.Status != st {
			t.Fatalf("status = %q, want %q", out.Data.Status, st)
		}
	}

	rec := do(e, http.MethodPut, "/reservations/1/status", `{"data":{"status":"booked"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("finished -> booked: status %d", rec.Code)
	}
	rec = do(e, http.MethodPut, "/reservations/1", adaBody)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("update of finished reservation: status %d", rec.Code)
	}
}

func TestUnknownStatus(t *testing.T) {
	e := newServer(newMemStore(), &recordingPublisher{})
	do(e, http.MethodPost, "/reservations", adaBody)
	rec := do(e, http.MethodPut, "/reservations/1/status", `{"data":{"status":"unknown"}}`)
	if rec.Code != http.StatusBadRequest || errorOf(t, rec) != "Cannot update a reservation with unknown status" {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
}

func TestUpdateKeepsStatus(t *testing.T) {
	e := newServer(newMemStore(), &recordingPublisher{})
	do(e, http.MethodPost, "/reservations", adaBody)
	rec := do(e, http.MethodPut, "/reservations/1", strings.Replace(adaBody, `"people":2`, `"people":4`, 1))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d %s", rec.Code, rec.Body)
	}
	var out struct {
		Data model.Reservation `json:"data"`
	}
	decode(t, rec, &out)
	if out.Data.People != 4 || out.Data.Status != model.StatusBooked {
		t.Fatalf("updated %+v", out.Data)
	}
}

func TestListReservations(t *testing.T) {
	store := newMemStore()
	e := newServer(store, &recordingPublisher{})
	do(e, http.MethodPost, "/reservations", strings.Replace(adaBody, "18:00", "19:30", 1))
	do(e, http.MethodPost, "/reservations", adaBody)
	do(e, http.MethodPost, "/reservations", strings.Replace(adaBody, "2024-06-10", "2024-06-12", 1))
	do(e, http.MethodPut, "/reservations/2/status", `{"data":{"status":"cancelled"}}`)

	var out struct {
		Data []model.Reservation `json:"data"`
	}
	rec := do(e, http.MethodGet, "/reservations?date=2024-06-10", "")
	decode(t, rec, &out)
	if len(out.Data) != 1 || out.Data[0].ID != 1 {
		t.Fatalf("list by date = %+v", out.Data)
	}

	// date wins over mobile_number
	rec = do(e, http.MethodGet, "/reservations?date=2024-06-12&mobile_number=555", "")
	decode(t, rec, &out)
	if len(out.Data) != 1 || out.Data[0].ID != 3 {
		t.Fatalf("date precedence = %+v", out.Data)
	}

	rec = do(e, http.MethodGet, "/reservations?mobile_number=(555)%200100", "")
	decode(t, rec, &out)
	if len(out.Data) != 3 {
		t.Fatalf("mobile search = %+v", out.Data)
	}

	if rec := do(e, http.MethodGet, "/reservations", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("no params: status %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/reservations?date=tomorrow", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status %d", rec.Code)
	}
}

func TestListEmptyDayIsEmptyArray(t *testing.T) {
	e := newServer(newMemStore(), &recordingPublisher{})
	rec := do(e, http.MethodGet, "/reservations?date=2024-06-10", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
}

func TestErrorHandlerHidesInternalErrors(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.GET("/boom", func(echo.Context) error { return errors.New("db exploded") })
	rec := do(e, http.MethodGet, "/boom", "")
	if rec.Code != http.StatusInternalServerError || errorOf(t, rec) != "internal server error" {
		t.Fatalf("status %d body %s", rec.Code, rec.Body)
	}
}

func newRequest(method, target, bearer string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}
