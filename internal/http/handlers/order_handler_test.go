// README: Router-level tests for the order, driver, location and simulation handlers.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpapi "tracker/internal/http"
	"tracker/internal/modules/driver"
	"tracker/internal/simulator"
	"tracker/internal/store"
	"tracker/internal/tracking"
	"tracker/internal/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// tokenVerifier accepts tokens of the form "<role>:<id>".
type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, raw string) (types.Actor, error) {
	role, id, ok := strings.Cut(raw, ":")
	if !ok || !types.Role(role).Valid() {
		return types.Actor{}, errors.New("bad token")
	}
	return types.Actor{ID: types.ID(id), Role: types.Role(role)}, nil
}

type apiFixture struct {
	router *gin.Engine
	gw     *store.Memory
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	gw := store.NewMemory()
	engine := tracking.New(tracking.Deps{Gateway: gw, Logger: quiet}, tracking.Options{})
	sim := simulator.New(engine, simulator.Options{Interval: time.Hour}, quiet)
	t.Cleanup(sim.Shutdown)
	r := httpapi.NewRouter(httpapi.RouterDeps{
		Engine:    engine,
		Simulator: sim,
		Verifier:  tokenVerifier{},
	}, quiet)
	return &apiFixture{router: r, gw: gw}
}

func (f *apiFixture) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) addDriver(t *testing.T, id types.ID) {
	t.Helper()
	require.NoError(t, f.gw.CreateDriver(context.Background(), &driver.Driver{
		ID: id, UserID: "u-" + id, Available: true, UpdatedAt: time.Now().UTC(),
	}))
}

var orderBody = map[string]any{
	"pickupAddress":   "Marina",
	"deliveryAddress": "Yaba",
	"pickup":          map[string]any{"lat": 6.5244, "lng": 3.3792},
	"delivery":        map[string]any{"lat": 6.55, "lng": 3.4},
}

type orderView struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	DriverID string `json:"driverId"`
	Amount   struct {
		Amount   json.Number `json:"amount"`
		Currency string      `json:"currency"`
	} `json:"amount"`
}

func (f *apiFixture) createOrder(t *testing.T, token string) orderView {
	t.Helper()
	w := f.do(http.MethodPost, "/api/orders", orderBody, token)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Order orderView `json:"order"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Order
}

func TestHealthNeedsNoToken(t *testing.T) {
	f := newAPI(t)
	w := f.do(http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreate_Unauthenticated(t *testing.T) {
	f := newAPI(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/orders", orderBody, "").Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/api/orders", orderBody, "garbage").Code)
}

func TestCreate_CustomerOwnsOrder(t *testing.T) {
	f := newAPI(t)
	o := f.createOrder(t, "customer:c1")
	assert.Equal(t, "created", o.Status)
	assert.Equal(t, "USD", o.Amount.Currency)
	assert.NotEmpty(t, o.ID)

	w := f.do(http.MethodGet, "/api/orders/"+o.ID, nil, "customer:c1")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreate_DriverForbidden(t *testing.T) {
	f := newAPI(t)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/orders", orderBody, "driver:d1").Code)
}

func TestCreate_MissingCoordinates(t *testing.T) {
	f := newAPI(t)
	body := map[string]any{"pickupAddress": "a", "deliveryAddress": "b", "pickup": map[string]any{"lat": 1}}
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/orders", body, "customer:c1").Code)
}

func TestCreate_OutOfRange(t *testing.T) {
	f := newAPI(t)
	body := map[string]any{
		"pickupAddress": "a", "deliveryAddress": "b",
		"pickup":   map[string]any{"lat": 91, "lng": 0},
		"delivery": map[string]any{"lat": 0, "lng": 0},
	}
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/orders", body, "customer:c1").Code)
}

func TestGet_StrangerForbiddenAndMissingNotFound(t *testing.T) {
	f := newAPI(t)
	o := f.createOrder(t, "customer:c1")
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/orders/"+o.ID, nil, "customer:c2").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/orders/nope", nil, "admin:a1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/orders/bad.id", nil, "admin:a1").Code)
}

func TestAssign_AdminOnly(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	o := f.createOrder(t, "customer:c1")
	path := "/api/orders/" + o.ID + "/assign"

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, path, map[string]any{"driverId": "d1"}, "customer:c1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, path, map[string]any{}, "admin:a1").Code)

	w := f.do(http.MethodPost, path, map[string]any{"driverId": "d1"}, "admin:a1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got orderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "assigned", got.Status)
	assert.Equal(t, "d1", got.DriverID)
}

func TestAssign_UnavailableDriver(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	first := f.createOrder(t, "customer:c1")
	second := f.createOrder(t, "customer:c1")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/orders/"+first.ID+"/assign", map[string]any{"driverId": "d1"}, "admin:a1").Code)

	w := f.do(http.MethodPost, "/api/orders/"+second.ID+"/assign", map[string]any{"driverId": "d1"}, "admin:a1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestChangeStatus(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	o := f.createOrder(t, "customer:c1")
	path := "/api/orders/" + o.ID + "/status"

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPatch, path, map[string]any{"status": "delivered"}, "admin:a1").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPatch, path, map[string]any{"status": "cancelled"}, "customer:c1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPatch, path, map[string]any{}, "admin:a1").Code)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/orders/"+o.ID+"/assign", map[string]any{"driverId": "d1"}, "admin:a1").Code)
	w := f.do(http.MethodPatch, path, map[string]any{"status": "picked_up"}, "driver:d1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"picked_up"`)
}

func TestLocationUpdateAndHistory(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	path := "/api/drivers/d1/location"

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, path, map[string]any{"lat": 6.5}, "driver:d1").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPut, path, map[string]any{"lat": 6.5, "lng": 3.3}, "driver:d2").Code)

	for _, lat := range []float64{6.5, 6.51, 6.52} {
		w := f.do(http.MethodPut, path, map[string]any{"lat": lat, "lng": 3.3}, "driver:d1")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w := f.do(http.MethodGet, path+"/history?limit=2", nil, "driver:d1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		History []struct {
			Position struct {
				Lat json.Number `json:"lat"`
			} `json:"position"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.History, 2)
	assert.Equal(t, "6.52", resp.History[0].Position.Lat.String())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, path+"/history?limit=x", nil, "driver:d1").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, path+"/history", nil, "customer:c1").Code)

	pos := f.do(http.MethodGet, "/api/drivers/d1/position", nil, "admin:a1")
	assert.Equal(t, http.StatusOK, pos.Code)
}

func TestAvailableDriversAndAvailability(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	f.addDriver(t, "d2")

	w := f.do(http.MethodPut, "/api/drivers/d2/availability", map[string]any{"isAvailable": false}, "driver:d2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/api/drivers/d2/availability", map[string]any{}, "driver:d2").Code)

	w = f.do(http.MethodGet, "/api/drivers/available", nil, "admin:a1")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Drivers []struct {
			ID string `json:"id"`
		} `json:"drivers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Drivers, 1)
	assert.Equal(t, "d1", resp.Drivers[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/drivers/available?lat=6.5", nil, "admin:a1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/drivers/available?lat=6.5&lng=3.3&radiusKm=-1", nil, "admin:a1").Code)
}

func TestSimulationRoutes(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	o := f.createOrder(t, "customer:c1")

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/simulations", nil, "customer:c1").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(http.MethodPost, "/api/simulations/"+o.ID+"/start", nil, "admin:a1").Code)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/orders/"+o.ID+"/assign", map[string]any{"driverId": "d1"}, "admin:a1").Code)
	w := f.do(http.MethodPost, "/api/simulations/"+o.ID+"/start", nil, "admin:a1")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"totalSteps":21`)

	w = f.do(http.MethodGet, "/api/simulations", nil, "admin:a1")
	assert.Contains(t, w.Body.String(), o.ID)

	w = f.do(http.MethodPost, "/api/simulations/"+o.ID+"/stop", nil, "admin:a1")
	assert.JSONEq(t, `{"orderId":"`+o.ID+`","stopped":true}`, w.Body.String())

	w = f.do(http.MethodPost, "/api/simulations/"+o.ID+"/reset", nil, "admin:a1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"assigned"`)
}

func TestDriverRegistrationAndProfile(t *testing.T) {
	f := newAPI(t)

	w := f.do(http.MethodPost, "/api/drivers", map[string]any{"vehicleType": "bike"}, "driver:d9")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"id":"d9"`)
	assert.Contains(t, w.Body.String(), `"isAvailable":true`)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/drivers", nil, "driver:d9").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/drivers", nil, "customer:c1").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodPost, "/api/drivers", map[string]any{"id": "d8"}, "driver:d9").Code)

	w = f.do(http.MethodPost, "/api/drivers", map[string]any{"id": "d8", "userId": "u8"}, "admin:a1")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(http.MethodGet, "/api/drivers/available", nil, "admin:a1")
	assert.Contains(t, w.Body.String(), `"id":"d8"`)
	assert.Contains(t, w.Body.String(), `"id":"d9"`)

	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/drivers/d9/location", map[string]any{"lat": 6.5, "lng": 3.3}, "driver:d9").Code)
	assert.Contains(t, f.do(http.MethodGet, "/api/drivers/d9", nil, "driver:d9").Body.String(), `"position"`)
	w = f.do(http.MethodGet, "/api/drivers/d9", nil, "customer:c1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `"position"`)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/drivers/nobody", nil, "admin:a1").Code)
}

func TestListOrdersIsScopedToCaller(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	mine := f.createOrder(t, "customer:c1")
	other := f.createOrder(t, "customer:c2")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/orders/"+other.ID+"/assign", map[string]any{"driverId": "d1"}, "admin:a1").Code)

	ids := func(w *httptest.ResponseRecorder) []string {
		t.Helper()
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			Orders []orderView `json:"orders"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		out := make([]string, 0, len(resp.Orders))
		for _, o := range resp.Orders {
			out = append(out, o.ID)
		}
		return out
	}

	assert.Equal(t, []string{mine.ID}, ids(f.do(http.MethodGet, "/api/orders", nil, "customer:c1")))
	assert.Equal(t, []string{other.ID}, ids(f.do(http.MethodGet, "/api/orders", nil, "driver:d1")))
	assert.ElementsMatch(t, []string{mine.ID, other.ID}, ids(f.do(http.MethodGet, "/api/orders", nil, "admin:a1")))
	assert.Equal(t, []string{mine.ID}, ids(f.do(http.MethodGet, "/api/orders?status=created", nil, "admin:a1")))
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/orders?status=lost", nil, "admin:a1").Code)

	assert.Equal(t, []string{other.ID}, ids(f.do(http.MethodGet, "/api/drivers/d1/orders", nil, "driver:d1")))
	assert.Empty(t, ids(f.do(http.MethodGet, "/api/drivers/d1/orders?status=delivered", nil, "admin:a1")))
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/drivers/d1/orders", nil, "customer:c2").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/drivers/ghost/orders", nil, "admin:a1").Code)
}

func TestDriverPositionNeedsAnAssignedOrder(t *testing.T) {
	f := newAPI(t)
	f.addDriver(t, "d1")
	o := f.createOrder(t, "customer:c1")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/orders/"+o.ID+"/assign", map[string]any{"driverId": "d1"}, "admin:a1").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodPut, "/api/drivers/d1/location", map[string]any{"lat": 6.5, "lng": 3.3, "orderId": o.ID}, "driver:d1").Code)

	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/drivers/d1/position", nil, "customer:c1").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/drivers/d1/position?orderId="+o.ID, nil, "customer:c2").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/drivers/d1/position?orderId="+o.ID, nil, "customer:c1").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/drivers/d1/position", nil, "driver:d1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/drivers/d1/position?orderId=a.b", nil, "admin:a1").Code)
}
