package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxjournal/internal/journal"
	"fxjournal/internal/leaderboard"
	"fxjournal/internal/store"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := journal.NewService(st, nil, zerolog.Nop())
	lb := leaderboard.NewAggregator(st, 3, 500)
	return NewServer(svc, lb, nil, testSecret, zerolog.Nop())
}

func signToken(t *testing.T, uid, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid":  uid,
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doJSON(t *testing.T, router http.Handler, method, url, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func planBody() map[string]interface{} {
	return map[string]interface{}{
		"date":         1700000000000,
		"instrument":   "EURUSD",
		"direction":    "Long",
		"strategy":     "SupplyDemand",
		"setup":        map[string]string{"zoneType": "demand", "confirmation": "engulfing"},
		"plannedEntry": 1.2000,
		"plannedSL":    1.1950,
		"plannedTP":    1.2150,
		"riskAmount":   50,
		"positionSize": 1.0,
		"entryReason":  "retest",
	}
}

func TestAuthRequired(t *testing.T) {
	router := newTestServer(t).Router()

	w := doJSON(t, router, http.MethodGet, "/api/trades", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/trades", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPlanCloseListOverHTTP(t *testing.T) {
	router := newTestServer(t).Router()
	token := signToken(t, "u1", "user")

	w := doJSON(t, router, http.MethodPost, "/api/trades", token, planBody())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = doJSON(t, router, http.MethodPost, "/api/trades/"+created.ID+"/close", token, map[string]interface{}{
		"exitPrice": 1.2150,
		"pnl":       150,
		"outcome":   "Win",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/trades", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Trades []struct {
			Status  string  `json:"status"`
			PnL     float64 `json:"pnl"`
			Outcome string  `json:"outcome"`
		} `json:"trades"`
		Degraded bool `json:"degraded"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Trades, 1)
	assert.Equal(t, "Closed", list.Trades[0].Status)
	assert.Equal(t, 150.0, list.Trades[0].PnL)
	assert.False(t, list.Degraded)
}

func TestValidationMapsToBadRequest(t *testing.T) {
	router := newTestServer(t).Router()
	token := signToken(t, "u1", "user")

	body := planBody()
	body["instrument"] = ""
	w := doJSON(t, router, http.MethodPost, "/api/trades", token, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActAsRequiresAdminRole(t *testing.T) {
	router := newTestServer(t).Router()

	user := signToken(t, "u1", "user")
	w := doJSON(t, router, http.MethodGet, "/api/trades?userId=u2", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := signToken(t, "boss", "admin")
	w = doJSON(t, router, http.MethodGet, "/api/trades?userId=u2", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionUpsertsProfile(t *testing.T) {
	router := newTestServer(t).Router()
	token := signToken(t, "u1", "user")

	w := doJSON(t, router, http.MethodPost, "/api/auth/session", token, map[string]string{
		"email":       "a@b.c",
		"displayName": "Alice",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var profile struct {
		UID         string `json:"uid"`
		DisplayName string `json:"displayName"`
		Role        string `json:"role"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, "u1", profile.UID)
	assert.Equal(t, "Alice", profile.DisplayName)
	assert.Equal(t, "user", profile.Role)
}

func TestUploadEndpointsUnavailableWithoutBlob(t *testing.T) {
	router := newTestServer(t).Router()
	token := signToken(t, "u1", "user")

	w := doJSON(t, router, http.MethodGet, "/api/upload?filename=chart.png", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
