package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/AccountantBot/AccountantBot-Backend/internal/chain"
	"github.com/AccountantBot/AccountantBot-Backend/internal/config"
	"github.com/AccountantBot/AccountantBot-Backend/internal/db"
	"github.com/AccountantBot/AccountantBot-Backend/internal/engine"
	"github.com/AccountantBot/AccountantBot-Backend/internal/handlers"
	"github.com/AccountantBot/AccountantBot-Backend/internal/repository"
	"github.com/AccountantBot/AccountantBot-Backend/internal/router"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopGateway is a chain gateway double satisfying the engine's
// unexported chainGateway method set structurally; every write
// operation fails since these handler tests only exercise the
// off-chain (createOnchain=false) surface.
type noopGateway struct{}

func (noopGateway) CreateOnchain(context.Context, string, string, []chain.Leg, *big.Int, [32]byte) (*chain.Receipt, error) {
	return nil, assertNotCalled
}
func (noopGateway) Settle(context.Context, chain.SettleArgs) (*chain.Receipt, error) {
	return nil, assertNotCalled
}
func (noopGateway) ERC20Allowance(context.Context, string, string, string) (*big.Int, error) {
	return big.NewInt(0), nil
}
func (noopGateway) ParseSplitCreated([]*types.Log) (*big.Int, bool) {
	return nil, false
}

var assertNotCalled = &notCalledError{}

type notCalledError struct{}

func (*notCalledError) Error() string { return "gateway write operation not expected in this test" }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := db.Connect("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(database))

	repo := repository.NewSplitRepository(database)
	eng := engine.New(repo, noopGateway{}, 534352, "0x0000000000000000000000000000000000000009", "Accountant", "1")
	handler := handlers.NewSplitHandler(eng)

	cors := config.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true, MaxAge: 3600}
	return router.New(cors, handler)
}

func TestCreateSplitHandlerHappyPath(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"payer": "0x0000000000000000000000000000000000000001",
		"token": "0x0000000000000000000000000000000000000002",
		"legs": []map[string]string{
			{"participant": "0x0000000000000000000000000000000000000010", "amount": "100"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/splits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp["id"])
}

func TestCreateSplitHandlerRejectsMissingLegs(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"payer": "0x0000000000000000000000000000000000000001",
		"token": "0x0000000000000000000000000000000000000002",
	})
	req := httptest.NewRequest(http.MethodPost, "/splits", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSplitHandlerNotFound(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/splits/999", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetSplitHandlerRejectsNonNumericID(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/splits/not-a-number", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckAllowanceHandlerRequiresQueryParams(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/splits/allowances/check", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckAllowanceHandlerHappyPath(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/splits/allowances/check?token=0x0000000000000000000000000000000000000002&owner=0x0000000000000000000000000000000000000001", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListTokensHandlerEmptyByDefault(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/tokens", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestHealthzHandler(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
