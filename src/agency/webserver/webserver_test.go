package webserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/config"
	"github.com/covert-ops/agency-comms/src/agency/types"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&types.Country{},
		&types.Agent{},
		&types.Mission{},
		&types.MissionResult{},
		&types.Message{},
		&types.Setting{},
	))

	cfg := config.Config{JWTSecret: testSecret, FrontendURL: "http://localhost:3000"}
	return New(cfg, db, nil), db
}

func seedAgent(t *testing.T, db *gorm.DB, codeName, password, role string, countryID *string) types.Agent {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	a := types.Agent{
		ID:           uuid.NewString(),
		CodeName:     codeName,
		Status:       types.AgentAvailable,
		Role:         role,
		PasswordHash: string(hash),
		CountryID:    countryID,
	}
	require.NoError(t, db.Create(&a).Error)
	return a
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, codeName, password string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", map[string]string{
		"codeName": codeName,
		"password": password,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}
