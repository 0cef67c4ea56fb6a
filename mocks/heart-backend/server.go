package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"medinauts/internal/intake/clients"
	"medinauts/internal/intake/models"
	jwttoken "medinauts/internal/jwt_token"
	dErrors "medinauts/pkg/domain-errors"
	"medinauts/pkg/platform/middleware/request"
	"medinauts/pkg/validation"
)

// defaultExtraction is what a readable upload yields: a partial record, the
// way OCR of a single lab sheet usually is.
var defaultExtraction = map[string]any{
	"age":      "63",
	"sex":      "1",
	"trestbps": "145",
	"chol":     "233",
	"fbs":      "1",
}

const maxScanBytes = 10 << 20

type detailResponse struct {
	Detail string `json:"detail"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type credentials struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required"`
}

type predictResponse struct {
	Prediction     int     `json:"prediction"`
	RiskScore      float64 `json:"risk_score"`
	PredictionText string  `json:"prediction_text"`
}

// predictRequest mirrors the collaborator contract: every field is required.
type predictRequest struct {
	Age      *int     `json:"age" validate:"required"`
	Sex      *int     `json:"sex" validate:"required"`
	CP       *int     `json:"cp" validate:"required"`
	Trestbps *int     `json:"trestbps" validate:"required"`
	Chol     *int     `json:"chol" validate:"required"`
	FBS      *int     `json:"fbs" validate:"required"`
	RestECG  *int     `json:"restecg" validate:"required"`
	Thalach  *int     `json:"thalach" validate:"required"`
	Exang    *int     `json:"exang" validate:"required"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required"`
	Slope    *int     `json:"slope" validate:"required"`
	CA       *int     `json:"ca" validate:"required"`
	Thal     *int     `json:"thal" validate:"required"`
}

type backend struct {
	logger     *slog.Logger
	tokens     *jwttoken.JWTService
	bcryptCost int
	latency    time.Duration
	fixed      *predictResponse

	mu        sync.RWMutex
	users     map[string][]byte
	feedbacks []models.FeedbackRequest
}

type Option func(*backend)

// WithBcryptCost lowers the hashing cost in tests.
func WithBcryptCost(cost int) Option {
	return func(b *backend) {
		b.bcryptCost = cost
	}
}

// WithLatency delays every collaborator response.
func WithLatency(d time.Duration) Option {
	return func(b *backend) {
		b.latency = d
	}
}

// WithFixedPrediction makes /predict answer with stage and score whatever
// the record, so clients can exercise specific results.
func WithFixedPrediction(stage int, score float64) Option {
	return func(b *backend) {
		b.fixed = &predictResponse{Prediction: stage, RiskScore: score, PredictionText: clients.StageLabel(stage)}
	}
}

func newBackend(logger *slog.Logger, tokens *jwttoken.JWTService, opts ...Option) *backend {
	b := &backend{
		logger:     logger,
		tokens:     tokens,
		bcryptCost: bcrypt.DefaultCost,
		users:      make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(b.logger))
	r.Use(request.RequestID)
	r.Use(request.Logger(b.logger))
	r.Use(b.simulateLatency)

	r.Get("/", b.handleHome)
	r.Get("/health", b.handleHealth)
	r.Post("/register", b.handleRegister)
	r.Post("/token", b.handleToken)
	r.Post("/scan-report", b.handleScan)
	r.Post("/predict", b.handlePredict)
	r.Post("/feedback", b.handleFeedback)
	r.Get("/user-count", b.handleUserCount)
	return r
}

func (b *backend) simulateLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.latency > 0 {
			select {
			case <-time.After(b.latency):
			case <-r.Context().Done():
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) //nolint:errchkjson // best effort
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, detailResponse{Detail: detail})
}

func (b *backend) handleHome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Medinauts API is running"})
}

func (b *backend) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "heart-backend",
		"version": "1.0.0",
	})
}

func (b *backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validation.Validate(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), b.bcryptCost)
	if err != nil {
		b.logger.ErrorContext(r.Context(), "password hashing failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "could not create user")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.users[req.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already exists")
		return
	}
	b.users[req.Username] = hash
	writeJSON(w, http.StatusOK, map[string]string{"message": "User created successfully"})
}

func (b *backend) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username := r.PostForm.Get("username")
	password := r.PostForm.Get("password")

	b.mu.RLock()
	hash, ok := b.users[username]
	b.mu.RUnlock()
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := b.tokens.GenerateAccessToken(username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

// handleScan returns the JSON object of an uploaded .json file verbatim and
// a fixed partial extraction for anything else readable.
func (b *backend) handleScan(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxScanBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "File could not be processed.")
		return
	}

	name := strings.ToLower(header.Filename)
	switch {
	case len(content) == 0 || strings.Contains(name, "unreadable"):
		writeDetail(w, http.StatusBadRequest, "Invalid image file.")
		return
	case strings.HasSuffix(name, ".json"):
		var data map[string]any
		if err := json.Unmarshal(content, &data); err != nil {
			writeDetail(w, http.StatusBadRequest, "File could not be processed.")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": data})
	default:
		writeJSON(w, http.StatusOK, map[string]any{"status": "success", "data": defaultExtraction})
	}
}

func (b *backend) handlePredict(w http.ResponseWriter, r *http.Request) {
	if _, err := b.authenticate(r); err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}

	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := validation.Validate(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	record := req.toRecord()

	if b.fixed != nil {
		writeJSON(w, http.StatusOK, b.fixed)
		return
	}
	score := riskScore(record)
	stage := stageFor(score)
	writeJSON(w, http.StatusOK, predictResponse{
		Prediction:     stage,
		RiskScore:      score,
		PredictionText: clients.StageLabel(stage),
	})
}

func (b *backend) authenticate(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", dErrors.New(dErrors.CodeAuthRequired, "missing bearer token")
	}
	return b.tokens.ValidateToken(strings.TrimSpace(token))
}

func (b *backend) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var fb models.FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid request body")
		return
	}
	if err := validation.Validate(&fb); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b.mu.Lock()
	b.feedbacks = append(b.feedbacks, fb)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "Feedback saved"})
}

func (b *backend) handleUserCount(w http.ResponseWriter, _ *http.Request) {
	b.mu.RLock()
	n := len(b.users)
	b.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (b *backend) feedbackCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.feedbacks)
}

func (p predictRequest) toRecord() models.NormalizedRecord {
	return models.NormalizedRecord{
		Age: *p.Age, Sex: *p.Sex, CP: *p.CP, Trestbps: *p.Trestbps, Chol: *p.Chol,
		FBS: *p.FBS, RestECG: *p.RestECG, Thalach: *p.Thalach, Exang: *p.Exang,
		Oldpeak: *p.Oldpeak, Slope: *p.Slope, CA: *p.CA, Thal: *p.Thal,
	}
}
